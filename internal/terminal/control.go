package terminal

import (
	"fmt"
	"io"
	"os"
)

// Control redraws a block of status lines in place.
type Control struct {
	out   io.Writer
	isTTY bool
	drawn int
}

// NewControl writes to stdout.
func NewControl() *Control {
	return NewControlWriter(os.Stdout, isTerminal(os.Stdout))
}

// NewControlWriter writes to w. Without a terminal every update is printed
// as plain lines.
func NewControlWriter(w io.Writer, tty bool) *Control {
	return &Control{out: w, isTTY: tty}
}

// MoveCursorUp moves the cursor up by the specified number of lines
func (c *Control) MoveCursorUp(lines int) {
	if lines <= 0 {
		return
	}
	fmt.Fprintf(c.out, "\033[%dA", lines)
}

// ClearLine clears the current line
func (c *Control) ClearLine() {
	fmt.Fprint(c.out, "\033[2K\r")
}

// Writer returns the underlying output.
func (c *Control) Writer() io.Writer {
	return c.out
}

func (c *Control) IsTerminal() bool {
	return c.isTTY
}

func isTerminal(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// UpdateInPlace replaces the previously drawn block with lines.
func (c *Control) UpdateInPlace(lines []string) {
	if !c.isTTY {
		for _, line := range lines {
			fmt.Fprintln(c.out, line)
		}
		return
	}

	c.MoveCursorUp(c.drawn)
	for _, line := range lines {
		c.ClearLine()
		fmt.Fprintln(c.out, line)
	}
	// clear leftovers when the block shrank
	for i := len(lines); i < c.drawn; i++ {
		c.ClearLine()
		fmt.Fprintln(c.out)
	}
	if extra := c.drawn - len(lines); extra > 0 {
		c.MoveCursorUp(extra)
	}
	c.drawn = len(lines)
}

// Forget makes the next update start below whatever was printed last, for
// when other output has been written in between.
func (c *Control) Forget() {
	c.drawn = 0
}

// HideCursor hides the terminal cursor
func (c *Control) HideCursor() {
	if c.isTTY {
		fmt.Fprint(c.out, "\033[?25l")
	}
}

// ShowCursor shows the terminal cursor
func (c *Control) ShowCursor() {
	if c.isTTY {
		fmt.Fprint(c.out, "\033[?25h")
	}
}
