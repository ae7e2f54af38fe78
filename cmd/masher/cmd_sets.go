package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/buttonmasher/masher/internal/profile"
)

// setFlags are the set fields editable from the command line. Only flags
// given explicitly are applied.
type setFlags struct {
	keys        string
	inner       int
	repeat      int
	switchOn    bool
	switchAfter time.Duration
	switchTo    int
	jumpOn      bool
	jumpTo      int
	click       bool
	clickEvery  bool
	interval    int
	positions   bool
	movement    bool
	pattern     string
	size        int
	steps       int
	stepMS      int
	path        string
	pathStep    float64
}

func (f *setFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.keys, "keys", "", "comma separated keys, e.g. \"a,space,f1\"")
	fs.IntVar(&f.inner, "inner", 0, "ms to wait after each key")
	fs.IntVar(&f.repeat, "repeat", 0, "ms to wait after the whole key list")
	fs.BoolVar(&f.switchOn, "switch", false, "move to another set after a while")
	fs.DurationVar(&f.switchAfter, "switch-after", 0, "how long to stay before switching (0 = one cycle)")
	fs.IntVar(&f.switchTo, "switch-to", 0, "set number to switch to")
	fs.BoolVar(&f.jumpOn, "jump-back", false, "move to another set after every cycle")
	fs.IntVar(&f.jumpTo, "jump-to", 0, "set number to jump back to")
	fs.BoolVar(&f.click, "click", false, "enable clicking")
	fs.BoolVar(&f.clickEvery, "click-interval", false, "click continuously on an interval")
	fs.IntVar(&f.interval, "interval", 0, "global click interval in ms")
	fs.BoolVar(&f.positions, "positions", false, "click at the captured positions")
	fs.BoolVar(&f.movement, "movement", false, "move the pointer along a pattern")
	fs.StringVar(&f.pattern, "pattern", "", "movement pattern: circle, square, figure8 or path")
	fs.IntVar(&f.size, "size", 0, "movement pattern size in px")
	fs.IntVar(&f.steps, "steps", 0, "movement points per loop")
	fs.IntVar(&f.stepMS, "step-ms", 0, "ms between movement points")
	fs.StringVar(&f.path, "path", "", "points of the path pattern, e.g. \"0,0;40,0;40,40\" (empty clears)")
	fs.Float64Var(&f.pathStep, "path-step", 0, "px between interpolated path points")
}

// apply copies the changed flags onto s. Values are clamped the same way
// they are when loaded from a file.
func (f *setFlags) apply(cmd *cobra.Command, s *profile.Set) error {
	changed := cmd.Flags().Changed

	if changed("keys") {
		s.Keys = f.keys
	}
	if changed("inner") {
		s.InnerMS = f.inner
	}
	if changed("repeat") {
		s.RepeatMS = f.repeat
	}
	if changed("switch") {
		s.Switch.Enabled = f.switchOn
	}
	if changed("switch-after") {
		total := int(f.switchAfter / time.Second)
		s.Switch.Min, s.Switch.Sec = total/60, total%60
	}
	if changed("switch-to") {
		s.Switch.Target = f.switchTo
	}
	if changed("jump-back") {
		s.JumpBack.Enabled = f.jumpOn
	}
	if changed("jump-to") {
		s.JumpBack.Target = f.jumpTo
	}
	if changed("click") {
		s.Click.Enabled = f.click
	}
	if changed("click-interval") {
		s.Click.IntervalEnabled = f.clickEvery
	}
	if changed("interval") {
		s.Click.GlobalIntervalMS = f.interval
	}
	if changed("positions") {
		s.Click.PositionsEnabled = f.positions
	}
	if changed("movement") {
		s.Movement.Enabled = f.movement
	}
	if changed("pattern") {
		s.Movement.Pattern = f.pattern
	}
	if changed("size") {
		s.Movement.Size = f.size
	}
	if changed("steps") {
		s.Movement.Steps = f.steps
	}
	if changed("step-ms") {
		s.Movement.StepMS = f.stepMS
	}
	if changed("path") {
		points, err := parsePath(f.path)
		if err != nil {
			return err
		}
		s.Movement.Path = points
	}
	if changed("path-step") {
		s.Movement.PathStepPx = f.pathStep
	}
	return s.Normalize()
}

// parsePath reads "x,y;x,y;..." into path points.
func parsePath(text string) ([]profile.Point, error) {
	var points []profile.Point
	for _, pair := range strings.Split(text, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("path point %q: want x,y", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("path point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("path point %q: %w", pair, err)
		}
		points = append(points, profile.Point{X: x, Y: y})
	}
	return points, nil
}

func (c *cli) setsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sets",
		Aliases: []string{"set"},
		Short:   "List and manage the sets of a profile",
	}

	list := &cobra.Command{
		Use:   "list PROFILE",
		Short: "Show the sets of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			doc := store.Document()
			i, err := doc.Find(args[0])
			if err != nil {
				return err
			}
			p := doc.Profiles[i]
			fmt.Fprintf(cmd.OutOrStdout(), "🎮 %s\n", p.Name)
			for j, s := range p.Sets {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", j+1, describeSet(p.SetTitle(j), s))
			}
			return nil
		},
	}

	addFlags := &setFlags{}
	add := &cobra.Command{
		Use:   "add PROFILE [NAME]",
		Short: "Add a set to a profile",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			_, err := c.edit(func(doc *profile.Document) error {
				i, err := doc.Find(args[0])
				if err != nil {
					return err
				}
				s := profile.NewSet()
				if len(args) == 2 {
					s.Name = strings.TrimSpace(args[1])
				}
				if err := addFlags.apply(cmd, &s); err != nil {
					return err
				}
				p := &doc.Profiles[i]
				title = p.SetTitle(p.AddSet(s))
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Added %s to %s\n", title, args[0])
			return nil
		},
	}
	addFlags.bind(add)

	editFlags := &setFlags{}
	edit := &cobra.Command{
		Use:   "edit PROFILE SET",
		Short: "Change the settings of a set",
		Example: `  masher sets edit Mining 1 --keys "e,space" --inner 80 --repeat 400
  masher sets edit Mining 2 --click --positions --click-interval --interval 250
  masher sets edit Mining 1 --switch --switch-after 2m30s --switch-to 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var described string
			_, err := c.edit(func(doc *profile.Document) error {
				p, j, err := findSet(doc, args[0], args[1])
				if err != nil {
					return err
				}
				if err := editFlags.apply(cmd, &p.Sets[j]); err != nil {
					return err
				}
				described = describeSet(p.SetTitle(j), p.Sets[j])
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✏️  %s\n", described)
			return nil
		},
	}
	editFlags.bind(edit)

	del := &cobra.Command{
		Use:   "delete PROFILE SET",
		Short: "Delete a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.edit(func(doc *profile.Document) error {
				p, j, err := findSet(doc, args[0], args[1])
				if err != nil {
					return err
				}
				return p.DeleteSet(j)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted set %s of %s\n", args[1], args[0])
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename PROFILE SET NAME",
		Short: "Rename a set",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.edit(func(doc *profile.Document) error {
				p, j, err := findSet(doc, args[0], args[1])
				if err != nil {
					return err
				}
				return p.RenameSet(j, args[2])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✏️  Renamed set %s to %q\n", args[1], args[2])
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, del, rename)
	return cmd
}

func (c *cli) positionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Manage the click positions of a set",
	}

	var interval int
	add := &cobra.Command{
		Use:   "add PROFILE SET X Y",
		Short: "Add a click position",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("x: %w", err)
			}
			y, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("y: %w", err)
			}
			_, err = c.edit(func(doc *profile.Document) error {
				p, j, err := findSet(doc, args[0], args[1])
				if err != nil {
					return err
				}
				s := &p.Sets[j]
				if !s.AddPosition(x, y) {
					return fmt.Errorf("set already has %d positions", profile.MaxPositions)
				}
				s.Click.Positions[len(s.Click.Positions)-1].IntervalMS = max(0, interval)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🎯 Added position %d,%d\n", x, y)
			return nil
		},
	}
	add.Flags().IntVar(&interval, "interval", 0, "ms to wait after clicking here (0 = the set's interval)")

	remove := &cobra.Command{
		Use:   "remove PROFILE SET N",
		Short: "Remove one click position",
		Args:  cobra.ExactArgs(3),
		RunE: c.positionEditor(func(s *profile.Set, i int) error {
			return s.RemovePosition(i)
		}, "🗑️  Removed position %d\n"),
	}

	enable := &cobra.Command{
		Use:   "enable PROFILE SET N",
		Short: "Click at a position again",
		Args:  cobra.ExactArgs(3),
		RunE: c.positionEditor(func(s *profile.Set, i int) error {
			return s.EnablePosition(i, true)
		}, "✅ Enabled position %d\n"),
	}

	disable := &cobra.Command{
		Use:   "disable PROFILE SET N",
		Short: "Skip a position without removing it",
		Args:  cobra.ExactArgs(3),
		RunE: c.positionEditor(func(s *profile.Set, i int) error {
			return s.EnablePosition(i, false)
		}, "⏸️  Disabled position %d\n"),
	}

	clearCmd := &cobra.Command{
		Use:   "clear PROFILE SET",
		Short: "Remove every click position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.edit(func(doc *profile.Document) error {
				p, j, err := findSet(doc, args[0], args[1])
				if err != nil {
					return err
				}
				p.Sets[j].ClearPositions()
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🧹 Positions cleared")
			return nil
		},
	}

	cmd.AddCommand(add, remove, enable, disable, clearCmd)
	return cmd
}

// positionEditor builds the RunE of a "PROFILE SET N" position command.
func (c *cli) positionEditor(fn func(s *profile.Set, i int) error, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
		_, err = c.edit(func(doc *profile.Document) error {
			p, j, err := findSet(doc, args[0], args[1])
			if err != nil {
				return err
			}
			return fn(&p.Sets[j], n-1)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), done, n)
		return nil
	}
}

// findSet resolves a profile name and a 1-based set number.
func findSet(doc *profile.Document, profileName, setNumber string) (*profile.Profile, int, error) {
	i, err := doc.Find(profileName)
	if err != nil {
		return nil, 0, err
	}
	p := &doc.Profiles[i]
	n, err := strconv.Atoi(setNumber)
	if err != nil || n < 1 || n > len(p.Sets) {
		return nil, 0, fmt.Errorf("set %q of %s: %w", setNumber, p.Name, profile.ErrNotFound)
	}
	return p, n - 1, nil
}

func describeSet(title string, s profile.Set) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: keys=%q inner=%dms repeat=%dms", title, s.Keys, s.InnerMS, s.RepeatMS)
	if s.Switch.Enabled {
		fmt.Fprintf(&b, " switch->%d after %s", s.Switch.Target, time.Duration(s.Switch.Seconds())*time.Second)
	}
	if s.JumpBack.Enabled {
		fmt.Fprintf(&b, " jump->%d", s.JumpBack.Target)
	}
	if s.Click.Enabled {
		b.WriteString(" click")
		if s.Click.IntervalEnabled {
			fmt.Fprintf(&b, " every %dms", s.Click.GlobalIntervalMS)
		}
		if s.Click.PositionsEnabled {
			fmt.Fprintf(&b, " at %d/%d positions", len(s.Click.ActivePositions()), len(s.Click.Positions))
		}
	}
	if s.Movement.Enabled {
		fmt.Fprintf(&b, " move %s", s.Movement.Pattern)
		if s.Movement.Pattern == profile.PatternPath {
			fmt.Fprintf(&b, " (%d points)", len(s.Movement.Path))
		}
	}
	return b.String()
}
