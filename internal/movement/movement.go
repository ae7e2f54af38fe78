// Package movement generates pointer paths and walks the pointer along them.
package movement

import (
	"context"
	"math"
	"time"

	"github.com/buttonmasher/masher/internal/input"
	"github.com/buttonmasher/masher/internal/profile"
)

// Offset is a pointer displacement relative to the origin captured when a
// walk starts.
type Offset struct {
	DX, DY int
}

// Circle returns a closed loop of steps offsets on a circle of the given
// radius. The loop starts at the origin, which lies on the circle.
func Circle(radius, steps int) []Offset {
	if radius <= 0 || steps <= 0 {
		return nil
	}
	r := float64(radius)
	return sample(steps, func(theta float64) (float64, float64) {
		return r*math.Cos(theta) - r, r * math.Sin(theta)
	})
}

// FigureEight returns a lemniscate of Gerono with half-width size. The
// crossing point is the origin.
func FigureEight(size, steps int) []Offset {
	if size <= 0 || steps <= 0 {
		return nil
	}
	a := float64(size)
	return sample(steps, func(theta float64) (float64, float64) {
		return a * math.Sin(theta), a * math.Sin(theta) * math.Cos(theta)
	})
}

// Square walks the perimeter of a size x size square clockwise from its
// top-left corner at the origin.
func Square(size, steps int) []Offset {
	if size <= 0 || steps <= 0 {
		return nil
	}
	s := float64(size)
	perimeter := 4 * s
	out := make([]Offset, 0, steps)
	for i := 0; i < steps; i++ {
		d := perimeter * float64(i) / float64(steps)
		side := math.Floor(d / s)
		t := d - side*s
		var x, y float64
		switch int(side) {
		case 0:
			x, y = t, 0
		case 1:
			x, y = s, t
		case 2:
			x, y = s-t, s
		default:
			x, y = 0, s-t
		}
		out = appendDistinct(out, Offset{DX: round(x), DY: round(y)})
	}
	return out
}

// Interpolate turns a hand-drawn path into offsets relative to its first
// point, filling every segment with linear steps of at most stepPx.
func Interpolate(points []profile.Point, stepPx float64) []Offset {
	if len(points) < 2 {
		return nil
	}
	if stepPx <= 0 {
		stepPx = 1
	}
	origin := points[0]
	out := []Offset{{}}
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			continue
		}
		n := int(math.Ceil(dist / stepPx))
		for k := 1; k <= n; k++ {
			f := float64(k) / float64(n)
			out = appendDistinct(out, Offset{
				DX: round(a.X + dx*f - origin.X),
				DY: round(a.Y + dy*f - origin.Y),
			})
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

// Offsets builds the loop for a set's movement settings. An empty result
// means there is nothing to walk.
func Offsets(m profile.Movement) []Offset {
	switch m.Pattern {
	case profile.PatternSquare:
		return Square(m.Size, m.Steps)
	case profile.PatternFigure8:
		return FigureEight(m.Size, m.Steps)
	case profile.PatternPath:
		return Interpolate(m.Path, m.PathStepPx)
	default:
		return Circle(m.Size, m.Steps)
	}
}

// Walk captures the pointer origin and moves through offsets, waiting step
// between moves and starting over at the end, until ctx is done. onStep,
// when non-nil, is called after every move.
func Walk(ctx context.Context, d input.Driver, offsets []Offset, step time.Duration, onStep func()) {
	if len(offsets) == 0 {
		return
	}
	ox, oy := d.Location()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		for _, off := range offsets {
			if ctx.Err() != nil {
				return
			}
			d.Move(ox+off.DX, oy+off.DY)
			if onStep != nil {
				onStep()
			}
			timer.Reset(step)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}
}

func sample(steps int, f func(theta float64) (float64, float64)) []Offset {
	out := make([]Offset, 0, steps)
	for i := 0; i < steps; i++ {
		x, y := f(2 * math.Pi * float64(i) / float64(steps))
		out = appendDistinct(out, Offset{DX: round(x), DY: round(y)})
	}
	return out
}

func appendDistinct(out []Offset, o Offset) []Offset {
	if len(out) > 0 && out[len(out)-1] == o {
		return out
	}
	return append(out, o)
}

func round(v float64) int {
	return int(math.Round(v))
}
