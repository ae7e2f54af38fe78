package movement

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buttonmasher/masher/internal/input"
	"github.com/buttonmasher/masher/internal/profile"
)

func TestCircleStartsAtOriginAndStaysOnRadius(t *testing.T) {
	offsets := Circle(50, 36)
	require.Len(t, offsets, 36)
	assert.Equal(t, Offset{}, offsets[0])

	for _, o := range offsets {
		// centre of the circle sits at (-50, 0)
		d := math.Hypot(float64(o.DX+50), float64(o.DY))
		assert.InDelta(t, 50, d, 1)
	}
	assert.Equal(t, Offset{DX: -100, DY: 0}, offsets[18])
}

func TestSquareCorners(t *testing.T) {
	offsets := Square(10, 4)
	assert.Equal(t, []Offset{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, offsets)

	for _, o := range Square(40, 37) {
		onEdge := o.DX == 0 || o.DX == 40 || o.DY == 0 || o.DY == 40
		assert.True(t, onEdge, "%v is not on the perimeter", o)
	}
}

func TestFigureEightCrossesAtOrigin(t *testing.T) {
	offsets := FigureEight(100, 40)
	require.Len(t, offsets, 40)
	assert.Equal(t, Offset{}, offsets[0])
	assert.Equal(t, Offset{DX: 0, DY: 0}, offsets[20])
	assert.Equal(t, Offset{DX: 100, DY: 0}, offsets[10])
	assert.Equal(t, Offset{DX: -100, DY: 0}, offsets[30])
}

func TestDegenerateShapes(t *testing.T) {
	assert.Nil(t, Circle(0, 10))
	assert.Nil(t, Square(10, 0))
	assert.Nil(t, FigureEight(-1, 10))
	assert.Nil(t, Interpolate([]profile.Point{{X: 1, Y: 1}}, 2))
	assert.Nil(t, Interpolate([]profile.Point{{X: 1, Y: 1}, {X: 1, Y: 1}}, 2))
}

func TestInterpolate(t *testing.T) {
	points := []profile.Point{{X: 100, Y: 100}, {X: 110, Y: 100}, {X: 110, Y: 95}}
	offsets := Interpolate(points, 4)

	assert.Equal(t, Offset{}, offsets[0])
	assert.Equal(t, Offset{DX: 10, DY: -5}, offsets[len(offsets)-1])
	assert.Contains(t, offsets, Offset{DX: 10, DY: 0})

	for i := 1; i < len(offsets); i++ {
		a, b := offsets[i-1], offsets[i]
		assert.NotEqual(t, a, b)
		d := math.Hypot(float64(b.DX-a.DX), float64(b.DY-a.DY))
		assert.LessOrEqual(t, d, 4+math.Sqrt2)
	}
}

func TestOffsetsDispatch(t *testing.T) {
	m := profile.Movement{Pattern: profile.PatternSquare, Size: 10, Steps: 4}
	assert.Equal(t, Square(10, 4), Offsets(m))

	m.Pattern = profile.PatternPath
	m.Path = []profile.Point{{X: 0, Y: 0}, {X: 3, Y: 4}}
	m.PathStepPx = 5
	assert.Equal(t, []Offset{{0, 0}, {3, 4}}, Offsets(m))

	m.Pattern = "unknown"
	assert.Equal(t, Circle(10, 4), Offsets(m))
}

func TestWalkLoopsRelativeToOrigin(t *testing.T) {
	rec := input.NewRecorder(500, 300)
	offsets := []Offset{{0, 0}, {5, 0}, {5, 5}}

	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		Walk(ctx, rec, offsets, time.Millisecond, func() {
			steps++
			if steps == 7 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("walk did not stop")
	}

	events := rec.Events()
	require.Len(t, events, 7)
	want := []input.Event{
		{Kind: input.EventMove, X: 500, Y: 300},
		{Kind: input.EventMove, X: 505, Y: 300},
		{Kind: input.EventMove, X: 505, Y: 305},
	}
	assert.Equal(t, want, events[:3])
	assert.Equal(t, want, events[3:6])
	assert.Equal(t, want[0], events[6])
}
