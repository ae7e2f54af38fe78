package runner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/buttonmasher/masher/internal/input"
	"github.com/buttonmasher/masher/internal/profile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = 2 * time.Second

func fastSet(keys string) profile.Set {
	s := profile.NewSet()
	s.Keys = keys
	s.InnerMS = 1
	s.RepeatMS = 1
	return s
}

func staticSource(sets ...profile.Set) Source {
	p := profile.Profile{Name: "Test", Sets: sets}
	return func() (profile.Profile, bool) { return p, true }
}

func startRunner(t *testing.T, src Source, rec *input.Recorder) *Runner {
	t.Helper()
	r := New("Test", src, rec, Options{Settle: time.Microsecond})
	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)
	return r
}

func TestRunnerPressesKeysInOrder(t *testing.T) {
	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(fastSet("a, B ,c")), rec)

	require.Eventually(t, func() bool { return len(rec.Keys()) >= 9 }, waitFor, time.Millisecond)
	r.Stop()

	keys := rec.Keys()
	for i, k := range keys {
		assert.Equal(t, []string{"a", "b", "c"}[i%3], k, "key %d", i)
	}
	assert.False(t, r.Running())
}

func TestRunnerStartIsIdempotent(t *testing.T) {
	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(fastSet("a")), rec)
	require.NoError(t, r.Start())
	assert.True(t, r.Running())

	r.Stop()
	r.Stop()
	assert.False(t, r.Running())
}

func TestRunnerRejectsEmptyProfile(t *testing.T) {
	r := New("Empty", staticSource(), input.NewRecorder(0, 0), Options{})
	assert.ErrorIs(t, r.Start(), ErrNoSets)
	assert.False(t, r.Running())

	gone := New("Gone", func() (profile.Profile, bool) { return profile.Profile{}, false }, input.NewRecorder(0, 0), Options{})
	assert.ErrorIs(t, gone.Start(), ErrNoProfile)
}

func TestRunnerJumpBackAlternatesSets(t *testing.T) {
	first := fastSet("a")
	first.JumpBack = profile.JumpBack{Enabled: true, Target: 2}
	// jump-back wins over switch
	first.Switch = profile.Switch{Enabled: true, Target: 1}
	second := fastSet("b")
	second.JumpBack = profile.JumpBack{Enabled: true, Target: 1}

	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(first, second), rec)
	require.Eventually(t, func() bool { return len(rec.Keys()) >= 6 }, waitFor, time.Millisecond)
	r.Stop()

	keys := rec.Keys()
	for i, k := range keys {
		assert.Equal(t, []string{"a", "b"}[i%2], k, "key %d", i)
	}
}

func TestRunnerSwitchAfterOneCycle(t *testing.T) {
	first := fastSet("a")
	first.Switch = profile.Switch{Enabled: true, Target: 2}
	second := fastSet("b")

	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(first, second), rec)
	require.Eventually(t, func() bool { return len(rec.Keys()) >= 5 }, waitFor, time.Millisecond)
	r.Stop()

	keys := rec.Keys()
	assert.Equal(t, "a", keys[0])
	for _, k := range keys[1:] {
		assert.Equal(t, "b", k)
	}
	assert.Equal(t, 1, r.Status().SetIndex)
	assert.Equal(t, "Set 2", r.Status().SetName)
}

func TestRunnerSwitchWaitsForDuration(t *testing.T) {
	first := fastSet("a")
	first.Switch = profile.Switch{Enabled: true, Sec: 30, Target: 2}
	second := fastSet("b")

	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(first, second), rec)
	require.Eventually(t, func() bool { return len(rec.Keys()) >= 10 }, waitFor, time.Millisecond)
	r.Stop()

	assert.NotContains(t, rec.Keys(), "b")
}

func TestRunnerOutOfRangeTargetRestartsAtFirstSet(t *testing.T) {
	first := fastSet("a")
	first.JumpBack = profile.JumpBack{Enabled: true, Target: 2}
	second := fastSet("b")
	second.JumpBack = profile.JumpBack{Enabled: true, Target: 9}

	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(first, second), rec)
	require.Eventually(t, func() bool { return len(rec.Keys()) >= 4 }, waitFor, time.Millisecond)
	r.Stop()

	assert.Equal(t, []string{"a", "b", "a", "b"}, rec.Keys()[:4])
}

func TestRunnerClickIntervalRotatesPositions(t *testing.T) {
	s := fastSet("")
	s.RepeatMS = 1000
	s.Click = profile.Click{
		Enabled:          true,
		IntervalEnabled:  true,
		GlobalIntervalMS: 1,
		PositionsEnabled: true,
		Positions: []profile.ClickPosition{
			{Enabled: true, X: 10, Y: 10},
			{Enabled: false, X: 20, Y: 20},
			{Enabled: true, X: 30, Y: 30, IntervalMS: 2},
		},
	}

	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(s), rec)
	require.Eventually(t, func() bool { return rec.Count(input.EventClick) >= 4 }, waitFor, time.Millisecond)
	r.Stop()

	var xs []int
	for _, ev := range rec.Events() {
		if ev.Kind == input.EventClick {
			xs = append(xs, ev.X)
		}
	}
	for i, x := range xs {
		assert.Equal(t, []int{10, 30}[i%2], x, "click %d", i)
	}
	assert.GreaterOrEqual(t, r.Status().Clicks, int64(4))
}

func TestRunnerClickIntervalWithoutPositions(t *testing.T) {
	s := fastSet("")
	s.RepeatMS = 1000
	s.Click = profile.Click{Enabled: true, IntervalEnabled: true, GlobalIntervalMS: 1}

	rec := input.NewRecorder(7, 8)
	r := startRunner(t, staticSource(s), rec)
	require.Eventually(t, func() bool { return rec.Count(input.EventClick) >= 3 }, waitFor, time.Millisecond)
	r.Stop()

	assert.Zero(t, rec.Count(input.EventMove))
}

func TestRunnerSingleClickCycleOnEntry(t *testing.T) {
	s := fastSet("a")
	s.RepeatMS = 5
	s.Click = profile.Click{
		Enabled:          true,
		PositionsEnabled: true,
		GlobalIntervalMS: 200,
		Positions: []profile.ClickPosition{
			{Enabled: true, X: 1, Y: 1},
			{Enabled: true, X: 2, Y: 2},
		},
	}

	rec := input.NewRecorder(0, 0)
	r := startRunner(t, staticSource(s), rec)
	require.Eventually(t, func() bool { return len(rec.Keys()) >= 5 }, waitFor, time.Millisecond)
	r.Stop()

	assert.Equal(t, 2, rec.Count(input.EventClick), "positions are clicked once per set activation")
}

func TestRunnerMovementFollowsPattern(t *testing.T) {
	s := fastSet("")
	s.RepeatMS = 1000
	s.Movement = profile.Movement{Enabled: true, Pattern: profile.PatternSquare, Size: 10, Steps: 4, StepMS: 1}

	rec := input.NewRecorder(100, 100)
	r := startRunner(t, staticSource(s), rec)
	require.Eventually(t, func() bool { return rec.Count(input.EventMove) >= 5 }, waitFor, time.Millisecond)
	r.Stop()

	events := rec.Events()
	assert.Equal(t, input.Event{Kind: input.EventMove, X: 100, Y: 100}, events[0])
	assert.Equal(t, input.Event{Kind: input.EventMove, X: 110, Y: 100}, events[1])
	assert.Equal(t, input.Event{Kind: input.EventMove, X: 110, Y: 110}, events[2])
	assert.Equal(t, input.Event{Kind: input.EventMove, X: 100, Y: 110}, events[3])
	assert.Equal(t, input.Event{Kind: input.EventMove, X: 100, Y: 100}, events[4])
}

func TestRunnerPicksUpLiveEdits(t *testing.T) {
	var mu sync.Mutex
	p := profile.Profile{Name: "Live", Sets: []profile.Set{fastSet("a")}}
	src := func() (profile.Profile, bool) {
		mu.Lock()
		defer mu.Unlock()
		return p.Clone(), true
	}

	rec := input.NewRecorder(0, 0)
	r := startRunner(t, src, rec)
	require.Eventually(t, func() bool { return len(rec.Keys()) >= 2 }, waitFor, time.Millisecond)

	mu.Lock()
	p.Sets[0].Keys = "z"
	mu.Unlock()

	require.Eventually(t, func() bool {
		keys := rec.Keys()
		return keys[len(keys)-1] == "z"
	}, waitFor, time.Millisecond)
	r.Stop()
}

func TestRunnerReportsSummary(t *testing.T) {
	summaries := make(chan Summary, 1)
	rec := input.NewRecorder(0, 0)
	r := New("Sum", staticSource(fastSet("a")), rec, Options{
		OnFinish: func(s Summary) { summaries <- s },
	})
	require.NoError(t, r.Start())
	require.Eventually(t, func() bool { return len(rec.Keys()) >= 3 }, waitFor, time.Millisecond)
	r.Stop()

	select {
	case s := <-summaries:
		assert.Equal(t, "Sum", s.Profile)
		assert.Equal(t, int64(len(rec.Keys())), s.Keys)
		assert.Positive(t, s.Duration)
	case <-time.After(waitFor):
		t.Fatal("no summary")
	}
}

func TestRunnerRecoversFromPanickingDriver(t *testing.T) {
	s := fastSet("")
	s.RepeatMS = 1000
	s.Click = profile.Click{Enabled: true, IntervalEnabled: true, GlobalIntervalMS: 1}

	drv := &panicky{Recorder: input.NewRecorder(0, 0)}
	r := New("Panicky", staticSource(s), drv, Options{})
	require.NoError(t, r.Start())
	require.Eventually(t, func() bool { return drv.calls() >= 3 }, waitFor, time.Millisecond)
	r.Stop()
}

type panicky struct {
	*input.Recorder
	mu sync.Mutex
	n  int
}

func (p *panicky) Click() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
	panic("display closed")
}

func (p *panicky) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func TestStopInterruptsLongSleeps(t *testing.T) {
	tests := []struct {
		name     string
		inner    int
		repeat   int
		wantKeys []string
	}{
		{name: "between keys", inner: 60_000, repeat: 1, wantKeys: []string{"a"}},
		{name: "after the cycle", inner: 1, repeat: 60_000, wantKeys: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fastSet("a,b,c")
			s.InnerMS = tt.inner
			s.RepeatMS = tt.repeat

			rec := input.NewRecorder(0, 0)
			r := startRunner(t, staticSource(s), rec)
			require.Eventually(t, func() bool { return len(rec.Keys()) == len(tt.wantKeys) }, waitFor, time.Millisecond)
			// still inside the long sleep
			time.Sleep(20 * time.Millisecond)

			began := time.Now()
			r.Stop()
			assert.Less(t, time.Since(began), 500*time.Millisecond)
			assert.Equal(t, tt.wantKeys, rec.Keys())
			assert.False(t, r.Running())
		})
	}
}
