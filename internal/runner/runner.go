// Package runner executes a profile: it presses each set's keys on a
// schedule, clicks, walks the pointer and moves between sets.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/buttonmasher/masher/internal/input"
	"github.com/buttonmasher/masher/internal/movement"
	"github.com/buttonmasher/masher/internal/profile"
)

const (
	emptySetPause = 10 * time.Millisecond
	errorBackoff  = 50 * time.Millisecond
)

var (
	ErrNoSets    = errors.New("profile has no sets")
	ErrNoProfile = errors.New("profile no longer exists")
)

// Source returns the current state of the runner's profile. Runners read it
// on every set change and every cycle, so edits apply while running.
type Source func() (profile.Profile, bool)

// Status is a point-in-time view of a runner.
type Status struct {
	Running   bool
	SetIndex  int
	SetName   string
	StartedAt time.Time
	Keys      int64
	Clicks    int64
	Moves     int64
}

// Summary describes a finished run.
type Summary struct {
	Profile   string
	StartedAt time.Time
	Duration  time.Duration
	Keys      int64
	Clicks    int64
	Moves     int64
}

type Options struct {
	Logger *zap.Logger
	// OnFinish is called from the runner goroutine once a run has ended.
	OnFinish func(Summary)
	// Settle is the pause between moving to a position and clicking it.
	Settle time.Duration
}

// Runner runs one profile. Start and Stop may be called from any goroutine.
type Runner struct {
	name     string
	source   Source
	driver   input.Driver
	logger   *zap.Logger
	onFinish func(Summary)
	settle   time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
	setIndex  int
	setName   string

	keys   atomic.Int64
	clicks atomic.Int64
	moves  atomic.Int64
}

func New(name string, source Source, driver input.Driver, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = input.DefaultSettle
	}
	return &Runner{
		name:     name,
		source:   source,
		driver:   driver,
		logger:   logger.With(zap.String("profile", name)),
		onFinish: opts.OnFinish,
		settle:   settle,
	}
}

func (r *Runner) Name() string {
	return r.name
}

// Start launches a run beginning with the first set. It does nothing when
// the runner is already running.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	p, ok := r.source()
	if !ok {
		return fmt.Errorf("%s: %w", r.name, ErrNoProfile)
	}
	if len(p.Sets) == 0 {
		return fmt.Errorf("%s: %w", r.name, ErrNoSets)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.startedAt = time.Now()
	r.setIndex = 0
	r.setName = p.SetTitle(0)
	r.keys.Store(0)
	r.clicks.Store(0)
	r.moves.Store(0)

	r.logger.Info("Runner started", zap.Int("sets", len(p.Sets)))
	go r.loop(ctx, r.done)
	return nil
}

// Stop ends the current run and waits for its goroutines to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Running:   r.running,
		SetIndex:  r.setIndex,
		SetName:   r.setName,
		StartedAt: r.startedAt,
		Keys:      r.keys.Load(),
		Clicks:    r.clicks.Load(),
		Moves:     r.moves.Load(),
	}
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer r.finish()

	index := 0
	for ctx.Err() == nil {
		p, ok := r.source()
		if !ok || len(p.Sets) == 0 {
			r.logger.Warn("Runner has nothing left to run")
			return
		}
		if index < 0 || index >= len(p.Sets) {
			index = 0
		}

		r.mu.Lock()
		r.setIndex = index
		r.setName = p.SetTitle(index)
		r.mu.Unlock()
		r.logger.Debug("Set active", zap.Int("set", index+1), zap.String("name", p.SetTitle(index)))

		index = r.runSet(ctx, p.Sets[index], index)
	}
}

func (r *Runner) finish() {
	r.mu.Lock()
	summary := Summary{
		Profile:   r.name,
		StartedAt: r.startedAt,
		Duration:  time.Since(r.startedAt),
		Keys:      r.keys.Load(),
		Clicks:    r.clicks.Load(),
		Moves:     r.moves.Load(),
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.logger.Info("Runner stopped",
		zap.Duration("duration", summary.Duration),
		zap.Int64("keys", summary.Keys),
		zap.Int64("clicks", summary.Clicks),
		zap.Int64("moves", summary.Moves))
	if r.onFinish != nil {
		r.onFinish(summary)
	}
}

// runSet activates set and cycles it until the run ends or the set hands
// over. It returns the index of the next set.
func (r *Runner) runSet(ctx context.Context, set profile.Set, index int) int {
	setCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if len(set.KeyList()) == 0 {
		sleep(setCtx, emptySetPause)
	}

	if set.Click.Enabled && set.Click.IntervalEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.clickLoop(setCtx, set.Click)
		}()
	}

	if set.Movement.Enabled {
		if offsets := movement.Offsets(set.Movement); len(offsets) > 0 {
			step := ms(set.Movement.StepMS)
			wg.Add(1)
			go func() {
				defer wg.Done()
				movement.Walk(setCtx, r.driver, offsets, step, func() { r.moves.Add(1) })
			}()
		}
	}

	if set.SingleClickCycle() {
		r.singleClickCycle(set.Click)
	}

	started := time.Now()
	for setCtx.Err() == nil {
		if p, ok := r.source(); ok && index < len(p.Sets) {
			set = p.Sets[index]
		}

		for _, key := range set.KeyList() {
			if setCtx.Err() != nil {
				break
			}
			r.press(key)
			if !sleep(setCtx, ms(set.InnerMS)) {
				break
			}
		}
		if !sleep(setCtx, ms(set.RepeatMS)) {
			break
		}

		if set.JumpBack.Enabled {
			return max(1, set.JumpBack.Target) - 1
		}
		if set.Switch.Enabled {
			wait := time.Duration(set.Switch.Seconds()) * time.Second
			if wait == 0 || time.Since(started) >= wait {
				return max(1, set.Switch.Target) - 1
			}
		}
	}
	return index
}

func (r *Runner) singleClickCycle(c profile.Click) {
	r.safely("single click cycle", func() {
		active := c.ActivePositions()
		if !c.PositionsEnabled || len(active) == 0 {
			r.click()
			return
		}
		for _, p := range active {
			r.moveAndClick(p.X, p.Y)
		}
	})
}

func (r *Runner) clickLoop(ctx context.Context, c profile.Click) {
	global := ms(c.GlobalIntervalMS)
	for ctx.Err() == nil {
		ok := true
		failed := !r.safely("click interval", func() {
			active := c.ActivePositions()
			if !c.PositionsEnabled || len(c.Positions) == 0 || len(active) == 0 {
				r.click()
				ok = sleep(ctx, global)
				return
			}
			for _, p := range active {
				if ctx.Err() != nil {
					ok = false
					return
				}
				r.moveAndClick(p.X, p.Y)
				interval := global
				if p.IntervalMS > 0 {
					interval = ms(p.IntervalMS)
				}
				if !sleep(ctx, interval) {
					ok = false
					return
				}
			}
		})
		if failed {
			ok = sleep(ctx, errorBackoff)
		}
		if !ok {
			return
		}
	}
}

func (r *Runner) press(key string) {
	if err := input.PressKey(r.driver, key); err != nil {
		r.logger.Debug("Key press failed", zap.String("key", key), zap.Error(err))
		return
	}
	r.keys.Add(1)
}

func (r *Runner) click() {
	r.driver.Click()
	r.clicks.Add(1)
}

func (r *Runner) moveAndClick(x, y int) {
	input.MoveAndClick(r.driver, x, y, r.settle)
	r.clicks.Add(1)
}

// safely runs fn and reports whether it finished without panicking. Input
// backends can panic when the display goes away; a failed action is logged
// and the loop carries on.
func (r *Runner) safely(what string, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Input action failed", zap.String("action", what), zap.Any("panic", rec))
			ok = false
		}
	}()
	fn()
	return true
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
