package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/buttonmasher/masher/internal/config"
	"github.com/buttonmasher/masher/internal/feedback"
	"github.com/buttonmasher/masher/internal/hotkeys"
	"github.com/buttonmasher/masher/internal/input"
	"github.com/buttonmasher/masher/internal/metrics"
	"github.com/buttonmasher/masher/internal/profile"
	"github.com/buttonmasher/masher/internal/runner"
	"github.com/buttonmasher/masher/internal/terminal"
)

const statusInterval = 500 * time.Millisecond

// TonePlayer sounds feedback for hotkey actions.
type TonePlayer interface {
	Play(tone feedback.Tone)
}

// Options carries the collaborators of a Daemon. Nil fields are built by
// Initialize from the configuration.
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *profile.Store
	Driver   input.Driver
	Hotkeys  hotkeys.Source
	Metrics  *metrics.MetricsManager
	Terminal *terminal.Control
	Player   TonePlayer
}

type Daemon struct {
	config          *config.Config
	logger          *zap.Logger
	store           *profile.Store
	driver          input.Driver
	hotkeySource    hotkeys.Source
	hotkeyManager   *hotkeys.Manager
	metricsManager  *metrics.MetricsManager
	terminalControl *terminal.Control
	player          TonePlayer

	mu      sync.Mutex
	runners []*runner.Runner
	keys    []profile.Key
	current int

	outMu sync.Mutex
}

func NewDaemon(opts Options) *Daemon {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daemon{
		config:          opts.Config,
		logger:          logger,
		store:           opts.Store,
		driver:          opts.Driver,
		hotkeySource:    opts.Hotkeys,
		metricsManager:  opts.Metrics,
		terminalControl: opts.Terminal,
		player:          opts.Player,
	}
}

func (d *Daemon) Initialize() error {
	var err error
	if d.config == nil {
		d.config, err = config.LoadConfig()
		if err != nil {
			d.logger.Warn("Using default configuration", zap.Error(err))
			d.config = config.Default()
		}
	}

	if d.store == nil {
		path, err := config.GetProfilesPath(d.config)
		if err != nil {
			return fmt.Errorf("failed to resolve profiles path: %w", err)
		}
		d.store = profile.NewStore(path, d.logger)
		if err := d.store.LoadDefault(); err != nil {
			d.logger.Warn("Profiles file unreadable, starting from defaults", zap.String("path", path), zap.Error(err))
		}
	}

	if d.metricsManager == nil {
		metricsDir, err := config.GetMetricsDir()
		if err == nil {
			d.metricsManager, err = metrics.NewMetricsManager(metricsDir)
		}
		if err != nil {
			d.logger.Warn("Run statistics disabled", zap.Error(err))
		}
	}

	if d.driver == nil {
		return errors.New("no input driver")
	}
	if d.hotkeySource == nil {
		d.hotkeySource = hotkeys.NewHookSource()
	}
	if d.terminalControl == nil {
		d.terminalControl = terminal.NewControl()
	}
	if d.player == nil {
		d.player = feedback.NewPlayer(d.config.BeepEnabled())
	}

	d.hotkeyManager, err = hotkeys.NewManager(d, d.config.Hotkeys, d.hotkeySource, d.logger)
	if err != nil {
		return fmt.Errorf("invalid hotkeys: %w", err)
	}

	doc := d.store.Document()
	d.mu.Lock()
	d.current = doc.ActiveProfile()
	d.mu.Unlock()
	d.syncRunners(doc)
	return nil
}

// SelectProfile makes the profile called name current.
func (d *Daemon) SelectProfile(name string) error {
	doc := d.store.Document()
	i, err := doc.Find(name)
	if err != nil {
		return err
	}
	d.setCurrent(i)
	return nil
}

// Run serves hotkeys until ctx ends or the process is interrupted, then
// stops every runner and saves the profiles.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- d.hotkeyManager.Listen()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.store.Watch(ctx, d.handleReload); err != nil {
			d.logger.Warn("Profile file watching disabled", zap.Error(err))
		}
	}()

	d.print(
		"🎮 Button Masher started",
		fmt.Sprintf("📋 %s", d.hotkeyManager.GetHotkeyDisplay()),
		fmt.Sprintf("📁 Profiles: %s", d.store.Path()),
		"🛑 Press Ctrl+C to exit",
		"",
	)
	d.outMu.Lock()
	d.terminalControl.HideCursor()
	d.outMu.Unlock()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err = <-listenErr:
			if err != nil {
				err = fmt.Errorf("hotkey listener: %w", err)
			}
			break loop
		case <-ticker.C:
			if d.terminalControl.IsTerminal() {
				d.refreshStatus()
			}
		}
	}

	d.outMu.Lock()
	d.terminalControl.ShowCursor()
	d.outMu.Unlock()
	d.print("", "🛑 Shutting down...")
	stop()
	d.Cleanup()
	wg.Wait()
	return err
}

// Cleanup stops hotkeys and runners and saves the profiles.
func (d *Daemon) Cleanup() {
	if d.hotkeyManager != nil {
		d.hotkeyManager.Stop()
	}

	d.mu.Lock()
	runners := append([]*runner.Runner(nil), d.runners...)
	d.mu.Unlock()
	for _, r := range runners {
		r.Stop()
	}

	if d.store != nil {
		if err := d.store.Save(); err != nil {
			d.logger.Error("Failed to save profiles", zap.Error(err))
		}
	}
}

// Current returns the current profile index and its runner.
func (d *Daemon) Current() (int, *runner.Runner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current >= len(d.runners) {
		return d.current, nil
	}
	return d.current, d.runners[d.current]
}

// OnStart implements hotkeys.EventHandler
func (d *Daemon) OnStart() {
	i, r := d.Current()
	if r == nil || r.Running() {
		return
	}
	if err := r.Start(); err != nil {
		d.logger.Error("Cannot start profile", zap.Int("profile", i+1), zap.Error(err))
		d.print(fmt.Sprintf("❌ %v", err))
		return
	}
	d.player.Play(feedback.ToneStart)
	d.refreshStatus()
}

// OnStop implements hotkeys.EventHandler
func (d *Daemon) OnStop() {
	_, r := d.Current()
	if r == nil || !r.Running() {
		return
	}
	r.Stop()
	d.player.Play(feedback.ToneStop)
	d.refreshStatus()
}

// OnNextProfile implements hotkeys.EventHandler
func (d *Daemon) OnNextProfile() {
	d.mu.Lock()
	n := len(d.runners)
	next := 0
	if n > 0 {
		next = (d.current + 1) % n
	}
	d.mu.Unlock()

	d.setCurrent(next)
	d.refreshStatus()
}

// CanCapture implements hotkeys.CaptureGate: positions are only captured
// for a set with click and positions enabled.
func (d *Daemon) CanCapture() bool {
	i, setIndex := d.captureTarget()
	p, ok := d.store.Profile(i)
	if !ok || setIndex >= len(p.Sets) {
		return false
	}
	return p.Sets[setIndex].CanCapturePositions()
}

// OnCapturePosition implements hotkeys.EventHandler
func (d *Daemon) OnCapturePosition(x, y int) {
	i, setIndex := d.captureTarget()

	added := false
	err := d.store.Update(func(doc *profile.Document) error {
		if i >= len(doc.Profiles) || setIndex >= len(doc.Profiles[i].Sets) {
			return profile.ErrNotFound
		}
		added = doc.Profiles[i].Sets[setIndex].AddPosition(x, y)
		return nil
	})
	switch {
	case err != nil:
		d.logger.Warn("Position capture failed", zap.Error(err))
		return
	case !added:
		d.print(fmt.Sprintf("⚠️  Set already has %d positions", profile.MaxPositions))
		return
	}

	d.player.Play(feedback.ToneCapture)
	d.logger.Info("Position captured", zap.Int("x", x), zap.Int("y", y), zap.Int("set", setIndex+1))
	d.save()
	d.refreshStatus()
}

// captureTarget is the set a captured position goes to: the active set
// while running, otherwise the first set.
func (d *Daemon) captureTarget() (profileIndex, setIndex int) {
	i, r := d.Current()
	if r != nil {
		if st := r.Status(); st.Running {
			return i, st.SetIndex
		}
	}
	return i, 0
}

func (d *Daemon) setCurrent(i int) {
	d.mu.Lock()
	d.current = i
	d.mu.Unlock()

	if err := d.store.Update(func(doc *profile.Document) error {
		doc.LastActiveProfile = i
		return nil
	}); err != nil {
		d.logger.Warn("Failed to remember active profile", zap.Error(err))
	}
}

// syncRunners keeps one runner per profile in doc, in document order.
// Runners follow their profile by key across reorders and removals.
func (d *Daemon) syncRunners(doc *profile.Document) {
	keys := doc.Keys()

	d.mu.Lock()
	var currentKey *profile.Key
	if d.current < len(d.keys) {
		k := d.keys[d.current]
		currentKey = &k
	}
	existing := make(map[profile.Key]*runner.Runner, len(d.runners))
	for i, r := range d.runners {
		existing[d.keys[i]] = r
	}

	runners := make([]*runner.Runner, len(keys))
	for i, k := range keys {
		if r, ok := existing[k]; ok {
			runners[i] = r
			delete(existing, k)
			continue
		}
		runners[i] = d.newRunner(k)
	}
	d.runners = runners
	d.keys = keys

	if currentKey != nil {
		if i, ok := doc.Locate(*currentKey); ok {
			d.current = i
		}
	}
	if d.current >= len(keys) {
		d.current = max(0, len(keys)-1)
	}
	d.mu.Unlock()

	for k, r := range existing {
		if r.Running() {
			d.logger.Info("Stopping runner of removed profile", zap.String("profile", k.Name))
		}
		r.Stop()
	}
}

func (d *Daemon) newRunner(k profile.Key) *runner.Runner {
	source := func() (profile.Profile, bool) {
		return d.store.ProfileByKey(k)
	}
	return runner.New(k.Name, source, d.driver, runner.Options{
		Logger:   d.logger,
		OnFinish: d.onRunFinished,
	})
}

func (d *Daemon) handleReload(doc *profile.Document) {
	d.syncRunners(doc)
	d.print("🔄 Profiles reloaded from disk")
}

func (d *Daemon) onRunFinished(summary runner.Summary) {
	if d.metricsManager == nil {
		return
	}
	session, err := d.metricsManager.RecordSession(summary)
	if err != nil {
		d.logger.Warn("Failed to record run statistics", zap.Error(err))
		return
	}
	if session == nil {
		return
	}
	todayMetrics, err := d.metricsManager.GetTodayMetrics()
	if err != nil {
		todayMetrics = nil
	}
	d.print(metrics.NewStatsFormatter().FormatSessionSummaryLines(session, todayMetrics)...)
}

func (d *Daemon) save() {
	if err := d.store.Save(); err != nil {
		d.logger.Error("Failed to save profiles", zap.Error(err))
	}
}

func (d *Daemon) refreshStatus() {
	i, r := d.Current()
	if r == nil {
		return
	}
	doc := d.store.Document()
	name := r.Name()
	if i < len(doc.Profiles) {
		name = doc.Profiles[i].Name
	}
	lines := terminal.StatusLines(name, i, len(doc.Profiles), r.Status(), d.hotkeyManager.Capturing())

	d.outMu.Lock()
	defer d.outMu.Unlock()
	d.terminalControl.UpdateInPlace(lines)
}

// print writes lines above the status block.
func (d *Daemon) print(lines ...string) {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(d.terminalControl.Writer(), line)
	}
	d.terminalControl.Forget()
}
