package app

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buttonmasher/masher/internal/config"
	"github.com/buttonmasher/masher/internal/feedback"
	"github.com/buttonmasher/masher/internal/hotkeys"
	"github.com/buttonmasher/masher/internal/input"
	"github.com/buttonmasher/masher/internal/metrics"
	"github.com/buttonmasher/masher/internal/profile"
	"github.com/buttonmasher/masher/internal/terminal"
)

type recordedTones struct {
	mu    sync.Mutex
	tones []feedback.Tone
}

func (r *recordedTones) Play(tone feedback.Tone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tones = append(r.tones, tone)
}

func (r *recordedTones) played() []feedback.Tone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tones)
}

type harness struct {
	daemon  *Daemon
	tones   *recordedTones
	store   *profile.Store
	driver  *input.Recorder
	source  *hotkeys.ManualSource
	metrics *metrics.MetricsManager
	out     *bytes.Buffer
	path    string
}

func newHarness(t *testing.T, edit func(doc *profile.Document)) *harness {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, profile.DefaultFileName)

	store := profile.NewStore(path, nil)
	require.NoError(t, store.LoadDefault())
	if edit != nil {
		require.NoError(t, store.Update(func(doc *profile.Document) error {
			edit(doc)
			return nil
		}))
	}

	mm, err := metrics.NewMetricsManager(filepath.Join(dir, "metrics"))
	require.NoError(t, err)

	h := &harness{
		store:   store,
		driver:  input.NewRecorder(0, 0),
		source:  hotkeys.NewManualSource(),
		metrics: mm,
		out:     &bytes.Buffer{},
		path:    path,
		tones:   &recordedTones{},
	}
	h.daemon = NewDaemon(Options{
		Config:   config.Default(),
		Store:    store,
		Driver:   h.driver,
		Hotkeys:  h.source,
		Metrics:  mm,
		Terminal: terminal.NewControlWriter(h.out, false),
		Player:   h.tones,
	})
	require.NoError(t, h.daemon.Initialize())
	t.Cleanup(h.daemon.Cleanup)
	return h
}

func fastKeys(doc *profile.Document, keys string) {
	for i := range doc.Profiles {
		for j := range doc.Profiles[i].Sets {
			s := &doc.Profiles[i].Sets[j]
			s.Keys = keys
			s.InnerMS = 1
			s.RepeatMS = 1
		}
	}
}

func TestStartStopRecordsRun(t *testing.T) {
	h := newHarness(t, func(doc *profile.Document) { fastKeys(doc, "a") })

	h.daemon.OnStart()
	_, r := h.daemon.Current()
	require.True(t, r.Running())
	require.Eventually(t, func() bool { return len(h.driver.Keys()) >= 3 }, 2*time.Second, time.Millisecond)

	h.daemon.OnStop()
	assert.False(t, r.Running())

	today, err := h.metrics.GetTodayMetrics()
	require.NoError(t, err)
	require.Equal(t, 1, today.SessionCount)
	assert.Equal(t, "Profile 1", today.Sessions[0].Profile)
	assert.Equal(t, int64(len(h.driver.Keys())), today.TotalKeys)
	assert.Contains(t, h.out.String(), "Profile 1 ran for")
}

func TestNextProfileCyclesAndIsRemembered(t *testing.T) {
	h := newHarness(t, func(doc *profile.Document) {
		doc.AddProfile("Second")
	})

	i, _ := h.daemon.Current()
	assert.Equal(t, 0, i)

	h.daemon.OnNextProfile()
	i, r := h.daemon.Current()
	assert.Equal(t, 1, i)
	assert.Equal(t, "Second", r.Name())
	assert.Equal(t, 1, h.store.Document().LastActiveProfile)

	h.daemon.OnNextProfile()
	i, _ = h.daemon.Current()
	assert.Equal(t, 0, i)
}

func TestSelectProfile(t *testing.T) {
	h := newHarness(t, func(doc *profile.Document) {
		doc.AddProfile("Fishing")
	})

	require.NoError(t, h.daemon.SelectProfile("fishing"))
	i, _ := h.daemon.Current()
	assert.Equal(t, 1, i)
	assert.ErrorIs(t, h.daemon.SelectProfile("nope"), profile.ErrNotFound)
}

func TestCaptureThroughHotkeys(t *testing.T) {
	h := newHarness(t, nil)
	assert.False(t, h.daemon.CanCapture(), "click and positions are off by default")

	require.NoError(t, h.store.Update(func(doc *profile.Document) error {
		doc.Profiles[0].Sets[0].Click.Enabled = true
		doc.Profiles[0].Sets[0].Click.PositionsEnabled = true
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- h.daemon.hotkeyManager.Listen() }()
	<-h.source.Ready()

	h.source.Click(1, 1)
	require.True(t, h.source.Press("f7"))
	h.source.Click(640, 480)
	h.daemon.hotkeyManager.Stop()
	require.NoError(t, <-done)

	positions := h.store.Document().Profiles[0].Sets[0].Click.Positions
	require.Len(t, positions, 1)
	assert.Equal(t, profile.ClickPosition{Enabled: true, X: 640, Y: 480}, positions[0])

	saved, err := profile.ReadFile(h.path)
	require.NoError(t, err)
	assert.Len(t, saved.Profiles[0].Sets[0].Click.Positions, 1)
}

func TestCaptureStopsAtLimit(t *testing.T) {
	h := newHarness(t, func(doc *profile.Document) {
		s := &doc.Profiles[0].Sets[0]
		s.Click.Enabled = true
		s.Click.PositionsEnabled = true
		for i := 0; i < profile.MaxPositions; i++ {
			s.AddPosition(i, i)
		}
	})

	h.daemon.OnCapturePosition(9, 9)
	assert.Len(t, h.store.Document().Profiles[0].Sets[0].Click.Positions, profile.MaxPositions)
	assert.Contains(t, h.out.String(), "already has 8 positions")
}

func TestReloadShrinksRunners(t *testing.T) {
	h := newHarness(t, func(doc *profile.Document) {
		doc.AddProfile("Second")
		doc.LastActiveProfile = 1
		fastKeys(doc, "b")
	})
	require.NoError(t, h.daemon.SelectProfile("Second"))
	h.daemon.OnStart()
	_, r := h.daemon.Current()
	require.True(t, r.Running())

	doc := profile.NewDocument()
	h.store.Replace(doc)
	h.daemon.handleReload(h.store.Document())

	assert.False(t, r.Running(), "runner of a removed profile is stopped")
	i, cur := h.daemon.Current()
	assert.Equal(t, 0, i)
	assert.NotNil(t, cur)
}

func TestRunSavesOnShutdown(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Update(func(doc *profile.Document) error {
		doc.Profiles[0].Name = "Renamed"
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.daemon.Run(ctx) }()
	<-h.source.Ready()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not shut down")
	}

	saved, err := profile.ReadFile(h.path)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", saved.Profiles[0].Name)
	assert.Contains(t, h.out.String(), "Shutting down")
}

func TestStartWhileRunningIsSilent(t *testing.T) {
	h := newHarness(t, func(doc *profile.Document) { fastKeys(doc, "a") })

	h.daemon.OnStart()
	h.daemon.OnStart()
	h.daemon.OnStop()
	h.daemon.OnStop()

	assert.Equal(t, []feedback.Tone{feedback.ToneStart, feedback.ToneStop}, h.tones.played())
}

func TestReloadKeepsRunnersWithTheirProfiles(t *testing.T) {
	h := newHarness(t, func(doc *profile.Document) {
		doc.AddProfile("Second")
		doc.AddProfile("Third")
		fastKeys(doc, "a")
		doc.Profiles[1].Sets[0].Keys = "b"
		doc.Profiles[2].Sets[0].Keys = "c"
	})
	require.NoError(t, h.daemon.SelectProfile("Second"))
	h.daemon.OnStart()
	_, second := h.daemon.Current()
	require.True(t, second.Running())
	require.Eventually(t, func() bool { return len(h.driver.Keys()) >= 2 }, 2*time.Second, time.Millisecond)

	doc := h.store.Document()
	require.NoError(t, doc.DeleteProfile(0))
	h.store.Replace(doc)
	h.daemon.handleReload(h.store.Document())

	i, cur := h.daemon.Current()
	assert.Equal(t, 0, i)
	assert.Same(t, second, cur)
	assert.True(t, second.Running())

	before := len(h.driver.Keys())
	require.Eventually(t, func() bool { return len(h.driver.Keys()) >= before+5 }, 2*time.Second, time.Millisecond)
	h.daemon.OnStop()

	assert.NotContains(t, h.driver.Keys(), "c")
	assert.NotContains(t, h.driver.Keys(), "a")

	h.daemon.OnNextProfile()
	_, third := h.daemon.Current()
	assert.Equal(t, "Third", third.Name())
	assert.False(t, third.Running())
}

func TestRunHidesCursorOnTerminal(t *testing.T) {
	h := newHarness(t, nil)
	h.daemon.terminalControl = terminal.NewControlWriter(h.out, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.daemon.Run(ctx) }()
	<-h.source.Ready()
	cancel()
	require.NoError(t, <-done)

	out := h.out.String()
	hidden := strings.Index(out, "\033[?25l")
	shown := strings.Index(out, "\033[?25h")
	require.GreaterOrEqual(t, hidden, 0)
	assert.Greater(t, shown, hidden)
}
