// Package hotkeys maps global key presses and mouse clicks onto runner
// control actions.
package hotkeys

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

type EventHandler interface {
	OnStart()
	OnStop()
	OnCapturePosition(x, y int)
	OnNextProfile()
}

// CaptureGate is implemented by handlers that only accept captured
// positions in some states. Without it capture is always allowed.
type CaptureGate interface {
	CanCapture() bool
}

type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
	ActionCapture
	ActionNextProfile
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionCapture:
		return "capture"
	case ActionNextProfile:
		return "next profile"
	default:
		return "none"
	}
}

var ErrDuplicateKey = errors.New("key bound to more than one action")

// Bindings names the key for each action.
type Bindings struct {
	Start   string `json:"start"`
	Stop    string `json:"stop"`
	Capture string `json:"capture"`
	Next    string `json:"next_profile"`
}

func DefaultBindings() Bindings {
	return Bindings{Start: "f5", Stop: "f6", Capture: "f7", Next: "f8"}
}

// Keys returns the key to action table. Empty bindings fall back to the
// defaults; a key used twice is an error.
func (b Bindings) Keys() (map[string]Action, error) {
	def := DefaultBindings()
	pairs := []struct {
		key, fallback string
		action        Action
	}{
		{b.Start, def.Start, ActionStart},
		{b.Stop, def.Stop, ActionStop},
		{b.Capture, def.Capture, ActionCapture},
		{b.Next, def.Next, ActionNextProfile},
	}

	keys := make(map[string]Action, len(pairs))
	for _, p := range pairs {
		key := strings.ToLower(strings.TrimSpace(p.key))
		if key == "" {
			key = p.fallback
		}
		if prev, ok := keys[key]; ok {
			return nil, fmt.Errorf("%s (%s, %s): %w", key, prev, p.action, ErrDuplicateKey)
		}
		keys[key] = p.action
	}
	return keys, nil
}

// Source delivers raw hotkey and click events. Listen blocks until Stop.
type Source interface {
	Listen(keys map[string]Action, onAction func(Action), onClick func(x, y int)) error
	Stop()
}

type Manager struct {
	handler  EventHandler
	bindings Bindings
	keys     map[string]Action
	source   Source
	logger   *zap.Logger

	armed atomic.Bool
}

func NewManager(handler EventHandler, bindings Bindings, source Source, logger *zap.Logger) (*Manager, error) {
	keys, err := bindings.Keys()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		handler:  handler,
		bindings: bindings,
		keys:     keys,
		source:   source,
		logger:   logger,
	}, nil
}

// Listen dispatches events from the source until Stop is called.
func (m *Manager) Listen() error {
	m.logger.Info("Hotkeys active", zap.String("keys", m.GetHotkeyDisplay()))
	return m.source.Listen(m.keys, m.Dispatch, m.Click)
}

func (m *Manager) Stop() {
	m.source.Stop()
}

// Dispatch runs the handler for a.
func (m *Manager) Dispatch(a Action) {
	if m.handler == nil {
		return
	}
	m.logger.Debug("Hotkey", zap.Stringer("action", a))

	switch a {
	case ActionStart:
		m.handler.OnStart()
	case ActionStop:
		m.armed.Store(false)
		m.handler.OnStop()
	case ActionCapture:
		if gate, ok := m.handler.(CaptureGate); ok && !gate.CanCapture() {
			m.logger.Info("Position capture needs click and positions enabled on the current set")
			return
		}
		m.armed.Store(true)
		m.logger.Info("Left click to capture a position")
	case ActionNextProfile:
		m.armed.Store(false)
		m.handler.OnNextProfile()
	}
}

// Click delivers a left click. Only the first click after the capture key
// is forwarded.
func (m *Manager) Click(x, y int) {
	if !m.armed.CompareAndSwap(true, false) {
		return
	}
	if m.handler != nil {
		m.handler.OnCapturePosition(x, y)
	}
}

// Capturing reports whether the next click will be captured.
func (m *Manager) Capturing() bool {
	return m.armed.Load()
}

func (m *Manager) GetHotkeyDisplay() string {
	names := map[Action]string{}
	for key, a := range m.keys {
		names[a] = strings.ToUpper(key)
	}
	return fmt.Sprintf("%s start, %s stop, %s capture, %s next profile",
		names[ActionStart], names[ActionStop], names[ActionCapture], names[ActionNextProfile])
}
