// Package input turns profile actions into key and mouse events.
package input

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultSettle is how long the pointer rests on a position before clicking.
const DefaultSettle = 10 * time.Millisecond

var ErrUnknownKey = errors.New("unknown key")

// Driver injects input into the desktop session.
type Driver interface {
	KeyTap(key string) error
	Move(x, y int)
	Click()
	Location() (x, y int)
}

var specialKeys = map[string]struct{}{
	"enter": {}, "space": {}, "tab": {},
	"shift": {}, "ctrl": {}, "alt": {},
	"esc": {}, "up": {}, "down": {},
	"left": {}, "right": {},
	"f1": {}, "f2": {}, "f3": {}, "f4": {}, "f5": {}, "f6": {},
	"f7": {}, "f8": {}, "f9": {}, "f10": {}, "f11": {}, "f12": {},
}

// NormalizeKey returns the driver name for key text: one of the special key
// names or a single character. Empty text normalizes to "" without error.
func NormalizeKey(text string) (string, error) {
	k := strings.ToLower(strings.TrimSpace(text))
	if k == "" {
		return "", nil
	}
	if _, ok := specialKeys[k]; ok {
		return k, nil
	}
	if len([]rune(k)) == 1 {
		return k, nil
	}
	return "", fmt.Errorf("%q: %w", text, ErrUnknownKey)
}

// PressKey taps key. Unknown names are not sent and return ErrUnknownKey.
func PressKey(d Driver, text string) error {
	key, err := NormalizeKey(text)
	if err != nil || key == "" {
		return err
	}
	return d.KeyTap(key)
}

// MoveAndClick moves the pointer to (x, y), waits settle and left clicks.
func MoveAndClick(d Driver, x, y int, settle time.Duration) {
	d.Move(x, y)
	if settle > 0 {
		time.Sleep(settle)
	}
	d.Click()
}

// EventKind classifies a Recorder entry.
type EventKind string

const (
	EventKey   EventKind = "key"
	EventMove  EventKind = "move"
	EventClick EventKind = "click"
)

type Event struct {
	Kind EventKind
	Key  string
	X, Y int
}

// Recorder is a Driver that records what it was asked to do. The pointer
// position follows Move calls.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	x, y   int
	// KeyErr, when set, is returned by every KeyTap.
	KeyErr error
}

func NewRecorder(x, y int) *Recorder {
	return &Recorder{x: x, y: y}
}

func (r *Recorder) KeyTap(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.KeyErr != nil {
		return r.KeyErr
	}
	r.events = append(r.events, Event{Kind: EventKey, Key: key})
	return nil
}

func (r *Recorder) Move(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.x, r.y = x, y
	r.events = append(r.events, Event{Kind: EventMove, X: x, Y: y})
}

func (r *Recorder) Click() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: EventClick, X: r.x, Y: r.y})
}

func (r *Recorder) Location() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Keys returns the recorded key taps in order.
func (r *Recorder) Keys() []string {
	var keys []string
	for _, ev := range r.Events() {
		if ev.Kind == EventKey {
			keys = append(keys, ev.Key)
		}
	}
	return keys
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
