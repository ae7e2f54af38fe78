package hotkeys

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// HookSource listens to the global keyboard and mouse through gohook.
// A HookSource serves a single Listen; once stopped it stays stopped.
type HookSource struct {
	mu      sync.Mutex
	running bool
	stopped bool
}

func NewHookSource() *HookSource {
	return &HookSource{}
}

func (h *HookSource) Listen(keys map[string]Action, onAction func(Action), onClick func(x, y int)) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}

	for key, action := range keys {
		action := action
		hook.Register(hook.KeyDown, []string{key}, func(hook.Event) {
			onAction(action)
		})
	}
	hook.Register(hook.MouseDown, []string{}, func(e hook.Event) {
		if e.Button == hook.MouseMap["left"] {
			onClick(int(e.X), int(e.Y))
		}
	})

	s := hook.Start()
	h.running = true
	h.mu.Unlock()

	<-hook.Process(s)
	return nil
}

func (h *HookSource) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	if !h.running {
		return
	}
	h.running = false
	hook.End()
}
