package hotkeys

import "sync"

// ManualSource is a Source driven by calls instead of real input. It backs
// tests and headless runs.
type ManualSource struct {
	mu       sync.Mutex
	keys     map[string]Action
	onAction func(Action)
	onClick  func(x, y int)

	ready    chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewManualSource() *ManualSource {
	return &ManualSource{
		ready: make(chan struct{}),
		stop:  make(chan struct{}),
	}
}

func (s *ManualSource) Listen(keys map[string]Action, onAction func(Action), onClick func(x, y int)) error {
	s.mu.Lock()
	s.keys, s.onAction, s.onClick = keys, onAction, onClick
	s.mu.Unlock()
	close(s.ready)

	<-s.stop
	return nil
}

func (s *ManualSource) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Ready is closed once Listen has been called.
func (s *ManualSource) Ready() <-chan struct{} {
	return s.ready
}

// Press simulates key and reports whether it is bound.
func (s *ManualSource) Press(key string) bool {
	s.mu.Lock()
	a, ok := s.keys[key]
	fn := s.onAction
	s.mu.Unlock()
	if !ok || fn == nil {
		return false
	}
	fn(a)
	return true
}

// Click simulates a left click at (x, y).
func (s *ManualSource) Click(x, y int) {
	s.mu.Lock()
	fn := s.onClick
	s.mu.Unlock()
	if fn != nil {
		fn(x, y)
	}
}
