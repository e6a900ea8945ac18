package editor

import "sync"

// Dispatcher owns a State and applies actions to it.
type Dispatcher interface {
	Dispatch(a Action) State
	State() State
}

// Local is a standalone Dispatcher.
type Local struct {
	mu sync.Mutex
	s  State
}

// NewLocal creates a dispatcher starting at s.
func NewLocal(s State) *Local {
	return &Local{s: s}
}

func (l *Local) Dispatch(a Action) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.s = Reduce(l.s, a)
	return l.s
}

func (l *Local) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s
}
