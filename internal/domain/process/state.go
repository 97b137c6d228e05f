package process

import "sync"

// State is a position in a process's lifecycle.
type State int

const (
	StateSpawned State = iota
	StateRunning
	StateExited
	StateTerminated
	StateSpawnFailed
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateTerminated:
		return "terminated"
	case StateSpawnFailed:
		return "spawn_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateExited || s == StateTerminated || s == StateSpawnFailed
}

var transitions = map[State][]State{
	StateSpawned: {StateRunning, StateSpawnFailed},
	StateRunning: {StateExited, StateTerminated},
}

// Lifecycle tracks one process's state. Illegal transitions are ignored.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// NewLifecycle starts a lifecycle in the spawned state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateSpawned}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Transition moves to next if that edge exists and reports whether it did.
func (l *Lifecycle) Transition(next State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, allowed := range transitions[l.state] {
		if allowed == next {
			l.state = next
			return true
		}
	}
	return false
}
