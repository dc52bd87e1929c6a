// Package booking submits bookings for the selected slot.
package booking

// State represents the submission state.
type State string

const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// IsTerminal reports whether the state holds a result to consume.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// FSM holds the allowed submission transitions. Reset to idle is always
// allowed and is not listed.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates a new FSM with predefined transitions.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateIdle:      {StatePending},
			StatePending:   {StateSucceeded, StateFailed},
			StateFailed:    {StatePending},
			StateSucceeded: {},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	if to == StateIdle {
		return true
	}
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
