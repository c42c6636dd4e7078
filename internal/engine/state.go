package engine

// State is an operation's position in its lifecycle:
//
//	Pending → Probing → Planning → Executing → Completed | Failed
//
// A probe-only operation goes from Probing straight to Completed.
type State int

const (
	StatePending State = iota
	StateProbing
	StatePlanning
	StateExecuting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateProbing:
		return "probing"
	case StatePlanning:
		return "planning"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// canTransition reports whether from → to is a legal step.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StatePending:
		return to == StateProbing
	case StateProbing:
		return to == StatePlanning || to == StateCompleted
	case StatePlanning:
		return to == StateExecuting
	case StateExecuting:
		return to == StateCompleted
	}
	return false
}
