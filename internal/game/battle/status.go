package battle

import (
	"fmt"
	"time"
)

// Status is where a battle is in its lifecycle.
type Status int

const (
	// StatusPending - built but not yet fought
	StatusPending Status = iota

	// StatusFighting - the driver loop is executing steps
	StatusFighting

	// StatusAwaitingInput - suspended until a player decides casualties
	StatusAwaitingInput

	// StatusEnded - an outcome has been produced
	StatusEnded

	// StatusFailed - an internal consistency error stopped the battle
	StatusFailed
)

// String returns the string representation of a Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusFighting:
		return "Fighting"
	case StatusAwaitingInput:
		return "AwaitingInput"
	case StatusEnded:
		return "Ended"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal returns true if the status can never change again
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// AllowedTransitions returns the valid statuses this status can transition to
func (s Status) AllowedTransitions() []Status {
	switch s {
	case StatusPending:
		return []Status{StatusFighting, StatusFailed}
	case StatusFighting:
		return []Status{StatusAwaitingInput, StatusEnded, StatusFailed}
	case StatusAwaitingInput:
		return []Status{StatusFighting, StatusFailed}
	default:
		return []Status{}
	}
}

// CanTransitionTo checks if a transition from this status to the target is allowed
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range s.AllowedTransitions() {
		if allowed == target {
			return true
		}
	}
	return false
}

// Transition represents a status change in the battle history
type Transition struct {
	From      Status
	To        Status
	Timestamp time.Time
	Reason    string
}
