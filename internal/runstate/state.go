// Package runstate enumerates the legal run state transitions.
//
// The machine is a pure function over the state enum; the Runner owns the
// current state variable.
package runstate

import (
	"fmt"

	"github.com/maestro-agents/maestro/pkg/models"
)

// ErrInvalidTransition is returned by Transition for illegal edges.
// It is always wrapped with the offending states.
var ErrInvalidTransition = fmt.Errorf("runstate: invalid transition")

var transitions = map[models.RunState][]models.RunState{
	models.RunPending: {models.RunQueued, models.RunFailed, models.RunCancelled},
	models.RunQueued:  {models.RunRunning, models.RunCancelled, models.RunTimeout},
	models.RunRunning: {models.RunCompleted, models.RunFailed, models.RunCancelled, models.RunTimeout},
}

// CanTransition reports whether to is in the allow-list of from.
func CanTransition(from, to models.RunState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to if the edge from->to is legal.
func Transition(from, to models.RunState) (models.RunState, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// Next returns the allowed successor states of from. Terminal states have
// none.
func Next(from models.RunState) []models.RunState {
	next := transitions[from]
	out := make([]models.RunState, len(next))
	copy(out, next)
	return out
}
