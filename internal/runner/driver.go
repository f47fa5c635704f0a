package runner

import "github.com/maestro-agents/maestro/pkg/models"

// TurnDriver tracks turn and tool-round consumption against the run's
// budgets. Budgets are checked before a step, so exhaustion is reported
// without attempting the step. It is used by a single goroutine and needs
// no locking.
type TurnDriver struct {
	turns         int
	toolRounds    int
	maxTurns      int
	maxToolRounds int
}

// NewTurnDriver creates a driver with the given budgets. Non-positive
// budgets mean unlimited.
func NewTurnDriver(maxTurns, maxToolRounds int) *TurnDriver {
	return &TurnDriver{maxTurns: maxTurns, maxToolRounds: maxToolRounds}
}

// CanContinue reports whether another turn may start; when it cannot, the
// stop reason names the exhausted budget.
func (d *TurnDriver) CanContinue() (bool, models.StopReason) {
	if d.maxTurns > 0 && d.turns >= d.maxTurns {
		return false, models.StopReasonMaxTurns
	}
	if d.maxToolRounds > 0 && d.toolRounds >= d.maxToolRounds {
		return false, models.StopReasonMaxToolRounds
	}
	return true, ""
}

// StartTurn consumes one turn. Call before the model call.
func (d *TurnDriver) StartTurn() {
	d.turns++
}

// CanStartToolRound reports whether another tool round fits the budget.
func (d *TurnDriver) CanStartToolRound() bool {
	return d.maxToolRounds <= 0 || d.toolRounds < d.maxToolRounds
}

// StartToolRound consumes one tool round. Call before executing the
// round's tool calls.
func (d *TurnDriver) StartToolRound() {
	d.toolRounds++
}

// Counters returns a snapshot of consumption and budgets.
func (d *TurnDriver) Counters() models.TurnCounters {
	return models.TurnCounters{
		Turns:         d.turns,
		ToolRounds:    d.toolRounds,
		MaxTurns:      d.maxTurns,
		MaxToolRounds: d.maxToolRounds,
	}
}
