// Package models provides domain types shared across the Maestro orchestrator.
package models

import "time"

// RunState is the lifecycle state of a run.
type RunState string

const (
	RunPending   RunState = "pending"
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
	RunTimeout   RunState = "timeout"
)

// IsTerminal reports whether the state has no outgoing transitions.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunTimeout:
		return true
	}
	return false
}

// StopReason explains why a run reached a terminal state.
type StopReason string

const (
	StopReasonStop          StopReason = "stop"
	StopReasonMaxTurns      StopReason = "max_turns"
	StopReasonMaxToolRounds StopReason = "max_tool_rounds"
	StopReasonTimeout       StopReason = "timeout"
	StopReasonCancelled     StopReason = "cancelled"
	StopReasonError         StopReason = "error"
)

// Run is a single execution of an agent against a session.
// The Runner is the only writer for the run's lifetime.
type Run struct {
	RunID       string     `json:"run_id"`
	SessionID   string     `json:"session_id"`
	Priority    int        `json:"priority"`
	State       RunState   `json:"state"`
	StopReason  StopReason `json:"stop_reason,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	CompletedAt time.Time  `json:"completed_at,omitempty"`
}

// TurnCounters tracks per-run budget consumption. Counters only increase.
type TurnCounters struct {
	Turns         int `json:"turns"`
	ToolRounds    int `json:"tool_rounds"`
	MaxTurns      int `json:"max_turns"`
	MaxToolRounds int `json:"max_tool_rounds"`
}

// RunStats accumulates per-run metrics. It is built incrementally by the
// Runner and frozen when the terminal event is emitted.
type RunStats struct {
	RunID string `json:"run_id"`

	AssemblyTime time.Duration `json:"assembly_time"`
	ModelTime    time.Duration `json:"model_time"`
	ToolTime     time.Duration `json:"tool_time"`
	WallTime     time.Duration `json:"wall_time"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	Turns        int `json:"turns"`
	ToolRounds   int `json:"tool_rounds"`
	ToolCalls    int `json:"tool_calls"`
	ToolFailures int `json:"tool_failures"`
	Retries      int `json:"retries"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunResult is the payload of a run.completed event.
type RunResult struct {
	RunID      string      `json:"run_id"`
	SessionID  string      `json:"session_id"`
	State      RunState    `json:"state"`
	StopReason StopReason  `json:"stop_reason"`
	Message    string      `json:"message,omitempty"`
	Usage      *TokenUsage `json:"usage,omitempty"`
	Stats      *RunStats   `json:"stats,omitempty"`
}

// TokenUsage reports model token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
