package models

import "time"

// AgentEvent is the unified event model for a run's stream.
//
// Design principles:
//   - Single Type discriminator with optional payload pointers
//   - Per-run total ordering; events for one run never interleave with
//     another run's stream
type AgentEvent struct {
	Type  AgentEventType `json:"type"`
	Time  time.Time      `json:"time"`
	RunID string         `json:"run_id,omitempty"`

	// Exactly one payload should be non-nil for a given Type.
	Run     *RunEventPayload     `json:"run,omitempty"`
	Context *ContextEventPayload `json:"context,omitempty"`
	Model   *ModelEventPayload   `json:"model,omitempty"`
	Tool    *ToolEventPayload    `json:"tool,omitempty"`
}

// AgentEventType identifies the kind of agent event.
type AgentEventType string

const (
	// Run lifecycle
	EventRunQueued    AgentEventType = "run.queued"
	EventRunStarted   AgentEventType = "run.started"
	EventRunCompleted AgentEventType = "run.completed"
	EventRunError     AgentEventType = "run.error"
	EventRunCancelled AgentEventType = "run.cancelled"

	// Context assembly
	EventContextStart    AgentEventType = "context.start"
	EventContextComplete AgentEventType = "context.complete"

	// Model streaming
	EventModelStart    AgentEventType = "model.start"
	EventModelDelta    AgentEventType = "model.delta"
	EventModelThinking AgentEventType = "model.thinking"
	EventModelComplete AgentEventType = "model.complete"

	// Tool execution
	EventToolStart    AgentEventType = "tool.start"
	EventToolComplete AgentEventType = "tool.complete"
	EventToolError    AgentEventType = "tool.error"
)

// IsTerminal reports whether the event ends a run's stream.
func (t AgentEventType) IsTerminal() bool {
	switch t {
	case EventRunCompleted, EventRunError, EventRunCancelled:
		return true
	}
	return false
}

// RunEventPayload carries run lifecycle details.
type RunEventPayload struct {
	Position int        `json:"position,omitempty"` // run.queued
	Result   *RunResult `json:"result,omitempty"`   // run.completed
	Error    string     `json:"error,omitempty"`    // run.error
	Reason   string     `json:"reason,omitempty"`   // run.cancelled
}

// ContextEventPayload carries the assembled context on context.complete.
type ContextEventPayload struct {
	Context *AssembledContext `json:"context,omitempty"`
}

// ModelEventPayload carries model streaming deltas and the final response.
type ModelEventPayload struct {
	Delta    string         `json:"delta,omitempty"`
	Response *ModelResponse `json:"response,omitempty"`
}

// ToolEventPayload carries tool call progress.
type ToolEventPayload struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     *ToolResult    `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}
