package runner

import (
	"context"

	"github.com/maestro-agents/maestro/pkg/models"
)

// ExecContext identifies one tool invocation and carries its grants. The
// context handed to Execute is bound to the run's cancel signal.
type ExecContext struct {
	SessionID   string
	UserID      string
	RunID       string
	ToolCallID  string
	Permissions []string
}

// ToolOutput is what a tool execution produced. A populated Error marks a
// failed call; the run continues with the error folded back into the
// conversation.
type ToolOutput struct {
	Content string
	Data    any
	Error   string
}

// ToolExecutor executes tool calls and advertises the tools it provides.
// Execute returns an error only for infrastructure failures; tool-level
// failures are reported through ToolOutput.Error.
type ToolExecutor interface {
	Tools() []models.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any, ec ExecContext) (*ToolOutput, error)
}
