package runner

import "github.com/maestro-agents/maestro/pkg/models"

// ParseToolCalls extracts the tool calls of a model response. A response
// without tool calls yields an empty list.
func ParseToolCalls(resp *models.ModelResponse) []models.ToolCall {
	if resp == nil || len(resp.ToolCalls) == 0 {
		return nil
	}
	calls := make([]models.ToolCall, len(resp.ToolCalls))
	copy(calls, resp.ToolCalls)
	return calls
}

// ValidateToolCalls checks a single response's tool calls: non-empty id
// and name, arguments present as a mapping, no duplicate ids. A failure
// aborts the turn's tool round.
func ValidateToolCalls(calls []models.ToolCall) error {
	seen := make(map[string]struct{}, len(calls))
	for i, call := range calls {
		if call.ID == "" {
			return NewError(KindInvalidRequest, "tool call %d has empty id", i)
		}
		if call.Name == "" {
			return NewError(KindInvalidRequest, "tool call %q has empty name", call.ID)
		}
		if call.Arguments == nil {
			return NewError(KindInvalidRequest, "tool call %q has no arguments mapping", call.ID)
		}
		if _, dup := seen[call.ID]; dup {
			return NewError(KindInvalidRequest, "duplicate tool call id %q", call.ID)
		}
		seen[call.ID] = struct{}{}
	}
	return nil
}
