package assembler

import (
	"strings"

	"github.com/maestro-agents/maestro/pkg/models"
)

// roleFor maps stored session-message kinds to model roles. Unknown kinds
// are dropped.
func roleFor(msg *models.Message) (models.Role, bool) {
	switch models.MessageType(msg.Type) {
	case models.MessageToolCall, models.MessageCompaction:
		return models.RoleAssistant, true
	case models.MessageToolResult:
		return models.RoleUser, true
	}
	switch msg.Role {
	case "system":
		return models.RoleSystem, true
	case "user":
		return models.RoleUser, true
	case "assistant":
		return models.RoleAssistant, true
	}
	return "", false
}

// Transform shapes session messages for the model: map kinds to roles,
// merge consecutive same-role messages, and enforce role alternation.
func Transform(msgs []*models.Message) []models.ModelMessage {
	shaped := make([]models.ModelMessage, 0, len(msgs))
	for _, msg := range msgs {
		role, ok := roleFor(msg)
		if !ok {
			continue
		}
		mm := models.ModelMessage{Role: role, Content: msg.Content}
		if len(msg.Blocks) > 0 {
			mm.Blocks = append(mm.Blocks, msg.Blocks...)
		}
		for _, tc := range msg.ToolCalls {
			mm.Blocks = append(mm.Blocks, models.ContentBlock{
				Type:       "tool_use",
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
				Arguments:  tc.Arguments,
			})
		}
		for _, tr := range msg.ToolResults {
			content := tr.Content
			if tr.Error != "" {
				content = tr.Error
			}
			mm.Blocks = append(mm.Blocks, models.ContentBlock{
				Type:       "tool_result",
				ToolCallID: tr.ToolCallID,
				Content:    content,
			})
		}
		shaped = append(shaped, mm)
	}
	return mergeConsecutive(shaped)
}

// mergeConsecutive coalesces runs of same-role messages. String contents
// are joined with a blank line; mixed content becomes concatenated block
// lists.
func mergeConsecutive(msgs []models.ModelMessage) []models.ModelMessage {
	if len(msgs) < 2 {
		return msgs
	}
	out := make([]models.ModelMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(out) == 0 || out[len(out)-1].Role != m.Role {
			out = append(out, m)
			continue
		}
		prev := &out[len(out)-1]
		if len(prev.Blocks) == 0 && len(m.Blocks) == 0 {
			switch {
			case prev.Content == "":
				prev.Content = m.Content
			case m.Content != "":
				prev.Content = prev.Content + "\n\n" + m.Content
			}
			continue
		}
		// Mixed content: fold string contents into text blocks and
		// concatenate.
		if prev.Content != "" {
			prev.Blocks = append([]models.ContentBlock{{Type: "text", Text: prev.Content}}, prev.Blocks...)
			prev.Content = ""
		}
		if m.Content != "" {
			prev.Blocks = append(prev.Blocks, models.ContentBlock{Type: "text", Text: m.Content})
		}
		prev.Blocks = append(prev.Blocks, m.Blocks...)
	}
	return out
}

// ToolUses returns the tool_use blocks of a message.
func ToolUses(m models.ModelMessage) []models.ContentBlock {
	var uses []models.ContentBlock
	for _, b := range m.Blocks {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

// ToolResults returns the tool_result blocks of a message.
func ToolResults(m models.ModelMessage) []models.ContentBlock {
	var results []models.ContentBlock
	for _, b := range m.Blocks {
		if b.Type == "tool_result" {
			results = append(results, b)
		}
	}
	return results
}

// ResultForCall finds the tool_result block answering callID, if any.
func ResultForCall(msgs []models.ModelMessage, callID string) (models.ContentBlock, bool) {
	for _, m := range msgs {
		for _, b := range m.Blocks {
			if b.Type == "tool_result" && b.ToolCallID == callID {
				return b, true
			}
		}
	}
	return models.ContentBlock{}, false
}

// FlattenText extracts the plain text of a model message, joining text
// blocks with newlines.
func FlattenText(m models.ModelMessage) string {
	if len(m.Blocks) == 0 {
		return m.Content
	}
	parts := make([]string, 0, len(m.Blocks)+1)
	if m.Content != "" {
		parts = append(parts, m.Content)
	}
	for _, b := range m.Blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
