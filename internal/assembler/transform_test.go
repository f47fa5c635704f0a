package assembler

import (
	"testing"

	"github.com/maestro-agents/maestro/pkg/models"
)

func TestTransformRoleMapping(t *testing.T) {
	msgs := []*models.Message{
		{Role: "system", Type: models.MessageText, Content: "be nice"},
		{Role: "user", Type: models.MessageText, Content: "hi"},
		{Role: "assistant", Type: models.MessageText, Content: "hello"},
		{Role: "assistant", Type: models.MessageToolCall, ToolCalls: []models.ToolCall{{ID: "t1", Name: "add", Arguments: map[string]any{}}}},
		{Role: "user", Type: models.MessageToolResult, ToolResults: []models.ToolResult{{ToolCallID: "t1", Content: "3"}}},
		{Role: "ghost", Type: "unknown", Content: "dropped"},
	}
	out := Transform(msgs)

	wantRoles := []models.Role{models.RoleSystem, models.RoleUser, models.RoleAssistant, models.RoleUser}
	if len(out) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d: %+v", len(out), len(wantRoles), out)
	}
	for i, want := range wantRoles {
		if out[i].Role != want {
			t.Errorf("message %d role = %s, want %s", i, out[i].Role, want)
		}
	}

	// assistant text + tool_call merged into one assistant message with a
	// tool_use block.
	uses := ToolUses(out[2])
	if len(uses) != 1 || uses[0].ToolCallID != "t1" || uses[0].ToolName != "add" {
		t.Errorf("tool uses = %+v", uses)
	}
	results := ToolResults(out[3])
	if len(results) != 1 || results[0].Content != "3" {
		t.Errorf("tool results = %+v", results)
	}
}

func TestMergeConsecutiveStringContents(t *testing.T) {
	out := Transform([]*models.Message{
		{Role: "user", Type: models.MessageText, Content: "first"},
		{Role: "user", Type: models.MessageText, Content: "second"},
		{Role: "assistant", Type: models.MessageText, Content: "reply"},
	})
	if len(out) != 2 {
		t.Fatalf("got %d messages, want 2", len(out))
	}
	if out[0].Content != "first\n\nsecond" {
		t.Errorf("merged content = %q", out[0].Content)
	}
}

func TestMergeMixedContentBecomesBlocks(t *testing.T) {
	out := Transform([]*models.Message{
		{Role: "user", Type: models.MessageText, Content: "look at this"},
		{Role: "user", Type: models.MessageText, Blocks: []models.ContentBlock{{Type: "image", Data: []byte{1, 2}}}},
	})
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1", len(out))
	}
	m := out[0]
	if m.Content != "" {
		t.Errorf("merged mixed message kept string content %q", m.Content)
	}
	if len(m.Blocks) != 2 || m.Blocks[0].Type != "text" || m.Blocks[1].Type != "image" {
		t.Errorf("blocks = %+v", m.Blocks)
	}
}

func TestResultForCall(t *testing.T) {
	out := Transform([]*models.Message{
		{Role: "assistant", Type: models.MessageToolCall, ToolCalls: []models.ToolCall{{ID: "t9", Name: "x", Arguments: map[string]any{}}}},
		{Role: "user", Type: models.MessageToolResult, ToolResults: []models.ToolResult{{ToolCallID: "t9", Content: "ok"}}},
	})
	block, found := ResultForCall(out, "t9")
	if !found || block.Content != "ok" {
		t.Errorf("ResultForCall = %+v %v", block, found)
	}
	if _, found := ResultForCall(out, "missing"); found {
		t.Error("found a result for an unknown call id")
	}
}

func TestToolResultErrorFoldsIntoContent(t *testing.T) {
	out := Transform([]*models.Message{
		{Role: "user", Type: models.MessageToolResult, ToolResults: []models.ToolResult{{ToolCallID: "t1", Error: "boom"}}},
	})
	if len(out) != 1 {
		t.Fatalf("got %d messages", len(out))
	}
	results := ToolResults(out[0])
	if len(results) != 1 || results[0].Content != "boom" {
		t.Errorf("error result = %+v", results)
	}
}

func TestFlattenText(t *testing.T) {
	m := models.ModelMessage{
		Content: "head",
		Blocks: []models.ContentBlock{
			{Type: "text", Text: "body"},
			{Type: "image", Data: []byte{1}},
		},
	}
	if got := FlattenText(m); got != "head\nbody" {
		t.Errorf("FlattenText = %q", got)
	}
	if got := FlattenText(models.ModelMessage{Content: "plain"}); got != "plain" {
		t.Errorf("FlattenText plain = %q", got)
	}
}
