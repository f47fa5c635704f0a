package runner

import (
	"errors"
	"testing"

	"github.com/maestro-agents/maestro/pkg/models"
)

func TestParseToolCalls(t *testing.T) {
	if calls := ParseToolCalls(nil); len(calls) != 0 {
		t.Errorf("nil response produced %d calls", len(calls))
	}
	if calls := ParseToolCalls(&models.ModelResponse{Content: "plain"}); len(calls) != 0 {
		t.Errorf("tool-less response produced %d calls", len(calls))
	}

	resp := &models.ModelResponse{ToolCalls: []models.ToolCall{
		{ID: "t1", Name: "add", Arguments: map[string]any{"a": 1}},
		{ID: "t2", Name: "sub", Arguments: map[string]any{}},
	}}
	calls := ParseToolCalls(resp)
	if len(calls) != 2 || calls[0].ID != "t1" || calls[1].Name != "sub" {
		t.Errorf("calls = %+v", calls)
	}

	// The returned slice is a copy.
	calls[0].ID = "mutated"
	if resp.ToolCalls[0].ID != "t1" {
		t.Error("ParseToolCalls aliases the response slice")
	}
}

func TestValidateToolCalls(t *testing.T) {
	valid := []models.ToolCall{
		{ID: "t1", Name: "add", Arguments: map[string]any{"a": 1}},
		{ID: "t2", Name: "add", Arguments: map[string]any{}},
	}
	if err := ValidateToolCalls(valid); err != nil {
		t.Fatalf("valid calls rejected: %v", err)
	}
	if err := ValidateToolCalls(nil); err != nil {
		t.Fatalf("empty list rejected: %v", err)
	}

	cases := []struct {
		name  string
		calls []models.ToolCall
	}{
		{"empty id", []models.ToolCall{{Name: "add", Arguments: map[string]any{}}}},
		{"empty name", []models.ToolCall{{ID: "t1", Arguments: map[string]any{}}}},
		{"nil arguments", []models.ToolCall{{ID: "t1", Name: "add"}}},
		{"duplicate id", []models.ToolCall{
			{ID: "t1", Name: "add", Arguments: map[string]any{}},
			{ID: "t1", Name: "sub", Arguments: map[string]any{}},
		}},
	}
	for _, tc := range cases {
		err := ValidateToolCalls(tc.calls)
		if err == nil {
			t.Errorf("%s: accepted", tc.name)
			continue
		}
		var re *Error
		if !errors.As(err, &re) || re.Kind != KindInvalidRequest {
			t.Errorf("%s: kind = %v, want invalid_request", tc.name, err)
		}
	}
}
