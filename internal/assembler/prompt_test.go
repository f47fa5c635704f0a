package assembler

import (
	"strings"
	"testing"

	"github.com/maestro-agents/maestro/pkg/models"
)

func TestComposeOrdersByPriority(t *testing.T) {
	out := Compose([]Section{
		{Name: "datetime", Content: "now", Priority: PriorityDatetime},
		{Name: "bootstrap", Content: "boot", Priority: PriorityBootstrap},
		{Name: "skills", Content: "skills", Priority: PrioritySkills},
	}, "")
	want := "boot" + DefaultSectionSeparator + "skills" + DefaultSectionSeparator + "now"
	if out != want {
		t.Errorf("Compose = %q, want %q", out, want)
	}
}

func TestComposeTrimsEmptySections(t *testing.T) {
	out := Compose([]Section{
		{Name: "a", Content: "  \n ", Priority: 100},
		{Name: "b", Content: "real", Priority: 50},
	}, " | ")
	if out != "real" {
		t.Errorf("Compose = %q, want only non-empty sections", out)
	}
}

func TestComposeStableForEqualPriority(t *testing.T) {
	out := Compose([]Section{
		{Name: "a", Content: "one", Priority: 500},
		{Name: "b", Content: "two", Priority: 500},
	}, " ")
	if out != "one two" {
		t.Errorf("Compose = %q, want insertion order kept on ties", out)
	}
}

func TestRenderSkills(t *testing.T) {
	out := RenderSkills([]models.Skill{
		{Name: "low", Priority: 1, Instructions: "do less"},
		{
			Name:         "high",
			Priority:     9,
			Instructions: "do more",
			Examples:     []string{"example body"},
			Tools:        []models.ToolDefinition{{Name: "add"}, {Name: "sub"}},
		},
	})

	if !strings.HasPrefix(out, "## high") {
		t.Errorf("higher-priority skill should come first:\n%s", out)
	}
	if !strings.Contains(out, "do more") || !strings.Contains(out, "## low") {
		t.Errorf("missing skill bodies:\n%s", out)
	}
	if !strings.Contains(out, "Example:\nexample body") {
		t.Errorf("missing example:\n%s", out)
	}
	if !strings.Contains(out, "Tools: add, sub") {
		t.Errorf("missing tool list:\n%s", out)
	}
	if RenderSkills(nil) != "" {
		t.Error("no skills should render empty")
	}
}
