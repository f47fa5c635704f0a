package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maestro-agents/maestro/pkg/models"
)

// DefaultSectionSeparator joins composed prompt sections.
const DefaultSectionSeparator = "\n\n---\n\n"

// Standard priority bands for system prompt sections.
const (
	PriorityBootstrap   = 1000
	PrioritySoul        = 900
	PriorityContext     = 800
	PriorityUserProfile = 600
	PrioritySkills      = 500
	PriorityToolSummary = 400
	PriorityAdditional  = 300
	PriorityDatetime    = 100
)

// Section is one named prompt fragment with an ordering priority.
type Section struct {
	Name     string
	Content  string
	Priority int
}

// Compose assembles sections into a system prompt: empty sections are
// trimmed, the rest sorted by descending priority and joined with sep.
func Compose(sections []Section, sep string) string {
	if sep == "" {
		sep = DefaultSectionSeparator
	}
	kept := make([]Section, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s.Content) == "" {
			continue
		}
		kept = append(kept, s)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Priority > kept[j].Priority
	})
	parts := make([]string, len(kept))
	for i, s := range kept {
		parts[i] = strings.TrimSpace(s.Content)
	}
	return strings.Join(parts, sep)
}

// RenderSkills renders active skills as a prompt section: one block per
// skill, sorted by skill priority (higher first).
func RenderSkills(skills []models.Skill) string {
	if len(skills) == 0 {
		return ""
	}
	ordered := make([]models.Skill, len(skills))
	copy(ordered, skills)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var b strings.Builder
	for i, skill := range ordered {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", skill.Name, strings.TrimSpace(skill.Instructions))
		for _, example := range skill.Examples {
			fmt.Fprintf(&b, "\n\nExample:\n%s", strings.TrimSpace(example))
		}
		if len(skill.Tools) > 0 {
			names := make([]string, len(skill.Tools))
			for j, tool := range skill.Tools {
				names[j] = tool.Name
			}
			fmt.Fprintf(&b, "\n\nTools: %s", strings.Join(names, ", "))
		}
	}
	return b.String()
}
