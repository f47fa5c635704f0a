package assembler

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/maestro-agents/maestro/pkg/models"
)

// SandboxPolicy restricts tools when the run executes sandboxed.
type SandboxPolicy struct {
	Allow []string // if non-empty, only these names pass
	Deny  []string
}

// CollectOptions are the inputs to tool collection.
type CollectOptions struct {
	// Sources merged in first-wins order by tool name.
	ExecutorTools   []models.ToolDefinition
	SkillTools      []models.ToolDefinition
	AdditionalTools []models.ToolDefinition

	Sandbox *SandboxPolicy

	// GrantedPermissions, when non-nil, gates each tool on its required
	// permissions. Wildcards: "prefix.*" matches "prefix.<anything>";
	// "*" matches anything.
	GrantedPermissions []string

	Exclude []string
}

// Collector merges, filters, and orders the tools offered to the model.
type Collector struct {
	logger *slog.Logger
}

// NewCollector creates a tool collector.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger.With("component", "tool_collector")}
}

// Collect produces the final tool list: first-wins dedupe across sources,
// sandbox and permission filtering, exclusion, schema sanity check, and a
// stable sort by name.
func (c *Collector) Collect(opts CollectOptions) []models.ToolDefinition {
	seen := make(map[string]struct{})
	merged := make([]models.ToolDefinition, 0,
		len(opts.ExecutorTools)+len(opts.SkillTools)+len(opts.AdditionalTools))

	for _, source := range [][]models.ToolDefinition{opts.ExecutorTools, opts.SkillTools, opts.AdditionalTools} {
		for _, tool := range source {
			if tool.Name == "" {
				continue
			}
			if _, dup := seen[tool.Name]; dup {
				continue
			}
			seen[tool.Name] = struct{}{}
			merged = append(merged, tool)
		}
	}

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = struct{}{}
	}

	kept := merged[:0]
	for _, tool := range merged {
		if _, skip := excluded[tool.Name]; skip {
			continue
		}
		if opts.Sandbox != nil && !sandboxAllows(opts.Sandbox, tool.Name) {
			continue
		}
		if opts.GrantedPermissions != nil && !permitted(opts.GrantedPermissions, tool.Permissions) {
			continue
		}
		if !c.schemaValid(tool) {
			continue
		}
		kept = append(kept, tool)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	return kept
}

func sandboxAllows(policy *SandboxPolicy, name string) bool {
	for _, denied := range policy.Deny {
		if denied == name {
			return false
		}
	}
	if len(policy.Allow) == 0 {
		return true
	}
	for _, allowed := range policy.Allow {
		if allowed == name {
			return true
		}
	}
	return false
}

// permitted reports whether every required permission is covered by a
// grant, honoring "*" and "prefix.*" wildcards.
func permitted(granted, required []string) bool {
	for _, req := range required {
		if !anyGrantMatches(granted, req) {
			return false
		}
	}
	return true
}

func anyGrantMatches(granted []string, req string) bool {
	for _, grant := range granted {
		if grant == "*" || grant == req {
			return true
		}
		if prefix, ok := strings.CutSuffix(grant, ".*"); ok && strings.HasPrefix(req, prefix+".") {
			return true
		}
	}
	return false
}

// schemaValid drops tools whose input schema does not compile; a broken
// schema would fail every call against it.
func (c *Collector) schemaValid(tool models.ToolDefinition) bool {
	if tool.InputSchema == nil {
		return true
	}
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		c.logger.Warn("dropping tool with unserializable schema", "tool", tool.Name, "error", err)
		return false
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(tool.Name+".json", strings.NewReader(string(raw))); err != nil {
		c.logger.Warn("dropping tool with invalid schema", "tool", tool.Name, "error", err)
		return false
	}
	if _, err := compiler.Compile(tool.Name + ".json"); err != nil {
		c.logger.Warn("dropping tool with invalid schema", "tool", tool.Name, "error", err)
		return false
	}
	return true
}
