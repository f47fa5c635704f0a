package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/maestro-agents/maestro/internal/sessions"
	"github.com/maestro-agents/maestro/pkg/models"
)

// SectionSource supplies system prompt sections (bootstrap, soul, user
// profile, ...) for a session/agent pair.
type SectionSource interface {
	Sections(ctx context.Context, sessionID, agentID string) ([]Section, error)
}

// SkillSource supplies the active skills for a session/agent pair.
type SkillSource interface {
	ActiveSkills(ctx context.Context, sessionID, agentID string) ([]models.Skill, error)
}

// SectionsFunc adapts a function to SectionSource.
type SectionsFunc func(ctx context.Context, sessionID, agentID string) ([]Section, error)

func (f SectionsFunc) Sections(ctx context.Context, sessionID, agentID string) ([]Section, error) {
	return f(ctx, sessionID, agentID)
}

// SkillsFunc adapts a function to SkillSource.
type SkillsFunc func(ctx context.Context, sessionID, agentID string) ([]models.Skill, error)

func (f SkillsFunc) ActiveSkills(ctx context.Context, sessionID, agentID string) ([]models.Skill, error) {
	return f(ctx, sessionID, agentID)
}

// Config tunes context assembly.
type Config struct {
	SystemDefaults   models.ModelParameters
	Strategy         TruncationStrategy
	ReserveTokens    int
	SectionSeparator string
	CacheTTL         time.Duration
	Compaction       CompactionConfig
}

// DefaultConfig returns the standard assembly configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:      TruncateSmart,
		ReserveTokens: 2048,
		CacheTTL:      DefaultCacheTTL,
		Compaction:    DefaultCompactionConfig(),
	}
}

// AssembleOptions are the per-call inputs beyond session identity.
type AssembleOptions struct {
	Overrides       *ParameterOverrides
	ExecutorTools   []models.ToolDefinition
	AdditionalTools []models.ToolDefinition
	ExcludeTools    []string
	Sandbox         *SandboxPolicy
	Permissions     []string
	Strategy        TruncationStrategy
	ForceCompaction bool
}

// cacheFields reduces options to the map folded into the cache key. Tool
// lists enter by name only; definitions are stable within a process.
func (o AssembleOptions) cacheFields() map[string]any {
	fields := make(map[string]any)
	if o.Overrides != nil {
		if o.Overrides.ModelID != nil {
			fields["modelId"] = *o.Overrides.ModelID
		}
		if o.Overrides.MaxTokens != nil {
			fields["maxTokens"] = *o.Overrides.MaxTokens
		}
		if o.Overrides.Temperature != nil {
			fields["temperature"] = *o.Overrides.Temperature
		}
		if o.Overrides.TopP != nil {
			fields["topP"] = *o.Overrides.TopP
		}
		if o.Overrides.TopK != nil {
			fields["topK"] = *o.Overrides.TopK
		}
		if o.Overrides.ThinkingBudget != nil {
			fields["thinkingBudget"] = *o.Overrides.ThinkingBudget
		}
	}
	if len(o.ExcludeTools) > 0 {
		fields["exclude"] = o.ExcludeTools
	}
	if len(o.Permissions) > 0 {
		fields["permissions"] = o.Permissions
	}
	if o.Sandbox != nil {
		fields["sandboxAllow"] = o.Sandbox.Allow
		fields["sandboxDeny"] = o.Sandbox.Deny
	}
	if o.Strategy != "" {
		fields["strategy"] = string(o.Strategy)
	}
	names := make([]string, 0, len(o.ExecutorTools)+len(o.AdditionalTools))
	for _, t := range o.ExecutorTools {
		names = append(names, t.Name)
	}
	for _, t := range o.AdditionalTools {
		names = append(names, t.Name)
	}
	if len(names) > 0 {
		fields["tools"] = names
	}
	return fields
}

// Assembler builds the per-turn model context from session state.
type Assembler struct {
	store     sessions.Store
	sections  SectionSource
	skills    SkillSource
	estimator Estimator
	truncator *Truncator
	collector *Collector
	cache     *Cache
	config    Config
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates an assembler. sections and skills may be nil when the
// caller has no prompt sections or skills to contribute.
func New(store sessions.Store, sections SectionSource, skills SkillSource, cfg Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = TruncateSmart
	}
	if cfg.Compaction == (CompactionConfig{}) {
		cfg.Compaction = DefaultCompactionConfig()
	}
	estimator := NewHeuristicEstimator()
	return &Assembler{
		store:     store,
		sections:  sections,
		skills:    skills,
		estimator: estimator,
		truncator: NewTruncator(estimator),
		collector: NewCollector(logger),
		cache:     NewCache(cfg.CacheTTL),
		config:    cfg,
		logger:    logger.With("component", "assembler"),
		tracer:    otel.Tracer("maestro/assembler"),
	}
}

// Assemble builds (or returns from cache) the model context for the
// session's next turn.
func (a *Assembler) Assemble(ctx context.Context, sessionID, agentID string, opts AssembleOptions) (*models.AssembledContext, error) {
	ctx, span := a.tracer.Start(ctx, "assembler.Assemble",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("agent.id", agentID),
		))
	defer span.End()

	meta, err := a.store.Metadata(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session metadata: %w", err)
	}

	key := Key(sessionID, meta.UpdatedAt, meta.MessageCount, opts.cacheFields())
	if cached, ok := a.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	msgs, err := a.store.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session messages: %w", err)
	}

	params, err := ResolveParameters(a.config.SystemDefaults, meta, opts.Overrides)
	if err != nil {
		return nil, fmt.Errorf("resolve parameters: %w", err)
	}
	limits := LookupLimits(params.ModelID)

	var sections []Section
	if a.sections != nil {
		sections, err = a.sections.Sections(ctx, sessionID, agentID)
		if err != nil {
			return nil, fmt.Errorf("load prompt sections: %w", err)
		}
	}
	var skills []models.Skill
	if a.skills != nil {
		skills, err = a.skills.ActiveSkills(ctx, sessionID, agentID)
		if err != nil {
			return nil, fmt.Errorf("load active skills: %w", err)
		}
	}
	if rendered := RenderSkills(skills); rendered != "" {
		sections = append(sections, Section{Name: "skills", Content: rendered, Priority: PrioritySkills})
	}
	systemPrompt := Compose(sections, a.config.SectionSeparator)

	shaped := Transform(msgs)

	var skillTools []models.ToolDefinition
	for _, skill := range skills {
		skillTools = append(skillTools, skill.Tools...)
	}
	tools := a.collector.Collect(CollectOptions{
		ExecutorTools:      opts.ExecutorTools,
		SkillTools:         skillTools,
		AdditionalTools:    opts.AdditionalTools,
		Sandbox:            opts.Sandbox,
		GrantedPermissions: opts.Permissions,
		Exclude:            opts.ExcludeTools,
	})

	systemTokens := a.estimator.SystemPrompt(systemPrompt)
	toolTokens := a.estimator.Tools(tools)

	strategy := a.config.Strategy
	if opts.Strategy != "" {
		strategy = opts.Strategy
	}
	truncated, report, err := a.truncator.Truncate(shaped, TruncateOptions{
		Strategy:           strategy,
		MaxTokens:          limits.ContextWindow,
		ReserveTokens:      a.config.ReserveTokens,
		SystemPromptTokens: systemTokens,
		ToolsTokens:        toolTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("truncate context: %w", err)
	}
	messageTokens := MessagesTotal(a.estimator, truncated)
	total := systemTokens + toolTokens + messageTokens

	compaction := DetectCompaction(CompactionInput{
		MessageCount:     meta.MessageCount,
		TokenCount:       total,
		ToolCallCount:    toolCallCount(msgs),
		CurrentTokens:    total,
		MaxContextTokens: limits.ContextWindow,
		Explicit:         opts.ForceCompaction,
	}, a.config.Compaction)

	activeSkills := make([]string, len(skills))
	for i, skill := range skills {
		activeSkills[i] = skill.Name
	}

	assembled := &models.AssembledContext{
		SystemPrompt: systemPrompt,
		Messages:     truncated,
		Tools:        tools,
		Parameters:   params,
		Metadata: models.AssemblyMetadata{
			Tokens: models.TokenEstimates{
				SystemPrompt: systemTokens,
				Messages:     messageTokens,
				Tools:        toolTokens,
				Total:        total,
			},
			Truncation:   &report,
			Compaction:   &compaction,
			ActiveSkills: activeSkills,
			AssembledAt:  time.Now(),
		},
	}
	a.cache.Put(key, assembled)
	span.SetAttributes(
		attribute.Int("tokens.total", total),
		attribute.Int("messages.removed", report.RemovedCount),
	)
	if report.RemovedCount > 0 {
		a.logger.Debug("truncated session context",
			"session_id", sessionID,
			"strategy", report.Strategy,
			"removed", report.RemovedCount,
			"removed_tokens", report.RemovedTokens)
	}
	return assembled, nil
}

// CheckCompaction reports whether the session's history should be
// compacted, without assembling a full context.
func (a *Assembler) CheckCompaction(ctx context.Context, sessionID, agentID string) (models.CompactionCheck, error) {
	meta, err := a.store.Metadata(ctx, sessionID)
	if err != nil {
		return models.CompactionCheck{}, fmt.Errorf("load session metadata: %w", err)
	}
	msgs, err := a.store.Messages(ctx, sessionID)
	if err != nil {
		return models.CompactionCheck{}, fmt.Errorf("load session messages: %w", err)
	}

	params, err := ResolveParameters(a.config.SystemDefaults, meta, nil)
	window := DefaultModelLimits.ContextWindow
	if err == nil {
		window = LookupLimits(params.ModelID).ContextWindow
	}

	shaped := Transform(msgs)
	tokens := MessagesTotal(a.estimator, shaped)
	return DetectCompaction(CompactionInput{
		MessageCount:     len(msgs),
		TokenCount:       tokens,
		ToolCallCount:    toolCallCount(msgs),
		CurrentTokens:    tokens,
		MaxContextTokens: window,
	}, a.config.Compaction), nil
}

// InvalidateCache drops all cached contexts for the session.
func (a *Assembler) InvalidateCache(sessionID string) {
	a.cache.Invalidate(sessionID)
}

func toolCallCount(msgs []*models.Message) int {
	n := 0
	for _, m := range msgs {
		n += len(m.ToolCalls)
	}
	return n
}
