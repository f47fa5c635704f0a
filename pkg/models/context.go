package models

import "time"

// ModelParameters are the resolved sampling parameters for one model call.
type ModelParameters struct {
	ModelID        string  `json:"model_id"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	TopK           int     `json:"top_k,omitempty"`
	ThinkingBudget int     `json:"thinking_budget,omitempty"`
}

// TokenEstimates breaks down estimated token usage per context slot.
type TokenEstimates struct {
	SystemPrompt int `json:"system_prompt"`
	Messages     int `json:"messages"`
	Tools        int `json:"tools"`
	Total        int `json:"total"`
}

// TruncationReport describes what a truncation pass removed.
type TruncationReport struct {
	Strategy       string `json:"strategy"`
	RemovedCount   int    `json:"removed_count"`
	RemovedTokens  int    `json:"removed_tokens"`
	OriginalTokens int    `json:"original_tokens"`
	FinalTokens    int    `json:"final_tokens"`
}

// CompactionReason explains why compaction is (or is not) advised.
type CompactionReason string

const (
	CompactionExplicit     CompactionReason = "explicit"
	CompactionTokenLimit   CompactionReason = "token_limit"
	CompactionMessageCount CompactionReason = "message_count"
	CompactionToolCount    CompactionReason = "tool_count"
	CompactionNone         CompactionReason = "none"
)

// CompactionCheck is the result of a compaction decision.
type CompactionCheck struct {
	Needed        bool             `json:"needed"`
	Reason        CompactionReason `json:"reason"`
	CurrentTokens int              `json:"current_tokens,omitempty"`
	MaxTokens     int              `json:"max_tokens,omitempty"`
	MessageCount  int              `json:"message_count,omitempty"`
}

// AssemblyMetadata carries diagnostics for an assembled context.
type AssemblyMetadata struct {
	Tokens       TokenEstimates    `json:"tokens"`
	Truncation   *TruncationReport `json:"truncation,omitempty"`
	Compaction   *CompactionCheck  `json:"compaction,omitempty"`
	ActiveSkills []string          `json:"active_skills,omitempty"`
	AssembledAt  time.Time         `json:"assembled_at"`
	CacheHit     bool              `json:"cache_hit,omitempty"`
}

// AssembledContext is the full per-turn model input. Consumers must treat
// it as read-only: the assembly cache hands the same value to every caller.
type AssembledContext struct {
	SystemPrompt string           `json:"system_prompt"`
	Messages     []ModelMessage   `json:"messages"`
	Tools        []ToolDefinition `json:"tools"`
	Parameters   ModelParameters  `json:"parameters"`
	Metadata     AssemblyMetadata `json:"metadata"`
}
