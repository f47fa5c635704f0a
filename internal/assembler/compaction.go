package assembler

import "github.com/maestro-agents/maestro/pkg/models"

// Default compaction thresholds.
const (
	DefaultCompactionThreshold        = 0.8
	DefaultCompactionMessageThreshold = 100
	DefaultCompactionToolThreshold    = 50
)

// CompactionConfig tunes the compaction detector.
type CompactionConfig struct {
	// Threshold is the fraction of the model context window that triggers
	// token-based compaction.
	Threshold        float64
	MessageThreshold int
	ToolThreshold    int
}

// DefaultCompactionConfig returns the standard thresholds.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		Threshold:        DefaultCompactionThreshold,
		MessageThreshold: DefaultCompactionMessageThreshold,
		ToolThreshold:    DefaultCompactionToolThreshold,
	}
}

// CompactionInput is what the detector inspects for one session.
type CompactionInput struct {
	MessageCount     int
	TokenCount       int
	ToolCallCount    int
	CurrentTokens    int
	MaxContextTokens int
	Explicit         bool
}

// DetectCompaction decides whether history compaction is needed. When
// several reasons apply the strongest wins: explicit, then token_limit,
// then message_count, then tool_count.
func DetectCompaction(in CompactionInput, cfg CompactionConfig) models.CompactionCheck {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultCompactionThreshold
	}
	if cfg.MessageThreshold <= 0 {
		cfg.MessageThreshold = DefaultCompactionMessageThreshold
	}
	if cfg.ToolThreshold <= 0 {
		cfg.ToolThreshold = DefaultCompactionToolThreshold
	}

	check := models.CompactionCheck{
		Reason:        models.CompactionNone,
		CurrentTokens: in.CurrentTokens,
		MaxTokens:     in.MaxContextTokens,
		MessageCount:  in.MessageCount,
	}
	switch {
	case in.Explicit:
		check.Reason = models.CompactionExplicit
	case in.MaxContextTokens > 0 &&
		float64(in.CurrentTokens) >= cfg.Threshold*float64(in.MaxContextTokens):
		check.Reason = models.CompactionTokenLimit
	case in.MessageCount >= cfg.MessageThreshold:
		check.Reason = models.CompactionMessageCount
	case in.ToolCallCount >= cfg.ToolThreshold:
		check.Reason = models.CompactionToolCount
	}
	check.Needed = check.Reason != models.CompactionNone
	return check
}
