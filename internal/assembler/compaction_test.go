package assembler

import (
	"testing"

	"github.com/maestro-agents/maestro/pkg/models"
)

func TestDetectCompactionReasons(t *testing.T) {
	cfg := DefaultCompactionConfig()

	cases := []struct {
		name string
		in   CompactionInput
		want models.CompactionReason
	}{
		{"none", CompactionInput{CurrentTokens: 100, MaxContextTokens: 1000, MessageCount: 5}, models.CompactionNone},
		{"explicit", CompactionInput{Explicit: true}, models.CompactionExplicit},
		{"token limit at threshold", CompactionInput{CurrentTokens: 800, MaxContextTokens: 1000}, models.CompactionTokenLimit},
		{"token limit below threshold", CompactionInput{CurrentTokens: 799, MaxContextTokens: 1000}, models.CompactionNone},
		{"message count", CompactionInput{MessageCount: 100, CurrentTokens: 10, MaxContextTokens: 1000}, models.CompactionMessageCount},
		{"tool count", CompactionInput{ToolCallCount: 50, CurrentTokens: 10, MaxContextTokens: 1000}, models.CompactionToolCount},
	}
	for _, tc := range cases {
		got := DetectCompaction(tc.in, cfg)
		if got.Reason != tc.want {
			t.Errorf("%s: reason = %s, want %s", tc.name, got.Reason, tc.want)
		}
		if got.Needed != (tc.want != models.CompactionNone) {
			t.Errorf("%s: needed = %v inconsistent with reason %s", tc.name, got.Needed, got.Reason)
		}
	}
}

func TestDetectCompactionPriority(t *testing.T) {
	cfg := DefaultCompactionConfig()

	// All four reasons apply at once.
	all := CompactionInput{
		Explicit:         true,
		CurrentTokens:    900,
		MaxContextTokens: 1000,
		MessageCount:     200,
		ToolCallCount:    80,
	}
	if got := DetectCompaction(all, cfg); got.Reason != models.CompactionExplicit {
		t.Errorf("reason = %s, want explicit to win", got.Reason)
	}

	all.Explicit = false
	if got := DetectCompaction(all, cfg); got.Reason != models.CompactionTokenLimit {
		t.Errorf("reason = %s, want token_limit over counts", got.Reason)
	}

	all.CurrentTokens = 10
	if got := DetectCompaction(all, cfg); got.Reason != models.CompactionMessageCount {
		t.Errorf("reason = %s, want message_count over tool_count", got.Reason)
	}
}

func TestDetectCompactionCustomThresholds(t *testing.T) {
	cfg := CompactionConfig{Threshold: 0.5, MessageThreshold: 10, ToolThreshold: 5}

	if got := DetectCompaction(CompactionInput{CurrentTokens: 500, MaxContextTokens: 1000}, cfg); got.Reason != models.CompactionTokenLimit {
		t.Errorf("custom token threshold ignored: %s", got.Reason)
	}
	if got := DetectCompaction(CompactionInput{MessageCount: 10, MaxContextTokens: 1000}, cfg); got.Reason != models.CompactionMessageCount {
		t.Errorf("custom message threshold ignored: %s", got.Reason)
	}
	if got := DetectCompaction(CompactionInput{ToolCallCount: 5, MaxContextTokens: 1000}, cfg); got.Reason != models.CompactionToolCount {
		t.Errorf("custom tool threshold ignored: %s", got.Reason)
	}
}

func TestDetectCompactionZeroConfigUsesDefaults(t *testing.T) {
	got := DetectCompaction(CompactionInput{CurrentTokens: 800, MaxContextTokens: 1000}, CompactionConfig{})
	if got.Reason != models.CompactionTokenLimit {
		t.Errorf("zero config should fall back to defaults, got %s", got.Reason)
	}
}
