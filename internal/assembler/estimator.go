// Package assembler builds the per-turn model context: prompt composition,
// message shaping, tool collection, token estimation, truncation,
// compaction detection, parameter resolution, and caching.
package assembler

import (
	"encoding/json"
	"math"
	"unicode"

	"github.com/maestro-agents/maestro/pkg/models"
)

// Per-slot fixed overheads, in tokens.
const (
	messageOverheadTokens = 4
	roleTokens            = 1
	systemPromptOverhead  = 10
	toolBlockOverhead     = 5
	toolsListOverhead     = 20
)

// Image token bands by raw data length.
const (
	smallImageBytes  = 10 * 1024
	mediumImageBytes = 50 * 1024
	smallImageTokens  = 85
	mediumImageTokens = 170
	largeImageTokens  = 255
)

// Character-to-token ratios by script class.
const (
	charsPerTokenLatin    = 4.0
	charsPerTokenCyrillic = 2.5
	charsPerTokenCJK      = 1.5
)

// Estimator estimates token counts. Callers may substitute an exact
// tokenizer; the heuristic implementation is the default.
type Estimator interface {
	Text(s string) int
	Image(data []byte) int
	ToolUse(name string, args map[string]any) int
	ToolResult(content string) int
	Message(m models.ModelMessage) int
	SystemPrompt(s string) int
	Tools(defs []models.ToolDefinition) int
}

// HeuristicEstimator estimates tokens from character counts weighted by
// script class: Latin ~4 chars/token, Cyrillic ~2.5, CJK ~1.5.
type HeuristicEstimator struct{}

// NewHeuristicEstimator returns the default estimator.
func NewHeuristicEstimator() *HeuristicEstimator { return &HeuristicEstimator{} }

// Text estimates tokens for a text string.
func (e *HeuristicEstimator) Text(s string) int {
	if s == "" {
		return 0
	}
	var tokens float64
	for _, r := range s {
		switch {
		case isCJK(r):
			tokens += 1 / charsPerTokenCJK
		case unicode.Is(unicode.Cyrillic, r):
			tokens += 1 / charsPerTokenCyrillic
		default:
			tokens += 1 / charsPerTokenLatin
		}
	}
	n := int(math.Ceil(tokens))
	if n < 1 {
		n = 1
	}
	return n
}

// Image estimates tokens for raw image data using fixed size bands.
func (e *HeuristicEstimator) Image(data []byte) int {
	switch {
	case len(data) <= smallImageBytes:
		return smallImageTokens
	case len(data) <= mediumImageBytes:
		return mediumImageTokens
	default:
		return largeImageTokens
	}
}

// ToolUse estimates tokens for a tool-use block.
func (e *HeuristicEstimator) ToolUse(name string, args map[string]any) int {
	serialized, _ := json.Marshal(args)
	return e.Text(name) + e.Text(string(serialized)) + toolBlockOverhead
}

// ToolResult estimates tokens for a tool-result block.
func (e *HeuristicEstimator) ToolResult(content string) int {
	return e.Text(content) + toolBlockOverhead
}

// Message estimates tokens for one model message including role and
// structural overhead.
func (e *HeuristicEstimator) Message(m models.ModelMessage) int {
	total := roleTokens + messageOverheadTokens
	total += e.Text(m.Content)
	for _, b := range m.Blocks {
		switch b.Type {
		case "text":
			total += e.Text(b.Text)
		case "image":
			total += e.Image(b.Data)
		case "tool_use":
			total += e.ToolUse(b.ToolName, b.Arguments)
		case "tool_result":
			total += e.ToolResult(b.Content)
		default:
			total += e.Text(b.Text)
		}
	}
	return total
}

// SystemPrompt estimates tokens for the system prompt slot.
func (e *HeuristicEstimator) SystemPrompt(s string) int {
	if s == "" {
		return 0
	}
	return e.Text(s) + systemPromptOverhead
}

// Tools estimates tokens for the tool definitions slot.
func (e *HeuristicEstimator) Tools(defs []models.ToolDefinition) int {
	if len(defs) == 0 {
		return 0
	}
	total := toolsListOverhead
	for _, d := range defs {
		total += e.Text(d.Name) + e.Text(d.Description)
		if d.InputSchema != nil {
			serialized, _ := json.Marshal(d.InputSchema)
			total += e.Text(string(serialized))
		}
	}
	return total
}

// MessagesTotal sums Message estimates over msgs.
func MessagesTotal(e Estimator, msgs []models.ModelMessage) int {
	total := 0
	for _, m := range msgs {
		total += e.Message(m)
	}
	return total
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
