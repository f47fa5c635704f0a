package assembler

import "strings"

// ModelLimits are the hard token limits for a model family.
type ModelLimits struct {
	ContextWindow int
	MaxOutput     int
}

// DefaultModelLimits is the fallback for unrecognized model ids.
var DefaultModelLimits = ModelLimits{ContextWindow: 128000, MaxOutput: 4096}

// modelLimitTable maps model id prefixes to limits. Longest matching
// prefix wins.
var modelLimitTable = map[string]ModelLimits{
	"claude-3-5-haiku":  {ContextWindow: 200000, MaxOutput: 8192},
	"claude-3-5-sonnet": {ContextWindow: 200000, MaxOutput: 8192},
	"claude-3-7-sonnet": {ContextWindow: 200000, MaxOutput: 64000},
	"claude-3-haiku":    {ContextWindow: 200000, MaxOutput: 4096},
	"claude-3-opus":     {ContextWindow: 200000, MaxOutput: 4096},
	"claude-opus-4":     {ContextWindow: 200000, MaxOutput: 32000},
	"claude-sonnet-4":   {ContextWindow: 200000, MaxOutput: 64000},
	"gpt-4o-mini":       {ContextWindow: 128000, MaxOutput: 16384},
	"gpt-4o":            {ContextWindow: 128000, MaxOutput: 16384},
	"gpt-4-turbo":       {ContextWindow: 128000, MaxOutput: 4096},
	"gpt-4.1":           {ContextWindow: 1047576, MaxOutput: 32768},
	"o1":                {ContextWindow: 200000, MaxOutput: 100000},
	"o3":                {ContextWindow: 200000, MaxOutput: 100000},
	"gemini-1.5-pro":    {ContextWindow: 2097152, MaxOutput: 8192},
	"gemini-1.5-flash":  {ContextWindow: 1048576, MaxOutput: 8192},
	"gemini-2.0-flash":  {ContextWindow: 1048576, MaxOutput: 8192},
	"gemini-2.5-pro":    {ContextWindow: 1048576, MaxOutput: 65536},
	"deepseek-chat":     {ContextWindow: 65536, MaxOutput: 8192},
	"deepseek-reasoner": {ContextWindow: 65536, MaxOutput: 65536},
	"llama-3.1":         {ContextWindow: 131072, MaxOutput: 4096},
	"llama-3.3":         {ContextWindow: 131072, MaxOutput: 4096},
	"mistral-large":     {ContextWindow: 131072, MaxOutput: 8192},
	"qwen2.5":           {ContextWindow: 131072, MaxOutput: 8192},
}

// LookupLimits returns the limits for modelID by longest-prefix match,
// falling back to DefaultModelLimits.
func LookupLimits(modelID string) ModelLimits {
	best := ""
	limits := DefaultModelLimits
	for prefix, l := range modelLimitTable {
		if strings.HasPrefix(modelID, prefix) && len(prefix) > len(best) {
			best = prefix
			limits = l
		}
	}
	return limits
}
