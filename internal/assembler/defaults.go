package assembler

import (
	"errors"
	"fmt"

	"github.com/maestro-agents/maestro/internal/sessions"
	"github.com/maestro-agents/maestro/pkg/models"
)

// ErrMissingModelID is returned when no layer supplies a model id.
var ErrMissingModelID = errors.New("no model id resolved")

// ParameterOverrides is a partial parameter set; nil fields are not set.
type ParameterOverrides struct {
	ModelID        *string
	MaxTokens      *int
	Temperature    *float64
	TopP           *float64
	TopK           *int
	ThinkingBudget *int
}

// metadata keys for session-level parameter values; agent-level defaults
// use the same names with a "default" prefix (defaultModelId, ...).
var paramKeys = []string{"modelId", "maxTokens", "temperature", "topP", "topK", "thinkingBudget"}

// ResolveParameters merges four layers, later wins: system defaults,
// agent defaults (metadata "defaultX" keys), session defaults (metadata
// keys), request overrides. The result is constrained and maxTokens is
// capped at the model's max output.
func ResolveParameters(system models.ModelParameters, meta *sessions.Meta, request *ParameterOverrides) (models.ModelParameters, error) {
	resolved := system

	if meta != nil {
		applyMeta(&resolved, meta.Values, "default")
		applyMeta(&resolved, meta.Values, "")
	}
	if request != nil {
		applyOverrides(&resolved, request)
	}

	if resolved.ModelID == "" {
		return models.ModelParameters{}, ErrMissingModelID
	}
	if err := validateParameters(resolved); err != nil {
		return models.ModelParameters{}, err
	}

	limits := LookupLimits(resolved.ModelID)
	if resolved.MaxTokens == 0 || resolved.MaxTokens > limits.MaxOutput {
		resolved.MaxTokens = limits.MaxOutput
	}
	return resolved, nil
}

func applyMeta(p *models.ModelParameters, values map[string]any, prefix string) {
	if len(values) == 0 {
		return
	}
	for _, key := range paramKeys {
		raw, ok := values[metaKey(prefix, key)]
		if !ok {
			continue
		}
		switch key {
		case "modelId":
			if s, ok := raw.(string); ok && s != "" {
				p.ModelID = s
			}
		case "maxTokens":
			if n, ok := asInt(raw); ok {
				p.MaxTokens = n
			}
		case "temperature":
			if f, ok := asFloat(raw); ok {
				p.Temperature = f
			}
		case "topP":
			if f, ok := asFloat(raw); ok {
				p.TopP = f
			}
		case "topK":
			if n, ok := asInt(raw); ok {
				p.TopK = n
			}
		case "thinkingBudget":
			if n, ok := asInt(raw); ok {
				p.ThinkingBudget = n
			}
		}
	}
}

// metaKey forms "defaultModelId" from ("default", "modelId"), or passes
// the key through when there is no prefix.
func metaKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + string(key[0]-'a'+'A') + key[1:]
}

func applyOverrides(p *models.ModelParameters, o *ParameterOverrides) {
	if o.ModelID != nil {
		p.ModelID = *o.ModelID
	}
	if o.MaxTokens != nil {
		p.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		p.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		p.TopP = *o.TopP
	}
	if o.TopK != nil {
		p.TopK = *o.TopK
	}
	if o.ThinkingBudget != nil {
		p.ThinkingBudget = *o.ThinkingBudget
	}
}

func validateParameters(p models.ModelParameters) error {
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("temperature %v out of range [0,1]", p.Temperature)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return fmt.Errorf("topP %v out of range [0,1]", p.TopP)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("maxTokens %d must be positive", p.MaxTokens)
	}
	if p.TopK < 0 {
		return fmt.Errorf("topK %d must be positive", p.TopK)
	}
	if p.ThinkingBudget < 0 {
		return fmt.Errorf("thinkingBudget %d must be positive", p.ThinkingBudget)
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	}
	return 0, false
}
