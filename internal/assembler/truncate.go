package assembler

import (
	"fmt"

	"github.com/maestro-agents/maestro/pkg/models"
)

// TruncationStrategy selects how over-budget history is reduced.
type TruncationStrategy string

const (
	TruncateSimple  TruncationStrategy = "simple"
	TruncateSmart   TruncationStrategy = "smart"
	TruncateSliding TruncationStrategy = "sliding"
)

// TruncateOptions are the budget inputs for one truncation pass.
type TruncateOptions struct {
	Strategy           TruncationStrategy
	MaxTokens          int
	ReserveTokens      int
	SystemPromptTokens int
	ToolsTokens        int
}

// Budget returns the token budget left for messages.
func (o TruncateOptions) Budget() int {
	return o.MaxTokens - o.SystemPromptTokens - o.ToolsTokens - o.ReserveTokens
}

// Truncator reduces message history to fit a token budget. Results are
// deterministic given the estimator and input.
type Truncator struct {
	estimator Estimator
}

// NewTruncator creates a truncator over the given estimator.
func NewTruncator(estimator Estimator) *Truncator {
	if estimator == nil {
		estimator = NewHeuristicEstimator()
	}
	return &Truncator{estimator: estimator}
}

// Truncate applies the selected strategy. Input already within budget is
// returned unchanged with a zero-removal report.
func (t *Truncator) Truncate(msgs []models.ModelMessage, opts TruncateOptions) ([]models.ModelMessage, models.TruncationReport, error) {
	budget := opts.Budget()
	original := MessagesTotal(t.estimator, msgs)
	report := models.TruncationReport{
		Strategy:       string(opts.Strategy),
		OriginalTokens: original,
		FinalTokens:    original,
	}
	if len(msgs) == 0 || original <= budget {
		return msgs, report, nil
	}

	var kept []models.ModelMessage
	switch opts.Strategy {
	case TruncateSimple, "":
		kept = t.truncateSimple(msgs, budget)
	case TruncateSmart:
		kept = t.truncateSmart(msgs, budget)
	case TruncateSliding:
		kept = t.truncateSliding(msgs, budget)
	default:
		return nil, report, fmt.Errorf("unknown truncation strategy %q", opts.Strategy)
	}

	final := MessagesTotal(t.estimator, kept)
	report.RemovedCount = len(msgs) - len(kept)
	report.RemovedTokens = original - final
	report.FinalTokens = final
	return kept, report, nil
}

// truncateSimple drops oldest messages one at a time until the remainder
// fits, always keeping at least one.
func (t *Truncator) truncateSimple(msgs []models.ModelMessage, budget int) []models.ModelMessage {
	kept := msgs
	total := MessagesTotal(t.estimator, kept)
	for len(kept) > 1 && total > budget {
		total -= t.estimator.Message(kept[0])
		kept = kept[1:]
	}
	return kept
}

// truncateSmart drops oldest messages first but never breaks a tool-call /
// tool-result pair and never removes the most recent message.
func (t *Truncator) truncateSmart(msgs []models.ModelMessage, budget int) []models.ModelMessage {
	links := pairLinks(msgs)
	total := MessagesTotal(t.estimator, msgs)

	drop := make([]bool, len(msgs))
	remaining := len(msgs)
	for i := 0; i < len(msgs)-1 && total > budget && remaining > 1; i++ {
		if len(links[i]) > 0 {
			continue
		}
		drop[i] = true
		total -= t.estimator.Message(msgs[i])
		remaining--
	}
	// Pairs go next, oldest first. A pair leaves whole or not at all;
	// removing only the call would leave its result orphaned. A pair that
	// reaches into the newest message stays even over budget.
	for i := 0; i < len(msgs)-1 && total > budget; i++ {
		if drop[i] || len(links[i]) == 0 {
			continue
		}
		group := pairGroup(links, i)
		cost := 0
		pinned := false
		for _, g := range group {
			if g == len(msgs)-1 {
				pinned = true
			}
			cost += t.estimator.Message(msgs[g])
		}
		if pinned || remaining-len(group) < 1 {
			continue
		}
		for _, g := range group {
			drop[g] = true
		}
		total -= cost
		remaining -= len(group)
	}

	kept := make([]models.ModelMessage, 0, remaining)
	for i, m := range msgs {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	return kept
}

// truncateSliding walks newest-to-oldest, keeping messages while they fit,
// and stops at the first overflow.
func (t *Truncator) truncateSliding(msgs []models.ModelMessage, budget int) []models.ModelMessage {
	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := t.estimator.Message(msgs[i])
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}
	if start == len(msgs) {
		// Nothing fits; keep the newest message anyway.
		start = len(msgs) - 1
	}
	return msgs[start:]
}

// pairLinks maps each message index to the indices it forms complete
// tool_use/tool_result pairs with.
func pairLinks(msgs []models.ModelMessage) [][]int {
	calls := make(map[string]int)
	results := make(map[string]int)
	for i, m := range msgs {
		for _, b := range m.Blocks {
			switch b.Type {
			case "tool_use":
				calls[b.ToolCallID] = i
			case "tool_result":
				results[b.ToolCallID] = i
			}
		}
	}
	links := make([][]int, len(msgs))
	for id, ci := range calls {
		if ri, ok := results[id]; ok {
			links[ci] = append(links[ci], ri)
			links[ri] = append(links[ri], ci)
		}
	}
	return links
}

// pairGroup expands index i to every message transitively linked to it, so
// a call carrying several tool_use blocks drags all of its results along.
func pairGroup(links [][]int, i int) []int {
	seen := map[int]bool{i: true}
	group := []int{i}
	for n := 0; n < len(group); n++ {
		for _, j := range links[group[n]] {
			if !seen[j] {
				seen[j] = true
				group = append(group, j)
			}
		}
	}
	return group
}
