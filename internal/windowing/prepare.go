package windowing

import (
	"errors"
	"fmt"

	"github.com/petasbytes/deepagent/memory"
)

// ErrOverBudget is returned by Apply when the newest group alone exceeds the budget.
var ErrOverBudget = errors.New("windowing: newest group exceeds token budget")

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated tokens for included groups only.
// - Budget: the input token budget used.
// - IncludedGroups / SkippedGroups: groups kept and dropped.
// - TrimmedLeadingAssistant: an assistant group that fit was dropped from the front.
// - OverBudgetNewest: the newest single group alone exceeds Budget.
type Stats struct {
	Total                   int
	Budget                  int
	IncludedGroups          int
	SkippedGroups           int
	TrimmedLeadingAssistant bool
	OverBudgetNewest        bool
}

// PrepareSendWindow returns the suffix of msgs (oldest→newest) that fits within
// budget according to c, without splitting groups.
//
// Rules:
// - Include whole groups scanning newest→oldest while total ≤ budget.
// - If the newest group alone exceeds budget, return an empty window and set OverBudgetNewest.
// - If budget ≤ 0, return an empty window (OverBudgetNewest set when any groups exist).
// - Drop a leading assistant group when at least one other group remains.
func PrepareSendWindow(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}
	groups := GroupMessages(msgs)

	if budget <= 0 {
		return nil, Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
	}

	total, included := 0, 0
	startIdx := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], msgs)
		if included == 0 && cost > budget {
			return nil, Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
		}
		if total+cost > budget {
			break
		}
		total += cost
		included++
		startIdx = gi
	}

	stats := Stats{Budget: budget}
	if included > 1 && groups[startIdx].Role == memory.RoleAssistant {
		total -= c.CountGroup(groups[startIdx], msgs)
		included--
		startIdx++
		stats.TrimmedLeadingAssistant = true
	}
	stats.Total = total
	stats.IncludedGroups = included
	stats.SkippedGroups = len(groups) - included
	return msgs[groups[startIdx].Start:], stats
}

// Apply is PrepareSendWindow with the over-budget case reported as ErrOverBudget.
func Apply(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats, error) {
	window, stats := PrepareSendWindow(msgs, budget, c)
	if stats.OverBudgetNewest {
		return nil, stats, fmt.Errorf("%w (budget=%d)", ErrOverBudget, budget)
	}
	return window, stats, nil
}
