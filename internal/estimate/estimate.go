// Package estimate derives admission-control token costs for candidate
// items. Estimates are heuristics, not post-hoc accounting: the ledger
// records the estimate, not a measured actual.
package estimate

import (
	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/item"
)

// charsPerToken is the usual rough prompt-length heuristic.
const charsPerToken = 4

// Cost returns the token estimate for working an item: input tokens from
// the effective prompt length (the raw body when no explicit prompt is
// embedded), plus the full output allowance for the item's kind.
func Cost(it *item.Item, budget config.BudgetConfig) int {
	promptLen := len(it.EffectivePrompt())
	if item.ParseBodyConfig(it.Body)["prompt"] == "" {
		promptLen = len(it.Body)
	}
	input := (promptLen + charsPerToken - 1) / charsPerToken

	output := budget.MaxPerTask
	if it.Kind == item.KindBattle {
		output = budget.MaxPerBattle
	}
	return input + output
}
