// Package ratelimit holds the per-category daily claim ceilings.
package ratelimit

import (
	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/item"
	"github.com/clawclub/clawclub/internal/ledger"
)

// maxBattlesPerDay is a fixed ceiling of one battle per day. Unlike the
// task ceiling it is not configurable; see DESIGN.md before changing.
const maxBattlesPerDay = 1

// CanClaim reports whether the day's counters leave room for another
// claim of the given kind. Pure predicate; counters are only advanced by
// the ledger after a successful submission.
func CanClaim(kind item.Kind, stats ledger.DailyStats, prefs config.Preferences) bool {
	switch kind {
	case item.KindBattle:
		return stats.BattlesJoined < maxBattlesPerDay
	case item.KindTask:
		return stats.TasksCompleted < prefs.ForGood.MaxTasksPerDay
	default:
		return false
	}
}
