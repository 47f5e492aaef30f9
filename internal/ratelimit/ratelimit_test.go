package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/item"
	"github.com/clawclub/clawclub/internal/ledger"
)

func prefsWithTaskCeiling(n int) config.Preferences {
	return config.Preferences{ForGood: config.ForGoodPrefs{Enabled: true, MaxTasksPerDay: n}}
}

func TestCanClaim_BattleCeilingIsOne(t *testing.T) {
	prefs := prefsWithTaskCeiling(5)

	assert.True(t, CanClaim(item.KindBattle, ledger.DailyStats{BattlesJoined: 0}, prefs))
	assert.False(t, CanClaim(item.KindBattle, ledger.DailyStats{BattlesJoined: 1}, prefs))
	assert.False(t, CanClaim(item.KindBattle, ledger.DailyStats{BattlesJoined: 2}, prefs))
}

func TestCanClaim_TaskCeilingIsConfigurable(t *testing.T) {
	prefs := prefsWithTaskCeiling(3)

	assert.True(t, CanClaim(item.KindTask, ledger.DailyStats{TasksCompleted: 2}, prefs))
	assert.False(t, CanClaim(item.KindTask, ledger.DailyStats{TasksCompleted: 3}, prefs))
}

func TestCanClaim_ZeroTaskCeilingBlocksAll(t *testing.T) {
	assert.False(t, CanClaim(item.KindTask, ledger.DailyStats{}, prefsWithTaskCeiling(0)))
}

func TestCanClaim_IndependentCounters(t *testing.T) {
	// a joined battle never consumes task headroom and vice versa
	prefs := prefsWithTaskCeiling(1)
	stats := ledger.DailyStats{BattlesJoined: 1, TasksCompleted: 0}

	assert.False(t, CanClaim(item.KindBattle, stats, prefs))
	assert.True(t, CanClaim(item.KindTask, stats, prefs))
}

func TestCanClaim_UnknownKind(t *testing.T) {
	assert.False(t, CanClaim(item.Kind("raid"), ledger.DailyStats{}, prefsWithTaskCeiling(5)))
}
