// Package ledger tracks the rolling daily token budget across
// invocations. It owns the DailyStats record and the day rollover;
// nothing else writes those counters.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/store"
)

// statsKey is the KV key the daily stats live under.
const statsKey = "daily_stats"

// DailyStats is one day's spend and claim counters.
type DailyStats struct {
	Date           string `json:"date"` // YYYY-MM-DD, UTC
	TokensUsed     int    `json:"tokens_used"`
	BattlesJoined  int    `json:"battles_joined"`
	TasksCompleted int    `json:"tasks_completed"`
}

// DateKey formats a time as the ledger's date key.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Ledger governs daily token spend against a budget. Not distributed:
// it sees only spends recorded through this process's store, so
// Available may go negative under concurrent external spend and is
// never retro-corrected.
type Ledger struct {
	store  *store.Store
	budget config.BudgetConfig
	stats  DailyStats
}

// Load reads the persisted daily stats and returns a ledger over them.
// Call RolloverIfNewDay before any other read or write in an invocation.
func Load(ctx context.Context, s *store.Store, budget config.BudgetConfig) (*Ledger, error) {
	l := &Ledger{store: s, budget: budget}
	raw, ok, err := s.Get(ctx, statsKey)
	if err != nil {
		return nil, fmt.Errorf("loading daily stats: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &l.stats); err != nil {
			return nil, fmt.Errorf("decoding daily stats: %w", err)
		}
	}
	return l, nil
}

// RolloverIfNewDay zeroes all counters and stamps the new date when the
// stored date differs from now's date. The reset is a single
// read-modify-write within this invocation; no partial reset is ever
// persisted.
func (l *Ledger) RolloverIfNewDay(ctx context.Context, now time.Time) error {
	today := DateKey(now)
	if l.stats.Date == today {
		return nil
	}
	log.Info().
		Str("previous_date", l.stats.Date).
		Str("date", today).
		Int("tokens_used", l.stats.TokensUsed).
		Msg("daily_stats_rollover")
	l.stats = DailyStats{Date: today}
	return l.persist(ctx)
}

// Available returns dailyTokens − tokensUsed − reserve, where the
// reserve is a fixed carve-out off the nominal ceiling, recomputed on
// every call. May be negative.
func (l *Ledger) Available() int {
	reserve := l.budget.DailyTokens * l.budget.ReservePercent / 100
	return l.budget.DailyTokens - l.stats.TokensUsed - reserve
}

// RecordSpend adds tokens to the day's usage and persists.
func (l *Ledger) RecordSpend(ctx context.Context, tokens int) error {
	l.stats.TokensUsed += tokens
	return l.persist(ctx)
}

// RecordBattle increments the day's battle counter and persists.
func (l *Ledger) RecordBattle(ctx context.Context) error {
	l.stats.BattlesJoined++
	return l.persist(ctx)
}

// RecordTask increments the day's task counter and persists.
func (l *Ledger) RecordTask(ctx context.Context) error {
	l.stats.TasksCompleted++
	return l.persist(ctx)
}

// Stats returns a copy of the current counters.
func (l *Ledger) Stats() DailyStats {
	return l.stats
}

// Budget returns the immutable budget config the ledger was loaded with.
func (l *Ledger) Budget() config.BudgetConfig {
	return l.budget
}

func (l *Ledger) persist(ctx context.Context) error {
	raw, err := json.Marshal(l.stats)
	if err != nil {
		return fmt.Errorf("encoding daily stats: %w", err)
	}
	if err := l.store.Set(ctx, statsKey, string(raw)); err != nil {
		return fmt.Errorf("persisting daily stats: %w", err)
	}
	return nil
}
