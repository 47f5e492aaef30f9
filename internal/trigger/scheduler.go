// Package trigger implements cron scheduling and webhook handling for
// claim invocations.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// invocationTimeout bounds a single triggered run, including the
// completion call and tracker round-trips.
const invocationTimeout = 10 * time.Minute

// Runner is the interface for executing claim runs from triggers.
type Runner interface {
	Run(ctx context.Context, invocationType string) error
}

// Scheduler fires claim runs on a fixed cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
}

// NewScheduler creates a scheduler backed by the given runner.
// Cron expressions use the standard 5-field format: minute hour
// day-of-month month day-of-week (e.g. "*/15 * * * *" for every
// fifteen minutes). Do not use WithSeconds() so docs and configs match.
func NewScheduler(runner Runner) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
	}
}

// RegisterPoll adds the poll entry. A run that returns an error is
// logged and retried at the next tick; the scheduler never stops.
func (s *Scheduler) RegisterPoll(expr string) error {
	_, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), invocationTimeout)
		defer cancel()

		log.Info().Str("cron", expr).Msg("scheduled_poll_fired")

		if err := s.runner.Run(ctx, "scheduled"); err != nil {
			log.Error().Err(err).Msg("scheduled_poll_failed")
		}
	})
	if err != nil {
		return fmt.Errorf("registering poll cron %q: %w", expr, err)
	}
	return nil
}

// Start begins executing the registered cron entries.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running poll to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Entries returns the number of registered cron entries (for testing).
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
