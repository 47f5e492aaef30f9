package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's budget and activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "status")
		defer span.End()

		d, err := buildDeps()
		if err != nil {
			return err
		}
		defer d.close()

		led, err := ledger.Load(ctx, d.state, d.cfg.Budget)
		if err != nil {
			return fmt.Errorf("loading budget ledger: %w", err)
		}
		if err := led.RolloverIfNewDay(ctx, time.Now()); err != nil {
			return fmt.Errorf("rolling over budget ledger: %w", err)
		}
		claims, err := d.registry.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting claims: %w", err)
		}

		renderStatus(cmd.OutOrStdout(), d.cfg, led, claims)
		return nil
	},
}

// renderStatus writes the budget and activity snapshot to w (testable).
func renderStatus(w io.Writer, cfg *config.Config, led *ledger.Ledger, claims int) {
	stats := led.Stats()
	reserve := cfg.Budget.DailyTokens * cfg.Budget.ReservePercent / 100

	fmt.Fprintf(w, "Agent: %s | Pool: %s | Date: %s\n", cfg.AgentID, cfg.Pool, stats.Date)
	fmt.Fprintf(w, "%-18s %10s\n", "Budget", "Tokens")
	fmt.Fprintf(w, "%-18s %10s\n", "------", "------")
	fmt.Fprintf(w, "%-18s %10d\n", "Daily ceiling", cfg.Budget.DailyTokens)
	fmt.Fprintf(w, "%-18s %10d\n", "Used", stats.TokensUsed)
	fmt.Fprintf(w, "%-18s %10d\n", "Reserve", reserve)
	fmt.Fprintf(w, "%-18s %10d\n", "Available", led.Available())
	fmt.Fprintf(w, "\nBattles joined:  %d / 1\n", stats.BattlesJoined)
	fmt.Fprintf(w, "Tasks completed: %d / %d\n", stats.TasksCompleted, cfg.Prefs.ForGood.MaxTasksPerDay)
	fmt.Fprintf(w, "Items ever claimed: %d\n", claims)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
