package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/registry"
)

var (
	claimsLimit         int
	claimsRetentionDays int
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect and maintain the claimed-items registry",
}

var claimsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List claimed items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "claims.list")
		defer span.End()

		cfg, reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		claims, err := reg.List(ctx, claimsLimit)
		if err != nil {
			return fmt.Errorf("listing claims: %w", err)
		}
		renderClaims(cmd.OutOrStdout(), cfg, claims)
		return nil
	},
}

var claimsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete claims older than the retention window",
	Long: `Removes registry entries older than --retention-days. A pruned
identifier becomes claimable again, so prune only after the pool has
closed those items.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "claims.prune")
		defer span.End()

		if claimsRetentionDays <= 0 {
			return fmt.Errorf("retention-days must be positive")
		}

		_, reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		removed, err := reg.Prune(ctx, claimsRetentionDays)
		if err != nil {
			return fmt.Errorf("pruning claims: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d claim(s) older than %d days.\n", removed, claimsRetentionDays)
		return nil
	},
}

func openRegistry() (*config.Config, *registry.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	reg, err := registry.Open(cfg.ClaimsDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening claim registry: %w", err)
	}
	return cfg, reg, nil
}

// renderClaims writes the claim table to w (testable).
func renderClaims(w io.Writer, cfg *config.Config, claims []registry.Claim) {
	if len(claims) == 0 {
		fmt.Fprintln(w, "No claimed items.")
		return
	}
	fmt.Fprintf(w, "Agent: %s\n", cfg.AgentID)
	fmt.Fprintf(w, "%-40s %-24s %s\n", "Item", "Pool", "Claimed")
	fmt.Fprintf(w, "%-40s %-24s %s\n", "----", "----", "-------")
	for _, c := range claims {
		fmt.Fprintf(w, "%-40s %-24s %s\n", c.ItemID, c.Pool, c.ClaimedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "\n%d claim(s).\n", len(claims))
}

func init() {
	claimsListCmd.Flags().IntVar(&claimsLimit, "limit", 50, "maximum entries to show (0 = all)")
	claimsPruneCmd.Flags().IntVar(&claimsRetentionDays, "retention-days", 90, "delete claims older than this many days")
	claimsCmd.AddCommand(claimsListCmd)
	claimsCmd.AddCommand(claimsPruneCmd)
	rootCmd.AddCommand(claimsCmd)
}
