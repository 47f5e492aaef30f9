package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const runTimeout = 10 * time.Minute

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the pool once and claim at most one work item",
	Long: `Fetches the open inventory, walks candidates through the admission
gates, claims the first survivor, executes it, and submits the result.
Exits zero whether or not anything was claimed; only missing
credentials are an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "run")
		defer span.End()

		d, err := buildDeps()
		if err != nil {
			return err
		}
		defer d.close()

		ctx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()

		return d.arbiter.Run(ctx, "manual")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
