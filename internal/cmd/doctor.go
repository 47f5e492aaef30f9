package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawclub/clawclub/internal/doctor"
)

var doctorSkipNetwork bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks (identity, data dir, databases, provider)",
	Long:  "Verifies the agent identity is configured, the data directory is writable, both SQLite databases open, an LLM provider is available, and the tracker is reachable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		ctx, span := tracer.Start(ctx, "doctor")
		defer span.End()

		report := doctor.Run(ctx, doctor.Options{SkipNetwork: doctorSkipNetwork})
		renderReport(cmd.OutOrStdout(), report)

		if report.Status == "fail" {
			return fmt.Errorf("preflight checks failed")
		}
		return nil
	},
}

// renderReport writes the doctor report to w (testable).
func renderReport(w io.Writer, report *doctor.Report) {
	for _, c := range report.Checks {
		mark := "✓"
		switch c.Status {
		case "warn":
			mark = "⚠"
		case "fail":
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, c.Name, c.Message)
		if c.Fix != "" && c.Status != "pass" {
			fmt.Fprintf(w, "  fix: %s\n", c.Fix)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d warnings, %d failed.\n",
		report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorSkipNetwork, "skip-network", false, "skip tracker and Ollama connectivity checks")
	rootCmd.AddCommand(doctorCmd)
}
