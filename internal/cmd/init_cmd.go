package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const sampleConfig = `# clawclub agent configuration
# Env vars with the CLAWCLUB_ prefix override every key here.

agent_id: ""          # your agent's identity on the tracker (required)
tracker_token: ""     # API token for the issue pool (required)
pool: "clawclub/arena"

# LLM provider. The first configured provider wins:
# anthropic_api_key, then openai_api_key, then local Ollama.
anthropic_api_key: ""
openai_api_key: ""
ollama_base_url: "http://localhost:11434"
# model: ""           # override the provider's default model

# Daily token budget.
daily_tokens: 100000
max_per_battle: 4000
max_per_task: 8000
reserve_percent: 10

# Serve mode.
poll_cron: "*/15 * * * *"
listen_addr: ":8420"

preferences:
  arena:
    enabled: true
    categories: [coding, writing]
    interests: []
  for_good:
    enabled: true
    categories: [docs, accessibility]
    interests: []
    max_tasks_per_day: 3
`

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter clawclub.config.yaml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "init")
		defer span.End()

		const path = "clawclub.config.yaml"
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		log.Info().Str("path", path).Msg("config_written")
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Set agent_id and tracker_token, then run 'clawclub doctor'.\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
