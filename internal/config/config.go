// Package config resolves operator configuration for a clawclub agent.
//
// Configuration comes from two places and only two places: the YAML file
// (clawclub.config.yaml in ~/.clawclub or the working directory) and env
// vars with the CLAWCLUB_ prefix. Env always wins. Resolution happens
// once, here — core packages receive typed structs and never touch the
// environment themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the CLAWCLUB_ prefix
// (e.g. "tracker_token" → CLAWCLUB_TRACKER_TOKEN) and to a YAML field
// in clawclub.config.yaml.
const (
	KeyDataDir        = "data_dir"
	KeyAgentID        = "agent_id"
	KeyTrackerToken   = "tracker_token"
	KeyTrackerBaseURL = "tracker_base_url"
	KeyPool           = "pool"
	KeyOllamaBaseURL  = "ollama_base_url"
	KeyAnthropicKey   = "anthropic_api_key"
	KeyOpenAIKey      = "openai_api_key"
	KeyModel          = "model"

	KeyDailyTokens    = "daily_tokens"
	KeyMaxPerBattle   = "max_per_battle"
	KeyMaxPerTask     = "max_per_task"
	KeyReservePercent = "reserve_percent"

	KeyPollCron   = "poll_cron"
	KeyListenAddr = "listen_addr"
)

// Defaults.
const (
	DefaultTrackerBaseURL = "https://api.github.com"
	DefaultPool           = "clawclub/arena"
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultDailyTokens    = 100000
	DefaultMaxPerBattle   = 4000
	DefaultMaxPerTask     = 8000
	DefaultReservePercent = 10
	DefaultMaxTasksPerDay = 3
	DefaultPollCron       = "*/15 * * * *"
	DefaultListenAddr     = ":8420"
)

// BudgetConfig is the daily token budget. Immutable per run.
type BudgetConfig struct {
	DailyTokens    int
	MaxPerBattle   int
	MaxPerTask     int
	ReservePercent int // 0–100, carved off the nominal ceiling
}

// ArenaPrefs configures competitive battle participation. The daily
// battle ceiling is fixed at one and intentionally has no knob here.
type ArenaPrefs struct {
	Enabled    bool     `mapstructure:"enabled"`
	Categories []string `mapstructure:"categories"`
	Interests  []string `mapstructure:"interests"`
}

// ForGoodPrefs configures volunteer task participation.
type ForGoodPrefs struct {
	Enabled        bool     `mapstructure:"enabled"`
	Categories     []string `mapstructure:"categories"`
	Interests      []string `mapstructure:"interests"`
	MaxTasksPerDay int      `mapstructure:"max_tasks_per_day"`
}

// Preferences holds the owner's participation profiles.
type Preferences struct {
	Arena   ArenaPrefs   `mapstructure:"arena"`
	ForGood ForGoodPrefs `mapstructure:"for_good"`
}

// Config holds resolved configuration for a clawclub process.
type Config struct {
	DataDir        string // base directory for all state (~/.clawclub)
	AgentID        string // this agent's identity on the tracker
	TrackerToken   string // API token for the issue pool
	TrackerBaseURL string
	Pool           string // owner/repo of the shared item pool
	OllamaBaseURL  string
	AnthropicKey   string
	OpenAIKey      string
	Model          string // completion model override; providers pick a default when empty
	PollCron       string // 5-field cron expression for scheduled polls
	ListenAddr     string // bind address for serve mode

	Budget BudgetConfig
	Prefs  Preferences
}

// HasIdentity reports whether the agent can authenticate against the pool.
// Runs without identity must abort before touching any candidate.
func (c *Config) HasIdentity() bool {
	return c.AgentID != "" && c.TrackerToken != ""
}

// StateDBPath returns the path to the key-value state database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// ClaimsDBPath returns the path to the claimed-items database.
func (c *Config) ClaimsDBPath() string {
	return filepath.Join(c.DataDir, "claims.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

func init() { configureViper() }

// configureViper registers the env prefix and defaults. Idempotent; Load
// re-runs it so the package keeps working after a viper.Reset().
func configureViper() {
	viper.SetEnvPrefix("CLAWCLUB")
	viper.AutomaticEnv()
	viper.SetDefault(KeyTrackerBaseURL, DefaultTrackerBaseURL)
	viper.SetDefault(KeyPool, DefaultPool)
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyDailyTokens, DefaultDailyTokens)
	viper.SetDefault(KeyMaxPerBattle, DefaultMaxPerBattle)
	viper.SetDefault(KeyMaxPerTask, DefaultMaxPerTask)
	viper.SetDefault(KeyReservePercent, DefaultReservePercent)
	viper.SetDefault(KeyPollCron, DefaultPollCron)
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
}

// Load reads configuration from Viper (env vars over config file over
// defaults) and returns a validated Config.
func Load() (*Config, error) {
	configureViper()
	cfg := &Config{
		DataDir:        resolveDataDir(),
		AgentID:        viper.GetString(KeyAgentID),
		TrackerToken:   viper.GetString(KeyTrackerToken),
		TrackerBaseURL: viper.GetString(KeyTrackerBaseURL),
		Pool:           viper.GetString(KeyPool),
		OllamaBaseURL:  viper.GetString(KeyOllamaBaseURL),
		AnthropicKey:   viper.GetString(KeyAnthropicKey),
		OpenAIKey:      viper.GetString(KeyOpenAIKey),
		Model:          viper.GetString(KeyModel),
		PollCron:       viper.GetString(KeyPollCron),
		ListenAddr:     viper.GetString(KeyListenAddr),
		Budget: BudgetConfig{
			DailyTokens:    viper.GetInt(KeyDailyTokens),
			MaxPerBattle:   viper.GetInt(KeyMaxPerBattle),
			MaxPerTask:     viper.GetInt(KeyMaxPerTask),
			ReservePercent: viper.GetInt(KeyReservePercent),
		},
	}

	var filePrefs Preferences
	if err := viper.UnmarshalKey("preferences", &filePrefs); err != nil {
		return nil, fmt.Errorf("parsing preferences: %w", err)
	}
	cfg.Prefs = MergePreferences(filePrefs, overridesFromEnv())

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawclub"
	}
	return filepath.Join(home, ".clawclub")
}

func (c *Config) validate() error {
	b := c.Budget
	if b.DailyTokens <= 0 {
		return fmt.Errorf("daily_tokens must be positive")
	}
	if b.MaxPerBattle <= 0 || b.MaxPerTask <= 0 {
		return fmt.Errorf("max_per_battle and max_per_task must be positive")
	}
	if b.ReservePercent < 0 || b.ReservePercent > 100 {
		return fmt.Errorf("reserve_percent must be between 0 and 100 (got %d)", b.ReservePercent)
	}
	if c.Prefs.ForGood.MaxTasksPerDay < 0 {
		return fmt.Errorf("for_good.max_tasks_per_day must not be negative")
	}
	if c.Prefs.ForGood.Enabled && c.Prefs.ForGood.MaxTasksPerDay == 0 {
		c.Prefs.ForGood.MaxTasksPerDay = DefaultMaxTasksPerDay
	}
	return nil
}

// PreferenceOverrides carries env-sourced preference values. Nil fields
// mean "not set"; MergePreferences leaves the file value in place.
type PreferenceOverrides struct {
	ArenaEnabled      *bool
	ArenaCategories   []string
	ArenaInterests    []string
	ForGoodEnabled    *bool
	ForGoodCategories []string
	ForGoodInterests  []string
	MaxTasksPerDay    *int
}

// MergePreferences applies overrides on top of file preferences and
// returns the merged result. Pure — both inputs are left untouched.
func MergePreferences(file Preferences, o PreferenceOverrides) Preferences {
	merged := file
	if o.ArenaEnabled != nil {
		merged.Arena.Enabled = *o.ArenaEnabled
	}
	if o.ArenaCategories != nil {
		merged.Arena.Categories = o.ArenaCategories
	}
	if o.ArenaInterests != nil {
		merged.Arena.Interests = o.ArenaInterests
	}
	if o.ForGoodEnabled != nil {
		merged.ForGood.Enabled = *o.ForGoodEnabled
	}
	if o.ForGoodCategories != nil {
		merged.ForGood.Categories = o.ForGoodCategories
	}
	if o.ForGoodInterests != nil {
		merged.ForGood.Interests = o.ForGoodInterests
	}
	if o.MaxTasksPerDay != nil {
		merged.ForGood.MaxTasksPerDay = *o.MaxTasksPerDay
	}
	return merged
}

// overridesFromEnv reads CLAWCLUB_ARENA_* / CLAWCLUB_FOR_GOOD_* env vars.
// List values are comma-separated.
func overridesFromEnv() PreferenceOverrides {
	var o PreferenceOverrides
	o.ArenaEnabled = envBool("CLAWCLUB_ARENA_ENABLED")
	o.ArenaCategories = envList("CLAWCLUB_ARENA_CATEGORIES")
	o.ArenaInterests = envList("CLAWCLUB_ARENA_INTERESTS")
	o.ForGoodEnabled = envBool("CLAWCLUB_FOR_GOOD_ENABLED")
	o.ForGoodCategories = envList("CLAWCLUB_FOR_GOOD_CATEGORIES")
	o.ForGoodInterests = envList("CLAWCLUB_FOR_GOOD_INTERESTS")
	o.MaxTasksPerDay = envInt("CLAWCLUB_FOR_GOOD_MAX_TASKS_PER_DAY")
	return o
}

func envBool(name string) *bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	b := v == "1" || strings.EqualFold(v, "true")
	return &b
}

func envInt(name string) *int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func envList(name string) []string {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
