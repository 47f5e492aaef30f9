// Package doctor provides health checks for clawclub configuration and
// runtime. Used by `clawclub doctor`.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/registry"
	"github.com/clawclub/clawclub/internal/store"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"` // pass, warn, fail
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls which check categories to run.
type Options struct {
	SkipNetwork bool // skip tracker and Ollama connectivity checks (for CI/offline)
}

// Run executes all doctor checks and returns a report.
func Run(ctx context.Context, opts Options) *Report {
	report := &Report{}

	cfg, err := config.Load()
	if err != nil {
		report.Checks = append(report.Checks, CheckResult{
			Name: "config_load", Category: "config", Status: "fail",
			Message: fmt.Sprintf("Cannot load config: %v", err),
			Fix:     "Check CLAWCLUB_* env vars and clawclub.config.yaml",
		})
	} else {
		report.Checks = append(report.Checks, checkIdentity(cfg))
		report.Checks = append(report.Checks, checkDataDir(cfg))
		report.Checks = append(report.Checks, checkStateDB(cfg))
		report.Checks = append(report.Checks, checkClaimsDB(ctx, cfg))
		report.Checks = append(report.Checks, checkProvider(cfg))
		if !opts.SkipNetwork {
			report.Checks = append(report.Checks, checkTracker(ctx, cfg))
			if cfg.AnthropicKey == "" && cfg.OpenAIKey == "" {
				report.Checks = append(report.Checks, checkOllama(ctx, cfg))
			}
		}
	}

	for _, c := range report.Checks {
		switch c.Status {
		case "pass":
			report.Summary.Pass++
		case "warn":
			report.Summary.Warn++
		case "fail":
			report.Summary.Fail++
		}
	}

	report.Status = "pass"
	if report.Summary.Warn > 0 {
		report.Status = "warn"
	}
	if report.Summary.Fail > 0 {
		report.Status = "fail"
	}
	return report
}

func checkIdentity(cfg *config.Config) CheckResult {
	if !cfg.HasIdentity() {
		return CheckResult{
			Name: "identity", Category: "config", Status: "fail",
			Message: "agent_id or tracker_token missing",
			Fix:     "Set CLAWCLUB_AGENT_ID and CLAWCLUB_TRACKER_TOKEN",
		}
	}
	return CheckResult{
		Name: "identity", Category: "config", Status: "pass",
		Message: fmt.Sprintf("agent %s, pool %s", cfg.AgentID, cfg.Pool),
	}
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s — %v", cfg.DataDir, err),
			Fix:     "Ensure directory exists and is writable",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s not writable — %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkStateDB(cfg *config.Config) CheckResult {
	st, err := store.New(cfg.StateDBPath(), cfg.AgentID)
	if err != nil {
		return CheckResult{
			Name: "state_db", Category: "storage", Status: "fail",
			Message: fmt.Sprintf("%v", err),
		}
	}
	_ = st.Close()
	return CheckResult{
		Name: "state_db", Category: "storage", Status: "pass",
		Message: cfg.StateDBPath(),
	}
}

func checkClaimsDB(ctx context.Context, cfg *config.Config) CheckResult {
	reg, err := registry.Open(cfg.ClaimsDBPath())
	if err != nil {
		return CheckResult{
			Name: "claims_db", Category: "storage", Status: "fail",
			Message: fmt.Sprintf("%v", err),
		}
	}
	defer reg.Close()
	count, err := reg.Count(ctx)
	if err != nil {
		return CheckResult{
			Name: "claims_db", Category: "storage", Status: "warn",
			Message: fmt.Sprintf("opened but unreadable: %v", err),
		}
	}
	return CheckResult{
		Name: "claims_db", Category: "storage", Status: "pass",
		Message: fmt.Sprintf("%s (%d claimed items)", cfg.ClaimsDBPath(), count),
	}
}

func checkProvider(cfg *config.Config) CheckResult {
	switch {
	case cfg.AnthropicKey != "":
		return CheckResult{Name: "llm_provider", Category: "config", Status: "pass", Message: "anthropic (key set)"}
	case cfg.OpenAIKey != "":
		return CheckResult{Name: "llm_provider", Category: "config", Status: "pass", Message: "openai (key set)"}
	default:
		return CheckResult{
			Name: "llm_provider", Category: "config", Status: "warn",
			Message: "no API key configured, will fall back to local Ollama",
			Fix:     "Set CLAWCLUB_ANTHROPIC_API_KEY or CLAWCLUB_OPENAI_API_KEY",
		}
	}
}

func checkTracker(ctx context.Context, cfg *config.Config) CheckResult {
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.TrackerBaseURL, nil)
	if err != nil {
		return CheckResult{
			Name: "tracker_reachable", Category: "network", Status: "fail",
			Message: fmt.Sprintf("invalid tracker URL: %v", err),
		}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return CheckResult{
			Name: "tracker_reachable", Category: "network", Status: "fail",
			Message: fmt.Sprintf("connection failed: %v", err),
			Fix:     "Check network connectivity and tracker_base_url",
		}
	}
	resp.Body.Close()
	return CheckResult{
		Name: "tracker_reachable", Category: "network", Status: "pass",
		Message: fmt.Sprintf("%s — %dms", cfg.TrackerBaseURL, time.Since(start).Milliseconds()),
	}
}

func checkOllama(ctx context.Context, cfg *config.Config) CheckResult {
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.OllamaBaseURL+"/api/tags", nil)
	if err != nil {
		return CheckResult{
			Name: "ollama_reachable", Category: "network", Status: "fail",
			Message: fmt.Sprintf("invalid Ollama URL: %v", err),
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return CheckResult{
			Name: "ollama_reachable", Category: "network", Status: "fail",
			Message: fmt.Sprintf("connection failed: %v", err),
			Fix:     "Start Ollama or configure a hosted provider key",
		}
	}
	resp.Body.Close()
	return CheckResult{
		Name: "ollama_reachable", Category: "network", Status: "pass",
		Message: cfg.OllamaBaseURL,
	}
}
