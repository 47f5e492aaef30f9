package cmd

import (
	"fmt"

	"github.com/clawclub/clawclub/internal/arbiter"
	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/llm"
	"github.com/clawclub/clawclub/internal/match"
	"github.com/clawclub/clawclub/internal/registry"
	"github.com/clawclub/clawclub/internal/store"
	"github.com/clawclub/clawclub/internal/tracker"
)

// deps bundles everything a claim invocation needs, plus the handles
// the serve command reuses for its HTTP surface.
type deps struct {
	cfg      *config.Config
	state    *store.Store
	registry *registry.Registry
	arbiter  *arbiter.Arbiter
}

func (d *deps) close() {
	_ = d.registry.Close()
	_ = d.state.Close()
}

// buildDeps loads config and wires the arbiter's collaborators. The
// caller must close() the result.
func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	state, err := store.New(cfg.StateDBPath(), cfg.AgentID)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	reg, err := registry.Open(cfg.ClaimsDBPath())
	if err != nil {
		_ = state.Close()
		return nil, fmt.Errorf("opening claim registry: %w", err)
	}

	provider, err := llm.Resolve(cfg)
	if err != nil {
		_ = reg.Close()
		_ = state.Close()
		return nil, fmt.Errorf("resolving LLM provider: %w", err)
	}

	classifier := match.NewLLMClassifier(provider, cfg.Model)
	matcher := match.NewEngine(state, classifier, cfg.Prefs)
	pool := tracker.New(cfg.TrackerBaseURL, cfg.TrackerToken)

	arb := arbiter.New(arbiter.Config{
		Cfg:      cfg,
		Pool:     pool,
		State:    state,
		Registry: reg,
		Matcher:  matcher,
		Provider: provider,
	})

	return &deps{cfg: cfg, state: state, registry: reg, arbiter: arb}, nil
}
