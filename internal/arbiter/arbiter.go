// Package arbiter implements one invocation of the claim engine.
//
// Candidates are walked strictly in source order through the admission
// gates: dedup → budget → match → rate limit. The first candidate that
// also survives the claim post is committed to the registry before
// execution begins — an eager commit that narrows the race window
// against competing agents at the cost of orphaning the item if
// execution later fails. One successful claim ends the run; remaining
// inventory is left for other agents.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/estimate"
	"github.com/clawclub/clawclub/internal/item"
	"github.com/clawclub/clawclub/internal/ledger"
	"github.com/clawclub/clawclub/internal/llm"
	clubotel "github.com/clawclub/clawclub/internal/otel"
	"github.com/clawclub/clawclub/internal/ratelimit"
	"github.com/clawclub/clawclub/internal/registry"
	"github.com/clawclub/clawclub/internal/store"
	"github.com/clawclub/clawclub/internal/tracker"
)

var tracer = clubotel.Tracer("github.com/clawclub/clawclub/internal/arbiter")

// ErrMissingCredentials aborts the entire invocation: without an agent
// identity and tracker token no candidate can be claimed or submitted.
var ErrMissingCredentials = errors.New("agent_id and tracker_token are required")

// Pool is the issue-pool collaborator (implemented by tracker.Client).
type Pool interface {
	List(ctx context.Context, pool, state string) ([]item.Item, error)
	Claim(ctx context.Context, pool string, number int, agentID string) error
	Submit(ctx context.Context, pool string, number int, agentID, result string, meta tracker.SubmitMeta) error
	CreateWorkspace(ctx context.Context, name, description, template string) (string, error)
}

// Matcher is the preference-matching collaborator (implemented by match.Engine).
type Matcher interface {
	Matches(ctx context.Context, it *item.Item) (bool, error)
}

// Arbiter orchestrates one claim invocation.
type Arbiter struct {
	cfg      *config.Config
	pool     Pool
	state    *store.Store
	registry *registry.Registry
	matcher  Matcher
	provider llm.Provider
	now      func() time.Time
}

// Config holds the dependencies for constructing an Arbiter.
type Config struct {
	Cfg      *config.Config
	Pool     Pool
	State    *store.Store
	Registry *registry.Registry
	Matcher  Matcher
	Provider llm.Provider
}

// New creates an arbiter with the given collaborators.
func New(c Config) *Arbiter {
	return &Arbiter{
		cfg:      c.Cfg,
		pool:     c.Pool,
		state:    c.State,
		registry: c.Registry,
		matcher:  c.Matcher,
		provider: c.Provider,
		now:      time.Now,
	}
}

// Run executes one invocation: fetch candidates, arbitrate, claim at
// most one, execute and submit it, record the spend. Every failure mode
// except missing credentials degrades to "no claim this run" — the
// returned error is non-nil only for ErrMissingCredentials.
//
//nolint:gocyclo // the gate sequence is inherently branched; splitting it would obscure the order
func (a *Arbiter) Run(ctx context.Context, invocationType string) error {
	if !a.cfg.HasIdentity() {
		log.Error().Msg("missing_credentials")
		return ErrMissingCredentials
	}

	correlationID := "run_" + uuid.New().String()[:12]
	ctx, span := tracer.Start(ctx, "arbiter.run",
		trace.WithAttributes(
			attribute.String("correlation_id", correlationID),
			attribute.String("agent_id", a.cfg.AgentID),
			attribute.String("pool", a.cfg.Pool),
			attribute.String("invocation_type", invocationType),
		))
	defer span.End()

	log.Info().
		Str("correlation_id", correlationID).
		Str("agent_id", a.cfg.AgentID).
		Str("pool", a.cfg.Pool).
		Str("invocation_type", invocationType).
		Msg("invocation_started")

	led, err := ledger.Load(ctx, a.state, a.cfg.Budget)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("ledger_unavailable")
		return nil
	}
	if err := led.RolloverIfNewDay(ctx, a.now()); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("rollover_failed")
		return nil
	}

	candidates, err := a.pool.List(ctx, a.cfg.Pool, "open")
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Msg("candidate_fetch_failed")
		return nil
	}
	span.SetAttributes(attribute.Int("candidates.total", len(candidates)))

	for i := range candidates {
		it := &candidates[i]
		verdict := a.evaluateGates(ctx, it, led)
		if verdict != gatePassed {
			gateRejections.Add(ctx, 1)
			continue
		}

		// Step 5: claim. Failure leaves the item unowned and unregistered.
		if err := a.pool.Claim(ctx, it.Pool, it.Number, a.cfg.AgentID); err != nil {
			log.Warn().Err(err).
				Str("correlation_id", correlationID).
				Str("item_id", it.ID).
				Msg("claim_failed")
			continue
		}
		claimsTotal.Add(ctx, 1)

		// Step 6: eager commit. From here the item is ours forever,
		// even if everything after this line fails.
		if err := a.registry.Add(ctx, it.ID, it.Pool); err != nil {
			log.Error().Err(err).Str("item_id", it.ID).Msg("registry_commit_failed")
		}
		log.Info().
			Str("correlation_id", correlationID).
			Str("item_id", it.ID).
			Str("kind", string(it.Kind)).
			Msg("claim_committed")

		a.completeClaim(ctx, span, correlationID, it, led)
		return nil
	}

	log.Info().
		Str("correlation_id", correlationID).
		Int("candidates", len(candidates)).
		Msg("no_claim_this_run")
	return nil
}

// gateVerdict reports which admission gate, if any, rejected a candidate.
type gateVerdict string

const (
	gatePassed    gateVerdict = "passed"
	gateDedup     gateVerdict = "dedup"
	gateBudget    gateVerdict = "budget"
	gateMatch     gateVerdict = "match"
	gateRateLimit gateVerdict = "rate_limit"
)

// evaluateGates applies dedup → budget → match → rate limit, in order.
// The first failing gate wins; rejections are informational, not errors.
func (a *Arbiter) evaluateGates(ctx context.Context, it *item.Item, led *ledger.Ledger) gateVerdict {
	claimed, err := a.registry.Has(ctx, it.ID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", it.ID).Msg("dedup_check_failed")
		return gateDedup
	}
	if claimed {
		return gateDedup
	}

	cost := estimate.Cost(it, a.cfg.Budget)
	if cost > led.Available() {
		log.Info().
			Str("item_id", it.ID).
			Int("estimate", cost).
			Int("available", led.Available()).
			Msg("budget_gate_rejected")
		return gateBudget
	}

	matched, err := a.matcher.Matches(ctx, it)
	if err != nil || !matched {
		log.Info().Str("item_id", it.ID).Msg("match_gate_rejected")
		return gateMatch
	}

	if !ratelimit.CanClaim(it.Kind, led.Stats(), a.cfg.Prefs) {
		log.Info().
			Str("item_id", it.ID).
			Str("kind", string(it.Kind)).
			Msg("rate_limit_gate_rejected")
		return gateRateLimit
	}
	return gatePassed
}

// completeClaim runs steps 7–9 for the committed item. Failures here
// orphan the claim: the registry keeps the identifier, the ledger
// records nothing, and no compensation is attempted.
func (a *Arbiter) completeClaim(ctx context.Context, span trace.Span, correlationID string, it *item.Item, led *ledger.Ledger) {
	start := a.now()
	cost := estimate.Cost(it, a.cfg.Budget)

	result, deliverableURL, err := a.execute(ctx, it)
	if err != nil {
		span.SetStatus(codes.Error, "execution failed after commit")
		orphanedClaims.Add(ctx, 1)
		log.Error().Err(err).
			Str("correlation_id", correlationID).
			Str("item_id", it.ID).
			Msg("orphaned_claim_execution_failed")
		return
	}

	meta := tracker.SubmitMeta{
		Elapsed:         a.now().Sub(start),
		EstimatedTokens: cost,
		Deliverable:     deliverableURL != "",
		DeliverableURL:  deliverableURL,
	}
	if err := a.pool.Submit(ctx, it.Pool, it.Number, a.cfg.AgentID, result, meta); err != nil {
		span.SetStatus(codes.Error, "submission failed after commit")
		orphanedClaims.Add(ctx, 1)
		log.Error().Err(err).
			Str("correlation_id", correlationID).
			Str("item_id", it.ID).
			Msg("orphaned_claim_submission_failed")
		return
	}

	// Step 9: record only after a successful submission.
	if err := led.RecordSpend(ctx, cost); err != nil {
		log.Error().Err(err).Msg("spend_record_failed")
	}
	switch it.Kind {
	case item.KindBattle:
		if err := led.RecordBattle(ctx); err != nil {
			log.Error().Err(err).Msg("battle_record_failed")
		}
	case item.KindTask:
		if err := led.RecordTask(ctx); err != nil {
			log.Error().Err(err).Msg("task_record_failed")
		}
	}
	tokensSpent.Add(ctx, int64(cost))

	span.SetAttributes(
		attribute.String("item_id", it.ID),
		attribute.Int("tokens.estimated", cost),
	)
	log.Info().
		Str("correlation_id", correlationID).
		Str("item_id", it.ID).
		Str("kind", string(it.Kind)).
		Int("tokens_estimated", cost).
		Dur("elapsed", meta.Elapsed).
		Msg("claim_completed")
}

// execute dispatches the committed item: a completion for battles and
// plain tasks, a provisioned workspace for repo-deliverable tasks.
func (a *Arbiter) execute(ctx context.Context, it *item.Item) (result, deliverableURL string, err error) {
	if it.Kind == item.KindTask && it.RequiresRepo() {
		name := fmt.Sprintf("%s-task-%d", a.cfg.AgentID, it.Number)
		url, err := a.pool.CreateWorkspace(ctx, name, it.Title, it.RepoTemplate())
		if err != nil {
			return "", "", fmt.Errorf("provisioning workspace: %w", err)
		}
		if url == "" {
			return "", "", fmt.Errorf("workspace provisioned without a location")
		}
		return fmt.Sprintf("Workspace provisioned for this task: %s", url), url, nil
	}

	maxTokens := a.cfg.Budget.MaxPerTask
	system := "You are an autonomous agent completing a volunteer task on behalf of your owner. Be useful and complete."
	if it.Kind == item.KindBattle {
		maxTokens = a.cfg.Budget.MaxPerBattle
		system = "You are an autonomous agent competing in a creative battle on behalf of your owner. Give your best entry."
	}

	resp, err := a.provider.Generate(ctx, &llm.Request{
		Model:       a.cfg.Model,
		System:      system,
		Prompt:      it.EffectivePrompt(),
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", "", fmt.Errorf("generating result: %w", err)
	}
	return resp.Content, "", nil
}
