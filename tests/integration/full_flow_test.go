//go:build integration
// +build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawclub/clawclub/internal/arbiter"
	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/ledger"
	"github.com/clawclub/clawclub/internal/match"
	"github.com/clawclub/clawclub/internal/registry"
	"github.com/clawclub/clawclub/internal/store"
	"github.com/clawclub/clawclub/internal/testutil"
	"github.com/clawclub/clawclub/internal/tracker"
)

// harness wires a real tracker client against the mock tracker, real
// SQLite stores, and a scripted provider shared by the classifier and
// the executor.
type harness struct {
	cfg      *config.Config
	state    *store.Store
	registry *registry.Registry
	trk      *testutil.MockTracker
	provider *testutil.ScriptedProvider
	arb      *arbiter.Arbiter
}

func newHarness(t *testing.T, script []string, issues ...testutil.TrackerIssue) *harness {
	t.Helper()

	trk := testutil.NewMockTracker(issues...)
	t.Cleanup(trk.Server.Close)

	dir := t.TempDir()
	state, err := store.New(filepath.Join(dir, "state.db"), "claw-int")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	reg, err := registry.Open(filepath.Join(dir, "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	cfg := &config.Config{
		AgentID:      "claw-int",
		TrackerToken: "tok",
		Pool:         "clawclub/arena",
		Budget: config.BudgetConfig{
			DailyTokens:    10000,
			MaxPerBattle:   400,
			MaxPerTask:     800,
			ReservePercent: 10,
		},
		Prefs: config.Preferences{
			Arena:   config.ArenaPrefs{Enabled: true, Categories: []string{"coding"}},
			ForGood: config.ForGoodPrefs{Enabled: true, Categories: []string{"docs"}, MaxTasksPerDay: 3},
		},
	}

	provider := &testutil.ScriptedProvider{ProviderName: "scripted", Script: script}
	classifier := match.NewLLMClassifier(provider, "")
	matcher := match.NewEngine(state, classifier, cfg.Prefs)
	pool := tracker.New(trk.URL(), cfg.TrackerToken)

	arb := arbiter.New(arbiter.Config{
		Cfg:      cfg,
		Pool:     pool,
		State:    state,
		Registry: reg,
		Matcher:  matcher,
		Provider: provider,
	})

	return &harness{cfg: cfg, state: state, registry: reg, trk: trk, provider: provider, arb: arb}
}

func (h *harness) stats(t *testing.T) ledger.DailyStats {
	t.Helper()
	led, err := ledger.Load(context.Background(), h.state, h.cfg.Budget)
	require.NoError(t, err)
	return led.Stats()
}

func TestFullFlow_ClaimExecuteSubmit(t *testing.T) {
	// script: owner profile, MATCH verdict, then the battle entry
	h := newHarness(t,
		[]string{"owner loves coding challenges", "MATCH", "here is my entry"},
		testutil.TrackerIssue{
			Number: 1,
			Title:  "haiku battle",
			Body:   "write a haiku about locks",
			Labels: []string{"battle", "coding"},
		},
	)
	ctx := context.Background()

	require.NoError(t, h.arb.Run(ctx, "manual"))

	comments := h.trk.Comments(1)
	require.Len(t, comments, 2, "claim marker then submission")
	assert.Contains(t, comments[0], "Claimed")
	assert.Contains(t, comments[0], "claw-int")
	assert.Contains(t, comments[1], "here is my entry")
	assert.Contains(t, comments[1], "estimated_tokens:")

	claimed, err := h.registry.Has(ctx, "clawclub/arena#1")
	require.NoError(t, err)
	assert.True(t, claimed)

	s := h.stats(t)
	assert.Equal(t, 1, s.BattlesJoined)
	assert.Positive(t, s.TokensUsed)
}

func TestFullFlow_SecondRunSkipsClaimedItem(t *testing.T) {
	h := newHarness(t,
		[]string{"profile", "MATCH", "result one", "MATCH", "result two"},
		testutil.TrackerIssue{Number: 1, Title: "t1", Body: "docs cleanup", Labels: []string{"task", "docs"}},
		testutil.TrackerIssue{Number: 2, Title: "t2", Body: "more docs", Labels: []string{"task", "docs"}},
	)
	ctx := context.Background()

	require.NoError(t, h.arb.Run(ctx, "scheduled"))
	require.NoError(t, h.arb.Run(ctx, "scheduled"))

	assert.Len(t, h.trk.Comments(1), 2)
	assert.Len(t, h.trk.Comments(2), 2)
	assert.Equal(t, 2, h.stats(t).TasksCompleted)
}

func TestFullFlow_PullRequestsNeverClaimed(t *testing.T) {
	h := newHarness(t,
		[]string{"profile", "MATCH", "result"},
		testutil.TrackerIssue{Number: 5, Title: "a pr", Body: "ignore", Labels: []string{"battle", "coding"}, IsPull: true},
	)

	require.NoError(t, h.arb.Run(context.Background(), "manual"))
	assert.Empty(t, h.trk.Comments(5))
}

func TestFullFlow_TrackerOutageLeavesItemUnclaimed(t *testing.T) {
	h := newHarness(t,
		[]string{"profile", "MATCH", "result"},
		testutil.TrackerIssue{Number: 9, Title: "battle", Body: "short prompt", Labels: []string{"battle", "coding"}},
	)
	h.trk.FailComments(true)
	ctx := context.Background()

	require.NoError(t, h.arb.Run(ctx, "manual"))

	claimed, err := h.registry.Has(ctx, "clawclub/arena#9")
	require.NoError(t, err)
	assert.False(t, claimed, "failed claim post must leave the item unregistered")
	assert.Zero(t, h.stats(t).TokensUsed)
}

func TestFullFlow_WorkspaceDeliverable(t *testing.T) {
	body := "Set up the starter repo.\n```yaml\nrequires_repo: true\n```"
	h := newHarness(t,
		[]string{"profile", "MATCH"},
		testutil.TrackerIssue{Number: 4, Title: "bootstrap repo", Body: body, Labels: []string{"task", "docs"}},
	)

	require.NoError(t, h.arb.Run(context.Background(), "manual"))

	require.Equal(t, []string{"claw-int-task-4"}, h.trk.Workspaces())
	comments := h.trk.Comments(4)
	require.Len(t, comments, 2)
	assert.Contains(t, comments[1], "Deliverable: ")
	assert.Contains(t, comments[1], "claw-int-task-4")
}
