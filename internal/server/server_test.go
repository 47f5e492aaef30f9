package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/ledger"
	"github.com/clawclub/clawclub/internal/registry"
	"github.com/clawclub/clawclub/internal/store"
	"github.com/clawclub/clawclub/internal/trigger"
)

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, invocationType string) error { return nil }

func testServer(t *testing.T) (*Server, *store.Store, *registry.Registry, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "state.db"), "claw-1")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	reg, err := registry.Open(filepath.Join(dir, "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	cfg := &config.Config{
		AgentID: "claw-1",
		Pool:    "clawclub/arena",
		Budget: config.BudgetConfig{
			DailyTokens:    1000,
			MaxPerBattle:   400,
			MaxPerTask:     800,
			ReservePercent: 10,
		},
	}
	return NewServer(cfg, st, reg, trigger.NewWebhookHandler(noopRunner{})), st, reg, cfg
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _ := testServer(t)
	r := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "claw-1", out["agent_id"])
}

func TestStatusEndpoint(t *testing.T) {
	srv, st, reg, cfg := testServer(t)
	ctx := context.Background()

	led, err := ledger.Load(ctx, st, cfg.Budget)
	require.NoError(t, err)
	require.NoError(t, led.RolloverIfNewDay(ctx, time.Now()))
	require.NoError(t, led.RecordSpend(ctx, 250))
	require.NoError(t, led.RecordBattle(ctx))
	require.NoError(t, reg.Add(ctx, "clawclub/arena#7", "clawclub/arena"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, 250, out.TokensUsed)
	// 1000 - 250 - 100 reserve
	assert.Equal(t, 650, out.TokensAvailable)
	assert.Equal(t, 1, out.BattlesJoined)
	assert.Equal(t, 1, out.TotalClaims)
}

func TestWebhookRouteMounted(t *testing.T) {
	srv, _, _, _ := testServer(t)
	r := srv.Routes()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/issues", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// empty body is rejected as invalid JSON, proving the route is live
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
