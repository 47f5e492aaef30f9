package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/doctor"
	"github.com/clawclub/clawclub/internal/ledger"
	"github.com/clawclub/clawclub/internal/registry"
	"github.com/clawclub/clawclub/internal/store"
)

func testLedger(t *testing.T, budget config.BudgetConfig) *ledger.Ledger {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "state.db"), "claw-1")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	led, err := ledger.Load(context.Background(), st, budget)
	require.NoError(t, err)
	require.NoError(t, led.RolloverIfNewDay(context.Background(), time.Now()))
	return led
}

func TestRenderStatus(t *testing.T) {
	cfg := &config.Config{
		AgentID: "claw-1",
		Pool:    "clawclub/arena",
		Budget:  config.BudgetConfig{DailyTokens: 1000, MaxPerBattle: 400, MaxPerTask: 800, ReservePercent: 10},
		Prefs:   config.Preferences{ForGood: config.ForGoodPrefs{MaxTasksPerDay: 3}},
	}
	led := testLedger(t, cfg.Budget)
	require.NoError(t, led.RecordSpend(context.Background(), 250))

	var buf bytes.Buffer
	renderStatus(&buf, cfg, led, 12)

	out := buf.String()
	assert.Contains(t, out, "claw-1")
	assert.Contains(t, out, "250")
	assert.Contains(t, out, "650") // 1000 - 250 - 100 reserve
	assert.Contains(t, out, "Items ever claimed: 12")
}

func TestRenderClaims(t *testing.T) {
	cfg := &config.Config{AgentID: "claw-1"}
	claims := []registry.Claim{
		{ItemID: "clawclub/arena#42", Pool: "clawclub/arena", ClaimedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	renderClaims(&buf, cfg, claims)

	out := buf.String()
	assert.Contains(t, out, "clawclub/arena#42")
	assert.Contains(t, out, "2026-08-20T12:00:00Z")
	assert.Contains(t, out, "1 claim(s).")
}

func TestRenderClaims_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderClaims(&buf, &config.Config{}, nil)
	assert.Contains(t, buf.String(), "No claimed items.")
}

func TestRenderReport(t *testing.T) {
	report := &doctor.Report{
		Status: "fail",
		Checks: []doctor.CheckResult{
			{Name: "identity", Status: "pass", Message: "agent claw-1"},
			{Name: "llm_provider", Status: "warn", Message: "no key", Fix: "set a key"},
			{Name: "state_db", Status: "fail", Message: "locked"},
		},
		Summary: doctor.Summary{Pass: 1, Warn: 1, Fail: 1},
	}

	var buf bytes.Buffer
	renderReport(&buf, report)

	out := buf.String()
	assert.Contains(t, out, "✓ identity")
	assert.Contains(t, out, "⚠ llm_provider")
	assert.Contains(t, out, "✗ state_db")
	assert.Contains(t, out, "fix: set a key")
	assert.Contains(t, out, "1 passed, 1 warnings, 1 failed.")
}

func TestSampleConfigIsValidYAML(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(sampleConfig), &doc))

	assert.Contains(t, doc, "daily_tokens")
	assert.Contains(t, doc, "preferences")
	assert.Equal(t, "clawclub/arena", doc["pool"])
}
