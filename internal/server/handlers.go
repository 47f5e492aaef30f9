package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clawclub/clawclub/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"agent_id": s.cfg.AgentID,
		"uptime":   time.Since(s.startTime).String(),
	})
}

// statusResponse is the budget and activity snapshot for the current day.
type statusResponse struct {
	AgentID         string `json:"agent_id"`
	Pool            string `json:"pool"`
	Date            string `json:"date"`
	DailyTokens     int    `json:"daily_tokens"`
	TokensUsed      int    `json:"tokens_used"`
	TokensAvailable int    `json:"tokens_available"`
	ReservePercent  int    `json:"reserve_percent"`
	BattlesJoined   int    `json:"battles_joined"`
	TasksCompleted  int    `json:"tasks_completed"`
	TotalClaims     int    `json:"total_claims"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	led, err := ledger.Load(ctx, s.state, s.cfg.Budget)
	if err != nil {
		log.Error().Err(err).Msg("status_ledger_load_failed")
		writeError(w, http.StatusInternalServerError, "internal", "loading budget ledger")
		return
	}
	if err := led.RolloverIfNewDay(ctx, time.Now()); err != nil {
		log.Error().Err(err).Msg("status_rollover_failed")
		writeError(w, http.StatusInternalServerError, "internal", "rolling over budget ledger")
		return
	}

	claims, err := s.registry.Count(ctx)
	if err != nil {
		log.Error().Err(err).Msg("status_claim_count_failed")
		writeError(w, http.StatusInternalServerError, "internal", "counting claims")
		return
	}

	stats := led.Stats()
	writeJSON(w, http.StatusOK, statusResponse{
		AgentID:         s.cfg.AgentID,
		Pool:            s.cfg.Pool,
		Date:            stats.Date,
		DailyTokens:     s.cfg.Budget.DailyTokens,
		TokensUsed:      stats.TokensUsed,
		TokensAvailable: led.Available(),
		ReservePercent:  s.cfg.Budget.ReservePercent,
		BattlesJoined:   stats.BattlesJoined,
		TasksCompleted:  stats.TasksCompleted,
		TotalClaims:     claims,
	})
}
