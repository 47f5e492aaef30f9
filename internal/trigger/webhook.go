package trigger

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebhookHandler turns tracker issue events into claim invocations.
// Only "opened" events fire a run; every other action is acknowledged
// and dropped, since the arbiter re-reads the full open inventory
// anyway.
type WebhookHandler struct {
	runner Runner
}

// NewWebhookHandler creates a handler over the given runner.
func NewWebhookHandler(runner Runner) *WebhookHandler {
	return &WebhookHandler{runner: runner}
}

// issueEvent is the subset of the tracker's issue event payload we read.
type issueEvent struct {
	Action string `json:"action"`
	Issue  struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"issue"`
}

// webhookResponse is the JSON response for a webhook delivery.
type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleIssueEvent processes POST /webhooks/issues.
func (wh *WebhookHandler) HandleIssueEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var ev issueEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(webhookResponse{Status: "error", Error: "invalid JSON body"})
		return
	}

	if ev.Action != "opened" {
		_ = json.NewEncoder(w).Encode(webhookResponse{Status: "ok", Message: "ignored action " + ev.Action})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invocationTimeout)
	defer cancel()

	log.Info().
		Int("number", ev.Issue.Number).
		Str("title", ev.Issue.Title).
		Msg("webhook_trigger_fired")

	if err := wh.runner.Run(ctx, "webhook"); err != nil {
		log.Error().Err(err).
			Int("number", ev.Issue.Number).
			Msg("webhook_trigger_failed")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(webhookResponse{Status: "error", Error: err.Error()})
		return
	}

	_ = json.NewEncoder(w).Encode(webhookResponse{Status: "ok", Message: "invocation completed"})
}
