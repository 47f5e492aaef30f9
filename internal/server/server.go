// Package server exposes the HTTP surface for serve mode: health,
// a status snapshot, and the issue-event webhook.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/otel"
	"github.com/clawclub/clawclub/internal/registry"
	"github.com/clawclub/clawclub/internal/store"
	"github.com/clawclub/clawclub/internal/trigger"
)

const defaultTimeout = 30 * time.Second

// Server holds the dependencies for the HTTP API.
type Server struct {
	router    *chi.Mux
	cfg       *config.Config
	state     *store.Store
	registry  *registry.Registry
	webhook   *trigger.WebhookHandler
	startTime time.Time
}

// NewServer builds a Server over the given collaborators.
func NewServer(cfg *config.Config, state *store.Store, reg *registry.Registry, webhook *trigger.WebhookHandler) *Server {
	return &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		state:     state,
		registry:  reg,
		webhook:   webhook,
		startTime: time.Now(),
	}
}

// Routes returns the configured http.Handler. The webhook route skips
// the request timeout because a triggered invocation includes a
// completion call that can outlive it.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())

	r.Post("/webhooks/issues", s.webhook.HandleIssueEvent)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(defaultTimeout))
		r.Get("/healthz", s.handleHealth)
		r.Get("/api/v1/status", s.handleStatus)
	})

	return r
}
