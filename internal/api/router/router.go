// Package router wires the HTTP surface: safety checks for the
// conversation orchestrator, moderation endpoints for reviewers, and
// operational endpoints (health, metrics).
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wardenlabs/childguard/internal/http/handlers"
	httpmiddleware "github.com/wardenlabs/childguard/internal/http/middleware"
	"github.com/wardenlabs/childguard/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	SafetyHandler  *handlers.SafetyHandler
	ReviewHandler  *handlers.ReviewHandler
	ReviewerSecret string
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public operational endpoints
	r.Get("/health", cfg.SafetyHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Safety checks, called service-to-service by the orchestrator
	r.Route("/v1/safety", func(r chi.Router) {
		r.Post("/precheck", cfg.SafetyHandler.PreCheck)
		r.Post("/postcheck", cfg.SafetyHandler.PostCheck)
	})

	// Moderation endpoints, reviewer-authenticated
	r.Route("/v1/review", func(r chi.Router) {
		r.Use(httpmiddleware.ReviewerJWT(cfg.ReviewerSecret))
		r.Get("/pending", cfg.ReviewHandler.Pending)
		r.Get("/stats", cfg.ReviewHandler.Stats)
		r.Route("/tickets/{ticketID}", func(r chi.Router) {
			r.Get("/", cfg.ReviewHandler.Get)
			r.Get("/decision", cfg.ReviewHandler.Decision)
			r.Post("/decision", cfg.ReviewHandler.Submit)
		})
	})

	return r
}
