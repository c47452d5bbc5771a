package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/iho/folio/internal/adapter/http/handler"
	"github.com/iho/folio/internal/adapter/http/middleware"
	"github.com/iho/folio/internal/infrastructure/auth"
	"github.com/iho/folio/internal/usecase"
)

// RouterConfig holds dependencies for the router. Optional fields left nil
// disable the feature they back.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	ActivityHandler  *handler.ActivityHandler
	ImportHandler    *handler.ImportHandler
	PortfolioHandler *handler.PortfolioHandler
	EventsHandler    *handler.EventsHandler
	HealthHandler    *handler.HealthHandler
	MetricsHandler   http.Handler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	JWTManager       *auth.JWTManager
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(log.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTManager != nil {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/import-mapping", cfg.ImportHandler.GetMapping)
			r.Put("/{id}/import-mapping", cfg.ImportHandler.SaveMapping)
			r.Post("/{id}/imports", cfg.ImportHandler.Import)
			r.Post("/{id}/imports/check", cfg.ImportHandler.Check)
		})

		// Activities
		r.Route("/activities", func(r chi.Router) {
			r.Post("/", cfg.ActivityHandler.Create)
			r.Get("/", cfg.ActivityHandler.Search)
			r.Get("/{id}", cfg.ActivityHandler.Get)
			r.Put("/{id}", cfg.ActivityHandler.Update)
			r.Delete("/{id}", cfg.ActivityHandler.Delete)
		})

		r.Post("/portfolio/recalculate", cfg.PortfolioHandler.Recalculate)

		if cfg.EventsHandler != nil {
			r.Get("/events/ws", cfg.EventsHandler.Stream)
		}
	})

	return r
}
