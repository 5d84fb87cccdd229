// Package api provides the HTTP API for the ski touring scoring service.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/api/handler"
	"github.com/skitourlive/skitourlive/internal/api/middleware"
	"github.com/skitourlive/skitourlive/internal/dataset"
	"github.com/skitourlive/skitourlive/internal/featureflags"
	"github.com/skitourlive/skitourlive/internal/provider/resilience"
	"github.com/skitourlive/skitourlive/internal/scoring"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Holder   *dataset.Holder
	Engine   *scoring.Engine
	Flags    *featureflags.Service
	Registry *resilience.Registry
	Clock    clockwork.Clock

	// AdminToken guards /v1/admin. Empty disables the admin endpoints.
	AdminToken    string
	RequireTLS    bool
	ReloadTimeout time.Duration
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "skitour-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Sessions:  cfg.Holder,
		Registry:  cfg.Registry,
		Flags:     cfg.Flags,
		Clock:     cfg.Clock,
	})
	scoresHandler := handler.NewScoresHandler(handler.ScoresHandlerConfig{
		Sessions: cfg.Holder,
		Engine:   cfg.Engine,
		Flags:    cfg.Flags,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
	})
	adminHandler := handler.NewAdminHandler(cfg.Holder, cfg.ReloadTimeout, cfg.Logger)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.Flags)

	scoringRateLimit := middleware.RateLimitByIP(middleware.ScoringRateLimit)   // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Ranking scores the whole catalog - strict rate limiting
		r.With(scoringRateLimit).Get("/scores", scoresHandler.ListScores)

		// Single-route endpoints - standard rate limiting
		r.Route("/routes/{routeId}", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/snow", scoresHandler.GetSnowQuality)
			r.Get("/conditions", scoresHandler.GetConditions)
		})

		r.With(standardRateLimit).Get("/massifs", scoresHandler.ListMassifs)

		// Admin endpoints (admin token) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.AdminToken))
			r.Use(middleware.RateLimitByPrincipal(middleware.AdminRateLimit)) // 10 req/min

			r.Post("/reload", adminHandler.Reload)

			// Feature flags management
			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.With(middleware.RequireJSON).Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
			})
		})
	})

	return r
}
