package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/service-desk-sla/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/config"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/metrics"
)

// RouterDeps collects everything NewRouter mounts.
type RouterDeps struct {
	Config       *config.Config
	Logger       *slog.Logger
	TokenManager *auth.TokenManager
	// Metrics may be nil when metrics are disabled.
	Metrics    *metrics.Metrics
	Health     *HealthHandler
	SLA        *SLAHandler
	Analytics  *AnalyticsHandler
	Assignment *AssignmentHandler
	WebSocket  http.Handler
}

// NewRouter builds the chi router for the service.
func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(deps.Logger))
	r.Use(mw.RecoveryLogger(deps.Logger))

	if cfg.RateLimit.Enabled {
		general := mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			IdleTTL:           3 * time.Minute,
		})
		r.Use(general.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders: []string{mw.RequestIDHeader},
		MaxAge:         cfg.CORS.MaxAge,
	}))

	// Health check endpoints (outside /api/v1 for standard probe paths)
	deps.Health.RegisterRoutes(r)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Authentication is handled inside the websocket handler.
		r.Method(http.MethodGet, "/ws", deps.WebSocket)

		r.Group(func(r chi.Router) {
			if deps.Metrics != nil {
				r.Use(deps.Metrics.Middleware)
			}
			r.Use(mw.JWTMiddleware(deps.TokenManager))

			r.Route("/sla", deps.SLA.RegisterRoutes)
			r.Route("/analytics", deps.Analytics.RegisterRoutes)

			r.Group(func(r chi.Router) {
				if cfg.RateLimit.Enabled {
					r.Use(mw.NewUserRateLimiter(cfg.RateLimit.AssignRPS, cfg.RateLimit.AssignBurst).Middleware)
				}
				deps.Assignment.RegisterRoutes(r)
			})
		})
	})

	return r
}
