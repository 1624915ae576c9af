// Package api provides the HTTP API for ClearRoute.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/api/handler"
	"github.com/clearroute/clearroute/internal/api/middleware"
	"github.com/clearroute/clearroute/internal/api/response"
	"github.com/clearroute/clearroute/internal/auth"
	"github.com/clearroute/clearroute/internal/provider/resilience"
)

// DefaultAllowedOrigins are the front-end origins allowed when none are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	// RequireTLS rejects plain-HTTP requests forwarded by the load balancer.
	RequireTLS     bool
	AllowedOrigins []string

	Predictor handler.Predictor
	Model     handler.Model

	// Incidents enables /v1/incidents and, with JWTService, /v1/admin.
	Incidents  handler.IncidentService
	JWTService *auth.JWTService

	Registry *resilience.Registry
	Checks   []handler.Check
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})

	modelHandler := handler.NewModelHandler(cfg.Model, cfg.Version)
	predictHandler := handler.NewPredictHandler(cfg.Predictor, cfg.Logger)
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Checks:    cfg.Checks,
	})

	predictRateLimit := middleware.RateLimitByIP(middleware.PredictRateLimit)   // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// Model endpoints served at the root for the front end.
	r.Group(func(r chi.Router) {
		r.Use(standardRateLimit)
		r.Get("/", modelHandler.Info)
		r.Get("/health", modelHandler.Health)
		r.Get("/test", modelHandler.Test)
	})

	// Prediction calls three upstreams per request.
	r.With(middleware.RequireJSON, predictRateLimit).Post("/predict", predictHandler.Predict)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		if cfg.Incidents == nil {
			return
		}
		incidentHandler := handler.NewIncidentHandler(cfg.Incidents, cfg.Logger)

		r.With(standardRateLimit).Get("/incidents", incidentHandler.ListIncidents)

		if cfg.JWTService == nil {
			return
		}
		r.Route("/admin/incidents", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWTService))
			r.Use(middleware.RateLimitBySubject(middleware.AdminRateLimit)) // 20 req/min per subject
			r.Get("/stats", incidentHandler.Stats)
			r.Post("/refresh", incidentHandler.Refresh)
		})
	})

	return r
}
