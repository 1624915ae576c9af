// Package main provides the entrypoint for the ClearRoute API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearroute/clearroute/internal/api"
	"github.com/clearroute/clearroute/internal/api/handler"
	"github.com/clearroute/clearroute/internal/api/middleware"
	"github.com/clearroute/clearroute/internal/app"
	"github.com/clearroute/clearroute/internal/auth"
	"github.com/clearroute/clearroute/internal/config"
	"github.com/clearroute/clearroute/internal/provider/resilience"
	"github.com/clearroute/clearroute/internal/telemetry"
	"github.com/clearroute/clearroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "clearroute-api"

	log := app.NewLogger(serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ClearRoute API")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.FromAppConfig(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTel.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTel.ExporterOTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}
	providerMetrics, err := resilience.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	predictionMetrics, err := telemetry.NewPredictionMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize prediction metrics")
	}

	registry := resilience.NewRegistry()
	deps := app.Deps{
		Config:          cfg,
		Logger:          log,
		Registry:        registry,
		ProviderMetrics: providerMetrics,
	}

	prediction := app.NewPrediction(deps, predictionMetrics)

	store, err := app.NewIncidentStore(ctx, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize incident store")
	}
	defer store.Close()

	incidents := app.NewIncidentService(deps, store, prediction.LTA)

	// Without a Pub/Sub subscription nobody else triggers ingestion, so the
	// API refreshes incidents itself.
	runCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	if cfg.PubSub.Subscription == "" {
		job := worker.NewRefreshJob(worker.RefreshJobConfig{
			Config:    worker.RefreshConfigFrom(cfg.Incident),
			Refresher: incidents,
			Logger:    log,
		})
		go job.RunTicker(runCtx)
	}

	jwtService := auth.NewJWTService(auth.FromAppConfig(cfg.JWT))
	if cfg.JWT.SigningKey == config.DevSigningKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		Metrics:        httpMetrics,
		RequireTLS:     cfg.IsProduction(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Predictor:      prediction.Service,
		Model:          prediction.Classifier,
		Incidents:      incidents,
		JWTService:     jwtService,
		Registry:       registry,
		Checks: []handler.Check{
			{Name: "model", Critical: true, Probe: func(context.Context) error { return prediction.Classifier.Ready() }},
			{Name: "database", Critical: cfg.DB.Enabled, Probe: store.Ping},
			{Name: "incidents", Probe: func(context.Context) error {
				if incidents.LastRefresh() == nil {
					return errors.New("no successful incident refresh yet")
				}
				return nil
			}},
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // predict waits on three upstreams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Bool("model_loaded", prediction.Classifier.Loaded()).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopRefresh()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1) //nolint:gocritic // intentional exit, deferred cleanup is best-effort
	}

	log.Info().Msg("server stopped")
}
