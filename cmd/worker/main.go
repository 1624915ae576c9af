// Package main provides the entrypoint for the ClearRoute incident worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearroute/clearroute/internal/app"
	"github.com/clearroute/clearroute/internal/config"
	"github.com/clearroute/clearroute/internal/provider/resilience"
	"github.com/clearroute/clearroute/internal/telemetry"
	"github.com/clearroute/clearroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "clearroute-worker"

	log := app.NewLogger(serviceName, Version)
	log.Info().Str("build_time", BuildTime).Msg("starting ClearRoute worker")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.FromAppConfig(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	providerMetrics, err := resilience.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	deps := app.Deps{
		Config:          cfg,
		Logger:          log,
		Registry:        resilience.NewRegistry(),
		ProviderMetrics: providerMetrics,
	}

	store, err := app.NewIncidentStore(ctx, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize incident store")
	}
	defer store.Close()

	ltaClient := app.NewBackgroundLTAClient(deps)
	incidents := app.NewIncidentService(deps, store, ltaClient)

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfigFrom(cfg.Incident),
		Refresher: incidents,
		Probe:     app.NewTrafficService(deps, ltaClient),
		Logger:    log,
	})

	// Worker also exposes a health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"metrics": job.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			RefreshJob:       job,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() { _ = handler.Close() }()

		go func() {
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub receive stopped")
				cancel()
			}
		}()
	} else {
		log.Info().Msg("pubsub not configured; refreshing on a ticker")
		go job.RunTicker(ctx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
