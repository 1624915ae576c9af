// Package app assembles ClearRoute services from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/classifier"
	"github.com/clearroute/clearroute/internal/config"
	"github.com/clearroute/clearroute/internal/congestion"
	"github.com/clearroute/clearroute/internal/database"
	"github.com/clearroute/clearroute/internal/incident"
	"github.com/clearroute/clearroute/internal/location"
	"github.com/clearroute/clearroute/internal/location/nominatim"
	"github.com/clearroute/clearroute/internal/provider/resilience"
	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/internal/routing/osrm"
	"github.com/clearroute/clearroute/internal/telemetry"
	"github.com/clearroute/clearroute/internal/traffic"
	"github.com/clearroute/clearroute/internal/traffic/lta"
)

// NewLogger returns the JSON process logger tagged with service and version.
func NewLogger(service, version string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// Deps are shared by every component built here.
type Deps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *resilience.Registry

	// ProviderMetrics records outbound call metrics (optional).
	ProviderMetrics *resilience.Metrics
}

// Prediction is the request-path stack.
type Prediction struct {
	Service    *congestion.Service
	Classifier *classifier.Classifier
	Traffic    *traffic.Service
	LTA        *lta.Client
}

// NewPrediction wires geocoding, routing, traffic and the classifier into a
// congestion.Service. A model that fails to load is logged and reported as
// not loaded; predictions then fail with ErrScoringUnavailable.
func NewPrediction(d Deps, predictionMetrics *telemetry.PredictionMetrics) *Prediction {
	cfg := d.Config

	model, err := classifier.Load(cfg.Model.Path)
	if err != nil {
		d.Logger.Error().Err(err).Str("model_path", cfg.Model.Path).Msg("congestion model not loaded")
	} else {
		d.Logger.Info().
			Str("model_path", model.Path()).
			Str("model_type", model.Name()).
			Strs("features", model.Features()).
			Msg("congestion model loaded")
	}

	geocoder := nominatim.NewClient(nominatim.ClientConfig{
		BaseURL:   cfg.Nominatim.BaseURL,
		UserAgent: cfg.Nominatim.UserAgent,
		Timeout:   cfg.Provider.Timeout,
		Registry:  d.Registry,
		Metrics:   d.ProviderMetrics,
		Logger:    d.Logger,
	})
	resolver := location.NewResolver(location.ResolverConfig{
		Geocoder: geocoder,
		Bounds: &location.BoundingBox{
			MinLat: cfg.Region.MinLat,
			MaxLat: cfg.Region.MaxLat,
			MinLon: cfg.Region.MinLon,
			MaxLon: cfg.Region.MaxLon,
		},
		RegionSuffix: cfg.Region.Suffix,
		Logger:       d.Logger,
	})

	routes := routing.NewService(routing.ServiceConfig{
		Provider: osrm.NewClient(osrm.ClientConfig{
			BaseURL:  cfg.OSRM.BaseURL,
			Timeout:  cfg.Provider.Timeout,
			Registry: d.Registry,
			Metrics:  d.ProviderMetrics,
			Logger:   d.Logger,
		}),
		MaxAlternatives: cfg.Rank.MaxAlternatives,
		Logger:          d.Logger,
	})

	ltaClient := lta.NewClient(lta.ClientConfig{
		AccountKey: cfg.LTA.AccountKey,
		BaseURL:    cfg.LTA.BaseURL,
		MaxPages:   cfg.LTA.MaxPages,
		Timeout:    cfg.Provider.Timeout,
		Registry:   d.Registry,
		Metrics:    d.ProviderMetrics,
		Logger:     d.Logger,
	})
	if cfg.LTA.AccountKey == "" {
		d.Logger.Warn().Msg("LTA_ACCOUNT_KEY not set; traffic snapshots will fail")
	}

	snapshots := NewTrafficService(d, ltaClient)

	svc := congestion.NewService(congestion.ServiceConfig{
		Resolver: resolver,
		Routes:   routes,
		Traffic:  snapshots,
		Scorer:   model,
		Ranker: congestion.NewRanker(congestion.RankerConfig{
			Scorer:      model,
			Concurrency: cfg.Rank.Concurrency,
			Logger:      d.Logger,
		}),
		MaxAlternatives: cfg.Rank.MaxAlternatives,
		Confidence:      model.Confidence(),
		Metrics:         predictionMetrics,
		Logger:          d.Logger,
	})

	return &Prediction{
		Service:    svc,
		Classifier: model,
		Traffic:    snapshots,
		LTA:        ltaClient,
	}
}

// NewTrafficService stamps snapshots with the configured time zone and context.
func NewTrafficService(d Deps, provider traffic.Provider) *traffic.Service {
	cfg := d.Config
	return traffic.NewService(traffic.ServiceConfig{
		Provider: provider,
		Location: cfg.Location(),
		Context: &traffic.Context{
			IncidentCount: cfg.Traffic.IncidentCount,
			VMSCount:      cfg.Traffic.VMSCount,
			CCTVCount:     cfg.Traffic.CCTVCount,
			ETTMean:       cfg.Traffic.ETTMean,
		},
		Logger: d.Logger,
	})
}

// NewBackgroundLTAClient returns an LTA client that retries, for jobs nobody
// waits on.
func NewBackgroundLTAClient(d Deps) *lta.Client {
	clientCfg := resilience.BackgroundClientConfig(lta.ProviderName)
	clientCfg.Registry = d.Registry
	clientCfg.Metrics = d.ProviderMetrics

	return lta.NewClient(lta.ClientConfig{
		AccountKey: d.Config.LTA.AccountKey,
		BaseURL:    d.Config.LTA.BaseURL,
		MaxPages:   d.Config.LTA.MaxPages,
		HTTPClient: resilience.NewClient(clientCfg),
		Logger:     d.Logger,
	})
}

// IncidentStore is the chosen incident repository and, for Postgres, its pool.
type IncidentStore struct {
	Repository incident.Repository
	Pool       *pgxpool.Pool
}

// Ping checks the database, if any.
func (s *IncidentStore) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

// Close releases the pool, if any.
func (s *IncidentStore) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// NewIncidentStore connects to Postgres when DB_ENABLED is set and ensures the
// schema; otherwise incidents live in memory for the life of the process.
func NewIncidentStore(ctx context.Context, d Deps) (*IncidentStore, error) {
	if !d.Config.DB.Enabled {
		d.Logger.Info().Msg("database disabled; using in-memory incident store")
		return &IncidentStore{Repository: incident.NewInMemoryRepository()}, nil
	}

	dbConfig := database.FromAppConfig(d.Config.DB)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(connectCtx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	repo := incident.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring incident schema: %w", err)
	}

	d.Logger.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	return &IncidentStore{Repository: repo, Pool: pool}, nil
}

// NewIncidentService builds the incident service over store and source.
func NewIncidentService(d Deps, store *IncidentStore, source incident.Source) *incident.Service {
	return incident.NewService(incident.ServiceConfig{
		Source:     source,
		Repository: store.Repository,
		TTL:        d.Config.Incident.TTL,
		Logger:     d.Logger,
	})
}
