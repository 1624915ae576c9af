package incident

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is how long an incident stays active after it was last seen.
const DefaultTTL = 6 * time.Hour

// ServiceConfig holds configuration for the incident service.
type ServiceConfig struct {
	// Source is the incident feed.
	Source Source

	// Repository stores incidents.
	Repository Repository

	// TTL is how long an incident stays active after it was last seen (default: 6h).
	TTL time.Duration

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service ingests incidents and serves the active set.
type Service struct {
	source Source
	repo   Repository
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	// refreshMu serialises ingestion passes from the worker and the admin endpoint.
	refreshMu   sync.Mutex
	lastRefresh *RefreshResult
}

// NewService creates a new incident service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		source: cfg.Source,
		repo:   cfg.Repository,
		ttl:    ttl,
		now:    now,
		logger: cfg.Logger,
	}
}

// Refresh fetches the feed, upserts every report and purges expired rows.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	reports, err := s.source.FetchIncidents(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("source", s.source.Name()).Msg("failed to fetch incidents")
		if errors.Is(err, ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	now := s.now().UTC()
	incidents := make([]Incident, 0, len(reports))
	seen := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		inc := FromReport(r, now, s.ttl)
		if _, dup := seen[inc.ID.String()]; dup {
			continue
		}
		seen[inc.ID.String()] = struct{}{}
		incidents = append(incidents, inc)
	}

	upserted, err := s.repo.Upsert(ctx, incidents)
	if err != nil {
		return nil, fmt.Errorf("upserting incidents: %w", err)
	}

	expired, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("deleting expired incidents: %w", err)
	}

	result := &RefreshResult{
		Fetched:   len(reports),
		Upserted:  upserted,
		Expired:   expired,
		Refreshed: now,
	}
	s.lastRefresh = result

	s.logger.Info().
		Int("fetched", result.Fetched).
		Int("upserted", result.Upserted).
		Int("expired", result.Expired).
		Msg("incidents refreshed")

	return result, nil
}

// ListActive returns the currently active incidents.
func (s *Service) ListActive(ctx context.Context, opts ListOptions) ([]Incident, error) {
	return s.repo.ListActive(ctx, s.now().UTC(), opts)
}

// Stats summarises the active incidents.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx, s.now().UTC())
}

// LastRefresh returns the result of the most recent successful refresh, or nil.
func (s *Service) LastRefresh() *RefreshResult {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.lastRefresh
}
