package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/incident"
	"github.com/clearroute/clearroute/internal/traffic"
)

// Job errors.
var (
	ErrMalformedMessage = errors.New("malformed job message")
	ErrUnknownJob       = errors.New("unknown job type")
)

// Refresher ingests the latest incidents. *incident.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context) (*incident.RefreshResult, error)
}

// TrafficProbe fetches a traffic snapshot. *traffic.Service implements it.
type TrafficProbe interface {
	Snapshot(ctx context.Context) (*traffic.Snapshot, error)
}

// RefreshMessage represents a job message.
type RefreshMessage struct {
	JobType string `json:"job_type"`
}

// ParseMessage decodes a job message payload.
func ParseMessage(data []byte) (RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return RefreshMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}

// RefreshJob runs incident refreshes and health checks.
type RefreshJob struct {
	config    RefreshConfig
	refresher Refresher
	probe     TrafficProbe
	logger    zerolog.Logger

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRefreshes      int64
	FailedRefreshes     int64
	IncidentsFetched    int64
	IncidentsExpired    int64
	HealthChecks        int64
	FailedHealthChecks  int64
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Refresher Refresher

	// Probe is optional; without it health checks only report liveness.
	Probe TrafficProbe

	Logger zerolog.Logger
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:    cfg.Config.withDefaults(),
		refresher: cfg.Refresher,
		probe:     cfg.Probe,
		logger:    cfg.Logger,
		metrics:   &RefreshMetrics{},
	}
}

// Run executes one incident refresh bounded by the configured timeout.
func (j *RefreshJob) Run(ctx context.Context) (*incident.RefreshResult, error) {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := j.refresher.Refresh(ctx)
	duration := time.Since(start)

	j.metrics.mu.Lock()
	j.metrics.TotalRefreshes++
	j.metrics.LastRefreshDuration = duration
	if err != nil {
		j.metrics.FailedRefreshes++
	} else {
		j.metrics.LastRefreshAt = result.Refreshed
		j.metrics.IncidentsFetched += int64(result.Fetched)
		j.metrics.IncidentsExpired += int64(result.Expired)
	}
	j.metrics.mu.Unlock()

	if err != nil {
		j.logger.Error().Err(err).Dur("duration", duration).Msg("incident refresh failed")
		return nil, err
	}

	j.logger.Info().
		Dur("duration", duration).
		Int("fetched", result.Fetched).
		Int("upserted", result.Upserted).
		Int("expired", result.Expired).
		Msg("incident refresh job completed")

	return result, nil
}

// HealthCheck verifies traffic provider connectivity with a single snapshot fetch.
func (j *RefreshJob) HealthCheck(ctx context.Context) error {
	j.metrics.mu.Lock()
	j.metrics.HealthChecks++
	j.metrics.mu.Unlock()

	if j.probe == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.HealthCheckTimeout)
	defer cancel()

	snap, err := j.probe.Snapshot(ctx)
	if err != nil {
		j.metrics.mu.Lock()
		j.metrics.FailedHealthChecks++
		j.metrics.mu.Unlock()
		return fmt.Errorf("health check failed: %w", err)
	}

	j.logger.Debug().Int("segments", len(snap.Segments)).Msg("health check passed")
	return nil
}

// Handle dispatches a job message.
func (j *RefreshJob) Handle(ctx context.Context, msg RefreshMessage) error {
	switch msg.JobType {
	case JobIncidentRefresh:
		_, err := j.Run(ctx)
		return err
	case JobHealthCheck:
		return j.HealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// RunTicker refreshes once immediately and then every Interval until ctx is
// cancelled. Failed runs are logged and retried on the next tick.
func (j *RefreshJob) RunTicker(ctx context.Context) {
	j.logger.Info().Dur("interval", j.config.Interval).Msg("starting incident refresh ticker")

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		_, _ = j.Run(ctx)

		select {
		case <-ctx.Done():
			j.logger.Info().Msg("incident refresh ticker stopped")
			return
		case <-ticker.C:
		}
	}
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		IncidentsFetched:    j.metrics.IncidentsFetched,
		IncidentsExpired:    j.metrics.IncidentsExpired,
		HealthChecks:        j.metrics.HealthChecks,
		FailedHealthChecks:  j.metrics.FailedHealthChecks,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"failed_refreshes":      m.FailedRefreshes,
		"incidents_fetched":     m.IncidentsFetched,
		"incidents_expired":     m.IncidentsExpired,
		"health_checks":         m.HealthChecks,
		"failed_health_checks":  m.FailedHealthChecks,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
	}
}
