// Package worker runs background incident ingestion for ClearRoute.
package worker

import (
	"time"

	"github.com/clearroute/clearroute/internal/config"
)

// Job types accepted on the jobs subscription.
const (
	JobIncidentRefresh = "incident_refresh"
	JobHealthCheck     = "health_check"
)

// RefreshConfig holds configuration for the incident refresh job.
type RefreshConfig struct {
	// Interval between ticker-driven refreshes.
	// Default: 5 minutes
	Interval time.Duration

	// Timeout bounds a single refresh run.
	// Default: 60 seconds
	Timeout time.Duration

	// HealthCheckTimeout bounds the traffic probe of a health_check job.
	// Default: 15 seconds
	HealthCheckTimeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:           5 * time.Minute,
		Timeout:            60 * time.Second,
		HealthCheckTimeout: 15 * time.Second,
	}
}

// RefreshConfigFrom builds a RefreshConfig from application config,
// falling back to defaults for unset values.
func RefreshConfigFrom(cfg config.IncidentConfig) RefreshConfig {
	rc := DefaultRefreshConfig()
	if cfg.RefreshInterval > 0 {
		rc.Interval = cfg.RefreshInterval
	}
	return rc
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	d := DefaultRefreshConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.HealthCheckTimeout <= 0 {
		c.HealthCheckTimeout = d.HealthCheckTimeout
	}
	return c
}
