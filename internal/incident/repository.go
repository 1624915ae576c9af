package incident

import (
	"context"
	"time"
)

// ListOptions filters active incidents.
type ListOptions struct {
	// Severity restricts results when non-empty.
	Severity Severity
	// Limit caps the result size (default: 500).
	Limit int
}

// Repository defines the interface for incident persistence.
type Repository interface {
	// Upsert inserts new incidents and refreshes LastSeenAt/ExpiresAt of known ones.
	// FirstSeenAt of an existing incident is never changed.
	Upsert(ctx context.Context, incidents []Incident) (int, error)

	// ListActive returns incidents not expired at now, most recently seen first.
	ListActive(ctx context.Context, now time.Time, opts ListOptions) ([]Incident, error)

	// DeleteExpired removes incidents whose ExpiresAt is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Stats summarises incidents active at now.
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

const defaultListLimit = 500
