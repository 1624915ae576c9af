package incident

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used when no database is configured and in tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]Incident
}

// NewInMemoryRepository creates a new in-memory incident repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		incidents: make(map[uuid.UUID]Incident),
	}
}

// Upsert inserts or refreshes incidents.
func (r *InMemoryRepository) Upsert(_ context.Context, incidents []Incident) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, inc := range incidents {
		if existing, ok := r.incidents[inc.ID]; ok {
			inc.FirstSeenAt = existing.FirstSeenAt
		}
		r.incidents[inc.ID] = inc
	}

	return len(incidents), nil
}

// ListActive returns unexpired incidents, most recently seen first.
func (r *InMemoryRepository) ListActive(_ context.Context, now time.Time, opts ListOptions) ([]Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	active := make([]Incident, 0, len(r.incidents))
	for _, inc := range r.incidents {
		if !inc.ExpiresAt.After(now) {
			continue
		}
		if opts.Severity != "" && inc.Severity != opts.Severity {
			continue
		}
		active = append(active, inc)
	}

	sort.Slice(active, func(i, j int) bool {
		if !active[i].LastSeenAt.Equal(active[j].LastSeenAt) {
			return active[i].LastSeenAt.After(active[j].LastSeenAt)
		}
		return active[i].ID.String() < active[j].ID.String()
	})

	if len(active) > limit {
		active = active[:limit]
	}

	return active, nil
}

// DeleteExpired removes expired incidents.
func (r *InMemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, inc := range r.incidents {
		if !inc.ExpiresAt.After(now) {
			delete(r.incidents, id)
			removed++
		}
	}

	return removed, nil
}

// Stats summarises active incidents.
func (r *InMemoryRepository) Stats(_ context.Context, now time.Time) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{BySeverity: make(map[Severity]int)}
	for _, inc := range r.incidents {
		if !inc.ExpiresAt.After(now) {
			continue
		}
		stats.Active++
		stats.BySeverity[inc.Severity]++
		if stats.LastSeenAt == nil || inc.LastSeenAt.After(*stats.LastSeenAt) {
			seen := inc.LastSeenAt
			stats.LastSeenAt = &seen
		}
	}

	return stats, nil
}
