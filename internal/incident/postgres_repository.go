package incident

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS traffic_incidents (
		id            UUID PRIMARY KEY,
		type          TEXT NOT NULL,
		severity      TEXT NOT NULL,
		message       TEXT NOT NULL,
		latitude      DOUBLE PRECISION NOT NULL,
		longitude     DOUBLE PRECISION NOT NULL,
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_seen_at  TIMESTAMPTZ NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS traffic_incidents_expires_at_idx ON traffic_incidents (expires_at);
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL incident repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the incidents table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create incident schema: %w", err)
	}
	return nil
}

// Upsert inserts or refreshes incidents in a single batch.
func (r *PostgresRepository) Upsert(ctx context.Context, incidents []Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO traffic_incidents (
			id, type, severity, message, latitude, longitude,
			first_seen_at, last_seen_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			severity     = EXCLUDED.severity,
			last_seen_at = EXCLUDED.last_seen_at,
			expires_at   = EXCLUDED.expires_at
	`

	batch := &pgx.Batch{}
	for _, inc := range incidents {
		batch.Queue(query,
			inc.ID, inc.Type, string(inc.Severity), inc.Message,
			inc.Latitude, inc.Longitude,
			inc.FirstSeenAt, inc.LastSeenAt, inc.ExpiresAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range incidents {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("upsert incident: %w", err)
		}
	}

	return len(incidents), nil
}

// ListActive returns unexpired incidents, most recently seen first.
func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time, opts ListOptions) ([]Incident, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT
			id, type, severity, message, latitude, longitude,
			first_seen_at, last_seen_at, expires_at
		FROM traffic_incidents
		WHERE expires_at > $1
		  AND ($2 = '' OR severity = $2)
		ORDER BY last_seen_at DESC, id
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, now, string(opts.Severity), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		var inc Incident
		var severity string
		err := rows.Scan(
			&inc.ID,
			&inc.Type,
			&severity,
			&inc.Message,
			&inc.Latitude,
			&inc.Longitude,
			&inc.FirstSeenAt,
			&inc.LastSeenAt,
			&inc.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		inc.Severity = Severity(severity)
		incidents = append(incidents, inc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return incidents, nil
}

// DeleteExpired removes expired incidents.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM traffic_incidents WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Stats summarises active incidents.
func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	query := `
		SELECT severity, COUNT(*), MAX(last_seen_at)
		FROM traffic_incidents
		WHERE expires_at > $1
		GROUP BY severity
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &Stats{BySeverity: make(map[Severity]int)}
	for rows.Next() {
		var (
			severity string
			count    int
			lastSeen time.Time
		)
		if err := rows.Scan(&severity, &count, &lastSeen); err != nil {
			return nil, err
		}
		stats.Active += count
		stats.BySeverity[Severity(severity)] = count
		if stats.LastSeenAt == nil || lastSeen.After(*stats.LastSeenAt) {
			seen := lastSeen
			stats.LastSeenAt = &seen
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
