// Package incident ingests LTA traffic incidents and serves the active set.
package incident

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Incident errors.
var (
	// ErrSourceUnavailable indicates the incident feed failed.
	ErrSourceUnavailable = errors.New("incident source unavailable")
	// ErrInvalidSeverity indicates an unknown severity filter value.
	ErrInvalidSeverity = errors.New("invalid severity")
)

// Severity ranks how disruptive an incident is.
type Severity string

const (
	SeverityHigh    Severity = "HIGH"
	SeverityMedium  Severity = "MEDIUM"
	SeverityLow     Severity = "LOW"
	SeverityUnknown Severity = "UNKNOWN"
)

// AllSeverities lists severities from most to least disruptive.
var AllSeverities = []Severity{SeverityHigh, SeverityMedium, SeverityLow, SeverityUnknown}

// ParseSeverity accepts any casing of a known severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllSeverities {
		if sev == known {
			return sev, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// SeverityForType derives severity from the LTA incident type alone.
func SeverityForType(incidentType string) Severity {
	t := strings.ToLower(incidentType)

	switch {
	case strings.Contains(t, "accident"), strings.Contains(t, "road block"):
		return SeverityHigh
	case strings.Contains(t, "heavy traffic"), strings.Contains(t, "roadwork"):
		return SeverityMedium
	case strings.Contains(t, "obstacle"),
		strings.Contains(t, "unattended vehicle"),
		strings.Contains(t, "vehicle breakdown"):
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// Report is one incident as delivered by the source feed.
type Report struct {
	Type      string
	Message   string
	Latitude  float64
	Longitude float64
}

// Incident is a stored, classified report.
type Incident struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// idNamespace scopes deterministic incident IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://datamall.lta.gov.sg/TrafficIncidents"))

// IDFor returns a stable ID for a report so repeated polls upsert the same row.
func IDFor(r Report) uuid.UUID {
	key := fmt.Sprintf("%s|%s|%.6f|%.6f", r.Type, r.Message, r.Latitude, r.Longitude)
	return uuid.NewSHA1(idNamespace, []byte(key))
}

// FromReport classifies a report observed at now.
func FromReport(r Report, now time.Time, ttl time.Duration) Incident {
	return Incident{
		ID:          IDFor(r),
		Type:        r.Type,
		Severity:    SeverityForType(r.Type),
		Message:     r.Message,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		FirstSeenAt: now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(ttl),
	}
}

// Source fetches the current incident feed.
type Source interface {
	FetchIncidents(ctx context.Context) ([]Report, error)
	Name() string
}

// Stats summarises the active incident set.
type Stats struct {
	Active     int              `json:"active"`
	BySeverity map[Severity]int `json:"bySeverity"`
	LastSeenAt *time.Time       `json:"lastSeenAt,omitempty"`
}

// RefreshResult reports what one ingestion pass did.
type RefreshResult struct {
	Fetched   int       `json:"fetched"`
	Upserted  int       `json:"upserted"`
	Expired   int       `json:"expired"`
	Refreshed time.Time `json:"refreshedAt"`
}
