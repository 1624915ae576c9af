// Package traffic builds per-request snapshots of live road-segment speeds.
package traffic

import (
	"context"
	"errors"
	"time"
)

// Traffic errors.
var (
	// ErrProviderUnavailable indicates the speed-band feed failed or is unreachable.
	ErrProviderUnavailable = errors.New("traffic provider unavailable")
	// ErrNoSegments indicates the feed returned no usable rows.
	ErrNoSegments = errors.New("no traffic segments available")
)

// MaxSpeedKMH is the upper clip applied to every speed field.
const MaxSpeedKMH = 120.0

// RawSegment is one speed-band row as delivered by the feed.
// A nil speed means the value was absent or not numeric.
type RawSegment struct {
	LinkID       string
	RoadName     string
	RoadCategory string
	SpeedBand    int
	MinimumSpeed *float64
	MaximumSpeed *float64
	SpeedKMHEst  *float64
}

// Provider fetches raw speed-band rows.
type Provider interface {
	FetchSpeedBands(ctx context.Context) ([]RawSegment, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Segment is a cleaned row stamped with the snapshot-wide context.
type Segment struct {
	LinkID       string
	RoadName     string
	RoadCategory string
	SpeedBand    int

	MinimumSpeed float64
	MaximumSpeed float64
	SpeedKMHEst  float64

	DayOfWeek     int // Monday=0 .. Sunday=6
	Hour          int
	IncidentCount int
	VMSCount      int
	CCTVCount     int
	ETTMean       float64
}

// Snapshot is the result of one feed fetch. Segments keep feed order.
type Snapshot struct {
	Segments  []Segment
	FetchedAt time.Time
}

// LinkIDs returns the distinct LinkIDs in first-seen order.
func (s *Snapshot) LinkIDs() []string {
	seen := make(map[string]struct{}, len(s.Segments))
	ids := make([]string, 0, len(s.Segments))
	for _, seg := range s.Segments {
		if _, ok := seen[seg.LinkID]; ok {
			continue
		}
		seen[seg.LinkID] = struct{}{}
		ids = append(ids, seg.LinkID)
	}
	return ids
}

// Context holds the placeholder values stamped on every segment.
type Context struct {
	IncidentCount int
	VMSCount      int
	CCTVCount     int
	ETTMean       float64
}

// DefaultContext matches the values the model was validated with.
var DefaultContext = Context{
	IncidentCount: 0,
	VMSCount:      0,
	CCTVCount:     36000,
	ETTMean:       1.75,
}

// Weekday converts a time.Weekday (Sunday=0) to Monday=0 numbering.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
