package traffic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the traffic service.
type ServiceConfig struct {
	// Provider is the speed-band feed.
	Provider Provider

	// Location is the time zone used for day-of-week and hour (default: Asia/Singapore, else UTC).
	Location *time.Location

	// Context is stamped onto every segment (default: DefaultContext).
	Context *Context

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service produces fresh snapshots. Nothing is cached between calls.
type Service struct {
	provider Provider
	loc      *time.Location
	ctx      Context
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a new traffic service.
func NewService(cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation("Asia/Singapore"); err != nil {
			loc = time.UTC
		}
	}

	stamp := DefaultContext
	if cfg.Context != nil {
		stamp = *cfg.Context
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider: cfg.Provider,
		loc:      loc,
		ctx:      stamp,
		now:      now,
		logger:   cfg.Logger,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Snapshot fetches the feed and returns cleaned, stamped segments.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	rows, err := s.provider.FetchSpeedBands(ctx)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch speed bands")
		if errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	fetchedAt := s.now().In(s.loc)
	snap := Build(rows, fetchedAt, s.ctx)

	dropped := len(rows) - len(snap.Segments)
	s.logger.Debug().
		Int("rows", len(rows)).
		Int("segments", len(snap.Segments)).
		Int("dropped", dropped).
		Msg("built traffic snapshot")

	if len(snap.Segments) == 0 {
		return nil, ErrNoSegments
	}

	return snap, nil
}

// Build cleans rows into a snapshot stamped at fetchedAt. Rows missing either
// bound are dropped; the estimate falls back to the bounds' midpoint and all
// speeds are clipped to [0, MaxSpeedKMH].
func Build(rows []RawSegment, fetchedAt time.Time, stamp Context) *Snapshot {
	dow := Weekday(fetchedAt)
	hour := fetchedAt.Hour()

	segments := make([]Segment, 0, len(rows))
	for _, row := range rows {
		lo, okLo := finite(row.MinimumSpeed)
		hi, okHi := finite(row.MaximumSpeed)
		if !okLo || !okHi {
			continue
		}

		est, ok := finite(row.SpeedKMHEst)
		if !ok {
			est = (lo + hi) / 2
		}

		segments = append(segments, Segment{
			LinkID:        row.LinkID,
			RoadName:      row.RoadName,
			RoadCategory:  row.RoadCategory,
			SpeedBand:     row.SpeedBand,
			MinimumSpeed:  clipSpeed(lo),
			MaximumSpeed:  clipSpeed(hi),
			SpeedKMHEst:   clipSpeed(est),
			DayOfWeek:     dow,
			Hour:          hour,
			IncidentCount: stamp.IncidentCount,
			VMSCount:      stamp.VMSCount,
			CCTVCount:     stamp.CCTVCount,
			ETTMean:       stamp.ETTMean,
		})
	}

	return &Snapshot{Segments: segments, FetchedAt: fetchedAt}
}

func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func clipSpeed(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > MaxSpeedKMH:
		return MaxSpeedKMH
	default:
		return v
	}
}
