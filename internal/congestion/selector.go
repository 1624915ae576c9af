package congestion

import (
	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/internal/traffic"
)

// SegmentSelector chooses which snapshot LinkIDs describe a route.
type SegmentSelector interface {
	Select(route routing.Route, snap *traffic.Snapshot) []string
}

// FirstNSelector takes the first n distinct LinkIDs of the snapshot, where n
// grows with the number of polyline points. It ignores geometry entirely and
// is a stand-in until segments are map-matched to the route.
type FirstNSelector struct {
	Min     int // default 5
	Max     int // default 15
	Divisor int // default 10
}

// Count returns clamp(points/Divisor, Min, Max).
func (s FirstNSelector) Count(points int) int {
	lo, hi, div := s.Min, s.Max, s.Divisor
	if lo <= 0 {
		lo = 5
	}
	if hi <= 0 {
		hi = 15
	}
	if div <= 0 {
		div = 10
	}

	n := points / div
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return n
}

// Select returns up to Count(len(route.Points)) LinkIDs in first-seen order.
func (s FirstNSelector) Select(route routing.Route, snap *traffic.Snapshot) []string {
	if snap == nil {
		return nil
	}

	ids := snap.LinkIDs()
	n := s.Count(len(route.Points))
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}
