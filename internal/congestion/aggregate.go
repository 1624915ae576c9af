package congestion

import (
	"github.com/clearroute/clearroute/internal/features"
	"github.com/clearroute/clearroute/internal/traffic"
)

// Aggregate collapses the snapshot rows whose LinkID is in ids into one record:
// speeds and ETT are averaged, counts are summed, and dow/hour take the mode
// with ties going to the value seen first. Every row counts, including rows
// that repeat a LinkID.
func Aggregate(ids []string, snap *traffic.Snapshot) (features.Record, error) {
	if snap == nil || len(ids) == 0 {
		return features.Record{}, ErrNoSegmentsForRoute
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var (
		n                     int
		est, lo, hi, ett      float64
		incidents, vms, cctvs int
		dow, hour             modeCounter
	)

	for _, seg := range snap.Segments {
		if _, ok := want[seg.LinkID]; !ok {
			continue
		}
		n++
		est += seg.SpeedKMHEst
		lo += seg.MinimumSpeed
		hi += seg.MaximumSpeed
		ett += seg.ETTMean
		incidents += seg.IncidentCount
		vms += seg.VMSCount
		cctvs += seg.CCTVCount
		dow.add(seg.DayOfWeek)
		hour.add(seg.Hour)
	}

	if n == 0 {
		return features.Record{}, ErrNoSegmentsForRoute
	}

	count := float64(n)
	return features.Record{
		SpeedKMHEst:   est / count,
		MinimumSpeed:  lo / count,
		MaximumSpeed:  hi / count,
		DayOfWeek:     dow.mode(),
		Hour:          hour.mode(),
		IncidentCount: incidents,
		VMSCount:      vms,
		CCTVCount:     cctvs,
		ETTMean:       ett / count,
	}, nil
}

// modeCounter tracks value frequencies and first-seen order.
type modeCounter struct {
	order  []int
	counts map[int]int
}

func (m *modeCounter) add(v int) {
	if m.counts == nil {
		m.counts = make(map[int]int)
	}
	if _, ok := m.counts[v]; !ok {
		m.order = append(m.order, v)
	}
	m.counts[v]++
}

func (m *modeCounter) mode() int {
	best, bestCount := 0, 0
	for _, v := range m.order {
		if c := m.counts[v]; c > bestCount {
			best, bestCount = v, c
		}
	}
	return best
}
