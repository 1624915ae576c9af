// Package features defines the fixed nine-field vector the congestion model consumes.
package features

import "fmt"

// Canonical feature names, in model order.
const (
	SpeedKMHEst   = "SpeedKMH_Est"
	MinimumSpeed  = "MinimumSpeed"
	MaximumSpeed  = "MaximumSpeed"
	DayOfWeek     = "dow"
	Hour          = "hour"
	IncidentCount = "incident_count"
	VMSCount      = "vms_count"
	CCTVCount     = "cctv_count"
	ETTMean       = "ett_mean"
)

// Names returns the canonical feature order. The slice is a fresh copy.
func Names() []string {
	return []string{
		SpeedKMHEst, MinimumSpeed, MaximumSpeed,
		DayOfWeek, Hour,
		IncidentCount, VMSCount, CCTVCount, ETTMean,
	}
}

// Record is one aggregated feature vector.
type Record struct {
	SpeedKMHEst   float64 `json:"SpeedKMH_Est"`
	MinimumSpeed  float64 `json:"MinimumSpeed"`
	MaximumSpeed  float64 `json:"MaximumSpeed"`
	DayOfWeek     int     `json:"dow"`
	Hour          int     `json:"hour"`
	IncidentCount int     `json:"incident_count"`
	VMSCount      int     `json:"vms_count"`
	CCTVCount     int     `json:"cctv_count"`
	ETTMean       float64 `json:"ett_mean"`
}

// Get returns the value of the named feature.
func (r Record) Get(name string) (float64, error) {
	switch name {
	case SpeedKMHEst:
		return r.SpeedKMHEst, nil
	case MinimumSpeed:
		return r.MinimumSpeed, nil
	case MaximumSpeed:
		return r.MaximumSpeed, nil
	case DayOfWeek:
		return float64(r.DayOfWeek), nil
	case Hour:
		return float64(r.Hour), nil
	case IncidentCount:
		return float64(r.IncidentCount), nil
	case VMSCount:
		return float64(r.VMSCount), nil
	case CCTVCount:
		return float64(r.CCTVCount), nil
	case ETTMean:
		return r.ETTMean, nil
	default:
		return 0, fmt.Errorf("unknown feature %q", name)
	}
}

// Vector returns the values for names, in that order.
func (r Record) Vector(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Map returns the record keyed by canonical name.
func (r Record) Map() map[string]float64 {
	m := make(map[string]float64, 9)
	for _, name := range Names() {
		v, _ := r.Get(name)
		m[name] = v
	}
	return m
}

// ReferenceSlow and ReferenceFast are the model's validation samples.
// The exported model scores them at about 0.745 and 0.075 respectively.
var (
	ReferenceSlow = Record{
		SpeedKMHEst: 28.0, MinimumSpeed: 20.0, MaximumSpeed: 29.0,
		DayOfWeek: 3, Hour: 9,
		IncidentCount: 74, VMSCount: 3600, CCTVCount: 36000, ETTMean: 1.75,
	}
	ReferenceFast = Record{
		SpeedKMHEst: 64.5, MinimumSpeed: 60.0, MaximumSpeed: 69.0,
		DayOfWeek: 3, Hour: 9,
		IncidentCount: 73, VMSCount: 3348, CCTVCount: 36000, ETTMean: 1.75,
	}
)
