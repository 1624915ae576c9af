package lta

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// envelope is the OData wrapper LTA puts around every dataset.
type envelope[T any] struct {
	Value []T `json:"value"`
}

// speedBand is one row of v4/TrafficSpeedBands.
type speedBand struct {
	LinkID       string `json:"LinkID"`
	RoadName     string `json:"RoadName"`
	RoadCategory string `json:"RoadCategory"`
	SpeedBand    number `json:"SpeedBand"`
	MinimumSpeed number `json:"MinimumSpeed"`
	MaximumSpeed number `json:"MaximumSpeed"`
	SpeedKMHEst  number `json:"SpeedKMH_Est"`
}

// trafficIncident is one row of TrafficIncidents.
type trafficIncident struct {
	Type      string `json:"Type"`
	Latitude  number `json:"Latitude"`
	Longitude number `json:"Longitude"`
	Message   string `json:"Message"`
}

// number accepts a JSON number or a numeric string. Anything else,
// including null and "", decodes as absent rather than failing the page.
type number struct {
	value *float64
}

func (n *number) UnmarshalJSON(data []byte) error {
	n.value = nil

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	n.value = &v
	return nil
}

func (n number) ptr() *float64 {
	return n.value
}

func (n number) intOr(def int) int {
	if n.value == nil {
		return def
	}
	return int(*n.value)
}

func (n number) floatOr(def float64) float64 {
	if n.value == nil {
		return def
	}
	return *n.value
}
