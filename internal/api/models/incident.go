package models

import "github.com/clearroute/clearroute/internal/incident"

// IncidentList is the body of GET /v1/incidents.
type IncidentList struct {
	Items []incident.Incident `json:"items"`
	Count int                 `json:"count"`
}

// IncidentStats is the body of GET /v1/admin/incidents/stats.
type IncidentStats struct {
	incident.Stats
	LastRefresh *incident.RefreshResult `json:"lastRefresh,omitempty"`
}
