package osrm

// OSRM response codes used for error mapping.
const (
	codeOK           = "Ok"
	codeNoRoute      = "NoRoute"
	codeNoSegment    = "NoSegment"
	codeInvalidQuery = "InvalidQuery"
	codeInvalidValue = "InvalidValue"
)

// routeResponse is the body of GET /route/v1/{profile}/{coords}.
type routeResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry string    `json:"geometry"`
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Legs     []osrmLeg `json:"legs"`
}

type osrmLeg struct {
	Summary string `json:"summary"`
}
