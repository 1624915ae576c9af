package models

// ModelHealth is the body of GET /health.
type ModelHealth struct {
	Status      string   `json:"status"`
	ModelLoaded bool     `json:"model_loaded"`
	ModelPath   string   `json:"model_path"`
	ModelType   *string  `json:"model_type"`
	Features    []string `json:"features"`
}

// APIInfo is the body of GET /.
type APIInfo struct {
	Message     string            `json:"message"`
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	ModelLoaded bool              `json:"model_loaded"`
	ModelType   *string           `json:"model_type"`
	Features    []string          `json:"features"`
	Endpoints   map[string]string `json:"endpoints"`
	Example     PredictRequest    `json:"example"`
}

// ModelSample is one reference record scored by GET /test.
type ModelSample struct {
	Description    string  `json:"description"`
	CongestionProb float64 `json:"congestion_prob"`
	Expected       string  `json:"expected"`
	Status         string  `json:"status"`
}

// ModelTest is the body of GET /test.
type ModelTest struct {
	Test    string        `json:"test"`
	Message string        `json:"message"`
	Samples []ModelSample `json:"samples"`
}

// NewModelSample rounds p for display.
func NewModelSample(description, expected string, p float64, status string) ModelSample {
	return ModelSample{
		Description:    description,
		CongestionProb: round(p, 3),
		Expected:       expected,
		Status:         status,
	}
}
