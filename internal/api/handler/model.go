package handler

import (
	"net/http"

	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/api/response"
	"github.com/clearroute/clearroute/internal/congestion"
	"github.com/clearroute/clearroute/internal/features"
)

// Model exposes the loaded classifier. *classifier.Classifier implements it.
type Model interface {
	Loaded() bool
	Path() string
	Name() string
	Features() []string
	PredictProbability(r features.Record) (float64, error)
}

// ModelHandler serves the model-facing endpoints GET /, /health and /test.
type ModelHandler struct {
	model   Model
	version string
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(model Model, version string) *ModelHandler {
	return &ModelHandler{model: model, version: version}
}

func (h *ModelHandler) modelType() *string {
	if !h.model.Loaded() {
		return nil
	}
	name := h.model.Name()
	return &name
}

// Health handles GET /health. It reports ok even without a model so the
// process stays routable; model_loaded tells clients whether /predict works.
func (h *ModelHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.ModelHealth{
		Status:      "ok",
		ModelLoaded: h.model.Loaded(),
		ModelPath:   h.model.Path(),
		ModelType:   h.modelType(),
		Features:    h.model.Features(),
	})
}

// Info handles GET /.
func (h *ModelHandler) Info(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.APIInfo{
		Message:     "Traffic Prediction API - Production Ready",
		Status:      "active",
		Version:     h.version,
		ModelLoaded: h.model.Loaded(),
		ModelType:   h.modelType(),
		Features:    h.model.Features(),
		Endpoints: map[string]string{
			"/":                   "GET - API information",
			"/health":             "GET - Check API health",
			"/predict":            "POST - Predict traffic congestion",
			"/test":               "GET - Score the model's reference samples",
			"/v1/incidents":       "GET - Active traffic incidents",
			"/v1/ops/status":      "GET - Provider and subsystem status",
			"/v1/admin/incidents": "Admin - Incident ingestion stats and refresh",
		},
		Example: models.PredictRequest{From: "Orchard Road", To: "Marina Bay"},
	})
}

// Test handles GET /test by scoring the two reference samples.
func (h *ModelHandler) Test(w http.ResponseWriter, r *http.Request) {
	if !h.model.Loaded() {
		response.ServiceUnavailable(w, r, "Model not loaded")
		return
	}

	samples := []struct {
		description string
		expected    string
		record      features.Record
	}{
		{"Slow speed (28 km/h)", "~0.745 (congested)", features.ReferenceSlow},
		{"Fast speed (64.5 km/h)", "~0.075 (clear)", features.ReferenceFast},
	}

	out := make([]models.ModelSample, 0, len(samples))
	for _, s := range samples {
		p, err := h.model.PredictProbability(s.record)
		if err != nil {
			response.InternalError(w, r, "model failed to score reference sample")
			return
		}
		out = append(out, models.NewModelSample(s.description, s.expected, p, string(congestion.StatusFor(p))))
	}

	response.JSON(w, r, http.StatusOK, models.ModelTest{
		Test:    "success",
		Message: "Model test using notebook samples",
		Samples: out,
	})
}
