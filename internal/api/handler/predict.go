// Package handler provides HTTP handlers for the ClearRoute API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/api/middleware"
	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/api/response"
	"github.com/clearroute/clearroute/internal/congestion"
)

// maxPredictBody bounds the POST /predict body.
const maxPredictBody = 16 << 10

// Predictor runs a congestion prediction. *congestion.Service implements it.
type Predictor interface {
	Predict(ctx context.Context, from, to string) (*congestion.Result, error)
}

// PredictHandler handles POST /predict.
type PredictHandler struct {
	predictor Predictor
	logger    zerolog.Logger
}

// NewPredictHandler creates a new PredictHandler.
func NewPredictHandler(predictor Predictor, logger zerolog.Logger) *PredictHandler {
	return &PredictHandler{predictor: predictor, logger: logger}
}

// Predict handles POST /predict.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxPredictBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail := "request body must be a JSON object with from and to"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			detail = "request body too large"
		}
		response.BadRequest(w, r, detail, nil)
		return
	}

	// A blank endpoint is an unresolvable location, not a malformed body.
	if errs := req.Validate(); len(errs) > 0 {
		traceID := middleware.GetRequestID(r.Context())
		response.Error(w, r, models.NewInvalidLocation(traceID, "Missing required fields: from, to").WithErrors(errs))
		return
	}

	result, err := h.predictor.Predict(r.Context(), req.From, req.To)
	if err != nil {
		response.FromError(w, r, err, h.logger)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewPredictResponse(result))
}
