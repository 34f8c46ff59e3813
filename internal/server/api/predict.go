package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ayusman/signbridge/internal/classifier"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/metrics"
)

// Predictor labels a flattened hand landmark vector.
type Predictor interface {
	Predict(landmarks []float64) (string, error)
}

// PredictHandler serves POST /predict.
type PredictHandler struct {
	predictor Predictor
	logger    zerolog.Logger
}

// NewPredictHandler creates a PredictHandler. A nil predictor makes every
// request fail with "Model not loaded".
func NewPredictHandler(p Predictor, logger zerolog.Logger) *PredictHandler {
	return &PredictHandler{
		predictor: p,
		logger:    logger.With().Str("component", "predict-api").Logger(),
	}
}

// maxPredictBody caps a /predict request. A full vector of 63 numbers at
// full float precision is under 2 KB.
const maxPredictBody = 16 << 10

type predictRequest struct {
	Landmarks json.RawMessage `json:"landmarks"`
}

type predictResponse struct {
	Prediction string `json:"prediction"`
}

// ServeHTTP implements the http.Handler interface.
func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.serve(w, r)
	metrics.ServedPredictions.WithLabelValues(fmt.Sprint(status)).Inc()
}

func (h *PredictHandler) serve(w http.ResponseWriter, r *http.Request) int {
	fail := func(status int, message string) int {
		writeError(w, status, message)
		return status
	}

	if h.predictor == nil {
		return fail(http.StatusInternalServerError, "Model not loaded")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPredictBody)

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fail(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return fail(http.StatusBadRequest, "No landmarks provided")
	}
	raw := bytes.TrimSpace(req.Landmarks)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fail(http.StatusBadRequest, "No landmarks provided")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fail(http.StatusBadRequest, "No landmarks provided")
	}
	if len(items) != detector.VectorLen {
		return fail(http.StatusBadRequest,
			fmt.Sprintf("Expected %d values, got %d", detector.VectorLen, len(items)))
	}

	landmarks := make([]float64, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &landmarks[i]); err != nil {
			h.logger.Warn().Err(err).Int("index", i).Msg("non-numeric landmark")
			return fail(http.StatusInternalServerError, "Prediction failed")
		}
	}

	label, err := h.predictor.Predict(landmarks)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, predictResponse{Prediction: label})
		return http.StatusOK
	case errors.Is(err, classifier.ErrNoTemplates):
		return fail(http.StatusInternalServerError, "Model not loaded")
	case errors.Is(err, classifier.ErrLowConfidence):
		return fail(http.StatusUnprocessableEntity, "low confidence")
	default:
		h.logger.Error().Err(err).Msg("prediction error")
		return fail(http.StatusInternalServerError, "Prediction failed")
	}
}
