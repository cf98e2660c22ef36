package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/price"
)

// POST /price/estimate
func (h *Handler) EstimatePrice(w http.ResponseWriter, r *http.Request) {
	var req price.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	pred, err := h.service.EstimatePrice(r.Context(), req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "invalid_parameter", verr.Error())
			return
		}
		if domain.IsInsufficientData(err) {
			writeError(w, http.StatusUnprocessableEntity, "insufficient_data",
				"Not enough listings with complete data to train the price model")
			return
		}
		if domain.IsServiceUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "service_unavailable",
				"Price estimation service is temporarily unavailable")
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout",
				"Request timed out, please try again")
			return
		}
		h.log.Error("price estimation failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, pred)
}

// GET /price/model-status
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ModelStatus(r.Context()))
}
