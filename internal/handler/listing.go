package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/proplens/property-recommendation-service/internal/domain"
)

// POST /listings
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var l domain.Listing
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	created, err := h.service.CreateListing(r.Context(), &l)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "invalid_parameter", verr.Error())
			return
		}
		h.log.Error("listing create failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GET /listings/{listingID}
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	if listingID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid listing_id parameter")
		return
	}

	listing, err := h.service.GetListing(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "listing_not_found",
				fmt.Sprintf("Listing with ID %s does not exist", listingID))
			return
		}
		h.log.Error("listing fetch failed", map[string]interface{}{
			"listingId": listingID, "error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, listing)
}
