package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/service"
)

// GET /visitors/{visitorID}/recommendations
//
// Interaction signals travel as query parameters: favorites and
// recentlyViewed as comma-separated listing ids, lastSearch as a JSON object.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	visitorID := chi.URLParam(r, "visitorID")
	if visitorID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid visitor_id parameter")
		return
	}

	topN := 0
	if topNStr := r.URL.Query().Get("topN"); topNStr != "" {
		parsed, err := strconv.Atoi(topNStr)
		if err != nil || parsed < 1 || parsed > h.maxTopN {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid topN parameter")
			return
		}
		topN = parsed
	}

	var lastSearch *domain.LastSearch
	if raw := r.URL.Query().Get("lastSearch"); raw != "" {
		var q domain.LastSearch
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid lastSearch parameter")
			return
		}
		lastSearch = &q
	}

	result, err := h.service.GetRecommendations(r.Context(), service.RecommendationQuery{
		VisitorID:  visitorID,
		Favorites:  splitIDs(r.URL.Query().Get("favorites")),
		Recent:     splitIDs(r.URL.Query().Get("recentlyViewed")),
		LastSearch: lastSearch,
		TopN:       topN,
	})
	if err != nil {
		if domain.IsServiceUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "service_unavailable",
				"Recommendation service is temporarily unavailable")
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout",
				"Request timed out, please try again")
			return
		}
		h.log.Error("recommendation request failed", map[string]interface{}{
			"visitorId": visitorID, "error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	resp := RecommendationResponse{
		VisitorID:       visitorID,
		Recommendations: result.Recommendations,
		Source:          result.Source,
		Degraded:        result.Degraded,
		NoSafeMatches:   result.NoSafeMatches,
		Metadata: domain.RecommendationMeta{
			CacheHit:    result.CacheHit,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			TotalCount:  len(result.Recommendations),
		},
	}

	writeJSON(w, http.StatusOK, resp)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
