package handler

import "github.com/proplens/property-recommendation-service/internal/domain"

type RecommendationResponse struct {
	VisitorID       string                    `json:"visitor_id"`
	Recommendations []domain.ScoredListing    `json:"recommendations"`
	Source          string                    `json:"source"`
	Degraded        bool                      `json:"degraded,omitempty"`
	NoSafeMatches   bool                      `json:"no_safe_matches,omitempty"`
	Metadata        domain.RecommendationMeta `json:"metadata"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
