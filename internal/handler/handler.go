package handler

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/logger"
	"github.com/proplens/property-recommendation-service/internal/price"
	"github.com/proplens/property-recommendation-service/internal/service"
)

// Service is the application surface the HTTP layer talks to.
type Service interface {
	GetRecommendations(ctx context.Context, q service.RecommendationQuery) (*domain.RecommendationResult, error)
	EstimatePrice(ctx context.Context, req price.Request) (*domain.PricePrediction, error)
	ModelStatus(ctx context.Context) *domain.ModelStatus
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	CreateListing(ctx context.Context, l *domain.Listing) (*domain.Listing, error)
}

type Handler struct {
	service Service
	maxTopN int
	log     logger.Logger
}

func NewHandler(svc Service, maxTopN int, log logger.Logger) *Handler {
	return &Handler{service: svc, maxTopN: maxTopN, log: log}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
