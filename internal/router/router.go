package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/proplens/property-recommendation-service/internal/handler"
)

func Setup(h *handler.Handler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	// Routes
	r.Get("/visitors/{visitorID}/recommendations", h.GetRecommendations)
	r.Post("/price/estimate", h.EstimatePrice)
	r.Get("/price/model-status", h.ModelStatus)
	r.Post("/listings", h.CreateListing)
	r.Get("/listings/{listingID}", h.GetListing)
	r.Get("/health", healthCheck)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
