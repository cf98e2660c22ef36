package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ai_request_duration_seconds",
			Help: "Duration of outbound AI service calls",
		},
		[]string{"endpoint", "outcome"},
	)

	AIRequestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_request_retries_total",
			Help: "Total retry attempts against the AI service",
		},
		[]string{"endpoint"},
	)

	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Recommendation responses served, by signal source",
		},
		[]string{"source"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Recommendation cache misses",
		},
	)

	PriceModelTrainings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "price_model_trainings_total",
			Help: "Training calls submitted to the pricing model",
		},
	)
)
