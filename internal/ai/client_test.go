package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/logger"
)

func testClientConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		BaseURL:        baseURL,
		AttemptTimeout: 2 * time.Second,
		Recommend:      config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Price:          config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testClientConfig(srv.URL), logger.NewTestLogger(t)), srv
}

func TestRecommendRetriesThroughWarmup(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"recommendations":[{"id":"l1","score":0.93},{"id":"l2","score":0.88}]}`))
	})

	cands, err := client.Recommend(context.Background(), RecommendRequest{TopN: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, cands, 2)
	assert.Equal(t, "l1", cands[0].ID)
	require.NotNil(t, cands[0].Score)
	assert.Equal(t, 0.93, *cands[0].Score)
}

func TestRecommendExhaustsRetries(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Recommend(context.Background(), RecommendRequest{TopN: 5})
	assert.Equal(t, 3, calls)

	var unavailable *domain.ServiceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
}

func TestRecommendDoesNotRetryWellFormedErrors(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"No properties provided"}`))
	})

	_, err := client.Recommend(context.Background(), RecommendRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "No properties provided")
	assert.False(t, domain.IsServiceUnavailable(err))
}

func TestRecommendAcceptsBareIDList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recommendations":["l1","l2","l3"]}`))
	})

	cands, err := client.Recommend(context.Background(), RecommendRequest{TopN: 3})
	require.NoError(t, err)
	require.Len(t, cands, 3)
	assert.Equal(t, "l2", cands[1].ID)
	assert.Nil(t, cands[1].Score)
}

func TestRecommendRejectsUnknownShape(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"recommendations":[42]}`))
	})

	_, err := client.Recommend(context.Background(), RecommendRequest{TopN: 1})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidResponse(err))
	// Shape mismatch is not retried.
	assert.Equal(t, 1, calls)
}

func TestRecommendMixedEntryShapes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recommendations":["l1",{"id":"l2","score":0.9}]}`))
	})

	cands, err := client.Recommend(context.Background(), RecommendRequest{TopN: 2})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Nil(t, cands[0].Score)
	require.NotNil(t, cands[1].Score)
	assert.Equal(t, 0.9, *cands[1].Score)
}

func TestModelStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/model-status", r.URL.Path)
		w.Write([]byte(`{"is_trained":true,"training_count":42,"model_type":"Random Forest Regressor","feature_names":["normalized_area_sqft"]}`))
	})

	status, err := client.ModelStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsTrained)
	assert.Equal(t, 42, status.TrainingCount)
}

func TestTrainModelPassesMetricsThrough(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/train-price-model", r.URL.Path)
		w.Write([]byte(`{"status":"success","samples_trained":12,"r2_score":0.87}`))
	})

	result, err := client.TrainModel(context.Background(), []domain.TrainingRow{{City: "Austin", Price: 100}})
	require.NoError(t, err)
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, 0.87, result["r2_score"])
}

func TestPredictPrice(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict-price", r.URL.Path)
		w.Write([]byte(`{"predicted_price":250000,"price_range":{"min":212500,"max":287500},"confidence_score":0.75}`))
	})

	pred, err := client.PredictPrice(context.Background(), PriceFeatures{NormalizedAreaSqFt: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 250000.0, pred.PredictedPrice)
	assert.Equal(t, 212500.0, pred.PriceRange.Min)
	assert.Equal(t, 287500.0, pred.PriceRange.Max)
	assert.Equal(t, 0.75, pred.Confidence)
}

func TestPredictPriceRejectsIncompleteResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predicted_price":250000}`))
	})

	_, err := client.PredictPrice(context.Background(), PriceFeatures{})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidResponse(err))
}

func TestRecommendRetriesMalformedBody(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"recommendations": [truncated`))
			return
		}
		w.Write([]byte(`{"recommendations":[]}`))
	})

	cands, err := client.Recommend(context.Background(), RecommendRequest{TopN: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Empty(t, cands)
}
