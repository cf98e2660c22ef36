package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/logger"
	"github.com/proplens/property-recommendation-service/internal/metrics"
)

// Client talks to the remote scoring/pricing service. Every call runs under a
// per-attempt timeout and a retry policy; recommendation calls use the short
// policy, price-model calls the cold-start one.
type Client struct {
	baseURL        string
	httpc          *http.Client
	attemptTimeout time.Duration
	recommendPol   Policy
	pricePol       Policy
	log            logger.Logger
}

func NewClient(cfg config.AIConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		httpc:          &http.Client{},
		attemptTimeout: cfg.AttemptTimeout,
		recommendPol:   NewPolicy(cfg.Recommend),
		pricePol:       NewPolicy(cfg.Price),
		log:            log.WithFields(map[string]interface{}{"component": "ai-client"}),
	}
}

// Property is one candidate sent to POST /recommend.
type Property struct {
	ID        string    `json:"id"`
	Vector    []float64 `json:"vector"`
	CreatedAt int64     `json:"createdAt,omitempty"`
}

// RecommendRequest matches the scoring service contract. A nil UserVector is
// serialized as null and asks the service for its default (recency) ranking.
type RecommendRequest struct {
	Properties []Property `json:"properties"`
	UserVector []float64  `json:"user_vector"`
	TopN       int        `json:"top_n"`
}

type recommendResponse struct {
	Recommendations *[]json.RawMessage `json:"recommendations"`
}

// PriceFeatures matches the POST /predict-price feature payload.
type PriceFeatures struct {
	NormalizedAreaSqFt float64 `json:"normalized_area_sqft"`
	Bedrooms           float64 `json:"bedrooms"`
	Bathrooms          float64 `json:"bathrooms"`
	NormalizedCityCode float64 `json:"normalized_city_code"`
	NormalizedTypeCode float64 `json:"normalized_type_code"`
	PropertyAgeYears   float64 `json:"property_age_years"`
}

// Recommend asks the scoring service for a ranked candidate list.
func (c *Client) Recommend(ctx context.Context, req RecommendRequest) ([]domain.Candidate, error) {
	var out []domain.Candidate
	err := c.withRetry(ctx, "recommend", c.recommendPol, func(ctx context.Context) error {
		var resp recommendResponse
		if err := c.doJSON(ctx, http.MethodPost, "/recommend", req, &resp); err != nil {
			return err
		}
		if resp.Recommendations == nil {
			// Expected key missing entirely: the service may still be
			// coming up, so another attempt is allowed.
			return transient(&domain.InvalidResponseError{Detail: "missing recommendations key"})
		}
		cands, err := decodeCandidates(*resp.Recommendations)
		if err != nil {
			return err
		}
		out = cands
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeCandidates accepts the two shapes the service is known to emit, a
// bare id string or an {id, score} object, and rejects everything else.
func decodeCandidates(entries []json.RawMessage) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, 0, len(entries))
	for i, raw := range entries {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			out = append(out, domain.Candidate{ID: id})
			continue
		}

		var obj struct {
			ID    string   `json:"id"`
			Score *float64 `json:"score"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.ID != "" {
			out = append(out, domain.Candidate{ID: obj.ID, Score: obj.Score})
			continue
		}

		return nil, &domain.InvalidResponseError{
			Detail: fmt.Sprintf("recommendation entry %d is neither an id nor an {id, score} object", i),
		}
	}
	return out, nil
}

// ModelStatus probes GET /model-status with the short policy.
func (c *Client) ModelStatus(ctx context.Context) (*domain.ModelStatus, error) {
	var status domain.ModelStatus
	err := c.withRetry(ctx, "model-status", c.recommendPol, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/model-status", nil, &status)
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// TrainModel submits a training batch and passes the service's metrics
// through verbatim.
func (c *Client) TrainModel(ctx context.Context, rows []domain.TrainingRow) (map[string]interface{}, error) {
	body := struct {
		Properties []domain.TrainingRow `json:"properties"`
	}{Properties: rows}

	var result map[string]interface{}
	err := c.withRetry(ctx, "train-price-model", c.pricePol, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/train-price-model", body, &result)
	})
	if err != nil {
		return nil, err
	}
	metrics.PriceModelTrainings.Inc()
	return result, nil
}

// PredictPrice requests a single-property prediction and validates that both
// the point estimate and the range are present.
func (c *Client) PredictPrice(ctx context.Context, features PriceFeatures) (*domain.PricePrediction, error) {
	body := struct {
		Features PriceFeatures `json:"features"`
	}{Features: features}

	var pred *domain.PricePrediction
	err := c.withRetry(ctx, "predict-price", c.pricePol, func(ctx context.Context) error {
		var resp struct {
			PredictedPrice *float64 `json:"predicted_price"`
			PriceRange     *struct {
				Min *float64 `json:"min"`
				Max *float64 `json:"max"`
			} `json:"price_range"`
			Confidence float64 `json:"confidence_score"`
		}
		if err := c.doJSON(ctx, http.MethodPost, "/predict-price", body, &resp); err != nil {
			return err
		}
		if resp.PredictedPrice == nil || resp.PriceRange == nil ||
			resp.PriceRange.Min == nil || resp.PriceRange.Max == nil {
			return &domain.InvalidResponseError{Detail: "prediction is missing predicted_price or price_range"}
		}
		pred = &domain.PricePrediction{
			PredictedPrice: *resp.PredictedPrice,
			PriceRange:     domain.PriceRange{Min: *resp.PriceRange.Min, Max: *resp.PriceRange.Max},
			Confidence:     resp.Confidence,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pred, nil
}

func (c *Client) withRetry(ctx context.Context, endpoint string, pol Policy, fn func(ctx context.Context) error) error {
	start := time.Now()
	attempt := 0
	err := pol.Do(ctx, func(ctx context.Context) error {
		if attempt > 0 {
			metrics.AIRequestRetries.WithLabelValues(endpoint).Inc()
			c.log.Warn("retrying ai call", map[string]interface{}{
				"endpoint": endpoint,
				"attempt":  attempt,
			})
		}
		attempt++
		return fn(ctx)
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.AIRequestDuration.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
	return err
}

// doJSON performs one attempt: marshal, POST/GET under the attempt timeout,
// classify the status code, decode. Failures that may clear up on their own
// come back marked transient; well-formed service errors do not.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Covers connection failures, cancellation and attempt timeouts.
		return transient(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transient(fmt.Errorf("read %s response: %w", path, err))
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		// The service answers 503 while warming up.
		return transient(fmt.Errorf("%s %s: service warming up (503)", method, path))
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, errorDetail(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return transient(fmt.Errorf("decode %s response: %w", path, err))
		}
	}
	return nil
}

// errorDetail pulls FastAPI's {"detail": ...} message out of an error body.
func errorDetail(data []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	const maxBody = 200
	if len(data) > maxBody {
		data = data[:maxBody]
	}
	return string(data)
}
