package price

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/proplens/property-recommendation-service/internal/ai"
	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/feature"
	"github.com/proplens/property-recommendation-service/internal/logger"
)

// ModelClient is the outbound pricing dependency, satisfied by ai.Client.
type ModelClient interface {
	ModelStatus(ctx context.Context) (*domain.ModelStatus, error)
	TrainModel(ctx context.Context, rows []domain.TrainingRow) (map[string]interface{}, error)
	PredictPrice(ctx context.Context, features ai.PriceFeatures) (*domain.PricePrediction, error)
}

// TrainingPool is the eligible-listing source for the retrain check, satisfied
// by repository.Repository. The count is a cheap query; the full rows are only
// fetched once the check decides training is needed.
type TrainingPool interface {
	CountTrainable(ctx context.Context) (int, error)
	TrainableListings(ctx context.Context) ([]domain.Listing, error)
}

// Request carries the raw estimation input. Pointer fields distinguish an
// absent field from a legitimate zero.
type Request struct {
	AreaSqFt  *float64 `json:"areaSqFt"`
	Bedrooms  *int     `json:"bedrooms"`
	Bathrooms *int     `json:"bathrooms"`
	Type      *string  `json:"type"`
	City      string   `json:"city,omitempty"`
	Address   string   `json:"address,omitempty"`
	AgeYears  float64  `json:"ageYears,omitempty"`
}

// Orchestrator decides when the remote price model needs (re)training and
// shapes prediction requests for it.
type Orchestrator struct {
	client ModelClient
	cfg    config.PriceConfig
	log    logger.Logger
	now    func() time.Time
}

func NewOrchestrator(client ModelClient, cfg config.PriceConfig, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		cfg:    cfg,
		log:    log.WithFields(map[string]interface{}{"component": "price-orchestrator"}),
		now:    time.Now,
	}
}

// Status reports the remote model state, failing open: an unreachable service
// is reported as an untrained model rather than an error, so callers on the
// read path never block on pricing availability.
func (o *Orchestrator) Status(ctx context.Context) *domain.ModelStatus {
	status, err := o.client.ModelStatus(ctx)
	if err != nil {
		o.log.Warn("model status unavailable, assuming untrained", map[string]interface{}{"error": err.Error()})
		return &domain.ModelStatus{IsTrained: false}
	}
	return status
}

// CheckAndRetrain trains the remote model when it is untrained or when the
// eligible listing pool has grown by at least the configured delta since the
// last training run. It is safe to call after every catalog write.
func (o *Orchestrator) CheckAndRetrain(ctx context.Context, pool TrainingPool) error {
	status := o.Status(ctx)

	if status.IsTrained {
		eligible, err := pool.CountTrainable(ctx)
		if err != nil {
			return fmt.Errorf("count trainable listings: %w", err)
		}
		if eligible-status.TrainingCount < o.cfg.RetrainDelta {
			return nil
		}
	}

	listings, err := pool.TrainableListings(ctx)
	if err != nil {
		return fmt.Errorf("fetch trainable listings: %w", err)
	}
	return o.Train(ctx, listings)
}

// Train builds training rows from the eligible listings and submits them.
// Listings missing a positive price, bedroom count, or bathroom count are
// excluded; fewer eligible rows than the minimum is a hard error.
func (o *Orchestrator) Train(ctx context.Context, listings []domain.Listing) error {
	eligible := trainable(listings)
	if len(eligible) < o.cfg.MinTrainingRows {
		return &domain.InsufficientDataError{Required: o.cfg.MinTrainingRows, Got: len(eligible)}
	}

	rows := make([]domain.TrainingRow, len(eligible))
	for i, l := range eligible {
		rows[i] = domain.TrainingRow{
			AreaSqFt:  feature.EffectiveArea(l),
			Bedrooms:  l.Bedrooms,
			Bathrooms: l.Bathrooms,
			City:      feature.ListingCity(l),
			Type:      strings.ToLower(l.Type),
			AgeYears:  wholeYears(o.now().Sub(l.CreatedAt)),
			Price:     l.EffectivePrice(),
		}
	}

	result, err := o.client.TrainModel(ctx, rows)
	if err != nil {
		return fmt.Errorf("train price model: %w", err)
	}
	o.log.Info("price model trained", map[string]interface{}{
		"rows":   len(rows),
		"result": result,
	})
	return nil
}

// Predict validates the request, encodes it into model features, and asks the
// remote service for a price. If prediction fails against an untrained model
// the orchestrator trains once and retries once.
func (o *Orchestrator) Predict(ctx context.Context, req Request, listings []domain.Listing) (*domain.PricePrediction, error) {
	features, err := o.buildFeatures(req)
	if err != nil {
		return nil, err
	}

	pred, err := o.client.PredictPrice(ctx, *features)
	if err == nil {
		return pred, nil
	}

	status := o.Status(ctx)
	if status.IsTrained {
		return nil, err
	}

	o.log.Info("prediction hit an untrained model, training and retrying", nil)
	if trainErr := o.Train(ctx, listings); trainErr != nil {
		return nil, trainErr
	}
	return o.client.PredictPrice(ctx, *features)
}

func (o *Orchestrator) buildFeatures(req Request) (*ai.PriceFeatures, error) {
	switch {
	case req.AreaSqFt == nil:
		return nil, domain.NewValidationError("areaSqFt", "required")
	case req.Bedrooms == nil:
		return nil, domain.NewValidationError("bedrooms", "required")
	case req.Bathrooms == nil:
		return nil, domain.NewValidationError("bathrooms", "required")
	case req.Type == nil:
		return nil, domain.NewValidationError("type", "required")
	}
	if *req.AreaSqFt <= 0 {
		return nil, domain.NewValidationError("areaSqFt", "must be positive")
	}
	if *req.Bedrooms < 0 {
		return nil, domain.NewValidationError("bedrooms", "must not be negative")
	}
	if *req.Bathrooms < 0 {
		return nil, domain.NewValidationError("bathrooms", "must not be negative")
	}

	city := req.City
	if city == "" && req.Address != "" {
		city = feature.ExtractCity(req.Address)
	}
	if city == "" {
		city = o.cfg.FallbackCity
	}

	area := *req.AreaSqFt / o.cfg.AreaNormMax
	if area > 1 {
		area = 1
	}

	return &ai.PriceFeatures{
		NormalizedAreaSqFt: area,
		Bedrooms:           float64(*req.Bedrooms),
		Bathrooms:          float64(*req.Bathrooms),
		NormalizedCityCode: feature.HashCode(city),
		NormalizedTypeCode: feature.TypeCode(*req.Type),
		PropertyAgeYears:   req.AgeYears,
	}, nil
}

// trainable keeps listings that carry the full signal the model trains on.
func trainable(listings []domain.Listing) []domain.Listing {
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Price > 0 && l.Bedrooms > 0 && l.Bathrooms > 0 {
			out = append(out, l)
		}
	}
	return out
}

func wholeYears(d time.Duration) int {
	years := int(d.Hours() / (24 * 365))
	if years < 0 {
		return 0
	}
	return years
}
