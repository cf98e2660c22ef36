package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/proplens/property-recommendation-service/internal/cache"
	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/logger"
	"github.com/proplens/property-recommendation-service/internal/metrics"
	"github.com/proplens/property-recommendation-service/internal/price"
	"github.com/proplens/property-recommendation-service/internal/recommend"
)

const retrainTimeout = 2 * time.Minute

// Engine produces fused recommendation candidates for one visitor.
type Engine interface {
	Recommend(ctx context.Context, in recommend.Input) (*recommend.Result, error)
}

// PriceEstimator wraps the pricing workflow.
type PriceEstimator interface {
	Status(ctx context.Context) *domain.ModelStatus
	CheckAndRetrain(ctx context.Context, pool price.TrainingPool) error
	Predict(ctx context.Context, req price.Request, listings []domain.Listing) (*domain.PricePrediction, error)
}

// ListingStore is the catalog persistence surface the service needs.
type ListingStore interface {
	GetListings(ctx context.Context) ([]domain.Listing, error)
	GetListingByID(ctx context.Context, id string) (*domain.Listing, error)
	CreateListing(ctx context.Context, l *domain.Listing) error
	TrainableListings(ctx context.Context) ([]domain.Listing, error)
	CountTrainable(ctx context.Context) (int, error)
}

// ResultCache caches full recommendation results keyed by request signal.
type ResultCache interface {
	Get(ctx context.Context, s cache.Signal) (*domain.RecommendationResult, error)
	Set(ctx context.Context, s cache.Signal, result *domain.RecommendationResult) error
	Flush(ctx context.Context) error
}

// RecommendationQuery is one visitor's recommendation request.
type RecommendationQuery struct {
	VisitorID  string
	Favorites  []string
	Recent     []string
	LastSearch *domain.LastSearch
	TopN       int
}

type Service struct {
	repo   ListingStore
	cache  ResultCache
	engine Engine
	price  PriceEstimator
	cfg    config.RecommendConfig
	log    logger.Logger
}

func NewService(repo ListingStore, resultCache ResultCache, engine Engine, estimator PriceEstimator, cfg config.RecommendConfig, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  resultCache,
		engine: engine,
		price:  estimator,
		cfg:    cfg,
		log:    log.WithFields(map[string]interface{}{"component": "service"}),
	}
}

// GetRecommendations serves one visitor's recommendations: cache first, then
// the fusion engine over a fresh catalog snapshot. When the scoring service is
// down the visitor gets a recency-sorted substitute marked as degraded rather
// than an error.
func (s *Service) GetRecommendations(ctx context.Context, q RecommendationQuery) (*domain.RecommendationResult, error) {
	if q.TopN <= 0 {
		q.TopN = s.cfg.DefaultTopN
	} else if q.TopN > s.cfg.MaxTopN {
		q.TopN = s.cfg.MaxTopN
	}

	sig := cache.Signal{
		VisitorID:  q.VisitorID,
		Limit:      q.TopN,
		Favorites:  q.Favorites,
		Recent:     q.Recent,
		LastSearch: q.LastSearch,
	}

	cached, err := s.cache.Get(ctx, sig)
	if err != nil {
		s.log.Warn("cache get failed", map[string]interface{}{"visitorId": q.VisitorID, "error": err.Error()})
	}
	if cached != nil {
		cached.CacheHit = true
		metrics.RecommendationsServed.WithLabelValues(cached.Source).Inc()
		return cached, nil
	}

	listings, err := s.repo.GetListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog snapshot: %w", err)
	}

	result, err := s.generate(ctx, q, listings)
	if err != nil {
		return nil, err
	}

	// A degraded substitute reflects a scoring outage, not the catalog; caching
	// it would keep serving fallback content for the full TTL after recovery.
	if !result.Degraded {
		if cacheErr := s.cache.Set(ctx, sig, result); cacheErr != nil {
			s.log.Warn("cache set failed", map[string]interface{}{"visitorId": q.VisitorID, "error": cacheErr.Error()})
		}
	}

	metrics.RecommendationsServed.WithLabelValues(result.Source).Inc()
	return result, nil
}

func (s *Service) generate(ctx context.Context, q RecommendationQuery, listings []domain.Listing) (*domain.RecommendationResult, error) {
	res, err := s.engine.Recommend(ctx, recommend.Input{
		Listings:   listings,
		Favorites:  q.Favorites,
		Recent:     q.Recent,
		LastSearch: q.LastSearch,
		TopN:       q.TopN,
	})
	if err != nil {
		if domain.IsServiceUnavailable(err) {
			s.log.Warn("scoring service unavailable, serving degraded recommendations",
				map[string]interface{}{"visitorId": q.VisitorID, "error": err.Error()})
			return degradedResult(listings, q, s.interactionSet(q)), nil
		}
		return nil, err
	}

	byID := make(map[string]domain.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	recs := make([]domain.ScoredListing, 0, len(res.Candidates))
	for _, cand := range res.Candidates {
		listing, ok := byID[cand.ID]
		if !ok {
			continue
		}
		recs = append(recs, domain.ScoredListing{Listing: listing, SimilarityScore: cand.Score})
	}

	return &domain.RecommendationResult{
		Recommendations: recs,
		Source:          string(res.Source),
		NoSafeMatches:   res.Source == recommend.SourceFiltered,
	}, nil
}

func (s *Service) interactionSet(q RecommendationQuery) map[string]struct{} {
	seen := make(map[string]struct{}, len(q.Favorites)+len(q.Recent))
	for _, id := range q.Favorites {
		seen[id] = struct{}{}
	}
	for _, id := range q.Recent {
		seen[id] = struct{}{}
	}
	return seen
}

// degradedResult is the scoring-outage substitute: the newest listings the
// visitor has not interacted with, unscored.
func degradedResult(listings []domain.Listing, q RecommendationQuery, seen map[string]struct{}) *domain.RecommendationResult {
	pool := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if _, known := seen[l.ID]; known {
			continue
		}
		pool = append(pool, l)
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].CreatedAt.After(pool[j].CreatedAt) })
	if len(pool) > q.TopN {
		pool = pool[:q.TopN]
	}

	recs := make([]domain.ScoredListing, len(pool))
	for i, l := range pool {
		recs[i] = domain.ScoredListing{Listing: l}
	}
	return &domain.RecommendationResult{
		Recommendations: recs,
		Source:          "degraded",
		Degraded:        true,
	}
}

// EstimatePrice runs one price prediction against the current trainable pool.
func (s *Service) EstimatePrice(ctx context.Context, req price.Request) (*domain.PricePrediction, error) {
	listings, err := s.repo.TrainableListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch trainable listings: %w", err)
	}
	return s.price.Predict(ctx, req, listings)
}

func (s *Service) ModelStatus(ctx context.Context) *domain.ModelStatus {
	return s.price.Status(ctx)
}

func (s *Service) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	return s.repo.GetListingByID(ctx, id)
}

// CreateListing persists a new listing, invalidates every cached
// recommendation, and kicks off a background retrain check. Retrain failures
// are logged, never surfaced to the caller.
func (s *Service) CreateListing(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
	if err := validateListing(l); err != nil {
		return nil, err
	}

	l.ID = uuid.NewString()
	l.CreatedAt = time.Now().UTC()

	if err := s.repo.CreateListing(ctx, l); err != nil {
		return nil, err
	}

	if err := s.cache.Flush(ctx); err != nil {
		s.log.Warn("cache flush after listing create failed", map[string]interface{}{"error": err.Error()})
	}

	go s.retrainAfterWrite(l.ID)

	return l, nil
}

func (s *Service) retrainAfterWrite(listingID string) {
	ctx, cancel := context.WithTimeout(context.Background(), retrainTimeout)
	defer cancel()

	if err := s.price.CheckAndRetrain(ctx, s.repo); err != nil {
		if domain.IsInsufficientData(err) {
			s.log.Info("retrain skipped, not enough eligible listings", map[string]interface{}{"error": err.Error()})
			return
		}
		s.log.Error("retrain after listing create failed",
			map[string]interface{}{"listingId": listingID, "error": err.Error()})
	}
}

func validateListing(l *domain.Listing) error {
	switch {
	case l.Title == "":
		return domain.NewValidationError("title", "required")
	case l.Price < 0:
		return domain.NewValidationError("price", "must not be negative")
	case l.Bedrooms < 0:
		return domain.NewValidationError("bedrooms", "must not be negative")
	case l.Bathrooms < 0:
		return domain.NewValidationError("bathrooms", "must not be negative")
	case l.AreaSqFt < 0:
		return domain.NewValidationError("areaSqFt", "must not be negative")
	case l.Type != domain.TypeRent && l.Type != domain.TypeSale:
		return domain.NewValidationError("type", "must be rent or sale")
	}
	return nil
}
