package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proplens/property-recommendation-service/internal/cache"
	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/logger"
	"github.com/proplens/property-recommendation-service/internal/price"
	"github.com/proplens/property-recommendation-service/internal/recommend"
)

type fakeStore struct {
	listings  []domain.Listing
	created   []domain.Listing
	createErr error
}

func (f *fakeStore) GetListings(context.Context) ([]domain.Listing, error) { return f.listings, nil }

func (f *fakeStore) GetListingByID(_ context.Context, id string) (*domain.Listing, error) {
	for _, l := range f.listings {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, domain.ErrListingNotFound
}

func (f *fakeStore) CreateListing(_ context.Context, l *domain.Listing) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *l)
	return nil
}

func (f *fakeStore) TrainableListings(context.Context) ([]domain.Listing, error) {
	return f.listings, nil
}

func (f *fakeStore) CountTrainable(context.Context) (int, error) {
	return len(f.listings), nil
}

type fakeCache struct {
	entries map[string]*domain.RecommendationResult
	flushed bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*domain.RecommendationResult{}}
}

func (f *fakeCache) key(s cache.Signal) string {
	return s.VisitorID
}

func (f *fakeCache) Get(_ context.Context, s cache.Signal) (*domain.RecommendationResult, error) {
	return f.entries[f.key(s)], nil
}

func (f *fakeCache) Set(_ context.Context, s cache.Signal, r *domain.RecommendationResult) error {
	f.entries[f.key(s)] = r
	return nil
}

func (f *fakeCache) Flush(context.Context) error {
	f.entries = map[string]*domain.RecommendationResult{}
	f.flushed = true
	return nil
}

type fakeEngine struct {
	result *recommend.Result
	err    error
	inputs []recommend.Input
}

func (f *fakeEngine) Recommend(_ context.Context, in recommend.Input) (*recommend.Result, error) {
	f.inputs = append(f.inputs, in)
	return f.result, f.err
}

type fakeEstimator struct {
	status    *domain.ModelStatus
	retrained chan price.TrainingPool
	pred      *domain.PricePrediction
	predErr   error
}

func (f *fakeEstimator) Status(context.Context) *domain.ModelStatus { return f.status }

func (f *fakeEstimator) CheckAndRetrain(_ context.Context, pool price.TrainingPool) error {
	if f.retrained != nil {
		f.retrained <- pool
	}
	return nil
}

func (f *fakeEstimator) Predict(context.Context, price.Request, []domain.Listing) (*domain.PricePrediction, error) {
	return f.pred, f.predErr
}

func catalog() []domain.Listing {
	return []domain.Listing{
		{ID: "a", Title: "A", Price: 1000, Type: domain.TypeRent, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Title: "B", Price: 2000, Type: domain.TypeSale, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c", Title: "C", Price: 1500, Type: domain.TypeSale, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func newTestService(store *fakeStore, c *fakeCache, engine *fakeEngine, est *fakeEstimator) *Service {
	return NewService(store, c, engine, est, config.Default().Recommend, logger.NewNop())
}

func TestGetRecommendationsMapsCandidatesToListings(t *testing.T) {
	score := 0.9
	engine := &fakeEngine{result: &recommend.Result{
		Candidates: []domain.Candidate{{ID: "b", Score: &score}, {ID: "ghost"}},
		Source:     recommend.SourceInteractions,
	}}
	svc := newTestService(&fakeStore{listings: catalog()}, newFakeCache(), engine, &fakeEstimator{})

	res, err := svc.GetRecommendations(context.Background(), RecommendationQuery{
		VisitorID: "v1", Favorites: []string{"a"}, TopN: 5,
	})

	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, "interactions", res.Source)
	require.Len(t, res.Recommendations, 1, "candidates without a catalog listing are dropped")
	assert.Equal(t, "B", res.Recommendations[0].Title)
	require.NotNil(t, res.Recommendations[0].SimilarityScore)
	assert.Equal(t, 0.9, *res.Recommendations[0].SimilarityScore)
}

func TestGetRecommendationsClampsTopN(t *testing.T) {
	engine := &fakeEngine{result: &recommend.Result{Source: recommend.SourceNone}}
	svc := newTestService(&fakeStore{listings: catalog()}, newFakeCache(), engine, &fakeEstimator{})

	_, err := svc.GetRecommendations(context.Background(), RecommendationQuery{VisitorID: "v1", Favorites: []string{"a"}})
	require.NoError(t, err)
	_, err = svc.GetRecommendations(context.Background(), RecommendationQuery{VisitorID: "v2", Favorites: []string{"a"}, TopN: 500})
	require.NoError(t, err)

	require.Len(t, engine.inputs, 2)
	assert.Equal(t, 5, engine.inputs[0].TopN, "zero falls back to the default")
	assert.Equal(t, 50, engine.inputs[1].TopN, "oversized requests clamp to the max")
}

func TestGetRecommendationsServesFromCache(t *testing.T) {
	c := newFakeCache()
	c.entries["v1"] = &domain.RecommendationResult{Source: "interactions"}
	engine := &fakeEngine{}
	svc := newTestService(&fakeStore{listings: catalog()}, c, engine, &fakeEstimator{})

	res, err := svc.GetRecommendations(context.Background(), RecommendationQuery{VisitorID: "v1", TopN: 5})

	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Empty(t, engine.inputs, "cache hits never reach the engine")
}

func TestGetRecommendationsDegradesWhenScoringDown(t *testing.T) {
	engine := &fakeEngine{err: &domain.ServiceUnavailableError{Attempts: 3, Last: errors.New("refused")}}
	svc := newTestService(&fakeStore{listings: catalog()}, newFakeCache(), engine, &fakeEstimator{})

	res, err := svc.GetRecommendations(context.Background(), RecommendationQuery{
		VisitorID: "v1", Favorites: []string{"c"}, TopN: 2,
	})

	require.NoError(t, err, "a scoring outage must not turn into a request error")
	assert.True(t, res.Degraded)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "b", res.Recommendations[0].ID, "newest non-interacted listing first")
	assert.Equal(t, "a", res.Recommendations[1].ID)
	assert.Nil(t, res.Recommendations[0].SimilarityScore)
}

func TestDegradedResultsAreNotCached(t *testing.T) {
	engine := &fakeEngine{err: &domain.ServiceUnavailableError{Attempts: 3, Last: errors.New("refused")}}
	svc := newTestService(&fakeStore{listings: catalog()}, newFakeCache(), engine, &fakeEstimator{})
	query := RecommendationQuery{VisitorID: "v1", Favorites: []string{"c"}, TopN: 2}

	res, err := svc.GetRecommendations(context.Background(), query)
	require.NoError(t, err)
	require.True(t, res.Degraded)

	// Scoring comes back; the identical request must reach the engine again
	// instead of replaying the outage substitute for the rest of the TTL.
	score := 0.9
	engine.err = nil
	engine.result = &recommend.Result{
		Candidates: []domain.Candidate{{ID: "b", Score: &score}},
		Source:     recommend.SourceInteractions,
	}

	res, err = svc.GetRecommendations(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, res.Degraded, "recovered service should serve real recommendations")
	assert.False(t, res.CacheHit)
	assert.Equal(t, "interactions", res.Source)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "b", res.Recommendations[0].ID)
}

func TestGetRecommendationsFlagsNoSafeMatches(t *testing.T) {
	engine := &fakeEngine{result: &recommend.Result{Source: recommend.SourceFiltered}}
	svc := newTestService(&fakeStore{listings: catalog()}, newFakeCache(), engine, &fakeEstimator{})

	res, err := svc.GetRecommendations(context.Background(), RecommendationQuery{
		VisitorID: "v1", Favorites: []string{"a"}, TopN: 5,
	})

	require.NoError(t, err)
	assert.True(t, res.NoSafeMatches)
	assert.Empty(t, res.Recommendations)
}

func TestCreateListingValidates(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, newFakeCache(), &fakeEngine{}, &fakeEstimator{})

	_, err := svc.CreateListing(context.Background(), &domain.Listing{Title: "", Price: 100, Type: domain.TypeRent})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.CreateListing(context.Background(), &domain.Listing{Title: "Flat", Price: 100, Type: "lease"})
	assert.True(t, domain.IsValidationError(err))

	assert.Empty(t, store.created)
}

func TestCreateListingAssignsIDFlushesCacheAndRetrains(t *testing.T) {
	store := &fakeStore{listings: catalog()}
	c := newFakeCache()
	c.entries["v1"] = &domain.RecommendationResult{}
	est := &fakeEstimator{retrained: make(chan price.TrainingPool, 1)}
	svc := newTestService(store, c, &fakeEngine{}, est)

	created, err := svc.CreateListing(context.Background(), &domain.Listing{
		Title: "New Loft", Price: 1800, Bedrooms: 2, Bathrooms: 1, Type: domain.TypeRent,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	require.Len(t, store.created, 1)
	assert.True(t, c.flushed)

	select {
	case pool := <-est.retrained:
		n, err := pool.CountTrainable(context.Background())
		require.NoError(t, err)
		assert.Equal(t, len(store.listings), n)
	case <-time.After(2 * time.Second):
		t.Fatal("retrain check was never triggered")
	}
}

func TestEstimatePriceUsesTrainablePool(t *testing.T) {
	est := &fakeEstimator{pred: &domain.PricePrediction{PredictedPrice: 250000}}
	svc := newTestService(&fakeStore{listings: catalog()}, newFakeCache(), &fakeEngine{}, est)

	pred, err := svc.EstimatePrice(context.Background(), price.Request{})

	require.NoError(t, err)
	assert.Equal(t, 250000.0, pred.PredictedPrice)
}

func TestGetListingNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{listings: catalog()}, newFakeCache(), &fakeEngine{}, &fakeEstimator{})

	_, err := svc.GetListing(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}
