package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)

	assert.Equal(t, 3, cfg.AI.Recommend.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.AI.Recommend.BaseDelay)
	assert.Equal(t, 2*time.Second, cfg.AI.Recommend.MaxDelay)
	assert.Equal(t, 5, cfg.AI.Price.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.AI.Price.MaxDelay)

	assert.Equal(t, 5, cfg.Recommend.DefaultTopN)
	assert.Equal(t, 0.85, cfg.Recommend.SimilarityFloor)
	assert.Equal(t, 0.5, cfg.Recommend.PriceRatioMin)
	assert.Equal(t, 2.0, cfg.Recommend.PriceRatioMax)
	assert.Equal(t, 24*time.Hour, cfg.Recommend.ColdStartMinAge)
	assert.True(t, cfg.Recommend.FallbackOnFiltered)

	assert.Equal(t, 5, cfg.Price.MinTrainingRows)
	assert.Equal(t, 5, cfg.Price.RetrainDelta)
	assert.Equal(t, 10000.0, cfg.Price.AreaNormMax)

	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.AI.BaseURL = ""
	assert.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Recommend.SimilarityFloor = 1.5
	assert.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Recommend.PriceRatioMin = 3.0
	assert.Error(t, Validate(cfg))

	cfg = Default()
	cfg.AI.Price.MaxAttempts = 0
	assert.Error(t, Validate(cfg))
}
