package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration. Every section is passed to
// the component that needs it at construction time; nothing reads the process
// environment after Load returns.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AI        AIConfig        `mapstructure:"ai"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Price     PriceConfig     `mapstructure:"price"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	PoolSize int    `mapstructure:"pool_size"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RetryConfig drives one retry policy: attempt n (0-indexed) sleeps
// min(2^n x base_delay, max_delay) before the next attempt.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// AIConfig points at the remote scoring/pricing service. Recommendation calls
// use a short backoff tuned for an always-warm service; price calls use an
// aggressive cap because that model cold-starts.
type AIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	Recommend      RetryConfig   `mapstructure:"recommend"`
	Price          RetryConfig   `mapstructure:"price"`
}

type RecommendConfig struct {
	DefaultTopN     int           `mapstructure:"default_top_n"`
	MaxTopN         int           `mapstructure:"max_top_n"`
	SimilarityFloor float64       `mapstructure:"similarity_floor"`
	PriceRatioMin   float64       `mapstructure:"price_ratio_min"`
	PriceRatioMax   float64       `mapstructure:"price_ratio_max"`
	ColdStartMinAge time.Duration `mapstructure:"cold_start_min_age"`
	// FallbackOnFiltered keeps the historical behavior of falling through to
	// last-search/cold-start even when the hard constraints filtered every
	// candidate. When false such requests report an empty "no safe matches"
	// result instead.
	FallbackOnFiltered bool `mapstructure:"fallback_on_filtered"`
}

type PriceConfig struct {
	MinTrainingRows int     `mapstructure:"min_training_rows"`
	RetrainDelta    int     `mapstructure:"retrain_delta"`
	AreaNormMax     float64 `mapstructure:"area_norm_max"`
	FallbackCity    string  `mapstructure:"fallback_city"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
