package cache

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/metrics"
)

const defaultTTL = 10 * time.Minute

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Signal identifies one recommendation request: the visitor plus everything
// that can change its outcome. Two requests with the same signal hash are
// interchangeable.
type Signal struct {
	VisitorID  string
	Limit      int
	Favorites  []string
	Recent     []string
	LastSearch *domain.LastSearch
}

func buildKey(s Signal) string {
	h := fnv.New64a()
	h.Write([]byte(strings.Join(s.Favorites, ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(s.Recent, ",")))
	if s.LastSearch != nil {
		fmt.Fprintf(h, "|%f|%s|%d|%f|%f",
			s.LastSearch.Budget, s.LastSearch.City, s.LastSearch.Bedrooms,
			s.LastSearch.AreaMin, s.LastSearch.AreaMax)
	}
	return fmt.Sprintf("rec:visitor:%s:limit:%d:sig:%x", s.VisitorID, s.Limit, h.Sum64())
}

// Get returns the cached result for the signal, or nil on a miss.
func (c *Cache) Get(ctx context.Context, s Signal) (*domain.RecommendationResult, error) {
	key := buildKey(s)
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get recommendations from cache: %w", err)
	}

	var result domain.RecommendationResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("unmarshal cached recommendations %s: %w", key, err)
	}

	metrics.CacheHits.Inc()
	return &result, nil
}

func (c *Cache) Set(ctx context.Context, s Signal, result *domain.RecommendationResult) error {
	key := buildKey(s)
	val, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("set recommendations in cache: %w", err)
	}

	return nil
}

// Flush drops every cached recommendation. Called when the catalog changes,
// since any new listing can alter any visitor's result.
func (c *Cache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "rec:visitor:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
