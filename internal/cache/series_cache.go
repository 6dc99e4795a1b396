// Package cache holds the redis-backed result cache for computed demand
// series.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oplens/stockcast/internal/models"
)

// SeriesCacheEntry wraps a computed series with cache metadata.
type SeriesCacheEntry struct {
	Series   models.DemandSeries `json:"series"`
	CachedAt time.Time           `json:"cached_at"`
}

// SeriesCacheStats tracks cache performance counters.
type SeriesCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisSeriesCache caches assembled demand series keyed by the request
// digest. Identical requests over unchanged data short-circuit the whole
// pipeline, including model fitting.
type RedisSeriesCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *SeriesCacheStats
	prefix string
}

func NewRedisSeriesCache(redisClient *redis.Client, ttl time.Duration) *RedisSeriesCache {
	return &RedisSeriesCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &SeriesCacheStats{},
		prefix: "demand_series:",
	}
}

// Get retrieves a cached series by request digest.
func (c *RedisSeriesCache) Get(ctx context.Context, key string) (*models.DemandSeries, bool) {
	data, err := c.redis.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		c.miss()
		return nil, false
	}
	if err != nil {
		logrus.Warnf("Redis error getting demand series %s: %v", key, err)
		c.miss()
		return nil, false
	}

	var entry SeriesCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		logrus.Warnf("Error deserializing cached demand series %s: %v", key, err)
		c.miss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return &entry.Series, true
}

// Set stores a computed series under the request digest with the cache TTL.
func (c *RedisSeriesCache) Set(ctx context.Context, key string, series models.DemandSeries) {
	entry := SeriesCacheEntry{
		Series:   series,
		CachedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		logrus.Warnf("Error serializing demand series %s: %v", key, err)
		return
	}
	if err := c.redis.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		logrus.Warnf("Redis error setting demand series %s: %v", key, err)
		return
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

// GetStats returns a snapshot of the cache counters.
func (c *RedisSeriesCache) GetStats() SeriesCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return SeriesCacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

func (c *RedisSeriesCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
