package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oplens/stockcast/internal/models"
)

// setupTestRedis creates a test Redis instance using miniredis
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	cleanup := func() {
		client.Close()
		s.Close()
	}

	return client, cleanup
}

func sampleSeries() models.DemandSeries {
	return models.DemandSeries{
		Records: []models.DemandRecord{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Quantity: 5},
			{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Quantity: 3.5, IsForecast: true},
		},
		ForecastAvailable: true,
	}
}

func TestSeriesCacheSetGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedisSeriesCache(client, 5*time.Minute)
	ctx := context.Background()

	c.Set(ctx, "abc123", sampleSeries())

	got, found := c.Get(ctx, "abc123")
	require.True(t, found)
	assert.Equal(t, sampleSeries(), *got)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestSeriesCacheMiss(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedisSeriesCache(client, 5*time.Minute)

	_, found := c.Get(context.Background(), "missing")
	assert.False(t, found)
	assert.Equal(t, int64(1), c.GetStats().Misses)
}

func TestSeriesCacheCorruptEntry(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedisSeriesCache(client, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "demand_series:bad", "{not json", time.Minute).Err())

	_, found := c.Get(ctx, "bad")
	assert.False(t, found)
	assert.Equal(t, int64(1), c.GetStats().Misses)
}
