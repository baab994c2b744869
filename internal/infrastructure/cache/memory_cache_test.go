// Package cache contains unit tests for the weather item caches.
package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
)

// TestKey tests the canonical cache key construction.
func TestKey(t *testing.T) {
	assert.Equal(t, "london|metric", Key("London", domain.Metric))
	assert.Equal(t, "london|metric", Key("LONDON", domain.Metric))
	assert.Equal(t, "london|imperial", Key("london", domain.Imperial))
	assert.Equal(t, "new york|metric", Key("New York", domain.Metric))
}

// TestMemoryCache_RoundTrip tests storing and retrieving items.
func TestMemoryCache_RoundTrip(t *testing.T) {
	cache := NewMemoryCache(DefaultCapacity, DefaultTTL, zap.NewNop())
	ctx := context.Background()

	item := domain.WeatherItem{
		City:        "London",
		Temperature: 21.4,
		Description: "Clear sky",
	}

	require.NoError(t, cache.Set(ctx, "London", domain.Metric, item))

	got, err := cache.Get(ctx, "London", domain.Metric)

	require.NoError(t, err)
	assert.Equal(t, item, *got)
}

// TestMemoryCache_CaseInsensitiveCity verifies different casings share an entry.
func TestMemoryCache_CaseInsensitiveCity(t *testing.T) {
	cache := NewMemoryCache(DefaultCapacity, DefaultTTL, zap.NewNop())
	ctx := context.Background()

	item := domain.WeatherItem{City: "London", Temperature: 21.4}

	require.NoError(t, cache.Set(ctx, "LONDON", domain.Metric, item))

	got, err := cache.Get(ctx, "london", domain.Metric)

	require.NoError(t, err)
	assert.Equal(t, "London", got.City)
}

// TestMemoryCache_UnitsAreDistinct verifies metric and imperial entries do
// not collide.
func TestMemoryCache_UnitsAreDistinct(t *testing.T) {
	cache := NewMemoryCache(DefaultCapacity, DefaultTTL, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "London", domain.Metric, domain.WeatherItem{Temperature: 21.0}))

	_, err := cache.Get(ctx, "London", domain.Imperial)

	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

// TestMemoryCache_Miss tests the miss sentinel.
func TestMemoryCache_Miss(t *testing.T) {
	cache := NewMemoryCache(DefaultCapacity, DefaultTTL, zap.NewNop())

	got, err := cache.Get(context.Background(), "Nowhere", domain.Metric)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

// TestMemoryCache_TTLExpiry verifies entries disappear after the TTL.
func TestMemoryCache_TTLExpiry(t *testing.T) {
	cache := NewMemoryCache(DefaultCapacity, 50*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "London", domain.Metric, domain.WeatherItem{Temperature: 21.0}))

	time.Sleep(120 * time.Millisecond)

	_, err := cache.Get(ctx, "London", domain.Metric)

	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

// TestMemoryCache_CapacityEviction verifies the oldest entry is evicted when
// the capacity bound is hit.
func TestMemoryCache_CapacityEviction(t *testing.T) {
	cache := NewMemoryCache(4, DefaultTTL, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		city := fmt.Sprintf("city-%d", i)
		require.NoError(t, cache.Set(ctx, city, domain.Metric, domain.WeatherItem{City: city}))
	}

	_, err := cache.Get(ctx, "city-0", domain.Metric)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	got, err := cache.Get(ctx, "city-4", domain.Metric)
	require.NoError(t, err)
	assert.Equal(t, "city-4", got.City)
}

// TestMemoryCache_Purge tests clearing the cache.
func TestMemoryCache_Purge(t *testing.T) {
	cache := NewMemoryCache(DefaultCapacity, DefaultTTL, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "London", domain.Metric, domain.WeatherItem{Temperature: 21.0}))

	cache.(*MemoryCache).Purge()

	_, err := cache.Get(ctx, "London", domain.Metric)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}
