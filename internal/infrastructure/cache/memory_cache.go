// Package cache provides caching implementations for normalized weather items.
// It includes a bounded in-memory cache and a Redis-based distributed cache,
// both keyed case-insensitively by city and units.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
)

const (
	// DefaultCapacity bounds the number of distinct (city, units) entries.
	// The least recently used entry is evicted when the bound is hit.
	DefaultCapacity = 256

	// DefaultTTL is how long an entry stays valid after being written.
	DefaultTTL = 300 * time.Second
)

// Key builds the canonical cache key for a city and units pair.
// City casing is ignored so "London" and "london" share an entry.
func Key(city string, units domain.Units) string {
	return strings.ToLower(city) + "|" + string(units)
}

// MemoryCache is a bounded in-memory cache with TTL expiry and LRU
// eviction. Reads and writes both count as touches for eviction order.
type MemoryCache struct {
	entries *expirable.LRU[string, domain.WeatherItem]
	logger  *zap.Logger
}

// NewMemoryCache creates a new in-memory cache.
//
// Parameters:
//   - capacity: Maximum number of entries before LRU eviction
//   - ttl: Time-to-live applied to every entry
//   - logger: Zap logger for cache operations
//
// Returns:
//   - ports.WeatherCache: In-memory cache implementation
func NewMemoryCache(capacity int, ttl time.Duration, logger *zap.Logger) ports.WeatherCache {
	return &MemoryCache{
		entries: expirable.NewLRU[string, domain.WeatherItem](capacity, nil, ttl),
		logger:  logger,
	}
}

// Get retrieves the cached item for a city and units pair.
//
// Parameters:
//   - ctx: Context for tracing
//   - city: City name, matched case-insensitively
//   - units: Measurement convention the item was cached under
//
// Returns:
//   - *domain.WeatherItem: Cached item if present and unexpired
//   - error: ports.ErrCacheMiss when the entry is absent
func (m *MemoryCache) Get(ctx context.Context, city string, units domain.Units) (*domain.WeatherItem, error) {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Get")

	defer span.End()

	key := Key(city, units)
	span.SetAttributes(attribute.String("cache.key", key))

	if item, found := m.entries.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		m.logger.Debug("memory cache hit", zap.String("key", key))

		return &item, nil
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))
	m.logger.Debug("memory cache miss", zap.String("key", key))

	return nil, ports.ErrCacheMiss
}

// Set stores an item for a city and units pair.
//
// Parameters:
//   - ctx: Context for tracing
//   - city: City name, matched case-insensitively
//   - units: Measurement convention the item was fetched with
//   - item: Normalized item to cache
//
// Returns:
//   - error: Always nil for the in-memory cache
func (m *MemoryCache) Set(ctx context.Context, city string, units domain.Units, item domain.WeatherItem) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Set")

	defer span.End()

	key := Key(city, units)
	span.SetAttributes(attribute.String("cache.key", key))

	m.entries.Add(key, item)
	m.logger.Debug("memory cache set", zap.String("key", key))

	return nil
}

// Purge removes all entries from the cache.
func (m *MemoryCache) Purge() {
	m.entries.Purge()
	m.logger.Info("memory cache cleared")
}
