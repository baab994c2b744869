package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
)

// RedisCache implements the weather cache on Redis for multi-instance
// deployments. Items are stored as JSON under the same keys as the
// in-memory cache; Redis handles TTL expiry, and capacity is governed by
// the server's maxmemory policy rather than a per-key LRU bound.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Config holds Redis connection and performance settings.
// These settings control connection pooling, timeouts, and reliability.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisCache creates a new Redis-backed weather cache.
//
// Parameters:
//   - cfg: Redis connection configuration
//   - ttl: Time-to-live applied to every entry
//   - logger: Zap logger for cache operations
//
// Returns:
//   - ports.WeatherCache: Redis cache implementation
//   - error: Connection error if Redis is unavailable
func NewRedisCache(cfg Config, ttl time.Duration, logger *zap.Logger) (ports.WeatherCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: rdb,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get retrieves the cached item for a city and units pair.
//
// Parameters:
//   - ctx: Context for cancellation and tracing
//   - city: City name, matched case-insensitively
//   - units: Measurement convention the item was cached under
//
// Returns:
//   - *domain.WeatherItem: Cached item if found
//   - error: ports.ErrCacheMiss if not found, or Redis error
func (r *RedisCache) Get(ctx context.Context, city string, units domain.Units) (*domain.WeatherItem, error) {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Get")

	defer span.End()

	key := Key(city, units)
	span.SetAttributes(attribute.String("cache.key", key))

	start := time.Now()
	raw, err := r.client.Get(ctx, key).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))

		r.logger.Debug("cache miss",
			zap.String("key", key),
			zap.Duration("duration", duration))

		return nil, ports.ErrCacheMiss
	}

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache get error",
			zap.String("key", key),
			zap.Error(err))

		return nil, err
	}

	var item domain.WeatherItem

	if err := json.Unmarshal(raw, &item); err != nil {
		span.RecordError(err)

		r.logger.Error("cache decode error",
			zap.String("key", key),
			zap.Error(err))

		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))

	r.logger.Debug("cache hit",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return &item, nil
}

// Set stores an item for a city and units pair with the configured TTL.
//
// Parameters:
//   - ctx: Context for cancellation and tracing
//   - city: City name, matched case-insensitively
//   - units: Measurement convention the item was fetched with
//   - item: Normalized item to cache
//
// Returns:
//   - error: Encoding or Redis error if the operation fails
func (r *RedisCache) Set(ctx context.Context, city string, units domain.Units, item domain.WeatherItem) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Set")

	defer span.End()

	key := Key(city, units)
	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.ttl", r.ttl.String()),
	)

	raw, err := json.Marshal(item)

	if err != nil {
		span.RecordError(err)

		return err
	}

	start := time.Now()
	err = r.client.Set(ctx, key, raw, r.ttl).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache set error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache set",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// Close closes the Redis client connection.
//
// Returns:
//   - error: Connection close error
func (r *RedisCache) Close() error {
	return r.client.Close()
}
