package ports

import (
	"context"
	"errors"
	"time"

	"github.com/revlabs/weather-gateway/internal/core/domain"
)

// ErrCacheMiss indicates the requested entry is not cached.
var ErrCacheMiss = errors.New("cache miss")

// WeatherService aggregates current conditions for a batch of cities and
// exposes the persisted request history.
type WeatherService interface {
	GetWeather(ctx context.Context, query domain.WeatherQuery, meta domain.RequestMeta, upload bool) (*domain.WeatherReport, error)
	QueryLogs(ctx context.Context, start, end time.Time) ([]domain.RequestLog, error)
}

// GeocodingClient resolves a city name to geographic coordinates.
type GeocodingClient interface {
	Resolve(ctx context.Context, city string) (lat, lon float64, err error)
}

// ForecastClient fetches raw current conditions for a coordinate pair.
type ForecastClient interface {
	FetchCurrent(ctx context.Context, lat, lon float64, units domain.Units) (*Observation, error)
}

// Observation is the raw forecast payload before normalization.
// Pointer fields distinguish absent values from genuine zeroes.
type Observation struct {
	Current CurrentConditions
	Daily   DailyConditions
}

// CurrentConditions mirrors the "current" block of the provider response.
type CurrentConditions struct {
	Temperature *float64
	Humidity    *int
	WindSpeed   *float64
	WeatherCode *int
	Pressure    *float64
	Visibility  *float64
	CloudCover  *int
}

// DailyConditions mirrors the "daily" block of the provider response.
// Sunrise and sunset hold one ISO-8601 entry per forecast day.
type DailyConditions struct {
	Sunrise []string
	Sunset  []string
}

// WeatherCache stores normalized items keyed by city and units.
// City keys are case-insensitive. Implementations apply their own
// fixed TTL and capacity bounds.
type WeatherCache interface {
	Get(ctx context.Context, city string, units domain.Units) (*domain.WeatherItem, error)
	Set(ctx context.Context, city string, units domain.Units, item domain.WeatherItem) error
}

// LogStore persists request logs and serves time-range queries over them.
type LogStore interface {
	SaveLog(ctx context.Context, log domain.RequestLog) error
	QueryLogs(ctx context.Context, start, end time.Time) ([]domain.RequestLog, error)
}

// ObjectStore uploads report files and returns their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// RateLimitService throttles clients by identifier over a sliding window.
type RateLimitService interface {
	Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, identifier string) error
}
