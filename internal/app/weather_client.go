// Package app provides application initialization and dependency injection.
package app

import (
	"context"
	"errors"

	"github.com/revlabs/weather-gateway/internal/adapters/secondary/openmeteo"
	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
	"github.com/revlabs/weather-gateway/internal/infrastructure/circuitbreaker"
)

// breakerGeocodingClient wraps the geocoding client with circuit breaker
// protection to provide fault tolerance for external API calls.
type breakerGeocodingClient struct {
	client *openmeteo.Client
	cb     *circuitbreaker.CircuitBreakerWrapper
}

// Resolve looks up city coordinates with circuit breaker protection.
// A city that is simply unknown is a well-formed upstream answer and is not
// counted as a breaker failure.
func (c *breakerGeocodingClient) Resolve(ctx context.Context, city string) (float64, float64, error) {
	var lat, lon float64
	var notFound error

	err := c.cb.Execute(ctx, "resolve-city", func() error {
		var err error
		lat, lon, err = c.client.Resolve(ctx, city)

		var weatherErr *domain.WeatherError
		if errors.As(err, &weatherErr) && weatherErr.Code == domain.ErrCodeCityNotFound {
			notFound = err

			return nil
		}

		return err
	})

	if err != nil {
		return 0, 0, asUpstreamError(err)
	}

	if notFound != nil {
		return 0, 0, notFound
	}

	return lat, lon, nil
}

// breakerForecastClient wraps the forecast client with circuit breaker
// protection.
type breakerForecastClient struct {
	client *openmeteo.Client
	cb     *circuitbreaker.CircuitBreakerWrapper
}

// FetchCurrent retrieves current conditions with circuit breaker protection.
func (c *breakerForecastClient) FetchCurrent(ctx context.Context, lat, lon float64, units domain.Units) (*ports.Observation, error) {
	var result *ports.Observation

	err := c.cb.Execute(ctx, "fetch-current", func() error {
		var err error
		result, err = c.client.FetchCurrent(ctx, lat, lon, units)

		return err
	})

	if err != nil {
		return nil, asUpstreamError(err)
	}

	return result, nil
}

// asUpstreamError normalizes breaker rejections (open state, too many
// requests) into upstream errors so handlers map them to 502 responses.
// Errors that already carry a domain code pass through unchanged.
func asUpstreamError(err error) error {
	var weatherErr *domain.WeatherError
	if errors.As(err, &weatherErr) {
		return err
	}

	return &domain.WeatherError{
		Code:    domain.ErrCodeUpstream,
		Message: "weather provider call rejected",
		Cause:   err,
	}
}
