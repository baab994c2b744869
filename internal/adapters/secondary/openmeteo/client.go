// Package openmeteo implements clients for the Open-Meteo geocoding and
// forecast APIs. This package serves as a secondary adapter, translating
// domain requests into Open-Meteo calls and mapping failures onto the
// domain error taxonomy.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
)

// currentFields lists the "current" variables requested from the forecast API.
const currentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code,pressure_msl,visibility,cloud_cover"

const (
	// geocodeTTL bounds how long resolved coordinates are reused.
	// City coordinates are effectively static, so a long TTL is safe.
	geocodeTTL = 24 * time.Hour

	// geocodeCleanupInterval controls how often expired entries are purged.
	geocodeCleanupInterval = time.Hour
)

// Client talks to the Open-Meteo geocoding and forecast endpoints.
// Resolved coordinates are memoized per lowercase city name so repeated
// batches do not re-run the geocoding search.
type Client struct {
	// geocodingBaseURL is the geocoding API base (host only, no path)
	geocodingBaseURL string

	// forecastBaseURL is the forecast API base (host only, no path)
	forecastBaseURL string

	// httpClient handles HTTP communication; its timeout bounds each call
	httpClient *http.Client

	// coords memoizes geocoding results
	coords *gocache.Cache

	// logger records API interactions and errors
	logger *zap.Logger
}

// NewClient creates a new Open-Meteo API client.
//
// Parameters:
//   - geocodingBaseURL: Geocoding API base URL (typically https://geocoding-api.open-meteo.com)
//   - forecastBaseURL: Forecast API base URL (typically https://api.open-meteo.com)
//   - httpClient: HTTP client with timeout configuration
//   - logger: Zap logger for API interaction logging
//
// Returns:
//   - *Client: Configured Open-Meteo client
func NewClient(geocodingBaseURL, forecastBaseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		geocodingBaseURL: geocodingBaseURL,
		forecastBaseURL:  forecastBaseURL,
		httpClient:       httpClient,
		coords:           gocache.New(geocodeTTL, geocodeCleanupInterval),
		logger:           logger,
	}
}

// geocodingResponse represents the geocoding search response.
type geocodingResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// forecastResponse represents the forecast API response. Pointer fields
// keep absent variables distinguishable from zeroes.
type forecastResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *int     `json:"relative_humidity_2m"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
		WeatherCode *int     `json:"weather_code"`
		Pressure    *float64 `json:"pressure_msl"`
		Visibility  *float64 `json:"visibility"`
		CloudCover  *int     `json:"cloud_cover"`
	} `json:"current"`
	Daily struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// coordinates is the memoized geocoding result for a city.
type coordinates struct {
	lat float64
	lon float64
}

// Resolve looks up the coordinates of a city by name.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - city: City name as provided by the caller
//
// Returns:
//   - float64: Latitude of the best match
//   - float64: Longitude of the best match
//   - error: CITY_NOT_FOUND when the search returns no results,
//     UPSTREAM_ERROR on transport or status failures
func (c *Client) Resolve(ctx context.Context, city string) (float64, float64, error) {
	cacheKey := strings.ToLower(city)

	if cached, found := c.coords.Get(cacheKey); found {
		point := cached.(coordinates)

		return point.lat, point.lon, nil
	}

	query := url.Values{}
	query.Set("name", city)
	query.Set("count", "1")
	query.Set("format", "json")

	endpoint := c.geocodingBaseURL + "/v1/search?" + query.Encode()

	var payload geocodingResponse

	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return 0, 0, &domain.WeatherError{
			Code:    domain.ErrCodeUpstream,
			Message: "geocoding request failed",
			Cause:   err,
		}
	}

	if len(payload.Results) == 0 {
		return 0, 0, &domain.WeatherError{
			Code:    domain.ErrCodeCityNotFound,
			Message: fmt.Sprintf("city %q not found", city),
		}
	}

	result := payload.Results[0]
	c.coords.Set(cacheKey, coordinates{lat: result.Latitude, lon: result.Longitude}, gocache.DefaultExpiration)

	c.logger.Debug("city resolved",
		zap.String("city", city),
		zap.Float64("latitude", result.Latitude),
		zap.Float64("longitude", result.Longitude))

	return result.Latitude, result.Longitude, nil
}

// FetchCurrent retrieves current conditions for a coordinate pair.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - lat: Latitude of the location
//   - lon: Longitude of the location
//   - units: Measurement convention forwarded to the provider
//
// Returns:
//   - *ports.Observation: Raw current and daily conditions
//   - error: UPSTREAM_ERROR on transport, status or decode failures
func (c *Client) FetchCurrent(ctx context.Context, lat, lon float64, units domain.Units) (*ports.Observation, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("current", currentFields)
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")

	if units == domain.Imperial {
		query.Set("temperature_unit", "fahrenheit")
		query.Set("wind_speed_unit", "mph")
	}

	endpoint := c.forecastBaseURL + "/v1/forecast?" + query.Encode()

	var payload forecastResponse

	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, &domain.WeatherError{
			Code:    domain.ErrCodeUpstream,
			Message: "forecast request failed",
			Cause:   err,
		}
	}

	return &ports.Observation{
		Current: ports.CurrentConditions{
			Temperature: payload.Current.Temperature,
			Humidity:    payload.Current.Humidity,
			WindSpeed:   payload.Current.WindSpeed,
			WeatherCode: payload.Current.WeatherCode,
			Pressure:    payload.Current.Pressure,
			Visibility:  payload.Current.Visibility,
			CloudCover:  payload.Current.CloudCover,
		},
		Daily: ports.DailyConditions{
			Sunrise: payload.Daily.Sunrise,
			Sunset:  payload.Daily.Sunset,
		},
	}, nil
}

// getJSON performs a GET request and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)

	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", "WeatherGateway/1.0")

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return err
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open-meteo returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
