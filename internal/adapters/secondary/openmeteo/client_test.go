// Package openmeteo contains unit tests for the Open-Meteo API clients.
package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
)

func newTestClient(geocodingURL, forecastURL string) *Client {
	return NewClient(geocodingURL, forecastURL, &http.Client{Timeout: 5 * time.Second}, zap.NewNop())
}

// TestClient_Resolve tests city resolution against a fake geocoding server.
func TestClient_Resolve(t *testing.T) {
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)

		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "London", r.URL.Query().Get("name"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"latitude":51.50853,"longitude":-0.12574}]}`))
	}))

	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	lat, lon, err := client.Resolve(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, 51.50853, lat)
	assert.Equal(t, -0.12574, lon)

	// A second lookup with different casing is served from the memo.
	lat, lon, err = client.Resolve(context.Background(), "LONDON")

	require.NoError(t, err)
	assert.Equal(t, 51.50853, lat)
	assert.Equal(t, -0.12574, lon)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

// TestClient_Resolve_NotFound tests the empty-results path.
func TestClient_Resolve_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))

	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	_, _, err := client.Resolve(context.Background(), "Atlantis")

	require.Error(t, err)

	var weatherErr *domain.WeatherError
	require.ErrorAs(t, err, &weatherErr)
	assert.Equal(t, domain.ErrCodeCityNotFound, weatherErr.Code)
	assert.Contains(t, weatherErr.Message, `"Atlantis"`)
}

// TestClient_Resolve_UpstreamFailure tests non-200 status mapping.
func TestClient_Resolve_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	_, _, err := client.Resolve(context.Background(), "London")

	require.Error(t, err)

	var weatherErr *domain.WeatherError
	require.ErrorAs(t, err, &weatherErr)
	assert.Equal(t, domain.ErrCodeUpstream, weatherErr.Code)
}

// TestClient_FetchCurrent tests forecast retrieval and payload mapping.
func TestClient_FetchCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "51.5", r.URL.Query().Get("latitude"))
		assert.Equal(t, "-0.12", r.URL.Query().Get("longitude"))
		assert.Equal(t,
			"temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code,pressure_msl,visibility,cloud_cover",
			r.URL.Query().Get("current"))
		assert.Equal(t, "sunrise,sunset", r.URL.Query().Get("daily"))
		assert.Equal(t, "auto", r.URL.Query().Get("timezone"))
		assert.Empty(t, r.URL.Query().Get("temperature_unit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"current": {
				"temperature_2m": 21.4,
				"relative_humidity_2m": 63,
				"wind_speed_10m": 14.8,
				"weather_code": 61,
				"pressure_msl": 1012.7,
				"visibility": 24140,
				"cloud_cover": 75
			},
			"daily": {
				"sunrise": ["2025-06-01T04:45"],
				"sunset": ["2025-06-01T21:10"]
			}
		}`))
	}))

	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	obs, err := client.FetchCurrent(context.Background(), 51.5, -0.12, domain.Metric)

	require.NoError(t, err)
	require.NotNil(t, obs)

	require.NotNil(t, obs.Current.Temperature)
	assert.Equal(t, 21.4, *obs.Current.Temperature)
	require.NotNil(t, obs.Current.Humidity)
	assert.Equal(t, 63, *obs.Current.Humidity)
	require.NotNil(t, obs.Current.WeatherCode)
	assert.Equal(t, 61, *obs.Current.WeatherCode)
	require.NotNil(t, obs.Current.CloudCover)
	assert.Equal(t, 75, *obs.Current.CloudCover)

	assert.Equal(t, []string{"2025-06-01T04:45"}, obs.Daily.Sunrise)
	assert.Equal(t, []string{"2025-06-01T21:10"}, obs.Daily.Sunset)
}

// TestClient_FetchCurrent_ImperialUnits verifies the extra unit parameters.
func TestClient_FetchCurrent_ImperialUnits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
		assert.Equal(t, "mph", r.URL.Query().Get("wind_speed_unit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":70.5},"daily":{}}`))
	}))

	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	obs, err := client.FetchCurrent(context.Background(), 40.71, -74.0, domain.Imperial)

	require.NoError(t, err)
	require.NotNil(t, obs.Current.Temperature)
	assert.Equal(t, 70.5, *obs.Current.Temperature)
	assert.Nil(t, obs.Current.WeatherCode)
}

// TestClient_FetchCurrent_SparsePayload verifies absent variables stay nil.
func TestClient_FetchCurrent_SparsePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{},"daily":{}}`))
	}))

	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	obs, err := client.FetchCurrent(context.Background(), 51.5, -0.12, domain.Metric)

	require.NoError(t, err)
	assert.Nil(t, obs.Current.Temperature)
	assert.Nil(t, obs.Current.Humidity)
	assert.Nil(t, obs.Current.WeatherCode)
	assert.Empty(t, obs.Daily.Sunrise)
}
