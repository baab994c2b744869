// Package rest contains unit tests for the weather HTTP handlers.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
)

// MockWeatherService is a mock implementation of the WeatherService interface.
type MockWeatherService struct {
	mock.Mock
}

func (m *MockWeatherService) GetWeather(ctx context.Context, query domain.WeatherQuery, meta domain.RequestMeta, upload bool) (*domain.WeatherReport, error) {
	args := m.Called(ctx, query, meta, upload)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.WeatherReport), args.Error(1)
}

func (m *MockWeatherService) QueryLogs(ctx context.Context, start, end time.Time) ([]domain.RequestLog, error) {
	args := m.Called(ctx, start, end)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.RequestLog), args.Error(1)
}

func sampleReport() *domain.WeatherReport {
	return &domain.WeatherReport{
		Items: []domain.WeatherItem{
			{City: "London", Temperature: 21.4, Humidity: 63, Description: "Clear sky"},
			{City: "Paris", Temperature: 24.1, Humidity: 51, Description: "Overcast"},
		},
	}
}

// TestWeatherHandler_GetWeather tests the POST /weather endpoint.
func TestWeatherHandler_GetWeather(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		body            string
		target          string
		mockReport      *domain.WeatherReport
		mockError       error
		expectedStatus  int
		expectedCode    string
		expectUpload    bool
		skipServiceCall bool
	}{
		{
			name:           "successful aggregation",
			body:           `{"cities":["London","Paris"],"units":"metric"}`,
			target:         "/weather",
			mockReport:     sampleReport(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "upload flag is forwarded",
			body:           `{"cities":["London","Paris"]}`,
			target:         "/weather?upload=1",
			mockReport:     sampleReport(),
			expectedStatus: http.StatusOK,
			expectUpload:   true,
		},
		{
			name:            "malformed json",
			body:            `{"cities":[`,
			target:          "/weather",
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    domain.ErrCodeInvalidRequest,
			skipServiceCall: true,
		},
		{
			name:            "unsupported units",
			body:            `{"cities":["London"],"units":"kelvin"}`,
			target:          "/weather",
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    domain.ErrCodeInvalidRequest,
			skipServiceCall: true,
		},
		{
			name:            "empty city list",
			body:            `{"cities":[],"units":"metric"}`,
			target:          "/weather",
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    domain.ErrCodeInvalidRequest,
			skipServiceCall: true,
		},
		{
			name:   "city not found",
			body:   `{"cities":["Atlantis"]}`,
			target: "/weather",
			mockError: &domain.WeatherError{
				Code:    domain.ErrCodeCityNotFound,
				Message: `city "Atlantis" not found`,
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ErrCodeCityNotFound,
		},
		{
			name:   "upstream failure",
			body:   `{"cities":["London"]}`,
			target: "/weather",
			mockError: &domain.WeatherError{
				Code:    domain.ErrCodeUpstream,
				Message: "provider request failed",
			},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   domain.ErrCodeUpstream,
		},
		{
			name:           "unexpected error",
			body:           `{"cities":["London"]}`,
			target:         "/weather",
			mockError:      errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   domain.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockWeatherService)
			handler := NewWeatherHandler(mockService, logger)

			if !tt.skipServiceCall {
				mockService.On("GetWeather", mock.Anything, mock.Anything, mock.Anything, tt.expectUpload).
					Return(tt.mockReport, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPost, tt.target, bytes.NewBufferString(tt.body))
			req.Header.Set("User-Agent", "test-agent")
			rec := httptest.NewRecorder()

			handler.GetWeather(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedCode != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCode, resp.Error)
			}

			if tt.expectedStatus == http.StatusOK {
				var report domain.WeatherReport
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
				assert.Len(t, report.Items, len(tt.mockReport.Items))
				assert.Equal(t, "London", report.Items[0].City)
			}

			mockService.AssertExpectations(t)
		})
	}
}

// TestWeatherHandler_GetWeather_PassesRequestMeta verifies the caller
// attributes forwarded to the service.
func TestWeatherHandler_GetWeather_PassesRequestMeta(t *testing.T) {
	mockService := new(MockWeatherService)
	handler := NewWeatherHandler(mockService, zap.NewNop())

	var gotMeta domain.RequestMeta

	mockService.On("GetWeather", mock.Anything, mock.Anything, mock.Anything, false).
		Run(func(args mock.Arguments) {
			gotMeta = args.Get(2).(domain.RequestMeta)
		}).
		Return(sampleReport(), nil)

	req := httptest.NewRequest(http.MethodPost, "/weather", bytes.NewBufferString(`{"cities":["London"]}`))
	req.Header.Set("User-Agent", "curl/8.5.0")
	req.Host = "weather.example.com"
	rec := httptest.NewRecorder()

	handler.GetWeather(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "curl/8.5.0", gotMeta.UserAgent)
	assert.Equal(t, "weather.example.com", gotMeta.Host)
}

// TestWeatherHandler_ExportCSV tests the POST /weather/csv endpoint.
func TestWeatherHandler_ExportCSV(t *testing.T) {
	mockService := new(MockWeatherService)
	handler := NewWeatherHandler(mockService, zap.NewNop())

	mockService.On("GetWeather", mock.Anything, mock.Anything, mock.Anything, false).
		Return(sampleReport(), nil)

	req := httptest.NewRequest(http.MethodPost, "/weather/csv", bytes.NewBufferString(`{"cities":["London","Paris"]}`))
	rec := httptest.NewRecorder()

	handler.ExportCSV(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "city,temperature,humidity,wind_speed,description,clouds,pressure,visibility,sunrise,sunset")
	assert.Contains(t, body, "London")
	assert.Contains(t, body, "Paris")

	mockService.AssertExpectations(t)
}

// TestWeatherHandler_GetLogs tests the GET /weather/logs endpoint.
func TestWeatherHandler_GetLogs(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns bare array newest first", func(t *testing.T) {
		mockService := new(MockWeatherService)
		handler := NewWeatherHandler(mockService, logger)

		stored := []domain.RequestLog{
			{ID: 2, Host: "weather.example.com"},
			{ID: 1, Host: "weather.example.com"},
		}

		mockService.On("QueryLogs", mock.Anything, mock.Anything, mock.Anything).Return(stored, nil)

		req := httptest.NewRequest(http.MethodGet, "/weather/logs", nil)
		rec := httptest.NewRecorder()

		handler.GetLogs(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var logs []domain.RequestLog
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
		require.Len(t, logs, 2)
		assert.Equal(t, int64(2), logs[0].ID)
	})

	t.Run("forwards explicit bounds", func(t *testing.T) {
		mockService := new(MockWeatherService)
		handler := NewWeatherHandler(mockService, logger)

		start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

		mockService.On("QueryLogs", mock.Anything, start, end).Return([]domain.RequestLog{}, nil)

		req := httptest.NewRequest(http.MethodGet,
			"/weather/logs?start=2025-06-01T00:00:00Z&end=2025-06-02T00:00:00Z", nil)
		rec := httptest.NewRecorder()

		handler.GetLogs(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects malformed bound", func(t *testing.T) {
		mockService := new(MockWeatherService)
		handler := NewWeatherHandler(mockService, logger)

		req := httptest.NewRequest(http.MethodGet, "/weather/logs?start=june-first", nil)
		rec := httptest.NewRecorder()

		handler.GetLogs(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, domain.ErrCodeInvalidRequest, resp.Error)
	})

	t.Run("store failure maps to 500", func(t *testing.T) {
		mockService := new(MockWeatherService)
		handler := NewWeatherHandler(mockService, logger)

		mockService.On("QueryLogs", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &domain.WeatherError{
				Code:    domain.ErrCodeInternal,
				Message: "failed to query request logs",
			})

		req := httptest.NewRequest(http.MethodGet, "/weather/logs", nil)
		rec := httptest.NewRecorder()

		handler.GetLogs(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
