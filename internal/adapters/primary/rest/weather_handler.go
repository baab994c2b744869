// Package rest implements HTTP handlers for the weather gateway endpoints.
// This package serves as the primary adapter, translating HTTP requests
// into domain operations and formatting responses for clients.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
	"github.com/revlabs/weather-gateway/internal/export"
	"github.com/revlabs/weather-gateway/internal/middleware"
)

// WeatherHandler handles HTTP requests for weather aggregation operations.
// It acts as the primary adapter between HTTP transport and business logic,
// managing request parsing, validation, and response formatting.
type WeatherHandler struct {
	// service provides access to weather aggregation operations
	service ports.WeatherService

	// logger records request processing events and errors
	logger *zap.Logger
}

// NewWeatherHandler creates a new HTTP handler for weather operations.
//
// Parameters:
//   - service: WeatherService interface for business logic operations
//   - logger: Zap logger for request logging and error tracking
//
// Returns:
//   - *WeatherHandler: Configured handler instance
func NewWeatherHandler(service ports.WeatherService, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		service: service,
		logger:  logger,
	}
}

// weatherRequest is the JSON body accepted by the weather endpoints.
type weatherRequest struct {
	Cities []string `json:"cities"`
	Units  string   `json:"units"`
}

// ErrorResponse represents a standardized error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetWeather handles POST requests for aggregated weather information.
// The optional upload=1 query parameter additionally publishes the report
// as a CSV object; a failed upload is not an error, the response simply
// omits csv_url.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request carrying a JSON body with 'cities' and 'units'
//
// Response codes:
//   - 200: Success with the aggregated report JSON
//   - 400: Invalid body, units, or empty city list (INVALID_REQUEST)
//   - 404: A requested city could not be resolved (CITY_NOT_FOUND)
//   - 502: Upstream provider failure (UPSTREAM_ERROR)
//   - 500: Internal server error
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)

	if !ok {
		return
	}

	upload := r.URL.Query().Get("upload") == "1"
	meta := domain.RequestMeta{
		UserAgent: r.UserAgent(),
		Host:      r.Host,
	}

	report, err := h.service.GetWeather(r.Context(), *query, meta, upload)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, report)
}

// ExportCSV handles POST requests for the report in CSV form.
// The request is logged like any other weather request but nothing is
// uploaded; the document is returned directly as text/csv.
func (h *WeatherHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)

	if !ok {
		return
	}

	meta := domain.RequestMeta{
		UserAgent: r.UserAgent(),
		Host:      r.Host,
	}

	report, err := h.service.GetWeather(r.Context(), *query, meta, false)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	body, err := export.MarshalCSV(report.Items)

	if err != nil {
		h.logger.Error("failed to render csv", zap.Error(err))

		h.respondWithError(
			w,
			http.StatusInternalServerError,
			domain.ErrCodeInternal,
			"An unexpected error occurred",
		)

		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(body); err != nil {
		h.logger.Error("failed to write csv response", zap.Error(err))
	}
}

// GetLogs handles GET requests for the persisted request history.
// Both bounds are optional RFC 3339 timestamps and inclusive; results come
// back newest first.
//
// Response codes:
//   - 200: Success with a JSON array of log records
//   - 400: Malformed start or end parameter (INVALID_REQUEST)
//   - 500: Log store unavailable or query failure
func (h *WeatherHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	start, ok := h.parseTimeParam(w, r, "start", time.Time{})

	if !ok {
		return
	}

	end, ok := h.parseTimeParam(w, r, "end", time.Now())

	if !ok {
		return
	}

	logs, err := h.service.QueryLogs(r.Context(), start, end)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, logs)
}

// decodeQuery parses and validates the shared weather request body.
// On failure it writes the error response and reports false.
func (h *WeatherHandler) decodeQuery(w http.ResponseWriter, r *http.Request) (*domain.WeatherQuery, bool) {
	var req weatherRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			domain.ErrCodeInvalidRequest,
			"Request body must be valid JSON",
		)

		return nil, false
	}

	units, err := domain.ParseUnits(req.Units)

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, err.Error())

		return nil, false
	}

	query := domain.WeatherQuery{
		Cities: req.Cities,
		Units:  units,
	}

	if err := query.Validate(); err != nil {
		h.respondWithError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, err.Error())

		return nil, false
	}

	return &query, true
}

// parseTimeParam reads an optional RFC 3339 query parameter, falling back
// to the given default when absent.
func (h *WeatherHandler) parseTimeParam(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)

	if raw == "" {
		return fallback, true
	}

	t, err := time.Parse(time.RFC3339, raw)

	if err != nil {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			domain.ErrCodeInvalidRequest,
			"Parameter '"+name+"' must be an RFC 3339 timestamp",
		)

		return time.Time{}, false
	}

	return t, true
}

// respondWithJSON sends a JSON response with the specified status code.
func (h *WeatherHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondWithError sends a standardized error response.
func (h *WeatherHandler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	response := ErrorResponse{
		Error:   code,
		Message: message,
	}

	h.respondWithJSON(w, status, response)
}

// handleServiceError maps domain errors to appropriate HTTP responses.
//
// Error mappings:
//   - CITY_NOT_FOUND -> 404 Not Found
//   - UPSTREAM_ERROR -> 502 Bad Gateway
//   - INVALID_REQUEST -> 400 Bad Request
//   - Other errors -> 500 Internal Server Error
func (h *WeatherHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *domain.WeatherError

	switch {
	case errors.As(err, &e):
		switch e.Code {
		case domain.ErrCodeCityNotFound:
			h.respondWithError(w, http.StatusNotFound, e.Code, e.Message)
		case domain.ErrCodeUpstream:
			h.respondWithError(
				w,
				http.StatusBadGateway,
				e.Code,
				"Upstream weather provider is unavailable",
			)
		case domain.ErrCodeInvalidRequest:
			h.respondWithError(w, http.StatusBadRequest, e.Code, e.Message)
		default:
			h.respondWithError(
				w,
				http.StatusInternalServerError,
				domain.ErrCodeInternal,
				"An unexpected error occurred",
			)
		}
	default:
		h.logger.Error("unexpected error",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)

		h.respondWithError(
			w,
			http.StatusInternalServerError,
			domain.ErrCodeInternal,
			"An unexpected error occurred",
		)
	}
}
