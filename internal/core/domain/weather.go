// Package domain contains the core business entities and domain logic for the weather gateway.
// This package defines the fundamental types and business rules that are independent
// of external frameworks and infrastructure concerns.
package domain

import (
	"fmt"
	"time"
)

// Units selects the measurement convention requested by the client.
// It is forwarded to the upstream provider so temperature and wind
// speed come back in the matching scale.
type Units string

const (
	// Metric reports temperature in Celsius and wind speed in km/h
	Metric Units = "metric"

	// Imperial reports temperature in Fahrenheit and wind speed in mph
	Imperial Units = "imperial"
)

// ParseUnits maps a raw units string to a supported value.
// An empty string defaults to Metric; any other unknown value is rejected.
func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case "":
		return Metric, nil
	case Metric:
		return Metric, nil
	case Imperial:
		return Imperial, nil
	default:
		return "", fmt.Errorf("unsupported units %q, expected %q or %q", s, Metric, Imperial)
	}
}

// WeatherItem is the normalized current-conditions record for a single city.
// Every field has a deterministic default so a sparse upstream payload still
// yields a complete record. City carries the caller's original spelling.
type WeatherItem struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Description string  `json:"description"`
	Clouds      int     `json:"clouds"`
	Pressure    int     `json:"pressure"`
	Visibility  int     `json:"visibility"`
	Sunrise     int64   `json:"sunrise"`
	Sunset      int64   `json:"sunset"`
}

// WeatherQuery is a batch request for current conditions.
// City order is significant: results come back in the same order,
// duplicates included, with the original casing preserved.
type WeatherQuery struct {
	Cities []string `json:"cities"`
	Units  Units    `json:"units"`
}

// Validate checks that the query names at least one city and that
// no entry is blank.
func (q WeatherQuery) Validate() error {
	if len(q.Cities) == 0 {
		return fmt.Errorf("at least one city is required")
	}

	for i, city := range q.Cities {
		if city == "" {
			return fmt.Errorf("city at position %d is empty", i)
		}
	}

	return nil
}

// WeatherReport is the aggregated response for a WeatherQuery.
// CSVURL is only populated when an upload was requested and succeeded.
type WeatherReport struct {
	Items  []WeatherItem `json:"items"`
	CSVURL string        `json:"csv_url,omitempty"`
}

// RequestLog records a single served weather request for later inspection.
// Rows are immutable once written; ID and CreatedAt are assigned by the store.
type RequestLog struct {
	ID        int64                  `json:"id"`
	UserAgent string                 `json:"user_agent"`
	Host      string                 `json:"host"`
	Params    map[string]interface{} `json:"params"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
}

// RequestMeta carries the caller attributes persisted with each request log.
type RequestMeta struct {
	UserAgent string
	Host      string
}

// Error codes returned inside WeatherError.
const (
	ErrCodeCityNotFound   = "CITY_NOT_FOUND"
	ErrCodeUpstream       = "UPSTREAM_ERROR"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// WeatherError represents domain-specific errors that can occur during weather operations.
// It provides structured error information with error codes and optional underlying causes.
type WeatherError struct {
	// Code identifies the type of error for programmatic handling
	Code string

	// Message provides a human-readable error description
	Message string

	// Cause wraps an underlying error if applicable
	Cause error
}

// Error implements the error interface for WeatherError.
// It formats the error message to include the code, message, and underlying cause.
func (e WeatherError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e WeatherError) Unwrap() error {
	return e.Cause
}
