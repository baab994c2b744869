package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseUnits tests units parsing and the metric default.
func TestParseUnits(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Units
		expectError bool
	}{
		{name: "empty defaults to metric", input: "", expected: Metric},
		{name: "metric", input: "metric", expected: Metric},
		{name: "imperial", input: "imperial", expected: Imperial},
		{name: "unknown value", input: "kelvin", expectError: true},
		{name: "wrong case", input: "Metric", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := ParseUnits(tt.input)

			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, units)
		})
	}
}

// TestWeatherQuery_Validate tests batch query validation.
func TestWeatherQuery_Validate(t *testing.T) {
	tests := []struct {
		name        string
		cities      []string
		expectError bool
	}{
		{name: "single city", cities: []string{"London"}},
		{name: "duplicates are allowed", cities: []string{"London", "london", "London"}},
		{name: "nil list", cities: nil, expectError: true},
		{name: "empty list", cities: []string{}, expectError: true},
		{name: "blank entry", cities: []string{"London", ""}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := WeatherQuery{Cities: tt.cities, Units: Metric}
			err := query.Validate()

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestDescribeCondition tests the WMO code table lookup.
func TestDescribeCondition(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected string
	}{
		{name: "clear sky", code: 0, expected: "Clear sky"},
		{name: "overcast", code: 3, expected: "Overcast"},
		{name: "fog", code: 45, expected: "Foggy"},
		{name: "slight rain", code: 61, expected: "Slight rain"},
		{name: "snow grains", code: 77, expected: "Snow grains"},
		{name: "heavy hail thunderstorm", code: 99, expected: "Thunderstorm with heavy hail"},
		{name: "unmapped code", code: 42, expected: "Unknown"},
		{name: "negative code", code: -1, expected: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DescribeCondition(tt.code))
		})
	}
}

// TestWeatherError tests formatting and unwrapping.
func TestWeatherError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	withCause := &WeatherError{
		Code:    ErrCodeUpstream,
		Message: "provider request failed",
		Cause:   cause,
	}

	assert.Equal(t, "UPSTREAM_ERROR: provider request failed: dial tcp: connection refused", withCause.Error())
	assert.ErrorIs(t, withCause, cause)

	withoutCause := &WeatherError{
		Code:    ErrCodeCityNotFound,
		Message: `city "Atlantis" not found`,
	}

	assert.Equal(t, `CITY_NOT_FOUND: city "Atlantis" not found`, withoutCause.Error())
	assert.Nil(t, errors.Unwrap(withoutCause))
}
