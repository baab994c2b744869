package services

import (
	"strings"
	"time"

	"github.com/revlabs/weather-gateway/internal/core/domain"
	"github.com/revlabs/weather-gateway/internal/core/ports"
)

// timestampLayouts cover the ISO-8601 shapes Open-Meteo emits: local times
// with or without seconds, optionally carrying a numeric offset.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Normalize converts a raw observation into the stable WeatherItem schema.
// It is total: any missing or malformed field collapses to its zero-value
// default and the city name is carried through verbatim. A nil observation
// yields a record with only the city set and Description "Unknown".
func Normalize(city string, obs *ports.Observation) domain.WeatherItem {
	item := domain.WeatherItem{
		City:        city,
		Description: domain.UnknownCondition,
	}

	if obs == nil {
		return item
	}

	current := obs.Current

	if current.Temperature != nil {
		item.Temperature = *current.Temperature
	}

	if current.Humidity != nil {
		item.Humidity = *current.Humidity
	}

	if current.WindSpeed != nil {
		item.WindSpeed = *current.WindSpeed
	}

	if current.WeatherCode != nil {
		item.Description = domain.DescribeCondition(*current.WeatherCode)
	}

	if current.CloudCover != nil {
		item.Clouds = *current.CloudCover
	}

	if current.Pressure != nil {
		item.Pressure = int(*current.Pressure)
	}

	if current.Visibility != nil {
		item.Visibility = int(*current.Visibility)
	}

	if len(obs.Daily.Sunrise) > 0 {
		item.Sunrise = ParseTimestamp(obs.Daily.Sunrise[0])
	}

	if len(obs.Daily.Sunset) > 0 {
		item.Sunset = ParseTimestamp(obs.Daily.Sunset[0])
	}

	return item
}

// ParseTimestamp converts an ISO-8601 datetime string to a Unix timestamp.
// A trailing "Z" is treated as "+00:00". Unparseable input yields 0.
func ParseTimestamp(s string) int64 {
	if s == "" {
		return 0
	}

	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix()
		}
	}

	return 0
}
