// Package export renders aggregated weather reports into downloadable formats.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/revlabs/weather-gateway/internal/core/domain"
)

// csvHeader fixes the column order of exported reports.
var csvHeader = []string{
	"city",
	"temperature",
	"humidity",
	"wind_speed",
	"description",
	"clouds",
	"pressure",
	"visibility",
	"sunrise",
	"sunset",
}

// MarshalCSV renders items as a CSV document with a fixed header row and
// one row per item, in item order. Fields containing commas or quotes are
// escaped per RFC 4180.
func MarshalCSV(items []domain.WeatherItem) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, item := range items {
		record := []string{
			item.City,
			strconv.FormatFloat(item.Temperature, 'f', -1, 64),
			strconv.Itoa(item.Humidity),
			strconv.FormatFloat(item.WindSpeed, 'f', -1, 64),
			item.Description,
			strconv.Itoa(item.Clouds),
			strconv.Itoa(item.Pressure),
			strconv.Itoa(item.Visibility),
			strconv.FormatInt(item.Sunrise, 10),
			strconv.FormatInt(item.Sunset, 10),
		}

		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()

	return buf.Bytes(), w.Error()
}
