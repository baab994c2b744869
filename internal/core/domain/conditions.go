package domain

// UnknownCondition is returned when the upstream payload carries no
// weather code or one outside the WMO table below.
const UnknownCondition = "Unknown"

// conditionByCode maps WMO weather interpretation codes, as reported by
// Open-Meteo, to display text.
var conditionByCode = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// DescribeCondition translates a WMO weather code into display text.
// Codes outside the table yield UnknownCondition.
func DescribeCondition(code int) string {
	if desc, ok := conditionByCode[code]; ok {
		return desc
	}

	return UnknownCondition
}
