package weather

const unknownMessage = "Weather data unavailable"

// WMO weather interpretation codes, as used by Open-Meteo.
var codeMessages = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Foggy",
	51: "Light drizzle",
	53: "Light drizzle",
	55: "Light drizzle",
	61: "Rainy",
	63: "Rainy",
	65: "Rainy",
	66: "Freezing rain",
	67: "Freezing rain",
	71: "Snowy",
	73: "Snowy",
	75: "Snowy",
	77: "Snowy",
	80: "Rain showers",
	81: "Rain showers",
	82: "Rain showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with hail",
}

// Describe maps a weather code to its human-readable message.
func Describe(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return unknownMessage
}
