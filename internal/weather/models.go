package weather

import (
	"time"
)

// DefaultForecastHours is the forecast horizon used when none is configured.
const DefaultForecastHours = 24

// Snapshot is the current weather at a coordinate pair, as reported by a provider.
// Message is always derived from Code via Describe.
type Snapshot struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Code      int       `json:"weatherCode"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"` // always UTC
}

// NewSnapshot builds a Snapshot and fills in the human-readable message for code.
func NewSnapshot(lat, lon float64, code int, ts time.Time) Snapshot {
	return Snapshot{
		Latitude:  lat,
		Longitude: lon,
		Code:      code,
		Message:   Describe(code),
		Time:      ts.UTC(),
	}
}

// ForecastSeries is an ordered, hourly series of precipitation readings in mm.
// A nil entry is a missing reading.
type ForecastSeries struct {
	Hours         int        `json:"hours"`
	Precipitation []*float64 `json:"precipitation"`
}

// MaxPrecipitation returns the largest non-nil reading. The second return value
// is false when the series is empty or every entry is missing.
func (f ForecastSeries) MaxPrecipitation() (float64, bool) {
	var (
		max   float64
		found bool
	)
	for _, v := range f.Precipitation {
		if v == nil {
			continue
		}
		if !found || *v > max {
			max = *v
			found = true
		}
	}
	return max, found
}

// Empty reports whether the series carries no readings at all.
func (f ForecastSeries) Empty() bool {
	return len(f.Precipitation) == 0
}
