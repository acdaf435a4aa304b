package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-alert-notifier/internal/weather"
)

// Thresholds decide when conditions warrant an alert. Built once per run from
// Settings and never mutated. Enabled is enforced by the Runner, not Evaluate.
type Thresholds struct {
	Enabled                bool
	SevereCodes            map[int]struct{}
	PrecipitationThreshold float64
}

// IsSevere reports whether code is configured as severe.
func (t Thresholds) IsSevere(code int) bool {
	_, ok := t.SevereCodes[code]
	return ok
}

// Decision is the result of Evaluate. Message is empty when Alert is false.
type Decision struct {
	Alert            bool     `json:"alert"`
	Message          string   `json:"message,omitempty"`
	Severe           bool     `json:"severe"`
	HeavyRain        bool     `json:"heavyRain"`
	MaxPrecipitation *float64 `json:"maxPrecipitation,omitempty"`
}

// Evaluate maps current conditions and an hourly forecast to an alert decision.
// It is pure: same inputs, same output, no I/O.
func Evaluate(current weather.Snapshot, forecast weather.ForecastSeries, t Thresholds) Decision {
	var d Decision

	d.Severe = t.IsSevere(current.Code)
	if max, ok := forecast.MaxPrecipitation(); ok {
		d.MaxPrecipitation = &max
		d.HeavyRain = max >= t.PrecipitationThreshold
	}

	if !d.Severe && !d.HeavyRain {
		return d
	}

	var b strings.Builder
	if d.Severe {
		fmt.Fprintf(&b, "Severe weather alert: %s at location (%s,%s).",
			current.Message, formatCoord(current.Latitude), formatCoord(current.Longitude))
	}
	if d.HeavyRain {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "Heavy precipitation expected: %smm.", strconv.FormatFloat(*d.MaxPrecipitation, 'f', 1, 64))
	}

	d.Alert = true
	d.Message = b.String()
	return d
}

// formatCoord renders the shortest exact decimal, keeping at least one
// fractional digit: 40 -> "40.0", -1.2921 -> "-1.2921".
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseSevereCodes parses a comma-separated list of integer weather codes.
// Blank entries are ignored; any other non-integer entry is an error.
func ParseSevereCodes(raw string) (map[int]struct{}, error) {
	codes := make(map[int]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid severe weather code %q: %w", part, err)
		}
		codes[code] = struct{}{}
	}
	return codes, nil
}
