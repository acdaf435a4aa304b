package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-alert-notifier/internal/weather"
)

func p(v float64) *float64 { return &v }

func defaultThresholds(t *testing.T) Thresholds {
	t.Helper()
	codes, err := ParseSevereCodes("95,96,99")
	require.NoError(t, err)
	return Thresholds{Enabled: true, SevereCodes: codes, PrecipitationThreshold: 20.0}
}

func snapshot(code int) weather.Snapshot {
	return weather.Snapshot{Latitude: -1.2921, Longitude: 36.8219, Code: code, Message: weather.Describe(code)}
}

func series(values ...*float64) weather.ForecastSeries {
	return weather.ForecastSeries{Hours: 24, Precipitation: values}
}

func TestEvaluate_SevereCodesWithoutForecast(t *testing.T) {
	th := defaultThresholds(t)

	for _, code := range []int{95, 96, 99} {
		for name, fc := range map[string]weather.ForecastSeries{
			"empty":    series(),
			"all null": series(nil, nil, nil),
		} {
			d := Evaluate(snapshot(code), fc, th)

			assert.True(t, d.Alert, "code %d %s", code, name)
			assert.True(t, d.Severe)
			assert.False(t, d.HeavyRain)
			assert.Contains(t, d.Message, weather.Describe(code))
			assert.Contains(t, d.Message, "(-1.2921,36.8219)")
			assert.NotContains(t, d.Message, "Heavy precipitation")
		}
	}
}

func TestEvaluate_HeavyRainOnly(t *testing.T) {
	d := Evaluate(snapshot(3), series(p(5.0), nil, p(22.5), p(10.0)), defaultThresholds(t))

	assert.True(t, d.Alert)
	assert.False(t, d.Severe)
	assert.True(t, d.HeavyRain)
	assert.Equal(t, "Heavy precipitation expected: 22.5mm.", d.Message)
	require.NotNil(t, d.MaxPrecipitation)
	assert.Equal(t, 22.5, *d.MaxPrecipitation)
}

func TestEvaluate_ThresholdIsInclusive(t *testing.T) {
	d := Evaluate(snapshot(0), series(p(20.0)), defaultThresholds(t))

	assert.True(t, d.Alert)
	assert.Equal(t, "Heavy precipitation expected: 20.0mm.", d.Message)
}

func TestEvaluate_SevereThunderstormWithHail(t *testing.T) {
	current := weather.Snapshot{Latitude: 12.5, Longitude: 40, Code: 96, Message: weather.Describe(96)}

	d := Evaluate(current, series(), defaultThresholds(t))

	assert.True(t, d.Alert)
	assert.Equal(t, "Severe weather alert: Thunderstorm with hail at location (12.5,40.0).", d.Message)
}

func TestEvaluate_BothConditions(t *testing.T) {
	current := weather.Snapshot{Latitude: 0.5, Longitude: -3.25, Code: 95, Message: weather.Describe(95)}

	d := Evaluate(current, series(p(31.04), p(2)), defaultThresholds(t))

	assert.True(t, d.Alert)
	assert.True(t, d.Severe)
	assert.True(t, d.HeavyRain)
	assert.Equal(t,
		"Severe weather alert: Thunderstorm at location (0.5,-3.25). Heavy precipitation expected: 31.0mm.",
		d.Message)
}

func TestEvaluate_NoAlert(t *testing.T) {
	d := Evaluate(snapshot(1), series(p(1.0), p(2.0)), defaultThresholds(t))

	assert.False(t, d.Alert)
	assert.Empty(t, d.Message)
	require.NotNil(t, d.MaxPrecipitation)
	assert.Equal(t, 2.0, *d.MaxPrecipitation)
}

func TestEvaluate_MissingForecastNeverAlerts(t *testing.T) {
	th := defaultThresholds(t)
	th.PrecipitationThreshold = -1000

	for _, fc := range []weather.ForecastSeries{series(), series(nil), {}} {
		d := Evaluate(snapshot(2), fc, th)
		assert.False(t, d.Alert)
		assert.Nil(t, d.MaxPrecipitation)
	}
}

func TestEvaluate_EmptySevereSet(t *testing.T) {
	th := Thresholds{SevereCodes: map[int]struct{}{}, PrecipitationThreshold: 20}

	d := Evaluate(snapshot(99), series(p(1)), th)
	assert.False(t, d.Alert)
}

func TestEvaluate_Deterministic(t *testing.T) {
	th := defaultThresholds(t)
	fc := series(p(25.55), nil)
	first := Evaluate(snapshot(96), fc, th)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(snapshot(96), fc, th))
	}
	assert.Nil(t, fc.Precipitation[1])
}

func TestFormatCoord(t *testing.T) {
	assert.Equal(t, "40.0", formatCoord(40))
	assert.Equal(t, "-1.2921", formatCoord(-1.2921))
	assert.Equal(t, "0.0", formatCoord(0))
	assert.Equal(t, "100.125", formatCoord(100.125))
}

func TestParseSevereCodes(t *testing.T) {
	codes, err := ParseSevereCodes(" 95, 96 ,99,")
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{95: {}, 96: {}, 99: {}}, codes)

	codes, err = ParseSevereCodes("")
	require.NoError(t, err)
	assert.Empty(t, codes)

	_, err = ParseSevereCodes("95,storm,99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storm")
}
