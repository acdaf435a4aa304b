package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-alert-notifier/internal/weather"
)

// DefaultOpenMeteoURL is the public Open-Meteo forecast endpoint.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements weather.Provider for Open-Meteo. No API key is needed.
type OpenMeteoProvider struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider against baseURL (DefaultOpenMeteoURL when empty).
func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("openmeteo"),
	}
}

type currentPayload struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		Time        string  `json:"time"`
		WeatherCode *int    `json:"weathercode"`
	} `json:"current_weather"`
}

type hourlyPayload struct {
	Hourly *struct {
		Time          []string   `json:"time"`
		Precipitation []*float64 `json:"precipitation"`
	} `json:"hourly"`
}

// Current fetches current conditions. It returns weather.ErrNoData when the
// payload has no current_weather block or no weather code.
func (p *OpenMeteoProvider) Current(ctx context.Context, lat, lon float64) (weather.Snapshot, error) {
	values := coordValues(lat, lon)
	values.Set("current_weather", "true")

	var payload currentPayload
	if err := p.get(ctx, values, &payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("openmeteo current: %w", err)
	}

	cw := payload.CurrentWeather
	if cw == nil || cw.WeatherCode == nil {
		return weather.Snapshot{}, weather.ErrNoData
	}

	return weather.NewSnapshot(lat, lon, *cw.WeatherCode, parseTime(cw.Time)), nil
}

// HourlyForecast fetches hourly precipitation for the next hours hours.
// Missing readings come back as nil entries; a payload without an hourly
// block yields an empty series, not an error.
func (p *OpenMeteoProvider) HourlyForecast(ctx context.Context, lat, lon float64, hours int) (weather.ForecastSeries, error) {
	if hours <= 0 {
		hours = weather.DefaultForecastHours
	}

	values := coordValues(lat, lon)
	values.Set("hourly", "precipitation")
	values.Set("forecast_hours", strconv.Itoa(hours))

	var payload hourlyPayload
	if err := p.get(ctx, values, &payload); err != nil {
		return weather.ForecastSeries{}, fmt.Errorf("openmeteo hourly forecast: %w", err)
	}

	series := weather.ForecastSeries{Hours: hours}
	if payload.Hourly == nil {
		return series, nil
	}

	precip := payload.Hourly.Precipitation
	if len(precip) > hours {
		precip = precip[:hours]
	}
	series.Precipitation = precip
	return series, nil
}

func (p *OpenMeteoProvider) get(ctx context.Context, values url.Values, out any) error {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func coordValues(lat, lon float64) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("timezone", "GMT")
	return values
}

// Open-Meteo reports times without an offset ("2006-01-02T15:04"); we ask for GMT.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}
