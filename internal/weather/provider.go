package weather

import (
	"context"
	"errors"
)

// ErrNoData is returned by a Provider that answered but carried no usable
// current conditions (e.g. a payload without a weather code).
var ErrNoData = errors.New("no weather data")

// Provider abstracts a weather data source for a coordinate pair.
// Implementations must honour ctx cancellation and deadlines.
type Provider interface {
	Current(ctx context.Context, lat, lon float64) (Snapshot, error)
	HourlyForecast(ctx context.Context, lat, lon float64, hours int) (ForecastSeries, error)
}
