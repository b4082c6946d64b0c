package weather

import (
	"context"
	"errors"
)

// ErrUpstreamUnavailable wraps every fetch or decode failure of the forecast source.
var ErrUpstreamUnavailable = errors.New("weather upstream unavailable")

// Forecast is the part of a forecast document the cache uses. Hourly arrays are
// parallel to Times; a nil entry is a missing value.
type Forecast struct {
	Temperature *float64 // current conditions, °C
	Times       []string // ISO-8601 UTC hours, e.g. "2024-01-01T10:00"
	Humidity    []*float64
	Pressure    []*float64 // hPa
	Visibility  []*float64 // meters
}

// Provider is a forecast source for a fixed location.
type Provider interface {
	Fetch(ctx context.Context) (Forecast, error)
}
