// Package weather defines the external weather/irradiance collaborator
// interface. The provider implementation and solar-position math are out
// of scope for the reasoning engine — this package specifies only the
// contract the tool layer depends on.
package weather

import (
	"context"
	"time"

	"wattwise/internal/domain"
)

// SolarEstimate is the modeled solar-generation estimate for a location
// and panel rating over a date range.
type SolarEstimate struct {
	DailyAverageWh float64 `json:"dailyAverageWh"`
	PeakSunHours   float64 `json:"peakSunHours"`
}

// Client is the external weather/solar collaborator contract.
type Client interface {
	// CurrentWeather returns the weather observation nearest timestamp for
	// the given coordinates. A nil timestamp means "now".
	CurrentWeather(ctx context.Context, lat, lon float64, timestamp *time.Time) (*domain.WeatherObservation, error)

	// SolarEstimate returns the modeled daily solar generation for a panel
	// of the given wattage at the given location over [start,end].
	SolarEstimate(ctx context.Context, loc domain.Location, panelWatts float64, start, end time.Time) (*SolarEstimate, error)
}
