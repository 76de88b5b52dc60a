package environment

import "time"

// Substitutes used when a provider is unavailable. They are indistinguishable
// from genuine readings once collected.
var FallbackWeather = Weather{PrecipitationForecast: 65, RecentRainTrend: 12.5}

const (
	FallbackElevation = 125

	// The vegetation "reading" is a tile-service health check with two fixed outcomes.
	NDVIAvailable   = 0.65
	NDVIUnavailable = 0.62
)

// Signals are the fused environmental inputs for one coordinate.
type Signals struct {
	PrecipitationForecast int     `json:"precipitation_forecast"`
	RecentRainTrend       float64 `json:"recent_rain_trend"`
	Elevation             int     `json:"elevation"`
	NDVI                  float64 `json:"ndvi"`
}

// Weather is the weather contribution to Signals.
type Weather struct {
	PrecipitationForecast int     `json:"precipitation_forecast"`
	RecentRainTrend       float64 `json:"recent_rain_trend"`
}

// Config wires runtime knobs for the collectors.
type Config struct {
	// Timeout bounds each provider call independently.
	Timeout time.Duration
}
