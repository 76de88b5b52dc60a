package environment

import "math"

// Display colors for risk scores.
const (
	ColorLow      = "#7cb342"
	ColorModerate = "#FFA726"
	ColorHigh     = "#EF5350"
)

// FloodRisk scores flood exposure on 0..10 from the precipitation
// probability (percent) and ground elevation (meters). Low-lying ground
// (below 50m) adds one point.
func FloodRisk(precipitation, elevation int) int {
	score := int(math.Floor(float64(precipitation) / 10))
	if elevation < 50 {
		score++
	}
	return clamp(score, 0, 10)
}

// AirQuality scores air quality on 1..10; rain lowers the score.
func AirQuality(precipitation int) int {
	return clamp(10-int(math.Floor(float64(precipitation)/15)), 1, 10)
}

// RiskColor maps a score to its display color.
func RiskColor(score int) string {
	switch {
	case score <= 3:
		return ColorLow
	case score <= 6:
		return ColorModerate
	default:
		return ColorHigh
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
