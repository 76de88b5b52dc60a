package environment

// WeatherFromForecast derives the weather signals from hourly precipitation
// probabilities (0..1) and the most recent daily rainfall in millimetres.
// The mean is always taken over a 24 hour window; missing hours count as 0.
func WeatherFromForecast(hourlyPOP []float64, recentRain float64) Weather {
	if len(hourlyPOP) > 24 {
		hourlyPOP = hourlyPOP[:24]
	}
	var sum float64
	for _, pop := range hourlyPOP {
		sum += pop * 100
	}
	if recentRain < 0 {
		recentRain = 0
	}
	return Weather{
		PrecipitationForecast: clamp(int(sum/24), 0, 100),
		RecentRainTrend:       recentRain,
	}
}
