package domain

import "context"

// ForecastSource returns the current forecast period for a coordinate.
// Implementations report failures; see WeatherProvider for the variant that cannot fail.
type ForecastSource interface {
	Forecast(ctx context.Context, lat, lon float64) (WeatherContext, error)
}

// WeatherProvider always returns a usable snapshot, substituting
// FallbackWeather when the underlying source fails.
type WeatherProvider interface {
	Fetch(ctx context.Context, lat, lon float64) WeatherContext
}
