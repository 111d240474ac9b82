package domain

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DefaultWeatherRisk is returned by WeatherRisk when the snapshot cannot be evaluated.
const DefaultWeatherRisk = 0.3

// comfortTemperature is the °F reading treated as zero temperature risk.
const comfortTemperature = 70.0

// WeatherContext is a point-in-time forecast snapshot. Snapshots are replaced
// wholesale on refresh, never merged.
type WeatherContext struct {
	Temperature     float64   `json:"temperature"`
	TemperatureUnit string    `json:"temperature_unit"`
	ShortForecast   string    `json:"short_forecast"`
	WindSpeed       string    `json:"wind_speed"`
	WindDirection   string    `json:"wind_direction"`
	IsDaytime       bool      `json:"is_daytime"`
	Location        Geo       `json:"location"`
	FetchedAt       time.Time `json:"fetched_at"`
	Fallback        bool      `json:"fallback"`
}

// FallbackWeather is the static snapshot served when the forecast provider
// cannot be reached or its answer cannot be parsed.
func FallbackWeather() WeatherContext {
	return WeatherContext{
		Temperature:     58,
		TemperatureUnit: "F",
		ShortForecast:   "mostly sunny",
		WindSpeed:       "5 mph",
		WindDirection:   "N",
		IsDaytime:       true,
		Fallback:        true,
	}
}

// conditionTier maps forecast keywords to a condition risk. Tiers are
// evaluated in order and the first tier with a matching keyword wins.
type conditionTier struct {
	keywords []string
	risk     float64
}

var conditionTiers = []conditionTier{
	{keywords: []string{"storm", "thunder", "lightning"}, risk: 1.0},
	{keywords: []string{"rain", "snow", "sleet"}, risk: 0.7},
	{keywords: []string{"cloudy", "overcast"}, risk: 0.3},
}

var errNoWeather = errors.New("weather context is nil")

// ConditionRisk scores a short forecast text by keyword tier.
func ConditionRisk(shortForecast string) float64 {
	text := strings.ToLower(shortForecast)
	for _, tier := range conditionTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(text, kw) {
				return tier.risk
			}
		}
	}
	return 0
}

// TemperatureRisk grows linearly with distance from 70°F and saturates 30° away.
func TemperatureRisk(temperature float64) float64 {
	return math.Min(1, math.Abs(temperature-comfortTemperature)/30)
}

// WeatherRisk blends temperature and forecast condition into a [0,1] risk.
// It never fails: a nil or unusable snapshot yields DefaultWeatherRisk.
func WeatherRisk(w *WeatherContext) float64 {
	risk, err := weatherRisk(w)
	if err != nil {
		return DefaultWeatherRisk
	}
	return risk
}

func weatherRisk(w *WeatherContext) (float64, error) {
	if w == nil {
		return 0, errNoWeather
	}
	if err := finite("temperature", w.Temperature); err != nil {
		return 0, err
	}
	total := TemperatureRisk(w.Temperature)*0.4 + ConditionRisk(w.ShortForecast)*0.6
	return math.Min(1, total), nil
}
