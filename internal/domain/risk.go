package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultRiskScore is returned when equipment cannot be scored (medium risk).
const DefaultRiskScore = 0.5

// Sub-score weights. They sum to 1.
const (
	ageWeight         = 0.25
	maintenanceWeight = 0.20
	weatherWeight     = 0.25
	vegetationWeight  = 0.15
	customerWeight    = 0.15
)

// ErrInvalidInput reports a non-finite numeric input.
var ErrInvalidInput = errors.New("invalid input")

// RiskLevel is the discretized label shown next to a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// LevelFor maps a risk score to its level:
// <0.3 Low, <0.5 Medium, <0.7 High, else Critical.
func LevelFor(score float64) RiskLevel {
	switch {
	case score < 0.3:
		return RiskLow
	case score < 0.5:
		return RiskMedium
	case score < 0.7:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Score computes the risk score for the given factors. When weather is
// non-nil it supersedes the equipment's own temperature and precipitation.
// Missing or invalid inputs yield DefaultRiskScore rather than an error, so
// callers must not use the result to detect bad data.
func Score(f RiskFactors, weather *WeatherContext) float64 {
	score, err := ScoreWithError(f, weather)
	if err != nil {
		return DefaultRiskScore
	}
	return score
}

// ScoreEquipment derives factors at now and scores them, degrading to
// DefaultRiskScore the same way Score does.
func ScoreEquipment(e Equipment, now time.Time, weather *WeatherContext) float64 {
	f, err := e.Factors(now)
	if err != nil {
		return DefaultRiskScore
	}
	return Score(f, weather)
}

// ScoreWithError is Score with the failure reported instead of swallowed.
// On error the returned score is already DefaultRiskScore, so callers that
// only log the error can use the value directly.
func ScoreWithError(f RiskFactors, weather *WeatherContext) (float64, error) {
	if err := finite("age_years", f.AgeYears); err != nil {
		return DefaultRiskScore, err
	}
	if err := finite("days_since_maintenance", f.DaysSinceMaintenance); err != nil {
		return DefaultRiskScore, err
	}

	ageScore := math.Min(f.AgeYears/20, 1)
	maintenanceScore := math.Min(f.DaysSinceMaintenance/365, 1)

	weatherScore, err := weatherSubScore(f, weather)
	if err != nil {
		return DefaultRiskScore, err
	}

	var vegetationScore float64
	if f.VegetationNearby {
		vegetationScore = 1
	}

	customerScore := math.Min(float64(f.CustomersServed)/1000, 1)

	total := ageScore*ageWeight +
		maintenanceScore*maintenanceWeight +
		weatherScore*weatherWeight +
		vegetationScore*vegetationWeight +
		customerScore*customerWeight

	return clamp01(total), nil
}

// weatherSubScore prefers the forecast snapshot and falls back to the
// equipment's local readings.
func weatherSubScore(f RiskFactors, weather *WeatherContext) (float64, error) {
	if weather != nil {
		return WeatherRisk(weather), nil
	}
	if f.AmbientTemperature == nil {
		return 0, fmt.Errorf("%w: ambient_temperature", ErrMissingField)
	}
	if f.PrecipitationForecast == nil {
		return 0, fmt.Errorf("%w: precipitation_forecast", ErrMissingField)
	}
	temp, precip := *f.AmbientTemperature, *f.PrecipitationForecast
	if err := finite("ambient_temperature", temp); err != nil {
		return 0, err
	}
	if err := finite("precipitation_forecast", precip); err != nil {
		return 0, err
	}
	delta := temp - comfortTemperature
	return math.Min(delta*delta/1000+precip/100, 1), nil
}

func finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is %v", ErrInvalidInput, field, v)
	}
	return nil
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
