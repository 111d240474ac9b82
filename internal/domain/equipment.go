package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Equipment categories produced by the synthetic generator and expected in datasets.
const (
	CategoryTransformer    = "Transformer"
	CategoryPowerPole      = "Power Pole"
	CategorySwitchGear     = "Switch Gear"
	CategoryCircuitBreaker = "Circuit Breaker"
)

// Categories lists the equipment vocabulary in a stable order.
var Categories = []string{
	CategoryTransformer,
	CategoryPowerPole,
	CategorySwitchGear,
	CategoryCircuitBreaker,
}

// ErrMissingField reports a record without a value the formulas need.
var ErrMissingField = errors.New("missing required field")

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Equipment is one physical grid asset as supplied by the record store.
// AmbientTemperature (°F) and PrecipitationForecast are optional; they only
// feed the score when no weather snapshot is available.
type Equipment struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Location              Geo       `json:"location"`
	InstalledAt           time.Time `json:"installed_at"`
	LastMaintainedAt      time.Time `json:"last_maintained_at"`
	AmbientTemperature    *float64  `json:"ambient_temperature,omitempty"`
	PrecipitationForecast *float64  `json:"precipitation_forecast,omitempty"`
	VegetationNearby      bool      `json:"vegetation_nearby"`
	CustomersServed       int       `json:"customers_served"`
}

// RiskFactors is the normalized input to the scoring engine.
type RiskFactors struct {
	AgeYears              float64
	DaysSinceMaintenance  float64
	VegetationNearby      bool
	CustomersServed       int
	AmbientTemperature    *float64
	PrecipitationForecast *float64
}

// AgeYears returns the whole days since installation divided by 365.
func (e Equipment) AgeYears(now time.Time) (float64, error) {
	if e.InstalledAt.IsZero() {
		return 0, fmt.Errorf("equipment %q: %w: installed_at", e.ID, ErrMissingField)
	}
	return wholeDays(now.Sub(e.InstalledAt)) / 365, nil
}

// DaysSinceMaintenance returns the whole days since the last maintenance visit.
func (e Equipment) DaysSinceMaintenance(now time.Time) (float64, error) {
	if e.LastMaintainedAt.IsZero() {
		return 0, fmt.Errorf("equipment %q: %w: last_maintained_at", e.ID, ErrMissingField)
	}
	return wholeDays(now.Sub(e.LastMaintainedAt)), nil
}

// Factors derives the scoring inputs for the given instant.
// last_maintained_at is not checked against installed_at; such records are scored as-is.
func (e Equipment) Factors(now time.Time) (RiskFactors, error) {
	age, err := e.AgeYears(now)
	if err != nil {
		return RiskFactors{}, err
	}
	days, err := e.DaysSinceMaintenance(now)
	if err != nil {
		return RiskFactors{}, err
	}
	return RiskFactors{
		AgeYears:              age,
		DaysSinceMaintenance:  days,
		VegetationNearby:      e.VegetationNearby,
		CustomersServed:       e.CustomersServed,
		AmbientTemperature:    e.AmbientTemperature,
		PrecipitationForecast: e.PrecipitationForecast,
	}, nil
}

// FleetCenter returns the mean location of the fleet, the point the map is
// centred on and the weather is fetched for. ok is false for an empty fleet.
func FleetCenter(equipment []Equipment) (center Geo, ok bool) {
	if len(equipment) == 0 {
		return Geo{}, false
	}
	var lat, lon float64
	for i := range equipment {
		lat += equipment[i].Location.Lat
		lon += equipment[i].Location.Lon
	}
	n := float64(len(equipment))
	return Geo{Lat: lat / n, Lon: lon / n}, true
}

// wholeDays floors a duration to calendar days.
func wholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}

// Float returns a pointer to v, for optional equipment readings.
func Float(v float64) *float64 {
	return &v
}
