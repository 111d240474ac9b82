package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func baseFactors() RiskFactors {
	return RiskFactors{
		AgeYears:              10,
		DaysSinceMaintenance:  180,
		VegetationNearby:      true,
		CustomersServed:       500,
		AmbientTemperature:    Float(70),
		PrecipitationForecast: Float(0),
	}
}

func TestScore_WorkedExample(t *testing.T) {
	// 0.125 age + 0.0986 maintenance + 0 weather + 0.15 vegetation + 0.075 customers
	score := Score(baseFactors(), nil)

	assert.InDelta(t, 0.4486, score, 0.0001)
	assert.Equal(t, RiskMedium, LevelFor(score))
}

func TestScore_AgeSaturates(t *testing.T) {
	f := baseFactors()
	f.AgeYears = 20
	at20 := Score(f, nil)

	for _, age := range []float64{20.5, 25, 40, 100} {
		f.AgeYears = age
		assert.InDelta(t, at20, Score(f, nil), 1e-12, "age %v", age)
	}

	f.AgeYears = 19
	assert.Less(t, Score(f, nil), at20)
}

func TestScore_SubScoresSaturate(t *testing.T) {
	f := RiskFactors{
		AgeYears:              50,
		DaysSinceMaintenance:  5000,
		VegetationNearby:      true,
		CustomersServed:       100000,
		AmbientTemperature:    Float(150),
		PrecipitationForecast: Float(400),
	}
	assert.InDelta(t, 1.0, Score(f, nil), 1e-12)
}

func TestScore_AllZero(t *testing.T) {
	f := RiskFactors{
		AmbientTemperature:    Float(70),
		PrecipitationForecast: Float(0),
	}
	assert.Equal(t, 0.0, Score(f, nil))
}

func TestScore_ClampsNegativeInputs(t *testing.T) {
	f := RiskFactors{
		AgeYears:              -30,
		DaysSinceMaintenance:  -400,
		CustomersServed:       -5000,
		AmbientTemperature:    Float(70),
		PrecipitationForecast: Float(-100),
	}
	assert.Equal(t, 0.0, Score(f, nil))
}

func TestScore_LocalWeatherFormula(t *testing.T) {
	f := RiskFactors{
		AmbientTemperature:    Float(80),
		PrecipitationForecast: Float(20),
	}
	// (80-70)^2/1000 + 20/100 = 0.3, weighted 0.25
	assert.InDelta(t, 0.075, Score(f, nil), 1e-12)
}

func TestScore_WeatherContextSupersedesLocalReadings(t *testing.T) {
	f := baseFactors()
	f.AmbientTemperature = nil
	f.PrecipitationForecast = nil

	storm := &WeatherContext{Temperature: 100, ShortForecast: "Severe Thunderstorms"}
	// weather sub-score = min(1, 0.4*1 + 0.6*1) = 1
	expected := 0.125 + (180.0/365)*0.20 + 0.25 + 0.15 + 0.075

	assert.InDelta(t, expected, Score(f, storm), 1e-9)
}

func TestScore_WeatherContextIgnoresBadLocalReadings(t *testing.T) {
	f := baseFactors()
	f.AmbientTemperature = Float(math.NaN())

	calm := &WeatherContext{Temperature: 70, ShortForecast: "Sunny"}
	assert.InDelta(t, 0.4486, Score(f, calm), 0.0001)
}

func TestScore_MalformedInputReturnsDefault(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RiskFactors)
	}{
		{"missing temperature", func(f *RiskFactors) { f.AmbientTemperature = nil }},
		{"missing precipitation", func(f *RiskFactors) { f.PrecipitationForecast = nil }},
		{"NaN age", func(f *RiskFactors) { f.AgeYears = math.NaN() }},
		{"infinite maintenance", func(f *RiskFactors) { f.DaysSinceMaintenance = math.Inf(1) }},
		{"NaN temperature", func(f *RiskFactors) { f.AmbientTemperature = Float(math.NaN()) }},
		{"infinite precipitation", func(f *RiskFactors) { f.PrecipitationForecast = Float(math.Inf(-1)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFactors()
			tt.mutate(&f)

			assert.Equal(t, 0.5, Score(f, nil))

			score, err := ScoreWithError(f, nil)
			require.Error(t, err)
			assert.Equal(t, 0.5, score)
		})
	}
}

func TestScoreWithError_MissingFieldSentinel(t *testing.T) {
	f := baseFactors()
	f.AmbientTemperature = nil

	_, err := ScoreWithError(f, nil)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "ambient_temperature")
}

func TestScoreEquipment(t *testing.T) {
	eq := Equipment{
		ID:                    "EQ001",
		InstalledAt:           testNow.AddDate(0, 0, -3650),
		LastMaintainedAt:      testNow.AddDate(0, 0, -180),
		AmbientTemperature:    Float(70),
		PrecipitationForecast: Float(0),
		VegetationNearby:      true,
		CustomersServed:       500,
	}
	assert.InDelta(t, 0.4486, ScoreEquipment(eq, testNow, nil), 0.0001)

	t.Run("missing installation date", func(t *testing.T) {
		broken := eq
		broken.InstalledAt = time.Time{}
		assert.Equal(t, 0.5, ScoreEquipment(broken, testNow, nil))
	})

	t.Run("missing maintenance date", func(t *testing.T) {
		broken := eq
		broken.LastMaintainedAt = time.Time{}
		assert.Equal(t, 0.5, ScoreEquipment(broken, testNow, nil))
	})
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score    float64
		expected RiskLevel
	}{
		{0.0, RiskLow},
		{0.29, RiskLow},
		{0.3, RiskMedium},
		{0.49, RiskMedium},
		{0.5, RiskHigh},
		{0.69, RiskHigh},
		{0.7, RiskCritical},
		{1.0, RiskCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevelFor(tt.score), "score %v", tt.score)
	}
}

func TestLevelFor_Monotonic(t *testing.T) {
	rank := map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}
	prev := rank[LevelFor(0)]
	for s := 0.0; s <= 1.0; s += 0.001 {
		cur := rank[LevelFor(s)]
		assert.GreaterOrEqual(t, cur, prev, "score %v", s)
		prev = cur
	}
}
