package store

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
)

// GeneratorOptions bounds the synthetic fleet. The zero value is not useful;
// start from DefaultGeneratorOptions.
type GeneratorOptions struct {
	Count int
	Seed  uint64

	// Bounding box for locations.
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// DefaultGeneratorOptions produces 100 assets around San Francisco.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Count:  100,
		Seed:   42,
		MinLat: 37.7,
		MaxLat: 37.9,
		MinLon: -122.5,
		MaxLon: -122.4,
	}
}

// Generate builds a deterministic synthetic fleet anchored at now: the same
// seed and now always yield the same records.
//
//	installed     365–3649 days before now
//	maintained    0–364 days before now
//	temperature   60–90 °F
//	precipitation 0–50
//	customers     50–999
func Generate(opts GeneratorOptions, now time.Time) []domain.Equipment {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	now = now.UTC().Truncate(time.Second)

	out := make([]domain.Equipment, opts.Count)
	for i := range out {
		out[i] = domain.Equipment{
			ID:   fmt.Sprintf("EQ%03d", i),
			Name: domain.Categories[rng.IntN(len(domain.Categories))],
			Location: domain.Geo{
				Lat: uniform(rng, opts.MinLat, opts.MaxLat),
				Lon: uniform(rng, opts.MinLon, opts.MaxLon),
			},
			InstalledAt:           now.AddDate(0, 0, -(365 + rng.IntN(3650-365))),
			LastMaintainedAt:      now.AddDate(0, 0, -rng.IntN(365)),
			AmbientTemperature:    domain.Float(uniform(rng, 60, 90)),
			PrecipitationForecast: domain.Float(uniform(rng, 0, 50)),
			VegetationNearby:      rng.IntN(2) == 1,
			CustomersServed:       50 + rng.IntN(1000-50),
		}
	}
	return out
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
