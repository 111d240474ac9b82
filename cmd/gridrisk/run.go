package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/export"
	"github.com/couchcryptid/grid-risk-dashboard/internal/store"
	"github.com/google/uuid"
)

type assessOptions struct {
	path        string
	json        bool
	top         int
	forecast    string
	temperature float64
}

// generateTarget names where a generated fleet goes: a dataset file, a
// Postgres table, or both.
type generateTarget struct {
	path  string
	dsn   string
	table string
}

func runGenerate(ctx context.Context, w io.Writer, target generateTarget, opts store.GeneratorOptions, now time.Time) error {
	if opts.Count < 1 {
		return fmt.Errorf("count must be positive, got %d", opts.Count)
	}
	if target.path == "" && target.dsn == "" {
		return errors.New("an output file or --postgres-dsn is required")
	}
	equipment := store.Generate(opts, now)

	if target.path != "" {
		if err := store.WriteFile(target.path, equipment); err != nil {
			return fmt.Errorf("writing dataset: %w", err)
		}
		fmt.Fprintf(w, "wrote %d records to %s (seed %d)\n", len(equipment), target.path, opts.Seed)
	}

	if target.dsn != "" {
		db, err := store.OpenPostgres(ctx, target.dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Seed(ctx, db, target.table, equipment); err != nil {
			return fmt.Errorf("seeding postgres: %w", err)
		}
		fmt.Fprintf(w, "seeded %d records into table %s (seed %d)\n", len(equipment), target.table, opts.Seed)
	}
	return nil
}

// assessFile loads a dataset and scores it against an optional forecast.
func assessFile(path string, weather *domain.WeatherContext, now time.Time) (*domain.Snapshot, error) {
	equipment, err := store.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	now = now.UTC()
	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		TakenAt:     now,
		Weather:     weather,
		Assessments: make([]domain.Assessment, len(equipment)),
	}
	for i := range equipment {
		snap.Assessments[i] = domain.Assess(equipment[i], now, weather)
	}
	return snap, nil
}

func runAssess(w io.Writer, o assessOptions, now time.Time) error {
	var weather *domain.WeatherContext
	if o.forecast != "" {
		weather = &domain.WeatherContext{
			Temperature:     o.temperature,
			TemperatureUnit: "F",
			ShortForecast:   o.forecast,
			FetchedAt:       now.UTC(),
		}
	}
	snap, err := assessFile(o.path, weather, now)
	if err != nil {
		return err
	}

	assessments := snap.Assessments
	if o.top > 0 {
		assessments = domain.Prioritize(assessments, o.top)
	}

	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(assessments)
	}
	return printAssessments(w, assessments, snap.CountByLevel())
}

func runCost(w io.Writer, age float64, customers int) error {
	cost, err := domain.EstimateCost(age, customers)
	if err != nil {
		return err
	}
	outage, err := domain.CustomerOutageCost(customers)
	if err != nil {
		return err
	}
	printCost(w, age, customers, cost, outage)
	return nil
}

func runExport(w io.Writer, path string, f export.Format, out string, now time.Time) error {
	snap, err := assessFile(path, nil, now)
	if err != nil {
		return err
	}
	if out == "" {
		out = f.Filename(snap.TakenAt)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := export.Write(file, f, snap); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s report for %d records to %s\n", f, len(snap.Assessments), out)
	return nil
}
