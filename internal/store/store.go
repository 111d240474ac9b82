// Package store supplies equipment records to the dashboard. Records come
// from a synthetic generator, a dataset file or a Postgres table and are
// held read-only in memory for the life of the process.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
)

var (
	// ErrDuplicateID is returned when two records share an equipment ID.
	ErrDuplicateID = errors.New("duplicate equipment id")
	// ErrNonFinite is returned for NaN or infinite coordinates and readings.
	ErrNonFinite = errors.New("non-finite value")
)

// Source produces the equipment collection. Order is not significant.
type Source interface {
	List(ctx context.Context) ([]domain.Equipment, error)
}

// Memory is an immutable in-memory equipment collection.
type Memory struct {
	records []domain.Equipment
	byID    map[string]int
}

// NewMemory copies records into a new store, rejecting duplicate or empty IDs.
func NewMemory(records []domain.Equipment) (*Memory, error) {
	for i := range records {
		if records[i].ID == "" {
			return nil, errors.New("memory store: record with empty id")
		}
	}
	if err := checkUniqueIDs(records); err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}
	m := &Memory{
		records: slices.Clone(records),
		byID:    make(map[string]int, len(records)),
	}
	for i := range m.records {
		m.byID[m.records[i].ID] = i
	}
	return m, nil
}

// List returns a copy of every record.
func (m *Memory) List(_ context.Context) ([]domain.Equipment, error) {
	return slices.Clone(m.records), nil
}

// Get looks up one record by ID.
func (m *Memory) Get(id string) (domain.Equipment, bool) {
	i, ok := m.byID[id]
	if !ok {
		return domain.Equipment{}, false
	}
	return m.records[i], true
}

// Len reports the number of records.
func (m *Memory) Len() int {
	return len(m.records)
}

func checkUniqueIDs(records []domain.Equipment) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		id := records[i].ID
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// checkReadings rejects NaN and infinite values. Such records cannot be
// scored, and encoding/json refuses to serialize them.
func checkReadings(e domain.Equipment) error {
	fields := []struct {
		name string
		v    *float64
	}{
		{colLatitude, &e.Location.Lat},
		{colLongitude, &e.Location.Lon},
		{colTemperature, e.AmbientTemperature},
		{colPrecipitationForecast, e.PrecipitationForecast},
	}
	for _, f := range fields {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return fmt.Errorf("%s: %w: %v", f.name, ErrNonFinite, *f.v)
		}
	}
	return nil
}
