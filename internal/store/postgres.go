package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultEquipmentTable = "equipment"

// DBTX is the subset of *sql.DB and *sql.Tx used by the Postgres source.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres reads equipment rows from a table.
type Postgres struct {
	db    DBTX
	table string
}

// PostgresOption configures the source.
type PostgresOption func(*Postgres)

// WithEquipmentTable overrides the default table name.
func WithEquipmentTable(table string) PostgresOption {
	return func(p *Postgres) {
		if table != "" {
			p.table = table
		}
	}
}

// NewPostgres constructs a Postgres-backed Source.
func NewPostgres(db DBTX, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, table: defaultEquipmentTable}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the equipment table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("equipment repo: nil db")
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	latitude               DOUBLE PRECISION NOT NULL,
	longitude              DOUBLE PRECISION NOT NULL,
	installed_at           TIMESTAMPTZ NOT NULL,
	last_maintained_at     TIMESTAMPTZ NOT NULL,
	ambient_temperature    DOUBLE PRECISION,
	precipitation_forecast DOUBLE PRECISION,
	vegetation_nearby      BOOLEAN NOT NULL,
	customers_served       INTEGER NOT NULL CHECK (customers_served >= 0)
)`, p.table)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create equipment table: %w", err)
	}
	return nil
}

// Upsert inserts or replaces equipment rows by ID.
func (p *Postgres) Upsert(ctx context.Context, equipment []domain.Equipment) error {
	if p == nil || p.db == nil {
		return errors.New("equipment repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, name, latitude, longitude, installed_at, last_maintained_at,
	ambient_temperature, precipitation_forecast, vegetation_nearby, customers_served
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	installed_at = EXCLUDED.installed_at,
	last_maintained_at = EXCLUDED.last_maintained_at,
	ambient_temperature = EXCLUDED.ambient_temperature,
	precipitation_forecast = EXCLUDED.precipitation_forecast,
	vegetation_nearby = EXCLUDED.vegetation_nearby,
	customers_served = EXCLUDED.customers_served`, p.table)

	for i := range equipment {
		e := &equipment[i]
		if e.ID == "" {
			return errors.New("equipment repo: empty id")
		}
		if _, err := p.db.ExecContext(ctx, query,
			e.ID,
			e.Name,
			e.Location.Lat,
			e.Location.Lon,
			e.InstalledAt.UTC(),
			e.LastMaintainedAt.UTC(),
			nullFloat(e.AmbientTemperature),
			nullFloat(e.PrecipitationForecast),
			e.VegetationNearby,
			e.CustomersServed,
		); err != nil {
			return fmt.Errorf("upsert equipment %s: %w", e.ID, err)
		}
	}
	return nil
}

// Seed creates the table if needed and upserts equipment in one transaction.
func Seed(ctx context.Context, db *sql.DB, table string, equipment []domain.Equipment) error {
	if db == nil {
		return errors.New("equipment repo: nil db")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	repo := NewPostgres(tx, WithEquipmentTable(table))
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := repo.Upsert(ctx, equipment); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// List loads every equipment row ordered by ID.
func (p *Postgres) List(ctx context.Context) ([]domain.Equipment, error) {
	if p == nil || p.db == nil {
		return nil, errors.New("equipment repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, latitude, longitude, installed_at, last_maintained_at,
       ambient_temperature, precipitation_forecast, vegetation_nearby, customers_served
FROM %s
ORDER BY id ASC`, p.table)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	defer rows.Close()

	var result []domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// rowScanner is satisfied by *sql.Rows and *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEquipment maps one row in List column order. NULL readings become nil.
func scanEquipment(row rowScanner) (domain.Equipment, error) {
	var (
		e      domain.Equipment
		temp   sql.NullFloat64
		precip sql.NullFloat64
	)
	if err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Location.Lat,
		&e.Location.Lon,
		&e.InstalledAt,
		&e.LastMaintainedAt,
		&temp,
		&precip,
		&e.VegetationNearby,
		&e.CustomersServed,
	); err != nil {
		return domain.Equipment{}, fmt.Errorf("scan equipment: %w", err)
	}
	e.InstalledAt = e.InstalledAt.UTC()
	e.LastMaintainedAt = e.LastMaintainedAt.UTC()
	if temp.Valid {
		e.AmbientTemperature = domain.Float(temp.Float64)
	}
	if precip.Valid {
		e.PrecipitationForecast = domain.Float(precip.Float64)
	}
	// DOUBLE PRECISION columns accept 'NaN' and 'Infinity'.
	if err := checkReadings(e); err != nil {
		return domain.Equipment{}, fmt.Errorf("equipment %s: %w", e.ID, err)
	}
	return e, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
