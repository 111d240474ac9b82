package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"gopkg.in/yaml.v3"
)

// Dataset column names. Every column must be present in a CSV header;
// temperature and precipitation cells may be blank.
const (
	colProductID             = "product_id"
	colProductName           = "product_name"
	colLatitude              = "latitude"
	colLongitude             = "longitude"
	colInstallationDate      = "installation_date"
	colLastMaintenanceDate   = "last_maintenance_date"
	colTemperature           = "temperature"
	colPrecipitationForecast = "precipitation_forecast"
	colVegetationProximity   = "vegetation_proximity"
	colCustomerImpact        = "customer_impact"
)

var requiredColumns = []string{
	colProductID, colProductName, colLatitude, colLongitude,
	colInstallationDate, colLastMaintenanceDate, colTemperature,
	colPrecipitationForecast, colVegetationProximity, colCustomerImpact,
}

// ErrUnsupportedFormat is returned for file extensions other than csv, json, yaml and yml.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// record is the on-disk shape of one equipment row in JSON and YAML datasets.
type record struct {
	ProductID             string   `json:"product_id" yaml:"product_id"`
	ProductName           string   `json:"product_name" yaml:"product_name"`
	Latitude              *float64 `json:"latitude" yaml:"latitude"`
	Longitude             *float64 `json:"longitude" yaml:"longitude"`
	InstallationDate      string   `json:"installation_date" yaml:"installation_date"`
	LastMaintenanceDate   string   `json:"last_maintenance_date" yaml:"last_maintenance_date"`
	Temperature           *float64 `json:"temperature" yaml:"temperature"`
	PrecipitationForecast *float64 `json:"precipitation_forecast" yaml:"precipitation_forecast"`
	VegetationProximity   *bool    `json:"vegetation_proximity" yaml:"vegetation_proximity"`
	CustomerImpact        *int     `json:"customer_impact" yaml:"customer_impact"`
}

// FileSource loads a dataset file on every List call.
type FileSource struct {
	path string
}

// NewFileSource creates a Source backed by a dataset file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) List(_ context.Context) ([]domain.Equipment, error) {
	return LoadFile(f.path)
}

// LoadFile reads a CSV, JSON or YAML dataset, chosen by extension.
func LoadFile(path string) ([]domain.Equipment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(bytes.NewReader(data))
	case ".json":
		var recs []record
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("parse json dataset: %w", err)
		}
		return fromRecords(recs)
	case ".yaml", ".yml":
		var recs []record
		if err := yaml.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("parse yaml dataset: %w", err)
		}
		return fromRecords(recs)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ParseCSV reads a dataset with a header row naming every required column.
func ParseCSV(r io.Reader) ([]domain.Equipment, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("read csv: missing header row")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	out := make([]domain.Equipment, 0, len(rows)-1)
	for n, row := range rows[1:] {
		eq, err := parseCSVRow(row, colIdx)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", n+2, err)
		}
		out = append(out, eq)
	}
	if err := checkUniqueIDs(out); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return out, nil
}

func parseCSVRow(row []string, colIdx map[string]int) (domain.Equipment, error) {
	rec := record{
		ProductID:           get(row, colIdx, colProductID),
		ProductName:         get(row, colIdx, colProductName),
		InstallationDate:    get(row, colIdx, colInstallationDate),
		LastMaintenanceDate: get(row, colIdx, colLastMaintenanceDate),
	}

	var err error
	if rec.Latitude, err = optionalFloat(get(row, colIdx, colLatitude)); err != nil {
		return domain.Equipment{}, fmt.Errorf("%s: %w", colLatitude, err)
	}
	if rec.Longitude, err = optionalFloat(get(row, colIdx, colLongitude)); err != nil {
		return domain.Equipment{}, fmt.Errorf("%s: %w", colLongitude, err)
	}
	if rec.Temperature, err = optionalFloat(get(row, colIdx, colTemperature)); err != nil {
		return domain.Equipment{}, fmt.Errorf("%s: %w", colTemperature, err)
	}
	if rec.PrecipitationForecast, err = optionalFloat(get(row, colIdx, colPrecipitationForecast)); err != nil {
		return domain.Equipment{}, fmt.Errorf("%s: %w", colPrecipitationForecast, err)
	}
	if s := get(row, colIdx, colVegetationProximity); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return domain.Equipment{}, fmt.Errorf("%s: %w", colVegetationProximity, err)
		}
		rec.VegetationProximity = &v
	}
	if s := get(row, colIdx, colCustomerImpact); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return domain.Equipment{}, fmt.Errorf("%s: %w", colCustomerImpact, err)
		}
		rec.CustomerImpact = &v
	}
	return rec.toEquipment()
}

func fromRecords(recs []record) ([]domain.Equipment, error) {
	out := make([]domain.Equipment, 0, len(recs))
	for i := range recs {
		eq, err := recs[i].toEquipment()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, eq)
	}
	if err := checkUniqueIDs(out); err != nil {
		return nil, err
	}
	return out, nil
}

// toEquipment validates required fields. Temperature and precipitation stay
// optional: a record without them is scored from the forecast snapshot or
// falls back to the default risk.
func (r record) toEquipment() (domain.Equipment, error) {
	switch {
	case r.ProductID == "":
		return domain.Equipment{}, missing(colProductID)
	case r.ProductName == "":
		return domain.Equipment{}, missing(colProductName)
	case r.Latitude == nil:
		return domain.Equipment{}, missing(colLatitude)
	case r.Longitude == nil:
		return domain.Equipment{}, missing(colLongitude)
	case r.InstallationDate == "":
		return domain.Equipment{}, missing(colInstallationDate)
	case r.LastMaintenanceDate == "":
		return domain.Equipment{}, missing(colLastMaintenanceDate)
	case r.VegetationProximity == nil:
		return domain.Equipment{}, missing(colVegetationProximity)
	case r.CustomerImpact == nil:
		return domain.Equipment{}, missing(colCustomerImpact)
	}

	installed, err := parseDate(r.InstallationDate)
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("%s: %w", colInstallationDate, err)
	}
	maintained, err := parseDate(r.LastMaintenanceDate)
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("%s: %w", colLastMaintenanceDate, err)
	}

	e := domain.Equipment{
		ID:                    r.ProductID,
		Name:                  r.ProductName,
		Location:              domain.Geo{Lat: *r.Latitude, Lon: *r.Longitude},
		InstalledAt:           installed,
		LastMaintainedAt:      maintained,
		AmbientTemperature:    r.Temperature,
		PrecipitationForecast: r.PrecipitationForecast,
		VegetationNearby:      *r.VegetationProximity,
		CustomersServed:       *r.CustomerImpact,
	}
	if err := checkReadings(e); err != nil {
		return domain.Equipment{}, err
	}
	return e, nil
}

func toRecord(e domain.Equipment) record {
	lat, lon := e.Location.Lat, e.Location.Lon
	veg, customers := e.VegetationNearby, e.CustomersServed
	return record{
		ProductID:             e.ID,
		ProductName:           e.Name,
		Latitude:              &lat,
		Longitude:             &lon,
		InstallationDate:      e.InstalledAt.UTC().Format(time.RFC3339),
		LastMaintenanceDate:   e.LastMaintainedAt.UTC().Format(time.RFC3339),
		Temperature:           e.AmbientTemperature,
		PrecipitationForecast: e.PrecipitationForecast,
		VegetationProximity:   &veg,
		CustomerImpact:        &customers,
	}
}

// WriteFile writes a dataset in the format chosen by the file extension.
func WriteFile(path string, equipment []domain.Equipment) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if err := WriteCSV(&buf, equipment); err != nil {
			return err
		}
	case ".json":
		recs := make([]record, len(equipment))
		for i := range equipment {
			recs[i] = toRecord(equipment[i])
		}
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(recs); err != nil {
			return fmt.Errorf("encode json dataset: %w", err)
		}
	case ".yaml", ".yml":
		recs := make([]record, len(equipment))
		for i := range equipment {
			recs[i] = toRecord(equipment[i])
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return fmt.Errorf("encode yaml dataset: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml dataset: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// WriteCSV writes equipment with the dataset header.
func WriteCSV(w io.Writer, equipment []domain.Equipment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(requiredColumns); err != nil {
		return err
	}
	for i := range equipment {
		e := &equipment[i]
		if err := cw.Write([]string{
			e.ID,
			e.Name,
			formatFloat(e.Location.Lat),
			formatFloat(e.Location.Lon),
			e.InstalledAt.UTC().Format(time.RFC3339),
			e.LastMaintainedAt.UTC().Format(time.RFC3339),
			formatOptional(e.AmbientTemperature),
			formatOptional(e.PrecipitationForecast),
			strconv.FormatBool(e.VegetationNearby),
			strconv.Itoa(e.CustomersServed),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func missing(col string) error {
	return fmt.Errorf("missing required field: %s", col)
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
