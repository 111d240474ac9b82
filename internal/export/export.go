// Package export renders an assessment snapshot as a CSV, XLSX or PDF report.
package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// Format is a report file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ErrUnknownFormat is returned by ParseFormat for anything but csv, xlsx and pdf.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a case-insensitive format name; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Filename is the suggested download name for a snapshot taken at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("equipment_risk_%s.%s", t.UTC().Format("20060102T1504"), f)
}

// Row is one report line: an assessment plus its cost estimate. CostErr is
// set instead of the cost columns when the estimate was rejected.
type Row struct {
	domain.Assessment
	Cost       domain.CostBreakdown
	OutageCost float64
	CostErr    string
}

var header = []string{
	"Equipment ID", "Name", "Latitude", "Longitude",
	"Installed", "Last Maintained", "Age (years)", "Days Since Maintenance",
	"Vegetation Nearby", "Customers Served", "Risk Score", "Risk Level",
	"Preventative Cost", "Repair Cost", "Savings", "Outage Cost",
}

// Rows builds report lines for every assessment, estimating cost at the
// snapshot time.
func Rows(snap *domain.Snapshot) []Row {
	if snap == nil {
		return nil
	}
	rows := make([]Row, 0, len(snap.Assessments))
	for _, a := range snap.Assessments {
		r := Row{Assessment: a}
		cost, err := domain.EstimateEquipmentCost(a.Equipment, snap.TakenAt)
		if err == nil {
			r.Cost = cost
			r.OutageCost, err = domain.CustomerOutageCost(a.CustomersServed)
		}
		if err != nil {
			r.CostErr = err.Error()
		}
		rows = append(rows, r)
	}
	return rows
}

// Write renders the snapshot in the requested format.
func Write(w io.Writer, f Format, snap *domain.Snapshot) error {
	rows := Rows(snap)
	switch f {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, snap, rows)
	case FormatPDF:
		return WritePDF(w, snap, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// record flattens a row to display strings in header order.
func (r Row) record() []string {
	out := []string{
		r.ID,
		r.Name,
		strconv.FormatFloat(r.Location.Lat, 'f', 6, 64),
		strconv.FormatFloat(r.Location.Lon, 'f', 6, 64),
		formatDate(r.InstalledAt),
		formatDate(r.LastMaintainedAt),
		strconv.FormatFloat(r.AgeYears, 'f', 2, 64),
		strconv.FormatFloat(r.DaysSinceMaintenance, 'f', 0, 64),
		strconv.FormatBool(r.VegetationNearby),
		strconv.Itoa(r.CustomersServed),
		strconv.FormatFloat(r.RiskScore, 'f', 3, 64),
		string(r.RiskLevel),
	}
	if r.CostErr != "" {
		return append(out, r.CostErr, "", "", "")
	}
	return append(out,
		Money(r.Cost.PreventativeCost),
		Money(r.Cost.RepairCost),
		Money(r.Cost.Savings),
		Money(r.OutageCost),
	)
}

// Money formats a dollar amount with exactly two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// roundMoney rounds to cents for numeric spreadsheet cells.
func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
