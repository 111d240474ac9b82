package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/jung-kurt/gofpdf"
)

type pdfColumn struct {
	title string
	width float64
	align string
	value func(Row) string
}

var pdfColumns = []pdfColumn{
	{"ID", 18, "L", func(r Row) string { return r.ID }},
	{"Name", 32, "L", func(r Row) string { return r.Name }},
	{"Age (y)", 18, "R", func(r Row) string { return strconv.FormatFloat(r.AgeYears, 'f', 1, 64) }},
	{"Days since maint.", 30, "R", func(r Row) string { return strconv.FormatFloat(r.DaysSinceMaintenance, 'f', 0, 64) }},
	{"Customers", 22, "R", func(r Row) string { return strconv.Itoa(r.CustomersServed) }},
	{"Score", 16, "R", func(r Row) string { return strconv.FormatFloat(r.RiskScore, 'f', 3, 64) }},
	{"Level", 20, "C", func(r Row) string { return string(r.RiskLevel) }},
	{"Preventative", 30, "R", func(r Row) string { return costCell(r, r.Cost.PreventativeCost) }},
	{"Repair", 30, "R", func(r Row) string { return costCell(r, r.Cost.RepairCost) }},
	{"Savings", 30, "R", func(r Row) string { return costCell(r, r.Cost.Savings) }},
}

// WritePDF renders a landscape A4 report: a summary block and a table.
func WritePDF(w io.Writer, snap *domain.Snapshot, rows []Row) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Equipment Risk Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if snap != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Snapshot: %s", snap.ID))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Taken at: %s", snap.TakenAt.UTC().Format(time.RFC3339)))
		pdf.Ln(5)
		if snap.Weather != nil {
			pdf.Cell(0, 6, fmt.Sprintf("Weather: %s", weatherLine(snap.Weather)))
			pdf.Ln(5)
		}
	}
	counts := snap.CountByLevel()
	pdf.Cell(0, 6, fmt.Sprintf("Equipment: %d  (Low %d, Medium %d, High %d, Critical %d)",
		len(rows), counts[domain.RiskLow], counts[domain.RiskMedium], counts[domain.RiskHigh], counts[domain.RiskCritical]))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 6, c.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, r := range rows {
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, c.value(r), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func costCell(r Row, v float64) string {
	if r.CostErr != "" {
		return "n/a"
	}
	return Money(v)
}
