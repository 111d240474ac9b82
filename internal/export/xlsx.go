package export

import (
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "summary"
	equipmentSheet = "equipment"
)

// WriteXLSX renders a workbook with a summary sheet and an equipment sheet.
func WriteXLSX(w io.Writer, snap *domain.Snapshot, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(equipmentSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	_ = f.SetCellValue(summarySheet, "A1", "Equipment Risk Report")
	if snap != nil {
		_ = f.SetCellValue(summarySheet, "A3", "Snapshot")
		_ = f.SetCellValue(summarySheet, "B3", snap.ID)
		_ = f.SetCellValue(summarySheet, "A4", "Taken At")
		_ = f.SetCellValue(summarySheet, "B4", snap.TakenAt.UTC().Format(time.RFC3339))
		if snap.Weather != nil {
			_ = f.SetCellValue(summarySheet, "A5", "Weather")
			_ = f.SetCellValue(summarySheet, "B5", weatherLine(snap.Weather))
		}
	}
	_ = f.SetCellValue(summarySheet, "A6", "Equipment")
	_ = f.SetCellValue(summarySheet, "B6", len(rows))
	counts := snap.CountByLevel()
	for i, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical} {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", 7+i), string(level))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", 7+i), counts[level])
	}

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		_ = f.SetCellValue(equipmentSheet, cell, h)
	}
	for i, r := range rows {
		if err := f.SetSheetRow(equipmentSheet, fmt.Sprintf("A%d", i+2), xlsxRow(r)); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// xlsxRow keeps numbers numeric so the sheet can be sorted and summed.
func xlsxRow(r Row) *[]any {
	row := []any{
		r.ID,
		r.Name,
		r.Location.Lat,
		r.Location.Lon,
		formatDate(r.InstalledAt),
		formatDate(r.LastMaintainedAt),
		r.AgeYears,
		r.DaysSinceMaintenance,
		r.VegetationNearby,
		r.CustomersServed,
		r.RiskScore,
		string(r.RiskLevel),
	}
	if r.CostErr != "" {
		row = append(row, r.CostErr)
	} else {
		row = append(row,
			roundMoney(r.Cost.PreventativeCost),
			roundMoney(r.Cost.RepairCost),
			roundMoney(r.Cost.Savings),
			roundMoney(r.OutageCost),
		)
	}
	return &row
}

func weatherLine(w *domain.WeatherContext) string {
	s := fmt.Sprintf("%.0f%s, %s, wind %s %s", w.Temperature, w.TemperatureUnit, w.ShortForecast, w.WindSpeed, w.WindDirection)
	if w.Fallback {
		s += " (fallback)"
	}
	return s
}
