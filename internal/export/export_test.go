package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testSnapshot() *domain.Snapshot {
	good := domain.Equipment{
		ID:                    "EQ001",
		Name:                  domain.CategoryTransformer,
		Location:              domain.Geo{Lat: 37.8, Lon: -122.45},
		InstalledAt:           testNow.AddDate(0, 0, -3650),
		LastMaintainedAt:      testNow.AddDate(0, 0, -180),
		AmbientTemperature:    domain.Float(70),
		PrecipitationForecast: domain.Float(0),
		VegetationNearby:      true,
		CustomersServed:       500,
	}
	broken := good
	broken.ID = "EQ002"
	broken.InstalledAt = time.Time{}

	return &domain.Snapshot{
		ID:      "snap-1",
		TakenAt: testNow,
		Weather: &domain.WeatherContext{Temperature: 58, TemperatureUnit: "F", ShortForecast: "mostly sunny", WindSpeed: "5 mph", WindDirection: "N", Fallback: true},
		Assessments: []domain.Assessment{
			domain.Assess(good, testNow, nil),
			domain.Assess(broken, testNow, nil),
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatCSV},
		{"csv", FormatCSV},
		{"XLSX", FormatXLSX},
		{" pdf ", FormatPDF},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("docx")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestFormat_Metadata(t *testing.T) {
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
	assert.Equal(t, "equipment_risk_20250601T1200.xlsx", FormatXLSX.Filename(testNow))
}

func TestRows_CostPerAssessment(t *testing.T) {
	rows := Rows(testSnapshot())
	require.Len(t, rows, 2)

	assert.Empty(t, rows[0].CostErr)
	assert.InDelta(t, 1000, rows[0].Cost.PreventativeCost, 1e-9)
	assert.InDelta(t, 7500, rows[0].Cost.RepairCost, 1e-9)
	assert.InDelta(t, 20000, rows[0].OutageCost, 1e-9)

	assert.NotEmpty(t, rows[1].CostErr, "unresolvable installation date")
	assert.Zero(t, rows[1].Cost)

	assert.Nil(t, Rows(nil))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "6500.00", Money(6500))
	assert.Equal(t, "0.10", Money(0.1))
	assert.Equal(t, "1234.57", Money(1234.5678))
	assert.InDelta(t, 1234.57, roundMoney(1234.5678), 1e-9)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, testSnapshot()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])

	first := records[1]
	assert.Equal(t, "EQ001", first[0])
	assert.Equal(t, "10.00", first[6])
	assert.Equal(t, "0.449", first[10])
	assert.Equal(t, "Medium", first[11])
	assert.Equal(t, []string{"1000.00", "7500.00", "6500.00", "20000.00"}, first[12:])

	second := records[2]
	assert.Equal(t, "EQ002", second[0])
	assert.Equal(t, "High", second[11], "defaulted score 0.5 is High")
	assert.Contains(t, second[12], "invalid cost input")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, testSnapshot()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, equipmentSheet}, f.GetSheetList())

	id, err := f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "snap-1", id)

	weather, err := f.GetCellValue(summarySheet, "B5")
	require.NoError(t, err)
	assert.Contains(t, weather, "(fallback)")

	rows, err := f.GetRows(equipmentSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Equipment ID", rows[0][0])
	assert.Equal(t, "EQ001", rows[1][0])
	assert.Equal(t, "6500", rows[1][14])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, testSnapshot()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestWrite_EmptySnapshot(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatXLSX, FormatPDF} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, f, &domain.Snapshot{ID: "empty", TakenAt: testNow}), f)
		assert.NotZero(t, buf.Len())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Format("docx"), testSnapshot())
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
