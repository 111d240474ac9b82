package http_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/grid-risk-dashboard/internal/adapter/http"
	"github.com/couchcryptid/grid-risk-dashboard/internal/deployment"
	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type mockSnapshots struct {
	snap *domain.Snapshot
	err  error
}

func (m *mockSnapshots) CheckReadiness(_ context.Context) error { return m.err }
func (m *mockSnapshots) Latest() *domain.Snapshot               { return m.snap }

func testEquipment(id string, customers int, vegetation bool) domain.Equipment {
	return domain.Equipment{
		ID:                    id,
		Name:                  domain.CategoryTransformer,
		Location:              domain.Geo{Lat: 37.8, Lon: -122.45},
		InstalledAt:           testNow.AddDate(0, 0, -3650),
		LastMaintainedAt:      testNow.AddDate(0, 0, -180),
		AmbientTemperature:    domain.Float(70),
		PrecipitationForecast: domain.Float(0),
		VegetationNearby:      vegetation,
		CustomersServed:       customers,
	}
}

func testSnapshot() *domain.Snapshot {
	broken := testEquipment("EQ003", 50, false)
	broken.InstalledAt = time.Time{}
	weather := domain.FallbackWeather()
	return &domain.Snapshot{
		ID:      "snap-1",
		TakenAt: testNow,
		Weather: &weather,
		Assessments: []domain.Assessment{
			domain.Assess(testEquipment("EQ001", 500, true), testNow, nil),
			domain.Assess(testEquipment("EQ002", 100, false), testNow, nil),
			domain.Assess(broken, testNow, nil),
		},
	}
}

type fixture struct {
	srv    *httpadapter.Server
	ledger *deployment.Ledger
}

func newFixture(snap *domain.Snapshot, readyErr error) fixture {
	ledger := deployment.NewLedger(clockwork.NewFakeClockAt(testNow))
	return fixture{
		srv:    httpadapter.NewServer(":0", &mockSnapshots{snap: snap, err: readyErr}, ledger, observability.NewMetricsForTesting(), slog.Default()),
		ledger: ledger,
	}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(nil, nil).do(t, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := newFixture(nil, errors.New("no snapshot yet")).do(t, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no snapshot yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(nil, nil).do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_NoSnapshotReturns503(t *testing.T) {
	f := newFixture(nil, nil)
	for _, target := range []string{
		"/api/v1/equipment",
		"/api/v1/equipment/EQ001",
		"/api/v1/weather",
		"/api/v1/priorities",
		"/api/v1/export",
	} {
		rec := f.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestListEquipment(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/api/v1/equipment", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		SnapshotID string                 `json:"snapshot_id"`
		Weather    *domain.WeatherContext `json:"weather"`
		Counts     map[string]int         `json:"counts"`
		Equipment  []map[string]any       `json:"equipment"`
	}
	decode(t, rec, &body)

	assert.Equal(t, "snap-1", body.SnapshotID)
	require.NotNil(t, body.Weather)
	assert.True(t, body.Weather.Fallback)
	require.Len(t, body.Equipment, 3)
	assert.Equal(t, "EQ001", body.Equipment[0]["id"])
	assert.Equal(t, true, body.Equipment[2]["score_defaulted"])
	assert.Equal(t, 3, body.Counts["Low"]+body.Counts["Medium"]+body.Counts["High"]+body.Counts["Critical"])
}

func TestGetEquipment(t *testing.T) {
	f := newFixture(testSnapshot(), nil)
	_, err := f.ledger.Record("EQ001", 3, "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/v1/equipment/EQ001", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Equipment struct {
			ID        string  `json:"id"`
			RiskScore float64 `json:"risk_score"`
			RiskLevel string  `json:"risk_level"`
		} `json:"equipment"`
		Cost struct {
			PreventativeCost string `json:"preventative_cost"`
			RepairCost       string `json:"repair_cost"`
			Savings          string `json:"savings"`
			OutageCost       string `json:"outage_cost"`
		} `json:"cost"`
		TechniciansDeployed int `json:"technicians_deployed"`
	}
	decode(t, rec, &body)

	assert.Equal(t, "EQ001", body.Equipment.ID)
	assert.Equal(t, "Medium", body.Equipment.RiskLevel)
	assert.Equal(t, "1000", body.Cost.PreventativeCost)
	assert.Equal(t, "7500", body.Cost.RepairCost)
	assert.Equal(t, "6500", body.Cost.Savings)
	assert.Equal(t, "20000", body.Cost.OutageCost)
	assert.Equal(t, 3, body.TechniciansDeployed)
}

func TestGetEquipment_NotFound(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/api/v1/equipment/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Contains(t, body["error"], "NOPE")
}

func TestGetEquipment_CostRejected(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/api/v1/equipment/EQ003", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Contains(t, body["error"], "EQ003")
}

func TestListEquipment_UnencodableSnapshot(t *testing.T) {
	snap := testSnapshot()
	snap.Assessments[1].AmbientTemperature = domain.Float(math.NaN())

	rec := newFixture(snap, nil).do(t, http.MethodGet, "/api/v1/equipment", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	decode(t, rec, &body)
	assert.NotEmpty(t, body["error"])

	rec = newFixture(snap, nil).do(t, http.MethodGet, "/api/v1/equipment/EQ001", "")
	assert.Equal(t, http.StatusOK, rec.Code, "unaffected equipment is still served")
}

func TestWeather(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/api/v1/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Weather     domain.WeatherContext `json:"weather"`
		WeatherRisk float64               `json:"weather_risk"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "mostly sunny", body.Weather.ShortForecast)
	assert.InDelta(t, domain.WeatherRisk(&body.Weather), body.WeatherRisk, 1e-9)
}

func TestWeather_Disabled(t *testing.T) {
	snap := testSnapshot()
	snap.Weather = nil
	rec := newFixture(snap, nil).do(t, http.MethodGet, "/api/v1/weather", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPriorities(t *testing.T) {
	f := newFixture(testSnapshot(), nil)

	rec := f.do(t, http.MethodGet, "/api/v1/priorities?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []struct {
		Rank      int     `json:"rank"`
		ID        string  `json:"id"`
		RiskScore float64 `json:"risk_score"`
	}
	decode(t, rec, &body)
	require.Len(t, body, 2)
	assert.Equal(t, 1, body[0].Rank)
	assert.Equal(t, 2, body[1].Rank)
	assert.GreaterOrEqual(t, body[0].RiskScore, body[1].RiskScore)

	rec = f.do(t, http.MethodGet, "/api/v1/priorities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Len(t, body, 3, "default limit covers the whole test fleet")
}

func TestPriorities_InvalidLimit(t *testing.T) {
	f := newFixture(testSnapshot(), nil)
	for _, limit := range []string{"0", "-1", "abc", "1000"} {
		rec := f.do(t, http.MethodGet, "/api/v1/priorities?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestExport_CSV(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="equipment_risk_20250601T1200.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestExport_PDF(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/api/v1/export?format=pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestExport_UnknownFormat(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodGet, "/api/v1/export?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDeployment(t *testing.T) {
	f := newFixture(testSnapshot(), nil)

	rec := f.do(t, http.MethodPost, "/api/v1/deployments", `{"equipment_id":"EQ001","technicians":2,"note":"storm prep"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created deployment.Deployment
	decode(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "EQ001", created.EquipmentID)
	assert.Equal(t, 2, created.Technicians)
	assert.Equal(t, testNow, created.CreatedAt)

	rec = f.do(t, http.MethodGet, "/api/v1/deployments", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Total       int                     `json:"total"`
		Deployments []deployment.Deployment `json:"deployments"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Deployments, 1)
	assert.Equal(t, "storm prep", list.Deployments[0].Note)
}

func TestCreateDeployment_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"equipment_id":`, http.StatusBadRequest},
		{"unknown field", `{"equipment_id":"EQ001","technicians":1,"crew":"a"}`, http.StatusBadRequest},
		{"missing equipment id", `{"technicians":1}`, http.StatusNotFound},
		{"unknown equipment", `{"equipment_id":"NOPE","technicians":1}`, http.StatusNotFound},
		{"zero technicians", `{"equipment_id":"EQ001","technicians":0}`, http.StatusUnprocessableEntity},
		{"too many technicians", `{"equipment_id":"EQ001","technicians":6}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(testSnapshot(), nil)
			rec := f.do(t, http.MethodPost, "/api/v1/deployments", tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Zero(t, f.ledger.Total())
		})
	}
}

func TestListDeployments_Empty(t *testing.T) {
	rec := newFixture(nil, nil).do(t, http.MethodGet, "/api/v1/deployments", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, float64(0), body["total"])
}

func TestUnknownMethodRejected(t *testing.T) {
	rec := newFixture(testSnapshot(), nil).do(t, http.MethodDelete, "/api/v1/deployments", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
