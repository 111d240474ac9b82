package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/deployment"
	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/export"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/shopspring/decimal"
)

const (
	defaultPriorityLimit = 5
	maxPriorityLimit     = 100
	maxBodyBytes         = 1 << 16
)

type errorResponse struct {
	Error string `json:"error"`
}

type equipmentListResponse struct {
	SnapshotID string                   `json:"snapshot_id"`
	TakenAt    time.Time                `json:"taken_at"`
	Weather    *domain.WeatherContext   `json:"weather,omitempty"`
	Counts     map[domain.RiskLevel]int `json:"counts"`
	Equipment  []domain.Assessment      `json:"equipment"`
}

type costResponse struct {
	PreventativeCost decimal.Decimal `json:"preventative_cost"`
	RepairCost       decimal.Decimal `json:"repair_cost"`
	Savings          decimal.Decimal `json:"savings"`
	OutageCost       decimal.Decimal `json:"outage_cost"`
}

type equipmentDetailResponse struct {
	SnapshotID          string            `json:"snapshot_id"`
	Equipment           domain.Assessment `json:"equipment"`
	Cost                costResponse      `json:"cost"`
	TechniciansDeployed int               `json:"technicians_deployed"`
}

type weatherResponse struct {
	Weather     domain.WeatherContext `json:"weather"`
	WeatherRisk float64               `json:"weather_risk"`
}

type priorityEntry struct {
	Rank int `json:"rank"`
	domain.Assessment
}

type deploymentsResponse struct {
	Total       int                     `json:"total"`
	Deployments []deployment.Deployment `json:"deployments"`
}

type createDeploymentRequest struct {
	EquipmentID string `json:"equipment_id"`
	Technicians int    `json:"technicians"`
	Note        string `json:"note"`
}

// writeJSON encodes v before any header is sent so an unencodable value
// becomes a 500 instead of an empty response with a success status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", "status", status, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "response could not be encoded"})
		return
	}
	sharedobs.WriteJSON(w, status, json.RawMessage(data))
}

// snapshot writes 503 and returns nil until the first refresh completes.
func (s *Server) snapshot(w http.ResponseWriter) *domain.Snapshot {
	snap := s.snapshots.Latest()
	if snap == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no assessment snapshot available yet"})
	}
	return snap
}

func (s *Server) handleListEquipment(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, equipmentListResponse{
		SnapshotID: snap.ID,
		TakenAt:    snap.TakenAt,
		Weather:    snap.Weather,
		Counts:     snap.CountByLevel(),
		Equipment:  snap.Assessments,
	})
}

func (s *Server) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	id := r.PathValue("id")
	a, ok := snap.Find(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("equipment %q not found", id)})
		return
	}

	cost, err := domain.EstimateEquipmentCost(a.Equipment, snap.TakenAt)
	var outage float64
	if err == nil {
		outage, err = domain.CustomerOutageCost(a.CustomersServed)
	}
	if err != nil {
		s.metrics.CostErrors.Inc()
		s.logger.Warn("cost estimate rejected", "equipment_id", id, "error", err)
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: fmt.Sprintf("cannot estimate cost for %s: %v", id, err),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, equipmentDetailResponse{
		SnapshotID: snap.ID,
		Equipment:  a,
		Cost: costResponse{
			PreventativeCost: money(cost.PreventativeCost),
			RepairCost:       money(cost.RepairCost),
			Savings:          money(cost.Savings),
			OutageCost:       money(outage),
		},
		TechniciansDeployed: s.ledger.ForEquipment(id),
	})
}

func (s *Server) handleWeather(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	if snap.Weather == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "weather is disabled"})
		return
	}
	s.writeJSON(w, http.StatusOK, weatherResponse{
		Weather:     *snap.Weather,
		WeatherRisk: domain.WeatherRisk(snap.Weather),
	})
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	limit := defaultPriorityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPriorityLimit {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("limit must be an integer between 1 and %d", maxPriorityLimit),
			})
			return
		}
		limit = n
	}

	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	ranked := domain.Prioritize(snap.Assessments, limit)
	out := make([]priorityEntry, len(ranked))
	for i, a := range ranked {
		out[i] = priorityEntry{Rank: i + 1, Assessment: a}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(snap.TakenAt)))
	if err := export.Write(w, format, snap); err != nil {
		// Headers are already sent; all that is left is to log.
		s.logger.Error("export failed", "format", format, "snapshot_id", snap.ID, "error", err)
	}
}

func (s *Server) handleListDeployments(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, deploymentsResponse{
		Total:       s.ledger.Total(),
		Deployments: s.ledger.List(),
	})
}

func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var req createDeploymentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	if _, ok := snap.Find(req.EquipmentID); !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("equipment %q not found", req.EquipmentID)})
		return
	}

	d, err := s.ledger.Record(req.EquipmentID, req.Technicians, req.Note)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, deployment.ErrInvalidTechnicians) {
			status = http.StatusUnprocessableEntity
		}
		s.writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("technicians deployed",
		"deployment_id", d.ID,
		"equipment_id", d.EquipmentID,
		"technicians", d.Technicians,
	)
	s.writeJSON(w, http.StatusCreated, d)
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
