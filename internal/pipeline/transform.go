package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/observability"
)

// RiskAssessor implements Assessor with domain.Assess. Records that cannot be
// scored keep the default score; each one is logged and counted.
type RiskAssessor struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAssessor creates a RiskAssessor.
func NewAssessor(metrics *observability.Metrics, logger *slog.Logger) *RiskAssessor {
	return &RiskAssessor{metrics: metrics, logger: logger}
}

func (a *RiskAssessor) Assess(_ context.Context, equipment []domain.Equipment, weather *domain.WeatherContext, now time.Time) []domain.Assessment {
	out := make([]domain.Assessment, 0, len(equipment))
	for _, e := range equipment {
		as := domain.Assess(e, now, weather)
		if as.ScoreDefaulted {
			a.logger.Debug("risk score defaulted",
				"equipment_id", e.ID,
				"error", as.ScoreErr,
			)
			a.metrics.ScoreFallbacks.Inc()
		}
		out = append(out, as)
	}
	a.metrics.EquipmentAssessed.Add(float64(len(out)))
	return out
}
