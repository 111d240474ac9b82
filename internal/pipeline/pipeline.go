package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the refresh cadence when none is configured.
const DefaultInterval = 30 * time.Minute

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// EquipmentSource lists the equipment collection to assess.
type EquipmentSource interface {
	List(ctx context.Context) ([]domain.Equipment, error)
}

// Assessor scores a fleet against one weather snapshot.
type Assessor interface {
	Assess(ctx context.Context, equipment []domain.Equipment, weather *domain.WeatherContext, now time.Time) []domain.Assessment
}

// SnapshotLoader publishes a completed snapshot downstream.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// Pipeline periodically loads equipment, fetches weather for the fleet
// centre, scores every record and swaps in the new snapshot.
type Pipeline struct {
	source   EquipmentSource
	weather  domain.WeatherProvider
	assessor Assessor
	loader   SnapshotLoader
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	interval time.Duration

	latest atomic.Pointer[domain.Snapshot]
	ready  atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithInterval sets the refresh cadence.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New creates a Pipeline. weather and loader may be nil: without weather the
// per-record readings are scored, without a loader nothing is published.
func New(source EquipmentSource, weather domain.WeatherProvider, assessor Assessor, loader SnapshotLoader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		weather:  weather,
		assessor: assessor,
		loader:   loader,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once the first snapshot has been built.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no assessment snapshot built yet")
	}
	return nil
}

// Latest returns the most recent snapshot, or nil before the first refresh.
// Callers must treat it as read-only.
func (p *Pipeline) Latest() *domain.Snapshot {
	return p.latest.Load()
}

// Run refreshes immediately and then on every interval until the context is
// cancelled. Failed refreshes are retried with exponential backoff and the
// previous snapshot keeps being served.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("refresh loop started", "interval", p.interval)
	p.metrics.RefreshRunning.Set(1)
	defer p.metrics.RefreshRunning.Set(0)

	backoff := initialBackoff
	for {
		if err := p.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("refresh loop stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("refresh failed", "error", err, "retry_in", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				p.logger.Info("refresh loop stopping", "reason", ctx.Err())
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
			p.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		case <-p.clock.After(p.interval):
		}
	}
}

// Refresh builds and publishes one snapshot.
func (p *Pipeline) Refresh(ctx context.Context) error {
	start := p.clock.Now()
	now := start.UTC()

	equipment, err := p.source.List(ctx)
	if err != nil {
		p.metrics.RefreshCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("list equipment: %w", err)
	}

	var weather *domain.WeatherContext
	if p.weather != nil {
		if center, ok := domain.FleetCenter(equipment); ok {
			w := p.weather.Fetch(ctx, center.Lat, center.Lon)
			weather = &w
		}
	}

	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		TakenAt:     now,
		Weather:     weather,
		Assessments: p.assessor.Assess(ctx, equipment, weather, now),
	}
	p.latest.Store(snap)
	p.ready.Store(true)
	p.record(snap)

	if p.loader != nil {
		if err := p.loader.LoadSnapshot(ctx, snap); err != nil {
			p.logger.Error("publish snapshot failed", "error", err, "snapshot_id", snap.ID)
			p.metrics.PublishErrors.Inc()
		} else {
			p.metrics.AssessmentsPublished.Add(float64(len(snap.Assessments)))
		}
	}

	p.metrics.RefreshCycles.WithLabelValues("success").Inc()
	p.metrics.RefreshDuration.Observe(p.clock.Since(start).Seconds())
	p.logger.Info("snapshot refreshed",
		"snapshot_id", snap.ID,
		"equipment", len(snap.Assessments),
		"weather_fallback", weather != nil && weather.Fallback,
	)
	return nil
}

func (p *Pipeline) record(snap *domain.Snapshot) {
	p.metrics.FleetSize.Set(float64(len(snap.Assessments)))
	for level, n := range snap.CountByLevel() {
		p.metrics.RiskLevel.WithLabelValues(string(level)).Set(float64(n))
	}
}
