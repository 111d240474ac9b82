package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grid_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard service.
type Metrics struct {
	RefreshCycles   *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration prometheus.Histogram
	RefreshRunning  prometheus.Gauge

	// Scoring metrics.
	EquipmentAssessed prometheus.Counter
	ScoreFallbacks    prometheus.Counter
	CostErrors        prometheus.Counter
	FleetSize         prometheus.Gauge
	RiskLevel         *prometheus.GaugeVec // labels: level={Low,Medium,High,Critical}

	// Weather metrics.
	WeatherFetches     *prometheus.CounterVec // labels: outcome={live,fallback}
	WeatherCache       *prometheus.CounterVec // labels: result={hit,miss}
	WeatherAPIDuration prometheus.Histogram
	WeatherEnabled     prometheus.Gauge

	// Publishing metrics.
	AssessmentsPublished prometheus.Counter
	PublishErrors        prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Assessment refresh cycles by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete load, weather, score cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RefreshRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		EquipmentAssessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "equipment_assessed_total",
			Help:      "Total equipment records scored.",
		}),
		ScoreFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_fallbacks_total",
			Help:      "Scores replaced by the default because inputs were missing or invalid.",
		}),
		CostErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_errors_total",
			Help:      "Cost estimates rejected for invalid input.",
		}),
		FleetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fleet_size",
			Help:      "Equipment records in the latest snapshot.",
		}),
		RiskLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "equipment_by_risk_level",
			Help:      "Equipment count per risk level in the latest snapshot.",
		}, []string{"level"}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetches_total",
			Help:      "Weather snapshots served by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "NWS API two-step lookup duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		WeatherEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weather_enabled",
			Help:      "1 when live forecasts are enabled, 0 when the static fallback is always served.",
		}),
		AssessmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_published_total",
			Help:      "Assessments written to the Kafka topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Snapshot publish failures.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RefreshCycles,
		m.RefreshDuration,
		m.RefreshRunning,
		m.EquipmentAssessed,
		m.ScoreFallbacks,
		m.CostErrors,
		m.FleetSize,
		m.RiskLevel,
		m.WeatherFetches,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.WeatherEnabled,
		m.AssessmentsPublished,
		m.PublishErrors,
	}
}
