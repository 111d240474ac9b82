package nws

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/observability"
)

// FallbackProvider implements domain.WeatherProvider. Any failure of the
// underlying source is logged and replaced by domain.FallbackWeather.
type FallbackProvider struct {
	source  domain.ForecastSource
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewFallbackProvider wraps source. A nil source always serves the fallback,
// which is how live forecasts are disabled.
func NewFallbackProvider(source domain.ForecastSource, metrics *observability.Metrics, logger *slog.Logger) *FallbackProvider {
	return &FallbackProvider{source: source, metrics: metrics, logger: logger}
}

// Fetch never fails.
func (p *FallbackProvider) Fetch(ctx context.Context, lat, lon float64) domain.WeatherContext {
	if p.source == nil {
		return p.fallback(lat, lon)
	}

	w, err := p.source.Forecast(ctx, lat, lon)
	if err != nil {
		p.logger.Warn("weather fetch failed, serving fallback",
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		return p.fallback(lat, lon)
	}

	p.metrics.WeatherFetches.WithLabelValues("live").Inc()
	return w
}

func (p *FallbackProvider) fallback(lat, lon float64) domain.WeatherContext {
	p.metrics.WeatherFetches.WithLabelValues("fallback").Inc()
	w := domain.FallbackWeather()
	w.Location = domain.Geo{Lat: lat, Lon: lon}
	w.FetchedAt = domain.Now()
	return w
}
