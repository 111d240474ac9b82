// Package nws fetches current forecast periods from the National Weather
// Service API and adapts them to domain.WeatherContext.
package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/observability"
)

// DefaultBaseURL is the public NWS API root.
const DefaultBaseURL = "https://api.weather.gov"

// Client implements domain.ForecastSource using the NWS points and forecast endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWS forecast client. NWS rejects requests without a
// User-Agent identifying the caller.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		metrics:   metrics,
		logger:    logger,
	}
}

// Forecast resolves the grid forecast URL for a coordinate and returns its
// first (current) period. It makes one attempt per step and never retries.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (domain.WeatherContext, error) {
	start := time.Now()
	defer func() {
		c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())
	}()

	var pts pointsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon), &pts); err != nil {
		return domain.WeatherContext{}, fmt.Errorf("points lookup: %w", err)
	}
	if pts.Properties.Forecast == "" {
		return domain.WeatherContext{}, errors.New("points lookup: response has no forecast url")
	}

	var fc forecastResponse
	if err := c.getJSON(ctx, pts.Properties.Forecast, &fc); err != nil {
		return domain.WeatherContext{}, fmt.Errorf("forecast lookup: %w", err)
	}
	if len(fc.Properties.Periods) == 0 {
		return domain.WeatherContext{}, errors.New("forecast lookup: response has no periods")
	}

	p := fc.Properties.Periods[0]
	if p.Temperature == nil {
		return domain.WeatherContext{}, errors.New("forecast lookup: period has no temperature")
	}

	c.logger.Debug("forecast fetched",
		"lat", lat,
		"lon", lon,
		"period", p.Name,
		"short_forecast", p.ShortForecast,
	)

	return domain.WeatherContext{
		Temperature:     *p.Temperature,
		TemperatureUnit: p.TemperatureUnit,
		ShortForecast:   p.ShortForecast,
		WindSpeed:       p.WindSpeed,
		WindDirection:   p.WindDirection,
		IsDaytime:       p.IsDaytime,
		Location:        domain.Geo{Lat: lat, Lon: lon},
		FetchedAt:       domain.Now(),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// NWS API response types. Only the fields the dashboard reads are declared.

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []period `json:"periods"`
	} `json:"properties"`
}

type period struct {
	Name            string   `json:"name"`
	Temperature     *float64 `json:"temperature"`
	TemperatureUnit string   `json:"temperatureUnit"`
	ShortForecast   string   `json:"shortForecast"`
	WindSpeed       string   `json:"windSpeed"`
	WindDirection   string   `json:"windDirection"`
	IsDaytime       bool     `json:"isDaytime"`
}
