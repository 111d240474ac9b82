package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/grid-risk-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/grid-risk-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/grid-risk-dashboard/internal/adapter/nws"
	"github.com/couchcryptid/grid-risk-dashboard/internal/config"
	"github.com/couchcryptid/grid-risk-dashboard/internal/deployment"
	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/observability"
	"github.com/couchcryptid/grid-risk-dashboard/internal/pipeline"
	"github.com/couchcryptid/grid-risk-dashboard/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := openSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open equipment source", "source", cfg.EquipmentSource, "error", err)
		os.Exit(1)
	}
	defer closeSource()

	// Weather is feature-flagged via WEATHER_ENABLED. With it off the
	// per-record readings feed the score.
	var weather domain.WeatherProvider
	if cfg.WeatherEnabled {
		client := nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.NWSTimeout, metrics, logger)
		cached := nws.NewCachedSource(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clockwork.NewRealClock(), metrics)
		weather = nws.NewFallbackProvider(cached, metrics, logger)
		metrics.WeatherEnabled.Set(1)
		logger.Info("nws weather enabled", "base_url", cfg.NWSBaseURL, "cache_size", cfg.WeatherCacheSize, "cache_ttl", cfg.WeatherCacheTTL)
	} else {
		logger.Info("nws weather disabled")
	}

	var (
		loader pipeline.SnapshotLoader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	assessor := pipeline.NewAssessor(metrics, logger)
	p := pipeline.New(source, weather, assessor, loader, logger, metrics, pipeline.WithInterval(cfg.RefreshInterval))

	ledger := deployment.NewLedger(nil)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, ledger, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("refresh loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openSource builds the configured equipment source. The returned func
// releases whatever the source holds open.
func openSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.EquipmentSource, func(), error) {
	noop := func() {}
	switch cfg.EquipmentSource {
	case config.SourceFile:
		logger.Info("equipment source: file", "path", cfg.EquipmentFile)
		return store.NewFileSource(cfg.EquipmentFile), noop, nil

	case config.SourcePostgres:
		db, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		repo := store.NewPostgres(db, store.WithEquipmentTable(cfg.EquipmentTable))
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		logger.Info("equipment source: postgres", "table", cfg.EquipmentTable)
		return repo, func() { _ = db.Close() }, nil

	case config.SourceSynthetic:
		opts := store.DefaultGeneratorOptions()
		opts.Count = cfg.SyntheticCount
		opts.Seed = cfg.SyntheticSeed
		mem, err := store.NewMemory(store.Generate(opts, domain.Now()))
		if err != nil {
			return nil, noop, err
		}
		logger.Info("equipment source: synthetic", "count", mem.Len(), "seed", cfg.SyntheticSeed)
		return mem, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown equipment source %q", cfg.EquipmentSource)
	}
}
