package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/cbc-history-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cbc-history-etl/internal/adapter/kafka"
	"github.com/couchcryptid/cbc-history-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/cbc-history-etl/internal/config"
	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/extract"
	"github.com/couchcryptid/cbc-history-etl/internal/observability"
	"github.com/couchcryptid/cbc-history-etl/internal/pipeline"
	"github.com/couchcryptid/cbc-history-etl/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	reports, err := store.Open(cfg)
	if err != nil {
		logger.Error("failed to open report store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	logger.Info("report store ready", "driver", cfg.StoreDriver)

	extractor := extract.New(extract.Options{
		MaxRows:       cfg.ExtractMaxRows,
		MaxColumns:    cfg.ExtractMaxColumns,
		MaxInputBytes: cfg.ExtractMaxInputBytes,
		StopSpecies:   cfg.ExtractStopSpecies,
	})

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(extractor, geocoder, reports, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger,
		httpadapter.WithExtractor(transformer, int64(cfg.ExtractMaxInputBytes)),
		httpadapter.WithReports(reports),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if reports != nil {
		if err := reports.Close(); err != nil {
			logger.Error("report store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
