package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/couchcryptid/station-data-impute/internal/adapter/file"
	httpadapter "github.com/couchcryptid/station-data-impute/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/station-data-impute/internal/adapter/kafka"
	"github.com/couchcryptid/station-data-impute/internal/config"
	"github.com/couchcryptid/station-data-impute/internal/domain"
	"github.com/couchcryptid/station-data-impute/internal/imputelog"
	"github.com/couchcryptid/station-data-impute/internal/observability"
	"github.com/couchcryptid/station-data-impute/internal/pipeline"
)

// pipelineReadiness adapts the pipeline's ready flag to the HTTP server's
// readiness check.
type pipelineReadiness struct {
	p *pipeline.Pipeline
}

func (r pipelineReadiness) CheckReadiness(_ context.Context) error {
	if !r.p.Ready() {
		return errors.New("pipeline inputs not loaded yet")
	}
	return nil
}

func (r pipelineReadiness) SliceProgress() (processed, total int) {
	return r.p.SliceProgress()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sink, err := imputelog.Open(cfg.ImputeLogFile)
	if err != nil {
		logger.Error("failed to open impute log", "error", err)
		os.Exit(1)
	}

	stations := file.NewStationList(cfg.StationsFile)
	observations := file.NewObservationDir(cfg.HisDataDir, logger, metrics)
	catalog := file.NewCatalog(cfg.StationListFile)
	neighbors := file.NewNeighborCache(cfg.NeighborCacheFile, logger, metrics)
	tables := file.NewTableWriter(cfg.CleanedCSV, cfg.ImputedCSV)

	var publisher pipeline.ResultPublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(
		stations, observations, catalog, neighbors, tables, sink, publisher,
		pipeline.Options{
			Workers: pipeline.WorkerCount(runtime.NumCPU(), cfg.WorkerFraction),
			ImputeConfig: domain.ImputeConfig{
				MinNeighbors: cfg.MinNeighbors,
				Power:        cfg.IDWPower,
			},
		},
		logger, metrics,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional metrics/health server alongside the batch run.
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, pipelineReadiness{p: p}, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	var failed atomic.Bool
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
			failed.Store(true)
		}
		stop()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if err := sink.Close(); err != nil {
		logger.Error("impute log close error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if failed.Load() {
		os.Exit(1)
	}
}
