// Package pipeline orchestrates the batch imputation run: load raw
// observations, normalize and flatten them, build or reuse the neighbor
// graph, impute gaps slice by slice in parallel, and write the cleaned and
// imputed tables.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/station-data-impute/internal/domain"
	"github.com/couchcryptid/station-data-impute/internal/observability"
)

// StationLister provides the set of valid station IDs for the run.
type StationLister interface {
	ListStations(ctx context.Context) ([]string, error)
}

// ObservationSource loads and flattens every raw observation file for the
// given stations.
type ObservationSource interface {
	LoadObservations(ctx context.Context, stations []string) ([]domain.FlatObservation, error)
}

// CatalogSource loads station metadata keyed by station ID.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (map[string]domain.StationMetadata, error)
}

// NeighborProvider returns the neighbor graph for the given stations,
// typically serving it from a persisted cache.
type NeighborProvider interface {
	Neighbors(ctx context.Context, stations map[string]domain.StationMetadata) (domain.NeighborMap, error)
}

// TableSink persists the cleaned (pre-imputation) and imputed tables.
type TableSink interface {
	WriteCleaned(ctx context.Context, obs []domain.FlatObservation) error
	WriteImputed(ctx context.Context, rows []domain.ResultRow) error
}

// UnfilledSink receives one entry per cell the estimator left missing.
type UnfilledSink interface {
	Record(e domain.LogEntry)
}

// ResultPublisher pushes imputed rows to a downstream consumer. Optional.
type ResultPublisher interface {
	Publish(ctx context.Context, rows []domain.ResultRow) error
}

// Options tunes a pipeline run.
type Options struct {
	Workers      int // <1 means the production default for this machine
	ImputeConfig domain.ImputeConfig
}

// Pipeline wires the run's sources and sinks together.
type Pipeline struct {
	stations  StationLister
	source    ObservationSource
	catalog   CatalogSource
	neighbors NeighborProvider
	tables    TableSink
	unfilled  UnfilledSink
	publisher ResultPublisher // nil disables publishing

	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	ready       atomic.Bool
	slicesDone  atomic.Int64
	slicesTotal atomic.Int64
}

// New assembles a pipeline. publisher may be nil.
func New(
	stations StationLister,
	source ObservationSource,
	catalog CatalogSource,
	neighbors NeighborProvider,
	tables TableSink,
	unfilled UnfilledSink,
	publisher ResultPublisher,
	opts Options,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		stations:  stations,
		source:    source,
		catalog:   catalog,
		neighbors: neighbors,
		tables:    tables,
		unfilled:  unfilled,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Ready reports whether the run's inputs have been loaded and validated.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// SliceProgress reports completed and total time slices for the current run.
func (p *Pipeline) SliceProgress() (processed, total int) {
	return int(p.slicesDone.Load()), int(p.slicesTotal.Load())
}

// Run executes the full batch. Slice-level worker failures do not abort the
// run; their errors are joined and returned after the tables are written.
func (p *Pipeline) Run(ctx context.Context) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	stations, err := p.stations.ListStations(ctx)
	if err != nil {
		return fmt.Errorf("list stations: %w", err)
	}
	p.logger.Info("loaded station list", "stations", len(stations))

	obs, err := p.source.LoadObservations(ctx, stations)
	if err != nil {
		return fmt.Errorf("load observations: %w", err)
	}
	p.logger.Info("flattened observations", "rows", len(obs))

	if err := p.tables.WriteCleaned(ctx, obs); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}

	catalog, err := p.catalog.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := domain.ValidateCoverage(stations, catalog); err != nil {
		return err
	}

	// Only valid stations participate in the neighbor graph.
	active := make(map[string]domain.StationMetadata, len(stations))
	for _, sid := range stations {
		active[sid] = catalog[sid]
	}

	neighbors, err := p.neighbors.Neighbors(ctx, active)
	if err != nil {
		return fmt.Errorf("neighbor graph: %w", err)
	}
	p.ready.Store(true)

	slices := domain.PartitionSlices(obs)
	p.slicesTotal.Store(int64(len(slices)))
	p.logger.Info("partitioned time slices", "slices", len(slices))

	controller := NewController(p.opts.Workers, p.opts.ImputeConfig, neighbors, p.logger, p.metrics)
	controller.TrackProgress(&p.slicesDone)
	p.metrics.WorkersConfigured.Set(float64(controller.Workers()))
	p.logger.Info("starting imputation", "workers", controller.Workers())

	outcomes, runErr := controller.Run(ctx, slices)

	filled := 0
	unfilled := 0
	for _, o := range outcomes {
		filled += o.Filled
		unfilled += len(o.Unfilled)
		for _, e := range o.Unfilled {
			p.unfilled.Record(e)
		}
	}
	p.logger.Info("imputation finished",
		"cells_filled", filled, "cells_unfilled", unfilled, "slices", len(outcomes))

	rows := domain.AssembleResults(slices, active)
	if err := p.tables.WriteImputed(ctx, rows); err != nil {
		return fmt.Errorf("write imputed table: %w", err)
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, rows); err != nil {
			return fmt.Errorf("publish imputed rows: %w", err)
		}
		p.logger.Info("published imputed rows", "rows", len(rows))
	}

	return runErr
}
