package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// imputation pipeline.
type Metrics struct {
	ObservationsFlattened prometheus.Counter
	FilesSkipped          prometheus.Counter
	SlicesProcessed       prometheus.Counter
	CellsImputed          prometheus.Counter
	CellsUnfilled         *prometheus.CounterVec // label: reason={insufficient-neighbors,zero-weight-sum}
	WorkerFailures        prometheus.Counter
	SliceDuration         prometheus.Histogram
	NeighborCache         *prometheus.CounterVec // label: result={hit,miss,stale}
	PipelineRunning       prometheus.Gauge
	WorkersConfigured     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsFlattened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_impute",
			Name:      "observations_flattened_total",
			Help:      "Total flat observations produced from raw files.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_impute",
			Name:      "files_skipped_total",
			Help:      "Raw observation files skipped as malformed.",
		}),
		SlicesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_impute",
			Name:      "slices_processed_total",
			Help:      "Time slices handed to imputation workers.",
		}),
		CellsImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_impute",
			Name:      "cells_imputed_total",
			Help:      "Missing cells filled by the IDW estimator.",
		}),
		CellsUnfilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_impute",
			Name:      "cells_unfilled_total",
			Help:      "Missing cells left unfilled, by reason.",
		}, []string{"reason"}),
		WorkerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_impute",
			Name:      "worker_failures_total",
			Help:      "Slices whose worker failed.",
		}),
		SliceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "station_impute",
			Name:      "slice_duration_seconds",
			Help:      "Duration of one slice's imputation pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		NeighborCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_impute",
			Name:      "neighbor_cache_total",
			Help:      "Neighbor cache lookups by result.",
		}, []string{"result"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_impute",
			Name:      "pipeline_running",
			Help:      "1 while the batch pipeline is active, 0 otherwise.",
		}),
		WorkersConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_impute",
			Name:      "workers_configured",
			Help:      "Parallel imputation workers in use for this run.",
		}),
	}

	prometheus.MustRegister(
		m.ObservationsFlattened,
		m.FilesSkipped,
		m.SlicesProcessed,
		m.CellsImputed,
		m.CellsUnfilled,
		m.WorkerFailures,
		m.SliceDuration,
		m.NeighborCache,
		m.PipelineRunning,
		m.WorkersConfigured,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsFlattened: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_impute", Name: "observations_flattened_total"}),
		FilesSkipped:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_impute", Name: "files_skipped_total"}),
		SlicesProcessed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_impute", Name: "slices_processed_total"}),
		CellsImputed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_impute", Name: "cells_imputed_total"}),
		CellsUnfilled:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "station_impute", Name: "cells_unfilled_total"}, []string{"reason"}),
		WorkerFailures:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_impute", Name: "worker_failures_total"}),
		SliceDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "station_impute", Name: "slice_duration_seconds"}),
		NeighborCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "station_impute", Name: "neighbor_cache_total"}, []string{"result"}),
		PipelineRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "station_impute", Name: "pipeline_running"}),
		WorkersConfigured:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "station_impute", Name: "workers_configured"}),
	}
}
