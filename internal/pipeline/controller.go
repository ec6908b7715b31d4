package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/station-data-impute/internal/domain"
	"github.com/couchcryptid/station-data-impute/internal/observability"
)

// WorkerCount returns how many parallel imputation workers to run on a
// machine with the given number of CPUs: fraction of the CPUs, rounded down,
// never below one.
func WorkerCount(numCPU int, fraction float64) int {
	n := int(float64(numCPU) * fraction)
	if n < 1 {
		return 1
	}
	return n
}

// SliceOutcome is the per-slice result of a controller run, keyed back to the
// slice's position in the input so callers can reassemble in order.
type SliceOutcome struct {
	Index    int
	Filled   int
	Unfilled []domain.LogEntry
}

// Controller fans time slices out to a bounded pool of workers. Each slice is
// imputed in place by exactly one worker; a panic in one slice is recovered
// and reported without stopping the rest of the run.
type Controller struct {
	workers   int
	imputeCfg domain.ImputeConfig
	neighbors domain.NeighborMap
	logger    *slog.Logger
	metrics   *observability.Metrics
	progress  *atomic.Int64
}

// NewController builds a controller. If workers is not positive it defaults
// to the production worker count for this machine.
func NewController(workers int, cfg domain.ImputeConfig, neighbors domain.NeighborMap, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	if workers < 1 {
		workers = WorkerCount(runtime.NumCPU(), 0.8)
	}
	return &Controller{
		workers:   workers,
		imputeCfg: cfg,
		neighbors: neighbors,
		logger:    logger,
		metrics:   metrics,
	}
}

// Workers reports the pool size the controller will use.
func (c *Controller) Workers() int { return c.workers }

// TrackProgress registers a counter incremented once per completed slice, so
// callers can observe a run in flight.
func (c *Controller) TrackProgress(counter *atomic.Int64) { c.progress = counter }

// Run imputes every slice, mutating them in place, and returns one outcome
// per successfully processed slice ordered by input index. Failed slices are
// dropped from the outcomes and their errors joined into the returned error;
// ctx cancellation stops feeding new slices to the pool.
func (c *Controller) Run(ctx context.Context, slices []*domain.TimeSlice) ([]SliceOutcome, error) {
	type job struct {
		index int
		slice *domain.TimeSlice
	}

	jobs := make(chan job)
	outcomes := make([]SliceOutcome, 0, len(slices))
	var failures []error
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func(worker string) {
			defer wg.Done()
			for j := range jobs {
				outcome, err := c.processSlice(j.slice, worker, j.index)
				mu.Lock()
				if err != nil {
					failures = append(failures, err)
				} else {
					outcomes = append(outcomes, outcome)
				}
				mu.Unlock()
			}
		}(fmt.Sprintf("worker-%d", w))
	}

feed:
	for i, s := range slices {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			failures = append(failures, fmt.Errorf("imputation canceled after %d slices: %w", i, err))
			mu.Unlock()
			break feed
		}
		select {
		case <-ctx.Done():
			mu.Lock()
			failures = append(failures, fmt.Errorf("imputation canceled after %d slices: %w", i, ctx.Err()))
			mu.Unlock()
			break feed
		case jobs <- job{index: i, slice: s}:
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(outcomes, func(a, b int) bool { return outcomes[a].Index < outcomes[b].Index })
	return outcomes, errors.Join(failures...)
}

func (c *Controller) processSlice(s *domain.TimeSlice, worker string, index int) (outcome SliceOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.WorkerFailures.Inc()
			c.logger.Error("slice imputation panicked",
				"worker", worker, "data_time", s.DataTime, "panic", r)
			err = fmt.Errorf("slice %q (index %d): panic: %v", s.DataTime, index, r)
		}
	}()

	timer := c.metrics.SliceDuration
	start := domain.Clock().Now()

	filled, unfilled := domain.ImputeSlice(s, c.neighbors, c.imputeCfg, worker)

	timer.Observe(domain.Clock().Since(start).Seconds())
	c.metrics.SlicesProcessed.Inc()
	if c.progress != nil {
		c.progress.Add(1)
	}
	c.metrics.CellsImputed.Add(float64(filled))
	for _, e := range unfilled {
		c.metrics.CellsUnfilled.WithLabelValues(e.Reason).Inc()
	}

	return SliceOutcome{Index: index, Filled: filled, Unfilled: unfilled}, nil
}
