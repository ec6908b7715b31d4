package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-data-impute/internal/domain"
	"github.com/couchcryptid/station-data-impute/internal/observability"
)

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		numCPU   int
		fraction float64
		want     int
	}{
		{8, 0.8, 6},
		{10, 0.8, 8},
		{4, 0.5, 2},
		{1, 0.8, 1},
		{0, 0.8, 1},
		{3, 0.8, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dcpu_%.1f", tt.numCPU, tt.fraction), func(t *testing.T) {
			assert.Equal(t, tt.want, WorkerCount(tt.numCPU, tt.fraction))
		})
	}
}

// controllerObs builds a flat observation with every feature set to v.
func controllerObs(station, dataTime string, v float64) domain.FlatObservation {
	values := make([]float64, domain.FeatureCount())
	for i := range values {
		values[i] = v
	}
	return domain.FlatObservation{StationID: station, DataTime: dataTime, Values: values}
}

// gappedObs is controllerObs with the first feature missing.
func gappedObs(station, dataTime string, v float64) domain.FlatObservation {
	o := controllerObs(station, dataTime, v)
	o.Values[0] = domain.Missing()
	return o
}

func testNeighbors() domain.NeighborMap {
	return domain.NeighborMap{
		"A": {{StationID: "B", DistanceKm: 10}, {StationID: "C", DistanceKm: 20}, {StationID: "D", DistanceKm: 30}},
		"B": {{StationID: "A", DistanceKm: 10}, {StationID: "C", DistanceKm: 15}, {StationID: "D", DistanceKm: 25}},
		"C": {{StationID: "B", DistanceKm: 15}, {StationID: "A", DistanceKm: 20}, {StationID: "D", DistanceKm: 12}},
		"D": {{StationID: "C", DistanceKm: 12}, {StationID: "B", DistanceKm: 25}, {StationID: "A", DistanceKm: 30}},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(workers int) *Controller {
	return NewController(
		workers,
		domain.DefaultImputeConfig(),
		testNeighbors(),
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
}

func TestControllerRun_FillsGapsAcrossSlices(t *testing.T) {
	var obs []domain.FlatObservation
	times := []string{
		"2024-03-01T10:00:00+08:00",
		"2024-03-01T11:00:00+08:00",
		"2024-03-01T12:00:00+08:00",
	}
	for _, dt := range times {
		obs = append(obs,
			gappedObs("A", dt, 4.0),
			controllerObs("B", dt, 5.0),
			controllerObs("C", dt, 6.0),
			controllerObs("D", dt, 7.0),
		)
	}
	slices := domain.PartitionSlices(obs)

	c := newTestController(2)
	outcomes, err := c.Run(context.Background(), slices)
	require.NoError(t, err)
	require.Len(t, outcomes, len(times))

	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, 1, o.Filled)
		assert.Empty(t, o.Unfilled)
	}

	// Every slice's gap was filled in place with a value inside the
	// neighbor range.
	for _, s := range slices {
		row, ok := s.Row("A")
		require.True(t, ok)
		require.False(t, domain.IsMissing(row[0]))
		assert.Greater(t, row[0], 5.0)
		assert.Less(t, row[0], 7.0)
	}
}

func TestControllerRun_RecordsUnfilledCells(t *testing.T) {
	dt := "2024-03-01T10:00:00+08:00"
	slices := domain.PartitionSlices([]domain.FlatObservation{
		gappedObs("A", dt, 0),
		controllerObs("B", dt, 5.0),
	})

	c := newTestController(1)
	outcomes, err := c.Run(context.Background(), slices)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.Equal(t, 0, outcomes[0].Filled)
	require.Len(t, outcomes[0].Unfilled, 1)
	e := outcomes[0].Unfilled[0]
	assert.Equal(t, "A", e.StationID)
	assert.Equal(t, dt, e.DataTime)
	assert.Equal(t, domain.ReasonInsufficientNeighbors, e.Reason)
	assert.NotEmpty(t, e.Worker)
}

func TestControllerRun_RecoversFromSlicePanic(t *testing.T) {
	dt := "2024-03-01T10:00:00+08:00"
	good := domain.PartitionSlices([]domain.FlatObservation{
		controllerObs("A", dt, 1.0),
	})
	// A row narrower than the feature schema makes the estimator panic.
	bad := &domain.TimeSlice{
		DataTime: "2024-03-01T11:00:00+08:00",
		Stations: []string{"A"},
		Values:   [][]float64{{math.NaN()}},
	}

	c := newTestController(1)
	outcomes, err := c.Run(context.Background(), []*domain.TimeSlice{good[0], bad})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	require.Len(t, outcomes, 1)
	assert.Equal(t, 0, outcomes[0].Index)
}

func TestControllerRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var obs []domain.FlatObservation
	for i := 0; i < 20; i++ {
		obs = append(obs, controllerObs("A", fmt.Sprintf("2024-03-01T%02d:00:00+08:00", i), 1.0))
	}
	slices := domain.PartitionSlices(obs)

	c := newTestController(2)
	outcomes, err := c.Run(ctx, slices)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
}

func TestControllerRun_TracksProgress(t *testing.T) {
	var obs []domain.FlatObservation
	for i := 0; i < 5; i++ {
		obs = append(obs, controllerObs("A", fmt.Sprintf("2024-03-01T%02d:00:00+08:00", i), 1.0))
	}
	slices := domain.PartitionSlices(obs)

	c := newTestController(2)
	var counter atomic.Int64
	c.TrackProgress(&counter)

	_, err := c.Run(context.Background(), slices)
	require.NoError(t, err)
	assert.Equal(t, int64(len(slices)), counter.Load())
}

func TestControllerRun_EmptyInput(t *testing.T) {
	c := newTestController(2)
	outcomes, err := c.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestNewController_DefaultsWorkerCount(t *testing.T) {
	c := newTestController(0)
	assert.GreaterOrEqual(t, c.Workers(), 1)
}
