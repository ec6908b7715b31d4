package file

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-data-impute/internal/domain"
	"github.com/couchcryptid/station-data-impute/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStationList_ListStations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations_valid.txt")
	require.NoError(t, os.WriteFile(path, []byte("466920\n\n  C0A520  \n466940\n"), 0o644))

	stations, err := NewStationList(path).ListStations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"466920", "C0A520", "466940"}, stations)
}

func TestStationList_MissingFile(t *testing.T) {
	_, err := NewStationList(filepath.Join(t.TempDir(), "absent.txt")).ListStations(context.Background())
	require.Error(t, err)
}

func writeObservationFile(t *testing.T, root, station, name, payload string) {
	t.Helper()
	dir := filepath.Join(root, station)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o644))
}

func TestObservationDir_LoadObservations(t *testing.T) {
	root := t.TempDir()

	writeObservationFile(t, root, "466920", "20240301.json", `{
		"data": [{
			"dts": [{
				"DataTime": "2024-03-01T10:00:00+08:00",
				"AirTemperature": {"Instantaneous": 21.5}
			}]
		}]
	}`)
	writeObservationFile(t, root, "466920", "20240302.json", `[{
		"dts": [{
			"DataTime": "2024-03-02T10:00:00+08:00",
			"AirTemperature": {"Instantaneous": -99.5}
		}]
	}]`)
	writeObservationFile(t, root, "C0A520", "20240301.json", `{
		"StationID": "C0A520",
		"dts": [{
			"DataTime": "2024-03-01T10:00:00+08:00",
			"RelativeHumidity": {"Instantaneous": 85}
		}]
	}`)

	d := NewObservationDir(root, discardLogger(), observability.NewMetricsForTesting())
	obs, err := d.LoadObservations(context.Background(), []string{"466920", "C0A520", "466940"})
	require.NoError(t, err)
	require.Len(t, obs, 3)

	// Files are read in name order per station, stations in list order.
	assert.Equal(t, "466920", obs[0].StationID)
	assert.Equal(t, "2024-03-01T10:00:00+08:00", obs[0].DataTime)
	assert.Equal(t, "2024-03-02T10:00:00+08:00", obs[1].DataTime)
	assert.Equal(t, "C0A520", obs[2].StationID)

	cols := domain.FeatureColumns()
	airTemp := -1
	for i, c := range cols {
		if c == "AirTemperature_Instantaneous" {
			airTemp = i
		}
	}
	require.NotEqual(t, -1, airTemp)
	assert.Equal(t, 21.5, obs[0].Values[airTemp])
	// Sentinel value normalized to missing.
	assert.True(t, domain.IsMissing(obs[1].Values[airTemp]))
}

func TestObservationDir_SkipsMalformedFiles(t *testing.T) {
	root := t.TempDir()
	writeObservationFile(t, root, "466920", "bad.json", `{"neither": true}`)
	writeObservationFile(t, root, "466920", "good.json", `{
		"data": [{"dts": [{"DataTime": "2024-03-01T10:00:00+08:00"}]}]
	}`)

	d := NewObservationDir(root, discardLogger(), observability.NewMetricsForTesting())
	obs, err := d.LoadObservations(context.Background(), []string{"466920"})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "2024-03-01T10:00:00+08:00", obs[0].DataTime)
}

func TestObservationDir_IgnoresNonJSONEntries(t *testing.T) {
	root := t.TempDir()
	writeObservationFile(t, root, "466920", "notes.txt", "not data")
	writeObservationFile(t, root, "466920", "day.json", `{
		"data": [{"dts": [{"DataTime": "2024-03-01T10:00:00+08:00"}]}]
	}`)

	d := NewObservationDir(root, discardLogger(), observability.NewMetricsForTesting())
	obs, err := d.LoadObservations(context.Background(), []string{"466920"})
	require.NoError(t, err)
	assert.Len(t, obs, 1)
}

func TestObservationDir_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewObservationDir(t.TempDir(), discardLogger(), observability.NewMetricsForTesting())
	_, err := d.LoadObservations(ctx, []string{"466920"})
	assert.ErrorIs(t, err, context.Canceled)
}
