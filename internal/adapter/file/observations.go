// Package file holds the filesystem adapters: the valid-station list, the
// raw observation tree, the station catalog document, the persisted neighbor
// cache, and the CSV table outputs.
package file

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/station-data-impute/internal/domain"
	"github.com/couchcryptid/station-data-impute/internal/observability"
)

// StationList reads the valid-station list, one ID per line.
type StationList struct {
	path string
}

func NewStationList(path string) *StationList {
	return &StationList{path: path}
}

// ListStations returns the trimmed, non-blank station IDs in file order.
func (l *StationList) ListStations(_ context.Context) ([]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open station list: %w", err)
	}
	defer f.Close()

	var stations []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if sid := strings.TrimSpace(scanner.Text()); sid != "" {
			stations = append(stations, sid)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read station list: %w", err)
	}
	return stations, nil
}

// ObservationDir loads raw per-station-per-day observation files from a tree
// laid out as <root>/<StationID>/<day>.json.
type ObservationDir struct {
	root    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewObservationDir(root string, logger *slog.Logger, metrics *observability.Metrics) *ObservationDir {
	return &ObservationDir{root: root, logger: logger, metrics: metrics}
}

// LoadObservations flattens every .json file under each station's directory.
// Malformed files are logged and skipped; a station directory that does not
// exist contributes nothing.
func (d *ObservationDir) LoadObservations(ctx context.Context, stations []string) ([]domain.FlatObservation, error) {
	var out []domain.FlatObservation
	for _, sid := range stations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := filepath.Join(d.root, sid)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				d.logger.Debug("no observation directory for station", "station", sid)
				continue
			}
			return nil, fmt.Errorf("read station directory %s: %w", dir, err)
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			payload, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read observation file %s: %w", path, err)
			}

			obs, err := domain.FlattenPayload(sid, payload)
			if err != nil {
				d.metrics.FilesSkipped.Inc()
				d.logger.Warn("skipping malformed observation file", "path", path, "error", err)
				continue
			}
			d.metrics.ObservationsFlattened.Add(float64(len(obs)))
			out = append(out, obs...)
		}
	}
	return out, nil
}
