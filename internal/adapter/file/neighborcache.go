package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/station-data-impute/internal/domain"
	"github.com/couchcryptid/station-data-impute/internal/observability"
)

// NeighborCache serves the neighbor graph from a persisted JSON artifact.
// The artifact is keyed by a fingerprint of the station metadata that
// produced it; any metadata change invalidates the cache and forces a
// rebuild. Rebuilding from unchanged inputs rewrites a byte-identical file.
type NeighborCache struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewNeighborCache(path string, logger *slog.Logger, metrics *observability.Metrics) *NeighborCache {
	return &NeighborCache{path: path, logger: logger, metrics: metrics}
}

type cacheDocument struct {
	Fingerprint string             `json:"fingerprint"`
	Neighbors   domain.NeighborMap `json:"neighbors"`
}

// Neighbors returns the graph for the given stations, from cache when the
// fingerprint matches, rebuilding and persisting otherwise.
func (c *NeighborCache) Neighbors(_ context.Context, stations map[string]domain.StationMetadata) (domain.NeighborMap, error) {
	fingerprint := domain.FingerprintStations(stations)

	if cached, ok := c.load(fingerprint); ok {
		c.metrics.NeighborCache.WithLabelValues("hit").Inc()
		c.logger.Info("neighbor cache hit", "stations", len(stations))
		return cached, nil
	}

	neighbors := domain.BuildNeighborMap(stations)
	if err := c.store(fingerprint, neighbors); err != nil {
		return nil, err
	}
	c.logger.Info("neighbor graph rebuilt", "stations", len(stations))
	return neighbors, nil
}

func (c *NeighborCache) load(fingerprint string) (domain.NeighborMap, bool) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("unreadable neighbor cache, rebuilding", "path", c.path, "error", err)
		}
		c.metrics.NeighborCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	var doc cacheDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn("corrupt neighbor cache, rebuilding", "path", c.path, "error", err)
		c.metrics.NeighborCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	if doc.Fingerprint != fingerprint {
		c.logger.Info("neighbor cache stale, rebuilding", "path", c.path)
		c.metrics.NeighborCache.WithLabelValues("stale").Inc()
		return nil, false
	}
	return doc.Neighbors, true
}

func (c *NeighborCache) store(fingerprint string, neighbors domain.NeighborMap) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create neighbor cache directory: %w", err)
	}

	doc := cacheDocument{Fingerprint: fingerprint, Neighbors: neighbors}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode neighbor cache: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("write neighbor cache: %w", err)
	}
	return nil
}
