package domain

import "math"

// Reasons recorded in the imputation log for cells left missing.
const (
	ReasonInsufficientNeighbors = "insufficient-neighbors"
	ReasonZeroWeightSum         = "zero-weight-sum"
)

// LogEntry records one cell that could not be filled.
type LogEntry struct {
	DataTime  string
	Worker    string
	StationID string
	Feature   string
	Reason    string
}

// ImputeConfig tunes the inverse-distance-weighted estimator.
type ImputeConfig struct {
	// MinNeighbors is the quorum of valid neighbor readings required
	// before an estimate is trusted.
	MinNeighbors int

	// Power is the IDW exponent: weight(d) = 1/d^Power.
	Power float64
}

// DefaultImputeConfig returns the production defaults.
func DefaultImputeConfig() ImputeConfig {
	return ImputeConfig{MinNeighbors: 3, Power: 2}
}

// ImputeSlice fills the slice's missing cells in place. Cells are scanned
// stations-ascending, features in schema order; a cell filled earlier in the
// scan is visible as a candidate to later cells of the same slice. Returns
// the number of cells filled and one LogEntry per cell left missing.
//
// The slice is mutated; the neighbor map is only read.
func ImputeSlice(slice *TimeSlice, neighbors NeighborMap, cfg ImputeConfig, worker string) (int, []LogEntry) {
	columns := FeatureColumns()
	filled := 0
	var unfilled []LogEntry

	for rowIdx, sid := range slice.Stations {
		row := slice.Values[rowIdx]
		for col, feature := range columns {
			if !IsMissing(row[col]) {
				continue
			}
			estimate, reason := estimateCell(slice, neighbors[sid], col, cfg)
			if reason != "" {
				unfilled = append(unfilled, LogEntry{
					DataTime:  slice.DataTime,
					Worker:    worker,
					StationID: sid,
					Feature:   feature,
					Reason:    reason,
				})
				continue
			}
			row[col] = estimate
			filled++
		}
	}
	return filled, unfilled
}

type candidate struct {
	value      float64
	distanceKm float64
}

// estimateCell scans the station's neighbor list in ascending-distance
// order, collecting readings until quorum, then returns the distance-
// weighted average. A non-empty reason means the cell must stay missing.
func estimateCell(slice *TimeSlice, neighbors []NeighborEntry, col int, cfg ImputeConfig) (float64, string) {
	candidates := make([]candidate, 0, cfg.MinNeighbors)
	for _, n := range neighbors {
		row, ok := slice.Row(n.StationID)
		if !ok {
			continue
		}
		v := row[col]
		if IsMissing(v) {
			continue
		}
		candidates = append(candidates, candidate{value: v, distanceKm: n.DistanceKm})
		if len(candidates) >= cfg.MinNeighbors {
			break
		}
	}
	if len(candidates) < cfg.MinNeighbors {
		return 0, ReasonInsufficientNeighbors
	}

	var weighted, weightSum float64
	for _, c := range candidates {
		// An exactly co-located neighbor (distance 0) carries weight 0
		// and contributes nothing to the estimate.
		var w float64
		if c.distanceKm > 0 {
			w = 1 / math.Pow(c.distanceKm, cfg.Power)
		}
		weighted += c.value * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0, ReasonZeroWeightSum
	}
	return weighted / weightSum, ""
}
