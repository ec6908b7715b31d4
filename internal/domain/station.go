package domain

import (
	"errors"
	"fmt"
	"sort"
)

// StationMetadata places a station in space. Altitude is NaN when the
// catalog has no altitude for the station.
type StationMetadata struct {
	StationID string  `json:"StationID"`
	Longitude float64 `json:"Longitude"`
	Latitude  float64 `json:"Latitude"`
	Altitude  float64 `json:"Altitude"`
}

// ErrMissingMetadata reports valid stations absent from the catalog. The
// neighbor graph cannot be built for a station it cannot place in space, so
// this is fatal for the run.
var ErrMissingMetadata = errors.New("station metadata missing")

// ValidateCoverage checks that every valid station has a catalog entry.
func ValidateCoverage(stations []string, catalog map[string]StationMetadata) error {
	var missing []string
	for _, sid := range stations {
		if _, ok := catalog[sid]; !ok {
			missing = append(missing, sid)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %v", ErrMissingMetadata, missing)
	}
	return nil
}
