package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

const earthRadiusKm = 6371.0

// NeighborEntry is one station at its 3D distance from a reference station.
type NeighborEntry struct {
	StationID  string  `json:"station"`
	DistanceKm float64 `json:"distance_km"`
}

// NeighborMap holds, per station, every other station sorted ascending by
// 3D distance. Immutable once built; shared read-only by all workers.
type NeighborMap map[string][]NeighborEntry

// Distance3D combines great-circle surface distance with vertical
// separation (km) into a single Euclidean distance. The vertical component
// is 0 when either altitude is unknown. Symmetric by construction.
func Distance3D(a, b StationMetadata) float64 {
	horizontal := haversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	vertical := 0.0
	if !IsMissing(a.Altitude) && !IsMissing(b.Altitude) {
		vertical = math.Abs(a.Altitude-b.Altitude) / 1000.0
	}
	return math.Sqrt(horizontal*horizontal + vertical*vertical)
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (rlat2 - rlat1) / 2
	dlon := (lon2 - lon1) * math.Pi / 180 / 2

	h := math.Sin(dlat)*math.Sin(dlat) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon)*math.Sin(dlon)
	return 2 * math.Asin(math.Sqrt(h)) * earthRadiusKm
}

// BuildNeighborMap computes every station's distance-ascending neighbor
// list. Distances are rounded to 4 decimals (the cache precision) and ties
// break by station ID ascending, so rebuilding from the same inputs yields
// an identical map.
func BuildNeighborMap(stations map[string]StationMetadata) NeighborMap {
	ids := sortedStationIDs(stations)
	m := make(NeighborMap, len(ids))
	for _, sid := range ids {
		entries := make([]NeighborEntry, 0, len(ids)-1)
		for _, other := range ids {
			if other == sid {
				continue
			}
			d := Distance3D(stations[sid], stations[other])
			entries = append(entries, NeighborEntry{StationID: other, DistanceKm: round4(d)})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].DistanceKm != entries[j].DistanceKm {
				return entries[i].DistanceKm < entries[j].DistanceKm
			}
			return entries[i].StationID < entries[j].StationID
		})
		m[sid] = entries
	}
	return m
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

// FingerprintStations hashes station IDs, coordinates, and altitudes. The
// persisted neighbor cache is keyed by this fingerprint so that changed
// metadata forces a rebuild instead of silently reusing a stale graph.
func FingerprintStations(stations map[string]StationMetadata) string {
	var b strings.Builder
	for _, sid := range sortedStationIDs(stations) {
		s := stations[sid]
		alt := "NA"
		if !IsMissing(s.Altitude) {
			alt = fmt.Sprintf("%.3f", s.Altitude)
		}
		fmt.Fprintf(&b, "%s|%.6f|%.6f|%s\n", sid, s.Longitude, s.Latitude, alt)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func sortedStationIDs(stations map[string]StationMetadata) []string {
	ids := make([]string, 0, len(stations))
	for sid := range stations {
		ids = append(ids, sid)
	}
	sort.Strings(ids)
	return ids
}
