// Command validate performs integrity checks across a produced data tree:
// the cleaned CSV, the imputed CSV, and the neighbor cache. It verifies that
// sentinel codes never survive into the outputs, that imputation conserves
// rows and only fills gaps, and that the cached neighbor graph matches the
// station catalog it claims to be built from.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/station-data-impute/internal/domain"
)

// sentinelStrings are the placeholder codes that must never appear in a
// produced table.
var sentinelStrings = []string{
	"-9.5", "-9.8", "-9.95", "-99.5", "-99.7", "-99.9", "-99.95",
	"-999.5", "-9995", "-9999.5",
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "data", "root of the produced data tree")
	flag.Parse()

	os.Exit(run(*dataDir))
}

func run(dataDir string) int {
	cleanedPath := filepath.Join(dataDir, "cleaned_initial_data.csv")
	imputedPath := filepath.Join(dataDir, "cleaned_initial_data_imputed.csv")
	stationsPath := filepath.Join(dataDir, "web_api", "stations_valid.txt")
	catalogPath := filepath.Join(dataDir, "web_api", "station_list.json")
	cachePath := filepath.Join(dataDir, "web_api", "station_neighbors.json")

	fmt.Println("=== Station Data Imputation Validation ===")
	fmt.Println()

	cleaned, err := loadTable(cleanedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cleaned table: %v\n", err)
		return 1
	}
	imputed, err := loadTable(imputedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load imputed table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSentinelAbsence(cleaned, imputed),
		validateRowConservation(cleaned, imputed),
		validateFillOnly(cleaned, imputed),
		validateNeighborCache(stationsPath, catalogPath, cachePath),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d cleaned, %d imputed\n", len(cleaned.rows), len(imputed.rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

type table struct {
	header []string
	rows   [][]string

	// byKey indexes rows by "StationID|DataTime".
	byKey map[string]int
}

func loadTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty table %s", path)
	}

	t := &table{header: all[0], rows: all[1:], byKey: map[string]int{}}
	for i, row := range t.rows {
		if len(row) >= 2 {
			t.byKey[row[0]+"|"+row[1]] = i
		}
	}
	return t, nil
}

// ── Phase 1: Sentinel Absence ──

func validateSentinelAbsence(cleaned, imputed *table) *phase {
	p := &phase{name: "Phase 1: Sentinel Absence"}

	sentinels := map[string]bool{}
	for _, s := range sentinelStrings {
		sentinels[s] = true
	}

	check := func(label string, t *table) {
		for i, row := range t.rows {
			for j, cell := range row[2:] {
				if sentinels[cell] {
					p.errorf("%s row %d: column %q holds sentinel %s", label, i+2, t.header[j+2], cell)
				}
			}
		}
	}
	check("cleaned", cleaned)
	check("imputed", imputed)
	return p
}

// ── Phase 2: Row Conservation ──
// Imputation must neither add nor drop (StationID, DataTime) rows.

func validateRowConservation(cleaned, imputed *table) *phase {
	p := &phase{name: "Phase 2: Row Conservation"}

	// The cleaned table can carry duplicate (station, time) rows that the
	// partitioner merges, so compare distinct keys.
	if len(cleaned.byKey) != len(imputed.byKey) {
		p.errorf("distinct keys: cleaned has %d, imputed has %d", len(cleaned.byKey), len(imputed.byKey))
	}
	for key := range cleaned.byKey {
		if _, ok := imputed.byKey[key]; !ok {
			p.errorf("key %q present in cleaned but missing from imputed", key)
		}
	}
	for key := range imputed.byKey {
		if _, ok := cleaned.byKey[key]; !ok {
			p.errorf("key %q present in imputed but absent from cleaned", key)
		}
	}

	// The imputed header adds exactly the coordinate columns.
	want := append([]string{"StationID", "DataTime"}, domain.FeatureColumns()...)
	if got := strings.Join(cleaned.header, ","); got != strings.Join(want, ",") {
		p.errorf("cleaned header does not match the feature schema")
	}
	want = append(want, "Longitude", "Latitude", "Altitude")
	if got := strings.Join(imputed.header, ","); got != strings.Join(want, ",") {
		p.errorf("imputed header does not match the feature schema plus coordinates")
	}
	return p
}

// ── Phase 3: Fill-Only Imputation ──
// Every cell present before imputation survives unchanged; imputation can
// only turn empty cells into values, never the reverse.

func validateFillOnly(cleaned, imputed *table) *phase {
	p := &phase{name: "Phase 3: Fill-Only Imputation"}

	featureCount := domain.FeatureCount()
	for key, ci := range cleaned.byKey {
		ii, ok := imputed.byKey[key]
		if !ok {
			continue // reported by phase 2
		}
		crow, irow := cleaned.rows[ci], imputed.rows[ii]
		if len(crow) < 2+featureCount || len(irow) < 2+featureCount {
			p.errorf("key %q: short row", key)
			continue
		}
		for j := 0; j < featureCount; j++ {
			cv, iv := crow[2+j], irow[2+j]
			if cv == "" {
				continue
			}
			if iv == "" {
				p.errorf("key %q: column %q was %s before imputation but empty after", key, cleaned.header[2+j], cv)
				continue
			}
			if !floatCellsEqual(cv, iv) {
				p.errorf("key %q: column %q changed from %s to %s", key, cleaned.header[2+j], cv, iv)
			}
		}
	}
	return p
}

func floatCellsEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return a == b
	}
	return fa == fb
}

// ── Phase 4: Neighbor Cache Integrity ──

func validateNeighborCache(stationsPath, catalogPath, cachePath string) *phase {
	p := &phase{name: "Phase 4: Neighbor Cache Integrity"}

	stations, err := loadStations(stationsPath)
	if err != nil {
		p.errorf("load station list: %v", err)
		return p
	}
	catalog, err := loadCatalog(catalogPath)
	if err != nil {
		p.errorf("load catalog: %v", err)
		return p
	}

	active := map[string]domain.StationMetadata{}
	for _, sid := range stations {
		meta, ok := catalog[sid]
		if !ok {
			p.errorf("station %s has no catalog entry", sid)
			continue
		}
		active[sid] = meta
	}
	if !p.passed() {
		return p
	}

	raw, err := os.ReadFile(cachePath)
	if err != nil {
		p.errorf("read neighbor cache: %v", err)
		return p
	}
	var doc struct {
		Fingerprint string             `json:"fingerprint"`
		Neighbors   domain.NeighborMap `json:"neighbors"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		p.errorf("parse neighbor cache: %v", err)
		return p
	}

	if want := domain.FingerprintStations(active); doc.Fingerprint != want {
		p.errorf("cache fingerprint %s does not match the catalog (want %s)", doc.Fingerprint, want)
	}

	distances := map[string]float64{}
	for sid, entries := range doc.Neighbors {
		if _, ok := active[sid]; !ok {
			p.errorf("cache lists unknown station %s", sid)
		}
		if len(entries) != len(active)-1 {
			p.errorf("station %s: %d neighbors, want %d", sid, len(entries), len(active)-1)
		}
		for i, e := range entries {
			if e.StationID == sid {
				p.errorf("station %s: lists itself as a neighbor", sid)
			}
			if i > 0 && entries[i-1].DistanceKm > e.DistanceKm {
				p.errorf("station %s: neighbor list not sorted at position %d", sid, i)
			}
			distances[sid+"|"+e.StationID] = e.DistanceKm
		}
	}

	// The distance metric is symmetric, so the cached lists must agree in
	// both directions.
	for key, d := range distances {
		parts := strings.SplitN(key, "|", 2)
		back, ok := distances[parts[1]+"|"+parts[0]]
		if !ok {
			p.errorf("station %s lists %s but not the reverse", parts[0], parts[1])
		} else if back != d {
			p.errorf("asymmetric distance between %s and %s: %g vs %g", parts[0], parts[1], d, back)
		}
	}
	return p
}

func loadStations(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stations []string
	for _, line := range strings.Split(string(raw), "\n") {
		if sid := strings.TrimSpace(line); sid != "" {
			stations = append(stations, sid)
		}
	}
	return stations, nil
}

func loadCatalog(path string) (map[string]domain.StationMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Data []struct {
			Item []struct {
				StationID string   `json:"stationID"`
				Longitude *float64 `json:"longitude"`
				Latitude  *float64 `json:"latitude"`
				Altitude  *float64 `json:"altitude"`
				EndDate   string   `json:"endDate"`
			} `json:"item"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	catalog := map[string]domain.StationMetadata{}
	for _, group := range doc.Data {
		for _, item := range group.Item {
			if item.StationID == "" || item.EndDate != "" {
				continue
			}
			catalog[item.StationID] = domain.StationMetadata{
				StationID: item.StationID,
				Longitude: deref(item.Longitude),
				Latitude:  deref(item.Latitude),
				Altitude:  deref(item.Altitude),
			}
		}
	}
	return catalog, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return domain.Missing()
	}
	return *v
}
