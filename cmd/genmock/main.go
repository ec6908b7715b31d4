// Command genmock generates a synthetic data tree for local runs and test
// fixtures: a valid-station list, a station catalog document (including one
// retired station), and per-station per-day raw observation files covering
// every payload shape the flattener accepts, with sentinel codes and gaps
// seeded in.
//
// Usage:
//
//	go run ./cmd/genmock -out data -stations 6 -days 3 -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/station-data-impute/internal/domain"
)

var baseDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.FixedZone("CST", 8*3600))

// sentinelSamples are placeholder codes seeded into the generated files so a
// run exercises sentinel normalization.
var sentinelSamples = []float64{-99.5, -99.95, -9999.5, -9.8}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "output directory for the generated tree")
	stations := flag.Int("stations", 6, "number of valid stations to generate")
	days := flag.Int("days", 3, "number of days of observations per station")
	seed := flag.Int64("seed", 1, "random seed for reproducible output")
	flag.Parse()

	if *stations < 4 {
		return fmt.Errorf("need at least 4 stations for the imputation quorum, got %d", *stations)
	}

	rng := rand.New(rand.NewSource(*seed))

	ids := make([]string, *stations)
	for i := range ids {
		ids[i] = fmt.Sprintf("46%04d", 6900+i*10)
	}

	if err := writeStationList(*out, ids); err != nil {
		return err
	}
	if err := writeCatalog(*out, ids, rng); err != nil {
		return err
	}
	for i, sid := range ids {
		if err := writeObservations(*out, sid, i, *days, rng); err != nil {
			return err
		}
	}

	log.Printf("generated %d stations x %d days under %s", *stations, *days, *out)
	return nil
}

func writeStationList(out string, ids []string) error {
	dir := filepath.Join(out, "web_api")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var body []byte
	for _, sid := range ids {
		body = append(body, sid...)
		body = append(body, '\n')
	}
	return os.WriteFile(filepath.Join(dir, "stations_valid.txt"), body, 0o644)
}

func writeCatalog(out string, ids []string, rng *rand.Rand) error {
	type item struct {
		StationID string   `json:"stationID"`
		Longitude float64  `json:"longitude"`
		Latitude  float64  `json:"latitude"`
		Altitude  *float64 `json:"altitude,omitempty"`
		EndDate   string   `json:"endDate,omitempty"`
	}

	items := make([]item, 0, len(ids)+1)
	for i, sid := range ids {
		it := item{
			StationID: sid,
			Longitude: 121.4 + rng.Float64()*0.6,
			Latitude:  24.8 + rng.Float64()*0.5,
		}
		// Leave one station without altitude to exercise the 2D fallback.
		if i != len(ids)-1 {
			alt := rng.Float64() * 800
			it.Altitude = &alt
		}
		items = append(items, it)
	}
	// One retired station that must be excluded by the catalog loader.
	items = append(items, item{
		StationID: "467990",
		Longitude: 121.73,
		Latitude:  25.13,
		EndDate:   "2020-12-31",
	})

	doc := map[string]any{
		"data": []map[string]any{{"item": items}},
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(out, "web_api", "station_list.json"), append(raw, '\n'), 0o644)
}

// writeObservations emits one file per day, rotating through the three
// accepted payload shapes so every parser path gets covered.
func writeObservations(out, sid string, stationIdx, days int, rng *rand.Rand) error {
	dir := filepath.Join(out, "his_data", sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for d := 0; d < days; d++ {
		day := baseDate.AddDate(0, 0, d)
		entries := dayEntries(day, rng)

		var doc any
		switch (stationIdx + d) % 3 {
		case 0:
			doc = map[string]any{"data": []any{map[string]any{"dts": entries}}}
		case 1:
			doc = []any{map[string]any{"dts": entries}}
		default:
			doc = map[string]any{"StationID": sid, "dts": entries}
		}

		raw, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		name := day.Format("20060102") + ".json"
		if err := os.WriteFile(filepath.Join(dir, name), append(raw, '\n'), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// dayEntries builds hourly entries for one day. Roughly one cell in ten is a
// gap (absent) and one in twenty a sentinel code.
func dayEntries(day time.Time, rng *rand.Rand) []map[string]any {
	entries := make([]map[string]any, 0, 24)
	for h := 0; h < 24; h++ {
		entry := map[string]any{
			"DataTime": day.Add(time.Duration(h) * time.Hour).Format("2006-01-02T15:04:05-07:00"),
		}
		for _, group := range domain.MeasurementGroups() {
			subs := map[string]any{}
			for _, sub := range group.Subs {
				switch {
				case rng.Float64() < 0.10:
					// gap: leave the sub-measurement out entirely
				case rng.Float64() < 0.05:
					subs[sub] = sentinelSamples[rng.Intn(len(sentinelSamples))]
				default:
					subs[sub] = 10 + rng.Float64()*20
				}
			}
			entry[group.Name] = subs
		}
		entries = append(entries, entry)
	}
	return entries
}
