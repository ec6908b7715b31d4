package domain

import "math"

// ResultRow is one line of the final imputed table: a station's readings at
// one DataTime with its catalog coordinates joined in.
type ResultRow struct {
	StationID string
	DataTime  string
	Values    []float64
	Longitude float64
	Latitude  float64
	Altitude  float64
}

// AssembleResults concatenates slices in their given (DataTime-ascending)
// order and left-joins station metadata. Every (StationID, DataTime) pair
// present in the slices appears exactly once.
func AssembleResults(slices []*TimeSlice, catalog map[string]StationMetadata) []ResultRow {
	total := 0
	for _, s := range slices {
		total += len(s.Stations)
	}

	rows := make([]ResultRow, 0, total)
	for _, s := range slices {
		for i, sid := range s.Stations {
			row := ResultRow{
				StationID: sid,
				DataTime:  s.DataTime,
				Values:    s.Values[i],
				Longitude: math.NaN(),
				Latitude:  math.NaN(),
				Altitude:  math.NaN(),
			}
			if meta, ok := catalog[sid]; ok {
				row.Longitude = meta.Longitude
				row.Latitude = meta.Latitude
				row.Altitude = meta.Altitude
			}
			rows = append(rows, row)
		}
	}
	return rows
}
