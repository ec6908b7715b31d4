package domain

import "sort"

// TimeSlice holds every station's readings at one DataTime as a mutable
// station × feature matrix. A slice is owned by exactly one worker for its
// imputation pass; stations absent at this DataTime have no row.
type TimeSlice struct {
	DataTime string
	Stations []string    // ascending; defines the row order of Values
	Values   [][]float64 // Stations × FeatureColumns; NaN = missing

	rowIndex map[string]int
}

// Row returns the feature row for a station, if present in this slice.
func (s *TimeSlice) Row(stationID string) ([]float64, bool) {
	i, ok := s.rowIndex[stationID]
	if !ok {
		return nil, false
	}
	return s.Values[i], true
}

// PartitionSlices groups flat observations by DataTime into slices, ordered
// by DataTime ascending. Duplicate (StationID, DataTime) rows are merged:
// the first row wins per cell, later rows only fill cells still missing.
func PartitionSlices(obs []FlatObservation) []*TimeSlice {
	byTime := make(map[string]map[string][]float64)
	for _, o := range obs {
		rows, ok := byTime[o.DataTime]
		if !ok {
			rows = make(map[string][]float64)
			byTime[o.DataTime] = rows
		}
		row, ok := rows[o.StationID]
		if !ok {
			row = make([]float64, len(o.Values))
			copy(row, o.Values)
			rows[o.StationID] = row
			continue
		}
		for i, v := range o.Values {
			if IsMissing(row[i]) && !IsMissing(v) {
				row[i] = v
			}
		}
	}

	times := make([]string, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Strings(times)

	slices := make([]*TimeSlice, 0, len(times))
	for _, t := range times {
		rows := byTime[t]
		stations := make([]string, 0, len(rows))
		for sid := range rows {
			stations = append(stations, sid)
		}
		sort.Strings(stations)

		slice := &TimeSlice{
			DataTime: t,
			Stations: stations,
			Values:   make([][]float64, len(stations)),
			rowIndex: make(map[string]int, len(stations)),
		}
		for i, sid := range stations {
			slice.Values[i] = rows[sid]
			slice.rowIndex[sid] = i
		}
		slices = append(slices, slice)
	}
	return slices
}
