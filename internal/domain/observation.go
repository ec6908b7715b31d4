package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FlatObservation is one station's readings at one DataTime. Values is
// indexed by FeatureColumns order; missing cells hold NaN.
type FlatObservation struct {
	StationID string
	DataTime  string
	Values    []float64
}

// ErrMalformedRecord marks a raw payload that matches none of the known shapes.
var ErrMalformedRecord = errors.New("malformed observation record")

// FlattenPayload parses one raw per-station-per-day document into flat
// observations. The payload shape is resolved once up front: a wrapper
// object with a "data" list, a bare list, or a single item carrying its own
// "dts" entries. Entries without a DataTime are dropped.
func FlattenPayload(stationID string, payload []byte) ([]FlatObservation, error) {
	items, err := payloadItems(payload)
	if err != nil {
		return nil, err
	}

	var out []FlatObservation
	for _, item := range items {
		for _, entry := range itemEntries(item) {
			obs, ok := flattenEntry(stationID, entry)
			if !ok {
				continue
			}
			out = append(out, obs)
		}
	}
	return out, nil
}

// payloadItems resolves the payload's top-level shape into a normalized item list.
func payloadItems(payload []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(payload, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if data, ok := obj["data"]; ok {
			var items []json.RawMessage
			if err := json.Unmarshal(data, &items); err != nil {
				return nil, fmt.Errorf("%w: data is not a list: %v", ErrMalformedRecord, err)
			}
			return items, nil
		}
		if _, ok := obj["dts"]; ok {
			// Single-item shape: the object is its own item.
			return []json.RawMessage{json.RawMessage(payload)}, nil
		}
		return nil, fmt.Errorf("%w: object has neither data nor dts", ErrMalformedRecord)
	default:
		return nil, fmt.Errorf("%w: unrecognized payload", ErrMalformedRecord)
	}
}

// itemEntries returns an item's timestamped entries, found under "dts" or,
// in older files, "data".
func itemEntries(item json.RawMessage) []json.RawMessage {
	var obj struct {
		Dts  []json.RawMessage `json:"dts"`
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return nil
	}
	if len(obj.Dts) > 0 {
		return obj.Dts
	}
	return obj.Data
}

// flattenEntry maps one timestamped entry onto the fixed feature schema,
// normalizing sentinel codes to missing.
func flattenEntry(stationID string, entry json.RawMessage) (FlatObservation, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return FlatObservation{}, false
	}

	var dataTime string
	if raw, ok := fields["DataTime"]; ok {
		_ = json.Unmarshal(raw, &dataTime)
	}
	if dataTime == "" {
		return FlatObservation{}, false
	}

	obs := FlatObservation{
		StationID: stationID,
		DataTime:  dataTime,
		Values:    make([]float64, FeatureCount()),
	}

	col := 0
	for _, group := range measurementGroups {
		var subs map[string]any
		if raw, ok := fields[group.Name]; ok {
			_ = json.Unmarshal(raw, &subs)
		}
		for _, sub := range group.Subs {
			obs.Values[col] = NormalizeValue(subs[sub])
			col++
		}
	}
	return obs, true
}
