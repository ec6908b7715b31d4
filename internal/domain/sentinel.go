package domain

import "math"

// sentinelCodes are the archive's reserved "no data" placeholder values.
// Matching is exact floating-point equality against this closed list; a
// legitimate reading never takes one of these values.
var sentinelCodes = map[float64]struct{}{
	-9.5:    {},
	-9.8:    {},
	-9.95:   {},
	-99.5:   {},
	-99.7:   {},
	-99.9:   {},
	-99.95:  {},
	-999.5:  {},
	-9995:   {},
	-9999.5: {},
}

// Missing returns the in-memory representation of an absent reading.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v represents an absent reading.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// NormalizeValue converts a decoded raw JSON value into a reading.
// Sentinel placeholder codes and non-numeric values map to missing; every
// other numeric value passes through unchanged.
func NormalizeValue(raw any) float64 {
	v, ok := raw.(float64)
	if !ok {
		return Missing()
	}
	if _, sentinel := sentinelCodes[v]; sentinel {
		return Missing()
	}
	return v
}
