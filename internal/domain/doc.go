// Package domain models historical surface-station observations and the
// spatial imputation that fills their gaps.
//
// # Data Source
//
// Observations originate from a national weather-bureau historical archive.
// The upstream crawler fetches one JSON document per station per day into
// his_data/<StationID>/ and maintains a line-oriented list of valid station
// IDs plus a station catalog document with coordinates and altitude. This
// service consumes those artifacts; it never talks to the archive itself.
//
// # Archive Conventions
//
// Payload shapes (all three occur in the wild, depending on crawler era):
//
//	{"data": [item, ...]}                    wrapper object with an item list
//	[item, ...]                              bare item list
//	{"StationID": "...", "dts": [entry,...]} single item carrying its entries
//
// Each item holds timestamped entries under "dts" (or, in older files,
// "data"). An entry carries a "DataTime" string and one object per
// measurement group, keyed by sub-measurement:
//
//	{"DataTime": "2024-03-01T10:00:00+08:00",
//	 "AirTemperature": {"Instantaneous": 17.3, "Maximum": 18.0, ...},
//	 "Precipitation": {"Accumulation": 0.5}, ...}
//
// Sentinel codes:
//
//	The archive writes reserved numeric codes (-9.5, -99.5, -99.95, ...)
//	where an instrument reported nothing. These are placeholder values, not
//	readings; they are normalized to missing before any computation.
//
// Station catalog:
//
//	Stations are grouped by category; each entry carries stationID,
//	longitude, latitude, altitude, and an optional end date. A present end
//	date marks the station retired and excludes it from the catalog.
//
// # Imputation
//
// Missing cells are filled by inverse-distance weighting over the nearest
// stations that do have a reading at the same DataTime. Distance is 3D:
// great-circle surface distance combined with altitude separation. A fixed
// quorum of neighbor readings is required before an estimate is trusted;
// below quorum the cell stays missing and is logged.
package domain
