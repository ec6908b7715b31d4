package domain

import "fmt"

// MeasurementGroup pairs a measurement group with its sub-measurements.
type MeasurementGroup struct {
	Name string
	Subs []string
}

// soilDepthsCm lists the instrumented soil-temperature depths.
var soilDepthsCm = []int{0, 5, 10, 20, 30, 50, 100}

// measurementGroups is the closed observation schema. Order matters: it
// defines the column order of every table this service produces.
var measurementGroups = buildMeasurementGroups()

func buildMeasurementGroups() []MeasurementGroup {
	groups := []MeasurementGroup{
		{Name: "StationPressure", Subs: []string{"Instantaneous"}},
		{Name: "SeaLevelPressure", Subs: []string{"Instantaneous"}},
		{Name: "AirTemperature", Subs: []string{"Instantaneous", "Maximum", "Minimum"}},
		{Name: "DewPointTemperature", Subs: []string{"Instantaneous"}},
		{Name: "RelativeHumidity", Subs: []string{"Instantaneous"}},
		{Name: "WindSpeed", Subs: []string{"TenMinutelyMaximum", "Mean"}},
		{Name: "WindDirection", Subs: []string{"TenMinutelyMaximum", "Mean"}},
		{Name: "PeakGust", Subs: []string{"Direction", "Maximum"}},
		{Name: "Precipitation", Subs: []string{"Accumulation"}},
		{Name: "PrecipitationDuration", Subs: []string{"Total"}},
		{Name: "SunshineDuration", Subs: []string{"Total"}},
		{Name: "GlobalSolarRadiation", Subs: []string{"Accumulation"}},
		{Name: "Visibility", Subs: []string{"Instantaneous"}},
		{Name: "UVIndex", Subs: []string{"Accumulation"}},
		{Name: "TotalCloudAmount", Subs: []string{"Instantaneous"}},
	}
	for _, depth := range soilDepthsCm {
		groups = append(groups, MeasurementGroup{
			Name: fmt.Sprintf("SoilTemperatureAt%dcm", depth),
			Subs: []string{"Instantaneous"},
		})
	}
	return groups
}

var featureColumns = buildFeatureColumns()

func buildFeatureColumns() []string {
	var cols []string
	for _, g := range measurementGroups {
		for _, sub := range g.Subs {
			cols = append(cols, g.Name+"_"+sub)
		}
	}
	return cols
}

// MeasurementGroups returns the schema's measurement groups in column order.
func MeasurementGroups() []MeasurementGroup {
	out := make([]MeasurementGroup, len(measurementGroups))
	copy(out, measurementGroups)
	return out
}

// FeatureColumns returns the ordered "Group_Sub" column names of the schema.
func FeatureColumns() []string {
	out := make([]string, len(featureColumns))
	copy(out, featureColumns)
	return out
}

// FeatureCount returns the number of schema columns.
func FeatureCount() int { return len(featureColumns) }
