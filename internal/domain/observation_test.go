package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStation = "466920"

func colIndex(t *testing.T, name string) int {
	t.Helper()
	for i, c := range FeatureColumns() {
		if c == name {
			return i
		}
	}
	t.Fatalf("unknown column %q", name)
	return -1
}

func TestFlattenPayload_WrapperShape(t *testing.T) {
	payload := []byte(`{"data":[{"StationID":"466920","dts":[
		{"DataTime":"2024-03-01T10:00:00+08:00",
		 "AirTemperature":{"Instantaneous":17.3,"Maximum":18.0,"Minimum":16.1},
		 "Precipitation":{"Accumulation":-99.5}}
	]}]}`)

	obs, err := FlattenPayload(testStation, payload)
	require.NoError(t, err)
	require.Len(t, obs, 1)

	assert.Equal(t, testStation, obs[0].StationID)
	assert.Equal(t, "2024-03-01T10:00:00+08:00", obs[0].DataTime)
	assert.Len(t, obs[0].Values, FeatureCount())

	assert.Equal(t, 17.3, obs[0].Values[colIndex(t, "AirTemperature_Instantaneous")])
	assert.Equal(t, 18.0, obs[0].Values[colIndex(t, "AirTemperature_Maximum")])

	// Sentinel -99.5 normalized before anything downstream sees it.
	assert.True(t, IsMissing(obs[0].Values[colIndex(t, "Precipitation_Accumulation")]))
	// Groups absent from the entry are missing.
	assert.True(t, IsMissing(obs[0].Values[colIndex(t, "WindSpeed_Mean")]))
}

func TestFlattenPayload_BareListShape(t *testing.T) {
	payload := []byte(`[{"dts":[
		{"DataTime":"2024-03-01T10:00:00+08:00","RelativeHumidity":{"Instantaneous":81}},
		{"DataTime":"2024-03-01T11:00:00+08:00","RelativeHumidity":{"Instantaneous":83}}
	]}]`)

	obs, err := FlattenPayload(testStation, payload)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, 81.0, obs[0].Values[colIndex(t, "RelativeHumidity_Instantaneous")])
	assert.Equal(t, "2024-03-01T11:00:00+08:00", obs[1].DataTime)
}

func TestFlattenPayload_SingleItemShape(t *testing.T) {
	payload := []byte(`{"StationID":"466920","dts":[
		{"DataTime":"2024-03-01T10:00:00+08:00","WindSpeed":{"Mean":3.4,"TenMinutelyMaximum":5.1}}
	]}`)

	obs, err := FlattenPayload(testStation, payload)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 3.4, obs[0].Values[colIndex(t, "WindSpeed_Mean")])
	assert.Equal(t, 5.1, obs[0].Values[colIndex(t, "WindSpeed_TenMinutelyMaximum")])
}

func TestFlattenPayload_LegacyDataEntries(t *testing.T) {
	// Older files nest entries under "data" instead of "dts".
	payload := []byte(`{"data":[{"data":[
		{"DataTime":"2024-03-01T10:00:00+08:00","StationPressure":{"Instantaneous":1013.2}}
	]}]}`)

	obs, err := FlattenPayload(testStation, payload)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 1013.2, obs[0].Values[colIndex(t, "StationPressure_Instantaneous")])
}

func TestFlattenPayload_EntryWithoutDataTimeDropped(t *testing.T) {
	payload := []byte(`[{"dts":[
		{"AirTemperature":{"Instantaneous":17.3}},
		{"DataTime":"2024-03-01T10:00:00+08:00","AirTemperature":{"Instantaneous":18.0}}
	]}]`)

	obs, err := FlattenPayload(testStation, payload)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "2024-03-01T10:00:00+08:00", obs[0].DataTime)
}

func TestFlattenPayload_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"invalid JSON", `{invalid`},
		{"empty payload", ``},
		{"scalar payload", `42`},
		{"object without data or dts", `{"StationID":"466920"}`},
		{"data is not a list", `{"data":{"x":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FlattenPayload(testStation, []byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestFeatureColumns_StableOrder(t *testing.T) {
	cols := FeatureColumns()
	assert.Len(t, cols, FeatureCount())
	assert.Equal(t, "StationPressure_Instantaneous", cols[0])
	assert.Equal(t, "SoilTemperatureAt100cm_Instantaneous", cols[len(cols)-1])

	// Accessor returns a copy; callers cannot corrupt the schema.
	cols[0] = "corrupted"
	assert.Equal(t, "StationPressure_Instantaneous", FeatureColumns()[0])
}
