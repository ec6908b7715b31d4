package kafka

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-data-impute/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	values := make([]float64, domain.FeatureCount())
	for i := range values {
		values[i] = float64(i)
	}
	values[1] = math.NaN()

	row := domain.ResultRow{
		StationID: "466920",
		DataTime:  "2024-03-01T10:00:00+08:00",
		Values:    values,
		Longitude: 121.506,
		Latitude:  25.038,
		Altitude:  math.NaN(),
	}

	msg, err := serializeToMessage(row)
	require.NoError(t, err)

	assert.Equal(t, []byte("466920"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "data_time", msg.Headers[0].Key)
	assert.Equal(t, []byte("2024-03-01T10:00:00+08:00"), msg.Headers[0].Value)

	body := string(msg.Value)
	assert.Contains(t, body, `"station_id":"466920"`)
	assert.Contains(t, body, `"longitude":121.506`)
	// Missing altitude and the missing feature cell are omitted entirely.
	assert.NotContains(t, body, "altitude")
	assert.NotContains(t, body, "SeaLevelPressure_Instantaneous")
	assert.Contains(t, body, `"StationPressure_Instantaneous":0`)
}

func TestSerializeToMessage_AllCellsMissing(t *testing.T) {
	values := make([]float64, domain.FeatureCount())
	for i := range values {
		values[i] = math.NaN()
	}
	row := domain.ResultRow{
		StationID: "C0A520",
		DataTime:  "2024-03-01T10:00:00+08:00",
		Values:    values,
		Longitude: math.NaN(),
		Latitude:  math.NaN(),
		Altitude:  math.NaN(),
	}

	msg, err := serializeToMessage(row)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"features":{}`)
}
