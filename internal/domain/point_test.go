package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationRoundTrip(t *testing.T) {
	ts := time.Date(2021, 7, 13, 16, 50, 0, 0, time.UTC)
	obs := NewObservation(ts, 51.32, 12.37, 42.5, 4326, 0.1, "mm/d", 2, "Dauerregen")

	data, err := json.Marshal(obs)
	require.NoError(t, err)

	parsed, err := ParseObservation(data)
	require.NoError(t, err)

	assert.Equal(t, obs.Meta.Lat, parsed.Meta.Lat)
	assert.Equal(t, obs.Meta.Long, parsed.Meta.Long)
	assert.Equal(t, obs.Value, parsed.Value)
	assert.Equal(t, obs.Meta.Unit, parsed.Meta.Unit)
	assert.Equal(t, obs.Meta.Precision, parsed.Meta.Precision)
	assert.Equal(t, obs.WarnLevel, parsed.WarnLevel)
	assert.Equal(t, obs.WarnEvent, parsed.WarnEvent)
	assert.Equal(t, "EPSG:4326", parsed.Meta.Projection)
}

func TestObservationWireShape(t *testing.T) {
	ts := time.Date(2021, 7, 13, 16, 50, 0, 0, time.UTC)
	obs := NewObservation(ts, 51.32, 12.37, 42.5, 4326, 0.1, "mm/d", LevelUnknown, "")

	data, err := json.Marshal(obs)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"value": 42.5,
		"warn_level": -1,
		"warn_event": "",
		"meta": {
			"projection": "EPSG:4326",
			"unit": "mm/d",
			"precision": 0.1,
			"lat": 51.32,
			"long": 12.37
		}
	}`, string(data))
}

func TestParseObservationMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty object", `{}`},
		{"missing meta", `{"value": 1.5}`},
		{"missing lat", `{"value": 1.5, "meta": {"projection": "EPSG:4326", "unit": "mm/d", "precision": 0.1, "long": 12.37}}`},
		{"missing unit", `{"value": 1.5, "meta": {"projection": "EPSG:4326", "precision": 0.1, "lat": 51.32, "long": 12.37}}`},
		{"not json", `not-json{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseObservation([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestParseObservationWithoutWarnFields(t *testing.T) {
	// Messages published by older importer versions carry no warn fields;
	// they replay as "unknown", not "no warning".
	payload := `{"value": 1.5, "meta": {"projection": "EPSG:4326", "unit": "mm/d", "precision": 0.1, "lat": 51.32, "long": 12.37}}`

	obs, err := ParseObservation([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, LevelUnknown, obs.WarnLevel)
	assert.Empty(t, obs.WarnEvent)
}

func TestRoundValue(t *testing.T) {
	assert.Equal(t, 12.35, RoundValue(12.345))
	assert.Equal(t, 0.1, RoundValue(0.1))
	assert.Equal(t, 30.0, RoundValue(29.999999999999996))
	assert.Equal(t, 0.0, RoundValue(0))
}
