package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// LevelUnknown marks an observation whose warning level could not be
// determined from the available history. It is distinct from "no warning"
// (level 0).
const LevelUnknown = -1

// ObservationMeta is the static metadata attached to every observation.
type ObservationMeta struct {
	Projection string  `json:"projection"`
	Unit       string  `json:"unit"`
	Precision  float64 `json:"precision"`
	Lat        float64 `json:"lat"`
	Long       float64 `json:"long"`
}

// Observation is one geo-referenced measurement ready for the sink. It is
// created per masked cell per decoded file and never mutated afterwards;
// ownership transfers to the sink on emission.
type Observation struct {
	Value     float64         `json:"value"`
	WarnLevel int             `json:"warn_level"`
	WarnEvent string          `json:"warn_event"`
	Meta      ObservationMeta `json:"meta"`

	// Timestamp travels out of band (Kafka message time/headers), not in
	// the payload.
	Timestamp time.Time `json:"-"`
}

// NewObservation assembles an observation for one grid cell.
func NewObservation(ts time.Time, lat, long, value float64, epsg int, precision float64, unit string, warnLevel int, warnEvent string) Observation {
	return Observation{
		Value:     value,
		WarnLevel: warnLevel,
		WarnEvent: warnEvent,
		Meta: ObservationMeta{
			Projection: "EPSG:" + strconv.Itoa(epsg),
			Unit:       unit,
			Precision:  precision,
			Lat:        lat,
			Long:       long,
		},
		Timestamp: ts,
	}
}

// ParseObservation deserializes a wire message, failing if any required
// field is missing. Used when replaying the sink's recent message log into
// the history store.
func ParseObservation(data []byte) (Observation, error) {
	var aux struct {
		Value     *float64 `json:"value"`
		WarnLevel *int     `json:"warn_level"`
		WarnEvent *string  `json:"warn_event"`
		Meta      *struct {
			Projection *string  `json:"projection"`
			Unit       *string  `json:"unit"`
			Precision  *float64 `json:"precision"`
			Lat        *float64 `json:"lat"`
			Long       *float64 `json:"long"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return Observation{}, fmt.Errorf("parse observation: %w", err)
	}
	if aux.Value == nil || aux.Meta == nil ||
		aux.Meta.Projection == nil || aux.Meta.Unit == nil || aux.Meta.Precision == nil ||
		aux.Meta.Lat == nil || aux.Meta.Long == nil {
		return Observation{}, fmt.Errorf("parse observation: missing required field")
	}

	obs := Observation{
		Value:     *aux.Value,
		WarnLevel: LevelUnknown,
		Meta: ObservationMeta{
			Projection: *aux.Meta.Projection,
			Unit:       *aux.Meta.Unit,
			Precision:  *aux.Meta.Precision,
			Lat:        *aux.Meta.Lat,
			Long:       *aux.Meta.Long,
		},
	}
	if aux.WarnLevel != nil {
		obs.WarnLevel = *aux.WarnLevel
	}
	if aux.WarnEvent != nil {
		obs.WarnEvent = *aux.WarnEvent
	}
	return obs, nil
}

// RoundValue rounds a measurement to two decimals. The raw composite values
// are tenths of millimetres scaled by the codec, so plain float rounding can
// drift just below a warning threshold; decimal arithmetic keeps the
// comparison exact.
func RoundValue(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
