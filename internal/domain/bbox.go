package domain

import (
	"encoding/json"
	"fmt"
)

// BoundingBox selects a geographic area of interest. The coordinate order
// matches the DWD configuration convention:
// [min longitude, min latitude, max longitude, max latitude].
// Callers are responsible for min <= max on both axes; a malformed box
// simply matches nothing (or everything) incorrectly.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Contains reports whether the point lies inside the box, inclusive on all
// four edges.
func (b BoundingBox) Contains(lat, long float64) bool {
	return b.MinLon <= long && long <= b.MaxLon && b.MinLat <= lat && lat <= b.MaxLat
}

// InAnyBBox reports whether the point lies inside at least one box.
func InAnyBBox(lat, long float64, boxes []BoundingBox) bool {
	for _, b := range boxes {
		if b.Contains(lat, long) {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts the four-element array form used in the CONFIG
// environment variable, e.g. [12.35, 51.3, 12.4, 51.35].
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("parse bounding box: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("bounding box must have 4 coordinates, got %d", len(coords))
	}
	b.MinLon, b.MinLat, b.MaxLon, b.MaxLat = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// MarshalJSON emits the same four-element array form.
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat})
}
