// Package history keeps a per-location, time-ordered log of recent
// precipitation values with bounded retention.
package history

import (
	"sort"
	"strconv"
	"time"
)

// Key identifies the same physical grid cell across files. It is derived
// from the exact float coordinates of the static grid, so repeated
// derivations for one cell always compare equal.
type Key string

// KeyFor derives the location key for a coordinate pair.
func KeyFor(lat, long float64) Key {
	return Key(strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(long, 'f', -1, 64))
}

type entry struct {
	ts    time.Time
	value float64
}

// Store holds the value history of many locations. A single key is mutated
// by at most one caller at a time (files of one product are processed
// sequentially); distinct keys never interfere.
type Store struct {
	points map[Key][]entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{points: make(map[Key][]entry)}
}

// AddPoint inserts a value keeping the key's entries in ascending time
// order, even under out-of-order input. A duplicate timestamp is inserted
// after existing entries with the same instant, so lookups see the value
// written last.
func (s *Store) AddPoint(ts time.Time, key Key, value float64) {
	pts := s.points[key]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].ts.After(ts) })
	pts = append(pts, entry{})
	copy(pts[i+1:], pts[i:])
	pts[i] = entry{ts: ts, value: value}
	s.points[key] = pts
}

// Value returns the value stored at exactly ts, or ok=false if no entry
// exists at that instant. Absence is the normal case for missing history,
// not a fault.
func (s *Store) Value(ts time.Time, key Key) (float64, bool) {
	pts := s.points[key]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].ts.After(ts) })
	if i > 0 && pts[i-1].ts.Equal(ts) {
		return pts[i-1].value, true
	}
	return 0, false
}

// RemoveOlderThan deletes all of the key's entries strictly older than
// cutoff. The scan stops at the first entry >= cutoff, which is sound
// because entries are kept in ascending order.
func (s *Store) RemoveOlderThan(cutoff time.Time, key Key) {
	pts := s.points[key]
	i := sort.Search(len(pts), func(i int) bool { return !pts[i].ts.Before(cutoff) })
	if i == 0 {
		return
	}
	remaining := make([]entry, len(pts)-i)
	copy(remaining, pts[i:])
	s.points[key] = remaining
}

// RemovePoint deletes all entries of the key at exactly ts, including
// duplicates.
func (s *Store) RemovePoint(ts time.Time, key Key) {
	pts := s.points[key]
	first := sort.Search(len(pts), func(i int) bool { return !pts[i].ts.Before(ts) })
	last := sort.Search(len(pts), func(i int) bool { return pts[i].ts.After(ts) })
	if first == last {
		return
	}
	s.points[key] = append(pts[:first], pts[last:]...)
}

// Len returns the number of entries stored for the key.
func (s *Store) Len(key Key) int { return len(s.points[key]) }
