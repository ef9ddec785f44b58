// Package classify turns freshly observed precipitation values plus recent
// per-location history into DWD rain-warning severity levels.
//
// Two independent families exist: long-duration "Dauerregen" for daily
// accumulations (24h/48h/72h windows) and short-duration "Starkregen" for
// hourly accumulations (1h/6h windows). Thresholds follow the DWD warning
// criteria, see
// https://www.dwd.de/DE/wetter/warnungen_aktuell/kriterien/warnkriterien.html
package classify

import (
	"log/slog"
	"time"

	"github.com/SENERGY-Platform/import-radolan/internal/domain"
	"github.com/SENERGY-Platform/import-radolan/internal/history"
)

// Level is a rain-warning severity. LevelUnknown means the available
// history was insufficient to bound the true severity; it is deliberately
// distinct from LevelNone.
type Level int

const (
	LevelUnknown Level = -1
	LevelNone    Level = 0
	Level2       Level = 2
	Level3       Level = 3
	Level4       Level = 4
)

var dauerregenLabels = map[Level]string{
	LevelNone: "",
	Level2:    "Dauerregen",
	Level3:    "Ergiebiger Dauerregen",
	Level4:    "Extrem ergiebiger Dauerregen",
}

var starkregenLabels = map[Level]string{
	LevelNone: "",
	Level2:    "Starkregen",
	Level3:    "Heftiger Starkregen",
	Level4:    "Extrem heftiger Starkregen",
}

// thresholds are the lower bounds for levels 2, 3 and 4, in mm accumulated
// over the window. Values below the first bound are level 0.
type thresholds [3]float64

var dauerregenThresholds = map[int]thresholds{
	12: {25, 40, 70},
	24: {30, 50, 80},
	48: {40, 60, 90},
	72: {60, 90, 120},
}

var starkregenThresholds = map[int]thresholds{
	1: {15, 25, 40},
	6: {20, 35, 60},
}

func classify(value float64, t thresholds) Level {
	switch {
	case value < t[0]:
		return LevelNone
	case value < t[1]:
		return Level2
	case value < t[2]:
		return Level3
	default:
		return Level4
	}
}

func maxLevel(levels ...Level) Level {
	m := levels[0]
	for _, l := range levels[1:] {
		if l > m {
			m = l
		}
	}
	return m
}

// Annotator registers observations in a history store and classifies them.
// Not safe for concurrent use; observations of one product are processed
// sequentially.
type Annotator struct {
	store  *history.Store
	logger *slog.Logger
}

// NewAnnotator builds an annotator, replaying the given historic messages
// into the history store. A message that fails to parse is skipped with a
// warning.
func NewAnnotator(replay []domain.TimedMessage, logger *slog.Logger) *Annotator {
	a := &Annotator{store: history.NewStore(), logger: logger}
	for _, msg := range replay {
		obs, err := domain.ParseObservation(msg.Payload)
		if err != nil {
			logger.Warn("malformed message ignored during history replay", "error", err)
			continue
		}
		a.store.AddPoint(msg.Timestamp, history.KeyFor(obs.Meta.Lat, obs.Meta.Long), obs.Value)
	}
	return a
}

// Classify registers the observation and returns the warning level and
// label for the product's family.
func (a *Annotator) Classify(family domain.WarningFamily, ts time.Time, lat, long, value float64) (Level, string) {
	if family == domain.WarningShortDuration {
		return a.Starkregen(ts, lat, long, value)
	}
	return a.Dauerregen(ts, lat, long, value)
}

// Dauerregen registers a daily accumulation value and returns the highest
// long-duration warning level across the 24h, 48h and 72h windows. If any
// contributing window cannot be computed from history, the overall result
// is LevelUnknown: a partially-known maximum could understate the true
// severity.
func (a *Annotator) Dauerregen(ts time.Time, lat, long, value float64) (Level, string) {
	key := history.KeyFor(lat, long)
	a.store.AddPoint(ts, key, value)

	level24 := classify(value, dauerregenThresholds[24])
	level48, level72 := LevelUnknown, LevelUnknown

	if prev, ok := a.store.Value(ts.Add(-24*time.Hour), key); ok {
		level48 = classify(value+prev, dauerregenThresholds[48])
		if prev2, ok := a.store.Value(ts.Add(-48*time.Hour), key); ok {
			level72 = classify(value+prev+prev2, dauerregenThresholds[72])
		} else {
			a.logger.Debug("can't ensure correct warn level, missing historic data", "window", "72h")
		}
	} else {
		a.logger.Debug("can't ensure correct warn level, missing historic data", "window", "48h")
	}

	a.store.RemoveOlderThan(ts.Add(-72*time.Hour), key)

	level := LevelUnknown
	if level48 != LevelUnknown && level72 != LevelUnknown {
		level = maxLevel(level24, level48, level72)
	}
	return level, dauerregenLabels[level]
}

// Starkregen registers an hourly accumulation value and returns the highest
// short-duration warning level across the 1h and 6h windows. A gap in the
// five preceding hourly values makes the 6h window, and therefore the
// overall result, LevelUnknown.
func (a *Annotator) Starkregen(ts time.Time, lat, long, value float64) (Level, string) {
	key := history.KeyFor(lat, long)
	a.store.AddPoint(ts, key, value)

	level1 := classify(value, starkregenThresholds[1])

	sum := value
	complete := true
	for h := 1; h <= 5; h++ {
		v, ok := a.store.Value(ts.Add(-time.Duration(h)*time.Hour), key)
		if !ok {
			complete = false
			break
		}
		sum += v
	}

	level6 := LevelUnknown
	if complete {
		level6 = classify(sum, starkregenThresholds[6])
	} else {
		a.logger.Debug("can't ensure correct warn level, missing historic data", "window", "6h")
	}

	a.store.RemoveOlderThan(ts.Add(-5*time.Hour), key)

	level := LevelUnknown
	if level6 != LevelUnknown {
		level = maxLevel(level1, level6)
	}
	return level, starkregenLabels[level]
}
