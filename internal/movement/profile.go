// Package movement advances an agent's position and activity state by one
// tick: a two-state (Active/Resting) machine with momentum-limited turning
// and a soft geofence around the agent's anchor.
package movement

import (
	"time"

	"github.com/talgya/wildsim/internal/fleet"
)

// TimeOfDay buckets the wall-clock hour.
type TimeOfDay uint8

const (
	Morning   TimeOfDay = iota // 06:00–12:00
	Afternoon                  // 12:00–18:00
	Evening                    // 18:00–22:00
	Night                      // otherwise
)

// TimeOfDayAt derives the bucket from the hour of t in its own location.
func TimeOfDayAt(t time.Time) TimeOfDay {
	h := t.Hour()
	switch {
	case h >= 6 && h < 12:
		return Morning
	case h >= 12 && h < 18:
		return Afternoon
	case h >= 18 && h < 22:
		return Evening
	default:
		return Night
	}
}

// String returns a human-readable name.
func (t TimeOfDay) String() string {
	switch t {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	case Evening:
		return "evening"
	case Night:
		return "night"
	default:
		return "unknown"
	}
}

// IsDawnOrDusk reports whether t falls in the crepuscular windows
// (05:00–08:00 and 17:00–20:00), when trap triggers are most likely.
func IsDawnOrDusk(t time.Time) bool {
	h := t.Hour()
	return (h >= 5 && h < 8) || (h >= 17 && h < 20)
}

// Pattern is the activity parameter set for one profile and time of day.
type Pattern struct {
	Activity        float64 // 0–1, scales step size
	RestProbability float64 // Chance per Active tick of lying up
	SpeedFactor     float64 // 0–1, scales step size
}

// DefaultPattern applies to fixed-location devices and unmapped profiles.
var DefaultPattern = Pattern{Activity: 0.7, RestProbability: 0.3, SpeedFactor: 0.7}

// patterns is indexed by TimeOfDay. Activity × SpeedFactor never exceeds 1,
// so no step is longer than BaseStep.
var patterns = map[fleet.BehaviorProfile][4]Pattern{
	fleet.BehaviorPredator: {
		Morning:   {Activity: 0.5, RestProbability: 0.3, SpeedFactor: 0.8},
		Afternoon: {Activity: 0.2, RestProbability: 0.6, SpeedFactor: 0.5},
		Evening:   {Activity: 0.9, RestProbability: 0.1, SpeedFactor: 1.0},
		Night:     {Activity: 0.8, RestProbability: 0.15, SpeedFactor: 0.9},
	},
	fleet.BehaviorGrazer: {
		Morning:   {Activity: 0.8, RestProbability: 0.15, SpeedFactor: 0.6},
		Afternoon: {Activity: 0.6, RestProbability: 0.3, SpeedFactor: 0.5},
		Evening:   {Activity: 0.7, RestProbability: 0.2, SpeedFactor: 0.6},
		Night:     {Activity: 0.2, RestProbability: 0.6, SpeedFactor: 0.3},
	},
	fleet.BehaviorHerd: {
		Morning:   {Activity: 0.8, RestProbability: 0.1, SpeedFactor: 0.7},
		Afternoon: {Activity: 0.5, RestProbability: 0.35, SpeedFactor: 0.5},
		Evening:   {Activity: 0.7, RestProbability: 0.2, SpeedFactor: 0.6},
		Night:     {Activity: 0.3, RestProbability: 0.5, SpeedFactor: 0.4},
	},
	fleet.BehaviorBrowser: {
		Morning:   {Activity: 0.7, RestProbability: 0.2, SpeedFactor: 0.5},
		Afternoon: {Activity: 0.4, RestProbability: 0.4, SpeedFactor: 0.4},
		Evening:   {Activity: 0.8, RestProbability: 0.15, SpeedFactor: 0.6},
		Night:     {Activity: 0.4, RestProbability: 0.4, SpeedFactor: 0.4},
	},
}

// PatternFor looks up the pattern for an agent at a time of day.
func PatternFor(cfg fleet.AgentConfig, tod TimeOfDay) Pattern {
	if cfg.DeviceType.FixedLocation() {
		return DefaultPattern
	}
	table, ok := patterns[cfg.Behavior]
	if !ok || int(tod) >= len(table) {
		return DefaultPattern
	}
	return table[tod]
}
