// Package weather provides the shared environmental model: one slowly
// drifting weather state read by every agent within a tick.
package weather

import (
	"math/rand"
	"time"

	"github.com/talgya/wildsim/internal/entropy"
)

// Clamp ranges and update cadence.
const (
	MinTemperature = 15.0
	MaxTemperature = 35.0
	MinHumidity    = 20.0
	MaxHumidity    = 90.0
	MinWindSpeed   = 0.0
	MaxWindSpeed   = 25.0
	MaxRainEvent   = 8.0 // mm; a rain event resets rainfall to uniform(0, MaxRainEvent)

	RainChance     = 0.1
	RainDryingStep = 0.5 // mm lost per update without rain

	UpdateEvery = 30 * time.Minute
)

// State is the shared environment. The orchestrator is its only writer and
// updates it before any agent reads it in a tick.
type State struct {
	BaseTemperature float64   `json:"base_temperature"` // Celsius
	Humidity        float64   `json:"humidity"`         // %
	WindSpeed       float64   `json:"wind_speed"`       // m/s
	Rainfall        float64   `json:"rainfall"`         // mm
	LastUpdate      time.Time `json:"last_update"`
}

// NewState draws a plausible starting environment.
func NewState(now time.Time, rng *rand.Rand) State {
	return State{
		BaseTemperature: entropy.Uniform(rng, 20, 30),
		Humidity:        entropy.Uniform(rng, 40, 70),
		WindSpeed:       entropy.Uniform(rng, 2, 10),
		Rainfall:        0,
		LastUpdate:      now,
	}
}

// Update drifts the state if at least UpdateEvery has passed since the last
// update; otherwise it is a no-op. Returns whether anything changed.
func (s *State) Update(now time.Time, rng *rand.Rand) bool {
	if now.Sub(s.LastUpdate) < UpdateEvery {
		return false
	}

	s.BaseTemperature = clamp(s.BaseTemperature+entropy.Uniform(rng, -1, 1), MinTemperature, MaxTemperature)
	s.Humidity = clamp(s.Humidity+entropy.Uniform(rng, -5, 5), MinHumidity, MaxHumidity)
	s.WindSpeed = clamp(s.WindSpeed+entropy.Uniform(rng, -2.5, 2.5), MinWindSpeed, MaxWindSpeed)

	if entropy.Bernoulli(rng, RainChance) {
		s.Rainfall = entropy.Uniform(rng, 0, MaxRainEvent)
	} else {
		s.Rainfall -= RainDryingStep
		if s.Rainfall < 0 {
			s.Rainfall = 0
		}
	}

	s.LastUpdate = now
	return true
}

// Snapshot returns a copy for agents to read.
func (s *State) Snapshot() State {
	return *s
}

// Clamp forces every field into its range.
func (s *State) Clamp() {
	s.BaseTemperature = clamp(s.BaseTemperature, MinTemperature, MaxTemperature)
	s.Humidity = clamp(s.Humidity, MinHumidity, MaxHumidity)
	s.WindSpeed = clamp(s.WindSpeed, MinWindSpeed, MaxWindSpeed)
	if s.Rainfall < 0 {
		s.Rainfall = 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
