// Package reading composes device-typed telemetry payloads from agent,
// movement, environment and battery state.
package reading

import (
	"math"
	"math/rand"
	"time"

	"github.com/paulmach/orb"

	"github.com/talgya/wildsim/internal/entropy"
	"github.com/talgya/wildsim/internal/fleet"
	"github.com/talgya/wildsim/internal/movement"
	"github.com/talgya/wildsim/internal/weather"
)

// Output precision.
const (
	CoordPrecision    = 8
	QuantityPrecision = 2
)

// Reading is the JSON body POSTed to the ingestion endpoint. Device-specific
// fields are omitted for devices that do not report them.
type Reading struct {
	SensorID   fleet.AgentID    `json:"sensorId"`
	DeviceType fleet.DeviceType `json:"deviceType"`
	SpeciesID  *string          `json:"speciesId"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	Timestamp  time.Time        `json:"timestamp"`

	Temperature    *float64  `json:"temperature,omitempty"`
	BatteryLevel   *int      `json:"batteryLevel,omitempty"`
	Heartbeat      *int      `json:"heartbeat,omitempty"`
	Altitude       *float64  `json:"altitude,omitempty"`
	Speed          *float64  `json:"speed,omitempty"`
	Motion         *bool     `json:"motion,omitempty"`
	ImagesCaptured *int      `json:"imagesCaptured,omitempty"`
	SignalStrength *float64  `json:"signalStrength,omitempty"`
	Metadata       *Metadata `json:"metadata,omitempty"`
}

// Metadata carries the weather station's extra channels.
type Metadata struct {
	Humidity  float64 `json:"humidity"`
	WindSpeed float64 `json:"windSpeed"`
	Rainfall  float64 `json:"rainfall"`
	Pressure  float64 `json:"pressure"`
	UVIndex   float64 `json:"uvIndex"`
}

// Input is everything the synthesizer reads for one agent at one tick.
type Input struct {
	Config         fleet.AgentConfig
	Position       orb.Point
	Movement       movement.Info
	Env            weather.State
	Battery        float64
	AnchorAltitude float64 // meters
	Now            time.Time
}

// Synthesize builds the reading. It reads only its inputs and rng.
func Synthesize(in Input, rng *rand.Rand) Reading {
	r := Reading{
		SensorID:   in.Config.ID,
		DeviceType: in.Config.DeviceType,
		SpeciesID:  in.Config.SpeciesID,
		Latitude:   Round(in.Position.Lat(), CoordPrecision),
		Longitude:  Round(in.Position.Lon(), CoordPrecision),
		Timestamp:  in.Now.UTC(),
	}
	battery := int(math.Floor(in.Battery))

	switch in.Config.DeviceType {
	case fleet.DeviceGPSCollar:
		exertion := 1.0
		if in.Movement.Speed > 5 {
			exertion = 1.2
		}
		restFactor := 1.0
		if in.Movement.IsResting {
			restFactor = 0.7
		}
		heartbeat := int(math.Round(entropy.Uniform(rng, 60, 80) * exertion * restFactor))

		r.Temperature = quantity(in.Env.BaseTemperature + entropy.Uniform(rng, -1.5, 1.5))
		r.BatteryLevel = &battery
		r.Heartbeat = &heartbeat
		r.Altitude = quantity(in.AnchorAltitude + entropy.Uniform(rng, -5, 5))
		r.Speed = quantity(in.Movement.Speed)
		r.Motion = boolPtr(!in.Movement.IsResting)

	case fleet.DeviceCameraTrap:
		p := 0.2
		if movement.IsDawnOrDusk(in.Now) {
			p = 0.4
		}
		motion := entropy.Bernoulli(rng, p)
		r.Motion = &motion
		r.BatteryLevel = &battery
		r.Temperature = quantity(in.Env.BaseTemperature + entropy.Uniform(rng, -1, 1))
		if motion {
			images := entropy.IntRange(rng, 1, 5)
			r.ImagesCaptured = &images
		}

	case fleet.DeviceMotionSensor:
		r.Motion = boolPtr(entropy.Bernoulli(rng, 0.35))
		r.BatteryLevel = &battery
		r.SignalStrength = quantity(entropy.Uniform(rng, 60, 100))

	case fleet.DeviceWeatherStation:
		r.Temperature = quantity(in.Env.BaseTemperature)
		r.Metadata = &Metadata{
			Humidity:  Round(in.Env.Humidity, QuantityPrecision),
			WindSpeed: Round(in.Env.WindSpeed, QuantityPrecision),
			Rainfall:  Round(in.Env.Rainfall, QuantityPrecision),
			Pressure:  Round(entropy.Uniform(rng, 1010, 1020), QuantityPrecision),
			UVIndex:   Round(uvIndex(in.Movement.TimeOfDay, rng), QuantityPrecision),
		}
	}

	return r
}

// uvIndex peaks in the afternoon and is floored at zero.
func uvIndex(tod movement.TimeOfDay, rng *rand.Rand) float64 {
	scale := 0.0
	switch tod {
	case movement.Morning:
		scale = 1.0
	case movement.Afternoon:
		scale = 1.8
	case movement.Evening:
		scale = 0.4
	}
	uv := entropy.Uniform(rng, -1, 6) * scale
	if uv < 0 {
		return 0
	}
	return uv
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func quantity(v float64) *float64 {
	r := Round(v, QuantityPrecision)
	return &r
}

func boolPtr(b bool) *bool { return &b }
