// Package fleet provides the agent data model: static device configuration
// and the mutable per-agent runtime state owned by each agent's tick.
package fleet

import (
	"fmt"
	"math/rand"

	"github.com/paulmach/orb"
)

// AgentID is the sensor identifier carried on every reading.
type AgentID string

// DeviceType enumerates the virtual device kinds in the fleet.
type DeviceType uint8

const (
	DeviceGPSCollar DeviceType = iota
	DeviceCameraTrap
	DeviceMotionSensor
	DeviceWeatherStation
)

var deviceNames = [...]string{
	DeviceGPSCollar:      "GPS Collar",
	DeviceCameraTrap:     "Camera Trap",
	DeviceMotionSensor:   "Motion Sensor",
	DeviceWeatherStation: "Weather Station",
}

// String returns the wire name used by the ingestion endpoint.
func (d DeviceType) String() string {
	if int(d) < len(deviceNames) {
		return deviceNames[d]
	}
	return "Unknown"
}

// FixedLocation reports whether the device is mounted rather than worn.
// Fixed devices use the same movement algorithm with a near-zero radius.
func (d DeviceType) FixedLocation() bool {
	return d != DeviceGPSCollar
}

// ParseDeviceType accepts either the wire name ("GPS Collar") or the
// config key ("gps_collar").
func ParseDeviceType(s string) (DeviceType, error) {
	switch s {
	case "GPS Collar", "gps_collar", "GPSCollar":
		return DeviceGPSCollar, nil
	case "Camera Trap", "camera_trap", "CameraTrap":
		return DeviceCameraTrap, nil
	case "Motion Sensor", "motion_sensor", "MotionSensor":
		return DeviceMotionSensor, nil
	case "Weather Station", "weather_station", "WeatherStation":
		return DeviceWeatherStation, nil
	}
	return 0, fmt.Errorf("unknown device type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DeviceType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DeviceType) UnmarshalText(b []byte) error {
	v, err := ParseDeviceType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// BehaviorProfile parameterizes rest and activity by time of day.
type BehaviorProfile string

const (
	BehaviorPredator BehaviorProfile = "predator"
	BehaviorGrazer   BehaviorProfile = "grazer"
	BehaviorHerd     BehaviorProfile = "herd"
	BehaviorBrowser  BehaviorProfile = "browser"
	BehaviorNone     BehaviorProfile = "none"
)

// Valid reports whether p is one of the known profiles.
func (p BehaviorProfile) Valid() bool {
	switch p {
	case BehaviorPredator, BehaviorGrazer, BehaviorHerd, BehaviorBrowser, BehaviorNone:
		return true
	}
	return false
}

// AgentConfig is the immutable description of one virtual device.
type AgentConfig struct {
	ID            AgentID         `json:"id" yaml:"id" toml:"id"`
	DeviceType    DeviceType      `json:"device_type" yaml:"device_type" toml:"device_type"`
	SpeciesID     *string         `json:"species_id,omitempty" yaml:"species_id" toml:"species_id"`
	Anchor        Location        `json:"anchor" yaml:"anchor" toml:"anchor"`
	RoamingRadius float64         `json:"roaming_radius" yaml:"roaming_radius" toml:"roaming_radius"` // Degrees
	Behavior      BehaviorProfile `json:"behavior" yaml:"behavior" toml:"behavior"`
}

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat" toml:"lat"`
	Lng float64 `json:"lng" yaml:"lng" toml:"lng"`
}

// Point converts to an orb point (X = longitude, Y = latitude).
func (l Location) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// LocationFromPoint converts an orb point back to a Location.
func LocationFromPoint(p orb.Point) Location {
	return Location{Lat: p.Lat(), Lng: p.Lon()}
}

// Battery charge bounds. Charge never drops below BatteryFloor.
const (
	BatteryFloor       = 5.0
	BatteryMax         = 100.0
	BatteryInitialLow  = 70.0
	BatteryInitialHigh = 100.0
)

// RuntimeState is the mutable state of one agent. It is only ever touched
// by that agent's own step within a tick.
type RuntimeState struct {
	Position           orb.Point
	HeadingDegrees     float64 // 0 = north, clockwise
	IsResting          bool
	RestTicksRemaining int
	BatteryCharge      float64
}

// NewRuntimeState creates the initial state for an agent: parked on its
// anchor, Active, random heading, battery drawn from [70,100].
func NewRuntimeState(cfg AgentConfig, rng *rand.Rand) *RuntimeState {
	return &RuntimeState{
		Position:       cfg.Anchor.Point(),
		HeadingDegrees: rng.Float64() * 360,
		BatteryCharge:  BatteryInitialLow + rng.Float64()*(BatteryInitialHigh-BatteryInitialLow),
	}
}
