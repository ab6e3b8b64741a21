// Package battery models per-device charge depletion.
package battery

import (
	"github.com/talgya/wildsim/internal/fleet"
)

// Per-tick drain in percentage points. Collars run a GPS fix every tick and
// drain fastest; camera traps idle between triggers.
const (
	DrainGPSCollar      = 0.05
	DrainWeatherStation = 0.03
	DrainMotionSensor   = 0.02
	DrainCameraTrap     = 0.01
)

// DrainRate returns the per-tick drain for a device type.
func DrainRate(d fleet.DeviceType) float64 {
	switch d {
	case fleet.DeviceGPSCollar:
		return DrainGPSCollar
	case fleet.DeviceWeatherStation:
		return DrainWeatherStation
	case fleet.DeviceMotionSensor:
		return DrainMotionSensor
	case fleet.DeviceCameraTrap:
		return DrainCameraTrap
	default:
		return DrainGPSCollar
	}
}

// Drain applies one tick of depletion to st and returns the new charge.
// Charge never drops below fleet.BatteryFloor.
func Drain(st *fleet.RuntimeState, d fleet.DeviceType) float64 {
	c := st.BatteryCharge - DrainRate(d)
	if c < fleet.BatteryFloor {
		c = fleet.BatteryFloor
	}
	if c > st.BatteryCharge {
		// Already below the floor (hand-built state); never recharge.
		c = st.BatteryCharge
	}
	st.BatteryCharge = c
	return c
}
