package movement

import (
	"math/rand"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wildsim/internal/fleet"
)

const tickInterval = 3 * time.Second

func collar(radius float64, profile fleet.BehaviorProfile) fleet.AgentConfig {
	return fleet.AgentConfig{
		ID:            "GPS_COLLAR_T",
		DeviceType:    fleet.DeviceGPSCollar,
		Anchor:        fleet.Location{Lat: 0, Lng: 0},
		RoamingRadius: radius,
		Behavior:      profile,
	}
}

func TestTimeOfDayAt(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 3, 1, h, 30, 0, 0, time.UTC) }
	assert.Equal(t, Night, TimeOfDayAt(at(5)))
	assert.Equal(t, Morning, TimeOfDayAt(at(6)))
	assert.Equal(t, Morning, TimeOfDayAt(at(11)))
	assert.Equal(t, Afternoon, TimeOfDayAt(at(12)))
	assert.Equal(t, Afternoon, TimeOfDayAt(at(17)))
	assert.Equal(t, Evening, TimeOfDayAt(at(18)))
	assert.Equal(t, Evening, TimeOfDayAt(at(21)))
	assert.Equal(t, Night, TimeOfDayAt(at(22)))
	assert.Equal(t, Night, TimeOfDayAt(at(0)))
}

func TestPatternFor_Fallbacks(t *testing.T) {
	trap := fleet.AgentConfig{DeviceType: fleet.DeviceCameraTrap, Behavior: fleet.BehaviorPredator}
	assert.Equal(t, DefaultPattern, PatternFor(trap, Evening))

	assert.Equal(t, DefaultPattern, PatternFor(collar(0.01, fleet.BehaviorNone), Morning))
	assert.Equal(t, DefaultPattern, PatternFor(collar(0.01, "unicorn"), Morning))
	assert.NotEqual(t, DefaultPattern, PatternFor(collar(0.01, fleet.BehaviorGrazer), Morning))
}

func TestPatterns_StepNeverExceedsBase(t *testing.T) {
	for profile, table := range patterns {
		for tod, p := range table {
			assert.LessOrEqual(t, p.Activity*p.SpeedFactor, 1.0, "%s/%d", profile, tod)
			assert.GreaterOrEqual(t, p.RestProbability, 0.0)
			assert.LessOrEqual(t, p.RestProbability, 1.0)
		}
	}
}

func TestOffsetAndHeading(t *testing.T) {
	origin := orb.Point{0, 0}

	north := Offset(origin, 0, 1)
	assert.InDelta(t, 1, north.Lat(), 1e-12)
	assert.InDelta(t, 0, north.Lon(), 1e-12)

	east := Offset(origin, 90, 1)
	assert.InDelta(t, 1, east.Lon(), 1e-12)

	assert.InDelta(t, 180, HeadingTo(orb.Point{0, 1}, origin), 1e-9)
	assert.InDelta(t, 270, HeadingTo(orb.Point{1, 0}, origin), 1e-9)
}

func TestAdvance_RestingStateMachine(t *testing.T) {
	cfg := collar(0.01, fleet.BehaviorGrazer)
	rng := rand.New(rand.NewSource(11))
	st := fleet.NewRuntimeState(cfg, rng)

	// Force a rest of known length.
	st.IsResting = true
	st.RestTicksRemaining = 4

	for i := 0; i < 3; i++ {
		info := Advance(cfg, st, Night, tickInterval, rng)
		assert.True(t, info.IsResting)
		assert.Zero(t, info.Speed)
	}
	info := Advance(cfg, st, Night, tickInterval, rng)
	assert.False(t, info.IsResting, "rest counter reached zero")
	assert.False(t, st.IsResting)
	assert.Zero(t, st.RestTicksRemaining)
}

func TestAdvance_RestDrawWithinBounds(t *testing.T) {
	cfg := collar(0.01, fleet.BehaviorPredator)
	rng := rand.New(rand.NewSource(5))
	st := fleet.NewRuntimeState(cfg, rng)

	entered := 0
	for i := 0; i < 5000; i++ {
		wasResting := st.IsResting
		Advance(cfg, st, Afternoon, tickInterval, rng)
		if !wasResting && st.IsResting {
			entered++
			assert.GreaterOrEqual(t, st.RestTicksRemaining, MinRestTicks)
			assert.LessOrEqual(t, st.RestTicksRemaining, MaxRestTicks)
		}
		assert.GreaterOrEqual(t, st.RestTicksRemaining, 0)
	}
	assert.Greater(t, entered, 0)
}

func TestAdvance_RestingDriftIsTiny(t *testing.T) {
	cfg := collar(0.05, fleet.BehaviorHerd)
	rng := rand.New(rand.NewSource(3))
	st := fleet.NewRuntimeState(cfg, rng)
	st.IsResting = true
	st.RestTicksRemaining = 10

	before := st.Position
	Advance(cfg, st, Night, tickInterval, rng)
	assert.InDelta(t, before.Lat(), st.Position.Lat(), RestDrift)
	assert.InDelta(t, before.Lon(), st.Position.Lon(), RestDrift)
}

func TestAdvance_HeadingMomentum(t *testing.T) {
	cfg := collar(10, fleet.BehaviorPredator) // Radius large enough to never correct
	rng := rand.New(rand.NewSource(9))
	st := fleet.NewRuntimeState(cfg, rng)

	for i := 0; i < 2000; i++ {
		prev := st.HeadingDegrees
		info := Advance(cfg, st, Evening, tickInterval, rng)
		if info.IsResting {
			assert.Equal(t, prev, st.HeadingDegrees)
			continue
		}
		diff := st.HeadingDegrees - prev
		if diff > 180 {
			diff -= 360
		} else if diff < -180 {
			diff += 360
		}
		assert.LessOrEqual(t, diff, TurnJitter)
		assert.GreaterOrEqual(t, diff, -TurnJitter)
	}
}

func TestAdvance_SpeedFromDisplacement(t *testing.T) {
	cfg := collar(10, fleet.BehaviorPredator)
	rng := rand.New(rand.NewSource(1))
	st := fleet.NewRuntimeState(cfg, rng)

	for i := 0; i < 200; i++ {
		info := Advance(cfg, st, Evening, tickInterval, rng)
		if info.IsResting {
			continue
		}
		// Evening predator step is 0.00045°, about 50 m in 3 s.
		assert.InDelta(t, 60, info.Speed, 2)
	}
}

// Soft bound: distance never exceeds radius by more than one max step.
func TestAdvance_SoftGeofence(t *testing.T) {
	for _, radius := range []float64{0, 0.0001, 0.001, 0.002, 0.01, 0.05} {
		for _, profile := range []fleet.BehaviorProfile{fleet.BehaviorPredator, fleet.BehaviorGrazer, fleet.BehaviorHerd, fleet.BehaviorBrowser, fleet.BehaviorNone} {
			cfg := collar(radius, profile)
			rng := rand.New(rand.NewSource(int64(radius*1e6) + 17))
			st := fleet.NewRuntimeState(cfg, rng)
			for i := 0; i < 5000; i++ {
				Advance(cfg, st, TimeOfDay(i/250%4), tickInterval, rng)
				d := DistanceFromAnchor(cfg, st)
				require.LessOrEqual(t, d, radius+MaxStep, "radius=%v profile=%s tick=%d", radius, profile, i)
			}
		}
	}
}

func TestAdvance_FixedDevicesStayPut(t *testing.T) {
	for _, dt := range []fleet.DeviceType{fleet.DeviceCameraTrap, fleet.DeviceMotionSensor, fleet.DeviceWeatherStation} {
		cfg := fleet.AgentConfig{ID: "F", DeviceType: dt, Anchor: fleet.Location{Lat: -1.3, Lng: 36.8}, RoamingRadius: 0}
		rng := rand.New(rand.NewSource(2))
		st := fleet.NewRuntimeState(cfg, rng)
		for i := 0; i < 1000; i++ {
			Advance(cfg, st, Morning, tickInterval, rng)
			assert.LessOrEqual(t, DistanceFromAnchor(cfg, st), MaxStep)
		}
	}
}

// One collar at (0,0) with radius 0.01 for 1000 ticks.
func TestAdvance_LongRunExcursionStaysNearRadius(t *testing.T) {
	cfg := collar(0.01, fleet.BehaviorPredator)
	rng := rand.New(rand.NewSource(1000))
	st := fleet.NewRuntimeState(cfg, rng)

	maxDist := 0.0
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 1000; i++ {
		now := start.Add(time.Duration(i) * tickInterval)
		Advance(cfg, st, TimeOfDayAt(now), tickInterval, rng)
		if d := DistanceFromAnchor(cfg, st); d > maxDist {
			maxDist = d
		}
	}
	assert.Less(t, maxDist, 0.011)
}
