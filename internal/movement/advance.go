package movement

import (
	"math"
	"math/rand"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/talgya/wildsim/internal/entropy"
	"github.com/talgya/wildsim/internal/fleet"
)

// Movement constants, in degrees unless noted.
const (
	BaseStep     = 0.0005 // Step at Activity × SpeedFactor = 1
	MaxStep      = BaseStep
	TurnJitter   = 15.0    // Max heading change per Active tick
	RestDrift    = 0.00005 // GPS jitter amplitude while resting
	GeofencePull = 0.2     // Fraction of the way back to the anchor
	MinRestTicks = 3
	MaxRestTicks = 10
)

// Info describes what the agent did this tick.
type Info struct {
	Speed     float64 // km/h, from actual displacement; 0 while resting
	IsResting bool
	TimeOfDay TimeOfDay
}

// Advance steps st forward by one tick. The state is mutated in place and
// must only be touched by this agent's own step.
func Advance(cfg fleet.AgentConfig, st *fleet.RuntimeState, tod TimeOfDay, interval time.Duration, rng *rand.Rand) Info {
	p := PatternFor(cfg, tod)

	if st.IsResting {
		st.RestTicksRemaining--
		if st.RestTicksRemaining > 0 {
			return rest(cfg, st, tod, rng)
		}
		// Waking up: move this tick without re-rolling rest.
		st.IsResting = false
		st.RestTicksRemaining = 0
		return active(cfg, st, p, tod, interval, rng)
	}

	if entropy.Bernoulli(rng, p.RestProbability) {
		st.IsResting = true
		st.RestTicksRemaining = entropy.IntRange(rng, MinRestTicks, MaxRestTicks)
		return rest(cfg, st, tod, rng)
	}

	return active(cfg, st, p, tod, interval, rng)
}

func rest(cfg fleet.AgentConfig, st *fleet.RuntimeState, tod TimeOfDay, rng *rand.Rand) Info {
	next := orb.Point{
		st.Position[0] + entropy.Uniform(rng, -RestDrift, RestDrift),
		st.Position[1] + entropy.Uniform(rng, -RestDrift, RestDrift),
	}
	st.Position = geofence(cfg, st, next)
	return Info{Speed: 0, IsResting: true, TimeOfDay: tod}
}

func active(cfg fleet.AgentConfig, st *fleet.RuntimeState, p Pattern, tod TimeOfDay, interval time.Duration, rng *rand.Rand) Info {
	st.HeadingDegrees = normalizeHeading(st.HeadingDegrees + entropy.Uniform(rng, -TurnJitter, TurnJitter))

	step := BaseStep * p.SpeedFactor * p.Activity
	prev := st.Position
	next := Offset(prev, st.HeadingDegrees, step)
	next = geofence(cfg, st, next)
	st.Position = next

	speed := 0.0
	if hours := interval.Hours(); hours > 0 {
		speed = geo.Distance(prev, next) / 1000 / hours
	}
	return Info{Speed: speed, IsResting: false, TimeOfDay: tod}
}

// geofence applies the soft correction: once outside the roaming radius the
// heading turns toward the anchor and the point is pulled part way back.
func geofence(cfg fleet.AgentConfig, st *fleet.RuntimeState, p orb.Point) orb.Point {
	anchor := cfg.Anchor.Point()
	if planar.Distance(p, anchor) <= cfg.RoamingRadius {
		return p
	}
	st.HeadingDegrees = HeadingTo(p, anchor)
	return orb.Point{
		p[0] + GeofencePull*(anchor[0]-p[0]),
		p[1] + GeofencePull*(anchor[1]-p[1]),
	}
}

// Offset moves p by dist degrees along heading (0 = north, clockwise).
func Offset(p orb.Point, heading, dist float64) orb.Point {
	rad := heading * math.Pi / 180
	return orb.Point{
		p[0] + dist*math.Sin(rad),
		p[1] + dist*math.Cos(rad),
	}
}

// HeadingTo returns the planar heading from a to b in [0, 360).
func HeadingTo(a, b orb.Point) float64 {
	deg := math.Atan2(b[0]-a[0], b[1]-a[1]) * 180 / math.Pi
	return normalizeHeading(deg)
}

// DistanceFromAnchor returns the planar distance in degrees.
func DistanceFromAnchor(cfg fleet.AgentConfig, st *fleet.RuntimeState) float64 {
	return planar.Distance(st.Position, cfg.Anchor.Point())
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
