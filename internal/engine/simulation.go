// Simulation ties the per-agent pipeline together and runs it each tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/wildsim/internal/battery"
	"github.com/talgya/wildsim/internal/delivery"
	"github.com/talgya/wildsim/internal/entropy"
	"github.com/talgya/wildsim/internal/fleet"
	"github.com/talgya/wildsim/internal/movement"
	"github.com/talgya/wildsim/internal/reading"
	"github.com/talgya/wildsim/internal/terrain"
	"github.com/talgya/wildsim/internal/weather"
)

// Deliverer ships one payload and reports a terminal outcome.
type Deliverer interface {
	Deliver(ctx context.Context, id fleet.AgentID, payload any) delivery.Outcome
}

// Journal receives every synthesized reading with its outcome.
type Journal interface {
	Write(v any) error
}

// Recorder persists per-tick statistics.
type Recorder interface {
	RecordTick(r TickReport) error
}

// JournalEntry is one line in the reading journal.
type JournalEntry struct {
	Tick     uint64          `json:"tick"`
	Status   string          `json:"status"`
	Attempts int             `json:"attempts"`
	Reading  reading.Reading `json:"reading"`
}

// Simulation holds the fleet, its runtime state and the shared environment.
type Simulation struct {
	Agents   []fleet.AgentConfig
	States   map[fleet.AgentID]*fleet.RuntimeState // Created on first tick for each agent
	Env      weather.State
	Interval time.Duration
	MaxTicks uint64 // For iteration log lines only; the Engine enforces it
	Clock    func() time.Time

	Deliverer Deliverer
	Journal   Journal  // Optional
	Recorder  Recorder // Optional

	Stats Stats

	rngs      map[fleet.AgentID]*rand.Rand
	envRng    *rand.Rand
	altitudes map[fleet.AgentID]float64
}

// NewSimulation creates a Simulation for the roster. A nil clock means
// wall-clock time.
func NewSimulation(roster []fleet.AgentConfig, d Deliverer, src *entropy.Source, clock func() time.Time) *Simulation {
	if clock == nil {
		clock = time.Now
	}

	field := terrain.NewField(src.Seed())
	rngs := make(map[fleet.AgentID]*rand.Rand, len(roster))
	alts := make(map[fleet.AgentID]float64, len(roster))
	for _, a := range roster {
		rngs[a.ID] = src.Stream(string(a.ID))
		alts[a.ID] = field.Altitude(a.Anchor)
	}

	envRng := src.Stream("environment")
	return &Simulation{
		Agents:    roster,
		States:    make(map[fleet.AgentID]*fleet.RuntimeState, len(roster)),
		Env:       weather.NewState(clock(), envRng),
		Interval:  DefaultInterval,
		Clock:     clock,
		Deliverer: d,
		rngs:      rngs,
		envRng:    envRng,
		altitudes: alts,
	}
}

// state returns the agent's runtime state, creating it on first reference.
// Only called from the orchestrator goroutine.
func (s *Simulation) state(a fleet.AgentConfig) *fleet.RuntimeState {
	st, ok := s.States[a.ID]
	if !ok {
		st = fleet.NewRuntimeState(a, s.rngs[a.ID])
		s.States[a.ID] = st
	}
	return st
}

// Tick runs one tick: update the environment, then advance, drain,
// synthesize and deliver for every agent concurrently. Returns once every
// agent's delivery has resolved.
func (s *Simulation) Tick(ctx context.Context, tick uint64) TickReport {
	now := s.Clock()

	if s.Env.Update(now, s.envRng) {
		slog.Debug("environment updated",
			"temp", fmt.Sprintf("%.2f", s.Env.BaseTemperature),
			"humidity", fmt.Sprintf("%.2f", s.Env.Humidity),
			"wind", fmt.Sprintf("%.2f", s.Env.WindSpeed),
			"rain", fmt.Sprintf("%.2f", s.Env.Rainfall),
		)
	}
	env := s.Env.Snapshot()
	tod := movement.TimeOfDayAt(now)

	slog.Info("iteration", "tick", tick, "of", ceilingLabel(s.MaxTicks), "time_of_day", tod.String())

	outcomes := make([]delivery.Outcome, len(s.Agents))
	var g errgroup.Group
	for i, a := range s.Agents {
		st := s.state(a)
		rng := s.rngs[a.ID]
		alt := s.altitudes[a.ID]
		g.Go(func() error {
			outcomes[i] = s.step(ctx, tick, a, st, rng, alt, env, tod, now)
			return nil
		})
	}
	_ = g.Wait()

	report := s.Stats.record(tick, now, outcomes)
	slog.Debug("tick complete",
		"tick", tick,
		"sent", report.Sent,
		"failed", report.Failed,
		"aborted", report.Aborted,
	)

	if s.Recorder != nil {
		if err := s.Recorder.RecordTick(report); err != nil {
			slog.Error("record tick failed", "tick", tick, "error", err)
		}
	}
	return report
}

// step is one agent's pipeline for one tick. It touches only st and rng.
func (s *Simulation) step(ctx context.Context, tick uint64, a fleet.AgentConfig, st *fleet.RuntimeState, rng *rand.Rand, alt float64, env weather.State, tod movement.TimeOfDay, now time.Time) delivery.Outcome {
	info := movement.Advance(a, st, tod, s.Interval, rng)
	charge := battery.Drain(st, a.DeviceType)

	r := reading.Synthesize(reading.Input{
		Config:         a,
		Position:       st.Position,
		Movement:       info,
		Env:            env,
		Battery:        charge,
		AnchorAltitude: alt,
		Now:            now,
	}, rng)

	out := s.Deliverer.Deliver(ctx, a.ID, r)

	if s.Journal != nil {
		entry := JournalEntry{Tick: tick, Status: out.Status.String(), Attempts: out.Attempts, Reading: r}
		if err := s.Journal.Write(entry); err != nil {
			slog.Warn("journal write failed", "sensor", a.ID, "error", err)
		}
	}
	return out
}

func ceilingLabel(max uint64) string {
	if max == 0 {
		return "∞"
	}
	return fmt.Sprintf("%d", max)
}
