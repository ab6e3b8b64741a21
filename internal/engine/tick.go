// Package engine provides the fixed-interval tick loop and the orchestrator
// that fans each tick out across the fleet.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the wall-clock time between ticks.
const DefaultInterval = 3 * time.Second

// State is the lifecycle of the engine.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

// StopReason says why Run returned.
type StopReason uint8

const (
	StopCeiling     StopReason = iota // Iteration ceiling reached
	StopInterrupted                   // Stop called or parent context done
)

// String returns a human-readable reason.
func (r StopReason) String() string {
	if r == StopCeiling {
		return "iteration limit reached"
	}
	return "interrupted"
}

// Engine drives the simulation forward at a fixed rate. A tick callback
// runs to completion before the next tick can start.
type Engine struct {
	Tick     uint64        // Ticks completed (monotonic)
	Interval time.Duration // Wall time between ticks
	MaxTicks uint64        // Iteration ceiling; 0 = unbounded

	// OnTick is called once per tick with the 1-based tick number.
	OnTick func(ctx context.Context, tick uint64)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval: DefaultInterval,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run starts the tick loop and blocks until the ceiling is reached, Stop is
// called or ctx is done. The first tick fires one interval after start.
func (e *Engine) Run(ctx context.Context) StopReason {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.state = StateRunning
	e.cancel = cancel
	e.mu.Unlock()

	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("simulation engine started", "tick", e.Tick, "interval", interval, "max_ticks", e.MaxTicks)

	reason := StopInterrupted
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		e.Tick++
		if e.OnTick != nil {
			e.OnTick(ctx, e.Tick)
		}

		if e.MaxTicks > 0 && e.Tick >= e.MaxTicks {
			reason = StopCeiling
			break loop
		}
	}

	e.mu.Lock()
	e.state = StateStopped
	e.cancel = nil
	e.mu.Unlock()

	slog.Info("simulation engine stopped", "tick", e.Tick, "reason", reason.String())
	return reason
}

// Stop halts the loop. In-flight deliveries see their context cancelled
// and are abandoned rather than drained.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}
