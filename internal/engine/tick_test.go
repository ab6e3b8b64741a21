package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngine_StopsAtCeiling(t *testing.T) {
	e := NewEngine()
	e.Interval = 5 * time.Millisecond
	e.MaxTicks = 5

	var seen []uint64
	e.OnTick = func(_ context.Context, tick uint64) {
		seen = append(seen, tick)
	}

	reason := e.Run(context.Background())
	assert.Equal(t, StopCeiling, reason)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seen)
	assert.Equal(t, StateStopped, e.State())
}

func TestEngine_StopInterrupts(t *testing.T) {
	e := NewEngine()
	e.Interval = 5 * time.Millisecond

	var ticks atomic.Int64
	e.OnTick = func(context.Context, uint64) { ticks.Add(1) }

	go func() {
		time.Sleep(50 * time.Millisecond)
		e.Stop()
	}()

	assert.Equal(t, StopInterrupted, e.Run(context.Background()))
	assert.Positive(t, ticks.Load())
}

func TestEngine_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	e := NewEngine()
	e.Interval = time.Hour
	assert.Equal(t, StopInterrupted, e.Run(ctx))
	assert.Zero(t, e.Tick)
}

// A slow tick delays the next one instead of overlapping it.
func TestEngine_TicksDoNotOverlap(t *testing.T) {
	e := NewEngine()
	e.Interval = 2 * time.Millisecond
	e.MaxTicks = 4

	var running, overlaps atomic.Int32
	e.OnTick = func(context.Context, uint64) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
	}

	e.Run(context.Background())
	assert.Zero(t, overlaps.Load())
	assert.Equal(t, uint64(4), e.Tick)
}
