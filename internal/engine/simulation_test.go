package engine

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wildsim/internal/delivery"
	"github.com/talgya/wildsim/internal/entropy"
	"github.com/talgya/wildsim/internal/fleet"
	"github.com/talgya/wildsim/internal/reading"
)

// stepClock advances by step on every call.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newClock(start time.Time) *stepClock {
	return &stepClock{t: start.Add(-3 * time.Second), step: 3 * time.Second}
}

// fakeDeliverer records every payload and answers with a fixed status.
type fakeDeliverer struct {
	mu       sync.Mutex
	status   delivery.Status
	delay    time.Duration
	readings map[fleet.AgentID][]reading.Reading

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeDeliverer(status delivery.Status) *fakeDeliverer {
	return &fakeDeliverer{status: status, readings: make(map[fleet.AgentID][]reading.Reading)}
}

func (f *fakeDeliverer) Deliver(ctx context.Context, id fleet.AgentID, payload any) delivery.Outcome {
	n := f.inFlight.Add(1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.inFlight.Add(-1)

	f.mu.Lock()
	f.readings[id] = append(f.readings[id], payload.(reading.Reading))
	f.mu.Unlock()
	return delivery.Outcome{AgentID: id, Status: f.status, Attempts: 1}
}

func (f *fakeDeliverer) count(id fleet.AgentID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readings[id])
}

type memJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

func (j *memJournal) Write(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, v.(JournalEntry))
	return nil
}

type memRecorder struct {
	reports []TickReport
}

func (r *memRecorder) RecordTick(rep TickReport) error {
	r.reports = append(r.reports, rep)
	return nil
}

var morning = time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)

func TestTick_CreatesStateLazily(t *testing.T) {
	roster := fleet.DefaultRoster()
	sim := NewSimulation(roster, newFakeDeliverer(delivery.StatusSuccess), entropy.NewSource(1), newClock(morning).Now)
	assert.Empty(t, sim.States)

	sim.Tick(context.Background(), 1)
	assert.Len(t, sim.States, len(roster))
}

func TestTick_BarrierWaitsForAllAgents(t *testing.T) {
	roster := fleet.DefaultRoster()
	d := newFakeDeliverer(delivery.StatusSuccess)
	d.delay = 50 * time.Millisecond
	sim := NewSimulation(roster, d, entropy.NewSource(2), newClock(morning).Now)

	start := time.Now()
	rep := sim.Tick(context.Background(), 1)

	assert.Equal(t, len(roster), rep.Sent)
	assert.Zero(t, d.inFlight.Load(), "no delivery outlives its tick")
	assert.Equal(t, int32(len(roster)), d.maxInFlight.Load(), "agents deliver concurrently")
	assert.Less(t, time.Since(start), time.Duration(len(roster))*50*time.Millisecond)
	for _, a := range roster {
		assert.Equal(t, 1, d.count(a.ID))
	}
}

// Unreachable endpoint: every agent fails every tick after one attempt.
func TestTick_RefusedEndpointCountsFailures(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + l.Addr().String() + "/api/iot/data"
	require.NoError(t, l.Close())

	roster := fleet.DefaultRoster()[:3]
	client := delivery.NewClient(delivery.Options{URL: url, RetryDelay: time.Second})
	sim := NewSimulation(roster, client, entropy.NewSource(3), newClock(morning).Now)

	const ticks = 4
	for i := uint64(1); i <= ticks; i++ {
		sim.Tick(context.Background(), i)
	}

	sum := sim.Stats.Snapshot()
	assert.Equal(t, uint64(ticks), sum.Ticks)
	assert.Equal(t, uint64(ticks*len(roster)), sum.Failed)
	assert.Equal(t, uint64(ticks*len(roster)), sum.Attempts)
	assert.Zero(t, sum.Sent)
	assert.Zero(t, sum.SuccessRate())
}

func TestTick_AbortedNotCounted(t *testing.T) {
	sim := NewSimulation(fleet.DefaultRoster(), newFakeDeliverer(delivery.StatusAborted), entropy.NewSource(4), newClock(morning).Now)
	rep := sim.Tick(context.Background(), 1)

	assert.Equal(t, 6, rep.Aborted)
	sum := sim.Stats.Snapshot()
	assert.Zero(t, sum.Sent)
	assert.Zero(t, sum.Failed)
}

func TestTick_SameSeedSameReadings(t *testing.T) {
	run := func() *fakeDeliverer {
		d := newFakeDeliverer(delivery.StatusSuccess)
		sim := NewSimulation(fleet.DefaultRoster(), d, entropy.NewSource(42), newClock(morning).Now)
		for i := uint64(1); i <= 20; i++ {
			sim.Tick(context.Background(), i)
		}
		return d
	}
	a, b := run(), run()
	for _, agent := range fleet.DefaultRoster() {
		assert.Equal(t, a.readings[agent.ID], b.readings[agent.ID], agent.ID)
	}
}

func TestTick_EnvironmentSharedAndRateLimited(t *testing.T) {
	d := newFakeDeliverer(delivery.StatusSuccess)
	sim := NewSimulation(fleet.DefaultRoster(), d, entropy.NewSource(5), newClock(morning).Now)

	updates := 0
	last := sim.Env.LastUpdate
	for i := uint64(1); i <= 4*60*20; i++ { // 4h of 3s ticks
		sim.Tick(context.Background(), i)
		if !sim.Env.LastUpdate.Equal(last) {
			assert.GreaterOrEqual(t, sim.Env.LastUpdate.Sub(last), 30*time.Minute)
			last = sim.Env.LastUpdate
			updates++
		}
	}
	assert.Equal(t, 8, updates)

	// The weather station reports the shared base temperature verbatim.
	ws := d.readings["WEATHER_STATION_001"]
	require.NotEmpty(t, ws)
	assert.Equal(t, reading.Round(sim.Env.BaseTemperature, 2), *ws[len(ws)-1].Temperature)
}

func TestTick_JournalAndRecorder(t *testing.T) {
	roster := fleet.DefaultRoster()
	sim := NewSimulation(roster, newFakeDeliverer(delivery.StatusSuccess), entropy.NewSource(6), newClock(morning).Now)
	j := &memJournal{}
	rec := &memRecorder{}
	sim.Journal = j
	sim.Recorder = rec

	sim.Tick(context.Background(), 1)
	sim.Tick(context.Background(), 2)

	assert.Len(t, j.entries, 2*len(roster))
	require.Len(t, rec.reports, 2)
	assert.Equal(t, uint64(2), rec.reports[1].Tick)
	assert.Equal(t, len(roster), rec.reports[1].Sent)
	for _, e := range j.entries {
		assert.Equal(t, "success", e.Status)
	}
}

func TestTick_BatteryNeverBelowFloor(t *testing.T) {
	sim := NewSimulation(fleet.DefaultRoster(), newFakeDeliverer(delivery.StatusSuccess), entropy.NewSource(7), newClock(morning).Now)
	for i := uint64(1); i <= 3000; i++ {
		sim.Tick(context.Background(), i)
	}
	for id, st := range sim.States {
		assert.GreaterOrEqual(t, st.BatteryCharge, fleet.BatteryFloor, id)
	}
	assert.Equal(t, fleet.BatteryFloor, sim.States["GPS_COLLAR_001"].BatteryCharge)
}

func TestSummary(t *testing.T) {
	s := Summary{Ticks: 1200, Sent: 7000, Failed: 200}
	assert.InDelta(t, 97.22, s.SuccessRate(), 0.01)
	out := s.String()
	assert.Contains(t, out, "7,000")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "97.2%")
	assert.Zero(t, Summary{}.SuccessRate())
}
