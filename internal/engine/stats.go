package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/wildsim/internal/delivery"
)

// TickReport summarizes one tick's deliveries.
type TickReport struct {
	Tick     uint64
	At       time.Time
	Sent     int
	Failed   int
	Aborted  int
	Attempts int
}

// Stats accumulates delivery outcomes over a run. Aborted deliveries count
// toward neither Sent nor Failed.
type Stats struct {
	mu       sync.Mutex
	Ticks    uint64
	Sent     uint64
	Failed   uint64
	Aborted  uint64
	Attempts uint64
}

func (s *Stats) record(tick uint64, at time.Time, outcomes []delivery.Outcome) TickReport {
	rep := TickReport{Tick: tick, At: at}
	for _, o := range outcomes {
		rep.Attempts += o.Attempts
		switch o.Status {
		case delivery.StatusSuccess:
			rep.Sent++
		case delivery.StatusExhausted:
			rep.Failed++
		case delivery.StatusAborted:
			rep.Aborted++
		}
	}

	s.mu.Lock()
	s.Ticks++
	s.Sent += uint64(rep.Sent)
	s.Failed += uint64(rep.Failed)
	s.Aborted += uint64(rep.Aborted)
	s.Attempts += uint64(rep.Attempts)
	s.mu.Unlock()
	return rep
}

// Snapshot returns a copy of the counters safe to read while running.
func (s *Stats) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Ticks:    s.Ticks,
		Sent:     s.Sent,
		Failed:   s.Failed,
		Aborted:  s.Aborted,
		Attempts: s.Attempts,
	}
}

// Summary is the end-of-run report.
type Summary struct {
	Ticks    uint64
	Sent     uint64
	Failed   uint64
	Aborted  uint64
	Attempts uint64
}

// SuccessRate is Sent / (Sent + Failed) as a percentage, 0 when nothing
// was attempted.
func (s Summary) SuccessRate() float64 {
	total := s.Sent + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Sent) / float64(total) * 100
}

// String renders the summary block printed at shutdown.
func (s Summary) String() string {
	return fmt.Sprintf("Simulation Summary:\n  Iterations:   %s\n  Data sent:    %s\n  Failed:       %s\n  Success rate: %.1f%%\n",
		humanize.Comma(int64(s.Ticks)),
		humanize.Comma(int64(s.Sent)),
		humanize.Comma(int64(s.Failed)),
		s.SuccessRate(),
	)
}
