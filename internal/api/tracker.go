package api

import (
	"sync"
	"time"

	"github.com/airspacelab/pairgen/internal/encounter"
)

// Status is a point-in-time snapshot of a generation run.
type Status struct {
	Running     bool      `json:"running"`
	StartedAt   time.Time `json:"started_at"`
	Requested   int       `json:"requested"`
	Completed   int       `json:"completed"`
	TotalTrials int       `json:"total_trials"`
	AcceptRate  float64   `json:"accept_rate"`
	ElapsedSec  float64   `json:"elapsed_sec"`
	InitialSeed uint64    `json:"initial_seed"`
}

// Tracker accumulates run progress for the monitor endpoints. The
// generator runs on one goroutine and HTTP handlers on others, so every
// access goes through the mutex.
type Tracker struct {
	mu sync.RWMutex

	startedAt   time.Time
	requested   int
	completed   int
	totalTrials int
	initialSeed uint64
	done        bool
	records     []encounter.Record
}

// NewTracker starts tracking a run of the given size.
func NewTracker(requested int, initialSeed uint64) *Tracker {
	return &Tracker{
		startedAt:   time.Now(),
		requested:   requested,
		initialSeed: initialSeed,
		records:     make([]encounter.Record, 0, requested),
	}
}

// EncounterAccepted records one accepted encounter.
func (t *Tracker) EncounterAccepted(rec encounter.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
	t.totalTrials += rec.Trials
	t.records = append(t.records, rec)
}

// RunComplete marks the run finished.
func (t *Tracker) RunComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

// Status returns the current snapshot.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Status{
		Running:     !t.done,
		StartedAt:   t.startedAt,
		Requested:   t.requested,
		Completed:   t.completed,
		TotalTrials: t.totalTrials,
		ElapsedSec:  time.Since(t.startedAt).Seconds(),
		InitialSeed: t.initialSeed,
	}
	if t.totalTrials > 0 {
		s.AcceptRate = float64(t.completed) / float64(t.totalTrials)
	}
	return s
}

// Records returns a copy of the accepted records so far, in request order.
func (t *Tracker) Records() []encounter.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]encounter.Record, len(t.records))
	copy(out, t.records)
	return out
}

// Record returns the idx-th accepted record (zero-based request order).
func (t *Tracker) Record(idx int) (encounter.Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx < 0 || idx >= len(t.records) {
		return encounter.Record{}, false
	}
	return t.records[idx], true
}
