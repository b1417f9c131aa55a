// Package progress turns cumulative row counters into throughput and
// completion estimates. The numbers are advisory and never gate the
// pipeline.
package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Estimate is one progress reading.
type Estimate struct {
	Rows    int64
	Total   int64 // 0 when unknown
	Elapsed time.Duration
	Rate    float64 // rows per second; 0 while Elapsed is 0

	// The fields below are meaningful only when HasETA is true.
	HasETA    bool
	Percent   float64
	Remaining time.Duration
	ETA       time.Time
}

// Compute derives an Estimate. A zero elapsed time yields a zero rate and
// no ETA; a zero total yields no percentage and no ETA.
func Compute(rows int64, elapsed time.Duration, total int64, now time.Time) Estimate {
	e := Estimate{Rows: rows, Total: total, Elapsed: elapsed}
	if elapsed > 0 {
		e.Rate = float64(rows) / elapsed.Seconds()
	}
	if total <= 0 {
		return e
	}
	e.Percent = float64(rows) / float64(total) * 100
	if e.Rate <= 0 {
		return e
	}
	left := total - rows
	if left < 0 {
		left = 0
	}
	e.HasETA = true
	e.Remaining = time.Duration(float64(left) / e.Rate * float64(time.Second))
	e.ETA = now.Add(e.Remaining)
	return e
}

// MarshalLogObject renders the estimate as structured log fields.
func (e Estimate) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("rows", e.Rows)
	enc.AddFloat64("rows_per_sec", roundTo(e.Rate, 2))
	enc.AddDuration("elapsed", e.Elapsed.Truncate(time.Second))
	if e.Total > 0 {
		enc.AddInt64("total", e.Total)
		enc.AddFloat64("percent", roundTo(e.Percent, 1))
	}
	if e.HasETA {
		enc.AddDuration("remaining", e.Remaining.Truncate(time.Second))
		enc.AddString("eta", e.ETA.Format(time.TimeOnly))
	}
	return nil
}

func roundTo(f float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(f*p+0.5)) / p
}

// Tracker accumulates rows for one file. It is safe for concurrent use.
type Tracker struct {
	now   func() time.Time
	start time.Time
	total int64

	mu   sync.Mutex
	rows int64
}

// NewTracker starts tracking at the current time. total may be 0.
func NewTracker(total int64) *Tracker { return newTracker(total, time.Now) }

func newTracker(total int64, now func() time.Time) *Tracker {
	return &Tracker{now: now, start: now(), total: total}
}

// Add records n more processed rows and returns the updated estimate.
func (t *Tracker) Add(n int64) Estimate {
	t.mu.Lock()
	t.rows += n
	rows := t.rows
	t.mu.Unlock()
	now := t.now()
	return Compute(rows, now.Sub(t.start), t.total, now)
}

// Snapshot returns the current estimate without changing it.
func (t *Tracker) Snapshot() Estimate { return t.Add(0) }

// Field attaches e to a log entry.
func Field(e Estimate) zap.Field { return zap.Object("progress", e) }
