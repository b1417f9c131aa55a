// Package etl drives source files through the conversion pipeline: read,
// transform, spool, merge. It owns per-file job state, the skip check, and
// failure isolation across a multi-file run.
package etl

import (
	"time"

	"github.com/cockroachdb/errors"

	"stopprep/internal/datasource/file"
)

// State is the lifecycle position of one ConversionJob.
type State uint8

const (
	Pending State = iota
	Reading
	Transforming
	Spooling
	Merging
	Done
	Failed
)

var stateNames = [...]string{"pending", "reading", "transforming", "spooling", "merging", "done", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Done || s == Failed }

// next lists the legal successors of each non-terminal state, besides Failed.
var next = map[State][]State{
	Pending:      {Reading},
	Reading:      {Transforming, Merging},
	Transforming: {Spooling},
	Spooling:     {Reading},
	Merging:      {Done},
}

// ErrBadTransition is the cause of an illegal state change.
var ErrBadTransition = errors.New("illegal job state transition")

// Job is the conversion of one source file.
type Job struct {
	Source file.Source
	Output string

	State   State
	Total   int64 // records counted by the pre-pass, 0 when not counted
	Rows    int64 // rows spooled so far
	Batches int
	Err     error

	Started  time.Time
	Finished time.Time
}

// NewJob returns a pending job for src writing to output.
func NewJob(src file.Source, output string) *Job {
	return &Job{Source: src, Output: output}
}

func (j *Job) transition(to State) error {
	if j.State.Terminal() {
		return errors.Wrapf(ErrBadTransition, "%s -> %s: job already %s", j.State, to, j.State)
	}
	if to == Failed {
		j.State = to
		return nil
	}
	for _, s := range next[j.State] {
		if s == to {
			j.State = to
			return nil
		}
	}
	return errors.Wrapf(ErrBadTransition, "%s -> %s", j.State, to)
}

// fail moves the job to Failed and records err. It keeps the first error.
func (j *Job) fail(err error) {
	if j.Err == nil {
		j.Err = err
	}
	if !j.State.Terminal() {
		j.State = Failed
	}
}
