// Package metrics records operational metrics from the conversion pipeline
// through a pluggable Backend.
//
// The global backend defaults to a no-op, so every Record* helper is safe to
// call whether or not a real backend was configured. Concrete systems live
// in subpackages (prompush, datadog).
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal    = "stopprep_step_total"
	StepDuration = "stopprep_step_duration_seconds"
	RecordsTotal = "stopprep_records_total"
	BatchesTotal = "stopprep_batches_total"
	FilesTotal   = "stopprep_files_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one execution of a pipeline step (count, transform,
// spool, merge) for a file and observes its latency.
func RecordStep(file, step string, err error, d time.Duration) {
	lbls := Labels{
		"file":   file,
		"step":   step,
		"status": status(err),
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter. Kinds used by the pipeline:
//   - "read"
//   - "written"
//   - "dropped_columns"
//   - "duplicate_ids"
func RecordRow(file, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"file": file,
		"kind": kind,
	})
}

// RecordBatches increments the spooled batch counter for a file.
func RecordBatches(file string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"file": file,
	})
}

// RecordFile counts a finished file by outcome: "converted", "skipped" or
// "failed". class is the error class for failures and empty otherwise.
func RecordFile(file, outcome, class string) {
	lbls := Labels{"file": file, "status": outcome}
	if class != "" {
		lbls["class"] = class
	}
	backend.IncCounter(FilesTotal, 1, lbls)
}
