// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the ingestion pipeline.
//
//   - Backend is a narrow interface for counters and timing data.
//   - A global backend defaults to a no-op implementation, so metrics are
//     always safe to call even when nothing is configured.
//   - Concrete systems (Prometheus Pushgateway, DogStatsD) live in
//     subpackages, the same way storage backends do.
//
// Stages (fetch, extract, normalize, load, resolve, index) report through
// RecordStep; per-country outcomes through RecordCountry.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal       = "ingest_step_total"
	StepDuration    = "ingest_step_duration_seconds"
	CountriesTotal  = "ingest_countries_total"
	AnomaliesTotal  = "ingest_anomalies_total"
	defaultStepName = "unknown"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing
// backend. Call it before a run starts.
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

// RecordStep counts one execution of a pipeline stage and observes its
// duration, labelled success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	if step == "" {
		step = defaultStepName
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordCountry increments the per-country outcome counter.
//
// Kinds mirror the run report, e.g.:
//   - "loaded"
//   - "unchanged"
//   - "failed"
//   - "skipped"
//   - "deferred_resolved"
func RecordCountry(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(CountriesTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordAnomalies counts data-quality findings of one kind.
func RecordAnomalies(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(AnomaliesTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
