// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Ingestion runs are batch jobs, so collected metrics are pushed to a
// Pushgateway on Flush instead of being exposed on a scrape endpoint. The
// job label becomes the Pushgateway grouping key, and every push sets
// ingest_last_push_timestamp_seconds so alerting can detect runs that
// stopped happening.
package prompush

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"statesdb/internal/metrics"
)

// LastPush is the gauge set to the wall time of each push.
const LastPush = "ingest_last_push_timestamp_seconds"

const pushTimeout = 10 * time.Second

// stepBuckets span a 10ms extract to a multi-minute full load.
var stepBuckets = prometheus.ExponentialBuckets(0.01, 4, 9)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	pusher *push.Pusher
	now    func() time.Time

	steps     *prometheus.CounterVec   // ingest_step_total
	durations *prometheus.HistogramVec // ingest_step_duration_seconds
	countries *prometheus.CounterVec   // ingest_countries_total
	anomalies *prometheus.CounterVec   // ingest_anomalies_total
	lastPush  prometheus.Gauge
}

// NewBackend returns a backend that pushes to gatewayURL under jobName
// ("statesdb" when empty).
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, errors.New("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "statesdb"
	}

	b := &Backend{
		now: time.Now,
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline stage executions by step and status.",
		}, []string{"step", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StepDuration,
			Help:    "Duration of pipeline stages in seconds by step and status.",
			Buckets: stepBuckets,
		}, []string{"step", "status"}),
		countries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.CountriesTotal,
			Help: "Per-country outcomes (loaded, unchanged, failed, skipped, stale).",
		}, []string{"kind"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.AnomaliesTotal,
			Help: "Data-quality anomalies recorded during ingestion by kind.",
		}, []string{"kind"}),
		lastPush: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: LastPush,
			Help: "Unix time of the last metrics push for this job.",
		}),
	}

	reg := prometheus.NewRegistry()
	if err := registerAll(reg, b.steps, b.durations, b.countries, b.anomalies, b.lastPush); err != nil {
		return nil, err
	}
	b.pusher = push.New(gatewayURL, jobName).
		Gatherer(reg).
		Client(&http.Client{Timeout: pushTimeout})
	return b, nil
}

func registerAll(reg *prometheus.Registry, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("prompush: register: %w", err)
		}
	}
	return nil
}

// IncCounter adds delta to one of the ingestion counters. Unknown names
// are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.steps.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.CountriesTotal:
		b.countries.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.AnomaliesTotal:
		b.anomalies.WithLabelValues(labels["kind"]).Add(delta)
	}
}

// ObserveHistogram records a step duration. Other names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration {
		return
	}
	b.durations.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush stamps LastPush and replaces the job's group on the Pushgateway.
func (b *Backend) Flush() error {
	b.lastPush.Set(float64(b.now().Unix()))
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
