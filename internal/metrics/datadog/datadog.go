// Package datadog sends ingestion metrics to a DogStatsD agent.
//
// Metric names are rewritten into Datadog's dotted form
// ("ingest_countries_total" becomes "ingest.countries") and labels become
// "key:value" tags. Step durations are sent as distributions so percentiles
// aggregate across hosts.
package datadog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"statesdb/internal/metrics"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or
	// "unix:///var/run/datadog/dsd.socket".
	Addr string
	// Namespace prefixes every metric, e.g. "statesdb.".
	Namespace string
	// GlobalTags are added to every metric, e.g. "env:prod".
	GlobalTags []string
}

// client is the part of statsd.ClientInterface the backend uses.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Distribution(name string, value float64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	Flush() error
	Close() error
}

// Backend implements metrics.Backend on a statsd client.
type Backend struct {
	client client
}

// NewBackend dials the agent at cfg.Addr.
func NewBackend(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("datadog: addr is required")
	}
	opts := []statsd.Option{statsd.WithoutTelemetry()}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter sends a count. Fractional deltas are truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	_ = b.client.Count(metricName(name), int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram sends durations as distributions and anything else as a
// histogram.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if strings.HasSuffix(name, "_seconds") {
		_ = b.client.Distribution(metricName(name), value, labelsToTags(labels), 1)
		return
	}
	_ = b.client.Histogram(metricName(name), value, labelsToTags(labels), 1)
}

// Flush sends buffered datagrams and closes the client. The backend is
// unusable afterwards; call it once when the run ends.
func (b *Backend) Flush() error {
	if err := b.client.Flush(); err != nil {
		_ = b.client.Close()
		return fmt.Errorf("datadog: flush: %w", err)
	}
	return b.client.Close()
}

// metricName maps "ingest_step_total" onto "ingest.step".
func metricName(name string) string {
	name = strings.TrimSuffix(name, "_total")
	if rest, ok := strings.CutPrefix(name, "ingest_"); ok {
		return "ingest." + rest
	}
	return name
}

// labelsToTags renders labels as sorted "key:value" tags. Empty values are
// dropped.
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		if v == "" {
			continue
		}
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
