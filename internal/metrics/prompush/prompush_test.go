package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"statesdb/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, v *prometheus.HistogramVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	if err := v.WithLabelValues(labels...).(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("Histogram.Write() error = %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestNewBackend_RequiresGateway(t *testing.T) {
	t.Parallel()
	if _, err := NewBackend("job", ""); err == nil {
		t.Fatal("NewBackend with empty gateway err=nil, want error")
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://127.0.0.1:9091")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	tests := []struct {
		name    string
		metric  string
		labels  metrics.Labels
		deltas  []float64
		counter func() prometheus.Counter
		want    float64
	}{
		{
			name:    "step",
			metric:  metrics.StepTotal,
			labels:  metrics.Labels{"job": "ingest", "step": "load", "status": "success"},
			deltas:  []float64{1, 1, 1},
			counter: func() prometheus.Counter { return b.steps.WithLabelValues("load", "success") },
			want:    3,
		},
		{
			name:    "countries",
			metric:  metrics.CountriesTotal,
			labels:  metrics.Labels{"kind": "loaded"},
			deltas:  []float64{190, 3},
			counter: func() prometheus.Counter { return b.countries.WithLabelValues("loaded") },
			want:    193,
		},
		{
			name:    "anomalies",
			metric:  metrics.AnomaliesTotal,
			labels:  metrics.Labels{"kind": "dangling_neighbor"},
			deltas:  []float64{2},
			counter: func() prometheus.Counter { return b.anomalies.WithLabelValues("dangling_neighbor") },
			want:    2,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for _, d := range tt.deltas {
				b.IncCounter(tt.metric, d, tt.labels)
			}
			if got := counterValue(t, tt.counter()); got != tt.want {
				t.Fatalf("%s = %v, want %v", tt.metric, got, tt.want)
			}
		})
	}

	// unknown names are dropped without panicking
	b.IncCounter("made_up_total", 1, nil)
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("statesdb-ingest", "http://127.0.0.1:9091")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	lbls := metrics.Labels{"step": "fetch", "status": "failure"}
	b.ObserveHistogram(metrics.StepDuration, 0.5, lbls)
	b.ObserveHistogram(metrics.StepDuration, 1.5, lbls)
	b.ObserveHistogram("page_bytes", 100, lbls)

	count, sum := histogramCount(t, b.durations, "fetch", "failure")
	if count != 2 || sum != 2 {
		t.Fatalf("durations count=%d sum=%v, want 2 and 2", count, sum)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method string
		path   string
		body   string
	}
	reqCh := make(chan pushed, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("statesdb-ingest", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	b.IncCounter(metrics.CountriesTotal, 1, metrics.Labels{"kind": "stale"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	var got pushed
	select {
	case got = <-reqCh:
	default:
		t.Fatal("Flush() did not reach the Pushgateway")
	}
	if got.method != http.MethodPut {
		t.Fatalf("push method = %q, want PUT", got.method)
	}
	if got.path != "/metrics/job/statesdb-ingest" {
		t.Fatalf("push path = %q", got.path)
	}
	if got.body == "" {
		t.Fatal("push body is empty")
	}
	m := &dto.Metric{}
	if err := b.lastPush.Write(m); err != nil {
		t.Fatalf("Gauge.Write() error = %v", err)
	}
	if v := m.GetGauge().GetValue(); v != 1_700_000_000 {
		t.Fatalf("%s = %v, want 1700000000", LastPush, v)
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("statesdb-ingest", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	err = b.Flush()
	if err == nil || !strings.Contains(err.Error(), "prompush: push") {
		t.Fatalf("Flush() err=%v, want push error", err)
	}
}

func BenchmarkObserveHistogram(b *testing.B) {
	be, err := NewBackend("bench", "http://127.0.0.1:9091")
	if err != nil {
		b.Fatalf("NewBackend() error = %v", err)
	}
	lbls := metrics.Labels{"step": "normalize", "status": "success"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		be.ObserveHistogram(metrics.StepDuration, 0.02, lbls)
	}
}
