package pipeline

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"statesdb/internal/index"
	"statesdb/internal/model"
)

// Stage names a step of the run. Failures and durations are keyed by it.
type Stage string

const (
	StageList      Stage = "list"
	StageBorders   Stage = "borders"
	StageFetch     Stage = "fetch"
	StageExtract   Stage = "extract"
	StageNormalize Stage = "normalize"
	StageLoad      Stage = "load"
	StageDeferred  Stage = "deferred"
	StageStale     Stage = "stale"
	StageIndex     Stage = "index"
)

// Failure is one country (or run-level step) that did not make it into the
// store.
type Failure struct {
	Locator   string `json:"locator"`
	Country   string `json:"country,omitempty"`
	Stage     Stage  `json:"stage"`
	Transient bool   `json:"transient,omitempty"`
	Reason    string `json:"reason"`
}

// Report summarizes one Run.
type Report struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Listed is the number of country locators the run worked from.
	Listed int `json:"listed"`
	// Loaded counts committed country transactions; Inserted and Unchanged
	// are subsets of it.
	Loaded    int `json:"loaded"`
	Inserted  int `json:"inserted"`
	Unchanged int `json:"unchanged"`
	// Skipped holds locators left out by the resume cursor.
	Skipped          []string  `json:"skipped,omitempty"`
	Failed           []Failure `json:"failed,omitempty"`
	DeferredResolved int       `json:"deferred_resolved"`
	// Stale is the number of stored countries flagged stale, or -1 when the
	// run did not qualify for stale marking.
	Stale     int             `json:"stale"`
	Anomalies []model.Anomaly `json:"anomalies,omitempty"`
	Index     index.Stats     `json:"index"`

	Durations map[Stage]time.Duration `json:"durations"`
	Elapsed   time.Duration           `json:"elapsed"`
	Cancelled bool                    `json:"cancelled"`
}

// AnomalyCounts groups the run's anomalies by kind.
func (r Report) AnomalyCounts() map[model.AnomalyKind]int {
	out := map[model.AnomalyKind]int{}
	for _, a := range r.Anomalies {
		out[a.Kind]++
	}
	return out
}

// FailedStages groups failures by stage.
func (r Report) FailedStages() map[Stage]int {
	out := map[Stage]int{}
	for _, f := range r.Failed {
		out[f.Stage]++
	}
	return out
}

// fields renders the summary line logged at the end of a run.
func (r Report) fields() []zap.Field {
	return []zap.Field{
		zap.Int("listed", r.Listed),
		zap.Int("loaded", r.Loaded),
		zap.Int("inserted", r.Inserted),
		zap.Int("unchanged", r.Unchanged),
		zap.Int("skipped", len(r.Skipped)),
		zap.Int("failed", len(r.Failed)),
		zap.Int("deferred_resolved", r.DeferredResolved),
		zap.Int("stale", r.Stale),
		zap.Int("anomalies", len(r.Anomalies)),
		zap.Bool("cancelled", r.Cancelled),
		zap.Duration("elapsed", r.Elapsed.Truncate(time.Millisecond)),
	}
}

// collector is the concurrent-safe accumulator behind a Report. Workers and
// the loader goroutine both write to it.
type collector struct {
	mu  sync.Mutex
	rep Report
}

func (c *collector) fail(f Failure) {
	c.mu.Lock()
	c.rep.Failed = append(c.rep.Failed, f)
	c.mu.Unlock()
}

func (c *collector) anomalies(a []model.Anomaly) {
	if len(a) == 0 {
		return
	}
	c.mu.Lock()
	c.rep.Anomalies = append(c.rep.Anomalies, a...)
	c.mu.Unlock()
}

func (c *collector) took(s Stage, d time.Duration) {
	c.mu.Lock()
	c.rep.Durations[s] += d
	c.mu.Unlock()
}

func (c *collector) update(fn func(r *Report)) {
	c.mu.Lock()
	fn(&c.rep)
	c.mu.Unlock()
}

// snapshot returns the report with failures and anomalies in a stable order.
func (c *collector) snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.rep
	r.Failed = append([]Failure(nil), c.rep.Failed...)
	r.Anomalies = append([]model.Anomaly(nil), c.rep.Anomalies...)
	r.Skipped = append([]string(nil), c.rep.Skipped...)
	r.Durations = make(map[Stage]time.Duration, len(c.rep.Durations))
	for k, v := range c.rep.Durations {
		r.Durations[k] = v
	}
	sort.SliceStable(r.Failed, func(i, j int) bool { return r.Failed[i].Locator < r.Failed[j].Locator })
	sort.SliceStable(r.Anomalies, func(i, j int) bool {
		a, b := r.Anomalies[i], r.Anomalies[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		return a.Value < b.Value
	})
	sort.Strings(r.Skipped)
	return r
}
