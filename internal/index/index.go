// Package index re-asserts the secondary indexes of the country store and
// refreshes planner statistics after an ingestion batch.
package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"statesdb/internal/ddl"
	"statesdb/internal/metrics"
	"statesdb/internal/schema"
	"statesdb/internal/storage"
)

// Stats summarizes one Rebuild.
type Stats struct {
	Indexes    int           `json:"indexes"`
	Statements int           `json:"analyze_statements"`
	Duration   time.Duration `json:"duration"`
}

// Indexer owns the index definitions for a Store.
type Indexer struct {
	store   storage.Store
	indexes []ddl.IndexDef
	tables  []string
	job     string
	log     *zap.Logger
}

// New returns an Indexer for the default country schema.
func New(s storage.Store, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		store:   s,
		indexes: schema.Indexes(),
		tables:  schema.Store().TableNames(),
		job:     "ingest",
		log:     log,
	}
}

// WithJob sets the job label used for step metrics.
func (ix *Indexer) WithJob(job string) *Indexer {
	if job != "" {
		ix.job = job
	}
	return ix
}

// Rebuild creates every missing index and then refreshes statistics for all
// tables. Both steps are idempotent; Rebuild runs after the loader is done so
// readers never see a half-built index set.
func (ix *Indexer) Rebuild(ctx context.Context) (Stats, error) {
	start := time.Now()
	var st Stats

	err := storage.EnsureIndexes(ctx, ix.store, ix.indexes)
	metrics.RecordStep(ix.job, "index", err, time.Since(start))
	if err != nil {
		return st, fmt.Errorf("index: %w", err)
	}
	st.Indexes = len(ix.indexes)

	analyzeStart := time.Now()
	for _, stmt := range ix.store.Dialect().Analyze(ix.tables) {
		if _, err := ix.store.Exec(ctx, stmt); err != nil {
			metrics.RecordStep(ix.job, "analyze", err, time.Since(analyzeStart))
			return st, fmt.Errorf("index: analyze: %w", err)
		}
		st.Statements++
	}
	metrics.RecordStep(ix.job, "analyze", nil, time.Since(analyzeStart))

	st.Duration = time.Since(start)
	ix.log.Info("indexes rebuilt",
		zap.Int("indexes", st.Indexes),
		zap.Int("analyze", st.Statements),
		zap.Duration("elapsed", st.Duration.Truncate(time.Millisecond)),
	)
	return st, nil
}
