// Package storage contains the storage-agnostic contracts used by the loader,
// indexer, query and audit packages, plus the backend registry.
//
// Backends (sqlite, postgres, mssql) register a Factory for their kind in an
// init function; callers import storage/all (or a single backend) for the side
// effect and open a Store with New. All SQL passed to a Store uses '?'
// placeholders; the Store rebinds them for its dialect.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"statesdb/internal/ddl"
)

// ErrNoRows is returned by Row.Scan when the query selected nothing.
var ErrNoRows = errors.New("storage: no rows in result set")

// Row is a single-row result.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a cursor over a multi-row result. Callers must Close it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Querier runs statements. It is implemented by a Store and by the
// transaction handle passed to InTx.
type Querier interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// Store is an open handle to a country store.
type Store interface {
	Querier
	Dialect() Dialect
	// InTx runs fn inside one transaction. It commits when fn returns nil and
	// rolls back otherwise. fn must use q, not the Store, for its statements.
	InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Dialect renders the SQL that differs between backends.
type Dialect interface {
	Name() string
	// Rebind rewrites '?' placeholders into the backend's form.
	Rebind(query string) string
	// InsertReturningID renders an INSERT of columns into table that yields
	// the generated id as a single-row result.
	InsertReturningID(table string, columns []string) string
	// Paginate renders the clause that follows ORDER BY, with its arguments.
	Paginate(limit, offset int) (string, []any)
	// Timestamp converts t into the value bound for a timestamp column.
	Timestamp(t time.Time) any
	CreateTable(ddl.TableDef) (string, error)
	CreateIndex(ddl.IndexDef) (string, error)
	// Analyze returns the statements that refresh planner statistics.
	Analyze(tables []string) []string
}

// Config selects and configures a backend.
type Config struct {
	Kind         string `json:"kind" yaml:"kind"`
	DSN          string `json:"dsn" yaml:"dsn"`
	MaxOpenConns int    `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
}

// Factory opens a Store for a backend.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind. It is typically
// called from backend packages' init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Store using the Factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
