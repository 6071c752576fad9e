// Package storetest provides store fixtures for tests in other packages: a
// bootstrapped in-memory SQLite store and a wrapper that injects statement
// failures.
package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"statesdb/internal/schema"
	"statesdb/internal/storage"
	"statesdb/internal/storage/sqlite"
)

// ErrInjected is returned by statements matched by a Failing store.
var ErrInjected = errors.New("storetest: injected failure")

// NewSQLite returns an in-memory store with the schema bootstrapped. It is
// closed when the test ends.
func NewSQLite(tb testing.TB) storage.Store {
	tb.Helper()
	ctx := context.Background()
	s, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = s.Close() })
	if err := storage.Bootstrap(ctx, s, schema.Store()); err != nil {
		tb.Fatalf("bootstrap: %v", err)
	}
	return s
}

// Count returns SELECT COUNT(*) FROM table.
func Count(tb testing.TB, s storage.Querier, table string) int {
	tb.Helper()
	var n int
	if err := s.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		tb.Fatalf("count %s: %v", table, err)
	}
	return n
}

// Failing wraps a Store and fails every Exec whose SQL contains one of the
// configured fragments, both inside and outside transactions.
type Failing struct {
	storage.Store
	fragments []string
}

// NewFailing wraps s.
func NewFailing(s storage.Store, fragments ...string) *Failing {
	return &Failing{Store: s, fragments: fragments}
}

// SetFragments replaces the failing fragments.
func (f *Failing) SetFragments(fragments ...string) { f.fragments = fragments }

func (f *Failing) match(query string) bool {
	for _, frag := range f.fragments {
		if strings.Contains(query, frag) {
			return true
		}
	}
	return false
}

func (f *Failing) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if f.match(query) {
		return 0, ErrInjected
	}
	return f.Store.Exec(ctx, query, args...)
}

func (f *Failing) InTx(ctx context.Context, fn func(ctx context.Context, q storage.Querier) error) error {
	return f.Store.InTx(ctx, func(ctx context.Context, q storage.Querier) error {
		return fn(ctx, failingQuerier{Querier: q, f: f})
	})
}

type failingQuerier struct {
	storage.Querier
	f *Failing
}

func (q failingQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if q.f.match(query) {
		return 0, ErrInjected
	}
	return q.Querier.Exec(ctx, query, args...)
}
