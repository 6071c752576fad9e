// Package sqlstore adapts a database/sql handle to storage.Store. The sqlite
// and mssql backends share it; each supplies its driver and Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"statesdb/internal/storage"
)

// Store is a storage.Store over *sql.DB.
type Store struct {
	db      *sql.DB
	dialect storage.Dialect
}

var _ storage.Store = (*Store)(nil)

// New wraps db. The Store owns db and closes it on Close.
func New(db *sql.DB, d storage.Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the underlying handle for backend-specific setup.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() storage.Dialect { return s.dialect }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execOn(ctx, s.db, s.dialect, query, args)
}

func (s *Store) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	return rowsOrNil(s.db.QueryContext(ctx, s.dialect.Rebind(query), args...))
}

func (s *Store) QueryRow(ctx context.Context, query string, args ...any) storage.Row {
	return row{s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)}
}

// InTx implements storage.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, q storage.Querier) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", s.dialect.Name(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(ctx, txQuerier{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.Name(), err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execOn(ctx context.Context, e execer, d storage.Dialect, query string, args []any) (int64, error) {
	res, err := e.ExecContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// DDL on some drivers has no affected-row count.
		return 0, nil
	}
	return n, nil
}

type txQuerier struct {
	tx      *sql.Tx
	dialect storage.Dialect
}

func (t txQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execOn(ctx, t.tx, t.dialect, query, args)
}

func (t txQuerier) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	return rowsOrNil(t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...))
}

func (t txQuerier) QueryRow(ctx context.Context, query string, args ...any) storage.Row {
	return row{t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)}
}

func rowsOrNil(rows *sql.Rows, err error) (storage.Rows, error) {
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type row struct{ r *sql.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}
