// Package postgres implements a Postgres-backed storage.Store using a pgx v5
// connection pool. It registers itself for storage kind "postgres" at init
// time, so callers stay backend-agnostic:
//
//	s, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn})
//	defer s.Close()
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"statesdb/internal/storage"
)

// Kind is the storage.Config.Kind this package registers.
const Kind = "postgres"

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return Open(ctx, cfg)
	})
}

// Store is a storage.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open creates the pool and verifies connectivity.
func Open(ctx context.Context, cfg storage.Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Dialect() storage.Dialect { return Dialect{} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return exec(ctx, s.pool, query, args)
}

func (s *Store) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	return queryOn(ctx, s.pool, query, args)
}

func (s *Store) QueryRow(ctx context.Context, query string, args ...any) storage.Row {
	return row{s.pool.QueryRow(ctx, Dialect{}.Rebind(query), args...)}
}

// InTx implements storage.Store using pgx.BeginTxFunc, which commits on a nil
// return and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, q storage.Querier) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, txQuerier{tx})
	})
}

// conn is the subset of pgxpool.Pool and pgx.Tx used for statements.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func exec(ctx context.Context, c conn, query string, args []any) (int64, error) {
	tag, err := c.Exec(ctx, Dialect{}.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func queryOn(ctx context.Context, c conn, query string, args []any) (storage.Rows, error) {
	r, err := c.Query(ctx, Dialect{}.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows{r}, nil
}

type txQuerier struct{ tx pgx.Tx }

func (t txQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return exec(ctx, t.tx, query, args)
}

func (t txQuerier) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	return queryOn(ctx, t.tx, query, args)
}

func (t txQuerier) QueryRow(ctx context.Context, query string, args ...any) storage.Row {
	return row{t.tx.QueryRow(ctx, Dialect{}.Rebind(query), args...)}
}

type row struct{ r pgx.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}

// rows adapts pgx.Rows, whose Close reports nothing, to storage.Rows.
type rows struct{ pgx.Rows }

func (r rows) Close() error {
	r.Rows.Close()
	return r.Rows.Err()
}
