// Package sqlite implements a SQLite-backed storage.Store using database/sql
// and the pure-Go modernc.org/sqlite driver. It is the default backend and
// the one the tests run against (":memory:").
//
// Registration happens in init; callers open it with
// storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "states.db"}).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"statesdb/internal/storage"
	"statesdb/internal/storage/sqlstore"
)

// Kind is the storage.Config.Kind this package registers.
const Kind = "sqlite"

// open is a test hook that points to sql.Open by default.
var open = sql.Open

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return Open(ctx, cfg.DSN)
	})
}

// Open opens the database at dsn with foreign keys enforced.
//
// The pool is limited to one connection: SQLite serializes writers anyway,
// and an in-memory database exists only on the connection that created it.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return sqlstore.New(db, Dialect{}), nil
}

// withPragmas appends the connection pragmas unless the DSN sets them.
func withPragmas(dsn string) string {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var add []string
	for _, p := range pragmas {
		name := p[:strings.Index(p, "(")]
		if !strings.Contains(dsn, name) {
			add = append(add, p)
		}
	}
	if len(add) == 0 {
		return dsn
	}
	return dsn + sep + strings.Join(add, "&")
}
