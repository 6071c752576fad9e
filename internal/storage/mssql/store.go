// Package mssql implements a Microsoft SQL Server storage.Store on
// database/sql with the go-mssqldb driver. It registers itself for storage
// kind "mssql" at init time.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"statesdb/internal/storage"
	"statesdb/internal/storage/sqlstore"
)

// Kind is the storage.Config.Kind this package registers.
const Kind = "mssql"

// open is a test hook that points to sql.Open by default.
var open = sql.Open

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return Open(ctx, cfg)
	})
}

// Open validates the DSN, opens the pool and pings the server.
func Open(ctx context.Context, cfg storage.Config) (*sqlstore.Store, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return sqlstore.New(db, Dialect{}), nil
}
