package sqlite

import (
	"fmt"
	"strings"
	"time"

	gddl "statesdb/internal/ddl"
	"statesdb/internal/storage"
	sqliteddl "statesdb/internal/storage/sqlite/ddl"
)

// Dialect is the SQLite storage.Dialect. Placeholders stay '?'.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return Kind }

func (Dialect) Rebind(query string) string { return query }

func (Dialect) InsertReturningID(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(columns, ", "), storage.Placeholders(len(columns)))
}

func (Dialect) Paginate(limit, offset int) (string, []any) {
	return "LIMIT ? OFFSET ?", []any{limit, offset}
}

// Timestamp stores times as fixed-width UTC text.
func (Dialect) Timestamp(t time.Time) any { return t.UTC().Format(storage.TimeLayout) }

func (Dialect) CreateTable(t gddl.TableDef) (string, error) { return sqliteddl.BuildCreateTableSQL(t) }

func (Dialect) CreateIndex(ix gddl.IndexDef) (string, error) {
	return sqliteddl.BuildCreateIndexSQL(ix)
}

// Analyze refreshes statistics for the whole database in one statement.
func (Dialect) Analyze([]string) []string { return []string{"ANALYZE"} }
