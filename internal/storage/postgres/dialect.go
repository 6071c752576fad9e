package postgres

import (
	"fmt"
	"strings"
	"time"

	gddl "statesdb/internal/ddl"
	"statesdb/internal/storage"
	pgddl "statesdb/internal/storage/postgres/ddl"
)

// Dialect is the Postgres storage.Dialect: $n placeholders, RETURNING, and
// per-table ANALYZE.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return Kind }

func (Dialect) Rebind(query string) string { return storage.RebindNumbered(query, "$") }

func (Dialect) InsertReturningID(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(columns, ", "), storage.Placeholders(len(columns)))
}

func (Dialect) Paginate(limit, offset int) (string, []any) {
	return "LIMIT ? OFFSET ?", []any{limit, offset}
}

func (Dialect) Timestamp(t time.Time) any { return t.UTC() }

func (Dialect) CreateTable(t gddl.TableDef) (string, error) { return pgddl.BuildCreateTableSQL(t) }

func (Dialect) CreateIndex(ix gddl.IndexDef) (string, error) { return pgddl.BuildCreateIndexSQL(ix) }

func (Dialect) Analyze(tables []string) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, "ANALYZE "+gddl.QuoteFQN(t, pgddl.Style.Quote)+";")
	}
	return out
}
