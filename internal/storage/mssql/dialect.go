package mssql

import (
	"fmt"
	"strings"
	"time"

	gddl "statesdb/internal/ddl"
	"statesdb/internal/storage"
	msddl "statesdb/internal/storage/mssql/ddl"
)

// Dialect is the SQL Server storage.Dialect: @pN placeholders, OUTPUT
// INSERTED for generated ids, OFFSET/FETCH paging.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return Kind }

func (Dialect) Rebind(query string) string { return storage.RebindNumbered(query, "@p") }

func (Dialect) InsertReturningID(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.id VALUES (%s)",
		table, strings.Join(columns, ", "), storage.Placeholders(len(columns)))
}

// Paginate requires the statement to have an ORDER BY.
func (Dialect) Paginate(limit, offset int) (string, []any) {
	return "OFFSET ? ROWS FETCH NEXT ? ROWS ONLY", []any{offset, limit}
}

func (Dialect) Timestamp(t time.Time) any { return t.UTC() }

func (Dialect) CreateTable(t gddl.TableDef) (string, error) { return msddl.BuildCreateTableSQL(t) }

func (Dialect) CreateIndex(ix gddl.IndexDef) (string, error) { return msddl.BuildCreateIndexSQL(ix) }

func (Dialect) Analyze(tables []string) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, "UPDATE STATISTICS "+gddl.QuoteFQN(t, msddl.Style.Quote)+";")
	}
	return out
}
