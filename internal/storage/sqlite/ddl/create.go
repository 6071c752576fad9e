package ddl

import (
	"fmt"
	"strings"

	gddl "statesdb/internal/ddl"
)

// Style renders SQLite DDL: double-quoted identifiers, no identity clause
// (an INTEGER primary key is the rowid).
var Style = gddl.Style{
	Name:    "sqlite ddl",
	Quote:   quoteIdent,
	MapType: MapType,
}

// BuildCreateTableSQL returns a SQLite CREATE TABLE statement for the given
// table definition:
//
//	CREATE TABLE IF NOT EXISTS "table" (
//	  "col1" TYPE [NOT NULL] [UNIQUE] [DEFAULT expr],
//	  PRIMARY KEY ("pk1", "pk2"),
//	  FOREIGN KEY ("c") REFERENCES "t" ("id"),
//	  CHECK (expr)
//	);
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	body, err := gddl.Body(t, Style)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		gddl.QuoteFQN(strings.TrimSpace(t.FQN), quoteIdent),
		strings.Join(body, ",\n  "),
	), nil
}

// BuildCreateIndexSQL returns CREATE [UNIQUE] INDEX IF NOT EXISTS.
func BuildCreateIndexSQL(ix gddl.IndexDef) (string, error) {
	name, table, cols, err := gddl.IndexParts(ix, Style)
	if err != nil {
		return "", err
	}
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s);", unique, name, table, cols), nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
