package ddl

import (
	"fmt"
	"strings"

	gddl "statesdb/internal/ddl"
)

// Style renders Postgres DDL: double-quoted identifiers and identity columns
// for surrogate keys.
var Style = gddl.Style{
	Name:     "postgres ddl",
	Quote:    quoteIdent,
	MapType:  MapType,
	Identity: "GENERATED BY DEFAULT AS IDENTITY",
}

// BuildCreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement for the
// given table definition.
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

// quoteIdent quotes a single identifier segment:
//
//	name      -> "name"
//	weird"id  -> "weird""id"
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
