// internal/storage/mssql/ddl/create.go

// Package ddl provides MSSQL-specific helpers for generating DDL from the
// generic ddl model.
//
// The builders here:
//   - Use SQL Server-style identifier quoting: [schema].[table], [col].
//   - Guard CREATE TABLE with IF OBJECT_ID(...) IS NULL and CREATE INDEX with
//     a sys.indexes lookup, since T-SQL has no IF NOT EXISTS for either.
//   - Render surrogate keys as IDENTITY(1,1).
package ddl

import (
	"fmt"
	"strings"

	gddl "statesdb/internal/ddl"
)

// Style renders T-SQL column and constraint lines.
var Style = gddl.Style{
	Name:     "mssql ddl",
	Quote:    quoteIdent,
	MapType:  MapType,
	Identity: "IDENTITY(1,1)",
}

// BuildCreateTableSQL returns a T-SQL script that creates a table matching
// the provided definition if it does not already exist:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE [NOT NULL],
//	    PRIMARY KEY ([pk1], [pk2])
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	body, err := gddl.Body(t, Style)
	if err != nil {
		return "", err
	}
	fqn := gddl.QuoteFQN(strings.TrimSpace(t.FQN), quoteIdent)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		escapeLiteral(fqn), fqn, strings.Join(body, ",\n    "),
	), nil
}

// BuildCreateIndexSQL returns a guarded CREATE [UNIQUE] INDEX script.
func BuildCreateIndexSQL(ix gddl.IndexDef) (string, error) {
	name, table, cols, err := gddl.IndexParts(ix, Style)
	if err != nil {
		return "", err
	}
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'%s' AND object_id = OBJECT_ID(N'%s'))\n  CREATE %sINDEX %s ON %s (%s);",
		escapeLiteral(strings.TrimSpace(ix.Name)), escapeLiteral(table), unique, name, table, cols,
	), nil
}

// quoteIdent quotes a single identifier segment with brackets, escaping any
// closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func escapeLiteral(s string) string { return strings.ReplaceAll(s, "'", "''") }
