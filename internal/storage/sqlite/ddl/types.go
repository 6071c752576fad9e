// Package ddl contains SQLite-specific helpers for generating DDL.
//
// It maps the logical column types of internal/ddl into SQLite column types.
// SQLite is dynamically typed, so the mapping targets the canonical
// affinities.
package ddl

import (
	"strings"

	gddl "statesdb/internal/ddl"
)

// MapType maps a logical type into a SQLite column type:
//   - id, int       -> INTEGER (an INTEGER primary key aliases the rowid)
//   - bool          -> INTEGER (0/1)
//   - float         -> REAL
//   - timestamp     -> TEXT (fixed-width ISO-8601, see storage.TimeLayout)
//   - text, key     -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case gddl.TypeID, gddl.TypeInt, "integer", "bigint":
		return "INTEGER"
	case gddl.TypeBool, "boolean":
		return "INTEGER"
	case gddl.TypeFloat, "double", "real":
		return "REAL"
	default:
		return "TEXT"
	}
}
