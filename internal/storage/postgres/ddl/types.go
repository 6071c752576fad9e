// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import (
	"strings"

	gddl "statesdb/internal/ddl"
)

// MapType normalizes a logical type into a Postgres SQL type.
//
//	"id"/"int"        -> BIGINT
//	"float"           -> DOUBLE PRECISION
//	"bool"            -> BOOLEAN
//	"timestamp"       -> TIMESTAMPTZ
//	everything else   -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case gddl.TypeID, gddl.TypeInt, "integer", "bigint":
		return "BIGINT"
	case gddl.TypeFloat, "double":
		return "DOUBLE PRECISION"
	case gddl.TypeBool, "boolean":
		return "BOOLEAN"
	case gddl.TypeTimestamp, "timestamptz":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
