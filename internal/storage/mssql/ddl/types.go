// Package ddl contains MSSQL-specific helpers for generating DDL.
//
// It maps the logical column types of internal/ddl into SQL Server types.
package ddl

import (
	"strings"

	gddl "statesdb/internal/ddl"
)

// MapType maps a logical type into a SQL Server column type.
//
// Key columns map to NVARCHAR(450), the widest Unicode string that still fits
// an index key. Unknown or empty kinds fall back to NVARCHAR(MAX).
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case gddl.TypeID, gddl.TypeInt, "integer", "bigint":
		return "BIGINT"
	case gddl.TypeBool, "boolean":
		return "BIT"
	case gddl.TypeTimestamp, "datetime", "timestamptz":
		return "DATETIME2"
	case gddl.TypeFloat, "double":
		return "FLOAT"
	case gddl.TypeKey:
		return "NVARCHAR(450)"
	default:
		return "NVARCHAR(MAX)"
	}
}
