// internal/ddl/create.go

// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE and CREATE INDEX statements from that model.
//
// The package itself assumes no dialect. BuildCreateTableSQL renders the plain
// form with identifiers emitted as-is; backend packages
// (internal/storage/<backend>/ddl) supply a Style with their quoting and type
// mapping and wrap the body in their own guard (IF NOT EXISTS, IF OBJECT_ID).
package ddl

import (
	"fmt"
	"strings"
)

// Style carries the dialect-specific pieces of rendering.
type Style struct {
	// Name prefixes error messages ("sqlite ddl").
	Name string
	// Quote quotes a single identifier segment.
	Quote func(string) string
	// MapType maps a logical type to a SQL type.
	MapType func(string) string
	// Identity is appended to TypeID columns, e.g. "GENERATED BY DEFAULT AS IDENTITY".
	Identity string
}

// Plain is the unquoted style used by BuildCreateTableSQL.
var Plain = Style{
	Name:    "ddl",
	Quote:   func(s string) string { return s },
	MapType: func(s string) string { return strings.ToUpper(s) },
}

// QuoteFQN quotes each non-empty dotted segment of fqn with quote.
//
//	"public.users" -> "public"."users"
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders a generic CREATE TABLE statement from a TableDef
// using the Plain style:
//
//	CREATE TABLE <FQN> (
//	  <col1-def>,
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)],
//	  [FOREIGN KEY ...],
//	  [CHECK (...)]
//	);
func BuildCreateTableSQL(t TableDef) (string, error) {
	body, err := Body(t, Plain)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", strings.TrimSpace(t.FQN), strings.Join(body, ",\n  ")), nil
}

// Body renders the column and constraint lines of t in style s.
//
// Rules:
//   - t.FQN must be non-empty and at least one column is required.
//   - Each column needs a Name and either SQLType or Type.
//   - A column renders as <name> <type> [identity] [NOT NULL] [UNIQUE] [DEFAULT <expr>].
//   - Primary-key columns are always NOT NULL and are collected into one
//     PRIMARY KEY clause in declaration order.
//   - Foreign keys and checks follow as table constraints.
func Body(t TableDef, s Style) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("%s: table FQN must not be empty", s.Name)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("%s: at least one column is required", s.Name)
	}

	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+len(t.Checks)+1)
	pks := make([]string, 0, 2)

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: column with empty name in table %s", s.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" && strings.TrimSpace(c.Type) != "" {
			typ = s.MapType(strings.TrimSpace(c.Type))
		}
		if typ == "" {
			return nil, fmt.Errorf("%s: column %s missing SQLType", s.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(s.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if c.Type == TypeID && s.Identity != "" {
			sb.WriteByte(' ')
			sb.WriteString(s.Identity)
		}
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if c.Unique {
			sb.WriteString(" UNIQUE")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		lines = append(lines, sb.String())

		if c.PrimaryKey {
			pks = append(pks, s.Quote(name))
		}
	}

	if len(pks) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) || strings.TrimSpace(fk.RefTable) == "" {
			return nil, fmt.Errorf("%s: malformed foreign key on %s", s.Name, fqn)
		}
		lines = append(lines, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteList(fk.Columns, s.Quote), QuoteFQN(fk.RefTable, s.Quote), quoteList(fk.RefColumns, s.Quote)))
	}
	for _, chk := range t.Checks {
		if chk = strings.TrimSpace(chk); chk != "" {
			lines = append(lines, "CHECK ("+chk+")")
		}
	}
	return lines, nil
}

// IndexParts validates ix and returns its quoted name, table and column list.
func IndexParts(ix IndexDef, s Style) (name, table, cols string, err error) {
	if strings.TrimSpace(ix.Name) == "" || strings.TrimSpace(ix.Table) == "" {
		return "", "", "", fmt.Errorf("%s: index needs a name and a table", s.Name)
	}
	if len(ix.Columns) == 0 {
		return "", "", "", fmt.Errorf("%s: index %s has no columns", s.Name, ix.Name)
	}
	return s.Quote(strings.TrimSpace(ix.Name)), QuoteFQN(ix.Table, s.Quote), quoteList(ix.Columns, s.Quote), nil
}

func quoteList(cols []string, quote func(string) string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quote(strings.TrimSpace(c))
	}
	return strings.Join(out, ", ")
}
