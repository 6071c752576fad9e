// internal/ddl/create_test.go
package ddl

import (
	"strconv"
	"strings"
	"testing"
)

// TestBuildCreateTableSQL verifies the plain rendering of table definitions
// and the validation errors for malformed input.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{FQN: "  ", Columns: []ColumnDef{{Name: "id", Type: TypeInt}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: " ", Type: TypeInt}}},
			errContains: "column with empty name",
		},
		{
			name:        "column without any type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "missing SQLType",
		},
		{
			name: "logical type is mapped",
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "population", Type: TypeInt, Nullable: true},
			}},
			wantSQL: "CREATE TABLE t (\n  population INT\n);",
		},
		{
			name: "SQLType overrides Type",
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "name_key", Type: TypeKey, SQLType: "VARCHAR(64)", Unique: true},
			}},
			wantSQL: "CREATE TABLE t (\n  name_key VARCHAR(64) NOT NULL UNIQUE\n);",
		},
		{
			name: "primary key is always not null",
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "country_id", Type: TypeInt, Nullable: true, PrimaryKey: true},
				{Name: "neighbor_id", Type: TypeInt, PrimaryKey: true},
			}},
			wantSQL: "CREATE TABLE t (\n  country_id INT NOT NULL,\n  neighbor_id INT NOT NULL,\n  PRIMARY KEY (country_id, neighbor_id)\n);",
		},
		{
			name: "foreign keys and checks",
			def: TableDef{
				FQN: "borders",
				Columns: []ColumnDef{
					{Name: "country_id", Type: TypeInt},
					{Name: "neighbor_id", Type: TypeInt},
				},
				ForeignKeys: []ForeignKey{{Columns: []string{"country_id"}, RefTable: "countries", RefColumns: []string{"id"}}},
				Checks:      []string{"country_id <> neighbor_id", " "},
			},
			wantSQL: "CREATE TABLE borders (\n  country_id INT NOT NULL,\n  neighbor_id INT NOT NULL,\n" +
				"  FOREIGN KEY (country_id) REFERENCES countries (id),\n  CHECK (country_id <> neighbor_id)\n);",
		},
		{
			name: "malformed foreign key returns error",
			def: TableDef{
				FQN:         "t",
				Columns:     []ColumnDef{{Name: "a", Type: TypeInt}},
				ForeignKeys: []ForeignKey{{Columns: []string{"a"}, RefTable: "u"}},
			},
			errContains: "malformed foreign key",
		},
		{
			name: "default with surrounding whitespace is trimmed",
			def: TableDef{FQN: " t ", Columns: []ColumnDef{
				{Name: " flag ", SQLType: " BOOLEAN ", Default: "  false  "},
			}},
			wantSQL: "CREATE TABLE t (\n  flag BOOLEAN NOT NULL DEFAULT false\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSQL, err := BuildCreateTableSQL(tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %v, want substring %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", gotSQL, tt.wantSQL)
			}
		})
	}
}

func TestBody_IdentityAndQuoting(t *testing.T) {
	t.Parallel()

	s := Style{
		Name:     "test ddl",
		Quote:    func(id string) string { return "<" + id + ">" },
		MapType:  func(string) string { return "T" },
		Identity: "AUTO",
	}
	lines, err := Body(TableDef{FQN: "x", Columns: []ColumnDef{
		{Name: "id", Type: TypeID, PrimaryKey: true},
		{Name: "v", Type: TypeText, Nullable: true},
	}}, s)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	want := []string{"<id> T AUTO NOT NULL", "<v> T", "PRIMARY KEY (<id>)"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("Body = %q, want %q", lines, want)
	}
}

func TestIndexParts(t *testing.T) {
	t.Parallel()

	name, table, cols, err := IndexParts(IndexDef{Name: "idx", Table: "main.countries", Columns: []string{"a", " b "}}, Plain)
	if err != nil {
		t.Fatalf("IndexParts: %v", err)
	}
	if name != "idx" || table != "main.countries" || cols != "a, b" {
		t.Fatalf("IndexParts = %q %q %q", name, table, cols)
	}
	for _, ix := range []IndexDef{
		{Table: "t", Columns: []string{"a"}},
		{Name: "i", Columns: []string{"a"}},
		{Name: "i", Table: "t"},
	} {
		if _, _, _, err := IndexParts(ix, Plain); err == nil {
			t.Fatalf("IndexParts(%+v) expected error", ix)
		}
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	q := func(s string) string { return `"` + s + `"` }
	tests := []struct{ in, want string }{
		{"users", `"users"`},
		{"public.users", `"public"."users"`},
		{".public..users.", `"public"."users"`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := QuoteFQN(tt.in, q); got != tt.want {
			t.Fatalf("QuoteFQN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// benchmarkSink prevents the compiler from optimizing away benchmark results.
var benchmarkSink string

// BenchmarkBuildCreateTableSQL_WideSchema measures rendering of a wide table.
func BenchmarkBuildCreateTableSQL_WideSchema(b *testing.B) {
	cols := make([]ColumnDef, 0, 64)
	for i := 0; i < 64; i++ {
		cols = append(cols, ColumnDef{Name: "col_" + strconv.Itoa(i), Type: TypeText, Nullable: i%2 == 0})
	}
	def := TableDef{FQN: "wide", Columns: cols}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sql, err := BuildCreateTableSQL(def)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL error: %v", err)
		}
		benchmarkSink = sql
	}
}
