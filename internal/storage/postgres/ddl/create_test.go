package ddl

import (
	"strings"
	"testing"

	gddl "statesdb/internal/ddl"
)

// TestQuoteIdent verifies Postgres identifier quoting and escaping.
func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "name", want: `"name"`},
		{name: "with space", in: "user name", want: `"user name"`},
		{name: "with double quote", in: `weird"name`, want: `"weird""name"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := quoteIdent(tt.in); got != tt.want {
				t.Fatalf("quoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildCreateTableSQL_Identity(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(gddl.TableDef{
		FQN: "public.languages",
		Columns: []gddl.ColumnDef{
			{Name: "id", Type: gddl.TypeID, PrimaryKey: true},
			{Name: "name_key", Type: gddl.TypeKey, Unique: true},
			{Name: "last_scraped", Type: gddl.TypeTimestamp, Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"languages\" (\n" +
		"  \"id\" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL,\n" +
		"  \"name_key\" TEXT NOT NULL UNIQUE,\n" +
		"  \"last_scraped\" TIMESTAMPTZ,\n" +
		"  PRIMARY KEY (\"id\")\n);"
	if got != want {
		t.Fatalf("BuildCreateTableSQL =\n%s\nwant:\n%s", got, want)
	}

	if _, err := BuildCreateTableSQL(gddl.TableDef{FQN: " "}); err == nil || !strings.HasPrefix(err.Error(), "postgres ddl:") {
		t.Fatalf("expected postgres ddl error, got %v", err)
	}
}

func TestBuildCreateIndexSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateIndexSQL(gddl.IndexDef{Name: "idx_pop", Table: "countries", Columns: []string{"population"}})
	if err != nil {
		t.Fatalf("BuildCreateIndexSQL: %v", err)
	}
	if want := `CREATE INDEX IF NOT EXISTS "idx_pop" ON "countries" ("population");`; got != want {
		t.Fatalf("BuildCreateIndexSQL = %q, want %q", got, want)
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"id": "BIGINT", "int": "BIGINT", "float": "DOUBLE PRECISION", "bool": "BOOLEAN",
		"timestamp": "TIMESTAMPTZ", "key": "TEXT", "text": "TEXT", "": "TEXT",
	}
	for in, want := range tests {
		if got := MapType(in); got != want {
			t.Fatalf("MapType(%q) = %q, want %q", in, got, want)
		}
	}
}
