package mssql

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestOpen_InvalidDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), storageConfig("sqlserver://%zz"))
	if err == nil || !strings.HasPrefix(err.Error(), "mssql dsn:") {
		t.Fatalf("expected mssql dsn error, got %v", err)
	}
}

func TestOpen_DriverError(t *testing.T) {
	orig := open
	t.Cleanup(func() { open = orig })
	open = func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") }

	_, err := Open(context.Background(), storageConfig("sqlserver://sa:pw@localhost:1433?database=states"))
	if err == nil || !strings.Contains(err.Error(), "sql.Open") {
		t.Fatalf("expected wrapped sql.Open error, got %v", err)
	}
}

func TestDialect(t *testing.T) {
	t.Parallel()

	d := Dialect{}
	if got, want := d.Rebind("UPDATE countries SET stale = ? WHERE id = ?"),
		"UPDATE countries SET stale = @p1 WHERE id = @p2"; got != want {
		t.Fatalf("Rebind = %q, want %q", got, want)
	}
	if got, want := d.InsertReturningID("languages", []string{"name", "name_key"}),
		"INSERT INTO languages (name, name_key) OUTPUT INSERTED.id VALUES (?, ?)"; got != want {
		t.Fatalf("InsertReturningID = %q, want %q", got, want)
	}
	clause, args := d.Paginate(25, 50)
	if clause != "OFFSET ? ROWS FETCH NEXT ? ROWS ONLY" || !reflect.DeepEqual(args, []any{50, 25}) {
		t.Fatalf("Paginate = %q %v", clause, args)
	}
	if got := d.Analyze([]string{"dbo.countries"}); !reflect.DeepEqual(got, []string{"UPDATE STATISTICS [dbo].[countries];"}) {
		t.Fatalf("Analyze = %q", got)
	}
}
