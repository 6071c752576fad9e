package all

import (
	"reflect"
	"testing"

	"statesdb/internal/storage"
)

func TestAllBackendsRegistered(t *testing.T) {
	t.Parallel()

	if got, want := storage.ListKinds(), []string{"mssql", "postgres", "sqlite"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ListKinds() = %v, want %v", got, want)
	}
}
