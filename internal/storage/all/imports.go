// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend, which register their
// factories with the storage package. After the import the following kinds
// are available to storage.New:
//
//   - "sqlite"   (statesdb/internal/storage/sqlite)
//   - "postgres" (statesdb/internal/storage/postgres)
//   - "mssql"    (statesdb/internal/storage/mssql)
//
// Typical usage (cmd/statesdb):
//
//	import _ "statesdb/internal/storage/all"
//
//	s, err := storage.New(ctx, cfg.Storage)
//	if err != nil { ... }
//	defer s.Close()
//	if err := storage.Bootstrap(ctx, s, schema.Store()); err != nil { ... }
//
// A binary that needs only a subset of backends imports those packages
// directly instead.
package all

import (
	_ "statesdb/internal/storage/mssql"
	_ "statesdb/internal/storage/postgres"
	_ "statesdb/internal/storage/sqlite"
)
