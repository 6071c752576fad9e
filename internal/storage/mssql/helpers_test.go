package mssql

import "statesdb/internal/storage"

func storageConfig(dsn string) storage.Config {
	return storage.Config{Kind: Kind, DSN: dsn}
}
