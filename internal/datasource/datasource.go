// Package datasource defines where source pages come from. The live crawler
// (fetch.Fetcher) and the on-disk page mirror (datasource/file) both satisfy
// Source, so a run can be replayed offline from a previously saved mirror.
package datasource

import (
	"context"

	"statesdb/internal/fetch"
)

// Source returns the page identified by locator. Failures are *fetch.Error so
// callers can tell transient from permanent ones.
type Source interface {
	Fetch(ctx context.Context, locator string) (fetch.Document, error)
}

var _ Source = (*fetch.Fetcher)(nil)
