package loader

import (
	"context"
	"errors"
	"sort"

	"statesdb/internal/normalize"
	"statesdb/internal/storage"
)

// nullable turns a nil pointer into a SQL NULL and dereferences the rest, so
// every driver sees plain values.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// collectIDs reads a single int64 column fully before returning, so the
// caller can issue further statements on the same transaction.
func collectIDs(ctx context.Context, q storage.Querier, query string, args ...any) ([]int64, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	return out, rows.Close()
}

// keyIndex maps the keys a stored country answers to onto its id: its name
// key first, then the key of its page title. Name keys win over titles.
type keyIndex map[string]int64

func loadKeyIndex(ctx context.Context, q storage.Querier) (keyIndex, error) {
	rows, err := q.Query(ctx, "SELECT id, name_key, source_url FROM countries ORDER BY id")
	if err != nil {
		return nil, err
	}
	ix := keyIndex{}
	titles := map[string]int64{}
	for rows.Next() {
		var (
			id       int64
			key, src string
		)
		if err := rows.Scan(&id, &key, &src); err != nil {
			rows.Close()
			return nil, err
		}
		ix[key] = id
		if tk := normalize.CanonicalKey(normalize.TitleFromLocator(src)); tk != "" {
			if _, ok := titles[tk]; !ok {
				titles[tk] = id
			}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for k, id := range titles {
		if _, ok := ix[k]; !ok {
			ix[k] = id
		}
	}
	return ix, nil
}

// lookup matches key directly, then through the alias table.
func (ix keyIndex) lookup(key string) (int64, bool) {
	if id, ok := ix[key]; ok {
		return id, true
	}
	for _, alt := range normalize.AliasKeys(key) {
		if id, ok := ix[alt]; ok {
			return id, true
		}
	}
	return 0, false
}

func countLinks(ctx context.Context, q storage.Querier, query string, id int64, dst *int) error {
	return q.QueryRow(ctx, query, id).Scan(dst)
}

func sortedIDs(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
