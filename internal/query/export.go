package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"statesdb/internal/model"
)

// Snapshot returns every stored country with its languages and neighbours,
// ordered by canonical name. It reads the whole store.
func (s *Service) Snapshot(ctx context.Context) ([]model.CountryDetail, error) {
	rows, err := s.store.Query(ctx, selectCountry+" ORDER BY name_key")
	if err != nil {
		return nil, fmt.Errorf("query: snapshot: %w", err)
	}
	var countries []model.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("query: snapshot: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("query: snapshot: %w", err)
	}

	langs, err := s.nameLinks(ctx,
		"SELECT cl.country_id, l.name, l.name_key FROM country_languages cl JOIN languages l ON l.id = cl.language_id")
	if err != nil {
		return nil, fmt.Errorf("query: snapshot languages: %w", err)
	}
	borders, err := s.nameLinks(ctx,
		"SELECT b.country_id, c.name, c.name_key FROM borders b JOIN countries c ON c.id = b.neighbor_id")
	if err != nil {
		return nil, fmt.Errorf("query: snapshot borders: %w", err)
	}

	out := make([]model.CountryDetail, 0, len(countries))
	for _, c := range countries {
		out = append(out, model.CountryDetail{
			Country:   c,
			Languages: orEmpty(langs[c.ID]),
			Neighbors: orEmpty(borders[c.ID]),
		})
	}
	return out, nil
}

type keyedName struct{ name, key string }

// nameLinks groups (owner id, name, key) rows by owner, each group sorted by key.
func (s *Service) nameLinks(ctx context.Context, query string) (map[int64][]string, error) {
	rows, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := map[int64][]keyedName{}
	for rows.Next() {
		var (
			id int64
			kn keyedName
		)
		if err := rows.Scan(&id, &kn.name, &kn.key); err != nil {
			return nil, err
		}
		grouped[id] = append(grouped[id], kn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[int64][]string, len(grouped))
	for id, items := range grouped {
		sort.Slice(items, func(i, j int) bool { return items[i].key < items[j].key })
		names := make([]string, len(items))
		for i, kn := range items {
			names[i] = kn.name
		}
		out[id] = names
	}
	return out, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Export writes Snapshot to w as an indented JSON array.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return 0, fmt.Errorf("query: export: %w", err)
	}
	return len(snap), nil
}
