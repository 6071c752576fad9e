// Package loader persists normalized country records. Every Load is one
// transaction: the country row, its language set and its outgoing border
// edges are written together or not at all.
//
// Borders whose target country is not stored yet are returned as deferred
// keys instead of being inserted; the pipeline hands them back through
// ResolveDeferred once every country had its load attempt.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"statesdb/internal/model"
	"statesdb/internal/normalize"
	"statesdb/internal/schema"
	"statesdb/internal/storage"
)

// Outcome describes what one Load did.
type Outcome struct {
	CountryID int64 `json:"country_id"`
	// Inserted is true when the country row was created by this load.
	Inserted bool `json:"inserted"`
	// Changed is true when the stored document hash differed (or the row is new).
	Changed   bool `json:"changed"`
	Languages int  `json:"languages"`
	Borders   int  `json:"borders"`
	// Deferred holds neighbour keys with no stored country yet.
	Deferred []string `json:"deferred,omitempty"`
}

// Loader writes records into a Store. It is not safe for concurrent use; the
// pipeline runs a single loader goroutine.
type Loader struct {
	store storage.Store
	log   *zap.Logger
}

// New returns a Loader over s.
func New(s storage.Store, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{store: s, log: log}
}

// countryColumns are written on insert and update, in this order.
var countryColumns = []string{
	"name", "name_key", "capital", "population", "area_km2", "density",
	"government_type", "timezones", "source_url", "source_hash", "last_scraped", "stale",
}

// Load upserts rec and replaces its language set and outgoing borders in one
// transaction. On error nothing from this call is committed.
func (l *Loader) Load(ctx context.Context, rec model.Record) (Outcome, error) {
	if rec.Key == "" {
		return Outcome{}, fmt.Errorf("loader: record %q has no key", rec.Name)
	}
	var out Outcome
	err := l.store.InTx(ctx, func(ctx context.Context, q storage.Querier) error {
		out = Outcome{}
		if err := l.upsertCountry(ctx, q, rec, &out); err != nil {
			return fmt.Errorf("loader: country: %w", err)
		}
		if err := replaceLanguages(ctx, q, l.store.Dialect(), out.CountryID, rec.Languages, &out); err != nil {
			return fmt.Errorf("loader: languages: %w", err)
		}
		if st, ok := rec.States[model.FieldNeighbors]; ok && st == model.FieldAbsent {
			// neighbours were not collected this run; keep the stored edges
			if err := countLinks(ctx, q, "SELECT COUNT(*) FROM borders WHERE country_id = ?", out.CountryID, &out.Borders); err != nil {
				return fmt.Errorf("loader: borders: %w", err)
			}
			return nil
		}
		if err := replaceBorders(ctx, q, out.CountryID, rec.Key, rec.Neighbors, &out); err != nil {
			return fmt.Errorf("loader: borders: %w", err)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	l.log.Debug("country loaded",
		zap.String("country", rec.Name),
		zap.Int64("id", out.CountryID),
		zap.Bool("inserted", out.Inserted),
		zap.Bool("changed", out.Changed),
		zap.Int("languages", out.Languages),
		zap.Int("borders", out.Borders),
		zap.Strings("deferred", out.Deferred),
	)
	return out, nil
}

func (l *Loader) upsertCountry(ctx context.Context, q storage.Querier, rec model.Record, out *Outcome) error {
	d := l.store.Dialect()
	scraped := rec.ScrapedAt
	if scraped.IsZero() {
		scraped = time.Now()
	}
	values := []any{
		rec.Name, rec.Key, nullable(rec.Capital), nullable(rec.Population), nullable(rec.AreaKm2),
		nullable(rec.Density), nullable(rec.GovernmentType), model.JoinTimezones(rec.Timezones),
		rec.SourceURL, rec.SourceHash, d.Timestamp(scraped), false,
	}

	var (
		id       int64
		prevHash string
	)
	err := q.QueryRow(ctx, "SELECT id, source_hash FROM countries WHERE name_key = ?", rec.Key).Scan(&id, &prevHash)
	switch {
	case errors.Is(err, storage.ErrNoRows):
		if err := q.QueryRow(ctx, d.InsertReturningID(schema.Countries, countryColumns), values...).Scan(&id); err != nil {
			return err
		}
		out.CountryID, out.Inserted, out.Changed = id, true, true
		return nil
	case err != nil:
		return err
	}

	set := make([]string, len(countryColumns))
	for i, c := range countryColumns {
		set[i] = c + " = ?"
	}
	if _, err := q.Exec(ctx, "UPDATE countries SET "+strings.Join(set, ", ")+" WHERE id = ?", append(values, id)...); err != nil {
		return err
	}
	out.CountryID = id
	out.Changed = prevHash != rec.SourceHash
	return nil
}

func replaceLanguages(ctx context.Context, q storage.Querier, d storage.Dialect, countryID int64, names []string, out *Outcome) error {
	want := make(map[int64]bool, len(names))
	for _, name := range names {
		key := normalize.CanonicalKey(name)
		if key == "" {
			continue
		}
		id, err := languageID(ctx, q, d, name, key)
		if err != nil {
			return err
		}
		want[id] = true
	}

	have, err := collectIDs(ctx, q, "SELECT language_id FROM country_languages WHERE country_id = ?", countryID)
	if err != nil {
		return err
	}
	for _, id := range have {
		if want[id] {
			delete(want, id)
			continue
		}
		if _, err := q.Exec(ctx, "DELETE FROM country_languages WHERE country_id = ? AND language_id = ?", countryID, id); err != nil {
			return err
		}
	}
	for _, id := range sortedIDs(want) {
		if _, err := q.Exec(ctx, "INSERT INTO country_languages (country_id, language_id) VALUES (?, ?)", countryID, id); err != nil {
			return err
		}
	}
	return countLinks(ctx, q, "SELECT COUNT(*) FROM country_languages WHERE country_id = ?", countryID, &out.Languages)
}

// languageID returns the id of the language with key, creating it with the
// given display name when it does not exist.
func languageID(ctx context.Context, q storage.Querier, d storage.Dialect, name, key string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, "SELECT id FROM languages WHERE name_key = ?", key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, storage.ErrNoRows) {
		return 0, err
	}
	err = q.QueryRow(ctx, d.InsertReturningID(schema.Languages, []string{"name", "name_key"}), name, key).Scan(&id)
	return id, err
}

// replaceBorders makes the stored edges of countryID match refs. A ref key is
// matched against stored name keys, page titles and their aliases; refs that
// match nothing are deferred.
func replaceBorders(ctx context.Context, q storage.Querier, countryID int64, selfKey string, refs []model.NeighborRef, out *Outcome) error {
	ix, err := loadKeyIndex(ctx, q)
	if err != nil {
		return err
	}
	want := make(map[int64]bool, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.Key == "" || ref.Key == selfKey || seen[ref.Key] {
			continue
		}
		seen[ref.Key] = true
		id, ok := ix.lookup(ref.Key)
		if !ok {
			out.Deferred = append(out.Deferred, ref.Key)
			continue
		}
		if id != countryID {
			want[id] = true
		}
	}

	have, err := collectIDs(ctx, q, "SELECT neighbor_id FROM borders WHERE country_id = ?", countryID)
	if err != nil {
		return err
	}
	for _, id := range have {
		if want[id] {
			delete(want, id)
			continue
		}
		if _, err := q.Exec(ctx, "DELETE FROM borders WHERE country_id = ? AND neighbor_id = ?", countryID, id); err != nil {
			return err
		}
	}
	for _, id := range sortedIDs(want) {
		if _, err := q.Exec(ctx, "INSERT INTO borders (country_id, neighbor_id) VALUES (?, ?)", countryID, id); err != nil {
			return err
		}
	}
	return countLinks(ctx, q, "SELECT COUNT(*) FROM borders WHERE country_id = ?", countryID, &out.Borders)
}

// ResolveDeferred inserts the border edges from countryKey to each of
// neighborKeys whose country now exists, matched the same way Load matches
// neighbours. Keys that still match nothing are
// returned as dangling-neighbour anomalies.
func (l *Loader) ResolveDeferred(ctx context.Context, countryKey string, neighborKeys []string) (int, []model.Anomaly, error) {
	var (
		inserted  int
		anomalies []model.Anomaly
	)
	err := l.store.InTx(ctx, func(ctx context.Context, q storage.Querier) error {
		inserted, anomalies = 0, nil

		var (
			id         int64
			name, from string
		)
		err := q.QueryRow(ctx, "SELECT id, name, source_url FROM countries WHERE name_key = ?", countryKey).Scan(&id, &name, &from)
		if err != nil {
			return fmt.Errorf("loader: deferred: country %q: %w", countryKey, err)
		}
		have, err := collectIDs(ctx, q, "SELECT neighbor_id FROM borders WHERE country_id = ?", id)
		if err != nil {
			return fmt.Errorf("loader: deferred: %w", err)
		}
		exists := make(map[int64]bool, len(have))
		for _, h := range have {
			exists[h] = true
		}
		ix, err := loadKeyIndex(ctx, q)
		if err != nil {
			return fmt.Errorf("loader: deferred: %w", err)
		}

		for _, key := range neighborKeys {
			if key == countryKey {
				continue
			}
			nid, ok := ix.lookup(key)
			if !ok {
				anomalies = append(anomalies, model.Anomaly{
					Kind:      model.AnomalyDanglingNeighbor,
					Country:   name,
					Field:     model.FieldNeighbors,
					Value:     key,
					Reason:    "neighbour was never loaded",
					SourceURL: from,
				})
				continue
			}
			if exists[nid] || nid == id {
				continue
			}
			if _, err := q.Exec(ctx, "INSERT INTO borders (country_id, neighbor_id) VALUES (?, ?)", id, nid); err != nil {
				return fmt.Errorf("loader: deferred: insert border: %w", err)
			}
			exists[nid] = true
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return inserted, anomalies, nil
}

// MarkStale flags every country whose source_url is not in listed as stale
// and clears the flag on listed ones. It returns the number of stale rows.
func (l *Loader) MarkStale(ctx context.Context, listed []string) (int, error) {
	keep := make(map[string]bool, len(listed))
	for _, u := range listed {
		keep[u] = true
	}

	stale := 0
	err := l.store.InTx(ctx, func(ctx context.Context, q storage.Querier) error {
		stale = 0
		type row struct {
			id    int64
			url   string
			stale bool
		}
		rows, err := q.Query(ctx, "SELECT id, source_url, stale FROM countries")
		if err != nil {
			return err
		}
		var all []row
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id, &r.url, &r.stale); err != nil {
				rows.Close()
				return err
			}
			all = append(all, r)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, r := range all {
			want := !keep[r.url]
			if want {
				stale++
			}
			if want == r.stale {
				continue
			}
			if _, err := q.Exec(ctx, "UPDATE countries SET stale = ? WHERE id = ?", want, r.id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("loader: mark stale: %w", err)
	}
	l.log.Info("stale countries marked", zap.Int("stale", stale), zap.Int("listed", len(listed)))
	return stale, nil
}

// ScrapedSince returns the source URLs of countries last scraped at or after
// since. The pipeline skips them when resuming.
func (l *Loader) ScrapedSince(ctx context.Context, since time.Time) (map[string]bool, error) {
	rows, err := l.store.Query(ctx, "SELECT source_url, last_scraped FROM countries")
	if err != nil {
		return nil, fmt.Errorf("loader: scraped since: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			url string
			ts  storage.NullTime
		)
		if err := rows.Scan(&url, &ts); err != nil {
			return nil, fmt.Errorf("loader: scraped since: %w", err)
		}
		if ts.Valid && !ts.Time.Before(since) {
			out[url] = true
		}
	}
	return out, rows.Err()
}

// KnownNames returns the display names of every stored country. Phase two
// resolves deferred neighbour keys against them.
func (l *Loader) KnownNames(ctx context.Context) ([]string, error) {
	rows, err := l.store.Query(ctx, "SELECT name FROM countries ORDER BY name_key")
	if err != nil {
		return nil, fmt.Errorf("loader: known names: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("loader: known names: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
