// Package query is the read-only interface over the country store. It never
// writes; ingestion owns the store while a run is in progress.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"statesdb/internal/model"
	"statesdb/internal/normalize"
	"statesdb/internal/schema"
	"statesdb/internal/storage"
)

// ErrNotFound is returned when no country matches the requested name.
var ErrNotFound = errors.New("query: country not found")

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// SortKey names a sortable countries column.
type SortKey string

const (
	SortName       SortKey = "name"
	SortPopulation SortKey = "population"
	SortArea       SortKey = "area_km2"
	SortDensity    SortKey = "density"
	SortGovernment SortKey = "government_type"
)

var sortColumns = map[SortKey]string{
	SortName:       "name_key",
	SortPopulation: "population",
	SortArea:       "area_km2",
	SortDensity:    "density",
	SortGovernment: "government_type",
}

// ParseSortKey accepts the column names above plus "area".
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return SortName, nil
	case "area":
		return SortArea, nil
	}
	if _, ok := sortColumns[k]; !ok {
		return "", fmt.Errorf("query: unknown sort key %q", s)
	}
	return k, nil
}

// Filter narrows List. Zero values do not filter.
type Filter struct {
	MinPopulation *int64
	MaxPopulation *int64
	MinArea       *float64
	MaxArea       *float64
	MinDensity    *float64
	MaxDensity    *float64
	// Government matches government_type case-insensitively. It is
	// canonicalized the way the loader stores it, so the comparison can use
	// idx_countries_government.
	Government string
	// NamePrefix matches the start of the canonical name.
	NamePrefix string
	// Language keeps countries that list this language.
	Language string
}

// Sort orders List. The canonical name breaks ties.
type Sort struct {
	Key  SortKey
	Desc bool
}

// Page selects a window of results. Limit 0 means DefaultLimit; larger
// limits are capped at MaxLimit.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() (Page, error) {
	if p.Offset < 0 {
		return p, fmt.Errorf("query: negative offset %d", p.Offset)
	}
	switch {
	case p.Limit < 0:
		return p, fmt.Errorf("query: negative limit %d", p.Limit)
	case p.Limit == 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p, nil
}

// Service answers read queries against a Store.
type Service struct {
	store storage.Store
}

func New(s storage.Store) *Service { return &Service{store: s} }

var selectCountry = "SELECT " + strings.Join(schema.CountryColumns, ", ") + " FROM countries"

// Country returns the country whose canonical name matches name.
func (s *Service) Country(ctx context.Context, name string) (model.Country, error) {
	key := normalize.CanonicalKey(name)
	if key == "" {
		return model.Country{}, ErrNotFound
	}
	c, err := scanCountry(s.store.QueryRow(ctx, selectCountry+" WHERE name_key = ?", key))
	if errors.Is(err, storage.ErrNoRows) {
		return model.Country{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return model.Country{}, fmt.Errorf("query: country %q: %w", name, err)
	}
	return c, nil
}

// List returns countries matching f, ordered by srt, windowed by p.
func (s *Service) List(ctx context.Context, f Filter, srt Sort, p Page) ([]model.Country, error) {
	p, err := p.normalized()
	if err != nil {
		return nil, err
	}
	if srt.Key == "" {
		srt.Key = SortName
	}
	col, ok := sortColumns[srt.Key]
	if !ok {
		return nil, fmt.Errorf("query: unknown sort key %q", srt.Key)
	}

	where, args := f.clauses()
	var sb strings.Builder
	sb.WriteString(selectCountry)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	dir := "ASC"
	if srt.Desc {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s", col, dir)
	if col != "name_key" {
		sb.WriteString(", name_key ASC")
	}
	clause, pargs := s.store.Dialect().Paginate(p.Limit, p.Offset)
	sb.WriteString(" ")
	sb.WriteString(clause)
	args = append(args, pargs...)

	rows, err := s.store.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query: list: %w", err)
	}
	defer rows.Close()

	out := []model.Country{}
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("query: list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: list: %w", err)
	}
	return out, nil
}

func (f Filter) clauses() ([]string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if f.MinPopulation != nil {
		add("population >= ?", *f.MinPopulation)
	}
	if f.MaxPopulation != nil {
		add("population <= ?", *f.MaxPopulation)
	}
	if f.MinArea != nil {
		add("area_km2 >= ?", *f.MinArea)
	}
	if f.MaxArea != nil {
		add("area_km2 <= ?", *f.MaxArea)
	}
	if f.MinDensity != nil {
		add("density >= ?", *f.MinDensity)
	}
	if f.MaxDensity != nil {
		add("density <= ?", *f.MaxDensity)
	}
	if g := strings.TrimSpace(f.Government); g != "" {
		if canon, ok := normalize.ParseGovernment(g).Value(); ok {
			g = canon
		}
		add("government_type = ?", g)
	}
	if p := normalize.CanonicalKey(f.NamePrefix); p != "" {
		add("name_key LIKE ? ESCAPE '!'", escapeLike(p)+"%")
	}
	if l := normalize.CanonicalKey(f.Language); l != "" {
		add("id IN (SELECT cl.country_id FROM country_languages cl JOIN languages l ON l.id = cl.language_id WHERE l.name_key = ?)", l)
	}
	return where, args
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_", "[", "![")

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// Neighbors lists the outgoing border edges of name, ordered by name.
func (s *Service) Neighbors(ctx context.Context, name string) ([]model.CountrySummary, error) {
	id, err := s.countryID(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Query(ctx,
		"SELECT c.id, c.name, c.population FROM borders b JOIN countries c ON c.id = b.neighbor_id WHERE b.country_id = ? ORDER BY c.name_key", id)
	if err != nil {
		return nil, fmt.Errorf("query: neighbors: %w", err)
	}
	defer rows.Close()

	out := []model.CountrySummary{}
	for rows.Next() {
		var cs model.CountrySummary
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.Population); err != nil {
			return nil, fmt.Errorf("query: neighbors: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// Languages lists the language names of name, ordered by key.
func (s *Service) Languages(ctx context.Context, name string) ([]string, error) {
	id, err := s.countryID(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Query(ctx,
		"SELECT l.name FROM country_languages cl JOIN languages l ON l.id = cl.language_id WHERE cl.country_id = ? ORDER BY l.name_key", id)
	if err != nil {
		return nil, fmt.Errorf("query: languages: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("query: languages: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Service) countryID(ctx context.Context, name string) (int64, error) {
	key := normalize.CanonicalKey(name)
	if key == "" {
		return 0, ErrNotFound
	}
	var id int64
	err := s.store.QueryRow(ctx, "SELECT id FROM countries WHERE name_key = ?", key).Scan(&id)
	if errors.Is(err, storage.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("query: country %q: %w", name, err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCountry(r scanner) (model.Country, error) {
	var (
		c       model.Country
		tz      string
		scraped storage.NullTime
	)
	err := r.Scan(&c.ID, &c.Name, &c.Key, &c.Capital, &c.Population, &c.AreaKm2, &c.Density,
		&c.GovernmentType, &tz, &c.SourceURL, &c.SourceHash, &scraped, &c.Stale)
	if err != nil {
		return model.Country{}, err
	}
	c.Timezones = model.SplitTimezones(tz)
	if scraped.Valid {
		c.LastScraped = scraped.Time
	}
	return c, nil
}
