// Package audit reports on the integrity of the country store after a run.
// It only reads the store and never feeds back into ingestion.
package audit

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"statesdb/internal/model"
	"statesdb/internal/storage"
)

// BorderPair is a directed edge without its reverse.
type BorderPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WorldStats are aggregates over every stored country.
type WorldStats struct {
	Countries       int     `json:"countries"`
	TotalPopulation int64   `json:"total_population"`
	TotalAreaKm2    float64 `json:"total_area_km2"`
	// AverageDensity is the mean over countries with a known density.
	AverageDensity float64 `json:"average_density"`
}

// Report is the outcome of one audit.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	MissingPopulation []string `json:"missing_population"`
	MissingArea       []string `json:"missing_area"`
	Stale             []string `json:"stale"`
	// AsymmetricBorders is informational: borders are stored as published.
	AsymmetricBorders []BorderPair `json:"asymmetric_borders"`

	Anomalies map[model.AnomalyKind][]model.Anomaly `json:"anomalies,omitempty"`

	World WorldStats `json:"world"`
}

// Passed reports whether every country has population and area data, which
// is the integrity condition the audit enforces.
func (r Report) Passed() bool {
	return len(r.MissingPopulation) == 0 && len(r.MissingArea) == 0
}

// Auditor reads a Store.
type Auditor struct {
	store storage.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(s storage.Store, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{store: s, log: log, now: time.Now}
}

type countryRow struct {
	id         int64
	name       string
	key        string
	population *int64
	area       *float64
	density    *float64
	stale      bool
}

// Run audits the store. anomalies are the findings collected during the run
// (may be nil when auditing outside a run); they are grouped by kind.
func (a *Auditor) Run(ctx context.Context, anomalies []model.Anomaly) (Report, error) {
	rep := Report{
		GeneratedAt:       a.now().UTC(),
		MissingPopulation: []string{},
		MissingArea:       []string{},
		Stale:             []string{},
		AsymmetricBorders: []BorderPair{},
	}

	countries, err := a.countries(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("audit: countries: %w", err)
	}
	byID := make(map[int64]countryRow, len(countries))
	var (
		densitySum float64
		densityN   int
	)
	for _, c := range countries {
		byID[c.id] = c
		if c.population == nil {
			rep.MissingPopulation = append(rep.MissingPopulation, c.name)
		} else {
			rep.World.TotalPopulation += *c.population
		}
		if c.area == nil {
			rep.MissingArea = append(rep.MissingArea, c.name)
		} else {
			rep.World.TotalAreaKm2 += *c.area
		}
		if c.density != nil {
			densitySum += *c.density
			densityN++
		}
		if c.stale {
			rep.Stale = append(rep.Stale, c.name)
		}
	}
	rep.World.Countries = len(countries)
	if densityN > 0 {
		rep.World.AverageDensity = math.Round(densitySum/float64(densityN)*100) / 100
	}

	asym, err := a.asymmetric(ctx, byID)
	if err != nil {
		return Report{}, fmt.Errorf("audit: borders: %w", err)
	}
	rep.AsymmetricBorders = asym

	if len(anomalies) > 0 {
		rep.Anomalies = make(map[model.AnomalyKind][]model.Anomaly)
		for _, an := range anomalies {
			rep.Anomalies[an.Kind] = append(rep.Anomalies[an.Kind], an)
		}
	}

	a.log.Info("audit finished",
		zap.Bool("passed", rep.Passed()),
		zap.Int("countries", rep.World.Countries),
		zap.Int("missing_population", len(rep.MissingPopulation)),
		zap.Int("missing_area", len(rep.MissingArea)),
		zap.Int("asymmetric_borders", len(rep.AsymmetricBorders)),
		zap.Int("stale", len(rep.Stale)),
		zap.Int("anomalies", len(anomalies)),
	)
	return rep, nil
}

func (a *Auditor) countries(ctx context.Context) ([]countryRow, error) {
	rows, err := a.store.Query(ctx,
		"SELECT id, name, name_key, population, area_km2, density, stale FROM countries ORDER BY name_key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []countryRow
	for rows.Next() {
		var c countryRow
		if err := rows.Scan(&c.id, &c.name, &c.key, &c.population, &c.area, &c.density, &c.stale); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (a *Auditor) asymmetric(ctx context.Context, byID map[int64]countryRow) ([]BorderPair, error) {
	rows, err := a.store.Query(ctx, "SELECT country_id, neighbor_id FROM borders")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type edge struct{ from, to int64 }
	edges := map[edge]bool{}
	for rows.Next() {
		var e edge
		if err := rows.Scan(&e.from, &e.to); err != nil {
			return nil, err
		}
		edges[e] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	type keyed struct {
		pair     BorderPair
		from, to string
	}
	var found []keyed
	for e := range edges {
		if edges[edge{from: e.to, to: e.from}] {
			continue
		}
		from, to := byID[e.from], byID[e.to]
		found = append(found, keyed{pair: BorderPair{From: from.name, To: to.name}, from: from.key, to: to.key})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].from != found[j].from {
			return found[i].from < found[j].from
		}
		return found[i].to < found[j].to
	})
	out := make([]BorderPair, len(found))
	for i, k := range found {
		out[i] = k.pair
	}
	return out, nil
}

// WriteText prints the report in the short human-readable form used by the
// audit command.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	b.WriteString("[1] Integrity check\n")
	missing := mergeNames(r.MissingPopulation, r.MissingArea)
	if len(missing) == 0 {
		b.WriteString("   passed: every country has population and area data\n")
	} else {
		fmt.Fprintf(&b, "   failed: %d countries with missing data\n", len(missing))
		for _, n := range missing {
			fmt.Fprintf(&b, "   - %s\n", n)
		}
	}
	b.WriteString("[2] General stats\n")
	fmt.Fprintf(&b, "   - countries: %d\n", r.World.Countries)
	fmt.Fprintf(&b, "   - total population: %d\n", r.World.TotalPopulation)
	fmt.Fprintf(&b, "   - average density: %.2f people/km^2\n", r.World.AverageDensity)
	b.WriteString("[3] Borders and freshness\n")
	fmt.Fprintf(&b, "   - asymmetric borders: %d\n", len(r.AsymmetricBorders))
	fmt.Fprintf(&b, "   - stale countries: %d\n", len(r.Stale))
	kinds := make([]string, 0, len(r.Anomalies))
	for k := range r.Anomalies {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "   - %s: %d\n", k, len(r.Anomalies[model.AnomalyKind(k)]))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func mergeNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}
