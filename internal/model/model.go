// Package model holds the domain types shared by every ingestion stage:
// raw extracted fields, normalized records, persisted countries and the
// data-quality anomalies collected during a run.
package model

import (
	"strings"
	"time"
)

// Field names a piece of information extracted from a country page.
type Field string

const (
	FieldName       Field = "name"
	FieldCapital    Field = "capital"
	FieldGovernment Field = "government"
	FieldPopulation Field = "population"
	FieldArea       Field = "area"
	FieldDensity    Field = "density"
	FieldLanguages  Field = "languages"
	FieldTimezones  Field = "timezones"
	FieldNeighbors  Field = "neighbors"
)

// AllFields lists every field in the order the normalizer visits them.
var AllFields = []Field{
	FieldName,
	FieldCapital,
	FieldGovernment,
	FieldPopulation,
	FieldArea,
	FieldDensity,
	FieldLanguages,
	FieldTimezones,
	FieldNeighbors,
}

// Fragment is the raw content of one field: the cell text with footnote
// markers removed and line breaks kept as "\n", plus the anchor texts found
// in the cell.
type Fragment struct {
	Text  string   `json:"text"`
	Links []string `json:"links,omitempty"`
}

// Fields maps a field to its raw fragment. A missing key means the field was
// not present in the source; a present key with empty Text means the source
// had the field but it was empty.
type Fields map[Field]Fragment

// Lookup returns the fragment for name and whether the source contained it.
func (f Fields) Lookup(name Field) (Fragment, bool) {
	v, ok := f[name]
	return v, ok
}

// FieldState records what happened to one field of one record.
type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldEmpty
	FieldParsed
	FieldUnparseable
	FieldDerived
)

func (s FieldState) String() string {
	switch s {
	case FieldAbsent:
		return "absent"
	case FieldEmpty:
		return "empty"
	case FieldParsed:
		return "parsed"
	case FieldUnparseable:
		return "unparseable"
	case FieldDerived:
		return "derived"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in reports.
func (s FieldState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// NeighborRef is a neighbour resolved against the canonical country-name set.
type NeighborRef struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Record is one fully normalized country, ready for the loader. Nil pointers
// are stored as NULL.
type Record struct {
	SourceURL  string    `json:"source_url"`
	SourceHash string    `json:"source_hash"`
	ScrapedAt  time.Time `json:"scraped_at"`

	Name string `json:"name"`
	Key  string `json:"key"`

	Capital        *string  `json:"capital"`
	Population     *int64   `json:"population"`
	AreaKm2        *float64 `json:"area_km2"`
	Density        *float64 `json:"density"`
	GovernmentType *string  `json:"government_type"`

	// Timezones keep first-seen order.
	Timezones []string `json:"timezones"`
	// Languages and Neighbors are sets, sorted by canonical key.
	Languages []string      `json:"languages"`
	Neighbors []NeighborRef `json:"neighbors"`

	States map[Field]FieldState `json:"states"`
}

// Country is a persisted countries row.
type Country struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Key            string    `json:"-"`
	Capital        *string   `json:"capital"`
	Population     *int64    `json:"population"`
	AreaKm2        *float64  `json:"area_km2"`
	Density        *float64  `json:"density"`
	GovernmentType *string   `json:"government_type"`
	Timezones      []string  `json:"timezones"`
	SourceURL      string    `json:"source_url"`
	SourceHash     string    `json:"source_hash"`
	LastScraped    time.Time `json:"last_scraped"`
	Stale          bool      `json:"stale"`
}

// CountrySummary is the short form used for neighbour listings.
type CountrySummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Population *int64 `json:"population"`
}

// CountryDetail is a country together with its links, as exported.
type CountryDetail struct {
	Country
	Languages []string `json:"languages"`
	Neighbors []string `json:"neighbors"`
}

// AnomalyKind classifies a non-fatal data-quality finding.
type AnomalyKind string

const (
	AnomalyUnmatchedNeighbor AnomalyKind = "unmatched_neighbor"
	AnomalyDanglingNeighbor  AnomalyKind = "dangling_neighbor"
	AnomalyUnparsedField     AnomalyKind = "unparsed_field"
	AnomalyMissingName       AnomalyKind = "missing_name"
)

// Anomaly is recorded for audit and never blocks ingestion.
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	Country   string      `json:"country,omitempty"`
	Field     Field       `json:"field,omitempty"`
	Value     string      `json:"value,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	SourceURL string      `json:"source_url,omitempty"`
}

const timezoneSep = ";"

// JoinTimezones encodes an ordered timezone list into its column form.
func JoinTimezones(tz []string) string {
	return strings.Join(tz, timezoneSep)
}

// SplitTimezones decodes the column form produced by JoinTimezones.
func SplitTimezones(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, timezoneSep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
