package normalize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"statesdb/internal/model"
)

// ErrMissingName is returned when a page has no usable country name. The
// record cannot be keyed and is skipped.
var ErrMissingName = errors.New("normalize: missing country name")

// Source identifies the document a record was extracted from.
type Source struct {
	URL       string
	Hash      string
	FetchedAt time.Time
}

// Normalizer assembles model.Records from extracted fields. It is safe for
// concurrent use once built.
type Normalizer struct {
	reg      *Registry
	resolver *Resolver
	log      *zap.Logger
}

// New returns a Normalizer using the default registry. resolver may be nil, in
// which case every neighbour is reported unmatched.
func New(resolver *Resolver, log *zap.Logger) *Normalizer {
	if resolver == nil {
		resolver = NewResolver()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{reg: DefaultRegistry(), resolver: resolver, log: log}
}

// Normalize converts fields into a Record. neighbors are the raw neighbour
// names for the country, usually from the land-border table. Field failures
// become anomalies and never abort the record; only a missing name does.
func (n *Normalizer) Normalize(src Source, fields model.Fields, neighbors []string) (model.Record, []model.Anomaly, error) {
	rec := model.Record{
		SourceURL:  src.URL,
		SourceHash: src.Hash,
		ScrapedAt:  src.FetchedAt.UTC(),
		Timezones:  []string{},
		Languages:  []string{},
		Neighbors:  []model.NeighborRef{},
		States:     make(map[model.Field]model.FieldState, len(model.AllFields)),
	}

	nameFrag, ok := fields.Lookup(model.FieldName)
	if !ok {
		return rec, nil, fmt.Errorf("%w: %s", ErrMissingName, src.URL)
	}
	name, ok := typed[string](n.reg.Parse(model.FieldName, nameFrag)).Value()
	if !ok {
		return rec, nil, fmt.Errorf("%w: %s", ErrMissingName, src.URL)
	}
	rec.Name = DisplayName(name)
	rec.Key = CanonicalKey(rec.Name)
	if rec.Key == "" {
		return rec, nil, fmt.Errorf("%w: %s", ErrMissingName, src.URL)
	}
	rec.States[model.FieldName] = model.FieldParsed

	var anomalies []model.Anomaly
	unparsed := func(f model.Field, raw, reason string) {
		anomalies = append(anomalies, model.Anomaly{
			Kind:      model.AnomalyUnparsedField,
			Country:   rec.Name,
			Field:     f,
			Value:     raw,
			Reason:    reason,
			SourceURL: src.URL,
		})
	}

	for _, f := range model.AllFields {
		if f == model.FieldName || f == model.FieldNeighbors {
			continue
		}
		frag, present := fields.Lookup(f)
		switch {
		case !present:
			rec.States[f] = model.FieldAbsent
			continue
		case isBlank(frag):
			rec.States[f] = model.FieldEmpty
			continue
		}
		res := n.reg.Parse(f, frag)
		if !res.OK() {
			rec.States[f] = model.FieldUnparseable
			unparsed(f, frag.Text, res.Reason())
			continue
		}
		rec.States[f] = model.FieldParsed
		if err := assign(&rec, f, res); err != nil {
			rec.States[f] = model.FieldUnparseable
			unparsed(f, frag.Text, err.Error())
		}
	}

	rec.Neighbors, anomalies = n.neighbors(rec, neighbors, anomalies)
	if neighbors == nil {
		rec.States[model.FieldNeighbors] = model.FieldAbsent
	} else {
		rec.States[model.FieldNeighbors] = model.FieldParsed
	}

	n.derive(&rec)
	return rec, anomalies, nil
}

func isBlank(f model.Fragment) bool {
	return collapse(f.Text) == "" && len(f.Links) == 0
}

func assign(rec *model.Record, f model.Field, res Result[any]) error {
	var r interface{ Reason() string }
	switch f {
	case model.FieldCapital:
		t := typed[string](res)
		rec.Capital, r = t.Ptr(), t
	case model.FieldGovernment:
		t := typed[string](res)
		rec.GovernmentType, r = t.Ptr(), t
	case model.FieldPopulation:
		t := typed[int64](res)
		rec.Population, r = t.Ptr(), t
	case model.FieldArea:
		t := typed[float64](res)
		rec.AreaKm2, r = t.Ptr(), t
	case model.FieldDensity:
		t := typed[float64](res)
		rec.Density, r = t.Ptr(), t
	case model.FieldLanguages:
		t := typed[[]string](res)
		if v, ok := t.Value(); ok {
			rec.Languages = v
		}
		r = t
	case model.FieldTimezones:
		t := typed[[]string](res)
		if v, ok := t.Value(); ok {
			rec.Timezones = v
		}
		r = t
	default:
		return fmt.Errorf("no record slot for field %s", f)
	}
	if reason := r.Reason(); reason != "" {
		return errors.New(reason)
	}
	return nil
}

// neighbors resolves raw neighbour names into a key-sorted set. Self
// references are dropped; unresolved names become anomalies.
func (n *Normalizer) neighbors(rec model.Record, raw []string, anomalies []model.Anomaly) ([]model.NeighborRef, []model.Anomaly) {
	out := []model.NeighborRef{}
	seen := map[string]bool{}
	for _, item := range raw {
		for _, name := range SplitList(item) {
			ref, ok := n.resolver.Resolve(name)
			if !ok {
				anomalies = append(anomalies, model.Anomaly{
					Kind:      model.AnomalyUnmatchedNeighbor,
					Country:   rec.Name,
					Field:     model.FieldNeighbors,
					Value:     name,
					Reason:    "no country with this name",
					SourceURL: rec.SourceURL,
				})
				continue
			}
			if ref.Key == rec.Key || seen[ref.Key] {
				continue
			}
			seen[ref.Key] = true
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, anomalies
}

// derive fills density from population and area, or area from population and
// density, when exactly one of them is missing.
func (n *Normalizer) derive(rec *model.Record) {
	if rec.Population == nil {
		return
	}
	pop := float64(*rec.Population)
	switch {
	case rec.Density == nil && rec.AreaKm2 != nil && *rec.AreaKm2 > 0:
		d := round1(pop / *rec.AreaKm2)
		rec.Density = &d
		rec.States[model.FieldDensity] = model.FieldDerived
		n.log.Debug("derived density", zap.String("country", rec.Name), zap.Float64("density", d))
	case rec.AreaKm2 == nil && rec.Density != nil && *rec.Density > 0:
		a := math.Trunc(pop / *rec.Density)
		rec.AreaKm2 = &a
		rec.States[model.FieldArea] = model.FieldDerived
		n.log.Debug("derived area", zap.String("country", rec.Name), zap.Float64("area_km2", a))
	}
}
