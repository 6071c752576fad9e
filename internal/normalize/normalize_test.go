package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statesdb/internal/model"
)

func frag(s string) model.Fragment { return model.Fragment{Text: s} }

func TestNormalize_FullRecord(t *testing.T) {
	t.Parallel()

	n := New(NewResolver("France", "Germany", "Spain", "Belgium"), nil)
	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	fields := model.Fields{
		model.FieldName:       frag("France[a]"),
		model.FieldCapital:    {Text: "Paris\n48°51′N", Links: []string{"Paris"}},
		model.FieldGovernment: frag("Unitary semi-presidential republic"),
		model.FieldPopulation: frag("68,373,433[5] (2023 estimate)"),
		model.FieldArea:       frag("643,801 km2 (248,573 sq mi)"),
		model.FieldLanguages:  frag("French"),
		model.FieldTimezones:  frag("UTC+1 (CET)\nSummer (DST)\nUTC+2 (CEST)"),
	}

	rec, anomalies, err := n.Normalize(Source{URL: "https://example.org/wiki/France", Hash: "abc", FetchedAt: fetched},
		fields, []string{"Spain, germany , Belgium, France"})
	require.NoError(t, err)
	assert.Empty(t, anomalies)

	assert.Equal(t, "France", rec.Name)
	assert.Equal(t, "france", rec.Key)
	assert.Equal(t, "Paris", *rec.Capital)
	assert.Equal(t, int64(68_373_433), *rec.Population)
	assert.InDelta(t, 643801, *rec.AreaKm2, 1e-9)
	assert.InDelta(t, 106.2, *rec.Density, 1e-9)
	assert.Equal(t, "Unitary semi-presidential republic", *rec.GovernmentType)
	assert.Equal(t, []string{"French"}, rec.Languages)
	assert.Equal(t, []string{"UTC+01:00", "UTC+02:00"}, rec.Timezones)
	assert.Equal(t, time.UTC, rec.ScrapedAt.Location())

	want := []model.NeighborRef{
		{Name: "Belgium", Key: "belgium"},
		{Name: "Germany", Key: "germany"},
		{Name: "Spain", Key: "spain"},
	}
	if diff := cmp.Diff(want, rec.Neighbors); diff != "" {
		t.Fatalf("neighbors mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, model.FieldDerived, rec.States[model.FieldDensity])
	assert.Equal(t, model.FieldParsed, rec.States[model.FieldPopulation])
}

func TestNormalize_FieldStates(t *testing.T) {
	t.Parallel()

	n := New(nil, nil)
	rec, anomalies, err := n.Normalize(Source{URL: "u"}, model.Fields{
		model.FieldName:       frag("Nowhere"),
		model.FieldPopulation: frag("No data"),
		model.FieldArea:       frag(""),
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, rec.Population)
	assert.Nil(t, rec.AreaKm2)
	assert.Nil(t, rec.Density)
	assert.Equal(t, model.FieldUnparseable, rec.States[model.FieldPopulation])
	assert.Equal(t, model.FieldEmpty, rec.States[model.FieldArea])
	assert.Equal(t, model.FieldAbsent, rec.States[model.FieldDensity])
	assert.Equal(t, model.FieldAbsent, rec.States[model.FieldNeighbors])
	assert.NotNil(t, rec.Languages)
	assert.Empty(t, rec.Languages)

	require.Len(t, anomalies, 1)
	assert.Equal(t, model.AnomalyUnparsedField, anomalies[0].Kind)
	assert.Equal(t, model.FieldPopulation, anomalies[0].Field)
	assert.Equal(t, "No data", anomalies[0].Value)
}

func TestNormalize_DerivesArea(t *testing.T) {
	t.Parallel()

	rec, _, err := New(nil, nil).Normalize(Source{}, model.Fields{
		model.FieldName:       frag("Derivia"),
		model.FieldPopulation: frag("1,000"),
		model.FieldDensity:    frag("3/km²"),
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, rec.AreaKm2)
	assert.Equal(t, 333.0, *rec.AreaKm2)
	assert.Equal(t, model.FieldDerived, rec.States[model.FieldArea])
}

func TestNormalize_UnmatchedNeighborAndSelf(t *testing.T) {
	t.Parallel()

	n := New(NewResolver("Spain", "Andorra"), nil)
	rec, anomalies, err := n.Normalize(Source{URL: "u"}, model.Fields{model.FieldName: frag("Andorra")},
		[]string{"Spain", "Atlantis", "Andorra"})
	require.NoError(t, err)

	assert.Equal(t, []model.NeighborRef{{Name: "Spain", Key: "spain"}}, rec.Neighbors)
	require.Len(t, anomalies, 1)
	assert.Equal(t, model.AnomalyUnmatchedNeighbor, anomalies[0].Kind)
	assert.Equal(t, "Atlantis", anomalies[0].Value)
}

func TestNormalize_MissingName(t *testing.T) {
	t.Parallel()

	n := New(nil, nil)
	for _, fields := range []model.Fields{
		{},
		{model.FieldName: frag("")},
		{model.FieldName: frag("[1]")},
	} {
		_, _, err := n.Normalize(Source{URL: "https://example.org/x"}, fields, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingName))
		assert.Contains(t, err.Error(), "https://example.org/x")
	}
}

func TestRegistry_UnknownField(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	res := r.Parse(model.Field("motto"), frag("Liberté"))
	assert.False(t, res.OK())
	assert.Contains(t, res.Reason(), "motto")

	k, ok := r.KindOf(model.FieldPopulation)
	assert.True(t, ok)
	assert.Equal(t, KindInteger, k)
}
