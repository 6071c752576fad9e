package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKey(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"France":                "france",
		"  Côte d’Ivoire ":      "cote d'ivoire",
		"São Tomé and Príncipe": "sao tome and principe",
		"The Gambia":            "gambia",
		"Timor–Leste":           "timor-leste",
		"Germany[a]":            "germany",
		"STRASSE":               "strasse",
		"Curaçao":               "curacao",
		"":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalKey(in), in)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Georgia", DisplayName("Georgia (country)[1]"))
	assert.Equal(t, "Côte d'Ivoire", DisplayName("  Côte d'Ivoire  "))
}

func TestResolver(t *testing.T) {
	t.Parallel()

	r := NewResolver("France", "Germany", "Spain", "Côte d'Ivoire", "Czechia",
		"Republic of the Congo", "Democratic Republic of the Congo", "Bosnia and Herzegovina")
	require.Equal(t, 8, r.Len())

	cases := []struct {
		in      string
		wantKey string
		ok      bool
	}{
		{"germany", "germany", true},
		{"FRANCE[1]", "france", true},
		{"Ivory Coast", "cote d'ivoire", true},
		{"Czech Republic", "czechia", true},
		{"Bosnia", "bosnia and herzegovina", true},
		{"Congo", "", false},
		{"Atlantis", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		ref, ok := r.Resolve(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.wantKey, ref.Key, tc.in)
	}
}

func TestResolver_ResolveExact(t *testing.T) {
	t.Parallel()

	r := NewResolver("Nigeria", "Czechia")
	ref, ok := r.ResolveExact("Czech Republic")
	require.True(t, ok)
	assert.Equal(t, "czechia", ref.Key)

	_, ok = r.ResolveExact("Niger")
	assert.False(t, ok, "containment is not an exact match")
	ref, ok = r.Resolve("Niger")
	require.True(t, ok)
	assert.Equal(t, "nigeria", ref.Key)
}

func TestResolver_FirstSpellingWins(t *testing.T) {
	t.Parallel()

	r := NewResolver("Türkiye")
	r.Add("TURKIYE")
	assert.Equal(t, 1, r.Len())

	ref, ok := r.Resolve("Turkey")
	require.True(t, ok)
	assert.Equal(t, "Türkiye", ref.Name)
}

func TestBorderIndex(t *testing.T) {
	t.Parallel()

	idx := NewBorderIndex(map[string][]string{
		"France":        {"Spain", "Germany"},
		"Ivory Coast":   {"Ghana"},
		"United States": {"Canada", "Mexico"},
	})
	assert.Equal(t, []string{"France", "Ivory Coast", "United States"}, idx.Names())

	got, ok := idx.Lookup("FRANCE")
	require.True(t, ok)
	assert.Equal(t, []string{"Spain", "Germany"}, got)

	got, ok = idx.Lookup("Côte d'Ivoire")
	require.True(t, ok)
	assert.Equal(t, []string{"Ghana"}, got)

	// containment: infobox name longer than the table key
	got, ok = idx.Lookup("United States of Americas")
	require.True(t, ok)
	assert.Equal(t, []string{"Canada", "Mexico"}, got)

	_, ok = idx.Lookup("Atlantis")
	assert.False(t, ok)
}

func TestBorderIndex_LookupPrefersExactTitle(t *testing.T) {
	t.Parallel()

	idx := NewBorderIndex(map[string][]string{
		"France":                           {"Spain"},
		"Republic of Congo":                {"Gabon"},
		"Democratic Republic of the Congo": {"Angola"},
	})

	// the long-form infobox name matches nothing; the page title does
	got, ok := idx.Lookup("French Republic", "France")
	require.True(t, ok)
	assert.Equal(t, []string{"Spain"}, got)

	got, ok = idx.Lookup("Republic of the Congo", "Republic of Congo")
	require.True(t, ok)
	assert.Equal(t, []string{"Gabon"}, got)

	_, ok = idx.Lookup("French Republic", "")
	assert.False(t, ok)
}

func TestTitleFromLocator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		loc  string
		want string
	}{
		{"/wiki/France", "France"},
		{"https://en.wikipedia.org/wiki/United_Kingdom", "United Kingdom"},
		{"/wiki/C%C3%B4te_d%27Ivoire#History", "Côte d'Ivoire"},
		{"/wiki/Guinea-Bissau?action=view", "Guinea-Bissau"},
		{"file:///mirror/pages/Spain", "Spain"},
		{"", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.loc, func(t *testing.T) {
			t.Parallel()
			if got := TitleFromLocator(tt.loc); got != tt.want {
				t.Fatalf("TitleFromLocator(%q) = %q, want %q", tt.loc, got, tt.want)
			}
		})
	}
}

func TestAliasKeys(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []string{"ivory coast"}, AliasKeys("cote d'ivoire"))
	assert.Contains(t, AliasKeys("ivory coast"), "cote d'ivoire")
	assert.Nil(t, AliasKeys("france"))
}
