package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"statesdb/internal/model"
)

func TestParseGovernment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"federal republic", "Federal republic", true},
		{"  Federal   Parliamentary  Republic[1]", "Federal parliamentary republic", true},
		{"Unitary semi‑presidential republic", "Unitary semi-presidential republic", true},
		{"Unitary semi-presidential republic\n• President", "Unitary semi-presidential republic", true},
		{"Elective theocratic monarchy", "Elective theocratic monarchy", true},
		{"ELECTIVE Theocratic  monarchy", "Elective theocratic monarchy", true},
		{"élective monarchy", "Élective monarchy", true},
		{"1991 (independence)", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseGovernment(tc.in).Value()
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseCapital(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   model.Fragment
		want string
		ok   bool
	}{
		{"link", model.Fragment{Text: "Paris\n48°51′N 2°21′E", Links: []string{"Paris", "48°51′N 2°21′E"}}, "Paris", true},
		{"text only", model.Fragment{Text: "Canberra[2]\n35°18′S"}, "Canberra", true},
		{"same line coords", model.Fragment{Text: "Bern 46°57′N 7°27′E"}, "Bern", true},
		{"aside", model.Fragment{Text: "Amsterdam (constitutional)"}, "Amsterdam", true},
		{"empty", model.Fragment{Text: "  "}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseCapital(tc.in).Value()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"France, germany , Spain", []string{"France", "germany", "Spain"}},
		{"France; FRANCE | Spain\nSpain", []string{"France", "Spain"}},
		{"List:\n• English\n• Maori[3]", []string{"English", "Maori"}},
		{"None", []string{}},
		{" , ;; ", []string{}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, SplitList(tc.in)); diff != "" {
			t.Errorf("SplitList(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestParseLanguages(t *testing.T) {
	t.Parallel()

	got, ok := ParseLanguages("Swedish\nFinnish (minority)\nEnglish, swedish[4]\n2 regional").Value()
	assert.True(t, ok)
	assert.Equal(t, []string{"English", "Finnish", "Swedish"}, got)
}

func TestParseTimezones(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"UTC+1 (CET)\nSummer (DST)\nUTC+2 (CEST)", []string{"UTC+01:00", "UTC+02:00"}},
		{"UTC −5; UTC +1; utc-5:00", []string{"UTC-05:00", "UTC+01:00"}},
		{"UTC", []string{"UTC+00:00"}},
		{"UTC+5:30", []string{"UTC+05:30"}},
		{"UTC+3 to +12", []string{"UTC+03:00"}},
		{"Moscow Time", []string{"Moscow Time"}},
		{"UTC±00:00", []string{"UTC+00:00"}},
	}
	for _, tc := range cases {
		got, ok := ParseTimezones(tc.in).Value()
		assert.True(t, ok)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseTimezones(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}
