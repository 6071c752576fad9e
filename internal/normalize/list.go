package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// listSplitter separates list elements: commas, semicolons, pipes, bullets and
// line breaks.
var listSplitter = regexp.MustCompile(`[,;|\n•·]+`)

// noiseTokens are headings and filler words that show up inside list cells.
var noiseTokens = map[string]bool{
	"list":               true,
	"see list":           true,
	"none":               true,
	"n/a":                true,
	"languages":          true,
	"language":           true,
	"official":           true,
	"official languages": true,
	"official language":  true,
	"national language":  true,
	"national languages": true,
	"recognised":         true,
	"recognized":         true,
	"regional languages": true,
	"de facto":           true,
	"various":            true,
	"and":                true,
	"summer":             true,
	"summer (dst)":       true,
	"dst":                true,
	"not observed":       true,
}

// SplitList splits a delimited cell into trimmed elements, dropping empty
// elements and noise tokens and removing case-insensitive duplicates. The
// first spelling of each element is kept, in input order.
func SplitList(s string) []string {
	parts := listSplitter.Split(StripFootnotes(s), -1)
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.Trim(collapse(p), " -–:.")
		if p == "" || noiseTokens[strings.ToLower(p)] {
			continue
		}
		k := CanonicalKey(p)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

// ParseLanguages returns the language set of a cell, sorted by key.
// Parenthesized qualifiers are dropped, as are elements that are too short or
// start with a digit.
func ParseLanguages(s string) Result[[]string] {
	items := SplitList(stripAsides(s))
	out := items[:0]
	for _, it := range items {
		if utf8.RuneCountInString(it) <= 2 || startsWithDigit(it) {
			continue
		}
		if strings.Contains(strings.ToLower(it), "list") {
			continue
		}
		out = append(out, it)
	}
	sortByKey(out)
	return Ok(out)
}

func sortByKey(items []string) {
	sort.SliceStable(items, func(i, j int) bool {
		return CanonicalKey(items[i]) < CanonicalKey(items[j])
	})
}

var utcOffsetRe = regexp.MustCompile(`(?i)^(?:utc|gmt)\s*(?:([+\-±−–])\s*(\d{1,2})(?:\s*[:.]\s*(\d{2}))?)?$`)

// canonicalTimezone rewrites "UTC +1" as "UTC+01:00" and "UTC−5:30" as
// "UTC-05:30". Unrecognized entries are returned trimmed.
func canonicalTimezone(s string) string {
	s = collapse(stripAsides(s))
	m := utcOffsetRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	if m[1] == "" {
		return "UTC+00:00"
	}
	sign := "+"
	if m[1] != "+" && m[1] != "±" {
		sign = "-"
	}
	h, _ := strconv.Atoi(m[2])
	mins := 0
	if m[3] != "" {
		mins, _ = strconv.Atoi(m[3])
	}
	if h > 14 || mins > 59 {
		return s
	}
	if h == 0 && mins == 0 {
		sign = "+"
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, h, mins)
}

// ParseTimezones splits a timezone cell and canonicalizes each entry. Order
// is preserved and duplicates after canonicalization are dropped.
func ParseTimezones(s string) Result[[]string] {
	items := SplitList(s)
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		// "UTC+1 to +3", "UTC+1 (CET)" and similar keep only the leading offset
		if i := strings.Index(strings.ToLower(it), " to "); i > 0 {
			it = it[:i]
		}
		tz := canonicalTimezone(it)
		if tz == "" || seen[tz] {
			continue
		}
		seen[tz] = true
		out = append(out, tz)
	}
	return Ok(out)
}
