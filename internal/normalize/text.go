package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"statesdb/internal/model"
)

// governmentSynonyms maps a lower-cased, whitespace-collapsed government form
// to its canonical spelling.
var governmentSynonyms = map[string]string{
	"federal republic":                                      "Federal republic",
	"federal parliamentary republic":                        "Federal parliamentary republic",
	"federal parliamentary constitutional republic":         "Federal parliamentary republic",
	"federal presidential republic":                         "Federal presidential republic",
	"federal presidential constitutional republic":          "Federal presidential republic",
	"federal semi-presidential republic":                    "Federal semi-presidential republic",
	"federal semi presidential republic":                    "Federal semi-presidential republic",
	"unitary parliamentary republic":                        "Unitary parliamentary republic",
	"parliamentary republic":                                "Unitary parliamentary republic",
	"unitary parliamentary constitutional republic":         "Unitary parliamentary republic",
	"unitary presidential republic":                         "Unitary presidential republic",
	"presidential republic":                                 "Unitary presidential republic",
	"unitary presidential constitutional republic":          "Unitary presidential republic",
	"unitary semi-presidential republic":                    "Unitary semi-presidential republic",
	"unitary semi presidential republic":                    "Unitary semi-presidential republic",
	"semi-presidential republic":                            "Unitary semi-presidential republic",
	"unitary parliamentary constitutional monarchy":         "Parliamentary constitutional monarchy",
	"parliamentary constitutional monarchy":                 "Parliamentary constitutional monarchy",
	"constitutional monarchy":                               "Constitutional monarchy",
	"unitary constitutional monarchy":                       "Constitutional monarchy",
	"federal parliamentary constitutional monarchy":         "Federal parliamentary constitutional monarchy",
	"absolute monarchy":                                     "Absolute monarchy",
	"unitary absolute monarchy":                             "Absolute monarchy",
	"islamic republic":                                      "Islamic republic",
	"unitary marxist-leninist one-party socialist republic": "One-party socialist republic",
	"marxist-leninist one-party socialist republic":         "One-party socialist republic",
	"unitary one-party socialist republic":                  "One-party socialist republic",
	"one-party socialist republic":                          "One-party socialist republic",
	"unitary theocratic absolute monarchy":                  "Theocratic absolute monarchy",
	"theocratic absolute monarchy":                          "Theocratic absolute monarchy",
	"military junta":                                        "Military junta",
	"unitary provisional government under a military junta": "Military junta",
	"provisional government":                                "Provisional government",
	"directorial republic":                                  "Directorial republic",
	"federal directorial republic":                          "Directorial republic",
}

var dashReplacer = strings.NewReplacer("–", "-", "‐", "-", "‑", "-", "—", "-", "−", "-")

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = collapse(line); line != "" {
			return line
		}
	}
	return ""
}

func startsWithDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsDigit(r)
}

// ParseText trims a free-text value to its first meaningful line, without
// footnotes or parenthesized asides.
func ParseText(s string) Result[string] {
	v := firstLine(stripAsides(s))
	v = strings.Trim(v, " ,;:")
	if v == "" {
		return Fail[string]("no text in %q", s)
	}
	return Ok(v)
}

// ParseCapital prefers the first anchor text of the cell, which names the city
// without its coordinates, then falls back to the cell text.
func ParseCapital(f model.Fragment) Result[string] {
	for _, l := range f.Links {
		l = collapse(StripFootnotes(l))
		if l != "" && !startsWithDigit(l) {
			return Ok(l)
		}
	}
	r := ParseText(f.Text)
	if v, ok := r.Value(); ok {
		// drop coordinates written on the same line
		if i := strings.IndexAny(v, "0123456789"); i > 0 && strings.ContainsRune(v[i:], '°') {
			v = strings.TrimSpace(v[:i])
		}
		if v == "" || startsWithDigit(v) {
			return Fail[string]("capital %q is not a name", f.Text)
		}
		return Ok(v)
	}
	return r
}

// ParseGovernment canonicalizes a government form through the synonym table.
// Unknown forms are stored in sentence case, so equal forms compare equal as
// stored; values starting with a digit are mis-scraped dates and are rejected.
func ParseGovernment(s string) Result[string] {
	v := firstLine(stripAsides(s))
	if v == "" {
		return Fail[string]("no government form in %q", s)
	}
	if startsWithDigit(v) {
		return Fail[string]("government form %q starts with a digit", v)
	}
	key := strings.ToLower(dashReplacer.Replace(v))
	if canon, ok := governmentSynonyms[key]; ok {
		return Ok(canon)
	}
	r, n := utf8.DecodeRuneInString(key)
	return Ok(string(unicode.ToUpper(r)) + key[n:])
}
