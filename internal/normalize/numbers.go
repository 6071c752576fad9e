package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	footnoteRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	parenRe    = regexp.MustCompile(`\([^()]*\)`)
	spaceRe    = regexp.MustCompile(`\s+`)

	// magnitudeRe matches a magnitude word or suffix directly after a number.
	// A suffix followed by another letter ("km", "mi") is a unit, not a
	// magnitude.
	magnitudeRe = regexp.MustCompile(`(?i)^[\s\x{00a0}\x{202f}\x{2009}]*(thousand|million|billion|trillion|bn|k|m|b|t)(?:[^\pL]|$)`)

	unitRe = regexp.MustCompile(`(?i)(/\s*)?(km²|km2|sq\.?\s*mi|mi²|mi2|square\s+(?:kilometres|kilometers|miles))`)
)

var magnitudes = map[string]int{
	"thousand": 3,
	"k":        3,
	"million":  6,
	"m":        6,
	"billion":  9,
	"b":        9,
	"bn":       9,
	"trillion": 12,
	"t":        12,
}

// StripFootnotes removes bracketed reference markers such as "[1]", "[a]" or
// "[note 3]".
func StripFootnotes(s string) string {
	return footnoteRe.ReplaceAllString(s, "")
}

// stripAsides removes footnotes and parenthesized asides, innermost first.
func stripAsides(s string) string {
	s = StripFootnotes(s)
	for {
		next := parenRe.ReplaceAllString(s, " ")
		if next == s {
			return s
		}
		s = next
	}
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// groupSep reports separators that are only ever thousands grouping.
func groupSep(r rune) bool {
	switch r {
	case ' ', '\u00a0', '\u202f', '\u2009', '\'', '\u2019':
		return true
	}
	return false
}

type numToken struct {
	raw  string // digits and separators, as written
	neg  bool
	rest string // text following the token
}

// firstNumber scans s for its first numeric token.
func firstNumber(s string) (numToken, bool) {
	start := -1
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return numToken{}, false
	}
	tok := numToken{}
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:start])
		tok.neg = prev == '-' || prev == '−'
	}

	end := start
	for end < len(s) {
		if isDigit(s[end]) {
			end++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[end:])
		next := end + size
		switch {
		case r == ',' || r == '.':
			if next < len(s) && isDigit(s[next]) {
				end = next
				continue
			}
		case groupSep(r):
			// a grouping space or apostrophe must be followed by exactly three digits
			if next+3 <= len(s) && isDigit(s[next]) && isDigit(s[next+1]) && isDigit(s[next+2]) &&
				(next+3 == len(s) || !isDigit(s[next+3])) {
				end = next
				continue
			}
		}
		break
	}
	tok.raw = s[start:end]
	tok.rest = s[end:]
	return tok, true
}

// splitDecimal separates a numeric token into integer and fraction digits.
// When both ',' and '.' appear the last one is the decimal mark. A single
// separator kind appearing more than once is grouping. Appearing once with
// exactly three trailing digits it is grouping, except for a '.' when
// preferDecimal is set (a magnitude follows, as in "1.250 million"). A comma
// with three trailing digits is always grouping: "1,234 million".
func splitDecimal(raw string, preferDecimal bool) (intPart, frac string, ok bool) {
	var b strings.Builder
	for _, r := range raw {
		if !groupSep(r) {
			b.WriteRune(r)
		}
	}
	t := b.String()

	lastComma := strings.LastIndexByte(t, ',')
	lastDot := strings.LastIndexByte(t, '.')
	decimal := -1
	switch {
	case lastComma >= 0 && lastDot >= 0:
		decimal = max(lastComma, lastDot)
	case lastComma >= 0 || lastDot >= 0:
		idx, sep := lastComma, ","
		if lastDot >= 0 {
			idx, sep = lastDot, "."
		}
		trailing := len(t) - idx - 1
		if strings.Count(t, sep) == 1 && (trailing != 3 || (preferDecimal && sep == ".")) {
			decimal = idx
		}
	}

	head, tail := t, ""
	if decimal >= 0 {
		head, tail = t[:decimal], t[decimal+1:]
	}
	head = strings.NewReplacer(",", "", ".", "").Replace(head)
	if head == "" {
		head = "0"
	}
	for i := 0; i < len(head); i++ {
		if !isDigit(head[i]) {
			return "", "", false
		}
	}
	for i := 0; i < len(tail); i++ {
		if !isDigit(tail[i]) {
			return "", "", false
		}
	}
	return head, tail, true
}

// magnitudeAfter returns the power of ten named right after a number.
func magnitudeAfter(rest string) int {
	m := magnitudeRe.FindStringSubmatch(rest)
	if m == nil {
		return 0
	}
	return magnitudes[strings.ToLower(m[1])]
}

// scale multiplies intPart.frac by 10^exp exactly, truncating any fraction
// digits left over.
func scale(intPart, frac string, exp int) (int64, bool) {
	if len(frac) > exp {
		frac = frac[:exp]
	} else {
		frac += strings.Repeat("0", exp-len(frac))
	}
	digits := strings.TrimLeft(intPart+frac, "0")
	if digits == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseInteger parses a non-negative integer with optional grouping and a
// magnitude word ("35 million", "1.2B", "67,750,000 (2023 estimate)"). The
// first numeric token in the text is used.
func ParseInteger(s string) Result[int64] {
	clean := stripAsides(s)
	tok, ok := firstNumber(clean)
	if !ok {
		return Fail[int64]("no number in %q", s)
	}
	if tok.neg {
		return Fail[int64]("negative value in %q", s)
	}
	exp := magnitudeAfter(tok.rest)
	intPart, frac, ok := splitDecimal(tok.raw, exp > 0)
	if !ok {
		return Fail[int64]("malformed number %q", tok.raw)
	}
	n, ok := scale(intPart, frac, exp)
	if !ok {
		return Fail[int64]("number %q out of range", tok.raw)
	}
	return Ok(n)
}

// ParseFloat parses a non-negative decimal with optional unit text, such as
// "1,234.5 km²[2]" or "643,801 km2 (248,573 sq mi)".
func ParseFloat(s string) Result[float64] {
	clean := unitRe.ReplaceAllString(stripAsides(s), " ")
	tok, ok := firstNumber(clean)
	if !ok {
		return Fail[float64]("no number in %q", s)
	}
	if tok.neg {
		return Fail[float64]("negative value in %q", s)
	}
	exp := magnitudeAfter(tok.rest)
	intPart, frac, ok := splitDecimal(tok.raw, exp > 0)
	if !ok {
		return Fail[float64]("malformed number %q", tok.raw)
	}
	lit := intPart
	if frac != "" {
		lit += "." + frac
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) {
		return Fail[float64]("number %q out of range", tok.raw)
	}
	if exp > 0 {
		f *= math.Pow10(exp)
	}
	return Ok(f)
}

// round1 rounds to one decimal place.
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
