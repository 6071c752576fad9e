// internal/parser/html/textutil.go

// Package html provides small helpers on top of golang.org/x/net/html for
// pulling text out of wiki pages:
//
//   - Parse / FindAll / FindFirst / Attr / HasClass: DOM walking.
//   - Text: the visible text of a node, with line breaks kept as "\n".
//   - CollapseWhitespace / CleanLines / Letters: text normalization.
//
// Everything operates on strings and nodes and is safe for concurrent use.
package html

import (
	"strings"
	"unicode"
)

// CollapseWhitespace replaces consecutive whitespace characters with a single
// ASCII space (' ') and trims leading and trailing whitespace.
//
// Whitespace is any unicode space, so the no-break and thin spaces common in
// wiki number formatting collapse too.
func CollapseWhitespace(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	seenSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !seenSpace {
				b.WriteByte(' ')
				seenSpace = true
			}
			continue
		}
		b.WriteRune(r)
		seenSpace = false
	}

	return strings.TrimSpace(b.String())
}

// CleanLines collapses whitespace within each line of s and drops empty lines.
// Line structure is preserved, so list items extracted as separate lines stay
// separate.
func CleanLines(s string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = CollapseWhitespace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Letters lower-cases s and keeps only ASCII letters. Infobox headers are
// matched in this form, so "Official languages" and "Official language"
// both become "officiallanguages"/"officiallanguage".
func Letters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
