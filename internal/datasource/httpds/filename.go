// URL -> filename helpers for the page mirror
// internal/datasource/httpds/filename.go

package httpds

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/zeebo/xxh3"
)

// filenameCleaner replaces sequences of non-alphanumeric characters with "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// maxFilename keeps mirror names well below common filesystem limits.
const maxFilename = 120

// HashString returns a stable xxh3 hex digest of s.
func HashString(s string) string {
	return strconv.FormatUint(xxh3.HashString(s), 16)
}

// SafeFilenameFromURL derives a filesystem-safe filename from a page URL or
// path. Wiki pages carry their identity in the path, so the path is cleaned
// ("/wiki/C%C3%B4te_d'Ivoire" -> "wiki_C_C3_B4te_d_Ivoire") and suffixed with
// a short hash of path and query, which keeps distinct pages that clean to the
// same text apart. An absolute URL and its bare path map to the same name.
// Unparseable input falls back to a hash of the input.
func SafeFilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}
	h := HashString(u.EscapedPath() + "?" + u.RawQuery)
	clean := filenameCleaner.ReplaceAllString(u.EscapedPath(), "_")
	for len(clean) > 0 && clean[0] == '_' {
		clean = clean[1:]
	}
	for len(clean) > 0 && clean[len(clean)-1] == '_' {
		clean = clean[:len(clean)-1]
	}
	if clean == "" {
		return h
	}
	if len(clean) > maxFilename {
		clean = clean[:maxFilename]
	}
	return clean + "_" + h
}
