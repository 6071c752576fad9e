package file

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// wikiPrefix turns a bare page title into a locator.
const wikiPrefix = "/wiki/"

// ReadList reads a locator list file. See ParseList for the format.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("locator list: %w", err)
	}
	defer f.Close()

	out, err := ParseList(f)
	if err != nil {
		return nil, fmt.Errorf("locator list %s: %w", path, err)
	}
	return out, nil
}

// ParseList reads one locator per line: a page path ("/wiki/France"), an
// absolute URL, or a bare page title ("Czech Republic"), which becomes
// "/wiki/Czech_Republic". Text after " #" is a comment. Blank and comment
// lines are skipped and duplicates keep their first position.
func ParseList(r io.Reader) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		loc := sc.Text()
		if i := strings.Index(loc, " #"); i >= 0 {
			loc = loc[:i]
		}
		loc = strings.TrimSpace(loc)
		if loc == "" || strings.HasPrefix(loc, "#") {
			continue
		}
		loc = locator(loc)
		if loc == wikiPrefix {
			return nil, fmt.Errorf("line %d: empty page title", line)
		}
		if seen[loc] {
			continue
		}
		seen[loc] = true
		out = append(out, loc)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func locator(s string) string {
	if strings.HasPrefix(s, "/") || strings.Contains(s, "://") {
		return s
	}
	return wikiPrefix + strings.ReplaceAll(strings.TrimSpace(strings.TrimPrefix(s, "wiki/")), " ", "_")
}
