package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/atom"

	"statesdb/internal/parser/html"
)

// Marker texts identifying the sovereign-state table on the list page.
const (
	listMarkerNames      = "Common and formal names"
	listMarkerMembership = "Membership within the UN"
)

// SovereignStates returns the country page paths listed on the sovereign
// states page: for each row of the first wikitable carrying both marker
// headings, the first /wiki/ link of the row's first data cell. Paths are
// deduplicated in page order. A page without the table yields nil.
func SovereignStates(body []byte) ([]string, error) {
	doc, err := html.ParseBytes(body)
	if err != nil {
		return nil, err
	}
	var target *html.Node
	for _, t := range html.FindAll(doc, html.Element(atom.Table, "wikitable")) {
		text := html.CollapseWhitespace(html.Text(t))
		if strings.Contains(text, listMarkerNames) && strings.Contains(text, listMarkerMembership) {
			target = t
			break
		}
	}
	if target == nil {
		return nil, nil
	}

	var out []string
	seen := map[string]bool{}
	for _, tr := range html.Rows(target) {
		td := html.FindFirst(tr, html.Element(atom.Td))
		if td == nil {
			continue
		}
		for _, l := range html.Links(td) {
			if !countryHref(l.Href) {
				continue
			}
			if !seen[l.Href] {
				seen[l.Href] = true
				out = append(out, l.Href)
			}
			break
		}
	}
	return out, nil
}

func countryHref(href string) bool {
	return strings.HasPrefix(href, "/wiki/") &&
		!strings.Contains(href, "File:") &&
		!strings.Contains(href, "Help:") &&
		!strings.Contains(href, "cite_note")
}

// LandBorders reads the land-border table: the first wikitable, rows with at
// least four cells, the country named by the first link of the first cell and
// its neighbours by the /wiki/ links of the last cell. Neighbour lists are
// deduplicated in page order.
func LandBorders(body []byte) (map[string][]string, error) {
	doc, err := html.ParseBytes(body)
	if err != nil {
		return nil, err
	}
	out := map[string][]string{}
	table := html.FindFirst(doc, html.Element(atom.Table, "wikitable"))
	if table == nil {
		return out, nil
	}

	rows := html.Rows(table)
	for i, tr := range rows {
		if i == 0 {
			continue // header
		}
		cells := html.Cells(tr)
		if len(cells) < 4 {
			continue
		}
		first := html.Links(cells[0])
		if len(first) == 0 {
			continue
		}
		name := html.CollapseWhitespace(first[0].Text)
		if name == "" {
			continue
		}

		neighbors := []string{}
		seen := map[string]bool{}
		for _, l := range html.Links(cells[len(cells)-1]) {
			n := strings.TrimSpace(l.Text)
			if utf8.RuneCountInString(n) <= 2 || !strings.Contains(l.Href, "/wiki/") || strings.HasPrefix(n, "[") {
				continue
			}
			if !seen[n] {
				seen[n] = true
				neighbors = append(neighbors, n)
			}
		}
		out[name] = neighbors
	}
	return out, nil
}
