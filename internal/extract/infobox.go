// Package extract pulls raw field fragments out of wiki pages. It is purely
// structural: no value parsing happens here, and missing markup yields
// missing fields rather than errors.
package extract

import (
	"strings"

	"golang.org/x/net/html/atom"

	"statesdb/internal/model"
	"statesdb/internal/parser/html"
)

// headerRule decides whether an infobox row feeds a field. header is the row
// label reduced by html.Letters; cell is the value cell's text.
type headerRule struct {
	field model.Field
	match func(header, cell string) bool
}

func contains(subs ...string) func(string, string) bool {
	return func(h, _ string) bool {
		for _, s := range subs {
			if strings.Contains(h, s) {
				return true
			}
		}
		return false
	}
}

var rules = []headerRule{
	{model.FieldCapital, contains("capital")},
	{model.FieldGovernment, func(h, _ string) bool {
		return strings.Contains(h, "government") && !strings.Contains(h, "transitional")
	}},
	{model.FieldPopulation, func(h, cell string) bool {
		return !strings.Contains(h, "density") && contains("population", "estimate", "census")(h, cell)
	}},
	{model.FieldDensity, contains("density")},
	{model.FieldArea, func(h, cell string) bool {
		if strings.Contains(h, "density") {
			return false
		}
		return strings.Contains(h, "area") ||
			(strings.Contains(h, "total") && strings.Contains(strings.ToLower(cell), "km"))
	}},
	{model.FieldLanguages, contains("officiallanguage", "officialandnational", "nationallanguage")},
	{model.FieldTimezones, contains("timezone")},
}

// Infobox extracts the fields of the first table.infobox in body. A field
// whose row exists but whose cell is blank is present with empty Text.
// For scalar fields the first row with a non-empty cell wins.
func Infobox(body []byte) (model.Fields, error) {
	doc, err := html.ParseBytes(body)
	if err != nil {
		return nil, err
	}
	fields := model.Fields{}

	box := html.FindFirst(doc, html.Element(atom.Table, "infobox"))
	if name, ok := pageName(doc, box); ok {
		fields[model.FieldName] = name
	}
	if box == nil {
		return fields, nil
	}

	for _, tr := range html.Rows(box) {
		th := html.FindFirst(tr, html.Element(atom.Th))
		td := html.FindFirst(tr, html.Element(atom.Td))
		if th == nil || td == nil {
			continue
		}
		header := html.Letters(html.Text(th))
		frag := fragment(td)

		// daylight-saving offsets live on their own row after the time zone
		if strings.Contains(header, "summer") || strings.Contains(header, "dst") {
			if tz, ok := fields[model.FieldTimezones]; ok && frag.Text != "" {
				tz.Text = strings.TrimSpace(tz.Text + "\n" + frag.Text)
				fields[model.FieldTimezones] = tz
			}
			continue
		}

		for _, r := range rules {
			if !r.match(header, frag.Text) {
				continue
			}
			if prev, ok := fields[r.field]; ok && prev.Text != "" {
				continue
			}
			fields[r.field] = frag
		}
	}
	return fields, nil
}

func fragment(td *html.Node) model.Fragment {
	f := model.Fragment{Text: html.Text(td)}
	for _, l := range html.Links(td) {
		if l.Text == "" || strings.HasPrefix(l.Text, "[") || strings.HasPrefix(l.Href, "#") {
			continue
		}
		f.Links = append(f.Links, l.Text)
	}
	return f
}

// pageName prefers the infobox's div.fn.org, then the page heading.
func pageName(doc, box *html.Node) (model.Fragment, bool) {
	if n := html.FindFirst(box, html.Element(atom.Div, "fn", "org")); n != nil {
		return model.Fragment{Text: html.CollapseWhitespace(html.Text(n))}, true
	}
	if n := html.FindFirst(doc, html.Element(atom.H1)); n != nil {
		return model.Fragment{Text: html.CollapseWhitespace(html.Text(n))}, true
	}
	return model.Fragment{}, false
}
