package normalize

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"statesdb/internal/model"
)

var punctReplacer = strings.NewReplacer(
	"’", "'", "‘", "'", "`", "'", "ʼ", "'",
	"–", "-", "‐", "-", "‑", "-", "—", "-",
	"\u00a0", " ",
)

// CanonicalKey is the comparison form of a name: footnotes removed, diacritics
// stripped, case-folded, apostrophes and dashes unified and whitespace
// collapsed. A leading "the " is dropped so "The Gambia" and "Gambia" meet.
func CanonicalKey(s string) string {
	s = punctReplacer.Replace(StripFootnotes(s))
	// transformers carry state, so each call builds its own chain
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = collapse(folded)
	folded = strings.TrimPrefix(folded, "the ")
	return strings.Trim(folded, " ,;:.")
}

// DisplayName is the stored spelling of a name: footnotes and parenthesized
// asides removed, whitespace collapsed.
func DisplayName(s string) string {
	return strings.Trim(collapse(stripAsides(s)), " ,;:")
}

// aliasGroups list names that refer to the same country. Keys are in
// CanonicalKey form.
var aliasGroups = [][]string{
	{"cote d'ivoire", "ivory coast"},
	{"czechia", "czech republic"},
	{"timor-leste", "east timor"},
	{"eswatini", "swaziland"},
	{"myanmar", "burma"},
	{"cabo verde", "cape verde"},
	{"north macedonia", "macedonia", "republic of north macedonia"},
	{"turkey", "turkiye"},
	{"vatican city", "holy see", "vatican"},
	{"republic of the congo", "congo-brazzaville", "congo republic"},
	{"democratic republic of the congo", "dr congo", "congo-kinshasa", "drc"},
	{"united kingdom", "uk", "great britain"},
	{"united states", "united states of america", "usa", "us"},
	{"russia", "russian federation"},
	{"south korea", "republic of korea", "korea, south"},
	{"north korea", "democratic people's republic of korea", "korea, north"},
	{"laos", "lao people's democratic republic", "lao pdr"},
	{"federated states of micronesia", "micronesia"},
	{"state of palestine", "palestine"},
	{"sao tome and principe", "são tomé and príncipe"},
	{"brunei", "brunei darussalam"},
	{"vietnam", "viet nam"},
	{"syria", "syrian arab republic"},
	{"iran", "islamic republic of iran"},
	{"moldova", "republic of moldova"},
	{"bolivia", "plurinational state of bolivia"},
	{"venezuela", "bolivarian republic of venezuela"},
	{"tanzania", "united republic of tanzania"},
}

var aliases = func() map[string][]string {
	m := make(map[string][]string)
	for _, g := range aliasGroups {
		keys := make([]string, len(g))
		for i, n := range g {
			keys[i] = CanonicalKey(n)
		}
		for _, k := range keys {
			m[k] = append(m[k], keys...)
		}
	}
	return m
}()

// AliasKeys returns the other canonical keys known to name the same country
// as key. It returns nil when key has no aliases.
func AliasKeys(key string) []string {
	var out []string
	for _, alt := range aliases[key] {
		if alt != key {
			out = append(out, alt)
		}
	}
	return out
}

// TitleFromLocator returns the page title a locator points at:
// "/wiki/C%C3%B4te_d%27Ivoire#History" gives "Côte d'Ivoire". Locators
// without a "/wiki/" segment use their last path element.
func TitleFromLocator(loc string) string {
	p := loc
	if u, err := url.Parse(loc); err == nil {
		p = u.EscapedPath()
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.LastIndex(p, "/wiki/"); i >= 0 {
		p = p[i+len("/wiki/"):]
	} else {
		p = p[strings.LastIndex(p, "/")+1:]
	}
	if t, err := url.PathUnescape(p); err == nil {
		p = t
	}
	return strings.TrimSpace(strings.ReplaceAll(p, "_", " "))
}

// minContainment is the shortest key eligible for a containment match.
const minContainment = 4

// Resolver matches free-text country names against the canonical name set.
// Add must not be called concurrently with Resolve.
type Resolver struct {
	byKey map[string]string
	keys  []string
}

// NewResolver builds a resolver over names.
func NewResolver(names ...string) *Resolver {
	r := &Resolver{byKey: make(map[string]string, len(names))}
	for _, n := range names {
		r.Add(n)
	}
	return r
}

// Add registers a canonical name. The first spelling of a key wins.
func (r *Resolver) Add(name string) {
	k := CanonicalKey(name)
	if k == "" {
		return
	}
	if _, ok := r.byKey[k]; ok {
		return
	}
	r.byKey[k] = DisplayName(name)
	i := sort.SearchStrings(r.keys, k)
	r.keys = append(r.keys, "")
	copy(r.keys[i+1:], r.keys[i:])
	r.keys[i] = k
}

// Len reports the number of known names.
func (r *Resolver) Len() int { return len(r.keys) }

// Resolve finds the canonical country for name: exact key first, then the
// alias table, then a containment match that is accepted only when exactly one
// candidate qualifies.
func (r *Resolver) Resolve(name string) (model.NeighborRef, bool) {
	if ref, ok := r.ResolveExact(name); ok {
		return ref, true
	}
	k := CanonicalKey(name)
	if len(k) < minContainment {
		return model.NeighborRef{}, false
	}
	match := ""
	for _, cand := range r.keys {
		if len(cand) < minContainment {
			continue
		}
		if strings.Contains(cand, k) || strings.Contains(k, cand) {
			if match != "" {
				return model.NeighborRef{}, false
			}
			match = cand
		}
	}
	if match == "" {
		return model.NeighborRef{}, false
	}
	return model.NeighborRef{Name: r.byKey[match], Key: match}, true
}

// ResolveExact matches name by canonical key or through the alias table only.
func (r *Resolver) ResolveExact(name string) (model.NeighborRef, bool) {
	k := CanonicalKey(name)
	if k == "" {
		return model.NeighborRef{}, false
	}
	if d, ok := r.byKey[k]; ok {
		return model.NeighborRef{Name: d, Key: k}, true
	}
	for _, alt := range aliases[k] {
		if d, ok := r.byKey[alt]; ok {
			return model.NeighborRef{Name: d, Key: alt}, true
		}
	}
	return model.NeighborRef{}, false
}

// BorderIndex looks up land-border table rows by country name, using the same
// matching rules as Resolver.
type BorderIndex struct {
	res  *Resolver
	rows map[string][]string
}

// NewBorderIndex indexes a country → neighbours table.
func NewBorderIndex(table map[string][]string) *BorderIndex {
	b := &BorderIndex{res: NewResolver(), rows: make(map[string][]string, len(table))}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		k := CanonicalKey(name)
		if k == "" {
			continue
		}
		b.res.Add(name)
		b.rows[k] = append(b.rows[k], table[name]...)
	}
	return b
}

// Lookup returns the neighbours listed for the first of names that matches
// a row. Every name is tried by exact key and alias before any is tried by
// containment, so a page title beats a loose match on a long official name.
func (b *BorderIndex) Lookup(names ...string) ([]string, bool) {
	for _, name := range names {
		if ref, ok := b.res.ResolveExact(name); ok {
			return b.rows[ref.Key], true
		}
	}
	for _, name := range names {
		if ref, ok := b.res.Resolve(name); ok {
			return b.rows[ref.Key], true
		}
	}
	return nil, false
}

// Names returns the display names of every indexed country, sorted by key.
func (b *BorderIndex) Names() []string {
	out := make([]string, 0, len(b.res.keys))
	for _, k := range b.res.keys {
		out = append(out, b.res.byKey[k])
	}
	return out
}
