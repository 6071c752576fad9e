// internal/parser/html/dom.go

package html

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is the parsed DOM node type.
type Node = nethtml.Node

// Parse builds a DOM from r. The tokenizer is lenient, so only reader errors
// surface here.
func Parse(r io.Reader) (*Node, error) {
	doc, err := nethtml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("html: parse: %w", err)
	}
	return doc, nil
}

// ParseBytes is Parse over an in-memory body.
func ParseBytes(body []byte) (*Node, error) {
	return Parse(bytes.NewReader(body))
}

// IsElement reports whether n is an element with the given tag.
func IsElement(n *Node, a atom.Atom) bool {
	return n != nil && n.Type == nethtml.ElementNode && n.DataAtom == a
}

// Attr returns the value of attribute key, or "".
func Attr(n *Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether n's class attribute contains class.
func HasClass(n *Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// FindAll returns every descendant of root (root included) matching pred, in
// document order.
func FindAll(root *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// FindFirst returns the first node in document order matching pred, or nil.
func FindFirst(root *Node, pred func(*Node) bool) *Node {
	if root == nil {
		return nil
	}
	if pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := FindFirst(c, pred); n != nil {
			return n
		}
	}
	return nil
}

// Element returns a predicate matching elements with tag a and, when classes
// are given, all of those classes.
func Element(a atom.Atom, classes ...string) func(*Node) bool {
	return func(n *Node) bool {
		if !IsElement(n, a) {
			return false
		}
		for _, c := range classes {
			if !HasClass(n, c) {
				return false
			}
		}
		return true
	}
}

// Children returns the direct element children of n with tag a.
func Children(n *Node, a atom.Atom) []*Node {
	var out []*Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c, a) {
			out = append(out, c)
		}
	}
	return out
}

// Rows returns the tr elements of a table, looking through thead/tbody/tfoot
// but not into nested tables.
func Rows(table *Node) []*Node {
	var rows []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case IsElement(c, atom.Tr):
				rows = append(rows, c)
			case IsElement(c, atom.Thead), IsElement(c, atom.Tbody), IsElement(c, atom.Tfoot):
				walk(c)
			}
		}
	}
	if table != nil {
		walk(table)
	}
	return rows
}

// Cells returns the th and td children of a row.
func Cells(tr *Node) []*Node {
	var out []*Node
	if tr == nil {
		return out
	}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c, atom.Th) || IsElement(c, atom.Td) {
			out = append(out, c)
		}
	}
	return out
}

// skipped elements contribute no text.
func skipped(n *Node) bool {
	if n.Type != nethtml.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript:
		return true
	case atom.Sup:
		// reference markers; plain superscripts such as km<sup>2</sup> stay
		return HasClass(n, "reference") || HasClass(n, "noprint") || strings.HasPrefix(strings.TrimSpace(rawText(n)), "[")
	case atom.Span:
		return HasClass(n, "noprint") || Attr(n, "style") == "display:none"
	}
	return false
}

// breaks are elements whose boundaries end a line.
func breaks(n *Node) bool {
	if n.Type != nethtml.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Br, atom.Li, atom.P, atom.Div, atom.Tr, atom.Ul, atom.Ol, atom.Dd, atom.Dt, atom.Table, atom.H1, atom.H2, atom.H3:
		return true
	}
	return false
}

func rawText(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Type == nethtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Text returns the visible text of n. Footnote superscripts, scripts and
// hidden spans are dropped; block elements, list items and <br> become line
// breaks. Each line is whitespace-collapsed and empty lines are removed.
func Text(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if skipped(n) {
			return
		}
		if n.Type == nethtml.TextNode {
			b.WriteString(n.Data)
			return
		}
		br := breaks(n)
		if br {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if br {
			b.WriteByte('\n')
		}
	}
	walk(n)
	return CleanLines(b.String())
}

// Link is an anchor with its visible text.
type Link struct {
	Href string
	Text string
}

// Links returns the anchors under n that carry an href, skipping footnote
// markers, with their visible text.
func Links(n *Node) []Link {
	var out []Link
	for _, a := range FindAll(n, Element(atom.A)) {
		href := Attr(a, "href")
		if href == "" || hiddenAncestor(a, n) {
			continue
		}
		out = append(out, Link{Href: href, Text: CollapseWhitespace(Text(a))})
	}
	return out
}

// hiddenAncestor reports whether a skipped element sits between n and root.
func hiddenAncestor(n, root *Node) bool {
	for p := n; p != nil && p != root; p = p.Parent {
		if skipped(p) {
			return true
		}
	}
	return false
}
