// Package dom holds the editor's mirror of the page being edited: a parsed
// HTML tree that every editing module reads and mutates. Selector matching
// runs through goquery/cascadia, so the mirror answers the same queries the
// live page would.
//
// The mirror is single-writer. All mutation goes through this package so the
// engine can stamp pre-change originals and emit outbound mutation records
// from one place.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the parsed mirror of a page.
type Document struct {
	root *html.Node
	gq   *goquery.Document
}

// Parse builds a Document from an HTML stream.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{root: root, gq: goquery.NewDocumentFromNode(root)}, nil
}

// ParseString builds a Document from an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document root node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element, or the root when the tree has none.
func (d *Document) Body() *html.Node {
	if n := findElement(d.root, atom.Body); n != nil {
		return n
	}
	return d.root
}

// Query returns the first element matching a CSS selector, or nil. Invalid
// selectors are reported as errors, never panics; selectors arrive from
// user-authored change lists.
func (d *Document) Query(selector string) (*html.Node, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	sel := d.gq.FindMatcher(m)
	if sel.Length() == 0 {
		return nil, nil
	}
	return sel.Get(0), nil
}

// QueryAll returns every element matching a CSS selector.
func (d *Document) QueryAll(selector string) ([]*html.Node, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return d.gq.FindMatcher(m).Nodes, nil
}

// Matches reports whether a node matches a CSS selector.
func (d *Document) Matches(n *html.Node, selector string) (bool, error) {
	m, err := compile(selector)
	if err != nil {
		return false, err
	}
	return m.Match(n), nil
}

// Contains reports whether a node is still attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

type matcher struct{ sel cascadia.SelectorGroup }

func (m matcher) Match(n *html.Node) bool            { return m.sel.Match(n) }
func (m matcher) MatchAll(n *html.Node) []*html.Node { return cascadia.QueryAll(n, m.sel) }
func (m matcher) Filter(ns []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range ns {
		if m.sel.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

func compile(selector string) (goquery.Matcher, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", selector, err)
	}
	return matcher{sel: sel}, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// ParseFragment parses markup in a body context and returns the top-level
// nodes. Used for html/insert/create payloads.
func ParseFragment(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}
