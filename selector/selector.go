// Package selector generates CSS selectors that re-identify an element
// across page reloads. Stable hooks (id, test data attributes, meaningful
// class names) are preferred; a structural nth-child path is the fallback.
//
// Generation is a pure function of the document at call time; no state is
// kept between calls.
package selector

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/dom"
)

// Options tune generation.
type Options struct {
	// PreferDataAttributes tries configured data attributes before classes.
	PreferDataAttributes bool
	// DataAttributes lists the attributes treated as stable test hooks.
	// Empty means the conventional set: data-testid, data-test, data-qa,
	// data-cy.
	DataAttributes []string
	// AvoidAutoGenerated skips class tokens that look machine-generated
	// (hashed CSS-in-JS names, digit-heavy suffixes).
	AvoidAutoGenerated bool
	// IncludeParentContext anchors the structural fallback path at the
	// nearest ancestor with a stable hook.
	IncludeParentContext bool
	// MaxParentLevels bounds how far the structural path climbs. Zero
	// means 5.
	MaxParentLevels int
}

// DefaultOptions is what the editor uses when the host sends none.
func DefaultOptions() Options {
	return Options{
		PreferDataAttributes: true,
		AvoidAutoGenerated:   true,
		IncludeParentContext: true,
		MaxParentLevels:      5,
	}
}

var defaultDataAttrs = []string{"data-testid", "data-test", "data-qa", "data-cy"}

// Generate produces a selector uniquely matching n in doc.
func Generate(d *dom.Document, n *html.Node, opts Options) (string, error) {
	if n == nil || n.Type != html.ElementNode {
		return "", fmt.Errorf("selector: not an element")
	}
	if opts.MaxParentLevels <= 0 {
		opts.MaxParentLevels = 5
	}

	if sel := idSelector(d, n); sel != "" {
		return sel, nil
	}
	if opts.PreferDataAttributes {
		if sel := dataAttrSelector(d, n, opts); sel != "" {
			return sel, nil
		}
	}
	if sel := classSelector(d, n, opts); sel != "" {
		return sel, nil
	}
	return structuralPath(d, n, opts)
}

// idSelector returns #id when the id is a plain token and unique.
func idSelector(d *dom.Document, n *html.Node) string {
	id, ok := dom.Attr(n, "id")
	if !ok || !plainToken(id) {
		return ""
	}
	sel := "#" + id
	if uniqueFor(d, sel, n) {
		return sel
	}
	return ""
}

func dataAttrSelector(d *dom.Document, n *html.Node, opts Options) string {
	attrs := opts.DataAttributes
	if len(attrs) == 0 {
		attrs = defaultDataAttrs
	}
	for _, key := range attrs {
		val, ok := dom.Attr(n, key)
		if !ok || val == "" || strings.ContainsAny(val, `"\`) {
			continue
		}
		sel := fmt.Sprintf(`%s[%s="%s"]`, n.Data, key, val)
		if uniqueFor(d, sel, n) {
			return sel
		}
	}
	return ""
}

func classSelector(d *dom.Document, n *html.Node, opts Options) string {
	var tokens []string
	for _, cls := range dom.Classes(n) {
		if !plainToken(cls) {
			continue
		}
		if opts.AvoidAutoGenerated && looksGenerated(cls) {
			continue
		}
		tokens = append(tokens, cls)
	}
	if len(tokens) == 0 {
		return ""
	}

	// Try the fewest classes that still pin the element down.
	sel := n.Data
	for _, cls := range tokens {
		sel += "." + cls
		if uniqueFor(d, sel, n) {
			return sel
		}
	}
	return ""
}

// structuralPath builds a tag:nth-child chain from the element upward,
// extending one ancestor at a time until the selector is unique or the
// level budget runs out.
func structuralPath(d *dom.Document, n *html.Node, opts Options) (string, error) {
	var segments []string
	cur := n

	for level := 0; cur != nil && cur.Type == html.ElementNode; level++ {
		if cur.Data == "html" || cur.Data == "body" {
			segments = append([]string{cur.Data}, segments...)
			break
		}

		// An ancestor with a stable hook anchors the path.
		if opts.IncludeParentContext && level > 0 {
			if anchor := idSelector(d, cur); anchor != "" {
				segments = append([]string{anchor}, segments...)
				sel := strings.Join(segments, " > ")
				if uniqueFor(d, sel, n) {
					return sel, nil
				}
				segments = segments[1:]
			}
		}

		segments = append([]string{segment(cur)}, segments...)
		sel := strings.Join(segments, " > ")
		if uniqueFor(d, sel, n) {
			return sel, nil
		}
		if level >= opts.MaxParentLevels {
			break
		}
		cur = cur.Parent
	}

	sel := strings.Join(segments, " > ")
	matches, err := d.QueryAll(sel)
	if err != nil {
		return "", fmt.Errorf("selector: fallback path: %w", err)
	}
	for _, m := range matches {
		if m == n {
			return sel, nil
		}
	}
	return "", fmt.Errorf("selector: no unique selector for <%s>", n.Data)
}

func segment(n *html.Node) string {
	if hasElementSiblings(n) {
		return fmt.Sprintf("%s:nth-child(%d)", n.Data, dom.ElementIndex(n))
	}
	return n.Data
}

func hasElementSiblings(n *html.Node) bool {
	return dom.PrevElement(n) != nil || dom.NextElement(n) != nil
}

func uniqueFor(d *dom.Document, sel string, n *html.Node) bool {
	matches, err := d.QueryAll(sel)
	if err != nil {
		return false
	}
	return len(matches) == 1 && matches[0] == n
}

var tokenRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

func plainToken(s string) bool {
	return tokenRe.MatchString(s)
}

var (
	hexish      = regexp.MustCompile(`^[a-f0-9]{6,}$`)
	digitTail   = regexp.MustCompile(`\d{4,}`)
	cssInJSName = regexp.MustCompile(`^(css|sc|jss|emotion|chakra|mui|svelte)-`)
)

// looksGenerated flags class tokens that are unlikely to survive a rebuild:
// hashed CSS-in-JS names, long hex blobs, digit-heavy suffixes.
func looksGenerated(cls string) bool {
	lower := strings.ToLower(cls)
	if hexish.MatchString(lower) {
		return true
	}
	if cssInJSName.MatchString(lower) {
		return true
	}
	if digitTail.MatchString(cls) {
		return true
	}
	return len(cls) > 24
}
