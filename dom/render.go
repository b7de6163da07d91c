package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Render serialises the full document back to HTML.
func (d *Document) Render() (string, error) {
	return OuterHTML(d.root)
}

// OuterHTML serialises a node including its own tag.
func OuterHTML(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// InnerHTML serialises a node's children. Render errors inside a subtree
// are rare enough that the partial result is returned as-is.
func InnerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			break
		}
	}
	return b.String()
}
