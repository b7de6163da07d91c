package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Text returns the concatenated text content of a node's subtree.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SetText replaces a node's children with a single text node.
func SetText(n *html.Node, text string) {
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// SetHTML replaces a node's children with parsed markup.
func SetHTML(n *html.Node, markup string) error {
	nodes, err := ParseFragment(markup)
	if err != nil {
		return err
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// Remove detaches a node from its parent. Detaching an orphan is a no-op.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertRelative places nodes before/after a reference element or as its
// first/last child.
func InsertRelative(ref *html.Node, pos string, nodes ...*html.Node) error {
	switch pos {
	case "before":
		if ref.Parent == nil {
			return fmt.Errorf("dom: insert before detached node")
		}
		for _, n := range nodes {
			Remove(n)
			ref.Parent.InsertBefore(n, ref)
		}
	case "after":
		if ref.Parent == nil {
			return fmt.Errorf("dom: insert after detached node")
		}
		anchor := ref.NextSibling
		for _, n := range nodes {
			Remove(n)
			if anchor != nil {
				ref.Parent.InsertBefore(n, anchor)
			} else {
				ref.Parent.AppendChild(n)
			}
		}
	case "firstChild":
		for i := len(nodes) - 1; i >= 0; i-- {
			n := nodes[i]
			Remove(n)
			if ref.FirstChild != nil {
				ref.InsertBefore(n, ref.FirstChild)
			} else {
				ref.AppendChild(n)
			}
		}
	case "lastChild":
		for _, n := range nodes {
			Remove(n)
			ref.AppendChild(n)
		}
	default:
		return fmt.Errorf("dom: bad position %q", pos)
	}
	return nil
}

// Move detaches a node and re-inserts it relative to a target element.
func Move(n, target *html.Node, pos string) error {
	if n == target {
		return fmt.Errorf("dom: move node onto itself")
	}
	for p := target; p != nil; p = p.Parent {
		if p == n {
			return fmt.Errorf("dom: move node into its own subtree")
		}
	}
	Remove(n)
	return InsertRelative(target, pos, n)
}

// Clone deep-copies a subtree. The copy is detached.
func Clone(n *html.Node) *html.Node {
	cp := &html.Node{
		Type:     n.Type,
		DataAtom: n.DataAtom,
		Data:     n.Data,
		Attr:     append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cp.AppendChild(Clone(c))
	}
	return cp
}

// Attr returns an attribute value and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Classes returns the class list of an element.
func Classes(n *html.Node) []string {
	raw, _ := Attr(n, "class")
	return strings.Fields(raw)
}

// HasClass reports whether an element carries a class.
func HasClass(n *html.Node, cls string) bool {
	for _, c := range Classes(n) {
		if c == cls {
			return true
		}
	}
	return false
}

// AddClass appends a class if absent.
func AddClass(n *html.Node, cls string) {
	if cls == "" || HasClass(n, cls) {
		return
	}
	list := append(Classes(n), cls)
	SetAttr(n, "class", strings.Join(list, " "))
}

// RemoveClass drops a class if present. An emptied class attribute is
// removed entirely.
func RemoveClass(n *html.Node, cls string) {
	list := Classes(n)
	out := list[:0]
	for _, c := range list {
		if c != cls {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(out, " "))
}

// ElementIndex returns the 1-based position of an element among its element
// siblings, as CSS :nth-child counts them.
func ElementIndex(n *html.Node) int {
	idx := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}

// NextElement returns the following element sibling, or nil.
func NextElement(n *html.Node) *html.Node {
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}

// PrevElement returns the preceding element sibling, or nil.
func PrevElement(n *html.Node) *html.Node {
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}
