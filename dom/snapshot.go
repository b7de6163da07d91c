package dom

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"
)

// Pre-change originals are stamped into the element itself as data
// attributes. A page that loses the editor (reload, crash) still carries
// enough to reconstruct its unmodified form, and preview toggling can
// restore without the editor present.
const stampPrefix = "data-absmartly-original-"

// parentMarkAttr tags an element referenced by a position or removal
// stamp, so restoration finds the original parent even after the node
// moved to a different container.
const parentMarkAttr = "data-absmartly-parent"

var parentSeq uint64

// StampKind names one restorable aspect of an element.
type StampKind string

const (
	StampText     StampKind = "text"
	StampHTML     StampKind = "html"
	StampStyle    StampKind = "style"
	StampClass    StampKind = "class"
	StampAttrs    StampKind = "attributes"
	StampPosition StampKind = "position"
	// StampRemoved lives on the parent, not the removed element: a
	// detached node takes its own stamps with it.
	StampRemoved StampKind = "removed"
)

// positionRecord is the value of a position stamp: the element's index
// among its parent's element children, and the parent's mark token.
type positionRecord struct {
	Index  int    `json:"index"`
	Parent string `json:"parent,omitempty"`
}

// removalRecord reconstructs one removed child of the stamped parent.
type removalRecord struct {
	HTML  string `json:"html"`
	Index int    `json:"index"`
}

// Stamp records the element's current value for a kind, unless a stamp for
// that kind already exists. First stamp wins: it always describes the state
// before the editor's first touch.
func Stamp(n *html.Node, kind StampKind) {
	key := stampPrefix + string(kind)
	if _, ok := Attr(n, key); ok {
		return
	}

	var val string
	switch kind {
	case StampText:
		val = Text(n)
	case StampHTML:
		val = InnerHTML(n)
	case StampStyle:
		val, _ = Attr(n, "style")
	case StampClass:
		val, _ = Attr(n, "class")
	case StampAttrs:
		attrs := make(map[string]string)
		for _, a := range n.Attr {
			if !strings.HasPrefix(a.Key, stampPrefix) {
				attrs[a.Key] = a.Val
			}
		}
		data, err := json.Marshal(attrs)
		if err != nil {
			return
		}
		val = string(data)
	case StampPosition:
		rec := positionRecord{Index: ElementIndex(n)}
		if n.Parent != nil && n.Parent.Type == html.ElementNode {
			rec.Parent = markParent(n.Parent)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return
		}
		val = string(data)
	default:
		return
	}
	SetAttr(n, key, val)
}

// markParent returns the parent's mark token, assigning one if needed.
func markParent(p *html.Node) string {
	if v, ok := Attr(p, parentMarkAttr); ok {
		return v
	}
	v := "p" + strconv.FormatUint(atomic.AddUint64(&parentSeq, 1), 10)
	SetAttr(p, parentMarkAttr, v)
	return v
}

// findByMark locates the element carrying a mark token, searching from
// n's document root.
func findByMark(n *html.Node, token string) *html.Node {
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if found != nil {
			return
		}
		if c.Type == html.ElementNode {
			if v, ok := Attr(c, parentMarkAttr); ok && v == token {
				found = c
				return
			}
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(root)
	return found
}

// RecordRemoval stamps the parent with enough to reconstruct a child
// about to be removed: its outer HTML and its element index. Records
// accumulate; restoration replays them newest first so stacked removals
// from one parent land back where they were.
func RecordRemoval(parent, el *html.Node) error {
	markup, err := OuterHTML(el)
	if err != nil {
		return fmt.Errorf("dom: record removal: %w", err)
	}
	key := stampPrefix + string(StampRemoved)
	var recs []removalRecord
	if val, ok := Attr(parent, key); ok {
		if err := json.Unmarshal([]byte(val), &recs); err != nil {
			return fmt.Errorf("dom: record removal: %w", err)
		}
	}
	recs = append(recs, removalRecord{HTML: markup, Index: ElementIndex(el)})
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("dom: record removal: %w", err)
	}
	SetAttr(parent, key, string(data))
	return nil
}

// DropLastRemoval discards the newest removal record on a parent. Used
// when an undo re-attaches the removed node itself, making the record
// stale.
func DropLastRemoval(parent *html.Node) {
	key := stampPrefix + string(StampRemoved)
	val, ok := Attr(parent, key)
	if !ok {
		return
	}
	var recs []removalRecord
	if err := json.Unmarshal([]byte(val), &recs); err != nil || len(recs) <= 1 {
		RemoveAttr(parent, key)
		return
	}
	recs = recs[:len(recs)-1]
	data, err := json.Marshal(recs)
	if err != nil {
		RemoveAttr(parent, key)
		return
	}
	SetAttr(parent, key, string(data))
}

// Stamped returns the recorded original for a kind, if any.
func Stamped(n *html.Node, kind StampKind) (string, bool) {
	return Attr(n, stampPrefix+string(kind))
}

// Restore applies a stamped original back to the element and drops the
// stamp. Restoring a kind that was never stamped is a no-op.
func Restore(n *html.Node, kind StampKind) error {
	key := stampPrefix + string(kind)
	val, ok := Attr(n, key)
	if !ok {
		return nil
	}
	RemoveAttr(n, key)

	switch kind {
	case StampText:
		SetText(n, val)
	case StampHTML:
		return SetHTML(n, val)
	case StampStyle:
		if val == "" {
			RemoveAttr(n, "style")
		} else {
			SetAttr(n, "style", val)
		}
	case StampClass:
		if val == "" {
			RemoveAttr(n, "class")
		} else {
			SetAttr(n, "class", val)
		}
	case StampAttrs:
		var attrs map[string]string
		if err := json.Unmarshal([]byte(val), &attrs); err != nil {
			return fmt.Errorf("dom: restore attributes: %w", err)
		}
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Key, stampPrefix) {
				kept = append(kept, a)
			}
		}
		n.Attr = kept
		for k, v := range attrs {
			SetAttr(n, k, v)
		}
	case StampPosition:
		var rec positionRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return fmt.Errorf("dom: restore position: %w", err)
		}
		parent := n.Parent
		if rec.Parent != "" {
			if orig := findByMark(n, rec.Parent); orig != nil {
				parent = orig
			}
		}
		return restoreIndex(n, parent, rec.Index)
	case StampRemoved:
		var recs []removalRecord
		if err := json.Unmarshal([]byte(val), &recs); err != nil {
			return fmt.Errorf("dom: restore removed: %w", err)
		}
		// Newest first: each record's index is relative to the tree as
		// it stood after the earlier removals.
		for i := len(recs) - 1; i >= 0; i-- {
			nodes, err := ParseFragment(recs[i].HTML)
			if err != nil {
				return fmt.Errorf("dom: restore removed: %w", err)
			}
			for _, child := range nodes {
				if err := insertAtIndex(n, child, recs[i].Index); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("dom: restore unknown stamp %q", kind)
	}
	return nil
}

// restoreIndex moves an element back to the given 1-based position among
// the parent's element children.
func restoreIndex(n, parent *html.Node, idx int) error {
	if parent == nil {
		return fmt.Errorf("dom: restore position of detached node")
	}
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return insertAtIndex(parent, n, idx)
}

// insertAtIndex attaches n so it becomes the idx-th (1-based) element
// child of parent, appending when idx runs past the end.
func insertAtIndex(parent, n *html.Node, idx int) error {
	seen := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		seen++
		if seen == idx {
			parent.InsertBefore(n, c)
			return nil
		}
	}
	parent.AppendChild(n)
	return nil
}

// ClearParentMarks removes the parent anchors that position and removal
// stamps leave behind, once every stamp referencing them is restored.
func ClearParentMarks(root *html.Node) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			RemoveAttr(n, parentMarkAttr)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// ClearStamps removes every original-value stamp and parent mark under a
// root.
func ClearStamps(root *html.Node) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			kept := n.Attr[:0]
			for _, a := range n.Attr {
				if strings.HasPrefix(a.Key, stampPrefix) || a.Key == parentMarkAttr {
					continue
				}
				kept = append(kept, a)
			}
			n.Attr = kept
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}
