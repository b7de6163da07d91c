// Package preview applies change lists to a mirror document outside of
// editing mode. Application stamps pre-change originals into the affected
// elements, so a preview can always be removed, reconstructing the
// unmodified page without the editor present.
package preview

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
)

// Elements created by applied insert/create changes carry this marker so
// removal can find them without bookkeeping.
const injectedAttr = "data-absmartly-injected"

// Style tags generated for styleRules changes carry the owning selector.
const styleTagAttr = "data-absmartly-style"

// ErrNoMatch reports that the change's selector matched no element. Changes
// flagged waitForElement are parked on this error instead of failing.
var ErrNoMatch = errors.New("preview: selector matched no element")

// Effect describes the DOM consequences of applying one change, with the
// node references an undo implementation needs to reverse it.
type Effect struct {
	Target    *html.Node   // element the change applied to
	Detached  *html.Node   // node removed by a remove change
	Created   []*html.Node // nodes created by insert/create
	Anchor    *html.Node   // where Detached re-attaches
	AnchorPos string       // position relative to Anchor
}

// ApplyChange applies a single change to the mirror, stamping originals
// before mutating. javascript changes are recorded but do not touch the
// mirror; only the live-page applier evaluates them.
func ApplyChange(d *dom.Document, c change.Change) (Effect, error) {
	var eff Effect

	if c.Type == change.TypeJavaScript {
		return eff, nil
	}

	el, err := d.Query(c.Selector)
	if err != nil {
		return eff, err
	}
	if el == nil {
		return eff, fmt.Errorf("%w: %q", ErrNoMatch, c.Selector)
	}
	eff.Target = el

	switch c.Type {
	case change.TypeText:
		dom.Stamp(el, dom.StampText)
		dom.SetText(el, c.TextValue)

	case change.TypeHTML:
		dom.Stamp(el, dom.StampHTML)
		if err := dom.SetHTML(el, c.TextValue); err != nil {
			return eff, err
		}

	case change.TypeStyle:
		dom.Stamp(el, dom.StampStyle)
		merge := c.Mode != change.ModeReplace
		dom.SetInlineStyle(el, c.Styles, merge, c.Important)

	case change.TypeStyleRules:
		applyStyleRules(d, c)

	case change.TypeClass:
		dom.Stamp(el, dom.StampClass)
		if c.Mode == change.ModeReplace {
			dom.RemoveAttr(el, "class")
		}
		for _, cls := range c.Class.Remove {
			dom.RemoveClass(el, cls)
		}
		for _, cls := range c.Class.Add {
			dom.AddClass(el, cls)
		}

	case change.TypeAttribute:
		dom.Stamp(el, dom.StampAttrs)
		for k, v := range c.Attributes {
			if v == "" {
				dom.RemoveAttr(el, k)
				continue
			}
			dom.SetAttr(el, k, v)
		}

	case change.TypeMove:
		target, err := d.Query(c.TargetSelector)
		if err != nil {
			return eff, err
		}
		if target == nil {
			return eff, fmt.Errorf("%w: move target %q", ErrNoMatch, c.TargetSelector)
		}
		dom.Stamp(el, dom.StampPosition)
		if err := dom.Move(el, target, string(c.Position)); err != nil {
			return eff, err
		}

	case change.TypeRemove:
		eff.Detached = el
		if next := dom.NextElement(el); next != nil {
			eff.Anchor, eff.AnchorPos = next, "before"
		} else if el.Parent != nil {
			eff.Anchor, eff.AnchorPos = el.Parent, "lastChild"
		}
		// The restoration record lives on the parent: the detached node
		// takes its own stamps out of the tree with it.
		if el.Parent != nil && el.Parent.Type == html.ElementNode {
			if err := dom.RecordRemoval(el.Parent, el); err != nil {
				return eff, err
			}
		}
		dom.Remove(el)

	case change.TypeInsert, change.TypeCreate:
		nodes, err := dom.ParseFragment(c.HTML)
		if err != nil {
			return eff, err
		}
		for _, n := range nodes {
			if n.Type == html.ElementNode {
				dom.SetAttr(n, injectedAttr, "true")
			}
		}
		ref := el
		if c.TargetSelector != "" {
			t, err := d.Query(c.TargetSelector)
			if err != nil {
				return eff, err
			}
			if t != nil {
				ref = t
			}
		}
		if err := dom.InsertRelative(ref, string(c.Position), nodes...); err != nil {
			return eff, err
		}
		eff.Created = nodes

	default:
		return eff, fmt.Errorf("preview: unsupported change type %q", c.Type)
	}
	return eff, nil
}

// applyStyleRules upserts a <style> element in head carrying one rule per
// pseudo-state. The base state maps to the bare selector.
func applyStyleRules(d *dom.Document, c change.Change) {
	var b strings.Builder
	states := make([]string, 0, len(c.StyleRules))
	for state := range c.StyleRules {
		states = append(states, state)
	}
	sort.Strings(states)

	for _, state := range states {
		sel := c.Selector
		if state != "" && state != "normal" {
			sel += ":" + state
		}
		b.WriteString(sel)
		b.WriteString(" { ")
		props := c.StyleRules[state]
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(dom.CSSName(k))
			b.WriteString(": ")
			b.WriteString(props[k])
			b.WriteString("; ")
		}
		b.WriteString("}\n")
	}

	tag := findStyleTag(d, c.Selector)
	if tag == nil {
		tag = &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		dom.SetAttr(tag, styleTagAttr, c.Selector)
		head := findHead(d)
		head.AppendChild(tag)
	}
	dom.SetText(tag, b.String())
}

func findStyleTag(d *dom.Document, selector string) *html.Node {
	tags, err := d.QueryAll("style[" + styleTagAttr + "]")
	if err != nil {
		return nil
	}
	for _, t := range tags {
		if v, _ := dom.Attr(t, styleTagAttr); v == selector {
			return t
		}
	}
	return nil
}

func findHead(d *dom.Document) *html.Node {
	if h, err := d.Query("head"); err == nil && h != nil {
		return h
	}
	return d.Body()
}
