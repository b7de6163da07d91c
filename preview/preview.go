package preview

import (
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
)

// Preview applies and removes change lists for experiment variants. One
// variant is live at a time: applying while a variant is already applied
// removes it first, so repeated apply messages stay idempotent.
type Preview struct {
	doc     *dom.Document
	logger  *slog.Logger
	variant string
	applied bool
	pending []change.Change
}

// New creates a Preview over a mirror document.
func New(doc *dom.Document, logger *slog.Logger) *Preview {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preview{doc: doc, logger: logger}
}

// Apply applies the enabled changes of a variant. Changes whose selector
// matches nothing are skipped with a log line, unless waitForElement is set,
// in which case they are parked and retried on Drain.
func (p *Preview) Apply(variant string, list []change.Change) error {
	if p.applied {
		p.Remove()
	}
	p.variant = variant
	p.applied = true
	p.pending = nil

	var firstErr error
	for _, c := range change.FilterEnabled(list) {
		if _, err := ApplyChange(p.doc, c); err != nil {
			if isNoMatch(err) && c.WaitForElement {
				p.pending = append(p.pending, c)
				continue
			}
			p.logger.Warn("preview: apply change failed",
				"selector", c.Selector, "type", c.Type, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Drain retries parked waitForElement changes. Called after the mirror
// receives external mutations that may have produced the awaited elements.
func (p *Preview) Drain() {
	if len(p.pending) == 0 {
		return
	}
	still := p.pending[:0]
	for _, c := range p.pending {
		root := c.ObserverRoot
		if root != "" {
			scope, err := p.doc.Query(root)
			if err != nil || scope == nil {
				still = append(still, c)
				continue
			}
		}
		if _, err := ApplyChange(p.doc, c); err != nil {
			if isNoMatch(err) {
				still = append(still, c)
				continue
			}
			p.logger.Warn("preview: deferred apply failed",
				"selector", c.Selector, "error", err)
		}
	}
	p.pending = still
}

// Pending reports how many changes are parked awaiting their element.
func (p *Preview) Pending() int { return len(p.pending) }

// Variant returns the currently applied variant name, if any.
func (p *Preview) Variant() (string, bool) { return p.variant, p.applied }

// Remove restores the unmodified page: injected nodes and generated style
// tags are deleted, stamped originals are restored.
func (p *Preview) Remove() {
	RemoveAll(p.doc, p.logger)
	p.applied = false
	p.variant = ""
	p.pending = nil
}

// RemoveAll strips every applied change from a document: injected nodes,
// generated style tags, then stamped originals. Removed children come
// back first so their own stamps are seen, position is restored last so
// content restoration happens in place.
func RemoveAll(d *dom.Document, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if nodes, err := d.QueryAll("[" + injectedAttr + "]"); err == nil {
		for _, n := range nodes {
			dom.Remove(n)
		}
	}
	if tags, err := d.QueryAll("style[" + styleTagAttr + "]"); err == nil {
		for _, t := range tags {
			dom.Remove(t)
		}
	}

	// A restored subtree can itself hold removal records, so loop until a
	// pass restores nothing. Restore consumes the stamp either way, which
	// bounds the loop.
	for {
		restored := false
		for _, el := range stampedElements(d) {
			if _, ok := dom.Stamped(el, dom.StampRemoved); !ok {
				continue
			}
			if err := dom.Restore(el, dom.StampRemoved); err != nil {
				logger.Warn("preview: restore removed failed", "error", err)
				continue
			}
			restored = true
		}
		if !restored {
			break
		}
	}

	content := []dom.StampKind{dom.StampText, dom.StampHTML, dom.StampStyle, dom.StampClass, dom.StampAttrs}
	for _, el := range stampedElements(d) {
		for _, kind := range content {
			if err := dom.Restore(el, kind); err != nil {
				logger.Warn("preview: restore failed", "kind", kind, "error", err)
			}
		}
	}
	for _, el := range stampedElements(d) {
		if err := dom.Restore(el, dom.StampPosition); err != nil {
			logger.Warn("preview: restore position failed", "error", err)
		}
	}
	dom.ClearParentMarks(d.Root())
}

func stampedElements(d *dom.Document) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if strings.HasPrefix(a.Key, "data-absmartly-original-") {
					out = append(out, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.Root())
	return out
}

func isNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch)
}
