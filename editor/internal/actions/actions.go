// Package actions implements the element operations reachable from the
// context menu: hide, delete, copy, move up/down, insert block, selector
// copy, and relative-target picking. Each operation reads the current
// selection, mutates the mirror synchronously, and hands exactly one change
// to the tracker.
package actions

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/editor/internal/track"
	"github.com/absmartly/vedit/editor/internal/ui"
	"github.com/absmartly/vedit/preview"
	"github.com/absmartly/vedit/selector"
)

// Clipboard is the system clipboard surface used by copy-selector.
type Clipboard interface {
	WriteAll(text string) error
}

// Config wires an Actions instance.
type Config struct {
	Doc       *dom.Document
	State     *state.Manager
	Tracker   *track.Tracker
	Selector  selector.Options
	Notifier  ui.Notifier
	Clipboard Clipboard
	Logger    *slog.Logger
}

// Actions executes element operations against the current selection.
type Actions struct {
	doc    *dom.Document
	st     *state.Manager
	track  *track.Tracker
	selOpt selector.Options
	notify ui.Notifier
	clip   Clipboard
	logger *slog.Logger

	// relative-pick state: a pending move awaiting its target.
	pickSource   *html.Node
	pickSelector string
}

// New creates an Actions instance.
func New(cfg Config) *Actions {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := cfg.Notifier
	if notify == nil {
		notify = ui.LogNotifier{Logger: logger}
	}
	return &Actions{
		doc:    cfg.Doc,
		st:     cfg.State,
		track:  cfg.Tracker,
		selOpt: cfg.Selector,
		notify: notify,
		clip:   cfg.Clipboard,
		logger: logger,
	}
}

// selected returns the selection or notifies and returns nil.
func (a *Actions) selected() *html.Node {
	n := a.st.Selected()
	if n == nil {
		a.notify.Notify(ui.Warn, "No element selected")
	}
	return n
}

func (a *Actions) selectorOf(n *html.Node) (string, bool) {
	sel, err := selector.Generate(a.doc, n, a.selOpt)
	if err != nil {
		a.logger.Warn("actions: selector generation failed", "error", err)
		a.notify.Notify(ui.Error, "Could not build a selector for this element")
		return "", false
	}
	return sel, true
}

// apply runs a change against the mirror and records it. Returns false when
// application failed; the change list is not touched in that case.
func (a *Actions) apply(c change.Change) bool {
	eff, err := preview.ApplyChange(a.doc, c)
	if err != nil {
		a.logger.Warn("actions: apply failed", "selector", c.Selector, "type", c.Type, "error", err)
		a.notify.Notify(ui.Error, "Could not apply the change")
		return false
	}
	a.track.Add(c, eff)
	return true
}

// Hide sets display:none on the selection via a merged style change, so any
// earlier style edit on the element is preserved.
func (a *Actions) Hide() {
	n := a.selected()
	if n == nil {
		return
	}
	sel, ok := a.selectorOf(n)
	if !ok {
		return
	}
	a.apply(change.Change{
		Selector: sel,
		Type:     change.TypeStyle,
		Mode:     change.ModeMerge,
		Styles:   map[string]string{"display": "none"},
	})
}

// Delete removes the selection from the mirror and records a remove change.
// The detached node and its anchor ride along in the undo entry.
func (a *Actions) Delete() {
	n := a.selected()
	if n == nil {
		return
	}
	sel, ok := a.selectorOf(n)
	if !ok {
		return
	}
	if a.apply(change.Change{Selector: sel, Type: change.TypeRemove}) {
		a.st.SetSelected(nil)
	}
}

// Copy clones the selection and inserts the clone as its next sibling. The
// clone gets a freshly derived selector; the source selector cannot
// identify it.
func (a *Actions) Copy() {
	n := a.selected()
	if n == nil {
		return
	}
	srcSel, ok := a.selectorOf(n)
	if !ok {
		return
	}

	clone := dom.Clone(n)
	stripIDs(clone)
	if err := dom.InsertRelative(n, "after", clone); err != nil {
		a.logger.Warn("actions: copy insert failed", "error", err)
		a.notify.Notify(ui.Error, "Could not copy the element")
		return
	}
	cloneSel, err := selector.Generate(a.doc, clone, a.selOpt)
	if err != nil {
		dom.Remove(clone)
		a.logger.Warn("actions: clone selector failed", "error", err)
		a.notify.Notify(ui.Error, "Could not copy the element")
		return
	}
	markup, err := dom.OuterHTML(clone)
	if err != nil {
		dom.Remove(clone)
		a.logger.Warn("actions: clone render failed", "error", err)
		return
	}

	c := change.Change{
		Selector:       cloneSel,
		Type:           change.TypeCreate,
		HTML:           markup,
		TargetSelector: srcSel,
		Position:       change.PosAfter,
	}
	a.track.Add(c, preview.Effect{Target: clone, Created: []*html.Node{clone}})
}

// MoveUp swaps the selection with its previous element sibling.
func (a *Actions) MoveUp() {
	a.moveAdjacent(true)
}

// MoveDown swaps the selection with its next element sibling.
func (a *Actions) MoveDown() {
	a.moveAdjacent(false)
}

func (a *Actions) moveAdjacent(up bool) {
	n := a.selected()
	if n == nil {
		return
	}

	var sibling *html.Node
	if up {
		sibling = dom.PrevElement(n)
	} else {
		sibling = dom.NextElement(n)
	}
	if sibling == nil {
		if up {
			a.notify.Notify(ui.Info, "Already at the top")
		} else {
			a.notify.Notify(ui.Info, "Already at the bottom")
		}
		return
	}

	sel, ok := a.selectorOf(n)
	if !ok {
		return
	}
	sibSel, ok := a.selectorOf(sibling)
	if !ok {
		return
	}

	c := change.Change{
		Selector:               sel,
		Type:                   change.TypeMove,
		TargetSelector:         sibSel,
		OriginalTargetSelector: sibSel,
	}
	if up {
		c.Position = change.PosBefore
		c.OriginalPosition = change.PosAfter
	} else {
		c.Position = change.PosAfter
		c.OriginalPosition = change.PosBefore
	}
	a.apply(c)
}

// InsertBlock places an empty editable block after the selection.
func (a *Actions) InsertBlock() {
	n := a.selected()
	if n == nil {
		return
	}
	sel, ok := a.selectorOf(n)
	if !ok {
		return
	}
	a.apply(change.Change{
		Selector: sel,
		Type:     change.TypeInsert,
		HTML:     `<div class="absmartly-block" contenteditable="true">New block</div>`,
		Position: change.PosAfter,
	})
}

// CopySelectorPath writes the selection's selector to the clipboard. No DOM
// mutation and no change is recorded.
func (a *Actions) CopySelectorPath() {
	n := a.selected()
	if n == nil {
		return
	}
	sel, ok := a.selectorOf(n)
	if !ok {
		return
	}
	if a.clip == nil {
		a.notify.Notify(ui.Warn, "Clipboard unavailable")
		return
	}
	if err := a.clip.WriteAll(sel); err != nil {
		a.logger.Warn("actions: clipboard write failed", "error", err)
		a.notify.Notify(ui.Error, "Could not copy the selector")
		return
	}
	a.notify.Notify(ui.Info, "Selector copied: "+sel)
}

// StartRelativePick arms picking mode: the next picked element becomes the
// target of a move of the current selection.
func (a *Actions) StartRelativePick() {
	n := a.selected()
	if n == nil {
		return
	}
	sel, ok := a.selectorOf(n)
	if !ok {
		return
	}
	a.pickSource = n
	a.pickSelector = sel
	a.notify.Notify(ui.Info, "Pick a target element for the move")
}

// Picking reports whether a relative pick is pending.
func (a *Actions) Picking() bool { return a.pickSource != nil }

// PickTarget completes a pending relative move. The move change is produced
// only now that a target is confirmed.
func (a *Actions) PickTarget(target *html.Node, pos change.Position) {
	if a.pickSource == nil {
		return
	}
	source := a.pickSource
	sourceSel := a.pickSelector
	a.pickSource, a.pickSelector = nil, ""

	targetSel, ok := a.selectorOf(target)
	if !ok {
		return
	}
	origSel, origPos, ok := a.originalAnchor(source)
	if !ok {
		return
	}
	a.apply(change.Change{
		Selector:               sourceSel,
		Type:                   change.TypeMove,
		TargetSelector:         targetSel,
		Position:               pos,
		OriginalTargetSelector: origSel,
		OriginalPosition:       origPos,
	})
}

// CancelRelativePick disarms picking mode without producing a change.
func (a *Actions) CancelRelativePick() {
	a.pickSource, a.pickSelector = nil, ""
}

// originalAnchor captures where an element currently sits, as a selector
// and position usable to put it back.
func (a *Actions) originalAnchor(n *html.Node) (string, change.Position, bool) {
	if next := dom.NextElement(n); next != nil {
		sel, ok := a.selectorOf(next)
		return sel, change.PosBefore, ok
	}
	if prev := dom.PrevElement(n); prev != nil {
		sel, ok := a.selectorOf(prev)
		return sel, change.PosAfter, ok
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		sel, ok := a.selectorOf(n.Parent)
		return sel, change.PosLastChild, ok
	}
	return "", "", false
}

// stripIDs removes id attributes from a cloned subtree so the copy never
// duplicates a unique identifier.
func stripIDs(n *html.Node) {
	if n.Type == html.ElementNode {
		dom.RemoveAttr(n, "id")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripIDs(c)
	}
}
