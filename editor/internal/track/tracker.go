// Package track is the change tracker and undo/redo manager. It appends new
// edits, squashes edits targeting the same element and type, and replays
// inverse or forward operations against both the mirror DOM and the state
// manager.
package track

import (
	"fmt"
	"log/slog"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/preview"
)

// Tracker coordinates the change list, the undo stacks, and the mirror.
type Tracker struct {
	doc    *dom.Document
	st     *state.Manager
	logger *slog.Logger
}

// New creates a tracker over a mirror document and state manager.
func New(doc *dom.Document, st *state.Manager, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{doc: doc, st: st, logger: logger}
}

// Add records a change whose DOM mutation has already been performed. A
// change for the same (selector, type) is squashed into the existing entry
// and an update undo entry holding the old value is pushed; otherwise the
// change is appended with an add entry. Returns the stored change.
func (t *Tracker) Add(c change.Change, eff preview.Effect) change.Change {
	if idx := t.st.IndexOf(change.KeyOf(c)); idx >= 0 {
		prev := t.st.Changes()[idx]
		merged := change.Squash([]change.Change{prev, c})[0]
		t.st.SetChangeAt(idx, merged)
		t.st.PushUndo(state.Entry{
			Kind:      state.EntryUpdate,
			Change:    merged,
			Previous:  &prev,
			Index:     idx,
			Detached:  eff.Detached,
			Anchor:    eff.Anchor,
			AnchorPos: eff.AnchorPos,
			Created:   eff.Created,
		})
		return merged
	}

	idx := t.st.AppendChange(c)
	t.st.PushUndo(state.Entry{
		Kind:      state.EntryAdd,
		Change:    c,
		Index:     idx,
		Detached:  eff.Detached,
		Anchor:    eff.Anchor,
		AnchorPos: eff.AnchorPos,
		Created:   eff.Created,
	})
	return c
}

// Undo reverses the most recent session edit. An empty stack is a no-op.
// DOM reapplication failures are logged and the in-memory change list is
// still corrected.
func (t *Tracker) Undo() bool {
	e, ok := t.st.PopUndo()
	if !ok {
		return false
	}

	switch e.Kind {
	case state.EntryAdd:
		if err := t.revertDOM(e); err != nil {
			t.logger.Warn("track: undo DOM revert failed",
				"selector", e.Change.Selector, "type", e.Change.Type, "error", err)
		}
		t.st.RemoveChangeAt(e.Index)
		t.st.PushRedo(e)

	case state.EntryUpdate:
		if e.Previous == nil {
			t.st.PushRedo(e)
			return true
		}
		t.st.SetChangeAt(e.Index, *e.Previous)
		// Restore the pre-change original first so a merge-mode previous
		// value does not compose with the newer edit it is replacing.
		if err := t.revertDOM(e); err != nil {
			t.logger.Warn("track: undo revert failed", "selector", e.Change.Selector, "error", err)
		}
		if _, err := preview.ApplyChange(t.doc, *e.Previous); err != nil {
			t.logger.Warn("track: undo reapply failed", "selector", e.Previous.Selector, "error", err)
		}
		t.st.PushRedo(e)

	case state.EntryDelete:
		t.st.InsertChangeAt(e.Index, e.Change)
		if _, err := preview.ApplyChange(t.doc, e.Change); err != nil {
			t.logger.Warn("track: undo of delete reapply failed", "selector", e.Change.Selector, "error", err)
		}
		t.st.PushRedo(e)
	}
	return true
}

// Redo replays the most recently undone edit. An empty stack is a no-op.
func (t *Tracker) Redo() bool {
	e, ok := t.st.PopRedo()
	if !ok {
		return false
	}

	switch e.Kind {
	case state.EntryAdd:
		eff, err := preview.ApplyChange(t.doc, e.Change)
		if err != nil {
			t.logger.Warn("track: redo apply failed", "selector", e.Change.Selector, "error", err)
		}
		t.st.InsertChangeAt(e.Index, e.Change)
		// Re-application produced fresh node references.
		e.Detached, e.Anchor, e.AnchorPos, e.Created = eff.Detached, eff.Anchor, eff.AnchorPos, eff.Created
		t.st.RepushUndo(e)

	case state.EntryUpdate:
		t.st.SetChangeAt(e.Index, e.Change)
		if err := t.revertDOM(e); err != nil {
			t.logger.Warn("track: redo revert failed", "selector", e.Change.Selector, "error", err)
		}
		if _, err := preview.ApplyChange(t.doc, e.Change); err != nil {
			t.logger.Warn("track: redo reapply failed", "selector", e.Change.Selector, "error", err)
		}
		t.st.RepushUndo(e)

	case state.EntryDelete:
		if err := t.revertDOM(e); err != nil {
			t.logger.Warn("track: redo of delete revert failed", "selector", e.Change.Selector, "error", err)
		}
		t.st.RemoveChangeAt(e.Index)
		t.st.RepushUndo(e)
	}
	return true
}

// revertDOM restores the mirror to the state before the entry's change was
// first applied, using stamped originals and the entry's node references.
func (t *Tracker) revertDOM(e state.Entry) error {
	c := e.Change
	switch c.Type {
	case change.TypeText:
		return t.restoreStamp(c.Selector, dom.StampText)
	case change.TypeHTML:
		return t.restoreStamp(c.Selector, dom.StampHTML)
	case change.TypeStyle:
		return t.restoreStamp(c.Selector, dom.StampStyle)
	case change.TypeClass:
		return t.restoreStamp(c.Selector, dom.StampClass)
	case change.TypeAttribute:
		return t.restoreStamp(c.Selector, dom.StampAttrs)
	case change.TypeStyleRules:
		return t.removeStyleTag(c.Selector)
	case change.TypeJavaScript:
		return nil

	case change.TypeMove:
		el, err := t.doc.Query(c.Selector)
		if err != nil {
			return err
		}
		if el == nil {
			return fmt.Errorf("track: move undo: %q gone", c.Selector)
		}
		if c.OriginalTargetSelector != "" {
			target, err := t.doc.Query(c.OriginalTargetSelector)
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("track: move undo: original target %q gone", c.OriginalTargetSelector)
			}
			return dom.Move(el, target, string(c.OriginalPosition))
		}
		return dom.Restore(el, dom.StampPosition)

	case change.TypeRemove:
		if e.Detached == nil {
			return fmt.Errorf("track: remove undo: no detached node for %q", c.Selector)
		}
		if e.Anchor == nil {
			return fmt.Errorf("track: remove undo: no anchor for %q", c.Selector)
		}
		if err := dom.InsertRelative(e.Anchor, e.AnchorPos, e.Detached); err != nil {
			return err
		}
		// The node is back, so the parent's removal record is stale.
		if p := e.Detached.Parent; p != nil {
			dom.DropLastRemoval(p)
		}
		return nil

	case change.TypeInsert, change.TypeCreate:
		for _, n := range e.Created {
			dom.Remove(n)
		}
		return nil
	}
	return fmt.Errorf("track: revert unsupported type %q", c.Type)
}

func (t *Tracker) restoreStamp(selector string, kind dom.StampKind) error {
	el, err := t.doc.Query(selector)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("track: %q gone, cannot restore %s", selector, kind)
	}
	return dom.Restore(el, kind)
}

func (t *Tracker) removeStyleTag(selector string) error {
	tags, err := t.doc.QueryAll("style[data-absmartly-style]")
	if err != nil {
		return err
	}
	for _, tag := range tags {
		if v, _ := dom.Attr(tag, "data-absmartly-style"); v == selector {
			dom.Remove(tag)
		}
	}
	return nil
}
