package track

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/preview"
)

const page = `<html><head></head><body>
	<div id="main">
		<h1 id="title">Welcome</h1>
		<p id="intro" style="color: red;">Intro</p>
		<ul id="list"><li id="a">A</li><li id="b">B</li><li id="c">C</li></ul>
	</div>
</body></html>`

func setup(t *testing.T) (*dom.Document, *state.Manager, *Tracker) {
	t.Helper()
	d, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	st := state.New()
	return d, st, New(d, st, nil)
}

// apply mutates the mirror and records the change, the way the action
// layer does.
func apply(t *testing.T, d *dom.Document, tr *Tracker, c change.Change) {
	t.Helper()
	eff, err := preview.ApplyChange(d, c)
	if err != nil {
		t.Fatalf("apply %s %s: %v", c.Type, c.Selector, err)
	}
	tr.Add(c, eff)
}

func textOf(t *testing.T, d *dom.Document, sel string) string {
	t.Helper()
	n, err := d.Query(sel)
	if err != nil || n == nil {
		t.Fatalf("query %q: %v %v", sel, n, err)
	}
	return dom.Text(n)
}

func TestAddSquashesSameKey(t *testing.T) {
	d, st, tr := setup(t)

	apply(t, d, tr, change.Change{Selector: "#title", Type: change.TypeText, TextValue: "One"})
	apply(t, d, tr, change.Change{Selector: "#title", Type: change.TypeText, TextValue: "Two"})

	if n := len(st.Changes()); n != 1 {
		t.Fatalf("changes = %d, want 1 after squash", n)
	}
	if got := st.Changes()[0].TextValue; got != "Two" {
		t.Fatalf("value = %q, want Two", got)
	}
	if st.UndoLen() != 2 {
		t.Fatalf("undo = %d, want one entry per edit", st.UndoLen())
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	d, st, tr := setup(t)

	apply(t, d, tr, change.Change{Selector: "#title", Type: change.TypeText, TextValue: "Hello"})

	if !tr.Undo() {
		t.Fatal("undo reported nothing to do")
	}
	if len(st.Changes()) != 0 {
		t.Fatalf("changes = %d after undo, want 0", len(st.Changes()))
	}
	if got := textOf(t, d, "#title"); got != "Welcome" {
		t.Fatalf("text = %q after undo, want original", got)
	}

	if !tr.Redo() {
		t.Fatal("redo reported nothing to do")
	}
	if len(st.Changes()) != 1 {
		t.Fatalf("changes = %d after redo, want 1", len(st.Changes()))
	}
	if got := textOf(t, d, "#title"); got != "Hello" {
		t.Fatalf("text = %q after redo, want Hello", got)
	}
	if st.UndoLen() != 1 || st.RedoLen() != 0 {
		t.Fatalf("stacks = %d/%d, want 1/0", st.UndoLen(), st.RedoLen())
	}
}

func TestUndoEmptyStacks(t *testing.T) {
	_, _, tr := setup(t)
	if tr.Undo() {
		t.Fatal("undo on empty stack")
	}
	if tr.Redo() {
		t.Fatal("redo on empty stack")
	}
}

func TestUndoUpdateRestoresIntermediateValue(t *testing.T) {
	d, st, tr := setup(t)

	apply(t, d, tr, change.Change{Selector: "#title", Type: change.TypeText, TextValue: "First"})
	apply(t, d, tr, change.Change{Selector: "#title", Type: change.TypeText, TextValue: "Second"})

	tr.Undo()
	if got := st.Changes()[0].TextValue; got != "First" {
		t.Fatalf("value = %q after one undo, want First", got)
	}
	if got := textOf(t, d, "#title"); got != "First" {
		t.Fatalf("text = %q, want First", got)
	}

	tr.Undo()
	if len(st.Changes()) != 0 {
		t.Fatal("second undo did not remove the change")
	}
	if got := textOf(t, d, "#title"); got != "Welcome" {
		t.Fatalf("text = %q, want original", got)
	}
}

func TestUndoMergeModeStyleDoesNotCompose(t *testing.T) {
	d, _, tr := setup(t)

	apply(t, d, tr, change.Change{
		Selector: "#intro", Type: change.TypeStyle,
		Styles: map[string]string{"font-size": "18px"},
	})
	apply(t, d, tr, change.Change{
		Selector: "#intro", Type: change.TypeStyle,
		Styles: map[string]string{"font-weight": "bold"},
	})

	// Undoing the second edit must leave only the first edit applied over
	// the pristine original, not the union of both.
	tr.Undo()
	el, _ := d.Query("#intro")
	style, _ := dom.Attr(el, "style")
	if want := "color: red; font-size: 18px"; style != want {
		t.Fatalf("style = %q, want %q", style, want)
	}
}

func TestMoveChainUndoReturnsToOriginal(t *testing.T) {
	d, st, tr := setup(t)

	// #a starts before #b. Two moves: after #b, then after #c. The squash
	// keeps one move change carrying the original placement.
	apply(t, d, tr, change.Change{
		Selector: "#a", Type: change.TypeMove,
		TargetSelector: "#b", Position: change.PosAfter,
		OriginalTargetSelector: "#b", OriginalPosition: change.PosBefore,
	})
	apply(t, d, tr, change.Change{
		Selector: "#a", Type: change.TypeMove,
		TargetSelector: "#c", Position: change.PosAfter,
		OriginalTargetSelector: "#b", OriginalPosition: change.PosBefore,
	})

	if n := len(st.Changes()); n != 1 {
		t.Fatalf("changes = %d, want 1", n)
	}
	if got := st.Changes()[0].OriginalTargetSelector; got != "#b" {
		t.Fatalf("original target = %q, want preserved #b", got)
	}

	// First undo: back to the intermediate hop (after #b).
	tr.Undo()
	a, _ := d.Query("#a")
	if prev := dom.PrevElement(a); prev == nil || attrOf(prev, "id") != "b" {
		t.Fatal("undo did not restore intermediate position")
	}

	// Second undo: back to the true original (before #b).
	tr.Undo()
	a, _ = d.Query("#a")
	if next := dom.NextElement(a); next == nil || attrOf(next, "id") != "b" {
		t.Fatal("undo did not restore original position")
	}
	if len(st.Changes()) != 0 {
		t.Fatal("change list not emptied")
	}
}

func TestUndoRemoveReattaches(t *testing.T) {
	d, st, tr := setup(t)

	apply(t, d, tr, change.Change{Selector: "#b", Type: change.TypeRemove})
	if el, _ := d.Query("#b"); el != nil {
		t.Fatal("remove not applied")
	}

	tr.Undo()
	el, _ := d.Query("#b")
	if el == nil {
		t.Fatal("undo did not reattach the element")
	}
	if next := dom.NextElement(el); next == nil || attrOf(next, "id") != "c" {
		t.Fatal("element reattached in the wrong place")
	}
	if _, ok := dom.Stamped(el.Parent, dom.StampRemoved); ok {
		t.Fatal("stale removal record left on the parent")
	}
	if len(st.Changes()) != 0 {
		t.Fatal("change list not corrected")
	}
}

func TestUndoInsertRemovesCreatedNodes(t *testing.T) {
	d, _, tr := setup(t)

	apply(t, d, tr, change.Change{
		Selector: "#main", Type: change.TypeInsert,
		HTML: `<div id="block">New</div>`, Position: change.PosLastChild,
	})
	if el, _ := d.Query("#block"); el == nil {
		t.Fatal("insert not applied")
	}

	tr.Undo()
	if el, _ := d.Query("#block"); el != nil {
		t.Fatal("undo left the created node in the mirror")
	}
}

func TestUndoVanishedTargetStillCorrectsList(t *testing.T) {
	d, st, tr := setup(t)

	apply(t, d, tr, change.Change{Selector: "#title", Type: change.TypeText, TextValue: "Hello"})

	// The element disappears out from under the tracker.
	el, _ := d.Query("#title")
	dom.Remove(el)

	if !tr.Undo() {
		t.Fatal("undo should still pop the entry")
	}
	if len(st.Changes()) != 0 {
		t.Fatal("list not corrected when the DOM revert failed")
	}
}

func TestRedoClearedByFreshEdit(t *testing.T) {
	d, st, tr := setup(t)

	apply(t, d, tr, change.Change{Selector: "#title", Type: change.TypeText, TextValue: "A"})
	tr.Undo()
	if st.RedoLen() != 1 {
		t.Fatalf("redo = %d, want 1", st.RedoLen())
	}

	apply(t, d, tr, change.Change{Selector: "#intro", Type: change.TypeText, TextValue: "B"})
	if st.RedoLen() != 0 {
		t.Fatalf("redo = %d after fresh edit, want 0", st.RedoLen())
	}
}

func attrOf(n *html.Node, key string) string {
	v, _ := dom.Attr(n, key)
	return v
}
