package gesture

import (
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/editor/internal/track"
	"github.com/absmartly/vedit/selector"
)

const page = `<html><head></head><body>
	<div id="main">
		<div id="box" style="width: 100px;">Box</div>
		<ul id="list"><li id="a">A</li><li id="b">B</li><li id="c">C</li></ul>
	</div>
</body></html>`

func setup(t *testing.T) (*dom.Document, *state.Manager, *track.Tracker) {
	t.Helper()
	d, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	st := state.New()
	return d, st, track.New(d, st, nil)
}

func node(t *testing.T, d *dom.Document, sel string) *html.Node {
	t.Helper()
	n, err := d.Query(sel)
	if err != nil || n == nil {
		t.Fatalf("query %q: %v %v", sel, n, err)
	}
	return n
}

func TestRearrangeDropBelowMidpointMovesAfter(t *testing.T) {
	d, st, tr := setup(t)
	r := NewRearrange(d, st, tr, selector.DefaultOptions(), nil, nil)

	if !r.Start(node(t, d, "#a")) {
		t.Fatal("start refused")
	}
	if !st.Rearranging() {
		t.Fatal("rearranging flag not set")
	}

	// Cursor below the target midpoint: insert after #b.
	r.Drop(node(t, d, "#b"), 80, 50, 40)

	a := node(t, d, "#a")
	if prev := dom.PrevElement(a); prev == nil || attr(prev, "id") != "b" {
		t.Fatal("element not moved after target")
	}

	list := st.Changes()
	if len(list) != 1 || list[0].Type != change.TypeMove {
		t.Fatalf("changes = %+v, want one move", list)
	}
	if list[0].Position != change.PosAfter {
		t.Fatalf("position = %q, want after", list[0].Position)
	}
	if list[0].OriginalTargetSelector == "" {
		t.Fatal("original placement not captured")
	}

	// Terminal: mode off, drag ownership released.
	if st.Rearranging() || st.Dragged() != nil || r.Active() {
		t.Fatal("teardown incomplete after drop")
	}
}

func TestRearrangeDropAboveMidpointMovesBefore(t *testing.T) {
	d, st, tr := setup(t)
	r := NewRearrange(d, st, tr, selector.DefaultOptions(), nil, nil)

	r.Start(node(t, d, "#c"))
	r.Drop(node(t, d, "#a"), 55, 50, 40)

	c := node(t, d, "#c")
	if next := dom.NextElement(c); next == nil || attr(next, "id") != "a" {
		t.Fatal("element not moved before target")
	}
	if st.Changes()[0].Position != change.PosBefore {
		t.Fatal("position should be before the midpoint target")
	}
}

func TestRearrangeDropOnSelfEmitsNothing(t *testing.T) {
	d, st, tr := setup(t)
	r := NewRearrange(d, st, tr, selector.DefaultOptions(), nil, nil)

	a := node(t, d, "#a")
	r.Start(a)
	r.Drop(a, 0, 0, 0)

	if len(st.Changes()) != 0 {
		t.Fatal("self-drop emitted a change")
	}
	if st.Rearranging() {
		t.Fatal("teardown still ran on the self-drop path")
	}
}

func TestRearrangeAbortTearsDown(t *testing.T) {
	d, st, tr := setup(t)
	r := NewRearrange(d, st, tr, selector.DefaultOptions(), nil, nil)

	r.Start(node(t, d, "#a"))
	r.Abort()

	if r.Active() || st.Rearranging() || st.Dragged() != nil {
		t.Fatal("abort left gesture state behind")
	}
	if len(st.Changes()) != 0 {
		t.Fatal("abort emitted a change")
	}

	// Second abort is a no-op.
	r.Abort()
}

func TestRearrangeTimeoutTearsDown(t *testing.T) {
	d, st, tr := setup(t)
	r := NewRearrange(d, st, tr, selector.DefaultOptions(), nil, nil)
	r.timeout = 10 * time.Millisecond

	if !r.Start(node(t, d, "#a")) {
		t.Fatal("start refused")
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.Active() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.Active() {
		t.Fatal("drag still active after timeout")
	}
	if st.Rearranging() || st.Dragged() != nil {
		t.Fatal("timeout left gesture state behind")
	}

	// A drop landing after the timeout is a no-op.
	r.Drop(node(t, d, "#b"), 80, 50, 40)
	if len(st.Changes()) != 0 {
		t.Fatalf("changes = %d after timed-out drop", len(st.Changes()))
	}
}

func TestRearrangeRefusedDuringResize(t *testing.T) {
	d, st, tr := setup(t)
	st.SetResizing(true)
	r := NewRearrange(d, st, tr, selector.DefaultOptions(), nil, nil)

	if r.Start(node(t, d, "#a")) {
		t.Fatal("drag started during resize mode")
	}
}

func TestResizeEmitsSingleMergedStyleChange(t *testing.T) {
	d, st, tr := setup(t)
	r := NewResize(d, st, tr, selector.DefaultOptions(), nil, nil)

	if !r.Start(node(t, d, "#box"), 100, 60) {
		t.Fatal("start refused")
	}
	if !st.Resizing() {
		t.Fatal("resizing flag not set")
	}

	// Two separate handle drags; only the final size is reported.
	r.HandleDown(HandleE, 200, 200)
	r.PointerMove(240, 200) // +40 width
	r.HandleUp()

	r.HandleDown(HandleS, 200, 200)
	r.PointerMove(200, 230) // +30 height
	r.HandleUp()

	r.Exit()

	list := st.Changes()
	if len(list) != 1 {
		t.Fatalf("changes = %d, want one coalesced style change", len(list))
	}
	c := list[0]
	if c.Type != change.TypeStyle || c.Mode != change.ModeMerge {
		t.Fatalf("change = %+v, want merge-mode style", c)
	}
	if c.Styles["width"] != "140px" || c.Styles["height"] != "90px" {
		t.Fatalf("styles = %v, want 140px x 90px", c.Styles)
	}
	if st.Resizing() || r.Active() {
		t.Fatal("teardown incomplete after exit")
	}
}

func TestResizeClampsToMinimum(t *testing.T) {
	d, st, tr := setup(t)
	r := NewResize(d, st, tr, selector.DefaultOptions(), nil, nil)

	r.Start(node(t, d, "#box"), 100, 60)
	r.HandleDown(HandleSE, 0, 0)
	r.PointerMove(-500, -500)

	w, h := r.Size()
	if w != MinWidth || h != MinHeight {
		t.Fatalf("size = %vx%v, want clamped to %vx%v", w, h, MinWidth, MinHeight)
	}
	_ = st
}

func TestResizeNorthWestGrowsAgainstPointer(t *testing.T) {
	d, st, tr := setup(t)
	r := NewResize(d, st, tr, selector.DefaultOptions(), nil, nil)

	r.Start(node(t, d, "#box"), 100, 60)
	r.HandleDown(HandleNW, 100, 100)
	r.PointerMove(80, 90) // up-left by (20, 10): box grows

	w, h := r.Size()
	if w != 120 || h != 70 {
		t.Fatalf("size = %vx%v, want 120x70", w, h)
	}
	_ = st
}

func TestResizeExitWithoutChangeEmitsNothing(t *testing.T) {
	d, st, tr := setup(t)
	r := NewResize(d, st, tr, selector.DefaultOptions(), nil, nil)

	r.Start(node(t, d, "#box"), 100, 60)
	r.Exit()

	if len(st.Changes()) != 0 {
		t.Fatal("no-op resize emitted a change")
	}
	if st.Resizing() {
		t.Fatal("teardown did not clear resize mode")
	}
}

func TestResizeRefusedDuringRearrange(t *testing.T) {
	d, st, tr := setup(t)
	st.SetRearranging(true)
	r := NewResize(d, st, tr, selector.DefaultOptions(), nil, nil)

	if r.Start(node(t, d, "#box"), 100, 60) {
		t.Fatal("resize started during rearrange mode")
	}
}

func TestPx(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{100, "100px"},
		{99.5, "99.5px"},
		{50.0, "50px"},
	}
	for _, tc := range cases {
		if got := px(tc.in); got != tc.want {
			t.Errorf("px(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func attr(n *html.Node, key string) string {
	v, _ := dom.Attr(n, key)
	return v
}
