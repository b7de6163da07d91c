// Package gesture implements the two interactive edit modes: drag-rearrange
// and handle-based resize. Each is a small state machine scoped to one
// element, producing a single terminal change when the gesture ends.
//
// Gesture events arrive from the in-page relay already resolved to mirror
// nodes. Timers fire on their own goroutine, so each machine guards its
// transitions with a mutex; everything else stays on the engine loop.
package gesture

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/editor/internal/track"
	"github.com/absmartly/vedit/editor/internal/ui"
	"github.com/absmartly/vedit/preview"
	"github.com/absmartly/vedit/selector"
)

// DragTimeout is the safety auto-exit: a drag left hanging this long is
// aborted with full teardown.
const DragTimeout = 10 * time.Second

// Rearrange is the drag-and-drop reparenting gesture.
//
// idle -> dragging -> {dropped | aborted | timeout} -> idle
type Rearrange struct {
	doc    *dom.Document
	st     *state.Manager
	track  *track.Tracker
	selOpt selector.Options
	notify ui.Notifier
	logger *slog.Logger

	// timeout is DragTimeout unless overridden.
	timeout time.Duration

	mu       sync.Mutex
	active   bool
	source   *html.Node
	origSel  string
	origPos  change.Position
	timer    *time.Timer
	teardown []func()
}

// NewRearrange creates the rearrange machine.
func NewRearrange(doc *dom.Document, st *state.Manager, tr *track.Tracker,
	selOpt selector.Options, notify ui.Notifier, logger *slog.Logger) *Rearrange {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = ui.LogNotifier{Logger: logger}
	}
	return &Rearrange{doc: doc, st: st, track: tr, selOpt: selOpt, notify: notify, logger: logger, timeout: DragTimeout}
}

// Start enters dragging for an element. Starting while another gesture is
// active is refused.
func (r *Rearrange) Start(n *html.Node) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active || r.st.Resizing() {
		r.notify.Notify(ui.Warn, "Another gesture is already active")
		return false
	}

	origSel, origPos, ok := anchorOf(r.doc, n, r.selOpt)
	if !ok {
		r.logger.Warn("gesture: drag anchor failed")
		return false
	}

	r.active = true
	r.source = n
	r.origSel = origSel
	r.origPos = origPos

	r.st.SetRearranging(true)
	r.st.SetDragged(n)
	r.teardown = append(r.teardown, func() {
		r.st.SetDragged(nil)
		r.st.SetRearranging(false)
	})
	r.timer = time.AfterFunc(r.timeout, r.onTimeout)
	return true
}

// Drop completes the drag on a target. The insertion point comes from the
// cursor's vertical position relative to the target's midpoint: above means
// before, below means after. Emits exactly one move change.
func (r *Rearrange) Drop(target *html.Node, cursorY, targetTop, targetHeight float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	source := r.source
	origSel, origPos := r.origSel, r.origPos
	r.finishLocked()

	if target == nil || target == source {
		return
	}

	pos := change.PosAfter
	if cursorY < targetTop+targetHeight/2 {
		pos = change.PosBefore
	}

	srcSel, err := selector.Generate(r.doc, source, r.selOpt)
	if err != nil {
		r.logger.Warn("gesture: drop source selector failed", "error", err)
		return
	}
	targetSel, err := selector.Generate(r.doc, target, r.selOpt)
	if err != nil {
		r.logger.Warn("gesture: drop target selector failed", "error", err)
		return
	}

	c := change.Change{
		Selector:               srcSel,
		Type:                   change.TypeMove,
		TargetSelector:         targetSel,
		Position:               pos,
		OriginalTargetSelector: origSel,
		OriginalPosition:       origPos,
	}
	eff, err := preview.ApplyChange(r.doc, c)
	if err != nil {
		r.logger.Warn("gesture: drop move failed", "error", err)
		r.notify.Notify(ui.Error, "Could not move the element")
		return
	}
	r.track.Add(c, eff)
}

// Abort ends the drag without a drop. All listeners are torn down exactly
// as on the dropped path.
func (r *Rearrange) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.finishLocked()
}

// Active reports whether a drag is in flight.
func (r *Rearrange) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Rearrange) onTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.logger.Warn("gesture: drag auto-exit after timeout")
	r.notify.Notify(ui.Warn, "Drag cancelled after timeout")
	r.finishLocked()
}

// finishLocked is the single terminal transition. Teardown runs
// unconditionally whether the drag dropped, aborted, or timed out.
func (r *Rearrange) finishLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	for i := len(r.teardown) - 1; i >= 0; i-- {
		r.teardown[i]()
	}
	r.teardown = nil
	r.active = false
	r.source = nil
	r.origSel = ""
	r.origPos = ""
}

// anchorOf captures an element's current placement for undo.
func anchorOf(d *dom.Document, n *html.Node, opts selector.Options) (string, change.Position, bool) {
	if next := dom.NextElement(n); next != nil {
		sel, err := selector.Generate(d, next, opts)
		return sel, change.PosBefore, err == nil
	}
	if prev := dom.PrevElement(n); prev != nil {
		sel, err := selector.Generate(d, prev, opts)
		return sel, change.PosAfter, err == nil
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		sel, err := selector.Generate(d, n.Parent, opts)
		return sel, change.PosLastChild, err == nil
	}
	return "", "", false
}
