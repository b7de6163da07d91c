package gesture

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/editor/internal/track"
	"github.com/absmartly/vedit/editor/internal/ui"
	"github.com/absmartly/vedit/preview"
	"github.com/absmartly/vedit/selector"
)

// Minimum box dimensions. Resizing never collapses an element below these.
const (
	MinWidth  = 50.0
	MinHeight = 20.0
)

// Handle names one of the eight compass-direction resize handles.
type Handle string

const (
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
	HandleNW Handle = "nw"
)

// Resize is the handle-based box resizing gesture.
//
// idle -> active (menu action) -> dragging-handle (handle down) -> active
// (handle up); Exit leaves from either non-idle state.
type Resize struct {
	doc    *dom.Document
	st     *state.Manager
	track  *track.Tracker
	selOpt selector.Options
	notify ui.Notifier
	logger *slog.Logger

	mu       sync.Mutex
	active   bool
	dragging bool
	target   *html.Node
	handle   Handle

	startX, startY float64
	baseW, baseH   float64 // size when the current handle drag began
	curW, curH     float64
	origW, origH   float64 // size when the gesture began
	teardown       []func()
}

// NewResize creates the resize machine.
func NewResize(doc *dom.Document, st *state.Manager, tr *track.Tracker,
	selOpt selector.Options, notify ui.Notifier, logger *slog.Logger) *Resize {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = ui.LogNotifier{Logger: logger}
	}
	return &Resize{doc: doc, st: st, track: tr, selOpt: selOpt, notify: notify, logger: logger}
}

// Start enters resize mode for an element with its current layout size,
// reported by the relay. Refused while another gesture is active.
func (r *Resize) Start(n *html.Node, width, height float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active || r.st.Rearranging() {
		r.notify.Notify(ui.Warn, "Another gesture is already active")
		return false
	}

	r.active = true
	r.target = n
	r.curW, r.curH = width, height
	r.origW, r.origH = width, height

	r.st.SetResizing(true)
	r.teardown = append(r.teardown, func() { r.st.SetResizing(false) })
	return true
}

// HandleDown begins dragging one of the eight handles.
func (r *Resize) HandleDown(h Handle, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.dragging {
		return
	}
	r.dragging = true
	r.handle = h
	r.startX, r.startY = x, y
	r.baseW, r.baseH = r.curW, r.curH
}

// PointerMove adjusts the pending size from the pointer delta. North and
// west handles grow the box when the pointer moves up or left. No change is
// emitted per frame; only Exit summarises the gesture.
func (r *Resize) PointerMove(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || !r.dragging {
		return
	}

	dx := x - r.startX
	dy := y - r.startY

	w, h := r.baseW, r.baseH
	switch r.handle {
	case HandleE:
		w += dx
	case HandleW:
		w -= dx
	case HandleS:
		h += dy
	case HandleN:
		h -= dy
	case HandleSE:
		w += dx
		h += dy
	case HandleSW:
		w -= dx
		h += dy
	case HandleNE:
		w += dx
		h -= dy
	case HandleNW:
		w -= dx
		h -= dy
	}

	r.curW = max(w, MinWidth)
	r.curH = max(h, MinHeight)
}

// HandleUp ends the current handle drag, keeping resize mode active.
func (r *Resize) HandleUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dragging = false
	r.handle = ""
}

// Size returns the pending size.
func (r *Resize) Size() (w, h float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curW, r.curH
}

// Active reports whether resize mode is on.
func (r *Resize) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Exit leaves resize mode (Escape or click-outside). Handles and listeners
// are removed on every exit; one style change summarising the final size is
// emitted only when the size actually changed.
func (r *Resize) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}

	target := r.target
	w, h := r.curW, r.curH
	changed := w != r.origW || h != r.origH

	for i := len(r.teardown) - 1; i >= 0; i-- {
		r.teardown[i]()
	}
	r.teardown = nil
	r.active = false
	r.dragging = false
	r.target = nil
	r.handle = ""

	if !changed || target == nil {
		return
	}

	sel, err := selector.Generate(r.doc, target, r.selOpt)
	if err != nil {
		r.logger.Warn("gesture: resize selector failed", "error", err)
		return
	}
	c := change.Change{
		Selector: sel,
		Type:     change.TypeStyle,
		Mode:     change.ModeMerge,
		Styles: map[string]string{
			"width":  px(w),
			"height": px(h),
		},
	}
	eff, err := preview.ApplyChange(r.doc, c)
	if err != nil {
		r.logger.Warn("gesture: resize apply failed", "error", err)
		return
	}
	r.track.Add(c, eff)
}

func px(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s + "px"
}
