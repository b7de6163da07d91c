// Package events receives the capture-phase interaction events the in-page
// relay forwards and turns them into editor callbacks: hover highlighting,
// click-to-select, context menu, keyboard. Action execution is decoupled
// through injected callbacks.
package events

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/state"
)

// Kind discriminates relay events.
type Kind string

const (
	Hover       Kind = "hover"
	Click       Kind = "click"
	ContextMenu Kind = "contextmenu"
	KeyDown     Kind = "keydown"
	DragStart   Kind = "dragstart"
	Drop        Kind = "drop"
	DragEnd     Kind = "dragend"
	PointerDown Kind = "pointerdown"
	PointerMove Kind = "pointermove"
	PointerUp   Kind = "pointerup"
	MenuSelect  Kind = "menuselect"
	DialogSave  Kind = "dialogsave"
	DialogClose Kind = "dialogclose"
	BannerClick Kind = "bannerclick"
	TextCommit  Kind = "textcommit"
)

// Event is one relay event. Selector identifies the event target in the
// mirror; gesture events carry layout geometry the mirror cannot compute.
type Event struct {
	Kind     Kind   `json:"kind"`
	Selector string `json:"selector,omitempty"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Target geometry for drop-point math.
	TargetTop    float64 `json:"targetTop,omitempty"`
	TargetHeight float64 `json:"targetHeight,omitempty"`
	TargetWidth  float64 `json:"targetWidth,omitempty"`

	// Keyboard.
	Key   string `json:"key,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`

	// Free-form payload: menu action, committed text, dialog HTML,
	// banner button, resize handle.
	Value string `json:"value,omitempty"`
}

// Handlers are the callbacks the dispatcher drives. Unset handlers are
// skipped.
type Handlers struct {
	OnHover       func(n *html.Node)
	OnSelect      func(n *html.Node)
	OnContextMenu func(n *html.Node, x, y float64)
	OnKey         func(ev Event)
	OnDragStart   func(n *html.Node)
	OnDrop        func(n *html.Node, cursorY, targetTop, targetHeight float64)
	OnDragEnd     func()
	OnPointerDown func(ev Event)
	OnPointerMove func(x, y float64)
	OnPointerUp   func()
	OnMenuSelect  func(action string)
	OnDialogSave  func(htmlValue string)
	OnDialogClose func()
	OnBannerClick func(button string)
	OnTextCommit  func(text string)
}

// Dispatcher resolves event selectors against the mirror and routes to
// handlers. While inline editing is active, hover/select/contextmenu are
// suppressed so the editor cannot steal focus from the edited region.
type Dispatcher struct {
	doc      *dom.Document
	st       *state.Manager
	handlers Handlers
	logger   *slog.Logger
	enabled  bool
}

// New creates a dispatcher.
func New(doc *dom.Document, st *state.Manager, handlers Handlers, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{doc: doc, st: st, handlers: handlers, logger: logger, enabled: true}
}

// SetEnabled toggles dispatching as a whole. Teardown disables.
func (d *Dispatcher) SetEnabled(v bool) { d.enabled = v }

// Dispatch routes one relay event.
func (d *Dispatcher) Dispatch(ev Event) {
	if !d.enabled {
		return
	}

	switch ev.Kind {
	case Hover:
		if d.st.Editing() {
			return
		}
		if d.handlers.OnHover != nil {
			d.handlers.OnHover(d.resolve(ev.Selector))
		}
	case Click:
		if d.st.Editing() {
			return
		}
		if d.handlers.OnSelect != nil {
			d.handlers.OnSelect(d.resolve(ev.Selector))
		}
	case ContextMenu:
		if d.st.Editing() {
			return
		}
		if n := d.resolve(ev.Selector); n != nil && d.handlers.OnContextMenu != nil {
			d.handlers.OnContextMenu(n, ev.X, ev.Y)
		}
	case KeyDown:
		if d.handlers.OnKey != nil {
			d.handlers.OnKey(ev)
		}
	case DragStart:
		if n := d.resolve(ev.Selector); n != nil && d.handlers.OnDragStart != nil {
			d.handlers.OnDragStart(n)
		}
	case Drop:
		if d.handlers.OnDrop != nil {
			d.handlers.OnDrop(d.resolve(ev.Selector), ev.Y, ev.TargetTop, ev.TargetHeight)
		}
	case DragEnd:
		if d.handlers.OnDragEnd != nil {
			d.handlers.OnDragEnd()
		}
	case PointerDown:
		if d.handlers.OnPointerDown != nil {
			d.handlers.OnPointerDown(ev)
		}
	case PointerMove:
		if d.handlers.OnPointerMove != nil {
			d.handlers.OnPointerMove(ev.X, ev.Y)
		}
	case PointerUp:
		if d.handlers.OnPointerUp != nil {
			d.handlers.OnPointerUp()
		}
	case MenuSelect:
		if d.handlers.OnMenuSelect != nil {
			d.handlers.OnMenuSelect(ev.Value)
		}
	case DialogSave:
		if d.handlers.OnDialogSave != nil {
			d.handlers.OnDialogSave(ev.Value)
		}
	case DialogClose:
		if d.handlers.OnDialogClose != nil {
			d.handlers.OnDialogClose()
		}
	case BannerClick:
		if d.handlers.OnBannerClick != nil {
			d.handlers.OnBannerClick(ev.Value)
		}
	case TextCommit:
		if d.handlers.OnTextCommit != nil {
			d.handlers.OnTextCommit(ev.Value)
		}
	default:
		d.logger.Debug("events: unknown event kind", "kind", ev.Kind)
	}
}

// resolve looks an event selector up in the mirror. A stale selector (the
// element vanished) resolves to nil; handlers treat nil as "no target".
func (d *Dispatcher) resolve(sel string) *html.Node {
	if sel == "" {
		return nil
	}
	n, err := d.doc.Query(sel)
	if err != nil {
		d.logger.Debug("events: bad event selector", "selector", sel, "error", err)
		return nil
	}
	return n
}
