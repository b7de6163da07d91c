package editor

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/actions"
	"github.com/absmartly/vedit/editor/internal/cleanup"
	"github.com/absmartly/vedit/editor/internal/dialog"
	"github.com/absmartly/vedit/editor/internal/events"
	"github.com/absmartly/vedit/editor/internal/gesture"
	"github.com/absmartly/vedit/editor/internal/menu"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/editor/internal/track"
	"github.com/absmartly/vedit/editor/internal/ui"
	"github.com/absmartly/vedit/preview"
	"github.com/absmartly/vedit/selector"
)

// ExternalMutation is a DOM mutation the relay observed that did not
// originate from the editor. The coordinator folds it into the mirror so
// selector resolution stays truthful on pages a client framework keeps
// re-rendering.
type ExternalMutation struct {
	Op             string `json:"op"` // insert | remove | text | attr
	Selector       string `json:"selector,omitempty"`
	ParentSelector string `json:"parentSelector,omitempty"`
	Position       string `json:"position,omitempty"`
	HTML           string `json:"html,omitempty"`
	Name           string `json:"name,omitempty"`
	Value          string `json:"value,omitempty"`
}

// coordinator wires events, menu, actions, gestures, tracker and UI into
// one lifecycle. Everything registered during setupAll has its removal
// registered with the cleanup registry, run by teardownAll.
type coordinator struct {
	doc    *dom.Document
	st     *state.Manager
	track  *track.Tracker
	acts   *actions.Actions
	drag   *gesture.Rearrange
	resize *gesture.Resize
	menu   *menu.Menu
	disp   *events.Dispatcher
	dlg    *dialog.Editor
	banner *ui.Banner
	notify ui.Notifier
	clean  *cleanup.Registry
	logger *slog.Logger
	selOpt selector.Options

	setup bool

	// inline text edit session
	editNode *html.Node
	editSel  string

	// dialog session target
	dlgNode *html.Node
	dlgSel  string

	onSave func()
	onExit func()
}

func newCoordinator(doc *dom.Document, st *state.Manager, tr *track.Tracker,
	selOpt selector.Options, notify ui.Notifier, clip actions.Clipboard,
	logger *slog.Logger) *coordinator {

	c := &coordinator{
		doc:    doc,
		st:     st,
		track:  tr,
		notify: notify,
		logger: logger,
		selOpt: selOpt,
		clean:  cleanup.New(logger),
		dlg:    dialog.New(),
		banner: &ui.Banner{},
	}
	c.acts = actions.New(actions.Config{
		Doc:       doc,
		State:     st,
		Tracker:   tr,
		Selector:  selOpt,
		Notifier:  notify,
		Clipboard: clip,
		Logger:    logger,
	})
	c.drag = gesture.NewRearrange(doc, st, tr, selOpt, notify, logger)
	c.resize = gesture.NewResize(doc, st, tr, selOpt, notify, logger)
	c.menu = menu.New(c.handleMenuAction)
	c.disp = events.New(doc, st, events.Handlers{
		OnHover:       c.onHover,
		OnSelect:      c.onSelect,
		OnContextMenu: c.onContextMenu,
		OnKey:         c.onKey,
		OnDragStart:   c.onDragStart,
		OnDrop:        c.onDrop,
		OnDragEnd:     c.onDragEnd,
		OnPointerDown: c.onPointerDown,
		OnPointerMove: c.onPointerMove,
		OnPointerUp:   c.onPointerUp,
		OnMenuSelect:  c.onMenuSelect,
		OnDialogSave:  c.onDialogSave,
		OnDialogClose: c.onDialogClose,
		OnBannerClick: c.onBannerClick,
		OnTextCommit:  c.onTextCommit,
	}, logger)
	return c
}

// setupAll wires the session. Idempotent: a second call is a no-op.
func (c *coordinator) setupAll(variant string) {
	if c.setup {
		return
	}
	c.setup = true

	c.disp.SetEnabled(true)
	c.clean.Register("dispatcher", func() { c.disp.SetEnabled(false) })

	c.banner.OnSave = func() {
		if c.onSave != nil {
			c.onSave()
		}
	}
	c.banner.OnExit = func() {
		if c.onExit != nil {
			c.onExit()
		}
	}
	c.banner.OnUndo = func() { c.track.Undo() }
	c.banner.OnRedo = func() { c.track.Redo() }
	c.banner.Show(variant)
	c.clean.Register("banner", func() { c.banner.Hide() })

	c.clean.Register("menu", c.menu.Hide)
	c.clean.Register("gestures", func() {
		c.drag.Abort()
		c.resize.Exit()
	})
	c.clean.Register("selection", func() {
		c.st.SetSelected(nil)
		c.st.SetHovered(nil)
		c.st.SetEditing(false)
	})
}

// teardownAll unwinds everything setupAll registered. Symmetric and
// idempotent: teardown without setup, or twice, is harmless.
func (c *coordinator) teardownAll() {
	c.setup = false
	c.clean.Run()
}

// --- event handlers ---------------------------------------------------

func (c *coordinator) onHover(n *html.Node) {
	if c.st.Rearranging() || c.st.Resizing() {
		return
	}
	c.st.SetHovered(n)
}

func (c *coordinator) onSelect(n *html.Node) {
	if c.acts.Picking() {
		if n != nil {
			c.acts.PickTarget(n, change.PosAfter)
		}
		return
	}
	if c.menu.Visible() {
		c.menu.Hide()
	}
	c.st.SetSelected(n)
}

func (c *coordinator) onContextMenu(n *html.Node, x, y float64) {
	c.st.SetSelected(n)
	c.menu.Show(n, x, y)
}

func (c *coordinator) onMenuSelect(action string) {
	c.menu.Select(action)
}

// handleMenuAction is the dispatch table behind the context menu. Unknown
// actions are logged and surfaced, never silently dropped.
func (c *coordinator) handleMenuAction(action string, target *html.Node) {
	if target != nil {
		c.st.SetSelected(target)
	}

	switch action {
	case menu.ActionEdit:
		c.startTextEdit(target)
	case menu.ActionEditHTML:
		c.startHTMLEdit(target)
	case menu.ActionRearrange:
		if target != nil {
			c.drag.Start(target)
		}
	case menu.ActionResize:
		if target != nil {
			// Geometry arrives with the first pointer event; menu entry
			// only arms the mode.
			c.resize.Start(target, 0, 0)
		}
	case menu.ActionHide:
		c.acts.Hide()
	case menu.ActionDelete:
		c.acts.Delete()
	case menu.ActionCopy:
		c.acts.Copy()
	case menu.ActionCopySelector:
		c.acts.CopySelectorPath()
	case menu.ActionMoveUp:
		c.acts.MoveUp()
	case menu.ActionMoveDown:
		c.acts.MoveDown()
	case menu.ActionInsertBlock:
		c.acts.InsertBlock()
	case menu.ActionSelectRelative:
		c.acts.StartRelativePick()
	default:
		c.logger.Warn("coordinator: unknown menu action", "action", action)
		c.notify.Notify(ui.Info, "Action \""+action+"\" is coming soon")
	}
}

// --- keyboard ---------------------------------------------------------

func (c *coordinator) onKey(ev events.Event) {
	mod := ev.Ctrl || ev.Meta

	if c.st.Editing() {
		// The contenteditable region owns the keyboard, except commit
		// and revert.
		switch ev.Key {
		case "Escape":
			c.cancelTextEdit()
		}
		return
	}

	switch {
	case mod && ev.Shift && (ev.Key == "z" || ev.Key == "Z"):
		c.track.Redo()
	case mod && (ev.Key == "z" || ev.Key == "Z"):
		c.track.Undo()
	case mod && (ev.Key == "y" || ev.Key == "Y"):
		c.track.Redo()
	case mod && ev.Shift && (ev.Key == "c" || ev.Key == "C"):
		c.acts.CopySelectorPath()
	case ev.Key == "Delete" || ev.Key == "Backspace":
		c.acts.Delete()
	case ev.Key == "Escape":
		c.onEscape()
	}
}

func (c *coordinator) onEscape() {
	switch {
	case c.menu.Visible():
		c.menu.Hide()
	case c.drag.Active():
		c.drag.Abort()
	case c.resize.Active():
		c.resize.Exit()
	case c.acts.Picking():
		c.acts.CancelRelativePick()
		c.notify.Notify(ui.Info, "Pick cancelled")
	case c.dlg.Open():
		c.dlg.Cancel()
	default:
		c.st.SetSelected(nil)
	}
}

// --- gestures ---------------------------------------------------------

func (c *coordinator) onDragStart(n *html.Node) {
	if !c.st.Rearranging() {
		return
	}
	c.st.SetDragged(n)
}

func (c *coordinator) onDrop(target *html.Node, cursorY, targetTop, targetHeight float64) {
	c.drag.Drop(target, cursorY, targetTop, targetHeight)
}

func (c *coordinator) onDragEnd() {
	c.drag.Abort()
}

func (c *coordinator) onPointerDown(ev events.Event) {
	if c.resize.Active() && ev.Value != "" {
		c.resize.HandleDown(gesture.Handle(ev.Value), ev.X, ev.Y)
		return
	}
	if c.resize.Active() {
		// Click outside the handles exits resize mode.
		c.resize.Exit()
	}
}

func (c *coordinator) onPointerMove(x, y float64) {
	c.resize.PointerMove(x, y)
}

func (c *coordinator) onPointerUp() {
	c.resize.HandleUp()
}

// --- inline text edit -------------------------------------------------

func (c *coordinator) startTextEdit(target *html.Node) {
	if target == nil {
		target = c.st.Selected()
	}
	if target == nil {
		c.notify.Notify(ui.Warn, "No element selected")
		return
	}
	sel, err := selector.Generate(c.doc, target, c.selOpt)
	if err != nil {
		c.logger.Warn("coordinator: edit selector failed", "error", err)
		return
	}
	c.editNode = target
	c.editSel = sel
	c.st.SetEditing(true)
}

// onTextCommit ends an inline edit with new content (Enter in the page).
func (c *coordinator) onTextCommit(text string) {
	if !c.st.Editing() || c.editNode == nil {
		return
	}
	node, sel := c.editNode, c.editSel
	c.editNode, c.editSel = nil, ""
	c.st.SetEditing(false)

	if text == dom.Text(node) {
		return
	}
	ch := change.Change{Selector: sel, Type: change.TypeText, TextValue: text}
	eff, err := preview.ApplyChange(c.doc, ch)
	if err != nil {
		c.logger.Warn("coordinator: text commit failed", "selector", sel, "error", err)
		return
	}
	c.track.Add(ch, eff)
}

// cancelTextEdit reverts an in-progress inline edit (Escape in the page).
// Nothing is recorded; the relay restores the visible text itself.
func (c *coordinator) cancelTextEdit() {
	c.editNode, c.editSel = nil, ""
	c.st.SetEditing(false)
}

// --- HTML dialog ------------------------------------------------------

func (c *coordinator) startHTMLEdit(target *html.Node) {
	if target == nil {
		target = c.st.Selected()
	}
	if target == nil {
		c.notify.Notify(ui.Warn, "No element selected")
		return
	}
	sel, err := selector.Generate(c.doc, target, c.selOpt)
	if err != nil {
		c.logger.Warn("coordinator: editHtml selector failed", "error", err)
		return
	}
	c.dlgNode = target
	c.dlgSel = sel

	original := dom.InnerHTML(target)
	err = c.dlg.Show(original, func(res dialog.Result) {
		node, nodeSel := c.dlgNode, c.dlgSel
		c.dlgNode, c.dlgSel = nil, ""
		if !res.OK || node == nil || res.HTML == original {
			return
		}
		ch := change.Change{Selector: nodeSel, Type: change.TypeHTML, TextValue: res.HTML}
		eff, applyErr := preview.ApplyChange(c.doc, ch)
		if applyErr != nil {
			c.logger.Warn("coordinator: html edit failed", "selector", nodeSel, "error", applyErr)
			return
		}
		c.track.Add(ch, eff)
	})
	if err != nil {
		c.logger.Warn("coordinator: html dialog", "error", err)
	}
}

func (c *coordinator) onDialogSave(htmlValue string) {
	c.dlg.Save(htmlValue)
}

func (c *coordinator) onDialogClose() {
	c.dlg.Cancel()
}

// --- banner -----------------------------------------------------------

func (c *coordinator) onBannerClick(button string) {
	switch button {
	case "save":
		c.banner.ClickSave()
	case "exit":
		c.banner.ClickExit()
	case "undo":
		c.banner.ClickUndo()
	case "redo":
		c.banner.ClickRedo()
	default:
		c.logger.Debug("coordinator: unknown banner button", "button", button)
	}
}

// --- external mutations -----------------------------------------------

// handleExternalMutation folds page drift into the mirror. The relay
// observes the editor's own writes too, so every operation reconciles
// against the mirror's current state instead of blindly replaying:
// removing an absent node or rewriting an identical text or attribute is
// a no-op, and an insert whose markup is already present under the
// parent is an echo and is dropped.
func (c *coordinator) handleExternalMutation(m ExternalMutation) {
	switch m.Op {
	case "insert":
		parent, err := c.doc.Query(m.ParentSelector)
		if err != nil || parent == nil {
			c.logger.Debug("coordinator: external insert parent missing",
				"selector", m.ParentSelector, "error", err)
			return
		}
		nodes, err := dom.ParseFragment(m.HTML)
		if err != nil {
			c.logger.Debug("coordinator: external insert parse failed", "error", err)
			return
		}
		if nodesPresent(parent, nodes) {
			c.logger.Debug("coordinator: external insert already mirrored",
				"selector", m.ParentSelector)
			return
		}
		pos := m.Position
		if pos == "" {
			pos = "lastChild"
		}
		if err := dom.InsertRelative(parent, pos, nodes...); err != nil {
			c.logger.Debug("coordinator: external insert failed", "error", err)
		}
	case "remove":
		if n, err := c.doc.Query(m.Selector); err == nil && n != nil {
			if n == c.st.Selected() {
				c.st.SetSelected(nil)
			}
			if n == c.st.Hovered() {
				c.st.SetHovered(nil)
			}
			dom.Remove(n)
		}
	case "text":
		if n, err := c.doc.Query(m.Selector); err == nil && n != nil {
			dom.SetText(n, m.Value)
		}
	case "attr":
		if n, err := c.doc.Query(m.Selector); err == nil && n != nil {
			if m.Value == "" {
				dom.RemoveAttr(n, m.Name)
			} else {
				dom.SetAttr(n, m.Name, m.Value)
			}
		}
	default:
		c.logger.Debug("coordinator: unknown external mutation", "op", m.Op)
	}
}

// nodesPresent reports whether every element in nodes already exists as a
// child of parent, ignoring the editor's bookkeeping attributes. The live
// page never carries those, so an echo of an engine insert compares equal
// to the mirror node that produced it.
func nodesPresent(parent *html.Node, nodes []*html.Node) bool {
	any := false
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		any = true
		want, err := pageHTML(n)
		if err != nil {
			return false
		}
		found := false
		for ch := parent.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type != html.ElementNode {
				continue
			}
			got, err := pageHTML(ch)
			if err != nil {
				continue
			}
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return any
}

// pageHTML renders an element as the live page would carry it, with the
// data-absmartly-* markers stripped.
func pageHTML(n *html.Node) (string, error) {
	cp := dom.Clone(n)
	var strip func(*html.Node)
	strip = func(c *html.Node) {
		if c.Type == html.ElementNode {
			kept := c.Attr[:0]
			for _, a := range c.Attr {
				if strings.HasPrefix(a.Key, "data-absmartly-") {
					continue
				}
				kept = append(kept, a)
			}
			c.Attr = kept
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			strip(k)
		}
	}
	strip(cp)
	return dom.OuterHTML(cp)
}
