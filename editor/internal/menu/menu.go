// Package menu models the right-click context menu. The menu only presents:
// selecting an item dispatches the action identifier to the coordinator's
// handler, never executes anything itself.
package menu

import "golang.org/x/net/html"

// Known action identifiers, in display order.
const (
	ActionEdit           = "edit"
	ActionEditHTML       = "editHtml"
	ActionRearrange      = "rearrange"
	ActionResize         = "resize"
	ActionHide           = "hide"
	ActionDelete         = "delete"
	ActionCopy           = "copy"
	ActionCopySelector   = "copy-selector"
	ActionMoveUp         = "move-up"
	ActionMoveDown       = "move-down"
	ActionInsertBlock    = "insert-block"
	ActionSelectRelative = "select-relative"
)

// Item is one menu row.
type Item struct {
	Action    string
	Label     string
	Danger    bool
	Separator bool
}

// DefaultItems is the standard menu layout.
func DefaultItems() []Item {
	return []Item{
		{Action: ActionEdit, Label: "Edit text"},
		{Action: ActionEditHTML, Label: "Edit HTML"},
		{Separator: true},
		{Action: ActionRearrange, Label: "Rearrange"},
		{Action: ActionResize, Label: "Resize"},
		{Action: ActionMoveUp, Label: "Move up"},
		{Action: ActionMoveDown, Label: "Move down"},
		{Separator: true},
		{Action: ActionCopy, Label: "Duplicate"},
		{Action: ActionInsertBlock, Label: "Insert block"},
		{Action: ActionSelectRelative, Label: "Move to…"},
		{Action: ActionCopySelector, Label: "Copy selector"},
		{Separator: true},
		{Action: ActionHide, Label: "Hide"},
		{Action: ActionDelete, Label: "Delete", Danger: true},
	}
}

// Menu is the singleton context-menu instance, positioned at the cursor.
type Menu struct {
	items    []Item
	onAction func(action string, target *html.Node)

	visible bool
	x, y    float64
	target  *html.Node
}

// New creates a menu dispatching to the given handler.
func New(onAction func(action string, target *html.Node)) *Menu {
	return &Menu{items: DefaultItems(), onAction: onAction}
}

// Show opens the menu for an element at cursor coordinates. A second Show
// repositions the same singleton.
func (m *Menu) Show(target *html.Node, x, y float64) {
	m.target = target
	m.x, m.y = x, y
	m.visible = true
}

// Hide closes the menu.
func (m *Menu) Hide() {
	m.visible = false
	m.target = nil
}

// Visible reports whether the menu is open.
func (m *Menu) Visible() bool { return m.visible }

// Position returns the cursor coordinates the menu opened at.
func (m *Menu) Position() (x, y float64) { return m.x, m.y }

// Items returns the menu rows.
func (m *Menu) Items() []Item { return m.items }

// Select dispatches a menu item and closes the menu. Selection with no open
// menu is ignored.
func (m *Menu) Select(action string) {
	if !m.visible {
		return
	}
	target := m.target
	m.Hide()
	if m.onAction != nil {
		m.onAction(action, target)
	}
}
