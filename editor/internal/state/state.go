// Package state holds the visual editor's session state: the working change
// list, the current selection, the undo/redo stacks, and a synchronous
// publish/subscribe mechanism for state-change notification. Pure data and
// notification; no DOM mutation happens here.
package state

import (
	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
)

// EntryKind classifies an undo entry.
type EntryKind string

const (
	EntryAdd    EntryKind = "add"
	EntryUpdate EntryKind = "update"
	EntryDelete EntryKind = "delete"
)

// Entry is one reversible operation on the change list. For changes that
// detached or created nodes it additionally carries the node references
// needed to reverse the DOM side.
type Entry struct {
	Kind     EntryKind
	Change   change.Change
	Previous *change.Change // for update: the value being replaced
	Index    int            // position in the change list

	// DOM context. Detached is the node removed by a remove change; Anchor
	// and AnchorPos describe where it re-attaches on undo. Created lists
	// the nodes an insert/create change added.
	Detached  *html.Node
	Anchor    *html.Node
	AnchorPos string
	Created   []*html.Node
}

// Manager owns the session state. It is confined to the engine's event
// goroutine; callers serialize access the way the host loop serializes
// events. Notification is synchronous and in registration order.
type Manager struct {
	changes  []change.Change
	selected *html.Node
	hovered  *html.Node
	dragged  *html.Node

	undo []Entry
	redo []Entry

	rearranging bool
	resizing    bool
	editing     bool

	listeners     map[int]func()
	listenerOrder []int
	nextListener  int
}

// New creates an empty state manager.
func New() *Manager {
	return &Manager{listeners: make(map[int]func())}
}

// OnStateChange registers a listener and returns its unsubscribe function.
// Listeners run synchronously on every mutation, in registration order.
func (m *Manager) OnStateChange(fn func()) func() {
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenerOrder = append(m.listenerOrder, id)
	return func() {
		delete(m.listeners, id)
	}
}

// notify runs every live listener. The order snapshot is taken first so a
// listener unsubscribing mid-notify cannot corrupt iteration; re-entrant
// mutation from inside a listener is tolerated but its view is unspecified.
func (m *Manager) notify() {
	order := append([]int(nil), m.listenerOrder...)
	for _, id := range order {
		if fn, ok := m.listeners[id]; ok {
			fn()
		}
	}
}

// Changes returns the working change list. Callers must not mutate it.
func (m *Manager) Changes() []change.Change { return m.changes }

// SetChanges replaces the full change list.
func (m *Manager) SetChanges(list []change.Change) {
	m.changes = list
	m.notify()
}

// IndexOf finds the change with the given squash identity, or -1.
func (m *Manager) IndexOf(k change.Key) int {
	for i, c := range m.changes {
		if change.KeyOf(c) == k {
			return i
		}
	}
	return -1
}

// SetChangeAt replaces one change in place.
func (m *Manager) SetChangeAt(i int, c change.Change) {
	if i < 0 || i >= len(m.changes) {
		return
	}
	m.changes[i] = c
	m.notify()
}

// AppendChange adds a change to the end of the list and returns its index.
func (m *Manager) AppendChange(c change.Change) int {
	m.changes = append(m.changes, c)
	m.notify()
	return len(m.changes) - 1
}

// RemoveChangeAt deletes the change at an index.
func (m *Manager) RemoveChangeAt(i int) {
	if i < 0 || i >= len(m.changes) {
		return
	}
	m.changes = append(m.changes[:i], m.changes[i+1:]...)
	m.notify()
}

// InsertChangeAt puts a change back at a given index (undo of a delete).
func (m *Manager) InsertChangeAt(i int, c change.Change) {
	if i < 0 || i > len(m.changes) {
		i = len(m.changes)
	}
	m.changes = append(m.changes[:i], append([]change.Change{c}, m.changes[i:]...)...)
	m.notify()
}

// Selected returns the currently selected element, or nil.
func (m *Manager) Selected() *html.Node { return m.selected }

// SetSelected changes the selection.
func (m *Manager) SetSelected(n *html.Node) {
	m.selected = n
	m.notify()
}

// Hovered returns the currently highlighted element, or nil.
func (m *Manager) Hovered() *html.Node { return m.hovered }

// SetHovered changes the hover highlight.
func (m *Manager) SetHovered(n *html.Node) {
	m.hovered = n
	m.notify()
}

// Dragged returns the element owned by an in-flight drag gesture.
func (m *Manager) Dragged() *html.Node { return m.dragged }

// SetDragged records drag ownership for the duration of a gesture.
func (m *Manager) SetDragged(n *html.Node) {
	m.dragged = n
	m.notify()
}

// Rearranging reports whether the rearrange gesture mode is active.
func (m *Manager) Rearranging() bool { return m.rearranging }

// SetRearranging toggles rearrange mode.
func (m *Manager) SetRearranging(v bool) {
	m.rearranging = v
	m.notify()
}

// Resizing reports whether the resize gesture mode is active.
func (m *Manager) Resizing() bool { return m.resizing }

// SetResizing toggles resize mode.
func (m *Manager) SetResizing(v bool) {
	m.resizing = v
	m.notify()
}

// Editing reports whether an inline text/HTML edit is in progress. While
// set, hover and selection handling is suppressed.
func (m *Manager) Editing() bool { return m.editing }

// SetEditing toggles inline-editing mode.
func (m *Manager) SetEditing(v bool) {
	m.editing = v
	m.notify()
}

// PushUndo appends a session edit and clears the redo stack: no redo
// survives a fresh edit.
func (m *Manager) PushUndo(e Entry) {
	m.undo = append(m.undo, e)
	m.redo = nil
	m.notify()
}

// RepushUndo appends to the undo stack without clearing redo. Used by the
// redo path to restore stack symmetry.
func (m *Manager) RepushUndo(e Entry) {
	m.undo = append(m.undo, e)
	m.notify()
}

// PopUndo removes and returns the most recent undo entry.
func (m *Manager) PopUndo() (Entry, bool) {
	if len(m.undo) == 0 {
		return Entry{}, false
	}
	e := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.notify()
	return e, true
}

// PushRedo appends an entry to the redo stack.
func (m *Manager) PushRedo(e Entry) {
	m.redo = append(m.redo, e)
	m.notify()
}

// PopRedo removes and returns the most recent redo entry.
func (m *Manager) PopRedo() (Entry, bool) {
	if len(m.redo) == 0 {
		return Entry{}, false
	}
	e := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.notify()
	return e, true
}

// UndoLen returns the undo stack depth. Session edits are counted by this
// depth, not by the total change count: changes restored from a prior save
// never enter the undo stack.
func (m *Manager) UndoLen() int { return len(m.undo) }

// RedoLen returns the redo stack depth.
func (m *Manager) RedoLen() int { return len(m.redo) }

// ClearHistory drops both stacks.
func (m *Manager) ClearHistory() {
	m.undo, m.redo = nil, nil
	m.notify()
}
