package editor

import (
	"github.com/absmartly/vedit/editor/internal/events"
	"github.com/absmartly/vedit/editor/internal/ui"
)

// Re-exports for packages outside the editor tree. The host gateway and
// the websocket bridge speak these types on the wire.

// Event is one relay interaction event. See the event kinds below.
type Event = events.Event

// EventKind discriminates relay events.
type EventKind = events.Kind

const (
	EventHover       = events.Hover
	EventClick       = events.Click
	EventContextMenu = events.ContextMenu
	EventKeyDown     = events.KeyDown
	EventDragStart   = events.DragStart
	EventDrop        = events.Drop
	EventDragEnd     = events.DragEnd
	EventPointerDown = events.PointerDown
	EventPointerMove = events.PointerMove
	EventPointerUp   = events.PointerUp
	EventMenuSelect  = events.MenuSelect
	EventDialogSave  = events.DialogSave
	EventDialogClose = events.DialogClose
	EventBannerClick = events.BannerClick
	EventTextCommit  = events.TextCommit
)

// Notifier surfaces user-visible messages.
type Notifier = ui.Notifier

// NotifyLevel grades notifications.
type NotifyLevel = ui.Level

const (
	NotifyInfo  = ui.Info
	NotifyWarn  = ui.Warn
	NotifyError = ui.Error
)

// LogNotifier routes notifications to the session logger.
type LogNotifier = ui.LogNotifier
