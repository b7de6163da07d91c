// Package ui holds the presentation-only pieces of the editor: the session
// banner model and user notifications. Everything here exposes callbacks the
// coordinator wires to real actions; nothing here mutates the document.
package ui

import "log/slog"

// Level grades a notification.
type Level string

const (
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// Notifier surfaces user-visible messages.
type Notifier interface {
	Notify(level Level, msg string)
}

// LogNotifier routes notifications to structured logging. The default when
// the host supplies no notifier of its own.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(level Level, msg string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch level {
	case Warn:
		logger.Warn("editor: " + msg)
	case Error:
		logger.Error("editor: " + msg)
	default:
		logger.Info("editor: " + msg)
	}
}

// Banner is the editing-session header model: variant label plus the
// save/exit/undo/redo buttons. Button "clicks" arrive as host events; the
// coordinator wires the callbacks.
type Banner struct {
	Variant string

	OnSave func()
	OnExit func()
	OnUndo func()
	OnRedo func()

	visible bool
}

// Show makes the banner visible for a variant.
func (b *Banner) Show(variant string) {
	b.Variant = variant
	b.visible = true
}

// Hide removes the banner.
func (b *Banner) Hide() {
	b.visible = false
}

// Visible reports banner visibility.
func (b *Banner) Visible() bool { return b.visible }

// ClickSave runs the save callback if wired.
func (b *Banner) ClickSave() {
	if b.OnSave != nil {
		b.OnSave()
	}
}

// ClickExit runs the exit callback if wired.
func (b *Banner) ClickExit() {
	if b.OnExit != nil {
		b.OnExit()
	}
}

// ClickUndo runs the undo callback if wired.
func (b *Banner) ClickUndo() {
	if b.OnUndo != nil {
		b.OnUndo()
	}
}

// ClickRedo runs the redo callback if wired.
func (b *Banner) ClickRedo() {
	if b.OnRedo != nil {
		b.OnRedo()
	}
}
