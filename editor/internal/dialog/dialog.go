// Package dialog is the HTML editor modal: an explicit open/closed state
// machine with a completion callback. It resolves with the new HTML on
// save and with ok=false on cancel, Escape, or backdrop click.
package dialog

import "errors"

// ErrAlreadyOpen reports a Show while a dialog is pending.
var ErrAlreadyOpen = errors.New("dialog: already open")

// Result is the outcome of one dialog session.
type Result struct {
	HTML string
	OK   bool
}

// Editor is the modal machine. Open state holds the original markup being
// edited; Save/Cancel complete the session exactly once.
type Editor struct {
	open       bool
	original   string
	onComplete func(Result)
}

// New creates a closed dialog.
func New() *Editor {
	return &Editor{}
}

// Show opens the dialog over the given markup. The callback fires exactly
// once, on Save or Cancel.
func (e *Editor) Show(original string, onComplete func(Result)) error {
	if e.open {
		return ErrAlreadyOpen
	}
	e.open = true
	e.original = original
	e.onComplete = onComplete
	return nil
}

// Open reports whether a session is pending.
func (e *Editor) Open() bool { return e.open }

// Original returns the markup the dialog opened with.
func (e *Editor) Original() string { return e.original }

// Save completes the session with edited markup.
func (e *Editor) Save(html string) {
	e.complete(Result{HTML: html, OK: true})
}

// Cancel completes the session without a result. Escape and backdrop click
// route here.
func (e *Editor) Cancel() {
	e.complete(Result{})
}

func (e *Editor) complete(r Result) {
	if !e.open {
		return
	}
	done := e.onComplete
	e.open = false
	e.original = ""
	e.onComplete = nil
	if done != nil {
		done(r)
	}
}
