// Package editor hosts the visual editing session: a mirror document,
// the change list for one experiment variant, and the interaction
// machinery (selection, context menu, gestures, undo) built on top.
//
// A session follows a strict draft/commit boundary. Edits accumulate in
// the in-memory change list and are replayed into the mirror immediately,
// but the host callback fires exactly once, with the squashed list, when
// the operator saves. Discarding a session never emits anything.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor/internal/actions"
	"github.com/absmartly/vedit/editor/internal/events"
	"github.com/absmartly/vedit/editor/internal/state"
	"github.com/absmartly/vedit/editor/internal/track"
	"github.com/absmartly/vedit/editor/internal/ui"
	"github.com/absmartly/vedit/idgen"
	"github.com/absmartly/vedit/preview"
	"github.com/absmartly/vedit/selector"
)

// ErrNotStarted is returned by operations that need a live session.
var ErrNotStarted = errors.New("editor: not started")

// Config carries everything a session needs. Document is required;
// everything else has a working default.
type Config struct {
	Document       *dom.Document
	ExperimentName string
	VariantName    string

	// InitialChanges is the already-saved change list for this variant,
	// replayed into the mirror on Start. It does not count as unsaved
	// work and is not undoable.
	InitialChanges []change.Change

	// OnChangesUpdate receives the squashed change list, once per save.
	OnChangesUpdate func(changes []change.Change)

	// OnMirrorUpdate receives the squashed draft list after every
	// engine-originated mirror mutation, so a relay can replay the draft
	// against the live page while the operator edits. Distinct from the
	// save callback: this stream carries uncommitted work.
	OnMirrorUpdate func(changes []change.Change)

	// OnExit fires when the session ends. saved reports whether any save
	// happened during the session.
	OnExit func(saved bool, changes []change.Change)

	// Confirm gates exits with unsaved work. nil means exits are never
	// blocked.
	Confirm func(prompt string) bool

	Notifier  ui.Notifier
	Clipboard actions.Clipboard
	Registry  *SessionRegistry

	// SelectorOptions configures selector generation. nil means the
	// package defaults; a non-nil value is taken as given, explicit
	// falses included.
	SelectorOptions *selector.Options
	Logger          *slog.Logger

	// AutoStopDelay is how long the session lingers after a save before
	// stopping itself. Zero or negative stops synchronously.
	AutoStopDelay time.Duration
}

// StartResult reports the outcome of Start.
type StartResult struct {
	Success bool
	Already bool
}

// VisualEditor is one editing session over a mirror document.
type VisualEditor struct {
	mu sync.Mutex

	cfg    Config
	logger *slog.Logger

	st    *state.Manager
	track *track.Tracker
	coord *coordinator

	id       string
	key      string
	active   bool
	saved    bool
	stopTmr  *time.Timer
	registry *SessionRegistry

	lastMirror []byte
}

// New builds a session from cfg. Start must be called before the editor
// accepts events.
func New(cfg Config) (*VisualEditor, error) {
	if cfg.Document == nil {
		return nil, errors.New("editor: config requires a document")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = ui.LogNotifier{Logger: logger}
	}
	if cfg.Registry == nil {
		cfg.Registry = NewSessionRegistry()
	}
	selOpt := selector.DefaultOptions()
	if cfg.SelectorOptions != nil {
		selOpt = *cfg.SelectorOptions
	}

	st := state.New()
	tr := track.New(cfg.Document, st, logger)

	id := idgen.Prefixed("sess_", idgen.NanoID(8))()
	v := &VisualEditor{
		cfg:      cfg,
		logger:   logger.With("session", id),
		st:       st,
		track:    tr,
		registry: cfg.Registry,
		id:       id,
		key:      cfg.ExperimentName + "/" + cfg.VariantName,
	}
	v.lastMirror, _ = change.MarshalList(change.Squash(nil))
	v.coord = newCoordinator(cfg.Document, st, tr, selOpt,
		cfg.Notifier, cfg.Clipboard, logger)
	v.coord.onSave = func() { _ = v.SaveChanges() }
	v.coord.onExit = func() { v.Stop() }
	return v, nil
}

// Start acquires the page slot, wires the session and replays the initial
// change list into the mirror. When another session already holds the
// slot, Start reports Already without touching anything.
func (v *VisualEditor) Start() (StartResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.active {
		return StartResult{Success: true, Already: true}, nil
	}
	if !v.registry.TryAcquire(v.key) {
		return StartResult{Success: true, Already: true}, nil
	}

	v.st.SetChanges(nil)
	for _, c := range v.cfg.InitialChanges {
		v.st.AppendChange(c)
		if !c.IsEnabled() {
			continue
		}
		if _, err := preview.ApplyChange(v.cfg.Document, c); err != nil {
			v.logger.Warn("editor: initial change skipped",
				"selector", c.Selector, "type", c.Type, "error", err)
		}
	}

	v.coord.setupAll(v.sessionLabel())
	v.active = true
	v.saved = false
	v.logger.Info("editor: session started",
		"experiment", v.cfg.ExperimentName, "variant", v.cfg.VariantName)
	v.emitMirrorLocked()
	return StartResult{Success: true}, nil
}

// emitMirrorLocked streams the squashed draft to OnMirrorUpdate when the
// list changed since the last emit. Callers hold v.mu; the callback runs
// outside it.
func (v *VisualEditor) emitMirrorLocked() {
	cb := v.cfg.OnMirrorUpdate
	if cb == nil {
		return
	}
	list := change.Squash(v.st.Changes())
	raw, err := change.MarshalList(list)
	if err != nil {
		v.logger.Warn("editor: mirror stream encode failed", "error", err)
		return
	}
	if string(raw) == string(v.lastMirror) {
		return
	}
	v.lastMirror = raw

	v.mu.Unlock()
	defer v.mu.Lock()
	cb(list)
}

func (v *VisualEditor) sessionLabel() string {
	if v.cfg.ExperimentName == "" {
		return v.cfg.VariantName
	}
	return v.cfg.ExperimentName + " / " + v.cfg.VariantName
}

// Active reports whether the session is live.
func (v *VisualEditor) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// HandleEvent feeds one page interaction into the session.
func (v *VisualEditor) HandleEvent(ev events.Event) {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return
	}
	coord := v.coord
	v.mu.Unlock()
	coord.disp.Dispatch(ev)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.emitMirrorLocked()
}

// HandleExternalMutation folds observed page drift into the mirror.
func (v *VisualEditor) HandleExternalMutation(m ExternalMutation) {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return
	}
	coord := v.coord
	v.mu.Unlock()
	coord.handleExternalMutation(m)
}

// AddChange applies a programmatic change to the session. The change is
// squashed into the list and pushed on the undo stack exactly like a
// user edit; nothing reaches the host until SaveChanges. A change whose
// selector matches nothing still lands in the list, with the failure
// logged.
func (v *VisualEditor) AddChange(c change.Change) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.active {
		return ErrNotStarted
	}
	if err := change.Validate(c); err != nil {
		return fmt.Errorf("editor: add change: %w", err)
	}

	eff, err := preview.ApplyChange(v.cfg.Document, c)
	if err != nil {
		v.logger.Warn("editor: change not applied to mirror",
			"selector", c.Selector, "type", c.Type, "error", err)
	}
	v.track.Add(c, eff)
	v.emitMirrorLocked()
	return nil
}

// GetChanges returns the current change list, squashed.
func (v *VisualEditor) GetChanges() []change.Change {
	v.mu.Lock()
	defer v.mu.Unlock()
	return change.Squash(v.st.Changes())
}

// HasUnsavedChanges reports whether any session edit is not yet saved.
// Undoing every session edit clears the flag.
func (v *VisualEditor) HasUnsavedChanges() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.st.UndoLen() > 0
}

// Undo reverts the most recent session edit. Initial changes are below
// the undo floor.
func (v *VisualEditor) Undo() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.active {
		return false
	}
	ok := v.track.Undo()
	v.emitMirrorLocked()
	return ok
}

// Redo re-applies the most recently undone edit.
func (v *VisualEditor) Redo() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.active {
		return false
	}
	ok := v.track.Redo()
	v.emitMirrorLocked()
	return ok
}

// SaveChanges commits the session draft: the squashed list goes to the
// host callback once, the undo history is retired, and the session
// schedules its own stop.
func (v *VisualEditor) SaveChanges() error {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return ErrNotStarted
	}
	list := change.Squash(v.st.Changes())
	v.st.SetChanges(list)
	v.st.ClearHistory()
	v.saved = true
	cb := v.cfg.OnChangesUpdate
	notify := v.cfg.Notifier
	delay := v.cfg.AutoStopDelay
	v.mu.Unlock()

	if cb != nil {
		cb(list)
	}
	notify.Notify(ui.Info, fmt.Sprintf("Saved %d change(s)", len(list)))
	v.logger.Info("editor: changes saved", "count", len(list))

	if delay <= 0 {
		v.Stop()
		return nil
	}
	v.mu.Lock()
	if v.stopTmr != nil {
		v.stopTmr.Stop()
	}
	v.stopTmr = time.AfterFunc(delay, func() { v.Stop() })
	v.mu.Unlock()
	return nil
}

// Stop ends the session. Unsaved work prompts through Confirm; refusing
// keeps the session alive. A discarded draft is never sent anywhere.
// Stop returns true when the session actually ended.
func (v *VisualEditor) Stop() bool {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return true
	}
	if v.st.UndoLen() > 0 && v.cfg.Confirm != nil {
		confirm := v.cfg.Confirm
		v.mu.Unlock()
		if !confirm("You have unsaved changes. Exit without saving?") {
			return false
		}
		v.mu.Lock()
		if !v.active {
			v.mu.Unlock()
			return true
		}
	}
	if v.stopTmr != nil {
		v.stopTmr.Stop()
		v.stopTmr = nil
	}
	v.active = false
	saved := v.saved
	list := change.Squash(v.st.Changes())
	coord := v.coord
	onExit := v.cfg.OnExit
	v.mu.Unlock()

	coord.teardownAll()
	v.registry.Release(v.key)
	v.logger.Info("editor: session stopped", "saved", saved)
	if onExit != nil {
		onExit(saved, list)
	}
	return true
}

// Destroy is Stop for callers tearing the page down.
func (v *VisualEditor) Destroy() {
	v.Stop()
}
