package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/editor"
	"github.com/absmartly/vedit/preview"
	"github.com/absmartly/vedit/sanitize"
	"github.com/absmartly/vedit/selector"
)

// GatewayConfig configures the message gateway for one page.
type GatewayConfig struct {
	Document *dom.Document
	Out      *Router

	// Confirm gates exits with unsaved work. nil never blocks.
	Confirm func(prompt string) bool

	Notifier        editor.Notifier
	SelectorOptions *selector.Options // nil means defaults
	AutoStopDelay   time.Duration
	Logger          *slog.Logger
}

// Gateway binds one mirror document to the host protocol: inbound
// envelopes drive editing sessions and previews, outbound envelopes
// report saves and exits. One gateway serves one page.
type Gateway struct {
	mu  sync.Mutex
	cfg GatewayConfig

	logger   *slog.Logger
	registry *editor.SessionRegistry
	prev     *preview.Preview
	session  *editor.VisualEditor
}

// NewGateway creates a gateway over cfg.Document, reporting through
// cfg.Out.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Document == nil {
		return nil, errors.New("host: gateway requires a document")
	}
	if cfg.Out == nil {
		return nil, errors.New("host: gateway requires an output router")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:      cfg,
		logger:   logger,
		registry: editor.NewSessionRegistry(),
		prev:     preview.New(cfg.Document, logger),
	}, nil
}

// Handle processes one inbound frame. Frames failing boundary validation
// are dropped, not errored: the contract says receivers ignore them.
func (g *Gateway) Handle(ctx context.Context, raw []byte) error {
	env, err := Decode(raw)
	if err != nil {
		g.logger.Debug("host: dropped frame", "error", err)
		return nil
	}

	switch env.Type {
	case MsgStart:
		return g.handleStart(env)
	case MsgExit:
		return g.handleExit()
	case MsgEvent:
		return g.handleEvent(env)
	case MsgMutation:
		return g.handleMutation(env)
	case MsgPreview:
		return g.handlePreview(env)
	}
	return nil
}

func (g *Gateway) handleStart(env Envelope) error {
	var p StartPayload
	if err := decodePayload(env, &p); err != nil {
		g.logger.Debug("host: dropped start", "error", err)
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != nil && g.session.Active() {
		if g.cfg.Notifier != nil {
			g.cfg.Notifier.Notify(editor.NotifyInfo,
				"Visual Editor is already active for variant "+p.VariantName)
		}
		g.logger.Info("host: start ignored, session active", "variant", p.VariantName)
		return nil
	}

	// A preview of the same page must not stack under an editing session.
	g.prev.Remove()

	ed, err := editor.New(editor.Config{
		Document:        g.cfg.Document,
		ExperimentName:  p.ExperimentName,
		VariantName:     p.VariantName,
		InitialChanges:  sanitize.Changes(p.Changes),
		Confirm:         g.cfg.Confirm,
		Notifier:        g.cfg.Notifier,
		Clipboard:       editor.SystemClipboard{},
		Registry:        g.registry,
		SelectorOptions: g.cfg.SelectorOptions,
		Logger:          g.logger,
		AutoStopDelay:   g.cfg.AutoStopDelay,
		OnMirrorUpdate: func(list []change.Change) {
			g.send(MsgMirror, MirrorPayload{
				VariantName: p.VariantName,
				Changes:     list,
			})
		},
		OnChangesUpdate: func(list []change.Change) {
			g.send(MsgSave, SavePayload{
				ExperimentName: p.ExperimentName,
				VariantName:    p.VariantName,
				Changes:        list,
			})
		},
		OnExit: func(saved bool, list []change.Change) {
			if saved {
				g.send(MsgChangesComplete, CompletePayload{
					VariantName: p.VariantName,
					Changes:     list,
				})
			} else {
				g.send(MsgStopped, nil)
			}
			g.mu.Lock()
			g.session = nil
			g.mu.Unlock()
		},
	})
	if err != nil {
		return fmt.Errorf("host: start session: %w", err)
	}

	res, err := ed.Start()
	if err != nil {
		return fmt.Errorf("host: start session: %w", err)
	}
	if res.Already {
		g.logger.Info("host: start ignored, registry held", "variant", p.VariantName)
		return nil
	}
	g.session = ed
	return nil
}

func (g *Gateway) handleExit() error {
	g.mu.Lock()
	ed := g.session
	g.mu.Unlock()
	if ed == nil {
		return nil
	}
	ed.Stop()
	return nil
}

func (g *Gateway) handleEvent(env Envelope) error {
	var ev eventPayload
	if err := decodePayload(env, &ev); err != nil {
		g.logger.Debug("host: dropped event", "error", err)
		return nil
	}
	g.mu.Lock()
	ed := g.session
	g.mu.Unlock()
	if ed == nil {
		return nil
	}
	ed.HandleEvent(ev)
	return nil
}

func (g *Gateway) handleMutation(env Envelope) error {
	var m mutationPayload
	if err := decodePayload(env, &m); err != nil {
		g.logger.Debug("host: dropped mutation", "error", err)
		return nil
	}
	g.mu.Lock()
	ed := g.session
	g.mu.Unlock()
	if ed != nil {
		ed.HandleExternalMutation(m)
	}
	g.prev.Drain()
	return nil
}

func (g *Gateway) handlePreview(env Envelope) error {
	var p PreviewPayload
	if err := decodePayload(env, &p); err != nil {
		g.logger.Debug("host: dropped preview", "error", err)
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != nil && g.session.Active() {
		g.logger.Info("host: preview ignored during editing session")
		return nil
	}

	switch p.Action {
	case "apply":
		if err := g.prev.Apply(p.VariantName, sanitize.Changes(p.Changes)); err != nil {
			return fmt.Errorf("host: preview apply: %w", err)
		}
	case "remove":
		g.prev.Remove()
	default:
		g.logger.Debug("host: unknown preview action", "action", p.Action)
	}
	return nil
}

// Session returns the live editing session, if any.
func (g *Gateway) Session() *editor.VisualEditor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// send frames and routes one outbound message. Delivery is fire and
// forget: failures are logged by the router, never propagated into the
// editor state machine.
func (g *Gateway) send(msgType string, payload any) {
	env := Envelope{Source: SourceEditor, Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			g.logger.Error("host: encode failed", "type", msgType, "error", err)
			return
		}
		env.Payload = raw
	}
	if err := g.cfg.Out.Send(context.Background(), env); err != nil {
		g.logger.Warn("host: outbound send failed", "type", msgType, "error", err)
	}
}
