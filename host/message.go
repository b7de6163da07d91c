// Package host implements the message contract between the editor engine
// and its host (the extension sidebar or any driver speaking the same
// protocol). Messages are source-tagged envelopes with a JSON payload;
// anything without a recognized source or type is dropped at the boundary.
package host

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/editor"
)

// Source discriminators. Receivers ignore envelopes whose source is not
// one of these.
const (
	SourcePage      = "absmartly-page"
	SourceExtension = "absmartly-extension"
	SourceEditor    = "absmartly-visual-editor"
)

// Inbound message types (host → engine).
const (
	MsgStart    = "START_VISUAL_EDITOR"
	MsgExit     = "ABSMARTLY_VISUAL_EDITOR_EXIT"
	MsgPreview  = "ABSMARTLY_PREVIEW"
	MsgEvent    = "VISUAL_EDITOR_EVENT"
	MsgMutation = "VISUAL_EDITOR_EXTERNAL_MUTATION"
)

// Outbound message types (engine → host).
const (
	MsgSave            = "ABSMARTLY_VISUAL_EDITOR_SAVE"
	MsgStopped         = "VISUAL_EDITOR_STOPPED"
	MsgChangesComplete = "VISUAL_EDITOR_CHANGES_COMPLETE"
	MsgMirror          = "VISUAL_EDITOR_MUTATION"
)

// ErrBadEnvelope is wrapped by Decode for anything that must be dropped
// at the boundary.
var ErrBadEnvelope = errors.New("host: bad envelope")

// Envelope is the wire frame around every message.
type Envelope struct {
	Source  string          `json:"source"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StartPayload launches a session for one experiment variant.
type StartPayload struct {
	ExperimentName string          `json:"experimentName"`
	VariantName    string          `json:"variantName"`
	Changes        []change.Change `json:"changes"`
}

// PreviewPayload applies or removes a saved variant outside an editing
// session.
type PreviewPayload struct {
	Action         string          `json:"action"` // apply | remove
	ExperimentName string          `json:"experimentName,omitempty"`
	VariantName    string          `json:"variantName"`
	Changes        []change.Change `json:"changes,omitempty"`
}

// SavePayload carries the squashed change list to the host on save.
type SavePayload struct {
	ExperimentName string          `json:"experimentName"`
	VariantName    string          `json:"variantName"`
	Changes        []change.Change `json:"changes"`
}

// CompletePayload reports the final list when a saved session exits.
type CompletePayload struct {
	VariantName string          `json:"variantName"`
	Changes     []change.Change `json:"changes"`
}

// MirrorPayload streams the squashed draft list after every engine
// mutation, so the relay can replay uncommitted edits on the live page.
type MirrorPayload struct {
	VariantName string          `json:"variantName"`
	Changes     []change.Change `json:"changes"`
}

var inboundTypes = map[string]bool{
	MsgStart:    true,
	MsgExit:     true,
	MsgPreview:  true,
	MsgEvent:    true,
	MsgMutation: true,
}

// Decode parses raw into an Envelope and validates the boundary rules:
// the source must be a page or extension source and the type must be a
// known inbound type. Everything else errors with ErrBadEnvelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if env.Source != SourcePage && env.Source != SourceExtension {
		return Envelope{}, fmt.Errorf("%w: unknown source %q", ErrBadEnvelope, env.Source)
	}
	if !inboundTypes[env.Type] {
		return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrBadEnvelope, env.Type)
	}
	return env, nil
}

// Encode frames an outbound message in the editor source tag.
func Encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Source: SourceEditor, Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("host: encode %s: %w", msgType, err)
		}
		env.Payload = raw
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("host: encode %s: %w", msgType, err)
	}
	return out, nil
}

// decodePayload decodes an envelope payload into dst.
func decodePayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrBadEnvelope, env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrBadEnvelope, env.Type, err)
	}
	return nil
}

// eventPayload mirrors editor.Event on the wire.
type eventPayload = editor.Event

// mutationPayload mirrors editor.ExternalMutation on the wire.
type mutationPayload = editor.ExternalMutation
