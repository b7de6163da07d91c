package change

import (
	"encoding/json"
	"fmt"
)

// wireChange is the JSON shape. The "value" key is polymorphic: its decoded
// Go type depends on the "type" discriminator. Unknown discriminators are
// rejected at the boundary rather than carried as dynamic payloads.
type wireChange struct {
	Selector               string          `json:"selector"`
	Type                   Type            `json:"type"`
	Enabled                *bool           `json:"enabled,omitempty"`
	Mode                   Mode            `json:"mode,omitempty"`
	Value                  json.RawMessage `json:"value,omitempty"`
	TargetSelector         string          `json:"targetSelector,omitempty"`
	Position               Position        `json:"position,omitempty"`
	OriginalTargetSelector string          `json:"originalTargetSelector,omitempty"`
	OriginalPosition       Position        `json:"originalPosition,omitempty"`
	HTML                   string          `json:"html,omitempty"`
	WaitForElement         bool            `json:"waitForElement,omitempty"`
	ObserverRoot           string          `json:"observerRoot,omitempty"`
	Important              bool            `json:"important,omitempty"`
	PersistStyle           bool            `json:"persistStyle,omitempty"`
}

// MarshalJSON encodes the typed payload under the "value" key. The enabled
// flag is always emitted so consumers never have to special-case absence.
func (c Change) MarshalJSON() ([]byte, error) {
	w := wireChange{
		Selector:               c.Selector,
		Type:                   c.Type,
		Enabled:                c.Enabled,
		Mode:                   c.Mode,
		TargetSelector:         c.TargetSelector,
		Position:               c.Position,
		OriginalTargetSelector: c.OriginalTargetSelector,
		OriginalPosition:       c.OriginalPosition,
		HTML:                   c.HTML,
		WaitForElement:         c.WaitForElement,
		ObserverRoot:           c.ObserverRoot,
		Important:              c.Important,
		PersistStyle:           c.PersistStyle,
	}
	if w.Enabled == nil {
		w.Enabled = Bool(true)
	}

	var payload any
	switch c.Type {
	case TypeText, TypeHTML, TypeJavaScript:
		payload = c.TextValue
	case TypeStyle:
		payload = c.Styles
	case TypeStyleRules:
		payload = c.StyleRules
	case TypeClass:
		payload = c.Class
	case TypeAttribute:
		payload = c.Attributes
	case TypeMove, TypeRemove, TypeInsert, TypeCreate:
		// No value key; payload lives in dedicated fields.
	default:
		return nil, fmt.Errorf("change: marshal unknown type %q", c.Type)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("change: marshal value: %w", err)
		}
		w.Value = data
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the "value" key into the typed field selected by
// the type discriminator.
func (c *Change) UnmarshalJSON(data []byte) error {
	var w wireChange
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("change: unmarshal: %w", err)
	}

	*c = Change{
		Selector:               w.Selector,
		Type:                   w.Type,
		Enabled:                w.Enabled,
		Mode:                   w.Mode,
		TargetSelector:         w.TargetSelector,
		Position:               w.Position,
		OriginalTargetSelector: w.OriginalTargetSelector,
		OriginalPosition:       w.OriginalPosition,
		HTML:                   w.HTML,
		WaitForElement:         w.WaitForElement,
		ObserverRoot:           w.ObserverRoot,
		Important:              w.Important,
		PersistStyle:           w.PersistStyle,
	}

	if len(w.Value) == 0 || string(w.Value) == "null" {
		return c.checkType()
	}

	switch w.Type {
	case TypeText, TypeHTML, TypeJavaScript:
		if err := json.Unmarshal(w.Value, &c.TextValue); err != nil {
			return fmt.Errorf("change: %s value: %w", w.Type, err)
		}
	case TypeStyle:
		if err := json.Unmarshal(w.Value, &c.Styles); err != nil {
			return fmt.Errorf("change: style value: %w", err)
		}
	case TypeStyleRules:
		if err := json.Unmarshal(w.Value, &c.StyleRules); err != nil {
			return fmt.Errorf("change: styleRules value: %w", err)
		}
	case TypeClass:
		if err := json.Unmarshal(w.Value, &c.Class); err != nil {
			return fmt.Errorf("change: class value: %w", err)
		}
	case TypeAttribute:
		if err := json.Unmarshal(w.Value, &c.Attributes); err != nil {
			return fmt.Errorf("change: attribute value: %w", err)
		}
	case TypeMove, TypeRemove, TypeInsert, TypeCreate:
		// Dedicated fields only; a stray value key is ignored.
	default:
		return fmt.Errorf("change: unknown type %q", w.Type)
	}
	return nil
}

func (c *Change) checkType() error {
	switch c.Type {
	case TypeText, TypeStyle, TypeStyleRules, TypeClass, TypeAttribute,
		TypeHTML, TypeJavaScript, TypeMove, TypeRemove, TypeInsert, TypeCreate:
		return nil
	}
	return fmt.Errorf("change: unknown type %q", c.Type)
}

// MarshalList serialises a change list to JSON.
func MarshalList(list []Change) ([]byte, error) {
	return json.Marshal(list)
}

// UnmarshalList deserialises a change list from JSON.
func UnmarshalList(data []byte) ([]Change, error) {
	var list []Change
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
