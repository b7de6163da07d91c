// Package change defines the structured DOM change types exchanged between
// the visual editor engine and its host. These are the public API contract:
// the extension sidebar, the preview applier, and the persistence store all
// import this package to produce and consume change lists.
//
// A Change is the atomic, serializable unit of authored mutation. Change
// lists round-trip exactly through JSON: no functions, no node references.
package change

// Type discriminates the change payload.
type Type string

const (
	TypeText       Type = "text"       // replace element text content
	TypeStyle      Type = "style"      // inline style properties
	TypeStyleRules Type = "styleRules" // per-pseudo-state style maps
	TypeClass      Type = "class"      // class add/remove lists
	TypeAttribute  Type = "attribute"  // attribute key/value map
	TypeHTML       Type = "html"       // replace inner HTML
	TypeJavaScript Type = "javascript" // script evaluated on apply
	TypeMove       Type = "move"       // reparent relative to a target
	TypeRemove     Type = "remove"     // detach the element
	TypeInsert     Type = "insert"     // insert markup relative to a reference
	TypeCreate     Type = "create"     // element created by the editor
)

// Mode controls how style/class/attribute changes compose with the element's
// existing value. Merge composes, replace overwrites.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeMerge   Mode = "merge"
)

// Position is a placement relative to a reference element.
type Position string

const (
	PosBefore     Position = "before"
	PosAfter      Position = "after"
	PosFirstChild Position = "firstChild"
	PosLastChild  Position = "lastChild"
)

// ClassValue is the payload of a class change.
type ClassValue struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// Change is a single DOM change. Exactly one payload field group is
// meaningful, selected by Type; the JSON codec in json.go maps the
// polymorphic "value" key onto the typed fields.
//
// Selector identifies the element the change applies to. For move and
// insert it is the source or reference element, not necessarily the
// mutated node.
type Change struct {
	Selector string `json:"selector"`
	Type     Type   `json:"type"`

	// Enabled defaults to true when absent. Disabled changes are retained
	// in the list but never applied.
	Enabled *bool `json:"enabled,omitempty"`

	// Mode applies to style, styleRules, class and attribute changes.
	Mode Mode `json:"mode,omitempty"`

	// Typed payloads. The wire form is a single "value" key except for
	// move (targetSelector/position) and insert/create (html/position).
	TextValue  string                       `json:"-"`
	Styles     map[string]string            `json:"-"`
	StyleRules map[string]map[string]string `json:"-"`
	Class      ClassValue                   `json:"-"`
	Attributes map[string]string            `json:"-"`

	TargetSelector string   `json:"targetSelector,omitempty"`
	Position       Position `json:"position,omitempty"`

	// Original placement before the first move of this element. Preserved
	// across squash so a chain of drags stays undoable back to the true
	// original position.
	OriginalTargetSelector string   `json:"originalTargetSelector,omitempty"`
	OriginalPosition       Position `json:"originalPosition,omitempty"`

	// HTML carries the markup payload of insert and create changes.
	HTML string `json:"html,omitempty"`

	// WaitForElement defers application until the selector matches,
	// scoped to ObserverRoot when set.
	WaitForElement bool   `json:"waitForElement,omitempty"`
	ObserverRoot   string `json:"observerRoot,omitempty"`

	// Style-only flags.
	Important    bool `json:"important,omitempty"`
	PersistStyle bool `json:"persistStyle,omitempty"`
}

// IsEnabled reports whether the change should be applied.
func (c *Change) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Key is the identity under which changes are squashed: one change per
// (selector, type) pair in any authoritative list.
type Key struct {
	Selector string
	Type     Type
}

// KeyOf returns the squash identity of a change.
func KeyOf(c Change) Key {
	return Key{Selector: c.Selector, Type: c.Type}
}

// FilterEnabled returns only the changes whose Enabled flag is not false.
func FilterEnabled(list []Change) []Change {
	out := make([]Change, 0, len(list))
	for _, c := range list {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

// Bool is a convenience for building Enabled pointers in literals.
func Bool(v bool) *bool { return &v }
