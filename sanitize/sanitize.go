// Package sanitize scrubs markup arriving from the host boundary before
// it reaches the mirror. Change lists come from extension storage and
// operator input; html, insert and create payloads are filtered so a
// stored change can never smuggle script into the page it is replayed on.
package sanitize

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/absmartly/vedit/change"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

var attrName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_:.-]*$`)

// markupPolicy is UGC plus the attributes the editor itself authors:
// classes, inline styles, data hooks and contenteditable regions.
func markupPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class", "id", "style").Globally()
		p.AllowAttrs("contenteditable").OnElements("div", "span", "p")
		p.AllowDataAttributes()
		p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
		policy = p
	})
	return policy
}

// HTML returns markup with scripts, event handlers and unsafe URLs
// removed.
func HTML(markup string) string {
	return markupPolicy().Sanitize(markup)
}

// AttributeName reports whether name is safe to set from a change list.
// Event handler attributes are rejected wholesale.
func AttributeName(name string) bool {
	if name == "" || len(name) > 128 || !attrName.MatchString(name) {
		return false
	}
	if len(name) > 2 && (name[:2] == "on" || name[:2] == "On") {
		return false
	}
	return true
}

// Change returns c with markup payloads sanitized. Non-markup change
// types pass through untouched.
func Change(c change.Change) change.Change {
	switch c.Type {
	case change.TypeHTML:
		c.TextValue = HTML(c.TextValue)
	case change.TypeInsert, change.TypeCreate:
		c.HTML = HTML(c.HTML)
	case change.TypeAttribute:
		if len(c.Attributes) > 0 {
			clean := make(map[string]string, len(c.Attributes))
			for k, v := range c.Attributes {
				if AttributeName(k) {
					clean[k] = v
				}
			}
			c.Attributes = clean
		}
	}
	return c
}

// Changes sanitizes a whole list.
func Changes(list []change.Change) []change.Change {
	out := make([]change.Change, len(list))
	for i, c := range list {
		out[i] = Change(c)
	}
	return out
}
