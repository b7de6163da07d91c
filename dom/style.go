package dom

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ParseStyle decodes an inline style attribute into a property map. Property
// names are normalised to kebab-case; empty declarations are skipped.
func ParseStyle(raw string) map[string]string {
	props := make(map[string]string)
	for _, decl := range strings.Split(raw, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = CSSName(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if key != "" && val != "" {
			props[key] = val
		}
	}
	return props
}

// SerializeStyle encodes a property map as an inline style attribute with
// sorted keys, so the mirror renders deterministically.
func SerializeStyle(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(props[k])
	}
	return b.String()
}

// SetInlineStyle applies style properties to an element. Merge composes with
// the existing inline style; replace discards it. Property names may arrive
// camelCased from change payloads; they are stored kebab-cased. Important
// appends !important to every written declaration.
func SetInlineStyle(n *html.Node, props map[string]string, merge, important bool) {
	var current map[string]string
	if merge {
		raw, _ := Attr(n, "style")
		current = ParseStyle(raw)
	} else {
		current = make(map[string]string)
	}

	for k, v := range props {
		key := CSSName(k)
		if v == "" {
			delete(current, key)
			continue
		}
		if important && !strings.Contains(v, "!important") {
			v += " !important"
		}
		current[key] = v
	}

	if len(current) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", SerializeStyle(current))
}

// CSSName converts a camelCased property name to kebab-case. Names already
// kebab-cased pass through unchanged.
func CSSName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
