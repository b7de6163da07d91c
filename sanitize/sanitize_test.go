package sanitize

import (
	"strings"
	"testing"

	"github.com/absmartly/vedit/change"
)

func TestHTMLStripsScriptAndHandlers(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		banned  []string
		allowed []string
	}{
		{
			name:   "script element",
			in:     `<div>ok<script>alert(1)</script></div>`,
			banned: []string{"<script"}, allowed: []string{"ok"},
		},
		{
			name:   "event handler attribute",
			in:     `<button onclick="steal()">Buy</button>`,
			banned: []string{"onclick"}, allowed: []string{"Buy"},
		},
		{
			name:   "javascript url",
			in:     `<a href="javascript:alert(1)">link</a>`,
			banned: []string{"javascript:"}, allowed: []string{"link"},
		},
		{
			name:   "iframe",
			in:     `<p>text</p><iframe src="https://evil.example"></iframe>`,
			banned: []string{"<iframe"}, allowed: []string{"text"},
		},
		{
			name:    "editor attributes survive",
			in:      `<div class="hero" id="x" style="color: red;" data-block="1">text</div>`,
			allowed: []string{`class="hero"`, `id="x"`, "color: red", `data-block="1"`},
		},
		{
			name:    "contenteditable on blocks",
			in:      `<div contenteditable="true">edit me</div>`,
			allowed: []string{"contenteditable"},
		},
		{
			name:    "image attributes",
			in:      `<img src="https://cdn.example/a.png" alt="a" width="10" height="10">`,
			allowed: []string{"src=", "alt=", "width=", "height="},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HTML(tc.in)
			for _, b := range tc.banned {
				if strings.Contains(got, b) {
					t.Errorf("output %q still contains %q", got, b)
				}
			}
			for _, a := range tc.allowed {
				if !strings.Contains(got, a) {
					t.Errorf("output %q lost %q", got, a)
				}
			}
		})
	}
}

func TestAttributeName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"title", true},
		{"data-test", true},
		{"aria-label", true},
		{"xlink:href", true},
		{"onclick", false},
		{"onmouseover", false},
		{"OnLoad", false},
		{"", false},
		{"1bad", false},
		{"has space", false},
		{strings.Repeat("a", 129), false},
	}
	for _, tc := range cases {
		if got := AttributeName(tc.name); got != tc.ok {
			t.Errorf("AttributeName(%q) = %v, want %v", tc.name, got, tc.ok)
		}
	}
}

func TestChangeSanitizesMarkupPayloads(t *testing.T) {
	c := Change(change.Change{
		Selector:  "#x",
		Type:      change.TypeHTML,
		TextValue: `<b>ok</b><script>alert(1)</script>`,
	})
	if strings.Contains(c.TextValue, "<script") || !strings.Contains(c.TextValue, "<b>ok</b>") {
		t.Fatalf("html payload = %q", c.TextValue)
	}

	c = Change(change.Change{
		Selector: "#x",
		Type:     change.TypeInsert,
		HTML:     `<div onclick="x()">block</div>`,
		Position: change.PosAfter,
	})
	if strings.Contains(c.HTML, "onclick") {
		t.Fatalf("insert payload = %q", c.HTML)
	}
}

func TestChangeFiltersAttributeKeys(t *testing.T) {
	c := Change(change.Change{
		Selector: "#x",
		Type:     change.TypeAttribute,
		Attributes: map[string]string{
			"title":   "fine",
			"onclick": "steal()",
		},
	})
	if _, ok := c.Attributes["onclick"]; ok {
		t.Fatal("handler attribute survived")
	}
	if c.Attributes["title"] != "fine" {
		t.Fatal("safe attribute dropped")
	}
}

func TestChangeLeavesNonMarkupTypesAlone(t *testing.T) {
	in := change.Change{
		Selector:  "#x",
		Type:      change.TypeText,
		TextValue: `<script>not markup, plain text</script>`,
	}
	if got := Change(in); got.TextValue != in.TextValue {
		t.Fatalf("text payload altered: %q", got.TextValue)
	}
}
