package selector

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/dom"
)

func parse(t *testing.T, src string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func query(t *testing.T, d *dom.Document, sel string) *html.Node {
	t.Helper()
	n, err := d.Query(sel)
	if err != nil || n == nil {
		t.Fatalf("query %q: n=%v err=%v", sel, n, err)
	}
	return n
}

func generate(t *testing.T, d *dom.Document, n *html.Node, opts Options) string {
	t.Helper()
	sel, err := Generate(d, n, opts)
	if err != nil {
		t.Fatal(err)
	}
	// Generated selectors must round-trip to the same element.
	matches, err := d.QueryAll(sel)
	if err != nil {
		t.Fatalf("generated %q does not parse: %v", sel, err)
	}
	if len(matches) != 1 || matches[0] != n {
		t.Fatalf("generated %q matches %d elements", sel, len(matches))
	}
	return sel
}

func TestGeneratePrefersID(t *testing.T) {
	d := parse(t, `<body><div id="hero"><p>x</p></div></body>`)
	n := query(t, d, "div")
	if sel := generate(t, d, n, DefaultOptions()); sel != "#hero" {
		t.Errorf("got %q, want #hero", sel)
	}
}

func TestGenerateDataAttribute(t *testing.T) {
	d := parse(t, `<body><button data-testid="cta">Go</button><button>Other</button></body>`)
	n := query(t, d, "button")
	want := `button[data-testid="cta"]`
	if sel := generate(t, d, n, DefaultOptions()); sel != want {
		t.Errorf("got %q, want %q", sel, want)
	}
}

func TestGenerateMeaningfulClass(t *testing.T) {
	d := parse(t, `<body><a class="css-1q2w3e cta-link">Buy</a><a class="other">No</a></body>`)
	n := query(t, d, "a")
	if sel := generate(t, d, n, DefaultOptions()); sel != "a.cta-link" {
		t.Errorf("got %q, want a.cta-link", sel)
	}
}

func TestGenerateSkipsGeneratedClassesOnly(t *testing.T) {
	d := parse(t, `<body><div><span class="a1b2c3d4e5f6">x</span></div></body>`)
	n := query(t, d, "span")
	sel := generate(t, d, n, DefaultOptions())
	if sel == ".a1b2c3d4e5f6" || sel == "span.a1b2c3d4e5f6" {
		t.Errorf("used generated class: %q", sel)
	}
}

func TestGenerateStructuralPath(t *testing.T) {
	d := parse(t, `<body><div><p>a</p><p>b</p><p>c</p></div></body>`)
	second := query(t, d, "div > p:nth-child(2)")
	sel := generate(t, d, second, DefaultOptions())
	if sel == "" {
		t.Fatal("empty selector")
	}
}

func TestGenerateAnchorsAtAncestorID(t *testing.T) {
	d := parse(t, `<body>
		<section id="top"><ul><li>a</li><li>b</li></ul></section>
		<section><ul><li>a</li><li>b</li></ul></section>
	</body>`)
	n := query(t, d, "#top li:nth-child(2)")
	sel := generate(t, d, n, DefaultOptions())
	if got, _ := d.Query(sel); got != n {
		t.Fatalf("selector %q lost the element", sel)
	}
}

func TestGenerateNonElement(t *testing.T) {
	d := parse(t, `<body><p>text</p></body>`)
	if _, err := Generate(d, nil, DefaultOptions()); err == nil {
		t.Error("nil node accepted")
	}
	p := query(t, d, "p")
	if _, err := Generate(d, p.FirstChild, DefaultOptions()); err == nil {
		t.Error("text node accepted")
	}
}

func TestLooksGenerated(t *testing.T) {
	tests := []struct {
		cls  string
		want bool
	}{
		{"cta-link", false},
		{"nav", false},
		{"css-1q2w3e", true},
		{"deadbeef99", true},
		{"sc-bdVaJa", true},
		{"item-29381", true},
		{"a-very-long-but-human-readable-name", true},
		{"header", false},
	}
	for _, tt := range tests {
		if got := looksGenerated(tt.cls); got != tt.want {
			t.Errorf("looksGenerated(%q) = %v, want %v", tt.cls, got, tt.want)
		}
	}
}
