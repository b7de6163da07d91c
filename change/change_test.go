package change

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTextChangeMarshal(t *testing.T) {
	c := Change{Selector: "#title", Type: TypeText, TextValue: "Hello"}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"selector":"#title","type":"text","enabled":true,"value":"Hello"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestChangeRoundtrip(t *testing.T) {
	cases := []Change{
		{Selector: "#title", Type: TypeText, TextValue: "Hello"},
		{Selector: ".cta", Type: TypeStyle, Mode: ModeMerge, Important: true,
			Styles: map[string]string{"color": "red", "display": "none"}},
		{Selector: ".cta", Type: TypeStyleRules,
			StyleRules: map[string]map[string]string{"hover": {"color": "blue"}}},
		{Selector: "nav", Type: TypeClass, Mode: ModeMerge,
			Class: ClassValue{Add: []string{"active"}, Remove: []string{"hidden"}}},
		{Selector: "img", Type: TypeAttribute,
			Attributes: map[string]string{"alt": "logo", "loading": "lazy"}},
		{Selector: "#hero", Type: TypeHTML, TextValue: "<p>new</p>"},
		{Selector: "body", Type: TypeJavaScript, TextValue: "console.log(1)"},
		{Selector: "#card", Type: TypeMove, TargetSelector: "#slot",
			Position: PosAfter, OriginalTargetSelector: "#origin", OriginalPosition: PosBefore},
		{Selector: "#ad", Type: TypeRemove, Enabled: Bool(false)},
		{Selector: "#anchor", Type: TypeInsert, HTML: "<div>x</div>", Position: PosBefore,
			WaitForElement: true, ObserverRoot: "main"},
		{Selector: "#anchor2", Type: TypeCreate, HTML: "<span>y</span>", Position: PosLastChild},
	}

	for _, c := range cases {
		data, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("%s/%s: marshal: %v", c.Selector, c.Type, err)
		}
		var got Change
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("%s/%s: unmarshal: %v", c.Selector, c.Type, err)
		}
		again, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("%s/%s: remarshal: %v", c.Selector, c.Type, err)
		}
		if string(data) != string(again) {
			t.Errorf("%s/%s: not stable:\n first %s\nsecond %s", c.Selector, c.Type, data, again)
		}
		if got.IsEnabled() != c.IsEnabled() {
			t.Errorf("%s/%s: enabled flipped", c.Selector, c.Type)
		}
	}
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	var c Change
	err := json.Unmarshal([]byte(`{"selector":"#x","type":"teleport"}`), &c)
	if err == nil || !strings.Contains(err.Error(), "unknown type") {
		t.Fatalf("want unknown type error, got %v", err)
	}
}

func TestSquashStyleMerge(t *testing.T) {
	list := []Change{
		{Selector: ".cta", Type: TypeStyle, Mode: ModeMerge,
			Styles: map[string]string{"color": "red"}},
		{Selector: ".cta", Type: TypeStyle, Mode: ModeMerge,
			Styles: map[string]string{"color": "blue", "fontWeight": "bold"}},
	}
	out := Squash(list)
	if len(out) != 1 {
		t.Fatalf("got %d changes, want 1", len(out))
	}
	s := out[0].Styles
	if s["color"] != "blue" || s["fontWeight"] != "bold" {
		t.Errorf("squashed styles = %v", s)
	}
}

func TestSquashStyleReplace(t *testing.T) {
	list := []Change{
		{Selector: ".cta", Type: TypeStyle, Mode: ModeMerge,
			Styles: map[string]string{"color": "red", "padding": "4px"}},
		{Selector: ".cta", Type: TypeStyle, Mode: ModeReplace,
			Styles: map[string]string{"color": "blue"}},
	}
	out := Squash(list)
	if len(out) != 1 {
		t.Fatalf("got %d changes, want 1", len(out))
	}
	if _, ok := out[0].Styles["padding"]; ok {
		t.Error("replace mode kept earlier padding")
	}
}

func TestSquashMovePreservesOriginal(t *testing.T) {
	list := []Change{
		{Selector: "#card", Type: TypeMove, TargetSelector: "#sib1", Position: PosAfter,
			OriginalTargetSelector: "#sib0", OriginalPosition: PosBefore},
		{Selector: "#card", Type: TypeMove, TargetSelector: "#sib2", Position: PosAfter,
			OriginalTargetSelector: "#sib1", OriginalPosition: PosAfter},
	}
	out := Squash(list)
	if len(out) != 1 {
		t.Fatalf("got %d changes, want 1", len(out))
	}
	m := out[0]
	if m.TargetSelector != "#sib2" || m.Position != PosAfter {
		t.Errorf("final destination lost: %+v", m)
	}
	if m.OriginalTargetSelector != "#sib0" || m.OriginalPosition != PosBefore {
		t.Errorf("original placement lost: %+v", m)
	}
}

func TestSquashClassMerge(t *testing.T) {
	list := []Change{
		{Selector: "nav", Type: TypeClass, Mode: ModeMerge,
			Class: ClassValue{Add: []string{"a"}, Remove: []string{"b"}}},
		{Selector: "nav", Type: TypeClass, Mode: ModeMerge,
			Class: ClassValue{Add: []string{"b", "c"}, Remove: []string{"a"}}},
	}
	out := Squash(list)
	if len(out) != 1 {
		t.Fatalf("got %d changes, want 1", len(out))
	}
	cls := out[0].Class
	if !containsString(cls.Add, "b") || !containsString(cls.Add, "c") {
		t.Errorf("add = %v", cls.Add)
	}
	if containsString(cls.Add, "a") || !containsString(cls.Remove, "a") {
		t.Errorf("later removal of a not applied: %+v", cls)
	}
	if containsString(cls.Remove, "b") {
		t.Errorf("later add of b did not cancel removal: %+v", cls)
	}
}

func TestSquashDistinctKeysUntouched(t *testing.T) {
	list := []Change{
		{Selector: "#a", Type: TypeText, TextValue: "one"},
		{Selector: "#a", Type: TypeStyle, Styles: map[string]string{"color": "red"}},
		{Selector: "#b", Type: TypeText, TextValue: "two"},
	}
	out := Squash(list)
	if len(out) != 3 {
		t.Fatalf("got %d changes, want 3", len(out))
	}
	if out[0].TextValue != "one" || out[2].TextValue != "two" {
		t.Errorf("order not preserved: %+v", out)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Change
		wantErr bool
	}{
		{"text ok", Change{Selector: "#x", Type: TypeText}, false},
		{"empty selector", Change{Type: TypeText}, true},
		{"unknown type", Change{Selector: "#x", Type: "warp"}, true},
		{"bad mode", Change{Selector: "#x", Type: TypeStyle, Mode: "fuse"}, true},
		{"move missing target", Change{Selector: "#x", Type: TypeMove, Position: PosAfter}, true},
		{"move ok", Change{Selector: "#x", Type: TypeMove, TargetSelector: "#y", Position: PosBefore}, false},
		{"insert missing html", Change{Selector: "#x", Type: TypeInsert, Position: PosAfter}, true},
		{"insert bad position", Change{Selector: "#x", Type: TypeInsert, HTML: "<i></i>", Position: "inside"}, true},
	}
	for _, tt := range tests {
		err := Validate(tt.c)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestFilterEnabled(t *testing.T) {
	list := []Change{
		{Selector: "#a", Type: TypeText},
		{Selector: "#b", Type: TypeText, Enabled: Bool(false)},
		{Selector: "#c", Type: TypeText, Enabled: Bool(true)},
	}
	out := FilterEnabled(list)
	if len(out) != 2 {
		t.Fatalf("got %d, want 2", len(out))
	}
	if out[0].Selector != "#a" || out[1].Selector != "#c" {
		t.Errorf("filtered = %+v", out)
	}
}
