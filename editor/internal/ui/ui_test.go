package ui

import "testing"

func TestBannerShowHide(t *testing.T) {
	b := &Banner{}
	b.Show("Variant B")

	if !b.Visible() || b.Variant != "Variant B" {
		t.Fatalf("banner = %+v", b)
	}

	b.Hide()
	if b.Visible() {
		t.Fatal("banner still visible")
	}
}

func TestBannerClicks(t *testing.T) {
	var got []string
	b := &Banner{
		OnSave: func() { got = append(got, "save") },
		OnExit: func() { got = append(got, "exit") },
		OnUndo: func() { got = append(got, "undo") },
		OnRedo: func() { got = append(got, "redo") },
	}

	b.ClickSave()
	b.ClickExit()
	b.ClickUndo()
	b.ClickRedo()

	want := []string{"save", "exit", "undo", "redo"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("clicks = %v, want %v", got, want)
		}
	}
}

func TestBannerUnwiredClicks(t *testing.T) {
	b := &Banner{}
	b.ClickSave()
	b.ClickExit()
	b.ClickUndo()
	b.ClickRedo()
}
