package store

import (
	"context"
	"errors"
	"testing"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dbopen"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	return New(dbopen.OpenMemory(t, dbopen.WithSchema(Schema)))
}

func sampleChanges() []change.Change {
	return []change.Change{
		{Selector: "#title", Type: change.TypeText, TextValue: "Hello"},
		{
			Selector: "#hero",
			Type:     change.TypeStyle,
			Mode:     change.ModeMerge,
			Styles:   map[string]string{"color": "red"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "exp", "B", sampleChanges()); err != nil {
		t.Fatal(err)
	}

	list, err := s.Load(ctx, "exp", "B")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("loaded %d changes", len(list))
	}
	if list[0].TextValue != "Hello" || list[1].Styles["color"] != "red" {
		t.Fatalf("round trip mangled the list: %+v", list)
	}
}

func TestLoadUnknownVariant(t *testing.T) {
	s := memStore(t)

	if _, err := s.Load(context.Background(), "exp", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveUpserts(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	s.Save(ctx, "exp", "B", sampleChanges())
	updated := []change.Change{{Selector: "#title", Type: change.TypeText, TextValue: "Newer"}}
	if err := s.Save(ctx, "exp", "B", updated); err != nil {
		t.Fatal(err)
	}

	list, err := s.Load(ctx, "exp", "B")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].TextValue != "Newer" {
		t.Fatalf("list = %+v, want the rewritten row", list)
	}
}

func TestSaveValidates(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "", "B", nil); err == nil {
		t.Fatal("empty experiment accepted")
	}
	if err := s.Save(ctx, "exp", "", nil); err == nil {
		t.Fatal("empty variant accepted")
	}
	bad := []change.Change{{Type: change.TypeText, TextValue: "no selector"}}
	if err := s.Save(ctx, "exp", "B", bad); !errors.Is(err, change.ErrInvalid) {
		t.Fatalf("err = %v, want a validation failure", err)
	}
}

func TestListPerExperiment(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	s.Save(ctx, "exp", "A", sampleChanges())
	s.Save(ctx, "exp", "B", sampleChanges())
	s.Save(ctx, "other", "A", sampleChanges())

	recs, err := s.List(ctx, "exp")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}
	for _, rec := range recs {
		if rec.Experiment != "exp" {
			t.Fatalf("foreign experiment in listing: %+v", rec)
		}
		if rec.UpdatedAt.IsZero() {
			t.Fatal("timestamp not recorded")
		}
	}
}

func TestDelete(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	s.Save(ctx, "exp", "B", sampleChanges())
	if err := s.Delete(ctx, "exp", "B"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "exp", "B"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v after delete", err)
	}

	// Absent rows delete quietly.
	if err := s.Delete(ctx, "exp", "B"); err != nil {
		t.Fatal(err)
	}
}
