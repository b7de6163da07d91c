package state

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/absmartly/vedit/change"
)

func TestChangeListOps(t *testing.T) {
	m := New()

	i := m.AppendChange(change.Change{Selector: "#a", Type: change.TypeText, TextValue: "one"})
	if i != 0 {
		t.Fatalf("index = %d, want 0", i)
	}
	m.AppendChange(change.Change{Selector: "#b", Type: change.TypeStyle})

	k := change.Key{Selector: "#a", Type: change.TypeText}
	if got := m.IndexOf(k); got != 0 {
		t.Fatalf("IndexOf = %d, want 0", got)
	}
	if got := m.IndexOf(change.Key{Selector: "#c", Type: change.TypeText}); got != -1 {
		t.Fatalf("IndexOf missing = %d, want -1", got)
	}

	m.SetChangeAt(0, change.Change{Selector: "#a", Type: change.TypeText, TextValue: "two"})
	if m.Changes()[0].TextValue != "two" {
		t.Fatal("SetChangeAt did not replace")
	}

	m.RemoveChangeAt(0)
	if len(m.Changes()) != 1 || m.Changes()[0].Selector != "#b" {
		t.Fatalf("after remove: %+v", m.Changes())
	}

	m.InsertChangeAt(0, change.Change{Selector: "#a", Type: change.TypeText})
	if m.Changes()[0].Selector != "#a" {
		t.Fatal("InsertChangeAt did not restore position")
	}

	// Out-of-range index clamps to append.
	m.InsertChangeAt(99, change.Change{Selector: "#z", Type: change.TypeText})
	if got := m.Changes()[len(m.Changes())-1].Selector; got != "#z" {
		t.Fatalf("clamped insert landed at %q", got)
	}
}

func TestUndoClearsRedo(t *testing.T) {
	m := New()

	m.PushUndo(Entry{Kind: EntryAdd})
	m.PushUndo(Entry{Kind: EntryAdd})
	e, ok := m.PopUndo()
	if !ok || e.Kind != EntryAdd {
		t.Fatal("pop undo failed")
	}
	m.PushRedo(e)
	if m.RedoLen() != 1 {
		t.Fatalf("redo = %d, want 1", m.RedoLen())
	}

	// A fresh edit invalidates the redo stack.
	m.PushUndo(Entry{Kind: EntryUpdate})
	if m.RedoLen() != 0 {
		t.Fatalf("redo = %d after fresh edit, want 0", m.RedoLen())
	}

	// The redo path restores the undo stack without clearing redo.
	m.PushRedo(Entry{Kind: EntryAdd})
	m.RepushUndo(Entry{Kind: EntryAdd})
	if m.RedoLen() != 1 {
		t.Fatalf("redo = %d after repush, want 1", m.RedoLen())
	}
}

func TestPopEmptyStacks(t *testing.T) {
	m := New()
	if _, ok := m.PopUndo(); ok {
		t.Fatal("PopUndo on empty stack reported ok")
	}
	if _, ok := m.PopRedo(); ok {
		t.Fatal("PopRedo on empty stack reported ok")
	}
}

func TestClearHistory(t *testing.T) {
	m := New()
	m.PushUndo(Entry{})
	m.PushRedo(Entry{})
	m.ClearHistory()
	if m.UndoLen() != 0 || m.RedoLen() != 0 {
		t.Fatal("history not cleared")
	}
}

func TestListeners(t *testing.T) {
	m := New()

	var calls []string
	m.OnStateChange(func() { calls = append(calls, "a") })
	unsub := m.OnStateChange(func() { calls = append(calls, "b") })

	m.SetEditing(true)
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("calls = %v, want registration order", calls)
	}

	unsub()
	calls = nil
	m.SetEditing(false)
	if len(calls) != 1 || calls[0] != "a" {
		t.Fatalf("calls = %v after unsubscribe", calls)
	}
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	m := New()

	var unsub func()
	var fired int
	unsub = m.OnStateChange(func() {
		fired++
		unsub()
	})
	m.OnStateChange(func() { fired++ })

	m.SetResizing(true)
	if fired != 2 {
		t.Fatalf("fired = %d, want both listeners on first notify", fired)
	}

	fired = 0
	m.SetResizing(false)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1 after self-unsubscribe", fired)
	}
}

func TestSelectionAndModes(t *testing.T) {
	m := New()
	n := &html.Node{Type: html.ElementNode, Data: "div"}

	m.SetSelected(n)
	m.SetHovered(n)
	m.SetDragged(n)
	if m.Selected() != n || m.Hovered() != n || m.Dragged() != n {
		t.Fatal("node state not held")
	}

	m.SetRearranging(true)
	m.SetResizing(true)
	if !m.Rearranging() || !m.Resizing() {
		t.Fatal("mode flags not held")
	}
}
