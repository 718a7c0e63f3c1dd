package writeback

import (
	"testing"

	"github.com/starford/cellcheck/internal/checkbox"
)

const doc = "| task | who |\n| --- | --- |\n| - [ ]{0} dishes | sam |\n| - [x]{1} laundry | kim |\n"

func TestApply(t *testing.T) {
	got, changed := Apply(doc, checkbox.State{ID: 0, Checked: true})
	if !changed {
		t.Fatal("expected a change")
	}
	want := "| task | who |\n| --- | --- |\n| - [x]{0} dishes | sam |\n| - [x]{1} laundry | kim |\n"
	if got != want {
		t.Errorf("Apply:\n got %q\nwant %q", got, want)
	}

	got, changed = Apply(doc, checkbox.State{ID: 1, Checked: false})
	if !changed || got != "| task | who |\n| --- | --- |\n| - [ ]{0} dishes | sam |\n| - [ ]{1} laundry | kim |\n" {
		t.Errorf("uncheck = %q, %v", got, changed)
	}
}

func TestApply_SingleByte(t *testing.T) {
	got, _ := Apply(doc, checkbox.State{ID: 1, Checked: false})
	if len(got) != len(doc) {
		t.Fatalf("length changed: %d -> %d", len(doc), len(got))
	}
	diff := 0
	for i := range doc {
		if doc[i] != got[i] {
			diff++
		}
	}
	if diff != 1 {
		t.Errorf("%d bytes differ, want 1", diff)
	}
}

func TestApply_RoundTrip(t *testing.T) {
	on, _ := Apply(doc, checkbox.State{ID: 0, Checked: true})
	off, _ := Apply(on, checkbox.State{ID: 0, Checked: false})
	if off != doc {
		t.Errorf("round trip = %q", off)
	}
}

func TestApply_NoChange(t *testing.T) {
	if got, changed := Apply(doc, checkbox.State{ID: 1, Checked: true}); changed || got != doc {
		t.Errorf("same state: changed = %v", changed)
	}
	if got, changed := Apply(doc, checkbox.State{ID: 5, Checked: true}); changed || got != doc {
		t.Errorf("missing target: changed = %v", changed)
	}
}

func TestLocate_FirstWins(t *testing.T) {
	text := "| - [ ]{3} a |\n| - [x]{3} b |\n"
	occ, ok := Locate(text, 3)
	if !ok {
		t.Fatal("not found")
	}
	if occ.Label(text) != "a" {
		t.Errorf("located %q, want the first occurrence", occ.Label(text))
	}
	if _, ok := Locate("| - [ ] unnumbered |", 0); ok {
		t.Error("unannotated cells have no identity")
	}
}

func TestEdit(t *testing.T) {
	e, ok := Edit(doc, checkbox.State{ID: 0, Checked: true})
	if !ok {
		t.Fatal("expected an edit")
	}
	if e.To-e.From != 1 || e.Text != "x" || doc[e.From] != ' ' {
		t.Errorf("edit = %+v", e)
	}
}

func TestApply_OnlyTargetCell(t *testing.T) {
	text := "| a |\n| --- |\n| - [ ]{2} bar |\n| - [ ]{3} baz |\n"
	got, changed := Apply(text, checkbox.State{ID: 3, Checked: true})
	if !changed || got != "| a |\n| --- |\n| - [ ]{2} bar |\n| - [x]{3} baz |\n" {
		t.Errorf("Apply = %q, %v", got, changed)
	}
}

func TestLocate_SkipsCode(t *testing.T) {
	text := "```\n| - [ ]{0} example |\n```\n\n| a |\n| --- |\n| - [ ]{0} real |\n"
	got, changed := Apply(text, checkbox.State{ID: 0, Checked: true})
	want := "```\n| - [ ]{0} example |\n```\n\n| a |\n| --- |\n| - [x]{0} real |\n"
	if !changed || got != want {
		t.Errorf("Apply = %q, %v", got, changed)
	}
}
