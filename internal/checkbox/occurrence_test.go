package checkbox

import "testing"

func TestScan(t *testing.T) {
	text := "| a | b |\n| --- | --- |\n| - [ ]{0} foo | - [x] bar |\n- [ ]{9} list item\n| - [x]{1}|\n"
	occs := Scan(text)
	if len(occs) != 3 {
		t.Fatalf("Scan found %d, want 3: %+v", len(occs), occs)
	}
	if !occs[0].Annotated || occs[0].ID != 0 || occs[0].Checked {
		t.Errorf("first = %+v", occs[0])
	}
	if occs[1].Annotated || !occs[1].Checked {
		t.Errorf("second = %+v", occs[1])
	}
	if !occs[2].Annotated || occs[2].ID != 1 {
		t.Errorf("third = %+v", occs[2])
	}
	for i := 1; i < len(occs); i++ {
		if occs[i].Start <= occs[i-1].Start {
			t.Errorf("not in document order: %d <= %d", occs[i].Start, occs[i-1].Start)
		}
	}
}

func TestOccurrenceLabel(t *testing.T) {
	text := "| - [ ]{0}  wash car  | sam |\n"
	occs := Scan(text)
	if len(occs) != 1 {
		t.Fatalf("Scan found %d", len(occs))
	}
	if got := occs[0].Label(text); got != "wash car" {
		t.Errorf("Label = %q", got)
	}
}

func TestRangeOverlaps(t *testing.T) {
	cell := Range{From: 10, To: 16}
	tests := []struct {
		sel  Range
		want bool
	}{
		{Range{From: 16, To: 16}, false},
		{Range{From: 15, To: 15}, true},
		{Range{From: 10, To: 10}, false},
		{Range{From: 11, To: 11}, true},
		{Range{From: 0, To: 10}, false},
		{Range{From: 0, To: 11}, true},
		{Range{From: 12, To: 30}, true},
		{Range{From: 16, To: 20}, false},
	}
	for _, tt := range tests {
		if got := tt.sel.Overlaps(cell); got != tt.want {
			t.Errorf("%+v.Overlaps(%+v) = %v, want %v", tt.sel, cell, got, tt.want)
		}
	}
}

func TestRangeIntersects(t *testing.T) {
	r := Range{From: 5, To: 10}
	if !r.Intersects(Range{From: 10, To: 12}) {
		t.Error("shared boundary should intersect")
	}
	if r.Intersects(Range{From: 11, To: 12}) {
		t.Error("disjoint ranges should not intersect")
	}
}

func TestApplyEdits(t *testing.T) {
	text := "abcdef"
	got := ApplyEdits(text, []Edit{
		{From: 4, To: 5, Text: "E"},
		{From: 0, To: 0, Text: ">"},
		{From: 1, To: 3, Text: ""},
	})
	if got != ">adEf" {
		t.Errorf("ApplyEdits = %q", got)
	}
	if got := ApplyEdits(text, nil); got != text {
		t.Errorf("no edits = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(Scan("| - [x]{0} a |\n| - [ ]{1} b |\n| - [x]{2} c |\n| - [x] d |\n"))
	if s.Total != 3 || s.Checked != 2 || s.Unchecked != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.Progress < 66.6 || s.Progress > 66.7 {
		t.Errorf("progress = %v", s.Progress)
	}
	if empty := Summarize(nil); empty.Progress != 0 {
		t.Errorf("empty progress = %v", empty.Progress)
	}
}
