package checkbox

import "testing"

func TestMarkdownParse(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  State
		match bool
	}{
		{"unchecked", "| - [ ]{0} foo |", State{ID: 0}, true},
		{"checked", "| - [x]{7} buy milk |", State{ID: 7, Checked: true}, true},
		{"no space after pipe", "|- [x]{3}|", State{ID: 3, Checked: true}, true},
		{"many spaces", "|    - [ ]{12}\n", State{ID: 12}, true},
		{"end of input", "| - [ ]{4}", State{ID: 4}, true},
		{"leading zeros", "| - [ ]{007} x", State{ID: 7}, true},
		{"unannotated", "| - [ ] foo", State{}, false},
		{"no pipe", "- [ ]{1} foo", State{}, false},
		{"glued text", "| - [ ]{1}foo", State{}, false},
		{"upper X", "| - [X]{1} foo", State{}, false},
		{"unclosed annotation", "| - [ ]{1 foo", State{}, false},
		{"overflow", "| - [ ]{99999999999999999999999} foo", State{}, false},
		{"not at start", "x | - [ ]{1} foo", State{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Markdown.Parse(tt.in)
			if ok != tt.match {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.match)
			}
			if ok && got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderedParse(t *testing.T) {
	got, ok := Rendered.Parse("- [x]{2} water plants")
	if !ok || got != (State{ID: 2, Checked: true}) {
		t.Errorf("Parse = %+v, %v", got, ok)
	}
	if _, ok := Rendered.Parse("| - [x]{2} water plants"); ok {
		t.Error("rendered dialect should not accept a pipe")
	}
	if _, ok := Rendered.Parse("- [x]{2}|"); ok {
		t.Error("rendered dialect should only accept a space after the annotation")
	}
	if _, ok := Rendered.Parse("- [ ]{5}"); !ok {
		t.Error("bare checkbox should parse")
	}
}

func TestMatch_Unannotated(t *testing.T) {
	occ, ok := Markdown.Match("| - [x] foo |")
	if !ok {
		t.Fatal("expected match")
	}
	if occ.Annotated {
		t.Error("should not be annotated")
	}
	if !occ.Checked {
		t.Error("should be checked")
	}
	if occ.Delim != 0 || occ.Start != 2 || occ.End != 7 || occ.Bracket != 5 {
		t.Errorf("offsets = %+v", occ)
	}
	if occ.IDStart != 7 || occ.IDEnd != 7 {
		t.Errorf("insertion point = [%d,%d), want [7,7)", occ.IDStart, occ.IDEnd)
	}
}

func TestMatch_Offsets(t *testing.T) {
	occ, ok := Markdown.Match("|  - [ ]{42} foo")
	if !ok || !occ.Annotated {
		t.Fatalf("Match = %+v, %v", occ, ok)
	}
	if occ.Start != 3 || occ.Bracket != 6 || occ.IDStart != 9 || occ.IDEnd != 11 || occ.End != 12 {
		t.Errorf("offsets = %+v", occ)
	}
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		d    *Dialect
		in   string
		want string
	}{
		{Rendered, "- [x]{2} water plants", "water plants"},
		{Rendered, "- [x]{2}", ""},
		{Rendered, "- [x] water plants", "- [x] water plants"},
		{Rendered, "plain", "plain"},
		{Markdown, "| - [ ]{0} foo |", " foo |"},
	}
	for _, tt := range tests {
		if got := tt.d.StripPrefix(tt.in); got != tt.want {
			t.Errorf("%s.StripPrefix(%q) = %q, want %q", tt.d, tt.in, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := FormatMarker(true) + FormatAnnotation(12); got != "- [x]{12}" {
		t.Errorf("format = %q", got)
	}
	if got := FormatMarker(false); got != MarkerUnchecked {
		t.Errorf("unchecked marker = %q", got)
	}
	if StateChar(true) != "x" || StateChar(false) != " " {
		t.Error("state chars")
	}
	s := State{ID: 3}
	if got := s.Toggled(true); got != (State{ID: 3, Checked: true}) || s.Checked {
		t.Errorf("Toggled = %+v, original = %+v", got, s)
	}
}
