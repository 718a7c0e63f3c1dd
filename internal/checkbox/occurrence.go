package checkbox

import (
	"sort"
	"strings"
)

// Occurrence is one checkbox found in text. All offsets are byte offsets into
// the scanned text.
type Occurrence struct {
	Delim     int  // cell delimiter ("|"), equal to Start on the rendered dialect
	Start     int  // marker "-"
	End       int  // one past the closing "}", or past "]" when unannotated
	Bracket   int  // the state character inside the marker brackets
	IDStart   int  // first digit, or the insertion point when unannotated
	IDEnd     int  // one past the last digit
	ID        int  // valid only when Annotated
	Checked   bool
	Annotated bool
}

// State returns the checkbox state of an annotated occurrence.
func (o Occurrence) State() State {
	return State{ID: o.ID, Checked: o.Checked}
}

// Range returns [Start, End).
func (o Occurrence) Range() Range {
	return Range{From: o.Start, To: o.End}
}

// Label returns the remaining cell text after the checkbox, up to the next
// pipe or the end of the line.
func (o Occurrence) Label(text string) string {
	rest := text[o.End:]
	if i := strings.IndexAny(rest, "|\n"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

// Scan returns every Markdown-dialect checkbox cell in text, annotated or
// not, in document byte order.
func Scan(text string) []Occurrence {
	var out []Occurrence
	for _, loc := range Markdown.all.FindAllStringSubmatchIndex(text, -1) {
		if occ, ok := Markdown.occurrence(text, loc, 0); ok {
			out = append(out, occ)
		}
	}
	return out
}

// Range is a half-open byte range.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Overlaps reports whether r and o overlap as half-open intervals. An empty
// range (a cursor) overlaps o only when it lies strictly inside it.
func (r Range) Overlaps(o Range) bool {
	return !(r.To <= o.From || r.From >= o.To)
}

// Intersects reports whether r touches o, including at a shared boundary.
func (r Range) Intersects(o Range) bool {
	return r.From <= o.To && o.From <= r.To
}

// Edit replaces [From, To) with Text.
type Edit struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Text string `json:"text"`
}

// ApplyEdits applies non-overlapping edits to text in one pass. Offsets refer
// to the original text, so earlier edits never shift later ones.
func ApplyEdits(text string, edits []Edit) string {
	if len(edits) == 0 {
		return text
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, e := range sorted {
		b.WriteString(text[pos:e.From])
		b.WriteString(e.Text)
		pos = e.To
	}
	b.WriteString(text[pos:])
	return b.String()
}

// Stats summarizes a set of checkboxes.
type Stats struct {
	Total     int     `json:"total"`
	Checked   int     `json:"checked"`
	Unchecked int     `json:"unchecked"`
	Progress  float64 `json:"progress"`
}

// Summarize counts annotated occurrences.
func Summarize(occs []Occurrence) Stats {
	var s Stats
	for _, o := range occs {
		if !o.Annotated {
			continue
		}
		s.Total++
		if o.Checked {
			s.Checked++
		}
	}
	s.Unchecked = s.Total - s.Checked
	if s.Total > 0 {
		s.Progress = float64(s.Checked) / float64(s.Total) * 100
	}
	return s
}
