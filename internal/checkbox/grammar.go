// Package checkbox defines the grammar of annotated table-cell checkboxes.
//
// A checkbox is a marker ("- [ ]" or "- [x]") followed by an identity
// annotation ("{7}"). In raw Markdown the marker opens a table cell, so it is
// preceded by a pipe and a run of spaces:
//
//	| - [x]{7} buy milk |
//
// In rendered output the delimiters are gone and the cell text starts with
// the marker itself.
package checkbox

import (
	"regexp"
	"strconv"
)

// Marker literals.
const (
	MarkerUnchecked = "- [ ]"
	MarkerChecked   = "- [x]"
)

// BracketOffset is the position of the state character inside a marker.
const BracketOffset = 3

const (
	markerSrc     = `- \[([ x])\]`
	annotationSrc = `(?:\{([0-9]+)\})?`
	cellStartSrc  = `\| *`
)

// State is the parsed value of one checkbox. It is a value type: toggling
// produces a new State.
type State struct {
	ID      int  `json:"id"`
	Checked bool `json:"checked"`
}

// Toggled returns s with the given checked flag.
func (s State) Toggled(checked bool) State {
	return State{ID: s.ID, Checked: checked}
}

// FormatMarker returns the marker literal for checked.
func FormatMarker(checked bool) string {
	if checked {
		return MarkerChecked
	}
	return MarkerUnchecked
}

// FormatAnnotation returns the identity annotation for id.
func FormatAnnotation(id int) string {
	return "{" + strconv.Itoa(id) + "}"
}

// StateChar returns the bracket character for checked.
func StateChar(checked bool) string {
	if checked {
		return "x"
	}
	return " "
}

// Dialect is one surface syntax of the checkbox grammar. Both dialects share
// the marker and annotation sub-grammar and differ in the leading delimiter
// and in what may follow the annotation.
type Dialect struct {
	name     string
	re       *regexp.Regexp // anchored at the start of the input
	all      *regexp.Regexp // unanchored, for scanning
	boundary func(b byte) bool
	residual bool // StripPrefix also removes one trailing space
}

var (
	// Markdown matches raw document text at a table-cell delimiter.
	Markdown = newDialect("markdown", cellStartSrc, markdownBoundary, false)
	// Rendered matches the plain text of an already rendered table cell.
	Rendered = newDialect("rendered", "", renderedBoundary, true)
)

func newDialect(name, prefix string, boundary func(byte) bool, residual bool) *Dialect {
	src := prefix + markerSrc + annotationSrc
	return &Dialect{
		name:     name,
		re:       regexp.MustCompile(`^` + src),
		all:      regexp.MustCompile(src),
		boundary: boundary,
		residual: residual,
	}
}

func markdownBoundary(b byte) bool {
	return b == ' ' || b == '|' || b == '\n' || b == '\r'
}

func renderedBoundary(b byte) bool {
	return b == ' '
}

// String returns the dialect name.
func (d *Dialect) String() string { return d.name }

// Match matches a checkbox cell at the very start of text. The occurrence may
// be unannotated; callers that need an identity check Annotated.
func (d *Dialect) Match(text string) (Occurrence, bool) {
	loc := d.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return Occurrence{}, false
	}
	return d.occurrence(text, loc, 0)
}

// Parse parses an annotated checkbox at the start of text.
func (d *Dialect) Parse(text string) (State, bool) {
	occ, ok := d.Match(text)
	if !ok || !occ.Annotated {
		return State{}, false
	}
	return occ.State(), true
}

// StripPrefix removes a leading annotated checkbox from text. Text is returned
// unchanged when it does not start with one.
func (d *Dialect) StripPrefix(text string) string {
	occ, ok := d.Match(text)
	if !ok || !occ.Annotated {
		return text
	}
	rest := text[occ.End:]
	if d.residual && len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return rest
}

// occurrence builds an Occurrence from a submatch index slice found at base.
func (d *Dialect) occurrence(text string, loc []int, base int) (Occurrence, bool) {
	end := base + loc[1]
	if end < len(text) && !d.boundary(text[end]) {
		return Occurrence{}, false
	}
	// The marker is the last five bytes before the optional annotation.
	markerEnd := base + loc[3] + 1
	occ := Occurrence{
		Delim:   base + loc[0],
		Start:   markerEnd - len(MarkerChecked),
		End:     end,
		Bracket: base + loc[2],
		Checked: text[base+loc[2]] == 'x',
		IDStart: markerEnd,
		IDEnd:   markerEnd,
	}
	if loc[4] >= 0 {
		id, err := strconv.Atoi(text[base+loc[4] : base+loc[5]])
		if err != nil {
			return Occurrence{}, false
		}
		occ.Annotated = true
		occ.ID = id
		occ.IDStart = base + loc[4]
		occ.IDEnd = base + loc[5]
	}
	return occ, true
}
