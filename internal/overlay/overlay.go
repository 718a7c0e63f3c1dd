// Package overlay decides where the live editing surface shows checkbox
// controls instead of raw text.
//
// Only annotated cells are overlaid; unannotated ones are left to the
// allocation pass. A cell the selection touches is never overlaid, so the
// user always sees the characters they are editing.
package overlay

import (
	"iter"
	"sort"
	"strings"

	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/mdsyntax"
)

// Host is the editing surface the overlays are built for.
type Host interface {
	Text() string
	Selection() checkbox.Range
	VisibleRanges() []checkbox.Range
	Nodes(r checkbox.Range, match func(mdsyntax.Node) bool) iter.Seq[mdsyntax.Node]
	ReplaceRange(from, to int, text string) error
}

// Descriptor replaces Range with a checkbox control. Descriptors are built
// fresh on every pass and never updated.
type Descriptor struct {
	Range   checkbox.Range
	Bracket int
	State   checkbox.State
	host    Host
}

// Toggle sets the checkbox to checked by replacing the single bracket
// character. The identity annotation and the rest of the cell are not
// touched.
func (d Descriptor) Toggle(checked bool) error {
	return d.host.ReplaceRange(d.Bracket, d.Bracket+1, checkbox.StateChar(checked))
}

// Build computes the overlays for the visible part of h.
func Build(h Host) []Descriptor {
	text := h.Text()
	sel := h.Selection()

	seen := make(map[int]struct{})
	var out []Descriptor
	for _, visible := range h.VisibleRanges() {
		for node := range h.Nodes(visible, mdsyntax.IsTableSep) {
			d, ok := descriptorAt(h, text, node.From)
			if !ok {
				continue
			}
			if _, dup := seen[d.Range.From]; dup {
				continue
			}
			if sel.Overlaps(d.Range) {
				continue
			}
			seen[d.Range.From] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.From < out[j].Range.From })
	return out
}

// descriptorAt matches the first line starting at a separator node.
func descriptorAt(h Host, text string, at int) (Descriptor, bool) {
	if at < 0 || at >= len(text) {
		return Descriptor{}, false
	}
	line := text[at:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	occ, ok := checkbox.Markdown.Match(line)
	if !ok || !occ.Annotated {
		return Descriptor{}, false
	}
	return Descriptor{
		Range:   checkbox.Range{From: at + occ.Start, To: at + occ.End},
		Bracket: at + occ.Bracket,
		State:   occ.State(),
		host:    h,
	}, true
}
