// Package enumerate assigns sequential identities to table-cell checkboxes.
//
// Identities are numbered from 0 in document byte order. The pass repairs
// what edits broke: cells without an annotation get one, and cells whose
// annotation no longer matches their position are renumbered. Cells written
// inside code blocks or code spans are not checkboxes and keep their text. Running the
// pass on its own output changes nothing, which lets it run on every
// document change, including the change it just made.
package enumerate

import (
	"strconv"

	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/mdsyntax"
)

// Plan returns the edits that bring every checkbox identity in text in line
// with its position. The edits refer to text as given and do not overlap.
func Plan(text string) []checkbox.Edit {
	var edits []checkbox.Edit
	next := 0
	for _, occ := range mdsyntax.Checkboxes(text) {
		want := strconv.Itoa(next)
		next++

		if !occ.Annotated {
			edits = append(edits, checkbox.Edit{
				From: occ.IDStart,
				To:   occ.IDStart,
				Text: "{" + want + "}",
			})
			continue
		}
		if text[occ.IDStart:occ.IDEnd] == want {
			continue
		}
		edits = append(edits, checkbox.Edit{
			From: occ.IDStart,
			To:   occ.IDEnd,
			Text: want,
		})
	}
	return edits
}

// Allocate returns text with every checkbox identity repaired.
func Allocate(text string) string {
	return checkbox.ApplyEdits(text, Plan(text))
}
