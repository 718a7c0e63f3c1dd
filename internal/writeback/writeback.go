// Package writeback turns a checkbox toggle into a single-character edit of
// the document text.
package writeback

import (
	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/mdsyntax"
)

// Locate returns the first annotated checkbox outside code with the given
// identity.
// Identities are unique after an allocation pass; if they are not, the
// earliest occurrence in the document wins.
func Locate(text string, id int) (checkbox.Occurrence, bool) {
	for _, occ := range mdsyntax.Checkboxes(text) {
		if occ.Annotated && occ.ID == id {
			return occ, true
		}
	}
	return checkbox.Occurrence{}, false
}

// Edit returns the edit that sets the checkbox target.ID to target.Checked.
// ok is false when no such checkbox exists or when it already has the
// requested state.
func Edit(text string, target checkbox.State) (checkbox.Edit, bool) {
	occ, found := Locate(text, target.ID)
	if !found || occ.Checked == target.Checked {
		return checkbox.Edit{}, false
	}
	return checkbox.Edit{
		From: occ.Bracket,
		To:   occ.Bracket + 1,
		Text: checkbox.StateChar(target.Checked),
	}, true
}

// Apply rewrites the bracket character of the checkbox target.ID. Every other
// byte of text is preserved. A missing target is not an error: text comes
// back unchanged and changed is false.
func Apply(text string, target checkbox.State) (patched string, changed bool) {
	edit, ok := Edit(text, target)
	if !ok {
		return text, false
	}
	return text[:edit.From] + edit.Text + text[edit.To:], true
}
