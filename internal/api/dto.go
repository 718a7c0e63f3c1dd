package api

import (
	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/index"
	"github.com/starford/cellcheck/internal/models"
	"github.com/starford/cellcheck/internal/noteservice"
	"github.com/starford/cellcheck/internal/session"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"chores.md" validate:"required"`
	Content string `json:"content" example:"| - [ ] dishes |" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"| - [x]{0} dishes |" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ToggleRequest sets one checkbox of a stored note by identity.
type ToggleRequest struct {
	ID      *int  `json:"id" example:"3" validate:"required"`
	Checked *bool `json:"checked" example:"true" validate:"required"`
}

// CheckboxListResponse wraps vault-wide checkbox queries.
type CheckboxListResponse struct {
	Checkboxes []models.Checkbox `json:"checkboxes" validate:"required"`
}

// RenderResponse carries the rendered note.
type RenderResponse struct {
	Path       string            `json:"path"`
	HTML       string            `json:"html"`
	Checkboxes []models.Checkbox `json:"checkboxes"`
}

// OpenSessionRequest opens a live session on a note.
type OpenSessionRequest struct {
	Path string `json:"path" example:"chores.md" validate:"required"`
}

// SelectionRequest moves a session's selection.
type SelectionRequest struct {
	From int `json:"from" example:"10"`
	To   int `json:"to" example:"16"`
}

// ViewportRequest replaces a session's visible ranges.
type ViewportRequest struct {
	Ranges []checkbox.Range `json:"ranges"`
}

// EditsRequest carries edits applied in order, each against the text the
// previous one produced.
type EditsRequest struct {
	Edits []checkbox.Edit `json:"edits" validate:"required"`
}

// OverlayToggleRequest toggles a live overlay.
type OverlayToggleRequest struct {
	Checked *bool `json:"checked" example:"true" validate:"required"`
}

// SessionResponse is the snapshot of a live session.
type SessionResponse = session.Snapshot
