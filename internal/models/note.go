// Package models defines the domain types shared by storage, index and services.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checkbox is one annotated table-cell checkbox of a note.
type Checkbox struct {
	Path    string `json:"path"`
	ID      int    `json:"id"`
	Checked bool   `json:"checked"`
	Label   string `json:"label"`
}
