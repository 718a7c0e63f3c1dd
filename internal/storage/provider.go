// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/cellcheck/internal/models"

// Provider is the interface for vault file operations. Paths are relative to
// the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path. A missing file yields
	// an error wrapping apperr.ErrNotFound.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of path. Checkbox write-back goes
	// through here, so a reader never sees a half-toggled file.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
