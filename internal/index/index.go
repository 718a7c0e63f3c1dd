package index

import "github.com/starford/cellcheck/internal/models"

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, boxes []models.Checkbox) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Checkboxes(q CheckboxQuery) ([]models.Checkbox, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
