// Package noteservice coordinates vault storage, the index and live sessions.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/cellcheck/internal/apperr"
	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/checksum"
	"github.com/starford/cellcheck/internal/index"
	"github.com/starford/cellcheck/internal/models"
	"github.com/starford/cellcheck/internal/parser"
	"github.com/starford/cellcheck/internal/session"
	"github.com/starford/cellcheck/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string            `json:"path"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Checksum    string            `json:"checksum"`
	Tags        []string          `json:"tags"`
	Frontmatter map[string]any    `json:"frontmatter,omitempty"`
	Checkboxes  []models.Checkbox `json:"checkboxes"`
	Stats       checkbox.Stats    `json:"stats"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxSessions caps the number of concurrently open live sessions.
// Zero means no limit.
func WithMaxSessions(n int) Option {
	return func(s *Service) { s.maxSessions = n }
}

// WithSessionNotify sets a callback invoked whenever the text of a live
// session changes.
func WithSessionNotify(fn func(id, path string)) Option {
	return func(s *Service) { s.onSession = fn }
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     index.NoteIndex
	logger *slog.Logger

	// fileMu serializes read-modify-write cycles on vault files.
	fileMu sync.Mutex

	sessMu      sync.Mutex
	sessions    map[string]*session.Session
	maxSessions int
	onSession   func(id, path string)
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		logger:   slog.Default(),
		sessions: make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNote reads a note from storage and parses it.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return buildNoteDetail(path, data)
}

// CreateNote writes a new note and indexes it.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return buildNoteDetail(path, content)
}

// UpdateNote writes updated content with optimistic concurrency. Live
// sessions on the note pick up the new text.
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	s.fileMu.Lock()
	existing, err := s.store.Read(path)
	if err != nil {
		s.fileMu.Unlock()
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		s.fileMu.Unlock()
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		s.fileMu.Unlock()
		return nil, err
	}
	err = s.IndexFile(path, content)
	s.fileMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.NotifyChanged(path)
	return buildNoteDetail(path, content)
}

// DeleteNote removes a note from storage and index and closes its sessions.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if err := s.store.Delete(path); err != nil {
		return err
	}
	s.NotifyDeleted(path)
	return s.db.DeleteNote(path)
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, path, data)
}

// writeNote saves data and re-indexes it. Callers hold fileMu.
func (s *Service) writeNote(path string, data []byte) error {
	if err := s.store.Write(path, data); err != nil {
		return err
	}
	if err := s.IndexFile(path, data); err != nil {
		return fmt.Errorf("noteservice: index %s: %w", path, err)
	}
	return nil
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Checkboxes:  nonNilSlice(res.Checkboxes),
		Stats:       res.Stats,
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
