package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/cellcheck/internal/apperr"
	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/engine"
	"github.com/starford/cellcheck/internal/writeback"
)

// PersistFunc writes the session text back to the note it was opened from.
type PersistFunc func(path string, content []byte) error

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithPersist sets the function that saves text after each change.
func WithPersist(fn PersistFunc) Option {
	return func(s *Session) { s.persist = fn }
}

// WithNotify sets a callback invoked after each externally visible change.
func WithNotify(fn func(id, path string)) Option {
	return func(s *Session) { s.notify = fn }
}

// Session is a live editing session of one note. All methods are safe for
// concurrent use; calls are serialized.
type Session struct {
	mu        sync.Mutex
	id        string
	path      string
	doc       *Document
	engine    *engine.Engine
	persisted string

	logger  *slog.Logger
	persist PersistFunc
	notify  func(id, path string)
}

// Overlay describes one live checkbox control.
type Overlay struct {
	ID      int            `json:"id"`
	Checked bool           `json:"checked"`
	Range   checkbox.Range `json:"range"`
}

// Snapshot is a consistent view of a session.
type Snapshot struct {
	ID        string           `json:"id"`
	Path      string           `json:"path"`
	Content   string           `json:"content"`
	Selection checkbox.Range   `json:"selection"`
	Visible   []checkbox.Range `json:"visible"`
	Overlays  []Overlay        `json:"overlays"`
}

// Open starts a session over content. Opening raises the file-opened
// notification, which repairs checkbox identities before the first overlay
// pass; a repaired text is persisted right away.
func Open(id, path string, content string, opts ...Option) (*Session, error) {
	s := &Session{
		id:        id,
		path:      path,
		doc:       NewDocument(content),
		persisted: content,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = engine.Attach(s.doc, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Open()
	if err := s.commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Path returns the vault path of the note.
func (s *Session) Path() string { return s.path }

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Replace applies one range replacement typed by the user.
func (s *Session) Replace(e checkbox.Edit) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.ReplaceRange(e.From, e.To, e.Text); err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), s.commit()
}

// Select moves the selection.
func (s *Session) Select(r checkbox.Range) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.SetSelection(r); err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), nil
}

// Scroll replaces the visible ranges.
func (s *Session) Scroll(ranges []checkbox.Range) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.SetViewport(ranges); err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), nil
}

// Toggle flips the overlay of checkbox id. It fails with apperr.ErrStale when
// the checkbox no longer exists and with apperr.ErrSuppressed when it exists
// but has no overlay, because it is being edited or is out of view.
func (s *Session) Toggle(id int, checked bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.engine.Overlay(id)
	if !ok {
		if _, found := writeback.Locate(s.doc.Text(), id); !found {
			return Snapshot{}, fmt.Errorf("session: checkbox %d: %w", id, apperr.ErrStale)
		}
		return Snapshot{}, fmt.Errorf("session: checkbox %d: %w", id, apperr.ErrSuppressed)
	}
	if err := d.Toggle(checked); err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), s.commit()
}

// Reload replaces the session text with the note content returned by load,
// as after an edit made outside the session. load runs under the session
// lock, so it never observes a save of this session that is still in flight.
// It reports whether the text changed.
func (s *Session) Reload(load func() ([]byte, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := load()
	if err != nil {
		return false, fmt.Errorf("session: reload %s: %w", s.path, err)
	}
	content := string(data)
	if content == s.doc.Text() {
		s.persisted = content
		return false, nil
	}
	s.persisted = content
	s.doc.Reload(content)
	return true, s.commit()
}

// commit persists the text if it differs from what was last saved.
func (s *Session) commit() error {
	text := s.doc.Text()
	if text == s.persisted {
		return nil
	}
	if s.persist != nil {
		if err := s.persist(s.path, []byte(text)); err != nil {
			return fmt.Errorf("session: persist %s: %w", s.path, err)
		}
	}
	s.persisted = text
	s.logger.Debug("session: persisted", slog.String("session", s.id), slog.String("path", s.path))
	if s.notify != nil {
		s.notify(s.id, s.path)
	}
	return nil
}

func (s *Session) snapshot() Snapshot {
	descs := s.engine.Overlays()
	overlays := make([]Overlay, 0, len(descs))
	for _, d := range descs {
		overlays = append(overlays, Overlay{ID: d.State.ID, Checked: d.State.Checked, Range: d.Range})
	}
	return Snapshot{
		ID:        s.id,
		Path:      s.path,
		Content:   s.doc.Text(),
		Selection: s.doc.Selection(),
		Visible:   s.doc.VisibleRanges(),
		Overlays:  overlays,
	}
}
