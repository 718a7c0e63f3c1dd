package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/cellcheck/internal/apperr"
	"github.com/starford/cellcheck/internal/session"
)

// OpenSession starts a live editing session on a note. Opening repairs the
// note's identities; the repaired text is saved before the session is
// returned.
func (s *Service) OpenSession(_ context.Context, path string) (*session.Session, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}

	s.sessMu.Lock()
	full := s.maxSessions > 0 && len(s.sessions) >= s.maxSessions
	s.sessMu.Unlock()
	if full {
		return nil, fmt.Errorf("noteservice: %d sessions open: %w", s.maxSessions, apperr.ErrConflict)
	}

	id := uuid.NewString()
	sess, err := session.Open(id, path, string(data),
		session.WithLogger(s.logger.With(slog.String("session", id))),
		session.WithPersist(s.persistSession),
		session.WithNotify(s.sessionChanged),
	)
	if err != nil {
		return nil, err
	}

	s.sessMu.Lock()
	s.sessions[id] = sess
	s.sessMu.Unlock()

	s.logger.Info("noteservice: session opened", slog.String("session", id), slog.String("path", path))
	return sess, nil
}

// Session returns an open session by id.
func (s *Service) Session(id string) (*session.Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("noteservice: session %s: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

// CloseSession ends a session. Its text has already been saved.
func (s *Service) CloseSession(id string) error {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("noteservice: session %s: %w", id, apperr.ErrNotFound)
	}
	delete(s.sessions, id)
	s.logger.Info("noteservice: session closed", slog.String("session", id))
	return nil
}

// NotifyChanged reloads every session on path from storage. It is called
// after writes outside the sessions: API updates, toggles from the rendered
// surface and file changes seen by the watcher.
func (s *Service) NotifyChanged(path string) {
	for _, sess := range s.sessionsFor(path) {
		changed, err := sess.Reload(func() ([]byte, error) { return s.store.Read(path) })
		if err != nil {
			s.logger.Warn("noteservice: session reload failed",
				slog.String("session", sess.ID()), slog.String("error", err.Error()))
			continue
		}
		if changed {
			s.sessionChanged(sess.ID(), path)
		}
	}
}

// NotifyDeleted closes every session on path.
func (s *Service) NotifyDeleted(path string) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	for id, sess := range s.sessions {
		if sess.Path() == path {
			delete(s.sessions, id)
			s.logger.Info("noteservice: session closed, note deleted", slog.String("session", id), slog.String("path", path))
		}
	}
}

func (s *Service) sessionsFor(path string) []*session.Session {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	var out []*session.Session
	for _, sess := range s.sessions {
		if sess.Path() == path {
			out = append(out, sess)
		}
	}
	return out
}

// persistSession saves session text. It runs under the session lock.
func (s *Service) persistSession(path string, content []byte) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	return s.writeNote(path, content)
}

func (s *Service) sessionChanged(id, path string) {
	if s.onSession != nil {
		s.onSession(id, path)
	}
}
