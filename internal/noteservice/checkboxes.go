package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/cellcheck/internal/apperr"
	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/enumerate"
	"github.com/starford/cellcheck/internal/index"
	"github.com/starford/cellcheck/internal/mdsyntax"
	"github.com/starford/cellcheck/internal/models"
	"github.com/starford/cellcheck/internal/parser"
	"github.com/starford/cellcheck/internal/render"
	"github.com/starford/cellcheck/internal/writeback"
)

// CheckboxList is the checkbox view of one note.
type CheckboxList struct {
	Path       string            `json:"path"`
	Checkboxes []models.Checkbox `json:"checkboxes"`
	Stats      checkbox.Stats    `json:"stats"`
	// Unnumbered counts cells that still wait for an identity.
	Unnumbered int `json:"unnumbered"`
}

// EnumerateResult reports an allocation pass over a note.
type EnumerateResult struct {
	Path    string `json:"path"`
	Edits   int    `json:"edits"`
	Changed bool   `json:"changed"`
	Content string `json:"content"`
}

// Rendered is the read-only surface of a note with bound checkbox controls.
type Rendered struct {
	Path       string            `json:"path"`
	HTML       string            `json:"html"`
	Checkboxes []models.Checkbox `json:"checkboxes"`
	// Controls toggle through ToggleCheckbox on the same note.
	Controls []render.Control `json:"-"`
}

// OpenNote is the file-open hook: it repairs the note's checkbox identities,
// persists the repaired text and returns the note.
func (s *Service) OpenNote(ctx context.Context, path string) (*NoteDetail, error) {
	res, err := s.EnumerateNote(ctx, path, false)
	if err != nil {
		return nil, err
	}
	return buildNoteDetail(path, []byte(res.Content))
}

// EnumerateNote runs the identity allocator over a stored note. With dryRun
// the note is left untouched and the result reports what would change.
func (s *Service) EnumerateNote(_ context.Context, path string, dryRun bool) (*EnumerateResult, error) {
	s.fileMu.Lock()
	data, err := s.store.Read(path)
	if err != nil {
		s.fileMu.Unlock()
		return nil, err
	}
	text := string(data)
	edits := enumerate.Plan(text)
	out := &EnumerateResult{Path: path, Edits: len(edits), Changed: len(edits) > 0, Content: text}
	if len(edits) == 0 || dryRun {
		s.fileMu.Unlock()
		return out, nil
	}

	out.Content = checkbox.ApplyEdits(text, edits)
	err = s.writeNote(path, []byte(out.Content))
	s.fileMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("noteservice: identities repaired", slog.String("path", path), slog.Int("edits", len(edits)))
	s.NotifyChanged(path)
	return out, nil
}

// Checkboxes parses the current text of a note and lists its checkboxes.
func (s *Service) Checkboxes(_ context.Context, path string) (*CheckboxList, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	unnumbered := 0
	for _, o := range mdsyntax.Checkboxes(string(data)) {
		if !o.Annotated {
			unnumbered++
		}
	}
	return &CheckboxList{
		Path:       path,
		Checkboxes: nonNilSlice(res.Checkboxes),
		Stats:      res.Stats,
		Unnumbered: unnumbered,
	}, nil
}

// ListCheckboxes queries checkboxes across the vault from the index.
func (s *Service) ListCheckboxes(_ context.Context, q index.CheckboxQuery) ([]models.Checkbox, error) {
	boxes, err := s.db.Checkboxes(q)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(boxes), nil
}

// ToggleCheckbox writes target into the note by identity. A missing identity
// fails with apperr.ErrStale; a checkbox already in the target state is left
// alone and reported as is.
func (s *Service) ToggleCheckbox(_ context.Context, path string, target checkbox.State) (models.Checkbox, error) {
	s.fileMu.Lock()
	data, err := s.store.Read(path)
	if err != nil {
		s.fileMu.Unlock()
		return models.Checkbox{}, err
	}
	text := string(data)
	occ, ok := writeback.Locate(text, target.ID)
	if !ok {
		s.fileMu.Unlock()
		return models.Checkbox{}, fmt.Errorf("noteservice: %s checkbox %d: %w", path, target.ID, apperr.ErrStale)
	}
	result := models.Checkbox{Path: path, ID: target.ID, Checked: target.Checked, Label: occ.Label(text)}

	updated, changed := writeback.Apply(text, target)
	if !changed {
		s.fileMu.Unlock()
		return result, nil
	}
	err = s.writeNote(path, []byte(updated))
	s.fileMu.Unlock()
	if err != nil {
		return models.Checkbox{}, err
	}

	s.logger.Debug("noteservice: checkbox toggled",
		slog.String("path", path), slog.Int("id", target.ID), slog.Bool("checked", target.Checked))
	s.NotifyChanged(path)
	return result, nil
}

// RenderNote renders the body of a note to HTML and binds a control to each
// annotated checkbox cell.
func (s *Service) RenderNote(ctx context.Context, path string) (*Rendered, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	root, err := render.Render([]byte(res.Body))
	if err != nil {
		return nil, fmt.Errorf("noteservice: render %s: %w", path, err)
	}
	controls := render.Bind(root, func(st checkbox.State) error {
		_, err := s.ToggleCheckbox(ctx, path, st)
		return err
	})
	html, err := render.HTML(root)
	if err != nil {
		return nil, fmt.Errorf("noteservice: serialize %s: %w", path, err)
	}

	boxes := make([]models.Checkbox, 0, len(controls))
	for _, c := range controls {
		boxes = append(boxes, models.Checkbox{Path: path, ID: c.State.ID, Checked: c.State.Checked, Label: c.Remainder})
	}
	return &Rendered{Path: path, HTML: html, Checkboxes: boxes, Controls: controls}, nil
}
