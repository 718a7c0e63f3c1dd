package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/cellcheck/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// CheckboxQuery filters indexed checkboxes. Zero values match everything.
type CheckboxQuery struct {
	Path    string
	Checked *bool
	// Text matches label words when FTS5 is compiled in, label substrings
	// otherwise.
	Text  string
	Limit int
}

// ftsEntry is what the full-text tables hold for one note.
type ftsEntry struct {
	Path  string
	Title string
	Body  string
	Tags  []string
	Boxes []models.Checkbox
}

func (e ftsEntry) labels() string {
	out := make([]string, 0, len(e.Boxes))
	for _, b := range e.Boxes {
		out = append(out, b.Label)
	}
	return strings.Join(out, "\n")
}

// firstByID drops every checkbox whose identity already appeared earlier.
func firstByID(boxes []models.Checkbox) []models.Checkbox {
	seen := make(map[int]bool, len(boxes))
	out := boxes[:0:0]
	for _, b := range boxes {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}

// UpsertNote inserts or replaces a note, its FTS entry and its checkboxes
// within a transaction. When two checkboxes share an identity the first one
// is kept.
func (db *DB) UpsertNote(n NoteRow, body string, boxes []models.Checkbox) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(n.Tags)

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	boxes = firstByID(boxes)

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, ftsEntry{Path: n.Path, Title: n.Title, Body: body, Tags: n.Tags, Boxes: boxes}); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM checkboxes WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear checkboxes: %w", err)
	}
	if len(boxes) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO checkboxes (path, id, checked, label) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare checkbox insert: %w", err)
		}
		defer stmt.Close()
		for _, b := range boxes {
			if _, err := stmt.Exec(n.Path, b.ID, b.Checked, b.Label); err != nil {
				return fmt.Errorf("index: insert checkbox: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry and its checkboxes.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM checkboxes WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

var sortColumns = map[string]string{
	"":           "updated_at DESC",
	"updated_at": "updated_at DESC",
	"title":      "title ASC",
	"path":       "path ASC",
}

// ListNotes returns a page of notes, optionally restricted to a tag, and the
// total number of matching notes.
func (db *DB) ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order, ok := sortColumns[sort]
	if !ok {
		order = sortColumns[""]
	}

	where := ""
	var args []any
	if tag != "" {
		tagJSON, _ := json.Marshal(tag)
		where = `WHERE tags LIKE ?`
		args = append(args, "%"+string(tagJSON)+"%")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(
		`SELECT path, title, checksum, tags, updated_at FROM notes `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var r NoteRow
		var tagsJSON string
		if err := rows.Scan(&r.Path, &r.Title, &r.Checksum, &tagsJSON, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Checkboxes returns indexed checkboxes ordered by path and identity.
func (db *DB) Checkboxes(q CheckboxQuery) ([]models.Checkbox, error) {
	query := `SELECT path, id, checked, label FROM checkboxes WHERE 1 = 1`
	var args []any
	if q.Path != "" {
		query += ` AND path = ?`
		args = append(args, q.Path)
	}
	if q.Checked != nil {
		query += ` AND checked = ?`
		args = append(args, *q.Checked)
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		clause, arg := labelFilter(text)
		query += ` AND ` + clause
		args = append(args, arg)
	}
	query += ` ORDER BY path, id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: checkboxes: %w", err)
	}
	defer rows.Close()

	var out []models.Checkbox
	for rows.Next() {
		var b models.Checkbox
		if err := rows.Scan(&b.Path, &b.ID, &b.Checked, &b.Label); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
