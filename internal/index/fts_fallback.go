//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; search falls back to LIKE over notes and checkbox labels.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ ftsEntry) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// labelFilter restricts a checkboxes query to labels containing text.
func labelFilter(text string) (string, any) {
	return `label LIKE ?`, "%" + text + "%"
}

// Search performs a LIKE-based search over titles, bodies, tags and checkbox
// labels.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT path, title, substr(body, 1, 200)
		FROM notes
		WHERE title LIKE ? OR body LIKE ? OR tags LIKE ?
		   OR path IN (SELECT path FROM checkboxes WHERE label LIKE ?)
		ORDER BY path
		LIMIT ?
	`, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
