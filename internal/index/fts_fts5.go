//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
	path UNINDEXED,
	title,
	body,
	tags,
	labels,
	tokenize = 'unicode61 remove_diacritics 2'
);

CREATE VIRTUAL TABLE IF NOT EXISTS checkbox_fts USING fts5(
	path UNINDEXED,
	id UNINDEXED,
	label,
	tokenize = 'unicode61 remove_diacritics 2'
);
`

// initFTS creates the note and checkbox-label tables. A notes_fts left by an
// older schema without the labels column is rebuilt, and every checksum is
// cleared so the next sync re-indexes the vault.
func initFTS(conn *sql.DB) error {
	if _, err := conn.Exec(`SELECT labels FROM notes_fts LIMIT 0`); err != nil && !strings.Contains(err.Error(), "no such table") {
		if _, err := conn.Exec(`DROP TABLE notes_fts`); err != nil {
			return err
		}
		if _, err := conn.Exec(`UPDATE notes SET checksum = ''`); err != nil {
			return err
		}
	}
	_, err := conn.Exec(ftsSchemaSQL)
	return err
}

func ftsUpsert(tx *sql.Tx, e ftsEntry) error {
	ftsDelete(tx, e.Path)
	_, err := tx.Exec(`INSERT INTO notes_fts (path, title, body, tags, labels) VALUES (?, ?, ?, ?, ?)`,
		e.Path, e.Title, e.Body, strings.Join(e.Tags, " "), e.labels())
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	for _, b := range e.Boxes {
		if _, err := tx.Exec(`INSERT INTO checkbox_fts (path, id, label) VALUES (?, ?, ?)`, e.Path, b.ID, b.Label); err != nil {
			return fmt.Errorf("index: upsert checkbox fts: %w", err)
		}
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM checkbox_fts WHERE path = ?`, path)
}

// labelFilter restricts a checkboxes query to labels holding text as a word
// prefix phrase.
func labelFilter(text string) (string, any) {
	return `(path, id) IN (SELECT path, CAST(id AS INTEGER) FROM checkbox_fts WHERE checkbox_fts MATCH ?)`,
		prefixPhrase(text)
}

// prefixPhrase quotes text as one FTS5 phrase whose last token matches as a
// prefix, so "dish" finds "dishes".
func prefixPhrase(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `" *`
}

// Search performs an FTS5 full-text search and returns matching results with
// snippets taken from whichever column matched best.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       title,
		       snippet(notes_fts, -1, '<b>', '</b>', '...', 64)
		FROM notes_fts
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
