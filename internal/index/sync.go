package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/cellcheck/internal/checksum"
	"github.com/starford/cellcheck/internal/enumerate"
	"github.com/starford/cellcheck/internal/parser"
	"github.com/starford/cellcheck/internal/storage"
)

// SyncOptions controls how vault files are brought into the index.
type SyncOptions struct {
	// Repair runs the identity allocation pass over each new or changed file
	// and writes the repaired text back before indexing it.
	Repair bool
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files are repaired (when enabled), parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger, opts SyncOptions) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := ingestFile(db, store, m.Path, data, opts); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// Repair runs the identity allocation pass over data and, when it changes
// anything, writes the result back to path. It returns the text to index.
func Repair(store storage.Provider, path string, data []byte) ([]byte, bool, error) {
	text := string(data)
	fixed := enumerate.Allocate(text)
	if fixed == text {
		return data, false, nil
	}
	out := []byte(fixed)
	if err := store.Write(path, out); err != nil {
		return nil, false, fmt.Errorf("index: write repaired %s: %w", path, err)
	}
	return out, true, nil
}

// IndexFile parses data and upserts it into the DB.
func IndexFile(db NoteIndex, path string, data []byte) error {
	res, err := parser.Parse(path, data)
	if err != nil {
		return err
	}
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	return db.UpsertNote(NoteRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      tags,
		UpdatedAt: time.Now(),
	}, res.Body, res.Checkboxes)
}

// ingestFile optionally repairs and then indexes one file. It reports whether
// the file was rewritten.
func ingestFile(db *DB, store storage.Provider, path string, data []byte, opts SyncOptions) (bool, error) {
	repaired := false
	if opts.Repair {
		var err error
		data, repaired, err = Repair(store, path, data)
		if err != nil {
			return false, err
		}
	}
	return repaired, IndexFile(db, path, data)
}
