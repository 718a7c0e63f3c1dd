package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/cellcheck/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventRepaired = "repaired"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	opts   SyncOptions
	cb     EventCallback
}

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled.
//
// Every write to a note is an external edit from the point of view of the
// checkbox engine: with opts.Repair set the file's identities are repaired
// and written back. That write comes back as another event, which finds
// nothing to repair and only re-indexes.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass against the disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, opts SyncOptions, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, vaultRoot); err != nil {
		return err
	}

	w := &watcher{db: db, store: store, root: vaultRoot, logger: logger, opts: opts, cb: cb}
	logger.Info("watcher: started", slog.String("root", vaultRoot), slog.Bool("repair", opts.Repair))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					w.indexDir(ev.Name)
					continue
				}
			}
			if w.handle(ev) {
				if reconcileTimer == nil {
					reconcileTimer = time.NewTimer(reconcileDelay)
					reconcileCh = reconcileTimer.C
				} else {
					reconcileTimer.Reset(reconcileDelay)
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle processes one file event and reports whether a reconciliation pass
// should be scheduled.
func (w *watcher) handle(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, ".md") {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := EventUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = EventCreated
		}
		w.ingest(rel, kind)

	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports Rename on the old path only; the new path arrives
		// as a Create if it stays inside a watched directory.
		w.remove(rel)
		return true
	}
	return false
}

func (w *watcher) ingest(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	repaired, err := ingestFile(w.db, w.store, rel, data, w.opts)
	if err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if repaired {
		w.logger.Info("watcher: identities repaired", slog.String("path", rel))
		w.emit(EventRepaired, rel)
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
}

func (w *watcher) remove(rel string) {
	if err := w.db.DeleteNote(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit(EventDeleted, rel)
}

// reconcile removes index entries without a file and indexes files whose
// checksum differs from the index.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] != cs {
			w.ingest(p, EventCreated)
		}
	}
}

// indexDir indexes the notes already present in a newly created directory.
func (w *watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, path); relErr == nil {
			w.ingest(rel, EventCreated)
		}
		return nil
	})
}

func (w *watcher) emit(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
