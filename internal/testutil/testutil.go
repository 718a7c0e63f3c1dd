// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/cellcheck/internal/index"
	"github.com/starford/cellcheck/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "cellcheck-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteNote writes content to rel under the vault directory.
func WriteNote(t *testing.T, vaultDir, rel, content string) {
	t.Helper()
	abs := filepath.Join(vaultDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadNote returns the content of rel under the vault directory.
func ReadNote(t *testing.T, vaultDir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(vaultDir, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
