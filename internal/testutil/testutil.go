// Package testutil provides shared test helpers for setting up journals and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCatalogDB is TestDB loaded with the embedded marker catalog.
func TestCatalogDB(t *testing.T) *store.DB {
	t.Helper()
	db := TestDB(t)
	markers, err := store.LoadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceCatalog(t.Context(), markers); err != nil {
		t.Fatal(err)
	}
	return db
}

// TestJournal creates a temporary journal directory with a storage.Provider.
func TestJournal(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Logger discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
