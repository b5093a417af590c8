package storage_test

import (
	"path/filepath"
	"testing"

	"roadrich/internal/storage"
	"roadrich/internal/storage/storetest"
)

func newSQLite(t *testing.T) storage.Store {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "roadrich.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storetest.Run(t, newSQLite)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadrich.db")
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()

	repo, err = storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer repo.Close()

	version, dirty, err := storage.SchemaVersion(storage.DSN(path))
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("version = %d dirty = %v, want 1 clean", version, dirty)
	}
}
