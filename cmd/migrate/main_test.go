package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harperreed/agencycrm/docstore"
)

func seedSQLite(t *testing.T, path string, n int) {
	t.Helper()
	store, err := docstore.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	for i := 0; i < n; i++ {
		if _, err := store.Add(context.Background(), "clients", docstore.Fields{"name": "Client", "createdAt": docstore.ServerTimestamp}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMigrateSQLiteToBadger(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "src.db")
	to := filepath.Join(dir, "badger")
	seedSQLite(t, from, 3)

	n, err := migrate(context.Background(), "sqlite", from, "badger", to, "clients", false)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if n != 3 {
		t.Errorf("copied %d documents, want 3", n)
	}

	dst, err := docstore.Open("badger", to)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = dst.Close() }()
	count, err := dst.Count(context.Background(), docstore.NewQuery("clients"))
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("destination has %d documents, want 3", count)
	}
}

func TestMigrateDryRun(t *testing.T) {
	from := filepath.Join(t.TempDir(), "src.db")
	seedSQLite(t, from, 2)

	n, err := migrate(context.Background(), "sqlite", from, "badger", "", "clients", true)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if n != 2 {
		t.Errorf("dry run counted %d, want 2", n)
	}
}

func TestMigrateRejectsSameStore(t *testing.T) {
	from := filepath.Join(t.TempDir(), "src.db")
	seedSQLite(t, from, 1)

	if _, err := migrate(context.Background(), "sqlite", from, "sqlite", from, "clients", false); err == nil {
		t.Error("expected error when source equals destination")
	}
	if _, err := migrate(context.Background(), "sqlite", from, "badger", "x", "bad/name", false); err == nil {
		t.Error("expected error for invalid collection name")
	}
}
