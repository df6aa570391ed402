// ABOUTME: Tests for database schema creation
// ABOUTME: Uses in-memory SQLite for fast isolated tests
package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestInitSchema(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='documents'").Scan(&name)
	if err != nil {
		t.Errorf("Table documents not found: %v", err)
	}

	var indexName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", "idx_documents_collection_updated").Scan(&indexName)
	if err != nil {
		t.Errorf("Index idx_documents_collection_updated not found: %v", err)
	}

	// fields must hold valid JSON
	_, err = db.Exec(`INSERT INTO documents (collection, id, fields, created_at, updated_at) VALUES ('c', 'x', 'not json', datetime('now'), datetime('now'))`)
	if err == nil {
		t.Error("Expected CHECK constraint to reject invalid JSON")
	}
}
