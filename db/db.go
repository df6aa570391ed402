// ABOUTME: Database connection management and initialization
// ABOUTME: Handles opening SQLite database with WAL mode at a file path or in memory
package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

func OpenDatabase(path string) (*sql.DB, error) {
	dsn := memoryPath
	if path != "" && path != memoryPath {
		// Ensure directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors).
	// A single connection also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	// Initialize schema
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
