// ABOUTME: Database schema definitions and migrations
// ABOUTME: Documents live in one table keyed by collection and id with JSON fields
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	fields TEXT NOT NULL CHECK(json_valid(fields)),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection_updated ON documents(collection, updated_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
