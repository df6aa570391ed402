// ABOUTME: SQLite implementation of the docstore.Store interface
// ABOUTME: Stores each document as a JSON row and runs batches in one transaction
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/agencycrm/docstore"
)

// DocumentStore provides document CRUD and queries on top of SQLite.
type DocumentStore struct {
	db       *sql.DB
	settings docstore.Settings
}

func init() {
	docstore.Register("sqlite", func(dsn string, opts ...docstore.Option) (docstore.Store, error) {
		return Open(dsn, opts...)
	})
}

// Open opens (or creates) the database at path and returns a document store.
func Open(path string, opts ...docstore.Option) (*DocumentStore, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return NewDocumentStore(db, opts...), nil
}

// NewDocumentStore wraps an already initialized database.
func NewDocumentStore(db *sql.DB, opts ...docstore.Option) *DocumentStore {
	return &DocumentStore{db: db, settings: docstore.NewSettings(opts...)}
}

// DB exposes the underlying handle.
func (s *DocumentStore) DB() *sql.DB {
	return s.db
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *DocumentStore) Add(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if err := docstore.ValidateName("collection", collection); err != nil {
		return "", err
	}

	id := s.settings.NewID()
	now := s.settings.Now()
	if err := insert(ctx, s.db, collection, id, fields, now); err != nil {
		return "", err
	}
	return id, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*docstore.Snapshot, error) {
	if err := validatePath(collection, id); err != nil {
		return nil, err
	}

	fields, err := load(ctx, s.db, collection, id)
	if err != nil {
		return nil, err
	}
	return &docstore.Snapshot{ID: id, Fields: fields}, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := validatePath(collection, id); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return merge(ctx, tx, collection, id, fields, s.settings.Now())
	})
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if err := validatePath(collection, id); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

func (s *DocumentStore) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	stmt, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]docstore.Snapshot, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := docstore.Decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Snapshot{ID: id, Fields: fields})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (s *DocumentStore) Count(ctx context.Context, q docstore.Query) (int, error) {
	q = q.Unwindowed()
	if err := q.Validate(); err != nil {
		return 0, err
	}
	stmt, args, err := buildCount(q)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *DocumentStore) Commit(ctx context.Context, b *docstore.Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}
	if err := b.Validate(); err != nil {
		return err
	}

	now := s.settings.Now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, w := range b.Writes() {
			var err error
			switch w.Kind {
			case docstore.WriteSet:
				err = upsert(ctx, tx, w.Collection, w.ID, w.Fields, now)
			case docstore.WriteUpdate:
				err = merge(ctx, tx, w.Collection, w.ID, w.Fields, now)
			case docstore.WriteDelete:
				_, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, w.Collection, w.ID)
			}
			if err != nil {
				return fmt.Errorf("batch write %s/%s: %w", w.Collection, w.ID, err)
			}
		}
		return nil
	})
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}

func (s *DocumentStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insert(ctx context.Context, ex execer, collection, id string, fields docstore.Fields, now time.Time) error {
	data, err := docstore.Encode(fields, now)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	// Bind JSON as text; a blob would be read as binary JSON by SQLite.
	_, err = ex.ExecContext(ctx, query, collection, id, string(data), now.UTC(), now.UTC())
	return err
}

func upsert(ctx context.Context, ex execer, collection, id string, fields docstore.Fields, now time.Time) error {
	data, err := docstore.Encode(fields, now)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at
	`
	_, err = ex.ExecContext(ctx, query, collection, id, string(data), now.UTC(), now.UTC())
	return err
}

func merge(ctx context.Context, ex execer, collection, id string, fields docstore.Fields, now time.Time) error {
	existing, err := load(ctx, ex, collection, id)
	if err != nil {
		return err
	}
	data, err := docstore.Encode(docstore.Merge(existing, fields), now)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET fields = ?, updated_at = ?
		WHERE collection = ? AND id = ?
	`
	result, err := ex.ExecContext(ctx, query, string(data), now.UTC(), collection, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}

	return nil
}

func load(ctx context.Context, ex execer, collection, id string) (docstore.Fields, error) {
	var raw string
	err := ex.QueryRowContext(ctx, `SELECT fields FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, err
	}
	return docstore.Decode([]byte(raw))
}

func validatePath(collection, id string) error {
	if err := docstore.ValidateName("collection", collection); err != nil {
		return err
	}
	return docstore.ValidateName("document id", id)
}
