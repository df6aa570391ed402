// ABOUTME: Embedded Badger implementation of the document store
// ABOUTME: Keys are collection/id, batches run in one read-write transaction
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// maxConflictRetries bounds replays of a transaction that lost a write race.
const maxConflictRetries = 5

// BadgerStore keeps documents as JSON values in Badger.
type BadgerStore struct {
	db       *badger.DB
	settings Settings
}

func init() {
	Register("badger", func(dsn string, opts ...Option) (Store, error) {
		return OpenBadger(dsn, opts...)
	})
}

// OpenBadger opens a store in dir. An empty dir or ":memory:" keeps
// everything in memory.
func OpenBadger(dir string, opts ...Option) (*BadgerStore, error) {
	var bopts badger.Options
	if dir == "" || dir == ":memory:" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(dir)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db, settings: NewSettings(opts...)}, nil
}

func docKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func collectionPrefix(collection string) []byte {
	return []byte(collection + "/")
}

func (s *BadgerStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := ValidateName("collection", collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := s.settings.NewID()
	data, err := Encode(fields, s.settings.Now())
	if err != nil {
		return "", err
	}

	err = s.update(func(txn *badger.Txn) error {
		return txn.Set(docKey(collection, id), data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *BadgerStore) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := validatePath(collection, id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		fields, err := getFields(txn, collection, id)
		if err != nil {
			return err
		}
		snap = &Snapshot{ID: id, Fields: fields}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *BadgerStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := validatePath(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		return s.applyUpdate(txn, collection, id, fields)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, collection, id string) error {
	if err := validatePath(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		return txn.Delete(docKey(collection, id))
	})
}

func (s *BadgerStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	docs, err := s.scan(ctx, q.Collection)
	if err != nil {
		return nil, err
	}
	return q.apply(docs), nil
}

func (s *BadgerStore) Count(ctx context.Context, q Query) (int, error) {
	q = q.Unwindowed()
	if err := q.Validate(); err != nil {
		return 0, err
	}
	docs, err := s.scan(ctx, q.Collection)
	if err != nil {
		return 0, err
	}
	return len(q.apply(docs)), nil
}

func (s *BadgerStore) Commit(ctx context.Context, b *Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		now := s.settings.Now()
		for _, w := range b.writes {
			var err error
			switch w.Kind {
			case WriteSet:
				var data []byte
				data, err = Encode(w.Fields, now)
				if err == nil {
					err = txn.Set(docKey(w.Collection, w.ID), data)
				}
			case WriteUpdate:
				err = s.applyUpdate(txn, w.Collection, w.ID, w.Fields)
			case WriteDelete:
				err = txn.Delete(docKey(w.Collection, w.ID))
			}
			if err != nil {
				return fmt.Errorf("batch write %s/%s: %w", w.Collection, w.ID, err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, replaying it when Badger
// reports a conflict with a concurrent writer.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *BadgerStore) applyUpdate(txn *badger.Txn, collection, id string, fields Fields) error {
	existing, err := getFields(txn, collection, id)
	if err != nil {
		return err
	}
	data, err := Encode(Merge(existing, fields), s.settings.Now())
	if err != nil {
		return err
	}
	return txn.Set(docKey(collection, id), data)
}

func (s *BadgerStore) scan(ctx context.Context, collection string) ([]Snapshot, error) {
	prefix := collectionPrefix(collection)
	var docs []Snapshot

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			fields, err := Decode(data)
			if err != nil {
				return err
			}
			id := string(item.Key()[len(prefix):])
			docs = append(docs, Snapshot{ID: id, Fields: fields})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func getFields(txn *badger.Txn, collection, id string) (Fields, error) {
	item, err := txn.Get(docKey(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func validatePath(collection, id string) error {
	if err := ValidateName("collection", collection); err != nil {
		return err
	}
	return ValidateName("document id", id)
}
