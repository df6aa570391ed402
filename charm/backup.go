// ABOUTME: Snapshot backup of a document collection to Charm KV
// ABOUTME: Push writes one key per document, Pull restores them in atomic batches

package charm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/agencycrm/docstore"
)

// BackupResult summarizes a push or pull.
type BackupResult struct {
	Written int
	Removed int
}

func keyPrefix(collection string) string {
	return collection + "/"
}

func documentKey(collection, id string) []byte {
	return []byte(keyPrefix(collection) + id)
}

// Push copies every document of collection into the KV store and removes
// backed-up documents that no longer exist locally. Stored timestamps are
// kept as native timestamp values.
func Push(ctx context.Context, c *Client, store docstore.Store, collection string) (BackupResult, error) {
	var res BackupResult

	docs, err := store.Query(ctx, docstore.NewQuery(collection))
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	present := make(map[string]bool, len(docs))
	now := time.Now()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := docstore.Encode(doc.Fields, now)
		if err != nil {
			return res, fmt.Errorf("failed to encode %s: %w", doc.ID, err)
		}
		key := documentKey(collection, doc.ID)
		if err := c.Set(key, data); err != nil {
			return res, fmt.Errorf("failed to back up %s: %w", doc.ID, err)
		}
		present[string(key)] = true
		res.Written++
	}

	keys, err := c.KeysWithPrefix([]byte(keyPrefix(collection)))
	if err != nil {
		return res, fmt.Errorf("failed to list backup keys: %w", err)
	}
	for _, k := range keys {
		if present[string(k)] {
			continue
		}
		if err := c.Delete(k); err != nil {
			return res, fmt.Errorf("failed to remove stale backup %s: %w", k, err)
		}
		res.Removed++
	}
	return res, nil
}

// Pull restores every backed-up document of collection into store,
// overwriting documents with the same id.
func Pull(ctx context.Context, c *Client, store docstore.Store, collection string) (BackupResult, error) {
	var res BackupResult

	prefix := keyPrefix(collection)
	keys, err := c.KeysWithPrefix([]byte(prefix))
	if err != nil {
		return res, fmt.Errorf("failed to list backup keys: %w", err)
	}

	batch := docstore.NewBatch()
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := store.Commit(ctx, batch); err != nil {
			return fmt.Errorf("failed to restore %s: %w", collection, err)
		}
		res.Written += batch.Len()
		batch = docstore.NewBatch()
		return nil
	}

	for _, k := range keys {
		id := strings.TrimPrefix(string(k), prefix)
		if id == "" || strings.Contains(id, "/") {
			continue
		}
		data, err := c.Get(k)
		if err != nil {
			return res, fmt.Errorf("failed to read backup %s: %w", k, err)
		}
		fields, err := docstore.Decode(data)
		if err != nil {
			return res, fmt.Errorf("failed to decode backup %s: %w", k, err)
		}
		batch.Set(collection, id, fields)
		if batch.Len() == docstore.MaxBatchWrites {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

// Count returns how many documents of collection are backed up.
func Count(c *Client, collection string) (int, error) {
	keys, err := c.KeysWithPrefix([]byte(keyPrefix(collection)))
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
