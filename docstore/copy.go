// ABOUTME: Copies a collection between two stores
// ABOUTME: Used by the migrate command to move data across backends
package docstore

import (
	"context"
	"fmt"
)

// CopyCollection writes every document of collection in src into dst, keeping
// ids and stored timestamps. It returns the number of documents copied.
func CopyCollection(ctx context.Context, src, dst Store, collection string) (int, error) {
	docs, err := src.Query(ctx, NewQuery(collection))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	copied := 0
	for start := 0; start < len(docs); start += MaxBatchWrites {
		end := start + MaxBatchWrites
		if end > len(docs) {
			end = len(docs)
		}

		batch := NewBatch()
		for _, doc := range docs[start:end] {
			batch.Set(collection, doc.ID, doc.Fields)
		}
		if err := dst.Commit(ctx, batch); err != nil {
			return copied, fmt.Errorf("failed to write %s: %w", collection, err)
		}
		copied += batch.Len()
	}
	return copied, nil
}
