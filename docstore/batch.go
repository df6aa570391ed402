// ABOUTME: Batched multi-document writes
// ABOUTME: Collects set, update and delete operations committed atomically by a Store
package docstore

import "fmt"

type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteUpdate
	WriteDelete
)

// Write is one operation inside a batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     Fields
}

// Batch accumulates writes for Store.Commit.
type Batch struct {
	writes []Write
}

func NewBatch() *Batch {
	return &Batch{}
}

// Set creates or replaces a document with exactly these fields.
func (b *Batch) Set(collection, id string, fields Fields) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteSet, Collection: collection, ID: id, Fields: fields})
	return b
}

// Update merges fields into an existing document; a missing document fails the batch.
func (b *Batch) Update(collection, id string, fields Fields) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteUpdate, Collection: collection, ID: id, Fields: fields})
	return b
}

// Delete removes a document if it exists.
func (b *Batch) Delete(collection, id string) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) Len() int {
	return len(b.writes)
}

// Writes returns the queued writes in order.
func (b *Batch) Writes() []Write {
	return append([]Write(nil), b.writes...)
}

// Validate checks size limits and names before a backend starts a transaction.
func (b *Batch) Validate() error {
	if len(b.writes) > MaxBatchWrites {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(b.writes), MaxBatchWrites)
	}
	for _, w := range b.writes {
		if err := ValidateName("collection", w.Collection); err != nil {
			return err
		}
		if err := ValidateName("document id", w.ID); err != nil {
			return err
		}
	}
	return nil
}
