// ABOUTME: Shared behavioural tests every docstore backend must pass
// ABOUTME: Backends call RunConformance from their own test files
package docstoretest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agencycrm/docstore"
)

// OpenFunc opens a fresh, empty store for one subtest.
type OpenFunc func(t *testing.T, opts ...docstore.Option) docstore.Store

// FixedNow is the clock handed to stores under test.
var FixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// RunConformance exercises the Store contract against a backend.
func RunConformance(t *testing.T, open OpenFunc) {
	t.Helper()

	clock := docstore.WithClock(func() time.Time { return FixedNow })

	t.Run("AddAndGet", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()

		id, err := s.Add(ctx, "clients", docstore.Fields{"name": "Acme", "retainer": 100})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		snap, err := s.Get(ctx, "clients", id)
		require.NoError(t, err)
		assert.Equal(t, id, snap.ID)
		assert.Equal(t, "Acme", snap.Fields["name"])
		assert.Equal(t, float64(100), snap.Fields["retainer"])
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t, clock)
		_, err := s.Get(context.Background(), "clients", "nope")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("InvalidID", func(t *testing.T) {
		s := open(t, clock)
		_, err := s.Get(context.Background(), "clients", "a/b")
		assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
	})

	t.Run("ServerTimestamp", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()

		id, err := s.Add(ctx, "clients", docstore.Fields{
			"createdAt": docstore.ServerTimestamp,
			"nested":    map[string]interface{}{"at": docstore.ServerTimestamp},
		})
		require.NoError(t, err)

		snap, err := s.Get(ctx, "clients", id)
		require.NoError(t, err)
		assert.Equal(t, docstore.TimestampOf(FixedNow), snap.Fields["createdAt"])
		nested, ok := snap.Fields["nested"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, docstore.TimestampOf(FixedNow), nested["at"])
	})

	t.Run("TimeValuesBecomeTimestamps", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		when := time.Date(2023, 1, 2, 3, 4, 5, 6000, time.UTC)

		id, err := s.Add(ctx, "clients", docstore.Fields{"when": when})
		require.NoError(t, err)

		snap, err := s.Get(ctx, "clients", id)
		require.NoError(t, err)
		ts, ok := snap.Fields["when"].(docstore.Timestamp)
		require.True(t, ok)
		assert.True(t, when.Equal(ts.Time()))
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()

		id, err := s.Add(ctx, "clients", docstore.Fields{"name": "Acme", "status": "active"})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "clients", id, docstore.Fields{"status": "paused", "notes": "x"}))

		snap, err := s.Get(ctx, "clients", id)
		require.NoError(t, err)
		assert.Equal(t, "Acme", snap.Fields["name"])
		assert.Equal(t, "paused", snap.Fields["status"])
		assert.Equal(t, "x", snap.Fields["notes"])
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := open(t, clock)
		err := s.Update(context.Background(), "clients", "ghost", docstore.Fields{"status": "paused"})
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()

		id, err := s.Add(ctx, "clients", docstore.Fields{"name": "Acme"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "clients", id))
		require.NoError(t, s.Delete(ctx, "clients", id))
		require.NoError(t, s.Delete(ctx, "clients", "never-existed"))

		_, err = s.Get(ctx, "clients", id)
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("EqualityFilter", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients",
			docstore.Fields{"name": "A", "status": "active"},
			docstore.Fields{"name": "B", "status": "inactive"},
			docstore.Fields{"name": "C", "status": "active"},
		)

		docs, err := s.Query(ctx, docstore.NewQuery("clients").
			Where("status", docstore.OpEqual, "active").
			OrderBy("name", docstore.Ascending))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, names(docs))
	})

	t.Run("EqualityDoesNotCrossTypes", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients",
			docstore.Fields{"name": "A", "tier": "1"},
			docstore.Fields{"name": "B", "tier": 1},
		)

		docs, err := s.Query(ctx, docstore.NewQuery("clients").Where("tier", docstore.OpEqual, 1))
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, names(docs))
	})

	t.Run("PrefixRange", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients",
			docstore.Fields{"name": "Acme Corp"},
			docstore.Fields{"name": "Acme"},
			docstore.Fields{"name": "Beta"},
			docstore.Fields{"name": "acme lower"},
			docstore.Fields{"name": 42},
		)

		docs, err := s.Query(ctx, docstore.NewQuery("clients").
			Where("name", docstore.OpGreaterOrEqual, "Acme").
			Where("name", docstore.OpLessOrEqual, "Acme\uf8ff").
			OrderBy("name", docstore.Ascending))
		require.NoError(t, err)
		assert.Equal(t, []string{"Acme", "Acme Corp"}, names(docs))
	})

	t.Run("OrderDescending", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients",
			docstore.Fields{"name": "old", "createdAt": FixedNow.Add(-2 * time.Hour)},
			docstore.Fields{"name": "new", "createdAt": FixedNow},
			docstore.Fields{"name": "mid", "createdAt": FixedNow.Add(-time.Hour)},
		)

		docs, err := s.Query(ctx, docstore.NewQuery("clients").OrderBy("createdAt", docstore.Descending))
		require.NoError(t, err)
		assert.Equal(t, []string{"new", "mid", "old"}, names(docs))
	})

	t.Run("OrderNumbers", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients",
			docstore.Fields{"name": "ten", "retainer": 10},
			docstore.Fields{"name": "nine", "retainer": 9},
			docstore.Fields{"name": "hundred", "retainer": 100.5},
		)

		docs, err := s.Query(ctx, docstore.NewQuery("clients").OrderBy("retainer", docstore.Ascending))
		require.NoError(t, err)
		assert.Equal(t, []string{"nine", "ten", "hundred"}, names(docs))
	})

	t.Run("OrderExcludesMissingField", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients",
			docstore.Fields{"name": "dated", "createdAt": FixedNow},
			docstore.Fields{"name": "undated"},
		)

		q := docstore.NewQuery("clients").OrderBy("createdAt", docstore.Descending)
		docs, err := s.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"dated"}, names(docs))

		n, err := s.Count(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("NestedField", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients",
			docstore.Fields{"name": "A", "aiAnalysis": map[string]interface{}{"priority": "high"}},
			docstore.Fields{"name": "B", "aiAnalysis": map[string]interface{}{"priority": "low"}},
		)

		docs, err := s.Query(ctx, docstore.NewQuery("clients").Where("aiAnalysis.priority", docstore.OpEqual, "high"))
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, names(docs))
	})

	t.Run("WindowAndCount", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		var docs []docstore.Fields
		for i := 0; i < 7; i++ {
			docs = append(docs, docstore.Fields{"name": fmt.Sprintf("client-%02d", i)})
		}
		seed(t, s, "clients", docs...)

		q := docstore.NewQuery("clients").OrderBy("name", docstore.Ascending)

		page, err := s.Query(ctx, q.Window(3, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"client-03", "client-04", "client-05"}, names(page))

		last, err := s.Query(ctx, q.Window(6, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"client-06"}, names(last))

		past, err := s.Query(ctx, q.Window(30, 3))
		require.NoError(t, err)
		assert.Empty(t, past)

		n, err := s.Count(ctx, q.Window(3, 3))
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("CollectionsAreIsolated", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		seed(t, s, "clients", docstore.Fields{"name": "client"})
		seed(t, s, "clients_archive", docstore.Fields{"name": "archived"})

		docs, err := s.Query(ctx, docstore.NewQuery("clients"))
		require.NoError(t, err)
		assert.Equal(t, []string{"client"}, names(docs))
	})

	t.Run("InvalidField", func(t *testing.T) {
		s := open(t, clock)
		_, err := s.Query(context.Background(), docstore.NewQuery("clients").Where("bad field", docstore.OpEqual, "x"))
		assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
	})

	t.Run("BatchCommit", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		ids := seed(t, s, "clients",
			docstore.Fields{"name": "A", "status": "active"},
			docstore.Fields{"name": "B", "status": "active"},
			docstore.Fields{"name": "C", "status": "active"},
		)

		b := docstore.NewBatch().
			Update("clients", ids[0], docstore.Fields{"status": "paused", "updatedAt": docstore.ServerTimestamp}).
			Update("clients", ids[1], docstore.Fields{"status": "paused", "updatedAt": docstore.ServerTimestamp}).
			Delete("clients", ids[2])
		require.NoError(t, s.Commit(ctx, b))

		for _, id := range ids[:2] {
			snap, err := s.Get(ctx, "clients", id)
			require.NoError(t, err)
			assert.Equal(t, "paused", snap.Fields["status"])
			assert.Equal(t, docstore.TimestampOf(FixedNow), snap.Fields["updatedAt"])
		}
		_, err := s.Get(ctx, "clients", ids[2])
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("BatchIsAtomic", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		ids := seed(t, s, "clients", docstore.Fields{"name": "A", "status": "active"})

		b := docstore.NewBatch().
			Update("clients", ids[0], docstore.Fields{"status": "paused"}).
			Update("clients", "missing", docstore.Fields{"status": "paused"})
		err := s.Commit(ctx, b)
		assert.ErrorIs(t, err, docstore.ErrNotFound)

		snap, err := s.Get(ctx, "clients", ids[0])
		require.NoError(t, err)
		assert.Equal(t, "active", snap.Fields["status"])
	})

	t.Run("BatchSetPreservesTimestamps", func(t *testing.T) {
		s := open(t, clock)
		ctx := context.Background()
		stored := docstore.TimestampOf(FixedNow.Add(-72 * time.Hour))

		b := docstore.NewBatch().Set("clients", "restored-1", docstore.Fields{"name": "R", "createdAt": stored})
		require.NoError(t, s.Commit(ctx, b))

		snap, err := s.Get(ctx, "clients", "restored-1")
		require.NoError(t, err)
		assert.Equal(t, stored, snap.Fields["createdAt"])

		// Set replaces rather than merges.
		b = docstore.NewBatch().Set("clients", "restored-1", docstore.Fields{"name": "R2"})
		require.NoError(t, s.Commit(ctx, b))
		snap, err = s.Get(ctx, "clients", "restored-1")
		require.NoError(t, err)
		assert.Equal(t, docstore.Fields{"name": "R2"}, snap.Fields)
	})

	t.Run("BatchTooLarge", func(t *testing.T) {
		s := open(t, clock)
		b := docstore.NewBatch()
		for i := 0; i <= docstore.MaxBatchWrites; i++ {
			b.Delete("clients", fmt.Sprintf("id-%d", i))
		}
		err := s.Commit(context.Background(), b)
		assert.ErrorIs(t, err, docstore.ErrBatchTooLarge)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		s := open(t, clock)
		assert.NoError(t, s.Commit(context.Background(), docstore.NewBatch()))
	})
}

// seed adds documents in order and returns their ids.
func seed(t *testing.T, s docstore.Store, collection string, docs ...docstore.Fields) []string {
	t.Helper()
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, err := s.Add(context.Background(), collection, doc)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func names(docs []docstore.Snapshot) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		name, _ := d.Fields["name"].(string)
		out = append(out, name)
	}
	return out
}
