// ABOUTME: Tests for the SQLite document store
// ABOUTME: Runs the shared conformance suite and checks SQL pushdown details
package db_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agencycrm/db"
	"github.com/harperreed/agencycrm/docstore"
	"github.com/harperreed/agencycrm/docstore/docstoretest"
)

func openMemory(t *testing.T, opts ...docstore.Option) docstore.Store {
	t.Helper()
	s, err := db.Open(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDocumentStoreConformance(t *testing.T) {
	docstoretest.RunConformance(t, openMemory)
}

func TestDocumentStoreRegistered(t *testing.T) {
	assert.Contains(t, docstore.Drivers(), "sqlite")

	path := filepath.Join(t.TempDir(), "crm.db")
	s, err := docstore.Open("sqlite", path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	id, err := s.Add(ctx, "clients", docstore.Fields{"name": "Acme"})
	require.NoError(t, err)
	snap, err := s.Get(ctx, "clients", id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", snap.Fields["name"])
}

func TestTimestampRangeFilter(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"jan", "feb", "mar"} {
		_, err := s.Add(ctx, "clients", docstore.Fields{"name": name, "contractEnd": base.AddDate(0, i, 0)})
		require.NoError(t, err)
	}
	// A string that looks like a date is a different type and never matches.
	_, err := s.Add(ctx, "clients", docstore.Fields{"name": "legacy", "contractEnd": "2024-02-15"})
	require.NoError(t, err)

	docs, err := s.Query(ctx, docstore.NewQuery("clients").
		Where("contractEnd", docstore.OpGreaterOrEqual, base.AddDate(0, 1, 0)).
		OrderBy("contractEnd", docstore.Ascending))
	require.NoError(t, err)

	var got []string
	for _, d := range docs {
		got = append(got, d.Fields["name"].(string))
	}
	assert.Equal(t, []string{"feb", "mar"}, got)
}

func TestBatchRollbackLeavesNoPartialWrites(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	b := docstore.NewBatch().
		Set("clients", "fresh", docstore.Fields{"name": "new"}).
		Update("clients", "missing", docstore.Fields{"status": "paused"})
	err := s.Commit(ctx, b)
	require.ErrorIs(t, err, docstore.ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "clients/missing"))

	_, err = s.Get(ctx, "clients", "fresh")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestCopyBetweenBackends(t *testing.T) {
	ctx := context.Background()
	src, err := docstore.OpenBadger(":memory:")
	require.NoError(t, err)
	defer src.Close()
	dst := openMemory(t)

	_, err = src.Add(ctx, "clients", docstore.Fields{"name": "Acme", "createdAt": docstore.ServerTimestamp})
	require.NoError(t, err)

	n, err := docstore.CopyCollection(ctx, src, dst, "clients")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want, err := src.Query(ctx, docstore.NewQuery("clients"))
	require.NoError(t, err)
	got, err := dst.Query(ctx, docstore.NewQuery("clients"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
