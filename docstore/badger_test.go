// ABOUTME: Tests for the Badger document store
// ABOUTME: Runs the shared conformance suite plus on-disk persistence checks
package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agencycrm/docstore"
	"github.com/harperreed/agencycrm/docstore/docstoretest"
)

func openMemory(t *testing.T, opts ...docstore.Option) docstore.Store {
	t.Helper()
	s, err := docstore.OpenBadger(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerConformance(t *testing.T) {
	docstoretest.RunConformance(t, openMemory)
}

func TestBadgerPersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := docstore.OpenBadger(dir)
	require.NoError(t, err)
	id, err := s.Add(ctx, "clients", docstore.Fields{"name": "Acme"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := docstore.OpenBadger(dir)
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := reopened.Get(ctx, "clients", id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", snap.Fields["name"])
}

func TestOpenRegisteredDriver(t *testing.T) {
	assert.Contains(t, docstore.Drivers(), "badger")

	s, err := docstore.Open("badger", "")
	require.NoError(t, err)
	defer s.Close()

	_, err = docstore.Open("carrier-pigeon", "")
	assert.ErrorIs(t, err, docstore.ErrUnknownDriver)
}

func TestCopyCollection(t *testing.T) {
	ctx := context.Background()
	src := openMemory(t)
	dst := openMemory(t)

	for _, name := range []string{"A", "B", "C"} {
		_, err := src.Add(ctx, "clients", docstore.Fields{"name": name, "createdAt": docstore.ServerTimestamp})
		require.NoError(t, err)
	}
	_, err := src.Add(ctx, "other", docstore.Fields{"name": "skip"})
	require.NoError(t, err)

	n, err := docstore.CopyCollection(ctx, src, dst, "clients")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want, err := src.Query(ctx, docstore.NewQuery("clients"))
	require.NoError(t, err)
	got, err := dst.Query(ctx, docstore.NewQuery("clients"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	others, err := dst.Query(ctx, docstore.NewQuery("other"))
	require.NoError(t, err)
	assert.Empty(t, others)
}
