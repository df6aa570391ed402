// ABOUTME: Tests for pushing and pulling client documents through Charm KV
// ABOUTME: Uses the Badger-backed test client and in-memory document stores

package charm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agencycrm/docstore"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func memoryStore(t *testing.T) docstore.Store {
	t.Helper()
	s, err := docstore.OpenBadger(":memory:", docstore.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPushThenPull(t *testing.T) {
	ctx := context.Background()
	c, cleanup := NewTestClient(t)
	defer cleanup()

	src := memoryStore(t)
	id, err := src.Add(ctx, "clients", docstore.Fields{
		"name":      "Acme Corp",
		"createdAt": docstore.ServerTimestamp,
		"aiAnalysis": map[string]interface{}{
			"priority":     "high",
			"lastAnalyzed": fixedNow.Add(-time.Hour),
		},
	})
	require.NoError(t, err)
	_, err = src.Add(ctx, "clients", docstore.Fields{"name": "Globex"})
	require.NoError(t, err)
	_, err = src.Add(ctx, "other", docstore.Fields{"name": "not backed up"})
	require.NoError(t, err)

	res, err := Push(ctx, c, src, "clients")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 0, res.Removed)

	n, err := Count(c, "clients")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := memoryStore(t)
	res, err = Pull(ctx, c, dst, "clients")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)

	snap, err := dst.Get(ctx, "clients", id)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", snap.Fields["name"])
	assert.Equal(t, docstore.TimestampOf(fixedNow), snap.Fields["createdAt"])

	analysis, ok := snap.Fields["aiAnalysis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, docstore.TimestampOf(fixedNow.Add(-time.Hour)), analysis["lastAnalyzed"])
}

func TestPushRemovesStaleBackups(t *testing.T) {
	ctx := context.Background()
	c, cleanup := NewTestClient(t)
	defer cleanup()

	store := memoryStore(t)
	keep, err := store.Add(ctx, "clients", docstore.Fields{"name": "Keep"})
	require.NoError(t, err)
	drop, err := store.Add(ctx, "clients", docstore.Fields{"name": "Drop"})
	require.NoError(t, err)

	_, err = Push(ctx, c, store, "clients")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "clients", drop))
	res, err := Push(ctx, c, store, "clients")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Removed)

	_, err = c.Get(documentKey("clients", keep))
	assert.NoError(t, err)
	_, err = c.Get(documentKey("clients", drop))
	assert.Error(t, err)
}

func TestPullInBatches(t *testing.T) {
	ctx := context.Background()
	c, cleanup := NewTestClient(t)
	defer cleanup()

	total := docstore.MaxBatchWrites + 7
	for i := 0; i < total; i++ {
		data, err := docstore.Encode(docstore.Fields{"name": fmt.Sprintf("Client %04d", i)}, fixedNow)
		require.NoError(t, err)
		require.NoError(t, c.Set(documentKey("clients", fmt.Sprintf("id%04d", i)), data))
	}
	// Keys outside the collection layout are ignored.
	require.NoError(t, c.Set([]byte("clients/nested/key"), []byte(`{}`)))

	store := memoryStore(t)
	res, err := Pull(ctx, c, store, "clients")
	require.NoError(t, err)
	assert.Equal(t, total, res.Written)

	n, err := store.Count(ctx, docstore.NewQuery("clients"))
	require.NoError(t, err)
	assert.Equal(t, total, n)
}

func TestPullRejectsCorruptBackup(t *testing.T) {
	c, cleanup := NewTestClient(t)
	defer cleanup()

	require.NoError(t, c.Set(documentKey("clients", "bad"), []byte("not json")))
	_, err := Pull(context.Background(), c, memoryStore(t), "clients")
	assert.Error(t, err)
}

func TestTestClientIdentity(t *testing.T) {
	c, cleanup := NewTestClient(t)
	defer cleanup()

	id, err := c.ID()
	require.NoError(t, err)
	assert.Equal(t, "local", id)
	assert.True(t, c.IsConnected())
	assert.False(t, c.Config().AutoSync)

	require.NoError(t, c.Set([]byte("a"), []byte("1")))
	require.NoError(t, c.Reset())
	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	old := xdg.DataHome
	xdg.DataHome = dir
	t.Cleanup(func() { xdg.DataHome = old })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.True(t, cfg.AutoSync)

	require.NoError(t, cfg.SetHost("charm.example.com"))
	require.NoError(t, cfg.SetAutoSync(false))

	info, err := os.Stat(filepath.Join(dir, AppName, ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "charm.example.com", loaded.Host)
	assert.False(t, loaded.AutoSync)
	assert.NotZero(t, loaded.StaleThreshold)
}

func TestConfigCorruptFallsBack(t *testing.T) {
	dir := t.TempDir()
	old := xdg.DataHome
	xdg.DataHome = dir
	t.Cleanup(func() { xdg.DataHome = old })

	path, err := ConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultCharmHost, cfg.Host)
}

func TestRecordPushAndStale(t *testing.T) {
	dir := t.TempDir()
	old := xdg.DataHome
	xdg.DataHome = dir
	t.Cleanup(func() { xdg.DataHome = old })

	cfg := DefaultConfig()
	assert.True(t, cfg.Stale("clients", fixedNow), "never pushed is stale")

	require.NoError(t, cfg.RecordPush("clients", fixedNow))
	assert.False(t, cfg.Stale("clients", fixedNow.Add(cfg.StaleThreshold/2)))
	assert.True(t, cfg.Stale("clients", fixedNow.Add(cfg.StaleThreshold+time.Second)))
	assert.True(t, cfg.Stale("other", fixedNow))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, loaded.LastPush["clients"].Equal(fixedNow))
}
