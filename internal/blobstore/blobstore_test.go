package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticedb/sync-core/internal/blobstore/compression"
	"github.com/latticedb/sync-core/internal/data"
)

func TestPebbleBackendRoundTrips(t *testing.T) {
	backend, err := OpenPebbleBackend(t.TempDir())
	require.NoError(t, err)
	defer backend.Close()
	testBackendRoundTrip(t, backend)
}

func TestLevelDBBackendRoundTrips(t *testing.T) {
	backend, err := OpenLevelDBBackend(t.TempDir())
	require.NoError(t, err)
	defer backend.Close()
	testBackendRoundTrip(t, backend)
}

func testBackendRoundTrip(t *testing.T, backend Backend) {
	_, err := backend.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.Put("a", []byte("hello")))
	got, err := backend.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, backend.Delete("a"))
	_, err = backend.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorePutGetRoundTripsWithCompression(t *testing.T) {
	backend, err := OpenPebbleBackend(t.TempDir())
	require.NoError(t, err)
	defer backend.Close()

	lz4, err := compression.Get("lz4")
	require.NoError(t, err)
	store, err := New(backend, 10, lz4)
	require.NoError(t, err)

	t1 := data.Children(map[data.Name]*data.TSD{
		"x": data.Leaf(int64(1)),
		"y": data.LeafWithPriority("hello", data.Leaf(int64(3))),
	})

	key, err := store.Put(t1)
	require.NoError(t, err)
	assert.Equal(t, data.Hash(t1), key)

	got, err := store.Get(key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, t1.Equal(got))
}

func TestStoreGetMissesCacheAfterEviction(t *testing.T) {
	backend, err := OpenLevelDBBackend(t.TempDir())
	require.NoError(t, err)
	defer backend.Close()

	store, err := New(backend, 1, nil)
	require.NoError(t, err)

	t1 := data.Leaf(int64(1))
	t2 := data.Leaf(int64(2))
	k1, err := store.Put(t1)
	require.NoError(t, err)
	_, err = store.Put(t2) // evicts t1 from the size-1 cache
	require.NoError(t, err)

	got, err := store.Get(k1)
	require.NoError(t, err)
	assert.True(t, t1.Equal(got))
}
