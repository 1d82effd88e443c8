package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(domain.StorageConfig{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("k1", []byte("v1")))

	value, exists, err := store.Get("k1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, store.Delete("k1"))

	_, exists, err = store.Get("k1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, exists, err := store.Get("nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetNextReturnsLowestKey(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("q:003", []byte("c")))
	require.NoError(t, store.Put("q:001", []byte("a")))
	require.NoError(t, store.Put("q:002", []byte("b")))
	require.NoError(t, store.Put("other:001", []byte("x")))

	key, value, found, err := store.GetNext("q:")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "q:001", key)
	assert.Equal(t, []byte("a"), value)
}

func TestGetNextAfterSkipsForward(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("q:001", []byte("a")))
	require.NoError(t, store.Put("q:002", []byte("b")))

	key, _, found, err := store.GetNextAfter("q:", "q:001")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "q:002", key)

	_, _, found, err = store.GetNextAfter("q:", "q:002")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListAndCountPrefix(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(fmt.Sprintf("p:%03d", i), []byte("v")))
	}
	require.NoError(t, store.Put("z:000", []byte("v")))

	items, err := store.ListByPrefix("p:")
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, "p:000", items[0].Key)

	count, err := store.CountPrefix("p:")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	count, err = store.CountPrefix("missing:")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAtomicIncrement(t *testing.T) {
	store := newTestStore(t)

	for want := int64(1); want <= 3; want++ {
		got, err := store.AtomicIncrement("seq")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := store.AtomicIncrement("seq2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestBatchWriteIsAtomic(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("old", []byte("v")))

	err := store.BatchWrite([]ports.WriteOp{
		{Type: ports.OpDelete, Key: "old"},
		{Type: ports.OpPut, Key: "new", Value: []byte("v2")},
	})
	require.NoError(t, err)

	_, exists, err := store.Get("old")
	require.NoError(t, err)
	assert.False(t, exists)

	value, exists, err := store.Get("new")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, []byte("v2"), value)
}

func TestCloseIsIdempotent(t *testing.T) {
	store, err := New(domain.StorageConfig{InMemory: true}, nil)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
