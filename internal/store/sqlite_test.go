package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKV(t *testing.T) *SQLiteKV {
	t.Helper()
	kv, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestPutGetDelete(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "b", Entry{Key: "k1", Value: []byte("v1"), Position: 0}))
	require.NoError(t, kv.Put(ctx, "b", Entry{Key: "k1", Value: []byte("v1-updated"), Position: 0}))

	entries, err := kv.List(ctx, "b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("v1-updated"), entries[0].Value)

	require.NoError(t, kv.Delete(ctx, "b", "k1"))
	require.NoError(t, kv.Delete(ctx, "b", "k1")) // missing key is a no-op

	entries, err = kv.List(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListOrdersByPosition(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "b", Entry{Key: "z", Value: []byte("first"), Position: 0}))
	require.NoError(t, kv.Put(ctx, "b", Entry{Key: "a", Value: []byte("second"), Position: 1}))

	entries, err := kv.List(ctx, "b")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "z", entries[0].Key)
	assert.Equal(t, "a", entries[1].Key)
}

func TestReplaceAll(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "b", Entry{Key: "old", Value: []byte("x"), Position: 0}))
	require.NoError(t, kv.Put(ctx, "other", Entry{Key: "keep", Value: []byte("y"), Position: 0}))

	require.NoError(t, kv.ReplaceAll(ctx, "b", []Entry{
		{Key: "n1", Value: []byte("1"), Position: 0},
		{Key: "n2", Value: []byte("2"), Position: 1},
	}))

	entries, err := kv.List(ctx, "b")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "n1", entries[0].Key)

	// Other buckets are untouched.
	others, err := kv.List(ctx, "other")
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "keep", others[0].Key)

	// Replacing with nothing empties the bucket.
	require.NoError(t, kv.ReplaceAll(ctx, "b", nil))
	entries, err = kv.List(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryMatchesSQLiteSemantics(t *testing.T) {
	ctx := context.Background()
	for name, kv := range map[string]KV{"sqlite": openTestKV(t), "memory": NewMemory()} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Put(ctx, "b", Entry{Key: "k", Value: []byte("v"), Position: 3}))
			entries, err := kv.List(ctx, "b")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, 3, entries[0].Position)
		})
	}
}
