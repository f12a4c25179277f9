package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTest(t *testing.T) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.bbolt")
	b, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b, path
}

func TestRoundTripIsByteTransparent(t *testing.T) {
	ctx := context.Background()
	b, _ := openTest(t)

	val := []byte{'C', 'K', 'I', 'T', 0, 0, 0, 1, 0xff}
	require.NoError(t, b.Set(ctx, "user:1", val, time.Minute))

	got, ok, err := b.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, val, got)

	exists, err := b.Exists(ctx, "user:2")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.Delete(ctx, "user:1"))
	_, ok, err = b.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	b, _ := openTest(t)

	now := time.Unix(1700000000, 0)
	b.now = func() time.Time { return now }

	require.NoError(t, b.Set(ctx, "short", []byte("s"), time.Second))
	require.NoError(t, b.Set(ctx, "forever", []byte("f"), 0))

	now = now.Add(time.Minute)

	_, ok, err := b.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := b.MGet(ctx, []string{"short", "forever"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{nil, []byte("f")}, got)

	n, err := b.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCorruptRecord(t *testing.T) {
	ctx := context.Background()
	b, _ := openTest(t)

	require.NoError(t, b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte("bad"), []byte{1, 2})
	}))
	_, _, err := b.Get(ctx, "bad")
	assert.ErrorIs(t, err, errCorruptRecord)

	got, err := b.MGet(ctx, []string{"bad"})
	require.NoError(t, err)
	assert.Nil(t, got[0])
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.bbolt")

	b, err := Open(path, Options{Bucket: "entities"})
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, b.Close(ctx))

	b2, err := Open(path, Options{Bucket: "entities"})
	require.NoError(t, err)
	defer b2.Close(ctx)

	v, ok, err := b2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestMDeleteClearAllHealth(t *testing.T) {
	ctx := context.Background()
	b, _ := openTest(t)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Set(ctx, k, []byte(k), 0))
	}
	require.NoError(t, b.MDelete(ctx, []string{"a", "zzz"}))
	got, err := b.MGet(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{nil, []byte("b")}, got)

	require.NoError(t, b.ClearAll(ctx))
	got, err = b.MGet(ctx, []string{"b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{nil, nil}, got)

	healthy, err := b.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, healthy)
}
