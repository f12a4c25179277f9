package ristretto

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cachekit/backend"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64, Metrics: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	got, err := b.MGet(ctx, []string{"missing", "k"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{nil, []byte("v")}, got)

	require.NoError(t, b.Delete(ctx, "k"))
	exists, err := b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.Set(ctx, "a", []byte("a"), 0))
	require.NoError(t, b.ClearAll(ctx))
	_, ok, _ = b.Get(ctx, "a")
	assert.False(t, ok)

	assert.NotNil(t, b.Metrics())
}

func TestOversizedWriteRejected(t *testing.T) {
	ctx := context.Background()
	b, err := New(Config{NumCounters: 100, MaxCost: 4, BufferItems: 64})
	require.NoError(t, err)
	defer b.Close(ctx)

	err = b.Set(ctx, "big", make([]byte, 64), 0)
	if err != nil {
		assert.ErrorIs(t, err, backend.ErrRejected)
	}
	_, ok, _ := b.Get(ctx, "big")
	assert.False(t, ok, "value larger than MaxCost is never admitted")
}
