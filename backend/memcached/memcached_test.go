package memcached

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresServers(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	m, err := New(Config{Servers: []string{"localhost:11211"}, Timeout: time.Second, MaxIdleConns: 8})
	require.NoError(t, err)
	assert.Equal(t, time.Second, m.c.Timeout)
	assert.Equal(t, 8, m.c.MaxIdleConns)
}

func TestExpiration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		ttl  time.Duration
		want int32
		err  bool
	}{
		{0, 0, false},
		{-time.Second, 0, false},
		{time.Millisecond, 1, false},
		{time.Second, 1, false},
		{1500 * time.Millisecond, 2, false},
		{time.Hour, 3600, false},
		{maxRelativeTTL, int32(maxRelativeTTL / time.Second), false},
		// past 30 days memcached expects an absolute unix time
		{maxRelativeTTL + time.Second, int32(now.Add(maxRelativeTTL + time.Second).Unix()), false},
		{60 * 24 * time.Hour, int32(now.Add(60 * 24 * time.Hour).Unix()), false},
		{100 * 365 * 24 * time.Hour, 0, true},
	}
	for _, tc := range tests {
		got, err := expiration(tc.ttl, now)
		if tc.err {
			assert.Error(t, err, tc.ttl)
			continue
		}
		require.NoError(t, err, tc.ttl)
		assert.Equal(t, tc.want, got, tc.ttl)
	}
}

// TestLiveServer runs against a real memcached when MEMCACHED_ADDR is set.
func TestLiveServer(t *testing.T) {
	addr := os.Getenv("MEMCACHED_ADDR")
	if addr == "" {
		t.Skip("MEMCACHED_ADDR not set")
	}
	ctx := context.Background()
	m, err := New(Config{Servers: []string{addr}})
	require.NoError(t, err)
	require.NoError(t, m.ClearAll(ctx))

	healthy, err := m.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, healthy)

	require.NoError(t, m.Set(ctx, "a", []byte("A"), time.Minute))
	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("A"), v)

	got, err := m.MGet(ctx, []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{nil, []byte("A")}, got)

	require.NoError(t, m.Delete(ctx, "a"))
	require.NoError(t, m.Delete(ctx, "a"))
	exists, err := m.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, m.MDelete(ctx, []string{"x", "y"}))
}
