package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newWithClock(t *testing.T) (*Backend, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	b := New(0)
	b.now = clk.Now
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b, clk
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	b, _ := newWithClock(t)

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	src := []byte("v1")
	require.NoError(t, b.Set(ctx, "k", src, 0))
	src[0] = 'X' // caller mutation must not leak into the store

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	exists, err := b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Delete(ctx, "k"), "deleting a missing key is fine")

	exists, err = b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	b, _ := newWithClock(t)
	require.NoError(t, b.Set(ctx, "k", []byte("v1"), 0))
	require.NoError(t, b.Set(ctx, "empty", nil, 0))

	v, _, err := b.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'X'

	vals, err := b.MGet(ctx, []string{"k", "empty"})
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), vals[0])
	assert.NotNil(t, vals[1], "an empty value is a hit, not a miss")
	vals[0][0] = 'Y'

	v, _, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	b, clk := newWithClock(t)

	require.NoError(t, b.Set(ctx, "short", []byte("s"), time.Second))
	require.NoError(t, b.Set(ctx, "forever", []byte("f"), 0))

	d, ok := b.TTL("short")
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)
	_, ok = b.TTL("forever")
	assert.False(t, ok)

	clk.Advance(2 * time.Second)

	_, ok, _ = b.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = b.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 1, b.Len(), "expired entry removed on read")
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	b, clk := newWithClock(t)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Set(ctx, k, []byte(k), time.Minute))
	}
	require.NoError(t, b.Set(ctx, "d", []byte("d"), 0))
	clk.Advance(time.Hour)
	b.Sweep()
	assert.Equal(t, 1, b.Len())
}

func TestMGetPreservesOrder(t *testing.T) {
	ctx := context.Background()
	b, _ := newWithClock(t)

	require.NoError(t, b.Set(ctx, "a", []byte("A"), 0))
	require.NoError(t, b.Set(ctx, "c", []byte("C"), 0))

	got, err := b.MGet(ctx, []string{"c", "b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("C"), nil, []byte("A"), []byte("C")}, got)

	empty, err := b.MGet(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMDeleteAndClearAll(t *testing.T) {
	ctx := context.Background()
	b, _ := newWithClock(t)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Set(ctx, k, []byte(k), 0))
	}
	require.NoError(t, b.MDelete(ctx, []string{"a", "missing"}))
	assert.Equal(t, 2, b.Len())

	require.NoError(t, b.ClearAll(ctx))
	assert.Equal(t, 0, b.Len())

	healthy, err := b.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, healthy)
}

func TestBackgroundSweepStopsOnClose(t *testing.T) {
	ctx := context.Background()
	b := New(10 * time.Millisecond)
	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Millisecond))

	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Close(ctx))
	require.NoError(t, b.Close(ctx), "Close is idempotent")
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	b := New(0)
	defer b.Close(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = b.Set(ctx, "k", []byte("v"), time.Minute)
				_, _, _ = b.Get(ctx, "k")
				_, _ = b.MGet(ctx, []string{"k", "x"})
				_ = b.Delete(ctx, "k")
			}
		}()
	}
	wg.Wait()
}
