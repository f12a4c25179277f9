// Package memory is the in-process reference Backend: a map guarded by a
// RWMutex with lazy expiry on read and an optional background sweep.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/cachekit/backend"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

// Backend keeps values in-process.
type Backend struct {
	mu sync.RWMutex
	m  map[string]entry

	now func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ backend.Backend = (*Backend)(nil)

// New returns an empty backend. If sweepInterval > 0 a goroutine removes
// expired entries every interval until Close.
func New(sweepInterval time.Duration) *Backend {
	b := &Backend{
		m:   make(map[string]entry),
		now: time.Now,
	}
	if sweepInterval > 0 {
		b.ticker = time.NewTicker(sweepInterval)
		b.stopCh = make(chan struct{})
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case <-b.ticker.C:
					b.Sweep()
				case <-b.stopCh:
					return
				}
			}
		}()
	}
	return b
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	e, ok := b.m[key]
	b.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(b.now()) {
		b.mu.Lock()
		// re-check: a concurrent Set may have replaced it
		if cur, ok := b.m[key]; ok && cur.expired(b.now()) {
			delete(b.m, key)
		}
		b.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte{}, e.v...), true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = b.now().Add(ttl)
	}
	v := append([]byte(nil), value...)
	b.mu.Lock()
	b.m[key] = entry{v: v, exp: exp}
	b.mu.Unlock()
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.m, key)
	b.mu.Unlock()
	return nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := b.Get(ctx, key)
	return ok, err
}

// MGet acquires the read lock once and reads all requested keys.
func (b *Backend) MGet(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	now := b.now()
	b.mu.RLock()
	for i, k := range keys {
		if e, ok := b.m[k]; ok && !e.expired(now) {
			out[i] = append([]byte{}, e.v...) // non-nil even when empty
		}
	}
	b.mu.RUnlock()
	return out, nil
}

func (b *Backend) MDelete(_ context.Context, keys []string) error {
	b.mu.Lock()
	for _, k := range keys {
		delete(b.m, k)
	}
	b.mu.Unlock()
	return nil
}

func (b *Backend) HealthCheck(context.Context) (bool, error) { return true, nil }

func (b *Backend) ClearAll(context.Context) error {
	b.mu.Lock()
	b.m = make(map[string]entry)
	b.mu.Unlock()
	return nil
}

// Len reports stored entries, including expired ones not yet swept.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}

// Sweep removes expired entries.
func (b *Backend) Sweep() {
	now := b.now()
	b.mu.Lock()
	for k, e := range b.m {
		if e.expired(now) {
			delete(b.m, k)
		}
	}
	b.mu.Unlock()
}

// TTL returns the remaining lifetime of key; ok=false if absent or without expiry.
func (b *Backend) TTL(key string) (time.Duration, bool) {
	b.mu.RLock()
	e, found := b.m[key]
	b.mu.RUnlock()
	if !found || e.exp.IsZero() {
		return 0, false
	}
	return e.exp.Sub(b.now()), true
}

func (b *Backend) Close(context.Context) error {
	b.closeOnce.Do(func() {
		if b.stopCh != nil {
			close(b.stopCh)
			b.ticker.Stop() // stop ticker before waiting
			b.wg.Wait()
		}
	})
	return nil
}
