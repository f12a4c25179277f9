// Package memcached is a Backend over the memcached text protocol.
package memcached

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/cachekit/backend"
)

// memcached treats relative expirations above 30 days as unix timestamps.
const maxRelativeTTL = 30 * 24 * time.Hour

const healthKey = "__cachekit_health__"

type Config struct {
	Servers      []string      // e.g. ["localhost:11211", "cache2:11211"]
	Timeout      time.Duration // socket read/write timeout; 0 => client default
	MaxIdleConns int           // idle connections kept per server; 0 => client default
}

// Memcached is safe for concurrent use; the client pools connections per server.
type Memcached struct {
	c   *memcache.Client
	now func() time.Time
}

var _ backend.Backend = (*Memcached)(nil)

func New(cfg Config) (*Memcached, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("memcached backend: no servers specified")
	}
	c := memcache.New(cfg.Servers...)
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if cfg.MaxIdleConns > 0 {
		c.MaxIdleConns = cfg.MaxIdleConns
	}
	return &Memcached{c: c, now: time.Now}, nil
}

func (m *Memcached) Get(_ context.Context, key string) ([]byte, bool, error) {
	it, err := m.c.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("memcached get %q: %w", key, err)
	}
	return it.Value, true, nil
}

func (m *Memcached) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	exp, err := expiration(ttl, m.now())
	if err != nil {
		return err
	}
	if err := m.c.Set(&memcache.Item{Key: key, Value: value, Expiration: exp}); err != nil {
		return fmt.Errorf("memcached set %q: %w", key, err)
	}
	return nil
}

// expiration converts ttl to the memcached expiration field. Up to 30 days it
// is relative seconds, with sub-second TTLs rounded up to 1s since 0 means
// "never expire". Longer TTLs are sent as an absolute unix time.
func expiration(ttl time.Duration, now time.Time) (int32, error) {
	if ttl <= 0 {
		return 0, nil
	}
	if ttl <= maxRelativeTTL {
		return int32((ttl + time.Second - 1) / time.Second), nil
	}
	at := now.Add(ttl).Unix()
	if at > math.MaxInt32 {
		return 0, fmt.Errorf("memcached: ttl %s expires past the protocol's 2038 limit", ttl)
	}
	return int32(at), nil
}

func (m *Memcached) Delete(_ context.Context, key string) error {
	err := m.c.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcached delete %q: %w", key, err)
	}
	return nil
}

// Exists has no native command; it falls back to a get.
func (m *Memcached) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *Memcached) MGet(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	items, err := m.c.GetMulti(keys)
	if err != nil {
		return nil, fmt.Errorf("memcached mget: %w", err)
	}
	for i, k := range keys {
		if it, ok := items[k]; ok {
			out[i] = it.Value
		}
	}
	return out, nil
}

func (m *Memcached) MDelete(_ context.Context, keys []string) error {
	for _, k := range keys {
		_ = m.c.Delete(k)
	}
	return nil
}

func (m *Memcached) HealthCheck(context.Context) (bool, error) {
	if err := m.c.Ping(); err != nil {
		return false, nil
	}
	_, err := m.c.Get(healthKey)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	return true, nil
}

// ClearAll issues flush_all on every server.
func (m *Memcached) ClearAll(context.Context) error {
	if err := m.c.DeleteAll(); err != nil {
		return fmt.Errorf("memcached flush_all: %w", err)
	}
	return nil
}

func (m *Memcached) Close(context.Context) error { return nil }
