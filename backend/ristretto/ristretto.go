package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/cachekit/backend"
)

// CostFunc weighs a value for ristretto's admission; nil charges len(value).
type CostFunc func(key string, value []byte) int64

type Backend struct {
	c    *rc.Cache
	cost CostFunc
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	Cost        CostFunc
}

func New(cfg Config) (*Backend, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(_ string, v []byte) int64 { return int64(len(v)) }
	}
	return &Backend{c: c, cost: cost}, nil
}

func (p *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set waits for the write buffer to drain so the value is visible to the next
// Get. Writes dropped by admission return backend.ErrRejected.
func (p *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	v := append([]byte(nil), value...)
	if !p.c.SetWithTTL(key, v, p.cost(key, v), ttl) {
		return backend.ErrRejected
	}
	p.c.Wait()
	return nil
}

func (p *Backend) Delete(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Backend) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if b, ok, _ := p.Get(ctx, k); ok {
			out[i] = b
		}
	}
	return out, nil
}

func (p *Backend) MDelete(_ context.Context, keys []string) error {
	for _, k := range keys {
		p.c.Del(k)
	}
	return nil
}

func (p *Backend) HealthCheck(context.Context) (bool, error) { return true, nil }

func (p *Backend) ClearAll(context.Context) error {
	p.c.Clear()
	return nil
}

func (p *Backend) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters if enabled (not part of backend.Backend).
func (p *Backend) Metrics() *rc.Metrics { return p.c.Metrics }
