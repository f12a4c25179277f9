package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cachekit/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Dial builds a client for addrs (one address = single node, several = cluster)
// and returns a backend that owns it.
func Dial(addrs []string, password string, db int) (*Redis, error) {
	if len(addrs) == 0 {
		return nil, errors.New("redis backend: no addresses")
	}
	c := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    addrs,
		Password: password,
		DB:       db,
	})
	return New(Config{Client: c, CloseClient: true})
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per backend contract
	}
	return p.rdb.Set(ctx, key, value, ttl).Err()
}

func (p *Redis) Delete(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

func (p *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MGet issues a single MGET; missing keys come back as nil.
func (p *Redis) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(keys))
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
		case string:
			out[i] = []byte(vv)
		case []byte:
			out[i] = vv
		default:
			return nil, fmt.Errorf("redis mget: unexpected type %T at %s", v, keys[i])
		}
	}
	return out, nil
}

// MDelete pipelines one DEL per key. Per-key replies carrying a Redis error
// are ignored; connection and context failures are returned.
func (p *Redis) MDelete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.rdb.Pipelined(ctx, func(pl goredis.Pipeliner) error {
		for _, k := range keys {
			pl.Del(ctx, k)
		}
		return nil
	})
	if err == nil || errors.Is(err, goredis.Nil) {
		return nil
	}
	var reply goredis.Error
	if errors.As(err, &reply) {
		return nil
	}
	return fmt.Errorf("redis mdelete: %w", err)
}

func (p *Redis) HealthCheck(ctx context.Context) (bool, error) {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return false, nil
	}
	return true, nil
}

// ClearAll flushes the selected database.
func (p *Redis) ClearAll(ctx context.Context) error {
	return p.rdb.FlushDB(ctx).Err()
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
