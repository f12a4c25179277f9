package cachekit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/cachekit/keys"
	"github.com/unkn0wn-root/cachekit/ttl"
)

// Cache is the typed view of an Expander for one entity type. It is cheap to
// create and safe for concurrent use.
type Cache[T Entity] struct {
	x      *Expander
	prefix string
}

// NewCache binds T to x. The prefix reported by T's zero value must be
// non-empty and free of the key separator.
func NewCache[T Entity](x *Expander) (*Cache[T], error) {
	if x == nil {
		return nil, &Error{Kind: ErrConfig, Op: "new cache", Err: errors.New("expander is nil")}
	}
	var zero T
	prefix := zero.CachePrefix()
	if err := keys.ValidatePrefix(prefix); err != nil {
		return nil, &Error{Kind: ErrValidation, Op: "cache prefix", Err: err}
	}
	return &Cache[T]{x: x, prefix: prefix}, nil
}

func (c *Cache[T]) Prefix() string         { return c.prefix }
func (c *Cache[T]) Key(id string) string   { return keys.Build(c.prefix, id) }
func (c *Cache[T]) Expander() *Expander    { return c.x }
func (c *Cache[T]) Builder() *Operation[T] { return newOperation(c) }

// With runs one operation with the given strategy and the expander's current
// TTL policy.
func (c *Cache[T]) With(ctx context.Context, f Feeder[T], r Repository[T], s Strategy) error {
	return c.run(ctx, f, r, s, nil)
}

// run executes a single attempt. override, when non-nil, replaces the shared
// TTL policy for this attempt only.
func (c *Cache[T]) run(ctx context.Context, f Feeder[T], r Repository[T], s Strategy, override ttl.Policy) error {
	start := time.Now()

	if v, ok := f.(FeedValidator); ok {
		if err := v.Validate(); err != nil {
			return newError(ErrValidation, "", "validate feeder", err)
		}
	}

	key := c.Key(f.EntityID())
	policy := override
	if policy == nil {
		policy = c.x.TTLPolicy()
	}
	c.x.log.Debug("cache operation", Fields{"key": key, "strategy": s.String()})

	var (
		v         T
		found     bool
		fromCache bool
		err       error
	)
	switch s {
	case Fresh:
		v, found, err = c.read(ctx, key)
		fromCache = found
	case Refresh:
		v, found, err = c.read(ctx, key)
		fromCache = found
		if err == nil && !found {
			v, found, err = c.load(ctx, key, r, policy)
		}
	case Invalidate:
		if derr := c.x.backend.Delete(ctx, key); derr != nil {
			err = newError(ErrBackend, key, "backend delete", derr)
			break
		}
		v, found, err = c.load(ctx, key, r, policy)
	case Bypass:
		v, found, err = c.load(ctx, key, r, policy)
	default:
		err = newError(ErrValidation, key, "strategy", fmt.Errorf("unknown %s", s))
	}
	if err != nil {
		return c.fail(key, err)
	}

	if !found {
		if h, ok := f.(MissHook); ok {
			if herr := h.OnMiss(key); herr != nil {
				return c.fail(key, hookError(key, "on_miss", herr))
			}
		}
		var zero T
		f.Feed(zero, false)
		c.x.metrics.RecordMiss(key, time.Since(start))
		c.x.log.Debug("cache miss", Fields{"key": key, "strategy": s.String()})
		return nil
	}

	if ev, ok := any(v).(Validator); ok {
		if verr := ev.Validate(); verr != nil {
			return c.fail(key, newError(ErrValidation, key, "validate entity", verr))
		}
	}
	if fromCache {
		if h, ok := f.(HitHook); ok {
			if herr := h.OnHit(key); herr != nil {
				return c.fail(key, hookError(key, "on_hit", herr))
			}
		}
	} else if h, ok := f.(LoadHook[T]); ok {
		if herr := h.OnLoaded(v); herr != nil {
			return c.fail(key, hookError(key, "on_loaded", herr))
		}
	}

	f.Feed(v, true)
	c.x.metrics.RecordHit(key, time.Since(start))
	c.x.log.Debug("cache hit", Fields{"key": key, "strategy": s.String(), "from_cache": fromCache})
	return nil
}

func (c *Cache[T]) fail(key string, err error) error {
	c.x.metrics.RecordError(key, err.Error())
	return err
}

// read consults the backend only. Undecodable entries are errors, not misses.
func (c *Cache[T]) read(ctx context.Context, key string) (T, bool, error) {
	var zero T
	raw, ok, err := c.x.backend.Get(ctx, key)
	if err != nil {
		return zero, false, newError(ErrBackend, key, "backend get", err)
	}
	if !ok {
		return zero, false, nil
	}
	v, err := c.decode(key, raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (c *Cache[T]) decode(key string, raw []byte) (T, error) {
	v, err := Decode[T](c.x.env, raw)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Key = key
		}
		return v, err
	}
	return v, nil
}

// load fetches from the repository and writes the entity back. A failed
// backend write is logged and otherwise ignored.
func (c *Cache[T]) load(ctx context.Context, key string, r Repository[T], policy ttl.Policy) (T, bool, error) {
	var zero T
	id, err := keys.ExtractID(key)
	if err != nil {
		return zero, false, newError(ErrValidation, key, "extract id", err)
	}
	v, found, err := c.fetch(ctx, key, id, r)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}

	raw, err := c.x.env.Encode(v)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Key = key
		}
		return zero, false, err
	}
	d, _ := policy.TTL(c.prefix)
	if err := c.x.backend.Set(ctx, key, raw, d); err != nil {
		c.x.log.Warn("cache write-through failed", Fields{"key": key, "err": err.Error()})
	}
	return v, true, nil
}

type fetched[T any] struct {
	v     T
	found bool
}

func (c *Cache[T]) fetch(ctx context.Context, key, id string, r Repository[T]) (T, bool, error) {
	if r == nil {
		var zero T
		return zero, false, newError(ErrConfig, key, "repository", errors.New("repository is nil"))
	}
	call := func() (T, bool, error) {
		v, found, err := r.FetchByID(ctx, id)
		if err != nil {
			var zero T
			return zero, false, newError(ErrRepository, key, "fetch by id", err)
		}
		return v, found, nil
	}
	if c.x.flights == nil {
		return call()
	}

	res, err, _ := c.x.flights.Do(key, func() (any, error) {
		v, found, err := call()
		return fetched[T]{v: v, found: found}, err
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	out := res.(fetched[T])
	return out.v, out.found, nil
}

// Put writes v under "<prefix>:<v.CacheKey()>" with the current TTL policy.
// Unlike write-through, backend failures are returned.
func (c *Cache[T]) Put(ctx context.Context, v T) error {
	id := v.CacheKey()
	if id == "" {
		return newError(ErrValidation, "", "put", errEmptyID)
	}
	key := c.Key(id)
	raw, err := c.x.env.Encode(v)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Key = key
		}
		return err
	}
	d, _ := c.x.TTLPolicy().TTL(c.prefix)
	if err := c.x.backend.Set(ctx, key, raw, d); err != nil {
		return newError(ErrBackend, key, "backend set", err)
	}
	return nil
}

// GetMany reads ids from cache only, like Fresh. values and found are
// parallel to ids. The repository is never consulted.
func (c *Cache[T]) GetMany(ctx context.Context, ids []string) (values []T, found []bool, err error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	start := time.Now()
	ks := keys.BuildMany(c.prefix, ids)
	raws, err := c.x.backend.MGet(ctx, ks)
	if err != nil {
		err = newError(ErrBackend, "", "backend mget", err)
		c.x.metrics.RecordError(c.prefix+keys.Sep+"*", err.Error())
		return nil, nil, err
	}
	if len(raws) != len(ks) {
		err = newError(ErrBackend, "", "backend mget", fmt.Errorf("got %d values for %d keys", len(raws), len(ks)))
		c.x.metrics.RecordError(c.prefix+keys.Sep+"*", err.Error())
		return nil, nil, err
	}

	values = make([]T, len(ids))
	found = make([]bool, len(ids))
	for i, raw := range raws {
		if raw == nil {
			c.x.metrics.RecordMiss(ks[i], time.Since(start))
			continue
		}
		v, err := c.decode(ks[i], raw)
		if err != nil {
			return nil, nil, c.fail(ks[i], err)
		}
		values[i], found[i] = v, true
		c.x.metrics.RecordHit(ks[i], time.Since(start))
	}
	return values, found, nil
}

// Forget deletes the entries for ids. Per-key failures are swallowed by the
// backend; only a failure of the whole call is returned.
func (c *Cache[T]) Forget(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.x.backend.MDelete(ctx, keys.BuildMany(c.prefix, ids)); err != nil {
		return newError(ErrBackend, "", "backend mdelete", err)
	}
	return nil
}
