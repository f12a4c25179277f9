package cachekit

import "context"

// Entity is a cacheable value. CacheKey returns the entity's id, the same
// value a Feeder reports from EntityID; the stored key is "<prefix>:<id>".
// CachePrefix is called on the zero value of the type, so it must return a
// constant and must not read receiver fields.
type Entity interface {
	CacheKey() string
	CachePrefix() string
}

// Validator is implemented by entities that can check their own integrity.
// It runs on every resolved entity, whether it came from cache or from the
// repository.
type Validator interface {
	Validate() error
}

// Feeder supplies the id of the entity it wants and receives the outcome.
// Feed is called exactly once per successful operation and never on error.
type Feeder[T any] interface {
	EntityID() string
	Feed(value T, found bool)
}

// Optional feeder hooks. A hook error aborts the operation before Feed.
type (
	// FeedValidator runs before the cache key is built.
	FeedValidator interface{ Validate() error }
	// HitHook runs when the entity was served from cache.
	HitHook interface{ OnHit(key string) error }
	// MissHook runs when the entity is absent.
	MissHook interface{ OnMiss(key string) error }
	// LoadHook runs when the entity was loaded from the repository.
	LoadHook[T any] interface{ OnLoaded(value T) error }
)

// Repository is the system of record. Absence is (zero, false, nil), not an
// error.
type Repository[T any] interface {
	FetchByID(ctx context.Context, id string) (T, bool, error)
}

// RepositoryFunc adapts a function to Repository.
type RepositoryFunc[T any] func(ctx context.Context, id string) (T, bool, error)

func (f RepositoryFunc[T]) FetchByID(ctx context.Context, id string) (T, bool, error) {
	return f(ctx, id)
}
