// Package backend defines the storage capability used by cachekit.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression, expiry headers), they MUST be fully reversed so that the
// bytes returned by Get are identical to the bytes provided to Set.
//
// No transactional or locking guarantees are required. cachekit assumes last
// write wins at the key level.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrRejected is returned by Set when the store declined the write
// (admission policy, memory pressure). The value is simply not cached.
var ErrRejected = errors.New("backend: write rejected")

// Backend is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key currently holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// MGet returns one entry per key, in input order; nil marks a miss.
	MGet(ctx context.Context, keys []string) ([][]byte, error)

	// MDelete removes keys best-effort. Per-key failures are swallowed;
	// only a failure that prevents the whole batch is returned.
	MDelete(ctx context.Context, keys []string) error

	// HealthCheck reports whether the store is reachable. An unhealthy store
	// answers (false, nil); err is reserved for failures of the check itself.
	HealthCheck(ctx context.Context) (bool, error)

	// ClearAll wipes every key the backend can reach. Destructive.
	ClearAll(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
