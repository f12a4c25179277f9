// Package cachekit implements cache-aside over any byte store. A caller asks
// for an entity by id through a Feeder; the strategy of the operation decides
// whether the answer comes from the cache, from the repository (the system of
// record) or both, and whether the cache is written back.
//
// Components:
//   - Backend: byte store with TTL (memory, Redis, Memcached, Ristretto,
//     BigCache, bbolt). See package backend.
//   - Envelope: magic | schema version | payload, payload encoded by a
//     codec.Codec (msgpack by default).
//   - ttl.Policy: expiry per entity prefix.
//   - Expander: shared state. Cache[T] binds an entity type to it.
//
// Keys:
//
//	<prefix>:<id>   - prefix from T.CachePrefix(), id from Feeder.EntityID()
//
// Strategies:
//
//	Fresh       cache only, a miss is reported as absent
//	Refresh     cache, then repository on a miss, then write back
//	Invalidate  delete, repository, write back
//	Bypass      repository, write back
//
// Usage:
//
//	x, _ := cachekit.New(cachekit.Options{Backend: memory.New(time.Minute)})
//	users, _ := cachekit.NewCache[User](x)
//	f := cachekit.NewFeeder[User]("42")
//	err := users.Builder().WithRetry(2).Execute(ctx, f, repo)
//
// Write-back is best effort: a failed backend write is logged and the
// operation still succeeds with the loaded entity.
package cachekit
