package cachekit

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/cachekit/backend"
	"github.com/unkn0wn-root/cachekit/codec"
	"github.com/unkn0wn-root/cachekit/ttl"
)

// Options configure an Expander. Only Backend is required; others have
// sensible defaults.
type Options struct {
	// Required
	Backend backend.Backend

	Codec         codec.Codec // payload serializer; nil => msgpack
	SchemaVersion uint32      // envelope version; 0 => 1
	TTL           ttl.Policy  // nil => ttl.Fixed(10m)
	Metrics       Metrics     // nil => NopMetrics
	Logger        Logger      // nil => NopLogger

	// Coalesce shares one in-flight repository fetch between concurrent
	// misses on the same key. Off by default.
	Coalesce bool
}

// Expander owns everything that is shared between typed caches: the backend,
// the envelope, the TTL policy and the observability sinks. It is safe for
// concurrent use. Bind entity types with NewCache.
type Expander struct {
	backend backend.Backend
	env     Envelope
	metrics Metrics
	log     Logger

	policy  atomic.Pointer[policyBox]
	flights *singleflight.Group // nil unless Options.Coalesce
}

// atomic.Pointer needs a concrete type.
type policyBox struct{ p ttl.Policy }

func New(opts Options) (*Expander, error) {
	if opts.Backend == nil {
		return nil, &Error{Kind: ErrConfig, Op: "new expander", Err: errNoBackend}
	}

	cd := opts.Codec
	if cd == nil {
		cd = codec.Default()
	}
	var pol ttl.Policy = ttl.Fixed(defaultTTL)
	if opts.TTL != nil {
		pol = opts.TTL
	}
	var m Metrics = NopMetrics{}
	if opts.Metrics != nil {
		m = opts.Metrics
	}
	var lg Logger = NopLogger{}
	if opts.Logger != nil {
		lg = opts.Logger
	}

	x := &Expander{
		backend: opts.Backend,
		env:     NewEnvelope(cd, coalesce(opts.SchemaVersion, defaultSchemaVersion)),
		metrics: m,
		log:     lg,
	}
	x.policy.Store(&policyBox{p: pol})
	if opts.Coalesce {
		x.flights = &singleflight.Group{}
	}
	return x, nil
}

// TTLPolicy returns the policy used by operations without a TTL override.
func (x *Expander) TTLPolicy() ttl.Policy { return x.policy.Load().p }

// SetTTLPolicy replaces the shared policy. Operations already running keep
// the policy they started with.
func (x *Expander) SetTTLPolicy(p ttl.Policy) {
	if p == nil {
		p = ttl.Fixed(defaultTTL)
	}
	x.policy.Store(&policyBox{p: p})
}

func (x *Expander) Backend() backend.Backend { return x.backend }
func (x *Expander) Envelope() Envelope       { return x.env }

// HealthCheck reports backend liveness. A backend error is wrapped as ErrBackend.
func (x *Expander) HealthCheck(ctx context.Context) (bool, error) {
	ok, err := x.backend.HealthCheck(ctx)
	if err != nil {
		return false, newError(ErrBackend, "", "health check", err)
	}
	return ok, nil
}

// ClearAll drops every entry in the backend, not only those written by this
// expander.
func (x *Expander) ClearAll(ctx context.Context) error {
	x.log.Warn("clearing all cache entries", nil)
	if err := x.backend.ClearAll(ctx); err != nil {
		return newError(ErrBackend, "", "clear all", err)
	}
	return nil
}

func (x *Expander) Close(ctx context.Context) error {
	if err := x.backend.Close(ctx); err != nil {
		return newError(ErrBackend, "", "close", err)
	}
	return nil
}
