package cachekit

import (
	"context"
	"time"

	"github.com/unkn0wn-root/cachekit/ttl"
)

// Operation configures a single call with a strategy, an optional TTL
// override and a retry budget. The override lives on the Operation and is
// never written to the Expander, so concurrent operations with different
// overrides do not interfere.
type Operation[T Entity] struct {
	c        *Cache[T]
	strategy Strategy
	ttl      ttl.Policy
	retries  int
}

func newOperation[T Entity](c *Cache[T]) *Operation[T] {
	return &Operation[T]{c: c, strategy: Refresh}
}

func (o *Operation[T]) WithStrategy(s Strategy) *Operation[T] {
	o.strategy = s
	return o
}

// WithTTL overrides the TTL of any write this operation makes. d <= 0 means
// no expiry.
func (o *Operation[T]) WithTTL(d time.Duration) *Operation[T] {
	o.ttl = ttl.Fixed(d)
	return o
}

// WithRetry allows n retries after the first attempt. Negative n is treated
// as zero.
func (o *Operation[T]) WithRetry(n int) *Operation[T] {
	o.retries = max(n, 0)
	return o
}

// Execute runs the operation, retrying any failure with exponential backoff
// starting at 100ms. The error of the last attempt is returned as is. If ctx
// is done while waiting between attempts, the previous error is returned
// without trying again.
func (o *Operation[T]) Execute(ctx context.Context, f Feeder[T], r Repository[T]) error {
	attempts := o.retries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = o.c.run(ctx, f, r, o.strategy, o.ttl); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		delay := backoff(attempt)
		o.c.x.log.Debug("retrying cache operation", Fields{
			"attempt": attempt,
			"delay":   delay.String(),
			"err":     err.Error(),
		})
		if sleep(ctx, delay) != nil {
			return err
		}
	}
	return err
}

// backoff returns the wait after the given failed attempt (1-based).
func backoff(attempt int) time.Duration {
	shift := min(attempt-1, 30)
	return baseBackoff << shift
}

// sleep is swapped out in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
