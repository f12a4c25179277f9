package cachekit

import "time"

// Metrics observes operation outcomes. Implementations MUST be cheap and
// non-blocking: they run on the request path. Wrap slow sinks with
// metrics/async.
//
// A hit is any call that resolved an entity, whether from cache or from the
// repository; a miss is a confirmed absence.
type Metrics interface {
	RecordHit(key string, d time.Duration)
	RecordMiss(key string, d time.Duration)
	RecordError(key string, msg string)
}

// NopMetrics is the default no-op.
type NopMetrics struct{}

func (NopMetrics) RecordHit(string, time.Duration)  {}
func (NopMetrics) RecordMiss(string, time.Duration) {}
func (NopMetrics) RecordError(string, string)       {}
