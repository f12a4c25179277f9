package cachekit

import "time"

const (
	defaultTTL           = 10 * time.Minute
	defaultSchemaVersion = 1
	baseBackoff          = 100 * time.Millisecond
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
