// usage:
//
//	raw := slogmetrics.New(slog.Default(), slogmetrics.Options{HitEvery: 100})
//	m := asyncmetrics.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer m.Close()
//
//	x, _ := cachekit.New(cachekit.Options{Backend: be, Metrics: m})
package asyncmetrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cachekit"
)

// Metrics forwards events to inner on background workers. When the queue is
// full events are dropped, never blocking the caller.
type Metrics struct {
	inner   cachekit.Metrics
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ cachekit.Metrics = (*Metrics)(nil)

func New(inner cachekit.Metrics, workers, qlen int) *Metrics {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	m := &Metrics{inner: inner, q: make(chan func(), qlen)}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer m.wg.Done()
			for f := range m.q {
				f()
			}
		}()
	}
	return m
}

// Close drains queued events and stops the workers. Events recorded after
// Close are dropped.
func (m *Metrics) Close() {
	m.once.Do(func() {
		m.closed.Store(true)
		close(m.q)
		m.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (m *Metrics) Dropped() uint64 { return m.dropped.Load() }

func (m *Metrics) try(f func()) {
	if m.closed.Load() {
		m.dropped.Add(1)
		return
	}
	defer func() {
		// send on a channel closed by a concurrent Close
		if recover() != nil {
			m.dropped.Add(1)
		}
	}()
	select {
	case m.q <- f:
	default:
		m.dropped.Add(1)
	}
}

func (m *Metrics) RecordHit(k string, d time.Duration)  { m.try(func() { m.inner.RecordHit(k, d) }) }
func (m *Metrics) RecordMiss(k string, d time.Duration) { m.try(func() { m.inner.RecordMiss(k, d) }) }
func (m *Metrics) RecordError(k, msg string)            { m.try(func() { m.inner.RecordError(k, msg) }) }
