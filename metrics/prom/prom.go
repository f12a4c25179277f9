// Package prom exports cachekit metrics to Prometheus. Series are labelled
// by entity prefix only; full keys would give unbounded cardinality.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/cachekit"
	"github.com/unkn0wn-root/cachekit/keys"
)

type Options struct {
	Namespace   string // default "cachekit"
	ConstLabels prometheus.Labels
	// Buckets for the latency histogram, in seconds. Nil uses
	// prometheus.DefBuckets.
	Buckets []float64
}

// Metrics implements cachekit.Metrics.
type Metrics struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ cachekit.Metrics = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, opts Options) (*Metrics, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = "cachekit"
	}
	buckets := opts.Buckets
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "hits_total",
			ConstLabels: opts.ConstLabels,
			Help:        "Total number of operations that resolved an entity",
		}, []string{"prefix"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "misses_total",
			ConstLabels: opts.ConstLabels,
			Help:        "Total number of operations that found no entity",
		}, []string{"prefix"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "errors_total",
			ConstLabels: opts.ConstLabels,
			Help:        "Total number of failed operations",
		}, []string{"prefix"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Name:        "operation_duration_seconds",
			ConstLabels: opts.ConstLabels,
			Help:        "Latency of successful operations",
			Buckets:     buckets,
		}, []string{"prefix", "outcome"}),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.errors, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on registration failure.
func MustNew(reg prometheus.Registerer, opts Options) *Metrics {
	m, err := New(reg, opts)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) RecordHit(key string, d time.Duration) {
	p := prefixOf(key)
	m.hits.WithLabelValues(p).Inc()
	m.duration.WithLabelValues(p, "hit").Observe(d.Seconds())
}

func (m *Metrics) RecordMiss(key string, d time.Duration) {
	p := prefixOf(key)
	m.misses.WithLabelValues(p).Inc()
	m.duration.WithLabelValues(p, "miss").Observe(d.Seconds())
}

func (m *Metrics) RecordError(key string, _ string) {
	m.errors.WithLabelValues(prefixOf(key)).Inc()
}

func prefixOf(key string) string {
	if p := keys.Prefix(key); p != "" {
		return p
	}
	return "unknown"
}
