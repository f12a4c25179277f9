package slogmetrics

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cachekit"
	"github.com/unkn0wn-root/cachekit/keys"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all. Errors are never sampled.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to prefix plus a SHA-256 prefix of the id.
	Redact func(string) string
}

// Metrics writes operation outcomes to a slog.Logger.
type Metrics struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ cachekit.Metrics = (*Metrics)(nil)

func New(l *slog.Logger, opts Options) *Metrics {
	return &Metrics{l: l, opts: opts}
}

func (m *Metrics) redact(k string) string {
	if m.opts.Redact != nil {
		return m.opts.Redact(k)
	}
	prefix, id, err := keys.Split(k)
	if err != nil {
		prefix, id = "", k
	}
	sum := sha256.Sum256([]byte(id))
	return prefix + keys.Sep + hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (m *Metrics) RecordHit(key string, d time.Duration) {
	if m.l == nil || !sample(m.opts.HitEvery, &m.hitCtr) {
		return
	}
	m.l.Debug("cachekit.hit",
		"key", m.redact(key),
		"elapsed", d)
}

func (m *Metrics) RecordMiss(key string, d time.Duration) {
	if m.l == nil || !sample(m.opts.MissEvery, &m.missCtr) {
		return
	}
	m.l.Debug("cachekit.miss",
		"key", m.redact(key),
		"elapsed", d)
}

func (m *Metrics) RecordError(key string, msg string) {
	if m.l == nil {
		return
	}
	m.l.Warn("cachekit.error",
		"key", m.redact(key),
		"err", msg)
}
