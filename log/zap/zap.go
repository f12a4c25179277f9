package zap

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/cachekit"
)

var _ cachekit.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New wraps l. A nil l logs nothing.
func New(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l.With(zap.String("component", "cachekit"))}
}

func (z ZapLogger) Debug(msg string, f cachekit.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f cachekit.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f cachekit.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f cachekit.Fields) { z.L.Error(msg, zf(f)...) }

// zf emits fields in key order so output is stable.
func zf(f cachekit.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
