package zap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/cachekit"
)

func TestLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("cache operation", cachekit.Fields{"strategy": "refresh", "key": "user:1"})
	l.Warn("cache write-through failed", cachekit.Fields{"key": "user:1"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "cachekit", ctx["component"])
	assert.Equal(t, "user:1", ctx["key"])
	assert.Equal(t, "refresh", ctx["strategy"])
	assert.Equal(t, "key", entries[0].Context[1].Key)
}

func TestNilLogger(t *testing.T) {
	assert.NotPanics(t, func() { New(nil).Error("x", nil) })
}
