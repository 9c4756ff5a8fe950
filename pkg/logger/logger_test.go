package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInitAndGet(t *testing.T) {
	require.NoError(t, Init(Config{Level: "warn", Encoding: "console"}))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
}

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	ctx := context.WithValue(context.Background(), ComponentKey, "stream")
	ctx = context.WithValue(ctx, StreamKey, "batches")
	WithContext(ctx).Debug("next array")
	Named("memory").Debug("allocation failed", zap.Int64("bytes", 64))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "stream", entries[0].ContextMap()["component"])
	assert.Equal(t, "batches", entries[0].ContextMap()["stream"])
	assert.Equal(t, "memory", entries[1].ContextMap()["component"])
	assert.Equal(t, int64(64), entries[1].ContextMap()["bytes"])
}

func TestSetNilInstallsNop(t *testing.T) {
	Set(nil)
	assert.False(t, Get().Core().Enabled(zapcore.ErrorLevel))
	assert.NoError(t, Sync())
}
