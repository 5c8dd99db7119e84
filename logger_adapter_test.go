package cloudx

import (
	"testing"

	"github.com/gostratum/core/logx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLeveledLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewLeveledLogger(zap.New(core))

	l.Debug("retrying request", "attempt", 1)
	l.Info("info", "k", "v")
	l.Warn("warn")
	l.Error("request failed", "url", "http://example.com")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(1), entries[0].ContextMap()["attempt"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "http://example.com", entries[3].ContextMap()["url"])
}

func TestLeveledLogger_Nil(t *testing.T) {
	l := NewLeveledLogger(nil)
	assert.NotPanics(t, func() { l.Warn("dropped") })
}

func TestNewZapFromLogx(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapFromLogx(logx.ProvideAdapter(zap.New(core)))

	logger.With(zap.String("provider", "s3")).Info("client built", zap.Int("attempts", 3))
	logger.Debug("cache hit")
	logger.Warn("region not set", zap.String("bucket", "data"))
	logger.Error("build failed")

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, "client built", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "s3", entries[0].ContextMap()["provider"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["attempts"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "data", entries[2].ContextMap()["bucket"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestNewZapFromLogx_Nil(t *testing.T) {
	assert.NotPanics(t, func() { NewZapFromLogx(nil).Info("dropped") })
}
