package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*LoggerClient, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &LoggerClient{Zap: zap.New(core)}, logs
}

func TestLoggerClient_Fields(t *testing.T) {
	log, logs := newObserved(zap.DebugLevel)

	log.Error("Failed to delete collection", errors.New("boom"),
		map[string]interface{}{"collection": "docs"},
		map[string]interface{}{"collection": "override", "items": 3},
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Failed to delete collection", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "override", ctx["collection"])
	assert.EqualValues(t, 3, ctx["items"])
}

func TestLoggerClient_Levels(t *testing.T) {
	log, logs := newObserved(zap.WarnLevel)

	log.Debug("dropped", nil)
	log.Info("dropped", nil)
	log.Warn("kept", nil)
	log.Error("kept", nil)

	assert.Equal(t, 2, logs.FilterMessage("kept").Len())
	assert.Zero(t, logs.FilterMessage("dropped").Len())
}

func TestLoggerClient_Named(t *testing.T) {
	log, logs := newObserved(zap.InfoLevel)

	log.Named("cache").Info("Cache cleared", nil)
	log.Named("provider").Named("qdrant").Info("Connected", nil)

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "cache", all[0].LoggerName)
	assert.Equal(t, "provider.qdrant", all[1].LoggerName)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, parseLevel(Debug))
	assert.Equal(t, zap.InfoLevel, parseLevel(Info))
	assert.Equal(t, zap.WarnLevel, parseLevel(Warning))
	assert.Equal(t, zap.ErrorLevel, parseLevel(Error))
	assert.Equal(t, zap.InfoLevel, parseLevel("verbose"))
}

func TestNewLoggerClient(t *testing.T) {
	log := NewLoggerClient(Config{Level: Debug, ServiceName: "vector-inspector", Development: true})
	require.NotNil(t, log.Zap)
	assert.True(t, log.Zap.Core().Enabled(zap.DebugLevel))

	NewNop().Info("discarded", nil)
}
