package log

import (
	"errors"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (log.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewKratosAdapter(zap.New(core)), logs
}

func TestKratosAdapter_MessageAndFields(t *testing.T) {
	logger, logs := newObserved(zapcore.DebugLevel)

	log.NewHelper(logger).Infow("msg", "research finished", "technology", "htmx", "quality", 0.82)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "research finished", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "htmx", fields["technology"])
	assert.Equal(t, 0.82, fields["quality"])
	assert.NotContains(t, fields, "msg")
}

func TestKratosAdapter_Levels(t *testing.T) {
	logger, logs := newObserved(zapcore.DebugLevel)

	tests := []struct {
		level log.Level
		want  zapcore.Level
	}{
		{log.LevelDebug, zapcore.DebugLevel},
		{log.LevelInfo, zapcore.InfoLevel},
		{log.LevelWarn, zapcore.WarnLevel},
		{log.LevelError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		require.NoError(t, logger.Log(tt.level, "msg", "x"))
	}
	require.Equal(t, len(tests), logs.Len())
	for i, tt := range tests {
		assert.Equal(t, tt.want, logs.All()[i].Level)
	}
}

func TestKratosAdapter_SanitizesValues(t *testing.T) {
	logger, logs := newObserved(zapcore.InfoLevel)

	require.NoError(t, logger.Log(log.LevelInfo,
		"msg", "provider configured",
		"api_key", "BSAabcdefghijklmnop",
		"url", "https://www.googleapis.com/customsearch/v1?cx=abc&key=AIzaSyExampleKey123",
		"error", errors.New("token expired"),
	))

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "BSAa***********mnop", fields["api_key"])
	assert.NotContains(t, fields["url"], "AIzaSyExampleKey123")
	assert.Contains(t, fields["url"], "cx=abc")
	assert.Equal(t, "token expired", fields["error"])
}

func TestKratosAdapter_EmptyAndUnpaired(t *testing.T) {
	logger, logs := newObserved(zapcore.InfoLevel)

	assert.NoError(t, logger.Log(log.LevelInfo))
	assert.Zero(t, logs.Len())

	assert.NoError(t, logger.Log(log.LevelInfo, "msg", "odd", "dangling"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "KEYVALS UNPAIRED", logs.All()[0].ContextMap()["dangling"])
}
