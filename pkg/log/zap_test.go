package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"StackScout/internal/conf"
)

func TestNewZapLogger_NilConfig(t *testing.T) {
	_, err := NewZapLogger(nil)
	assert.ErrorContains(t, err, "log config is nil")
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	_, err := NewZapLogger(&conf.Log{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestNewZapLogger_DefaultsToInfo(t *testing.T) {
	logger, err := NewZapLogger(&conf.Log{Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewZapLogger_WritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "stackscout.log")
	logger, err := NewZapLogger(&conf.Log{Level: "debug", Format: "json", Env: "production", OutputFile: file})
	require.NoError(t, err)

	logger.Debug("cache swept", zap.Int("expired", 2))
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"cache swept"`)
	assert.Contains(t, string(data), `"service":"stackscout"`)
	assert.Contains(t, string(data), `"env":"production"`)
}

func TestEnvironment(t *testing.T) {
	t.Setenv(EnvVar, "")
	assert.Equal(t, "production", Environment(&conf.Log{}))
	assert.Equal(t, "production", Environment(nil))

	t.Setenv(EnvVar, "development")
	assert.Equal(t, "development", Environment(&conf.Log{}))
	assert.Equal(t, "staging", Environment(&conf.Log{Env: "staging"}))
}

func TestNewEncoder(t *testing.T) {
	t.Setenv(EnvVar, "")
	_, ok := NewEncoder(&conf.Log{Format: "console"}).(*EmojiConsoleEncoder)
	assert.True(t, ok)
	_, ok = NewEncoder(&conf.Log{Format: "json", Env: "development"}).(*EmojiConsoleEncoder)
	assert.True(t, ok)
	_, ok = NewEncoder(&conf.Log{Format: "json"}).(*EmojiConsoleEncoder)
	assert.False(t, ok)
}
