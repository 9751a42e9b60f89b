package log

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogHelper_TypedEntries(t *testing.T) {
	logger, logs := newObserved(zapcore.DebugLevel)
	h := NewLogHelper(logger)

	h.Startup("listening", "addr", ":8000")
	h.Scheduler("cache sweep done")
	h.Research("batch accepted", "technologies", 2)
	h.Breaker("circuit opened", "provider", "brave")
	h.Database("technology saved")

	entries := logs.All()
	require.Len(t, entries, 5)
	types := make([]string, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.ContextMap()["type"].(string))
	}
	assert.Equal(t, []string{"startup", "scheduler", "research", "breaker", "database"}, types)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[4].Level)
	assert.Equal(t, ":8000", entries[0].ContextMap()["addr"])
}

func TestLogHelper_RequestWithContext(t *testing.T) {
	logger, logs := newObserved(zapcore.InfoLevel)
	h := NewLogHelper(logger)
	ctx := WithRequestContext(context.Background(), "req-42")
	SetSessionID(ctx, "sess-1")

	h.RequestWithContext(ctx, "POST", "/v1/research", 202, 15*time.Millisecond)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "POST /v1/research - 202 (15ms)", logs.All()[0].Message)
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "sess-1", fields["session_id"])
	assert.EqualValues(t, 202, fields["status"])

	h.RequestWithContext(ctx, "GET", "/v1/research/x", 200, 3*time.Second)
	require.Equal(t, 3, logs.Len())
	assert.Equal(t, "slow_request", logs.All()[2].ContextMap()["type"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[2].Level)
}

func TestLogHelper_CacheStats(t *testing.T) {
	logger, logs := newObserved(zapcore.InfoLevel)
	NewLogHelper(logger).CacheStats("research", 3, 1, 2, 0, 0)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "75.00%", fields["hit_rate"])
	assert.EqualValues(t, 2, fields["expired"])
}
