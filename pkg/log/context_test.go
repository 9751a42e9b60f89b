package log

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestID(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{10}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		assert.Regexp(t, re, id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 95)
}

func TestRequestContext(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "req-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Empty(t, GetSessionID(ctx))

	SetSessionID(ctx, "sess-1")
	assert.Equal(t, "sess-1", GetSessionID(ctx))

	SetMetadata(ctx, "technologies", 3)
	v, ok := GetMetadata(ctx, "technologies")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	assert.GreaterOrEqual(t, GetElapsedTime(ctx), int64(0))
}

func TestRequestContext_GeneratedAndMissing(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "")
	assert.Len(t, GetRequestID(ctx), 10)

	assert.Equal(t, "unknown", GetRequestID(context.Background()))
	assert.Zero(t, GetElapsedTime(context.Background()))
	_, ok := GetMetadata(context.Background(), "x")
	assert.False(t, ok)
}

func TestRequestContext_ConcurrentMetadata(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "req")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			SetMetadata(ctx, "k", i)
			_, _ = GetMetadata(ctx, "k")
		}(i)
	}
	wg.Wait()
	_, ok := GetMetadata(ctx, "k")
	assert.True(t, ok)
}
