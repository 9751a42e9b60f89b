package data

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StackScout/internal/conf"
	"StackScout/internal/metrics"
)

func TestNewRedisClient_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	c := &conf.Data{
		Redis: &conf.Redis{
			Addr:         mr.Addr(),
			ReadTimeout:  200 * time.Millisecond,
			WriteTimeout: 200 * time.Millisecond,
		},
	}

	client, cleanup, err := NewRedisClient(c, log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer cleanup()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	c := &conf.Data{
		Redis: &conf.Redis{
			Addr:         "127.0.0.1:1",
			ReadTimeout:  200 * time.Millisecond,
			WriteTimeout: 200 * time.Millisecond,
		},
	}

	client, cleanup, err := NewRedisClient(c, log.DefaultLogger)
	defer cleanup()

	assert.NoError(t, err)
	assert.NotNil(t, client, "client is returned for graceful degradation")
}

func TestNewRedisClient_Disabled(t *testing.T) {
	for _, c := range []*conf.Data{nil, {}, {Redis: &conf.Redis{}}} {
		client, cleanup, err := NewRedisClient(c, log.DefaultLogger)
		assert.NoError(t, err)
		assert.Nil(t, client)
		assert.NotNil(t, cleanup)
		cleanup()
	}
}

func TestNewCacheMedium(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := newTestRedis(t, mr)

	m, err := NewCacheMedium(&conf.Cache{Backend: "redis", KeyPrefix: "t"}, rdb, log.DefaultLogger)
	require.NoError(t, err)
	assert.IsType(t, &RedisMedium{}, m)

	_, err = NewCacheMedium(&conf.Cache{Backend: "redis"}, nil, log.DefaultLogger)
	assert.Error(t, err)

	m, err = NewCacheMedium(&conf.Cache{Backend: "file", Dir: t.TempDir()}, nil, log.DefaultLogger)
	require.NoError(t, err)
	assert.IsType(t, &FileMedium{}, m)
}

func TestNewCacheStore_ExportsMetrics(t *testing.T) {
	medium, err := NewFileMedium(t.TempDir())
	require.NoError(t, err)
	m := metrics.New()

	s, cleanup, err := NewCacheStore(&conf.Cache{DefaultTTL: time.Hour, MaxSizeMB: 1, MaxVersions: 2}, medium, m, log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	_, err = s.Get(ctx, "k")
	require.NoError(t, err)
	_, err = s.Get(ctx, "missing")
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "stackscout_cache_hits_total 1")
	assert.Contains(t, rec.Body.String(), "stackscout_cache_misses_total 1")
}
