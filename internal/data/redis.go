package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"StackScout/internal/conf"
	"StackScout/internal/metrics"
)

// NewRedisClient creates a Redis client with connection pool configuration.
// An empty address disables Redis and returns a nil client. A failed ping
// is logged and the client is returned anyway (graceful degradation).
func NewRedisClient(c *conf.Data, logger log.Logger) (*redis.Client, func(), error) {
	helper := log.NewHelper(logger)

	if c == nil || c.Redis == nil || c.Redis.Addr == "" {
		helper.Info("Redis address is empty, skipping Redis initialization")
		return nil, func() {}, nil
	}

	network := c.Redis.Network
	if network == "" {
		network = "tcp"
	}
	rdb := redis.NewClient(&redis.Options{
		Network:         network,
		Addr:            c.Redis.Addr,
		Password:        c.Redis.Password,
		DB:              c.Redis.DB,
		PoolSize:        50,
		MinIdleConns:    5,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     c.Redis.ReadTimeout,
		WriteTimeout:    c.Redis.WriteTimeout,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cleanup := func() {
		helper.Info("closing Redis client")
		if err := rdb.Close(); err != nil {
			helper.Errorf("failed to close Redis client: %v", err)
		}
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		helper.Warnw("msg", "failed to connect to Redis, continuing in degraded mode", "addr", c.Redis.Addr, "error", err)
		return rdb, cleanup, nil
	}

	helper.Infow("msg", "connected to Redis", "addr", c.Redis.Addr)
	return rdb, cleanup, nil
}

// NewCacheMedium selects the cache medium configured by cache.backend.
func NewCacheMedium(c *conf.Cache, rdb *redis.Client, logger log.Logger) (CacheMedium, error) {
	helper := log.NewHelper(logger)
	switch c.Backend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("cache backend redis needs data.redis.addr")
		}
		helper.Infow("msg", "cache medium selected", "backend", "redis", "prefix", c.KeyPrefix)
		return NewRedisMedium(rdb, c.KeyPrefix)
	default:
		helper.Infow("msg", "cache medium selected", "backend", "file", "dir", c.Dir)
		return NewFileMedium(c.Dir)
	}
}

// NewCacheStore creates the cache store and exports its counters.
func NewCacheStore(c *conf.Cache, medium CacheMedium, m *metrics.Metrics, logger log.Logger) (*Store, func(), error) {
	s, err := NewStore(medium, CacheOptions{
		DefaultTTL:   c.DefaultTTL,
		MaxSizeBytes: int64(c.MaxSizeMB) << 20,
		MaxVersions:  c.MaxVersions,
		IndexSize:    c.IndexSize,
		IndexTTL:     c.IndexTTL,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	m.WatchCache(func() (hits, misses, evicted, expired int64) {
		st := s.Stats()
		return st.Hits, st.Misses, st.Evicted, st.Expired
	})
	cleanup := func() {
		_ = s.Close()
	}
	return s, cleanup, nil
}
