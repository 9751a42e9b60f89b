package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"StackScout/internal/conf"
	"StackScout/internal/metrics"
	"StackScout/pkg/breaker"
	pkglog "StackScout/pkg/log"
)

// breakerStateMargin keeps a persisted open state a little longer than its
// cooldown so a restart inside the window still sees it.
const breakerStateMargin = time.Minute

// BreakerStateRepo persists open circuits in Redis under circuit:{name}.
// Redis failures degrade to "nothing persisted".
type BreakerStateRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewBreakerStateRepo creates the repository; rdb may be nil.
func NewBreakerStateRepo(rdb *redis.Client, logger log.Logger) *BreakerStateRepo {
	return &BreakerStateRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

func breakerKey(name string) string {
	return fmt.Sprintf("circuit:%s", name)
}

// Save stores an open snapshot; any other state clears the key.
func (r *BreakerStateRepo) Save(ctx context.Context, snap breaker.Snapshot) error {
	if r.rdb == nil {
		return nil
	}
	if snap.State != breaker.StateOpen {
		return r.Delete(ctx, snap.Name)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode breaker state: %w", err)
	}
	if err := r.rdb.Set(ctx, breakerKey(snap.Name), raw, snap.Timeout+breakerStateMargin).Err(); err != nil {
		return fmt.Errorf("failed to save breaker state: %w", err)
	}
	r.logger.Debugw("msg", "breaker state persisted", "name", snap.Name, "timeout", snap.Timeout)
	return nil
}

// Load returns the persisted snapshot for name, or nil if there is none.
func (r *BreakerStateRepo) Load(ctx context.Context, name string) (*breaker.Snapshot, error) {
	if r.rdb == nil {
		return nil, nil
	}
	raw, err := r.rdb.Get(ctx, breakerKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load breaker state: %w", err)
	}
	var snap breaker.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode breaker state: %w", err)
	}
	return &snap, nil
}

// Delete clears the persisted state of name.
func (r *BreakerStateRepo) Delete(ctx context.Context, name string) error {
	if r.rdb == nil {
		return nil
	}
	if err := r.rdb.Del(ctx, breakerKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete breaker state: %w", err)
	}
	return nil
}

// NewBreakerRegistry creates the registry shared by all providers. Every
// transition is exported to metrics and, when persistence is on, saved to Redis.
func NewBreakerRegistry(c *conf.Breaker, repo *BreakerStateRepo, m *metrics.Metrics, logger log.Logger) *breaker.Registry {
	helper := pkglog.NewLogHelper(logger)
	persist := c != nil && c.Persist && repo != nil

	hook := func(name string, from, to breaker.State, snap breaker.Snapshot) {
		m.ObserveBreaker(name, from, to, snap)
		if to == breaker.StateOpen {
			helper.Breaker("provider circuit opened", "name", name, "from", from, "retry_in", snap.Timeout)
		}
		if !persist {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := repo.Save(ctx, snap); err != nil {
			helper.Warnw("msg", "failed to persist breaker state (degraded mode)", "name", name, "error", err)
		}
	}

	return breaker.NewRegistry(breaker.WithLogger(logger), breaker.OnStateChange(hook))
}

// RestoreBreaker applies a persisted open state to b, if any.
func RestoreBreaker(ctx context.Context, repo *BreakerStateRepo, b *breaker.Breaker, logger log.Logger) {
	if repo == nil || b == nil {
		return
	}
	snap, err := repo.Load(ctx, b.Name())
	if err != nil {
		log.NewHelper(logger).Warnw("msg", "failed to restore breaker state (degraded mode)", "name", b.Name(), "error", err)
		return
	}
	if snap != nil {
		b.Restore(*snap)
	}
}

// BreakerConfig converts the configuration section to a breaker.Config.
func BreakerConfig(c *conf.Breaker, name string) breaker.Config {
	if c == nil {
		return breaker.DefaultConfig(name)
	}
	return breaker.Config{
		Name:               name,
		FailureThreshold:   c.FailureThreshold,
		SuccessThreshold:   c.SuccessThreshold,
		Timeout:            c.Timeout,
		MaxTimeout:         c.MaxTimeout,
		ExponentialBackoff: c.ExponentialBackoff,
		ResponseWindow:     c.ResponseWindow,
	}
}
