package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"

	"StackScout/pkg/breaker"
)

// Provider is what the orchestrator consumes.
type Provider interface {
	Name() string
	Enabled() bool
	Priority() int
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	Health(ctx context.Context) Health
}

// Health is a provider health report.
type Health struct {
	Name     string           `json:"name"`
	Enabled  bool             `json:"enabled"`
	Priority int              `json:"priority"`
	Healthy  bool             `json:"healthy"`
	Error    string           `json:"error,omitempty"`
	Breaker  breaker.Snapshot `json:"breaker"`
}

// Options configure a guarded provider.
type Options struct {
	Name               string
	Enabled            bool
	Priority           int
	RateLimitPerMinute int
	Timeout            time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	Breaker            breaker.Config
}

const (
	defaultCallTimeout  = 30 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
)

// Guarded wraps a Backend with a rate limiter, a per-call timeout, retries
// and a circuit breaker. All attempts of one Search count as a single
// breaker call.
type Guarded struct {
	opts    Options
	backend Backend
	limiter *rate.Limiter
	breaker *breaker.Breaker
	now     func() time.Time
	log     *log.Helper
}

// NewGuarded wraps backend. The breaker is taken from registry under the
// provider name so restarts of the wrapper share state.
func NewGuarded(backend Backend, opts Options, registry *breaker.Registry, logger log.Logger) (*Guarded, error) {
	if opts.Name == "" {
		return nil, errors.New("search: provider name is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("search: provider %s has no backend", opts.Name)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCallTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = log.DefaultLogger
	}
	if registry == nil {
		registry = breaker.NewRegistry(breaker.WithLogger(logger))
	}

	bcfg := opts.Breaker
	bcfg.Name = opts.Name
	var bopts []breaker.Option
	if p, ok := backend.(Pinger); ok {
		bopts = append(bopts, breaker.WithHealthCheck(p.Ping))
	}
	b, err := registry.GetOrCreate(bcfg, bopts...)
	if err != nil {
		return nil, fmt.Errorf("search: provider %s breaker: %w", opts.Name, err)
	}

	limit := rate.Inf
	if opts.RateLimitPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RateLimitPerMinute))
	}

	return &Guarded{
		opts:    opts,
		backend: backend,
		limiter: rate.NewLimiter(limit, 1),
		breaker: b,
		now:     time.Now,
		log:     log.NewHelper(log.With(logger, "provider", opts.Name)),
	}, nil
}

func (g *Guarded) Name() string { return g.opts.Name }

func (g *Guarded) Enabled() bool { return g.opts.Enabled }

func (g *Guarded) Priority() int { return g.opts.Priority }

// Breaker exposes the provider's breaker.
func (g *Guarded) Breaker() *breaker.Breaker { return g.breaker }

// Search runs query through the breaker. Open circuits fail fast with an
// error wrapping breaker.ErrOpen. A limiter refusal before the first attempt
// wraps ErrThrottled and is not counted by the breaker.
func (g *Guarded) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	results, err := breaker.Call(ctx, g.breaker, func(ctx context.Context) ([]Result, error) {
		return g.searchWithRetry(ctx, query, maxResults)
	})
	if err != nil {
		return nil, err
	}
	return g.finalize(query, results, maxResults), nil
}

func (g *Guarded) searchWithRetry(ctx context.Context, query string, maxResults int) ([]Result, error) {
	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, time.Duration(attempt)*g.opts.RetryBackoff); err != nil {
				return nil, err
			}
			g.log.Warnw("msg", "retrying provider search", "attempt", attempt, "error", lastErr)
		}
		if err := g.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, breaker.Skip(throttled(g.opts.Name, err))
		}

		callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
		results, err := g.backend.Search(callCtx, query, maxResults)
		cancel()
		if err == nil {
			return results, nil
		}

		lastErr = wrap(g.opts.Name, err)
		if ctx.Err() != nil || !IsRetryable(lastErr) {
			break
		}
	}
	return nil, lastErr
}

// finalize stamps provider, time and missing scores, then truncates.
func (g *Guarded) finalize(query string, results []Result, maxResults int) []Result {
	now := g.now()
	for i := range results {
		r := &results[i]
		r.Source = g.opts.Name
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		if r.Relevance <= 0 {
			r.Relevance = ScoreRelevance(query, r.Title, r.Snippet)
		}
		if r.Credibility <= 0 {
			r.Credibility = CredibilityScore(r.URL)
		}
		r.Relevance = Clamp(r.Relevance)
		r.Credibility = Clamp(r.Credibility)
	}
	return Truncate(results, maxResults)
}

// Health probes the backend when it supports it. The probe bypasses the
// breaker and never changes its state.
func (g *Guarded) Health(ctx context.Context) Health {
	h := Health{
		Name:     g.opts.Name,
		Enabled:  g.opts.Enabled,
		Priority: g.opts.Priority,
		Breaker:  g.breaker.Snapshot(),
	}

	probeCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	ok, err := g.breaker.Health(probeCtx)
	h.Healthy = ok && h.Breaker.State != breaker.StateOpen
	if err != nil {
		h.Error = err.Error()
	}
	return h
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
