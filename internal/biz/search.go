package biz

import (
	"context"
	"sort"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"StackScout/internal/metrics"
	"StackScout/pkg/search"
)

var (
	// ErrNoProviders is batch-fatal: nothing can be researched.
	ErrNoProviders = errors.ServiceUnavailable("NO_PROVIDERS", "no enabled search providers")
	// ErrAllProvidersFailed is returned with an empty result when every enabled provider failed.
	ErrAllProvidersFailed = errors.ServiceUnavailable("ALL_PROVIDERS_FAILED", "all search providers failed")
)

// Searcher runs one query across the configured providers.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, merge bool) ([]search.Result, error)
	HasProviders() bool
}

// SearchUsecase queries providers in priority order with failover.
type SearchUsecase struct {
	providers []search.Provider
	metrics   *metrics.Metrics
	logger    *log.Helper
}

// NewSearchUsecase creates the orchestrator. Providers are ordered by
// ascending priority; ties keep their configured order.
func NewSearchUsecase(providers []search.Provider, m *metrics.Metrics, logger log.Logger) *SearchUsecase {
	ordered := make([]search.Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	return &SearchUsecase{
		providers: ordered,
		metrics:   m,
		logger:    log.NewHelper(logger),
	}
}

// HasProviders reports whether at least one provider is enabled.
func (uc *SearchUsecase) HasProviders() bool {
	for _, p := range uc.providers {
		if p.Enabled() {
			return true
		}
	}
	return false
}

// Search queries every enabled provider in priority order. A failing
// provider, including one whose circuit is open, is logged and skipped.
// With merge=false the first provider that returns results wins.
// Results are deduplicated by normalized URL, sorted by relevance and
// truncated to maxResults.
func (uc *SearchUsecase) Search(ctx context.Context, query string, maxResults int, merge bool) ([]search.Result, error) {
	if !uc.HasProviders() {
		return nil, ErrNoProviders
	}

	var (
		collected []search.Result
		succeeded int
		lastErr   error
	)
	for _, p := range uc.providers {
		if !p.Enabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		results, err := p.Search(ctx, query, maxResults)
		uc.metrics.ObserveProvider(p.Name(), time.Since(start), err)
		if err != nil {
			lastErr = err
			uc.logger.Warnw("msg", "search provider failed, trying next",
				"provider", p.Name(),
				"query", query,
				"error", err)
			continue
		}

		succeeded++
		collected = append(collected, results...)
		uc.logger.Debugw("msg", "search provider returned results",
			"provider", p.Name(),
			"query", query,
			"count", len(results))
		if !merge && len(results) > 0 {
			break
		}
	}

	if succeeded == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return []search.Result{}, ErrAllProvidersFailed.WithCause(lastErr)
	}

	out := search.Dedupe(collected)
	search.SortByRelevance(out)
	return search.Truncate(out, maxResults), nil
}

// Health reports every provider, enabled or not, in priority order.
func (uc *SearchUsecase) Health(ctx context.Context) []search.Health {
	out := make([]search.Health, 0, len(uc.providers))
	for _, p := range uc.providers {
		out = append(out, p.Health(ctx))
	}
	return out
}
