package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"StackScout/internal/conf"
	"StackScout/pkg/breaker"
	"StackScout/pkg/crypto"
	"StackScout/pkg/search"
)

// NewSearchProviders builds a guarded provider per configured backend.
// Sealed API keys are revealed with aes; persisted open circuits are restored.
func NewSearchProviders(
	cs []*conf.Provider,
	bc *conf.Breaker,
	registry *breaker.Registry,
	stateRepo *BreakerStateRepo,
	aes *crypto.AESCrypto,
	logger log.Logger,
) ([]search.Provider, error) {
	helper := log.NewHelper(logger)
	providers := make([]search.Provider, 0, len(cs))

	for _, c := range cs {
		if c == nil {
			continue
		}
		apiKey, err := aes.Reveal(c.APIKey)
		if err != nil {
			return nil, fmt.Errorf("provider %s: failed to reveal api key: %w", c.Name, err)
		}

		client, err := search.NewHTTPClient(c.ProxyURL, c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", c.Name, err)
		}

		backend, err := search.NewBackend(c.Type, search.BackendConfig{
			Name:     c.Name,
			BaseURL:  c.BaseURL,
			APIKey:   apiKey,
			EngineID: c.EngineID,
		}, client)
		if err != nil {
			if !c.Enabled {
				helper.Warnw("msg", "skipping disabled provider with invalid settings", "provider", c.Name, "error", err)
				continue
			}
			return nil, err
		}

		g, err := search.NewGuarded(backend, search.Options{
			Name:               c.Name,
			Enabled:            c.Enabled,
			Priority:           c.Priority,
			RateLimitPerMinute: c.RateLimitPerMinute,
			Timeout:            c.Timeout,
			MaxRetries:         c.MaxRetries,
			RetryBackoff:       c.RetryBackoff,
			Breaker:            BreakerConfig(bc, c.Name),
		}, registry, logger)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		RestoreBreaker(ctx, stateRepo, g.Breaker(), logger)
		cancel()

		helper.Infow("msg", "search provider registered",
			"provider", c.Name,
			"type", c.Type,
			"enabled", c.Enabled,
			"priority", c.Priority,
			"rate_limit_per_minute", c.RateLimitPerMinute,
			"breaker_state", g.Breaker().State().String())
		providers = append(providers, g)
	}

	if len(providers) == 0 {
		helper.Warn("no search providers configured, research requests will fail")
	}
	return providers, nil
}
