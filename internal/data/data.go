// Package data provides data access layer implementations: the cache
// store, the knowledge repository, breaker state persistence and the
// search provider clients.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewMySQLClient,
	NewCacheMedium,
	NewCacheStore,
	NewTechnologyRepo,
	NewBreakerStateRepo,
	NewBreakerRegistry,
	NewSearchProviders,
)
