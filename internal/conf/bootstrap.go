// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const encryptedPrefix = "enc:"

var (
	validCacheBackends = map[string]bool{"file": true, "redis": true}
	validProviderTypes = map[string]bool{"searxng": true, "brave": true, "google": true}
)

// NewBootstrap loads configuration from configPath, applies defaults and
// lets STACKSCOUT_ prefixed environment variables override any key.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Commonly set from the environment:
//   - MYSQL_DSN or STACKSCOUT_DATA_DATABASE_SOURCE: knowledge table DSN (optional)
//   - ENCRYPTION_KEY or STACKSCOUT_AUTH_ENCRYPTION_KEY: key for "enc:" provider keys
//   - STACKSCOUT_API_TOKEN: bearer token required on /v1 routes (optional)
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("STACKSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "STACKSCOUT_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "STACKSCOUT_DATA_REDIS_ADDR")
	_ = v.BindEnv("auth.encryption.key", "ENCRYPTION_KEY", "STACKSCOUT_AUTH_ENCRYPTION_KEY")
	_ = v.BindEnv("auth.api_token", "STACKSCOUT_API_TOKEN", "STACKSCOUT_AUTH_API_TOKEN")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := newBootstrap()
	if err := v.Unmarshal(bc); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	fillProviderDefaults(bc.Providers)

	if err := Validate(bc); err != nil {
		return nil, err
	}
	return bc, nil
}

// newBootstrap allocates every section. Unmarshal flattens the target to
// find keys, and a nil section would be read back as one key holding the
// raw file map, dropping the defaults and env overrides below it.
func newBootstrap() *Bootstrap {
	return &Bootstrap{
		Server:     &Server{HTTP: &HTTP{}},
		Data:       &Data{Database: &Database{}, Redis: &Redis{}},
		Auth:       &Auth{Encryption: &Encryption{}},
		Log:        &Log{},
		Breaker:    &Breaker{},
		Cache:      &Cache{},
		Research:   &Research{},
		Classifier: &Classifier{},
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	v.SetDefault("data.database.source", "")
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "")
	v.SetDefault("data.redis.password", "")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("auth.encryption.key", "")
	v.SetDefault("auth.api_token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.env", "")
	v.SetDefault("log.output_file", "")

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 3)
	v.SetDefault("breaker.timeout", 60*time.Second)
	v.SetDefault("breaker.max_timeout", 10*time.Minute)
	v.SetDefault("breaker.exponential_backoff", true)
	v.SetDefault("breaker.response_window", 100)
	v.SetDefault("breaker.persist", false)

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", "./data/cache")
	v.SetDefault("cache.key_prefix", "stackscout:cache")
	v.SetDefault("cache.default_ttl", 7*24*time.Hour)
	v.SetDefault("cache.max_size_mb", 512)
	v.SetDefault("cache.max_versions", 10)
	v.SetDefault("cache.index_size", 256)
	v.SetDefault("cache.index_ttl", 5*time.Minute)
	v.SetDefault("cache.sweep_schedule", "0 */15 * * * *")

	v.SetDefault("research.max_concurrent_requests", 5)
	v.SetDefault("research.timeout", 5*time.Minute)
	v.SetDefault("research.max_results_per_query", 10)
	v.SetDefault("research.merge_results", true)
	v.SetDefault("research.min_relevance", 0.3)
	v.SetDefault("research.min_quality", 0.6)
	v.SetDefault("research.cache_max_age", 7*24*time.Hour)
	v.SetDefault("research.session_retention", time.Hour)
	v.SetDefault("research.cleanup_schedule", "0 */5 * * * *")
	v.SetDefault("research.quality_weights.quantity", 0.20)
	v.SetDefault("research.quality_weights.diversity", 0.15)
	v.SetDefault("research.quality_weights.content", 0.20)
	v.SetDefault("research.quality_weights.credibility", 0.25)
	v.SetDefault("research.quality_weights.depth", 0.20)

	v.SetDefault("classifier.similarity_threshold", 0.7)
	v.SetDefault("classifier.memo_size", 1024)
}

// fillProviderDefaults applies per-provider defaults, which viper cannot
// express for list elements.
func fillProviderDefaults(providers []*Provider) {
	for i, p := range providers {
		if p == nil {
			continue
		}
		if p.Name == "" {
			p.Name = p.Type
		}
		if p.Priority == 0 {
			p.Priority = i + 1
		}
		if p.RateLimitPerMinute == 0 {
			p.RateLimitPerMinute = 60
		}
		if p.Timeout == 0 {
			p.Timeout = 30 * time.Second
		}
		if p.RetryBackoff == 0 {
			p.RetryBackoff = 500 * time.Millisecond
		}
	}
}

// Validate checks the configuration and returns an error listing every
// invalid field.
func Validate(bc *Bootstrap) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if bc.Server == nil || bc.Server.HTTP == nil || bc.Server.HTTP.Addr == "" {
		add("server.http.addr is required")
	}

	if bc.Cache == nil {
		add("cache section is required")
	} else {
		if !validCacheBackends[bc.Cache.Backend] {
			add("cache.backend must be file or redis, got %q", bc.Cache.Backend)
		}
		if bc.Cache.Backend == "file" && bc.Cache.Dir == "" {
			add("cache.dir is required for the file backend")
		}
		if bc.Cache.Backend == "redis" && (bc.Data == nil || bc.Data.Redis == nil || bc.Data.Redis.Addr == "") {
			add("data.redis.addr is required for the redis cache backend")
		}
		if bc.Cache.MaxSizeMB < 1 {
			add("cache.max_size_mb must be >= 1")
		}
		if bc.Cache.MaxVersions < 1 {
			add("cache.max_versions must be >= 1")
		}
	}

	if bc.Breaker == nil {
		add("breaker section is required")
	} else {
		if bc.Breaker.FailureThreshold < 1 {
			add("breaker.failure_threshold must be >= 1")
		}
		if bc.Breaker.SuccessThreshold < 1 {
			add("breaker.success_threshold must be >= 1")
		}
		if bc.Breaker.Timeout <= 0 {
			add("breaker.timeout must be > 0")
		}
		if bc.Breaker.MaxTimeout < bc.Breaker.Timeout {
			add("breaker.max_timeout must be >= breaker.timeout")
		}
		if bc.Breaker.Persist && (bc.Data == nil || bc.Data.Redis == nil || bc.Data.Redis.Addr == "") {
			add("data.redis.addr is required when breaker.persist is set")
		}
	}

	if bc.Research == nil {
		add("research section is required")
	} else {
		r := bc.Research
		if r.MaxConcurrentRequests < 1 {
			add("research.max_concurrent_requests must be >= 1")
		}
		if r.Timeout <= 0 {
			add("research.timeout must be > 0")
		}
		if r.MinRelevance < 0 || r.MinRelevance > 1 {
			add("research.min_relevance must be within [0,1]")
		}
		if r.MinQuality < 0 || r.MinQuality > 1 {
			add("research.min_quality must be within [0,1]")
		}
		w := r.QualityWeights
		if w.Quantity < 0 || w.Diversity < 0 || w.Content < 0 || w.Credibility < 0 || w.Depth < 0 {
			add("research.quality_weights must not be negative")
		} else if w.Quantity+w.Diversity+w.Content+w.Credibility+w.Depth <= 0 {
			add("research.quality_weights must not all be zero")
		}
	}

	if bc.Classifier == nil {
		add("classifier section is required")
	} else if t := bc.Classifier.SimilarityThreshold; t <= 0 || t > 1 {
		add("classifier.similarity_threshold must be within (0,1]")
	}

	needsKey := false
	seen := make(map[string]bool, len(bc.Providers))
	for i, p := range bc.Providers {
		if p == nil {
			add("providers[%d] is empty", i)
			continue
		}
		if !validProviderTypes[p.Type] {
			add("providers[%d].type must be searxng, brave or google, got %q", i, p.Type)
		}
		if seen[p.Name] {
			add("providers[%d].name %q is duplicated", i, p.Name)
		}
		seen[p.Name] = true
		if p.Type == "searxng" && p.BaseURL == "" {
			add("providers[%d].base_url is required for searxng", i)
		}
		if p.Enabled && (p.Type == "brave" || p.Type == "google") && p.APIKey == "" {
			add("providers[%d].api_key is required for %s", i, p.Type)
		}
		if p.Enabled && p.Type == "google" && p.EngineID == "" {
			add("providers[%d].engine_id is required for google", i)
		}
		if p.MaxRetries < 0 {
			add("providers[%d].max_retries must be >= 0", i)
		}
		if strings.HasPrefix(p.APIKey, encryptedPrefix) {
			needsKey = true
		}
	}
	if bc.Auth != nil && strings.HasPrefix(bc.Auth.APIToken, encryptedPrefix) {
		needsKey = true
	}
	if needsKey && (bc.Auth == nil || bc.Auth.Encryption == nil || len(bc.Auth.Encryption.Key) != 32) {
		add("auth.encryption.key (ENCRYPTION_KEY) must be 32 bytes when provider keys or the api token are encrypted")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
