package conf

import "time"

// Bootstrap is the root configuration.
type Bootstrap struct {
	Server     *Server     `mapstructure:"server"`
	Data       *Data       `mapstructure:"data"`
	Auth       *Auth       `mapstructure:"auth"`
	Log        *Log        `mapstructure:"log"`
	Breaker    *Breaker    `mapstructure:"breaker"`
	Cache      *Cache      `mapstructure:"cache"`
	Providers  []*Provider `mapstructure:"providers"`
	Research   *Research   `mapstructure:"research"`
	Classifier *Classifier `mapstructure:"classifier"`
}

// Server holds listener settings.
type Server struct {
	HTTP *HTTP `mapstructure:"http"`
}

// HTTP is the kratos HTTP server configuration.
type HTTP struct {
	Network string        `mapstructure:"network"`
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Data holds storage connections.
type Data struct {
	Database *Database `mapstructure:"database"`
	Redis    *Redis    `mapstructure:"redis"`
}

// Database configures the knowledge repository. An empty Source keeps
// learned technologies in memory.
type Database struct {
	Driver string `mapstructure:"driver"`
	Source string `mapstructure:"source"`
}

// Redis configures the Redis client shared by the cache medium and the
// breaker state repository.
type Redis struct {
	Network      string        `mapstructure:"network"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Auth holds secrets.
type Auth struct {
	Encryption *Encryption `mapstructure:"encryption"`
	// APIToken, when set, is required as a bearer token on /v1 routes.
	// It may be sealed with the encryption key ("enc:" prefix).
	APIToken string `mapstructure:"api_token"`
}

// Encryption is the AES-256 key used to decrypt "enc:" provider keys.
type Encryption struct {
	Key string `mapstructure:"key"`
}

// Log configures the zap logger.
type Log struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Env        string `mapstructure:"env"`
	OutputFile string `mapstructure:"output_file"`
}

// Breaker is the circuit breaker configuration applied to every provider.
type Breaker struct {
	FailureThreshold   int           `mapstructure:"failure_threshold"`
	SuccessThreshold   int           `mapstructure:"success_threshold"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxTimeout         time.Duration `mapstructure:"max_timeout"`
	ExponentialBackoff bool          `mapstructure:"exponential_backoff"`
	ResponseWindow     int           `mapstructure:"response_window"`
	// Persist stores open circuits in Redis so they survive restarts.
	Persist bool `mapstructure:"persist"`
}

// Cache configures the persistent cache store.
type Cache struct {
	// Backend is "file" or "redis".
	Backend       string        `mapstructure:"backend"`
	Dir           string        `mapstructure:"dir"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	MaxSizeMB     int           `mapstructure:"max_size_mb"`
	MaxVersions   int           `mapstructure:"max_versions"`
	IndexSize     int           `mapstructure:"index_size"`
	IndexTTL      time.Duration `mapstructure:"index_ttl"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

// Provider configures one search backend.
type Provider struct {
	Name               string        `mapstructure:"name"`
	Type               string        `mapstructure:"type"`
	Enabled            bool          `mapstructure:"enabled"`
	Priority           int           `mapstructure:"priority"`
	BaseURL            string        `mapstructure:"base_url"`
	APIKey             string        `mapstructure:"api_key"`
	EngineID           string        `mapstructure:"engine_id"`
	ProxyURL           string        `mapstructure:"proxy_url"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
}

// Research configures the research workflow.
type Research struct {
	MaxConcurrentRequests int            `mapstructure:"max_concurrent_requests"`
	Timeout               time.Duration  `mapstructure:"timeout"`
	MaxResultsPerQuery    int            `mapstructure:"max_results_per_query"`
	MergeResults          bool           `mapstructure:"merge_results"`
	MinRelevance          float64        `mapstructure:"min_relevance"`
	MinQuality            float64        `mapstructure:"min_quality"`
	CacheMaxAge           time.Duration  `mapstructure:"cache_max_age"`
	SessionRetention      time.Duration  `mapstructure:"session_retention"`
	CleanupSchedule       string         `mapstructure:"cleanup_schedule"`
	QualityWeights        QualityWeights `mapstructure:"quality_weights"`
}

// QualityWeights weight the five quality factors.
type QualityWeights struct {
	Quantity    float64 `mapstructure:"quantity"`
	Diversity   float64 `mapstructure:"diversity"`
	Content     float64 `mapstructure:"content"`
	Credibility float64 `mapstructure:"credibility"`
	Depth       float64 `mapstructure:"depth"`
}

// Classifier configures technology detection.
type Classifier struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MemoSize            int     `mapstructure:"memo_size"`
	Seeds               []*Seed `mapstructure:"seeds"`
}

// Seed is a technology known at startup.
type Seed struct {
	Name       string   `mapstructure:"name"`
	Category   string   `mapstructure:"category"`
	Aliases    []string `mapstructure:"aliases"`
	Maturity   string   `mapstructure:"maturity"`
	Popularity float64  `mapstructure:"popularity"`
	DocURL     string   `mapstructure:"doc_url"`
	RepoURL    string   `mapstructure:"repo_url"`
}
