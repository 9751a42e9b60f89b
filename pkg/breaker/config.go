package breaker

import (
	"fmt"
	"strings"
	"time"
)

// Default thresholds used when a Config field is left at its zero value.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 3
	DefaultTimeout          = 60 * time.Second
	DefaultMaxTimeout       = 10 * time.Minute
	DefaultResponseWindow   = 100

	// minRequestsForRate is the request count after which the overall failure
	// rate is allowed to trip the circuit.
	minRequestsForRate = 10
	// failureRateThreshold trips the circuit once exceeded (after minRequestsForRate).
	failureRateThreshold = 0.5
)

// Config controls the thresholds of a single Breaker.
//
// Zero numeric fields take the Default* values, but ExponentialBackoff has
// no default: a Config literal that omits it keeps a fixed Timeout. Start
// from DefaultConfig to get backoff.
type Config struct {
	// Name identifies the protected dependency (e.g. a search provider name).
	Name string
	// FailureThreshold is the consecutive failure count that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the consecutive success count in half-open that closes it.
	SuccessThreshold int
	// Timeout is the base cooldown before a half-open probe is allowed.
	Timeout time.Duration
	// MaxTimeout caps the exponential backoff.
	MaxTimeout time.Duration
	// ExponentialBackoff doubles Timeout on every transition to open,
	// up to MaxTimeout. False keeps Timeout fixed.
	ExponentialBackoff bool
	// ResponseWindow bounds the number of recent response times kept in Metrics.
	ResponseWindow int
}

// DefaultConfig returns a Config with exponential backoff enabled.
func DefaultConfig(name string) Config {
	return Config{
		Name:               name,
		FailureThreshold:   DefaultFailureThreshold,
		SuccessThreshold:   DefaultSuccessThreshold,
		Timeout:            DefaultTimeout,
		MaxTimeout:         DefaultMaxTimeout,
		ExponentialBackoff: true,
		ResponseWindow:     DefaultResponseWindow,
	}
}

// withDefaults fills zero-valued numeric fields. ExponentialBackoff is left as is.
func (c Config) withDefaults() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTimeout == 0 {
		c.MaxTimeout = DefaultMaxTimeout
		if c.MaxTimeout < c.Timeout {
			c.MaxTimeout = c.Timeout
		}
	}
	if c.ResponseWindow == 0 {
		c.ResponseWindow = DefaultResponseWindow
	}
	return c
}

// Validate checks the configuration and reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Name) == "" {
		problems = append(problems, "name is required")
	}
	if c.FailureThreshold < 1 {
		problems = append(problems, "failure_threshold must be >= 1")
	}
	if c.SuccessThreshold < 1 {
		problems = append(problems, "success_threshold must be >= 1")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be > 0")
	}
	if c.MaxTimeout < c.Timeout {
		problems = append(problems, "max_timeout must be >= timeout")
	}
	if c.ResponseWindow < 1 {
		problems = append(problems, "response_window must be >= 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid circuit breaker config: %s", strings.Join(problems, ", "))
	}
	return nil
}
