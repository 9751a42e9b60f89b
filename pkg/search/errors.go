package search

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrRateLimited the provider answered 429.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUnauthorized the provider rejected the credentials.
	ErrUnauthorized = errors.New("provider rejected credentials")
	// ErrBadResponse the provider answered with an unexpected status or body.
	ErrBadResponse = errors.New("unexpected provider response")
	// ErrThrottled the local rate limiter refused to wait for a slot.
	ErrThrottled = errors.New("provider call throttled")
)

// ProviderError is returned by backends for any failed call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// statusError maps an HTTP status to a ProviderError.
func statusError(provider string, status int) *ProviderError {
	pe := &ProviderError{Provider: provider, StatusCode: status, Err: ErrBadResponse}
	switch {
	case status == 429:
		pe.Err = ErrRateLimited
		pe.Retryable = true
	case status == 401 || status == 403:
		pe.Err = ErrUnauthorized
	case status >= 500:
		pe.Retryable = true
	}
	return pe
}

// IsRetryable reports whether retrying the same call may succeed.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Retryable {
			return true
		}
		err = pe.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// throttled reports a local rate limiter refusal. It is not a provider failure.
func throttled(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: fmt.Errorf("%w: %w", ErrThrottled, err)}
}

// wrap turns any backend error into a *ProviderError.
func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Err: err, Retryable: IsRetryable(err)}
}
