package breaker

import (
	"errors"
	"fmt"
	"time"
)

// ErrOpen is matched by every OpenError via errors.Is.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is returned when a call is rejected because the circuit is open.
// The wrapped operation was not invoked.
type OpenError struct {
	Name      string        // Breaker name
	Remaining time.Duration // Time left until a half-open probe is allowed
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open: retry in %s", e.Name, e.Remaining.Round(time.Millisecond))
}

// Unwrap allows errors.Is(err, ErrOpen).
func (e *OpenError) Unwrap() error {
	return ErrOpen
}

// IsOpen reports whether err was produced by an open circuit.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}

// skipError carries an error that says nothing about the dependency.
type skipError struct {
	err error
}

func (e *skipError) Error() string { return e.err.Error() }

func (e *skipError) Unwrap() error { return e.err }

// Skip marks err as local to the caller. Execute returns the wrapped error
// without recording the call as a success or a failure.
func Skip(err error) error {
	if err == nil {
		return nil
	}
	return &skipError{err: err}
}
