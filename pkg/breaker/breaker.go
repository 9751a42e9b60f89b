// Package breaker implements a per-dependency circuit breaker.
//
// A Breaker starts CLOSED and lets calls through. Enough consecutive failures
// (or a failure rate above 50% once at least ten calls ran) open it; while OPEN
// every call is rejected with an *OpenError without running the operation. After
// the current timeout elapses the next call moves it to HALF_OPEN and runs as a
// probe: one failure reopens the circuit, SuccessThreshold consecutive successes
// close it. With exponential backoff every transition to OPEN doubles the
// timeout up to MaxTimeout; closing restores the base timeout.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// State is the circuit state.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls.
	StateOpen
	// StateHalfOpen lets probe calls through.
	StateHalfOpen
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState converts a state name back to a State.
func ParseState(name string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "closed":
		return StateClosed, nil
	case "open":
		return StateOpen, nil
	case "half_open", "half-open":
		return StateHalfOpen, nil
	default:
		return StateClosed, fmt.Errorf("unknown circuit state %q", name)
	}
}

// StateChangeFunc observes state transitions. It runs outside the breaker lock.
type StateChangeFunc func(name string, from, to State, snapshot Snapshot)

// HealthCheckFunc probes the protected dependency without touching breaker state.
type HealthCheckFunc func(ctx context.Context) error

// Snapshot is a consistent copy of the breaker state.
type Snapshot struct {
	Name     string        `json:"name"`
	State    State         `json:"state"`
	OpenedAt time.Time     `json:"opened_at,omitempty"`
	Timeout  time.Duration `json:"timeout"`
	Metrics  Metrics       `json:"metrics"`
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithLogger routes transition and failure logs to logger.
func WithLogger(logger log.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.log = log.NewHelper(logger)
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// OnStateChange registers a transition hook.
func OnStateChange(fn StateChangeFunc) Option {
	return func(b *Breaker) {
		if fn != nil {
			b.hooks = append(b.hooks, fn)
		}
	}
}

// WithHealthCheck sets the function used by Health.
func WithHealthCheck(fn HealthCheckFunc) Option {
	return func(b *Breaker) {
		b.healthCheck = fn
	}
}

// Breaker guards one dependency. It is safe for concurrent use.
type Breaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	openedAt time.Time
	timeout  time.Duration

	total, successes, failures, rejected int64
	transitions                          int64
	consecutiveSuccesses                 int
	consecutiveFailures                  int
	lastSuccess, lastFailure             time.Time
	responses                            *window

	// counters since the circuit last closed, used by the failure-rate rule
	windowTotal, windowFailures int64

	now         func() time.Time
	hooks       []StateChangeFunc
	healthCheck HealthCheckFunc
	log         *log.Helper
}

type transition struct {
	from, to State
	snap     Snapshot
}

// New creates a Breaker. Zero-valued config fields take their defaults.
func New(cfg Config, opts ...Option) (*Breaker, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Breaker{
		cfg:       cfg,
		state:     StateClosed,
		timeout:   cfg.Timeout,
		responses: newWindow(cfg.ResponseWindow),
		now:       time.Now,
		log:       log.NewHelper(log.DefaultLogger),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.cfg.Name
}

// Config returns the effective configuration.
func (b *Breaker) Config() Config {
	return b.cfg
}

// Execute runs fn through the breaker. It returns an *OpenError without
// calling fn when the circuit is open; otherwise fn's error is recorded and
// returned unchanged. Errors wrapped with Skip are returned unwrapped and
// not recorded.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	start := b.now()
	err := fn(ctx)
	var skip *skipError
	if errors.As(err, &skip) {
		return skip.err
	}
	b.after(b.now().Sub(start), err)

	return err
}

// Call is the value-returning form of Execute.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = fn(ctx)
		return callErr
	})
	return result, err
}

// before admits or rejects a call, moving OPEN to HALF_OPEN once the timeout elapsed.
func (b *Breaker) before() error {
	b.mu.Lock()

	var fired []transition
	if b.state == StateOpen {
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.timeout {
			b.rejected++
			remaining := b.timeout - elapsed
			b.mu.Unlock()
			return &OpenError{Name: b.cfg.Name, Remaining: remaining}
		}
		fired = append(fired, b.transitionLocked(StateHalfOpen))
	}

	b.mu.Unlock()
	b.fire(fired)
	return nil
}

// after records the outcome of an admitted call.
func (b *Breaker) after(elapsed time.Duration, err error) {
	// A caller giving up says nothing about the dependency.
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}

	b.mu.Lock()

	now := b.now()
	b.total++
	b.windowTotal++
	b.responses.add(elapsed)

	var fired []transition
	if err == nil {
		b.successes++
		b.consecutiveSuccesses++
		b.consecutiveFailures = 0
		b.lastSuccess = now

		if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			fired = append(fired, b.transitionLocked(StateClosed))
		}
	} else {
		b.failures++
		b.windowFailures++
		b.consecutiveFailures++
		b.consecutiveSuccesses = 0
		b.lastFailure = now

		b.log.Warnw("msg", "circuit breaker recorded failure",
			"breaker", b.cfg.Name,
			"state", b.state.String(),
			"consecutive_failures", b.consecutiveFailures,
			"error", err)

		switch b.state {
		case StateHalfOpen:
			fired = append(fired, b.transitionLocked(StateOpen))
		case StateClosed:
			if b.shouldTripLocked() {
				fired = append(fired, b.transitionLocked(StateOpen))
			}
		}
	}

	b.mu.Unlock()
	b.fire(fired)
}

func (b *Breaker) shouldTripLocked() bool {
	if b.consecutiveFailures >= b.cfg.FailureThreshold {
		return true
	}
	if b.windowTotal >= minRequestsForRate {
		rate := float64(b.windowFailures) / float64(b.windowTotal)
		return rate > failureRateThreshold
	}
	return false
}

// transitionLocked moves to state to and returns the event to fire after unlocking.
func (b *Breaker) transitionLocked(to State) transition {
	from := b.state
	b.state = to
	b.transitions++

	switch to {
	case StateOpen:
		b.openedAt = b.now()
		if b.cfg.ExponentialBackoff {
			b.timeout *= 2
			if b.timeout > b.cfg.MaxTimeout {
				b.timeout = b.cfg.MaxTimeout
			}
		}
		b.consecutiveSuccesses = 0
	case StateHalfOpen:
		b.consecutiveSuccesses = 0
		b.consecutiveFailures = 0
	case StateClosed:
		b.timeout = b.cfg.Timeout
		b.openedAt = time.Time{}
		b.consecutiveFailures = 0
		b.windowTotal = 0
		b.windowFailures = 0
	}

	return transition{from: from, to: to, snap: b.snapshotLocked()}
}

func (b *Breaker) fire(events []transition) {
	for _, ev := range events {
		b.log.Infow("msg", "circuit breaker state changed",
			"breaker", b.cfg.Name,
			"from", ev.from.String(),
			"to", ev.to.String(),
			"timeout", ev.snap.Timeout.String())

		for _, hook := range b.hooks {
			hook(b.cfg.Name, ev.from, ev.to, ev.snap)
		}
	}
}

// State returns the current state. An expired OPEN state is still reported as
// OPEN until the next call attempt moves it to HALF_OPEN.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Timeout returns the current open-state timeout.
func (b *Breaker) Timeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeout
}

// Metrics returns a copy of the counters.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metricsLocked()
}

// Snapshot returns state, timeout and metrics under one lock.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Breaker) snapshotLocked() Snapshot {
	return Snapshot{
		Name:     b.cfg.Name,
		State:    b.state,
		OpenedAt: b.openedAt,
		Timeout:  b.timeout,
		Metrics:  b.metricsLocked(),
	}
}

func (b *Breaker) metricsLocked() Metrics {
	return Metrics{
		TotalRequests:        b.total,
		SuccessfulRequests:   b.successes,
		FailedRequests:       b.failures,
		RejectedRequests:     b.rejected,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		ConsecutiveFailures:  b.consecutiveFailures,
		StateTransitions:     b.transitions,
		LastSuccessTime:      b.lastSuccess,
		LastFailureTime:      b.lastFailure,
		RecentResponseTimes:  b.responses.snapshot(),
	}
}

// Reset closes the circuit and clears all counters and the backoff.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.openedAt = time.Time{}
	b.timeout = b.cfg.Timeout
	b.total, b.successes, b.failures, b.rejected = 0, 0, 0, 0
	b.transitions = 0
	b.consecutiveSuccesses, b.consecutiveFailures = 0, 0
	b.windowTotal, b.windowFailures = 0, 0
	b.lastSuccess, b.lastFailure = time.Time{}, time.Time{}
	b.responses.reset()
	snap := b.snapshotLocked()
	b.mu.Unlock()

	b.log.Infow("msg", "circuit breaker reset", "breaker", b.cfg.Name, "previous_state", from.String())
	if from != StateClosed {
		for _, hook := range b.hooks {
			hook(b.cfg.Name, from, StateClosed, snap)
		}
	}
}

// Restore reapplies a persisted OPEN state, e.g. after a restart.
// Snapshots in any other state are ignored.
func (b *Breaker) Restore(snap Snapshot) {
	if snap.State != StateOpen || snap.OpenedAt.IsZero() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed || b.total > 0 {
		return
	}
	timeout := snap.Timeout
	if timeout < b.cfg.Timeout {
		timeout = b.cfg.Timeout
	}
	if timeout > b.cfg.MaxTimeout {
		timeout = b.cfg.MaxTimeout
	}
	b.state = StateOpen
	b.openedAt = snap.OpenedAt
	b.timeout = timeout
}

// Health runs the health check. Without one, health means "not open".
// It never changes the breaker state.
func (b *Breaker) Health(ctx context.Context) (bool, error) {
	if b.healthCheck == nil {
		return b.State() != StateOpen, nil
	}
	if err := b.healthCheck(ctx); err != nil {
		return false, err
	}
	return true, nil
}
