package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Failing, calls dropped
	StateHalfOpen              // Probing whether the vendor recovered
)

// CircuitBreaker stops calling a vendor endpoint that keeps failing. It
// never retries; a call made while open is dropped with ErrCircuitOpen.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	successThreshold int
	resetTimeout     time.Duration

	state        State
	failures     int
	successes    int
	lastFailTime time.Time
	now          func() time.Time

	logger *zap.Logger
}

// CircuitOption configures the circuit breaker
type CircuitOption func(*CircuitBreaker)

// WithFailureThreshold sets failures before opening
func WithFailureThreshold(n int) CircuitOption {
	return func(cb *CircuitBreaker) {
		cb.failureThreshold = n
	}
}

// WithSuccessThreshold sets successes before closing
func WithSuccessThreshold(n int) CircuitOption {
	return func(cb *CircuitBreaker) {
		cb.successThreshold = n
	}
}

// WithResetTimeout sets time before trying again
func WithResetTimeout(d time.Duration) CircuitOption {
	return func(cb *CircuitBreaker) {
		cb.resetTimeout = d
	}
}

// WithCircuitLogger adds logging
func WithCircuitLogger(logger *zap.Logger) CircuitOption {
	return func(cb *CircuitBreaker) {
		cb.logger = logger
	}
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(opts ...CircuitOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		failureThreshold: 5,
		successThreshold: 1,
		resetTimeout:     60 * time.Second,
		state:            StateClosed,
		now:              time.Now,
		logger:           zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cb)
	}

	return cb
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailTime) > cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.failures = 0
			cb.successes = 0
			cb.logger.Info("circuit breaker half-open")
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	cb.mu.Unlock()

	err := fn(ctx)
	cb.recordResult(err)
	return err
}

// recordResult updates circuit breaker state based on result
func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.successes = 0
		cb.lastFailTime = cb.now()

		if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
			if cb.state != StateOpen {
				cb.logger.Warn("circuit breaker opened",
					zap.Int("failures", cb.failures),
					zap.Error(err))
			}
			cb.state = StateOpen
		}
		return
	}

	cb.successes++
	cb.failures = 0
	if cb.state == StateHalfOpen && cb.successes >= cb.successThreshold {
		cb.state = StateClosed
		cb.logger.Info("circuit breaker closed",
			zap.Int("successes", cb.successes))
	}
}

// State returns the current circuit breaker state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually resets the circuit breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}
