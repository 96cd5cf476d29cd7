package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half-open"
)

// CircuitBreaker stops calling processor once it has failed enough times in
// a row, failing fast for resetTimeout before trying again (half-open).
//
// It is stateful across calls — construct one per protected dependency and
// reuse it; a fresh CircuitBreaker per request never accumulates failures
// and will never open.
type CircuitBreaker[T any] struct {
	lastFailTime     time.Time
	processor        Chainable[T]
	clock            clockz.Clock
	name             Name
	state            string
	mu               sync.Mutex
	resetTimeout     time.Duration
	generation       int
	failureThreshold int
	successThreshold int
	failures         int
	successes        int
}

// NewCircuitBreaker creates a CircuitBreaker around processor.
func NewCircuitBreaker[T any](name Name, processor Chainable[T], failureThreshold int, resetTimeout time.Duration) *CircuitBreaker[T] {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker[T]{
		name:             name,
		processor:        processor,
		failureThreshold: failureThreshold,
		successThreshold: 1,
		resetTimeout:     resetTimeout,
		state:            stateClosed,
	}
}

// Process implements Chainable.
func (cb *CircuitBreaker[T]) Process(ctx context.Context, data T) (result T, err *Error[T]) {
	defer recoverFromPanic(&result, &err, cb.name, data)

	cb.mu.Lock()
	clock := cb.getClock()
	if cb.state == stateOpen && clock.Since(cb.lastFailTime) > cb.resetTimeout {
		cb.state = stateHalfOpen
		cb.failures = 0
		cb.successes = 0
		cb.generation++
		capitan.Warn(ctx, SignalCircuitBreakerHalfOpen,
			FieldName.Field(cb.name),
			FieldState.Field(cb.state),
		)
	}

	state := cb.state
	generation := cb.generation
	processor := cb.processor

	if state == stateOpen {
		capitan.Error(ctx, SignalCircuitBreakerRejected, FieldName.Field(cb.name), FieldState.Field(state))
		cb.mu.Unlock()
		return data, &Error[T]{
			Err:       errors.New("circuit breaker is open"),
			InputData: data,
			Path:      []Name{cb.name},
			Timestamp: clock.Now(),
		}
	}
	cb.mu.Unlock()

	out, procErr := processor.Process(ctx, data)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.generation != generation {
		return out, procErr
	}

	if procErr != nil {
		cb.onFailure()
		procErr.Path = append([]Name{cb.name}, procErr.Path...)
		return out, procErr
	}
	cb.onSuccess()
	return out, nil
}

func (cb *CircuitBreaker[T]) onSuccess() {
	switch cb.state {
	case stateClosed:
		cb.failures = 0
	case stateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = stateClosed
			cb.failures = 0
			cb.successes = 0
			capitan.Info(context.Background(), SignalCircuitBreakerClosed,
				FieldName.Field(cb.name),
				FieldState.Field(cb.state),
			)
		}
	}
}

func (cb *CircuitBreaker[T]) onFailure() {
	cb.lastFailTime = cb.getClock().Now()
	switch cb.state {
	case stateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = stateOpen
			capitan.Error(context.Background(), SignalCircuitBreakerOpened,
				FieldName.Field(cb.name),
				FieldFailures.Field(cb.failures),
			)
		}
	case stateHalfOpen:
		cb.state = stateOpen
		cb.successes = 0
		capitan.Error(context.Background(), SignalCircuitBreakerOpened,
			FieldName.Field(cb.name),
			FieldFailures.Field(cb.failures),
		)
	}
}

// State returns the current circuit state: closed, open, or half-open.
func (cb *CircuitBreaker[T]) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// WithClock sets the clock used for reset-timeout evaluation. Tests should
// inject a clockz.FakeClock.
func (cb *CircuitBreaker[T]) WithClock(clock clockz.Clock) *CircuitBreaker[T] {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.clock = clock
	return cb
}

func (cb *CircuitBreaker[T]) getClock() clockz.Clock {
	if cb.clock == nil {
		return clockz.RealClock
	}
	return cb.clock
}

// Name implements Chainable.
func (cb *CircuitBreaker[T]) Name() Name {
	return cb.name
}
