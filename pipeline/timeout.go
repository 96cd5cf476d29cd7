package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

const (
	TimeoutTimeoutsTotal  = metricz.Key("timeout.timeouts.total")
	TimeoutSuccessesTotal = metricz.Key("timeout.successes.total")
)

// Timeout enforces a hard time limit on processor. If the limit expires
// before processor returns, Process returns a timeout *Error[T] and the
// goroutine running processor is left to finish in the background (it must
// itself respect ctx cancellation to actually stop).
type Timeout[T any] struct {
	processor Chainable[T]
	clock     clockz.Clock
	name      Name
	duration  time.Duration
	mu        sync.RWMutex
	metrics   *metricz.Registry
}

// NewTimeout wraps processor with a deadline of duration.
func NewTimeout[T any](name Name, processor Chainable[T], duration time.Duration) *Timeout[T] {
	metrics := metricz.New()
	metrics.Counter(TimeoutTimeoutsTotal)
	metrics.Counter(TimeoutSuccessesTotal)

	return &Timeout[T]{name: name, processor: processor, duration: duration, metrics: metrics}
}

// Process implements Chainable.
func (t *Timeout[T]) Process(ctx context.Context, data T) (result T, err *Error[T]) {
	defer recoverFromPanic(&result, &err, t.name, data)

	t.mu.RLock()
	processor := t.processor
	duration := t.duration
	clock := t.getClock()
	t.mu.RUnlock()

	ctx, cancel := clock.WithTimeout(ctx, duration)
	defer cancel()

	type outcome struct {
		result T
		err    *Error[T]
	}
	resultCh := make(chan outcome, 1)

	go func() {
		out, procErr := processor.Process(ctx, data)
		select {
		case resultCh <- outcome{out, procErr}:
		case <-ctx.Done():
		}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			res.err.Path = append([]Name{t.name}, res.err.Path...)
			return res.result, res.err
		}
		t.metrics.Counter(TimeoutSuccessesTotal).Inc()
		return res.result, nil
	case <-ctx.Done():
		t.metrics.Counter(TimeoutTimeoutsTotal).Inc()
		capitan.Warn(ctx, SignalTimeoutTriggered,
			FieldName.Field(t.name),
			FieldDuration.Field(duration.Seconds()),
		)
		return data, &Error[T]{
			Err:       ctx.Err(),
			InputData: data,
			Path:      []Name{t.name},
			Timeout:   errors.Is(ctx.Err(), context.DeadlineExceeded),
			Canceled:  errors.Is(ctx.Err(), context.Canceled),
			Timestamp: time.Now(),
		}
	}
}

// WithClock sets the clock used to derive the deadline. Tests should inject
// a clockz.FakeClock.
func (t *Timeout[T]) WithClock(clock clockz.Clock) *Timeout[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
	return t
}

func (t *Timeout[T]) getClock() clockz.Clock {
	if t.clock == nil {
		return clockz.RealClock
	}
	return t.clock
}

// Name implements Chainable.
func (t *Timeout[T]) Name() Name {
	return t.name
}

// Metrics returns the metrics registry for this connector.
func (t *Timeout[T]) Metrics() *metricz.Registry {
	return t.metrics
}
