package pipeline

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

const (
	FallbackAttemptsTotal  = metricz.Key("fallback.attempts.total")
	FallbackSuccessesTotal = metricz.Key("fallback.successes.total")
	FallbackAllFailedTotal = metricz.Key("fallback.all_failed.total")
)

// Fallback tries a chain of Chainables in order, returning the first
// success. Each attempt uses a genuinely different implementation rather
// than retrying the same one.
type Fallback[T any] struct {
	name       Name
	processors []Chainable[T]
	mu         sync.RWMutex
	metrics    *metricz.Registry
}

// NewFallback creates a Fallback chain. At least one processor is required.
func NewFallback[T any](name Name, processors ...Chainable[T]) *Fallback[T] {
	if len(processors) == 0 {
		panic("pipeline: NewFallback requires at least one processor")
	}
	metrics := metricz.New()
	metrics.Counter(FallbackAttemptsTotal)
	metrics.Counter(FallbackSuccessesTotal)
	metrics.Counter(FallbackAllFailedTotal)

	return &Fallback[T]{name: name, processors: processors, metrics: metrics}
}

// Process implements Chainable.
func (f *Fallback[T]) Process(ctx context.Context, data T) (result T, err *Error[T]) {
	defer recoverFromPanic(&result, &err, f.name, data)

	f.mu.RLock()
	processors := make([]Chainable[T], len(f.processors))
	copy(processors, f.processors)
	f.mu.RUnlock()

	var lastErr *Error[T]
	for i, p := range processors {
		f.metrics.Counter(FallbackAttemptsTotal).Inc()
		out, attemptErr := p.Process(ctx, data)
		if attemptErr == nil {
			f.metrics.Counter(FallbackSuccessesTotal).Inc()
			return out, nil
		}
		lastErr = attemptErr
		if i < len(processors)-1 {
			capitan.Warn(ctx, SignalFallbackActivated,
				FieldName.Field(f.name),
				FieldProcessorName.Field(p.Name()),
				FieldError.Field(attemptErr.Error()),
			)
		}
	}

	f.metrics.Counter(FallbackAllFailedTotal).Inc()
	capitan.Error(ctx, SignalFallbackExhausted, FieldName.Field(f.name))
	lastErr.Path = append([]Name{f.name}, lastErr.Path...)
	return data, lastErr
}

// AddFallback appends a processor to the end of the chain.
func (f *Fallback[T]) AddFallback(processor Chainable[T]) *Fallback[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processors = append(f.processors, processor)
	return f
}

// Len returns the number of processors in the chain.
func (f *Fallback[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.processors)
}

// Name implements Chainable.
func (f *Fallback[T]) Name() Name {
	return f.name
}

// Metrics returns the metrics registry for this connector.
func (f *Fallback[T]) Metrics() *metricz.Registry {
	return f.metrics
}
