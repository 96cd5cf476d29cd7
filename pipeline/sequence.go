package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

const (
	SequenceProcessedTotal = metricz.Key("sequence.processed.total")
	SequenceFailuresTotal  = metricz.Key("sequence.failures.total")
	SequenceDurationMs     = metricz.Key("sequence.duration.ms")

	SequenceProcessSpan = tracez.Key("sequence.process")
	SequenceTagStep     = tracez.Tag("sequence.step")
	SequenceTagSuccess  = tracez.Tag("sequence.success")
)

// Sequence runs a fixed list of Chainables in order, stopping at the first
// failure. It is the default way to compose a straight-line pipeline; use
// Switch when the next step depends on the data.
type Sequence[T any] struct {
	name    Name
	steps   []Chainable[T]
	mu      sync.RWMutex
	metrics *metricz.Registry
	tracer  *tracez.Tracer
}

// NewSequence creates a Sequence that runs steps in order.
func NewSequence[T any](name Name, steps ...Chainable[T]) *Sequence[T] {
	metrics := metricz.New()
	metrics.Counter(SequenceProcessedTotal)
	metrics.Counter(SequenceFailuresTotal)
	metrics.Gauge(SequenceDurationMs)

	return &Sequence[T]{
		name:    name,
		steps:   steps,
		metrics: metrics,
		tracer:  tracez.New(),
	}
}

// Process implements Chainable.
func (s *Sequence[T]) Process(ctx context.Context, data T) (result T, err *Error[T]) {
	defer recoverFromPanic(&result, &err, s.name, data)

	s.mu.RLock()
	steps := make([]Chainable[T], len(s.steps))
	copy(steps, s.steps)
	s.mu.RUnlock()

	s.metrics.Counter(SequenceProcessedTotal).Inc()
	start := time.Now()
	ctx, span := s.tracer.StartSpan(ctx, SequenceProcessSpan)
	defer func() {
		s.metrics.Gauge(SequenceDurationMs).Set(float64(time.Since(start).Milliseconds()))
		span.SetTag(SequenceTagSuccess, boolTag(err == nil))
		span.Finish()
	}()

	current := data
	for _, step := range steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return current, &Error[T]{
				Err:       ctxErr,
				InputData: current,
				Path:      []Name{s.name},
				Canceled:  true,
				Timestamp: time.Now(),
			}
		}

		span.SetTag(SequenceTagStep, step.Name())
		out, stepErr := step.Process(ctx, current)
		if stepErr != nil {
			s.metrics.Counter(SequenceFailuresTotal).Inc()
			capitan.Warn(ctx, SignalSequenceStepFailed,
				FieldName.Field(s.name),
				FieldStep.Field(step.Name()),
				FieldError.Field(stepErr.Error()),
			)
			stepErr.Path = append([]Name{s.name}, stepErr.Path...)
			return out, stepErr
		}
		current = out
	}
	return current, nil
}

// Register appends steps to the end of the sequence.
func (s *Sequence[T]) Register(steps ...Chainable[T]) *Sequence[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
	return s
}

// SetSteps replaces the step list atomically.
func (s *Sequence[T]) SetSteps(steps ...Chainable[T]) *Sequence[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append([]Chainable[T](nil), steps...)
	return s
}

// Steps returns a copy of the current step list.
func (s *Sequence[T]) Steps() []Chainable[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chainable[T], len(s.steps))
	copy(out, s.steps)
	return out
}

// Len returns the number of steps.
func (s *Sequence[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}

// Name implements Chainable.
func (s *Sequence[T]) Name() Name {
	return s.name
}

// Metrics returns the metrics registry for this connector.
func (s *Sequence[T]) Metrics() *metricz.Registry {
	return s.metrics
}

// Tracer returns the tracer for this connector.
func (s *Sequence[T]) Tracer() *tracez.Tracer {
	return s.tracer
}

// Close shuts down observability resources held by this connector.
func (s *Sequence[T]) Close() error {
	if s.tracer != nil {
		s.tracer.Close()
	}
	return nil
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
