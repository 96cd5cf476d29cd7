package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// Reducer combines the per-branch results of a Concurrent run into a single
// output value. If nil, Concurrent returns the original input unchanged.
type Reducer[T any] func(original T, results map[Name]T, errs map[Name]*Error[T]) T

// Concurrent runs every branch in parallel against its own Clone of the
// input, using the caller's context directly so tracing and cancellation
// still apply. All branches run to completion (or context cancellation)
// before Process returns.
type Concurrent[T Cloner[T]] struct {
	name       Name
	processors []Chainable[T]
	reducer    Reducer[T]
	mu         sync.RWMutex
}

// NewConcurrent creates a Concurrent connector running processors in parallel.
func NewConcurrent[T Cloner[T]](name Name, reducer Reducer[T], processors ...Chainable[T]) *Concurrent[T] {
	return &Concurrent[T]{name: name, reducer: reducer, processors: processors}
}

// Process implements Chainable.
func (c *Concurrent[T]) Process(ctx context.Context, input T) (result T, err *Error[T]) {
	defer recoverFromPanic(&result, &err, c.name, input)

	start := time.Now()
	c.mu.RLock()
	processors := make([]Chainable[T], len(c.processors))
	copy(processors, c.processors)
	c.mu.RUnlock()

	if len(processors) == 0 {
		return input, nil
	}

	var wg sync.WaitGroup
	wg.Add(len(processors))

	var resultsMu sync.Mutex
	var results map[Name]T
	var errs map[Name]*Error[T]
	if c.reducer != nil {
		results = make(map[Name]T, len(processors))
		errs = make(map[Name]*Error[T], len(processors))
	}

	for _, processor := range processors {
		go func(p Chainable[T]) {
			defer func() {
				if r := recover(); r != nil {
					_ = r
				}
				wg.Done()
			}()
			branchInput := input.Clone()
			out, procErr := p.Process(ctx, branchInput)
			if c.reducer == nil {
				return
			}
			resultsMu.Lock()
			if procErr != nil {
				errs[p.Name()] = procErr
			} else {
				results[p.Name()] = out
			}
			resultsMu.Unlock()
		}(processor)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	capitan.Info(ctx, SignalConcurrentCompleted,
		FieldName.Field(c.name),
		FieldProcessorCount.Field(len(processors)),
		FieldDuration.Field(time.Since(start).Seconds()),
	)

	if c.reducer != nil {
		return c.reducer(input, results, errs), nil
	}
	return input, nil
}

// Add appends a processor to the parallel set.
func (c *Concurrent[T]) Add(processor Chainable[T]) *Concurrent[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, processor)
	return c
}

// Len returns the number of processors.
func (c *Concurrent[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.processors)
}

// Name implements Chainable.
func (c *Concurrent[T]) Name() Name {
	return c.name
}
