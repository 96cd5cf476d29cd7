// Package pipeline provides the composable processing primitives that every
// agent and connector in the fulfillment kernel is built from: a uniform
// Chainable interface, adapters that wrap plain functions into it, and
// connectors (Sequence, Switch, Fallback, Timeout, Concurrent,
// CircuitBreaker) that compose Chainables into pipelines.
//
// Every processor and connector implements:
//
//	type Chainable[T any] interface {
//	    Process(context.Context, T) (T, *Error[T])
//	    Name() Name
//	}
//
// Processors (built with Transform/Apply/Effect/Mutate/Enrich) are
// immutable values. Connectors are mutable pointers that hold one or more
// child Chainables and can be reconfigured at runtime.
package pipeline

import "context"

// Chainable is implemented by every processor and connector in a pipeline.
type Chainable[T any] interface {
	Process(context.Context, T) (T, *Error[T])
	Name() Name
}

// Name identifies a processor or connector, appearing in Error[T].Path.
type Name = string

// Processor is the concrete type returned by the adapter functions. Its fn
// field is private so Processor values can only be constructed through
// Transform/Apply/Effect/Mutate/Enrich, keeping error wrapping consistent.
type Processor[T any] struct {
	fn   func(context.Context, T) (T, *Error[T])
	name Name
}

// Process implements Chainable.
func (p Processor[T]) Process(ctx context.Context, data T) (T, *Error[T]) {
	return p.fn(ctx, data)
}

// Name implements Chainable.
func (p Processor[T]) Name() Name {
	return p.name
}

// Cloner is implemented by types used with Concurrent, which gives every
// parallel branch its own isolated copy of the input.
type Cloner[T any] interface {
	Clone() T
}
