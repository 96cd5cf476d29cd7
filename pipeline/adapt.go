package pipeline

import (
	"context"
	"errors"
	"time"
)

// Transform wraps a pure, infallible function as a Processor.
func Transform[T any](name Name, fn func(context.Context, T) T) Processor[T] {
	return Processor[T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err *Error[T]) {
			defer recoverFromPanic(&result, &err, name, value)
			result = fn(ctx, value)
			return result, nil
		},
	}
}

// Apply wraps a function that may fail and replaces the value on success.
func Apply[T any](name Name, fn func(context.Context, T) (T, error)) Processor[T] {
	return Processor[T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err *Error[T]) {
			defer recoverFromPanic(&result, &err, name, value)
			start := time.Now()
			out, ferr := fn(ctx, value)
			if ferr != nil {
				var zero T
				return zero, &Error[T]{
					Path:      []Name{name},
					InputData: value,
					Err:       ferr,
					Timestamp: time.Now(),
					Duration:  time.Since(start),
					Timeout:   errors.Is(ferr, context.DeadlineExceeded),
					Canceled:  errors.Is(ferr, context.Canceled),
				}
			}
			return out, nil
		},
	}
}

// Effect wraps a side effect that does not modify the value but may fail.
func Effect[T any](name Name, fn func(context.Context, T) error) Processor[T] {
	return Processor[T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err *Error[T]) {
			defer recoverFromPanic(&result, &err, name, value)
			start := time.Now()
			if ferr := fn(ctx, value); ferr != nil {
				var zero T
				return zero, &Error[T]{
					Path:      []Name{name},
					InputData: value,
					Err:       ferr,
					Timestamp: time.Now(),
					Duration:  time.Since(start),
					Timeout:   errors.Is(ferr, context.DeadlineExceeded),
					Canceled:  errors.Is(ferr, context.Canceled),
				}
			}
			return value, nil
		},
	}
}

// Mutate applies transformer only when condition holds; otherwise the value
// passes through unchanged. Neither function can fail.
func Mutate[T any](name Name, condition func(context.Context, T) bool, transformer func(context.Context, T) T) Processor[T] {
	return Processor[T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err *Error[T]) {
			defer recoverFromPanic(&result, &err, name, value)
			if condition(ctx, value) {
				result = transformer(ctx, value)
			} else {
				result = value
			}
			return result, nil
		},
	}
}

// Enrich attempts to enhance a value but falls back to the original on
// failure rather than stopping the pipeline. Use for optional enhancements.
func Enrich[T any](name Name, fn func(context.Context, T) (T, error)) Processor[T] {
	return Processor[T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err *Error[T]) {
			defer recoverFromPanic(&result, &err, name, value)
			enriched, ferr := fn(ctx, value)
			if ferr != nil {
				return value, nil
			}
			return enriched, nil
		},
	}
}
