package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error carries the context of a pipeline failure: which processors it
// passed through, what it was processing, and whether the cause was a
// timeout or cancellation.
type Error[T any] struct {
	Timestamp time.Time
	InputData T
	Err       error
	Path      []Name
	Duration  time.Duration
	Timeout   bool
	Canceled  bool
}

func (e *Error[T]) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := strings.Join(e.Path, " -> ")
	if path == "" {
		path = "unknown"
	}
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s timed out after %v: %v", path, e.Duration, e.Err)
	case e.Canceled:
		return fmt.Sprintf("%s canceled after %v: %v", path, e.Duration, e.Err)
	default:
		return fmt.Sprintf("%s failed after %v: %v", path, e.Duration, e.Err)
	}
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *Error[T]) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether the failure was a timeout.
func (e *Error[T]) IsTimeout() bool {
	if e == nil {
		return false
	}
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled reports whether the failure was a cancellation.
func (e *Error[T]) IsCanceled() bool {
	if e == nil {
		return false
	}
	return e.Canceled || errors.Is(e.Err, context.Canceled)
}

// prependPath pushes name onto the front of err's Path, reusing an existing
// *Error[T] when the underlying error already carries one (so a nested
// connector's path isn't lost) or wrapping a plain error otherwise.
func prependPath[T any](name Name, data T, err error) *Error[T] {
	var pipeErr *Error[T]
	if errors.As(err, &pipeErr) {
		pipeErr.Path = append([]Name{name}, pipeErr.Path...)
		return pipeErr
	}
	return &Error[T]{
		Timestamp: time.Now(),
		InputData: data,
		Err:       err,
		Path:      []Name{name},
	}
}
