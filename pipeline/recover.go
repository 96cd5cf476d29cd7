package pipeline

import (
	"fmt"
	"time"
)

// panicError wraps a recovered panic value so it satisfies the error
// interface without leaking the original value's type into callers that
// only expect errors.
type panicError struct {
	processorName Name
	sanitized     string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in %s: %s", e.processorName, e.sanitized)
}

// sanitizePanicMessage renders a recovered panic value as a string,
// collapsing runtime.Error values to their message without the stack trace
// that fmt.Sprintf("%v") would otherwise include for some panic types.
func sanitizePanicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// recoverFromPanic converts a panic inside a Chainable's Process method
// into a regular *Error[T], so a bug in one processor cannot crash the
// whole pipeline. It must be called via defer, with result/err pointing at
// the named return values of Process.
func recoverFromPanic[T any](result *T, err **Error[T], name Name, input T) {
	r := recover()
	if r == nil {
		return
	}
	var zero T
	*result = zero
	*err = &Error[T]{
		Path:      []Name{name},
		InputData: input,
		Err:       &panicError{processorName: name, sanitized: sanitizePanicMessage(r)},
		Timestamp: time.Now(),
	}
}
