package pipeline

import "github.com/zoobzio/capitan"

// Signal constants for connector-level structured log events.
const (
	SignalSequenceStepFailed     capitan.Signal = "sequence.step-failed"
	SignalSwitchUnrouted         capitan.Signal = "switch.unrouted"
	SignalFallbackActivated      capitan.Signal = "fallback.activated"
	SignalFallbackExhausted      capitan.Signal = "fallback.exhausted"
	SignalTimeoutTriggered       capitan.Signal = "timeout.triggered"
	SignalConcurrentCompleted    capitan.Signal = "concurrent.completed"
	SignalCircuitBreakerOpened   capitan.Signal = "circuitbreaker.opened"
	SignalCircuitBreakerClosed   capitan.Signal = "circuitbreaker.closed"
	SignalCircuitBreakerHalfOpen capitan.Signal = "circuitbreaker.half-open"
	SignalCircuitBreakerRejected capitan.Signal = "circuitbreaker.rejected"
)

// Field keys shared across connector log events.
var (
	FieldName           = capitan.NewStringKey("name")
	FieldError          = capitan.NewStringKey("error")
	FieldTimestamp      = capitan.NewFloat64Key("timestamp")
	FieldStep           = capitan.NewStringKey("step")
	FieldDuration       = capitan.NewFloat64Key("duration")
	FieldProcessorCount = capitan.NewIntKey("processor_count")
	FieldErrorCount     = capitan.NewIntKey("error_count")
	FieldProcessorName  = capitan.NewStringKey("processor_name")
	FieldRouteKey       = capitan.NewStringKey("route_key")
	FieldState          = capitan.NewStringKey("state")
	FieldFailures       = capitan.NewIntKey("failures")
	FieldSuccesses      = capitan.NewIntKey("successes")
)
