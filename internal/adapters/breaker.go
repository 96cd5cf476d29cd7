package adapters

import (
	"context"
	"time"

	"github.com/arogya-path/kernel/internal/validator"
	"github.com/arogya-path/kernel/pipeline"
)

// defaultFailureThreshold/defaultResetTimeout match the fallback
// note: a flapping external adapter should degrade to the fixed-table
// fallback rather than cascade failures into the validator on every call.
//
// defaultCallTimeout bounds a single adapter call independent of whatever
// timeout (or lack of one) the adapter itself applies — the Mock adapters
// used in tests and no-BaseURL deployments have none at all, so without
// this a stuck mock would hang the breaker, and transitively the turn,
// forever instead of counting as one failure.
const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
	defaultCallTimeout      = 10 * time.Second
)

// severityCall and interactionCall are the envelope types the circuit
// breaker's same-type-in/out Chainable[T] contract requires — pipeline.
// CircuitBreaker wraps a single T->T processor, so the adapter's
// (request..., response, error) shape is folded into one struct that
// carries its own result.
type severityCall struct {
	symptoms       []string
	patientContext string
	history        []string
	result         validator.SeverityAssessment
}

type interactionCall struct {
	medicineNames []string
	result        validator.InteractionResult
}

// CircuitBreakerSeverityAssessor wraps a SeverityAssessor with a
// pipeline.CircuitBreaker: after defaultFailureThreshold consecutive
// failures it fails fast (without calling the wrapped adapter) for
// defaultResetTimeout, letting validator.Service's nil-error fast path
// fall back to the fixed severity table instead of retrying a dead
// endpoint on every turn.
type CircuitBreakerSeverityAssessor struct {
	breaker *pipeline.CircuitBreaker[severityCall]
}

func NewCircuitBreakerSeverityAssessor(inner validator.SeverityAssessor) *CircuitBreakerSeverityAssessor {
	processor := pipeline.Apply("severity_adapter_call", func(ctx context.Context, call severityCall) (severityCall, error) {
		result, err := inner.AssessSeverity(ctx, call.symptoms, call.patientContext, call.history)
		if err != nil {
			return call, err
		}
		call.result = result
		return call, nil
	})
	bounded := pipeline.NewTimeout[severityCall]("severity_adapter_call.timeout", processor, defaultCallTimeout)
	breaker := pipeline.NewCircuitBreaker[severityCall]("severity_adapter", bounded, defaultFailureThreshold, defaultResetTimeout)
	return &CircuitBreakerSeverityAssessor{breaker: breaker}
}

func (c *CircuitBreakerSeverityAssessor) AssessSeverity(ctx context.Context, symptoms []string, patientContext string, history []string) (validator.SeverityAssessment, error) {
	call := severityCall{symptoms: symptoms, patientContext: patientContext, history: history}
	out, err := c.breaker.Process(ctx, call)
	if err != nil {
		return validator.SeverityAssessment{}, err
	}
	return out.result, nil
}

// CircuitBreakerInteractionChecker is CircuitBreakerSeverityAssessor's
// counterpart for the drug-interaction adapter.
type CircuitBreakerInteractionChecker struct {
	breaker *pipeline.CircuitBreaker[interactionCall]
}

func NewCircuitBreakerInteractionChecker(inner validator.InteractionChecker) *CircuitBreakerInteractionChecker {
	processor := pipeline.Apply("interaction_adapter_call", func(ctx context.Context, call interactionCall) (interactionCall, error) {
		result, err := inner.CheckInteractions(ctx, call.medicineNames)
		if err != nil {
			return call, err
		}
		call.result = result
		return call, nil
	})
	bounded := pipeline.NewTimeout[interactionCall]("interaction_adapter_call.timeout", processor, defaultCallTimeout)
	breaker := pipeline.NewCircuitBreaker[interactionCall]("interaction_adapter", bounded, defaultFailureThreshold, defaultResetTimeout)
	return &CircuitBreakerInteractionChecker{breaker: breaker}
}

func (c *CircuitBreakerInteractionChecker) CheckInteractions(ctx context.Context, medicineNames []string) (validator.InteractionResult, error) {
	call := interactionCall{medicineNames: medicineNames}
	out, err := c.breaker.Process(ctx, call)
	if err != nil {
		return validator.InteractionResult{}, err
	}
	return out.result, nil
}
