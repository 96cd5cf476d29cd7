package orchestrator

import (
	"context"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/eventbus"
	"github.com/arogya-path/kernel/pipeline"
)

const (
	routeRejected = "rejected"
	routeContinue = "continue"
)

// buildGraph assembles the fixed risk_scorer → medical_validator edge and
// the conditional edge out of medical_validator into a single Sequence.
// The ConfirmationGate itself — and the decision of whether inventory's
// own output warrants one — is deliberately left out of this graph; it is
// orchestrator-level logic applied to the graph's output in Start.
func (o *Orchestrator) buildGraph() *pipeline.Sequence[domain.PipelineState] {
	riskStep := o.tracedStep("risk_scorer", "Risk Scoring Agent",
		"Evaluating patient risk profile...", o.runRisk, riskCompletedDetails)
	validatorStep := o.tracedStep("medical_validator", "Medical Validator",
		"Verifying medical safety...", o.runValidator, validatorCompletedDetails)
	inventoryStep := o.tracedStep("inventory", "Inventory Agent",
		"Checking stock availability...", o.inventory.Run, inventoryCompletedDetails)

	gate := pipeline.NewSwitch[domain.PipelineState, string]("validator_gate",
		func(_ context.Context, state domain.PipelineState) string {
			if state.PharmacistDecision == domain.DecisionRejected {
				return routeRejected
			}
			return routeContinue
		})
	gate.AddRoute(routeContinue, inventoryStep)
	// No route for "rejected" — Switch passes the state through unchanged,
	// which is exactly END: medical_validator's verdict stands and nothing
	// downstream runs.

	return pipeline.NewSequence[domain.PipelineState]("assessment_pipeline", riskStep, validatorStep, gate)
}

// runRisk wraps risk.Service.Run and publishes PatientIdentified once the
// risk scorer has resolved state.UserID against a patient record (it skips
// entirely when UserID is empty, so this only fires when a patient was
// actually looked up).
func (o *Orchestrator) runRisk(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	out, err := o.risk.Run(ctx, state)
	if err != nil {
		return out, err
	}
	if out.UserID != "" {
		o.events.Publish(ctx, eventbus.Event{
			Kind:      eventbus.KindPatientIdentified,
			SessionID: out.SessionID,
			Timestamp: o.clock.Now(),
			PatientIdentified: &eventbus.PatientIdentifiedPayload{
				Phone: out.Phone,
				PID:   out.UserID,
			},
		})
	}
	return out, nil
}

// runValidator wraps validator.Service.Run and publishes
// PrescriptionValidated once a prescription-mode run completes.
func (o *Orchestrator) runValidator(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	out, err := o.validator.Run(ctx, state)
	if err != nil {
		return out, err
	}
	if out.PrescriptionUploaded {
		record := out.TraceMetadata["medical_validator"]
		safe := record.Validator != nil && record.Validator.SafeToDispense
		o.events.Publish(ctx, eventbus.Event{
			Kind:      eventbus.KindPrescriptionValidated,
			SessionID: out.SessionID,
			Timestamp: o.clock.Now(),
			PrescriptionValidated: &eventbus.PrescriptionValidatedPayload{
				UserID:         out.UserID,
				SafeToDispense: safe,
			},
		})
	}
	return out, nil
}

// tracedStep wraps an agent's Run method so every node emits a started
// event before and a completed/failed event after, matching the original
// orchestration service's per-step trace_manager.emit calls. completedFn
// supplies the agent-specific signal keys (match_score, safe_to_dispense,
// confidence, ...) the fusion calculator reduces over, merged over the
// {"decision": ...} every step carries.
func (o *Orchestrator) tracedStep(
	name, agentLabel, stepLabel string,
	run func(context.Context, domain.PipelineState) (domain.PipelineState, error),
	completedFn func(domain.PipelineState) map[string]any,
) pipeline.Processor[domain.PipelineState] {
	return pipeline.Apply(name, func(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
		o.trace.Emit(ctx, state.SessionID, agentLabel, stepLabel,
			domain.TraceThinking, domain.StepStarted, nil, "")

		out, err := run(ctx, state)
		if err != nil {
			o.trace.Emit(ctx, state.SessionID, agentLabel, stepLabel,
				domain.TraceError, domain.StepFailed,
				map[string]any{"error": err.Error()}, "")
			return out, err
		}

		details := map[string]any{"decision": string(out.PharmacistDecision)}
		if completedFn != nil {
			for k, v := range completedFn(out) {
				details[k] = v
			}
		}
		o.trace.Emit(ctx, out.SessionID, agentLabel, stepLabel,
			domain.TraceToolUse, domain.StepCompleted, details, "")
		return out, nil
	})
}

// riskCompletedDetails surfaces a patient-identity confidence: scoring only
// ever runs once UserID has resolved to a patient record, so reaching this
// point at all is the identity-resolution signal.
func riskCompletedDetails(state domain.PipelineState) map[string]any {
	if state.UserID == "" {
		return nil
	}
	return map[string]any{"confidence": 1.0}
}

// validatorCompletedDetails surfaces the safety signals the fusion
// calculator folds into SafetyConfidence: whether the request is safe to
// dispense, the combined severity score, and — in Prescription mode — the
// vision extraction confidence the reconstruction was built from.
func validatorCompletedDetails(state domain.PipelineState) map[string]any {
	record := state.TraceMetadata["medical_validator"]
	if record.Validator == nil {
		return nil
	}
	details := map[string]any{
		"safe_to_dispense": record.Validator.SafeToDispense,
		"severity_score":   record.Validator.SeverityScore,
	}
	if state.PrescriptionInput != nil {
		details["reconstruction_confidence"] = state.PrescriptionInput.Confidence
	}
	return details
}

// inventoryCompletedDetails surfaces the availability signal the fusion
// calculator folds into FulfillmentConfidence. match_score takes priority
// over stock_status when the calculator reads this; stock_status is
// carried alongside it for any consumer reading the coarser classification.
func inventoryCompletedDetails(state domain.PipelineState) map[string]any {
	record := state.TraceMetadata["inventory_agent"]
	if record.Inventory == nil {
		return nil
	}
	details := map[string]any{"match_score": record.Inventory.AvailabilityScore}
	switch {
	case record.Inventory.AvailabilityScore >= 1.0:
		details["stock_status"] = "in_stock"
	case record.Inventory.AvailabilityScore > 0:
		details["stock_status"] = "substitute"
	default:
		details["stock_status"] = "out_of_stock"
	}
	return details
}
