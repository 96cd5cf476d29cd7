// Package orchestrator wires the four agent services into the directed
// graph this pipeline describes — a fixed risk_scorer → medical_validator
// edge, a conditional edge out of medical_validator, and a confirmation
// gate that sits outside the graph entirely — and owns the multi-turn
// handshake (YES/NO/anything-else) a pending confirmation requires.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/confirmation"
	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/eventbus"
	"github.com/arogya-path/kernel/internal/fulfillment"
	"github.com/arogya-path/kernel/internal/inventoryagent"
	"github.com/arogya-path/kernel/internal/risk"
	"github.com/arogya-path/kernel/internal/trace"
	"github.com/arogya-path/kernel/internal/validator"
	"github.com/arogya-path/kernel/pipeline"
)

const agentOrchestrator = "Orchestrator"

// Orchestrator runs one user turn through the assessment graph
// (risk_scorer → medical_validator → [inventory]) and, on a later turn,
// resumes a pending confirmation directly into fulfillment_agent.
type Orchestrator struct {
	risk          *risk.Service
	validator     *validator.Service
	inventory     *inventoryagent.Service
	fulfillment   *fulfillment.Service
	confirmations *confirmation.Store
	trace         *trace.Manager
	events        *eventbus.Bus
	clock         clockz.Clock

	graph *pipeline.Sequence[domain.PipelineState]
}

// New wires the four agent services, the confirmation store, the trace
// manager, and the event bus into an Orchestrator and builds its graph.
func New(
	riskSvc *risk.Service,
	validatorSvc *validator.Service,
	inventorySvc *inventoryagent.Service,
	fulfillmentSvc *fulfillment.Service,
	confirmations *confirmation.Store,
	tracer *trace.Manager,
	events *eventbus.Bus,
) *Orchestrator {
	o := &Orchestrator{
		risk:          riskSvc,
		validator:     validatorSvc,
		inventory:     inventorySvc,
		fulfillment:   fulfillmentSvc,
		confirmations: confirmations,
		trace:         tracer,
		events:        events,
		clock:         clockz.RealClock,
	}
	o.graph = o.buildGraph()
	return o
}

// WithClock overrides the clock used for the orchestrator's own trace
// timestamps (the wired services keep whatever clock they were built
// with — this only affects the Orchestrator's own bookkeeping).
func (o *Orchestrator) WithClock(clock clockz.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// Close releases the graph's observability resources.
func (o *Orchestrator) Close() error {
	if o.graph != nil {
		return o.graph.Close()
	}
	return nil
}

// Start runs state through the assessment graph for a fresh turn. A
// returned error is always an infrastructure failure (a store call inside
// risk_scorer failed) — every business-rule outcome (rejected, no
// available items, awaiting confirmation) comes back as a nil error with
// the matching Outcome.Status.
func (o *Orchestrator) Start(ctx context.Context, state domain.PipelineState) (Outcome, error) {
	if state.TraceMetadata == nil {
		state.TraceMetadata = make(map[string]domain.AgentResult)
	}

	out, perr := o.graph.Process(ctx, state)
	if perr != nil {
		recovered := perr.InputData
		o.trace.Emit(ctx, recovered.SessionID, agentOrchestrator, "assessment pipeline failed",
			domain.TraceError, domain.StepFailed,
			map[string]any{"error": perr.Error()}, "")
		return Outcome{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: perr}
	}

	if out.PharmacistDecision == domain.DecisionRejected {
		return o.rejected(ctx, out), nil
	}

	score := availabilityScore(out)
	if score <= 0 {
		return o.failed(ctx, out), nil
	}

	return o.openGate(ctx, out), nil
}

// Confirm consumes token and, on success, runs fulfillment_agent directly
// against the snapshot captured at Create time — bypassing risk_scorer,
// medical_validator, and inventory, since they already ran for this turn.
func (o *Orchestrator) Confirm(ctx context.Context, sessionID, token string) (Outcome, error) {
	entry, err := o.confirmations.Consume(token)
	if err != nil {
		switch err {
		case confirmation.ErrNotFound:
			return Outcome{Status: StatusInvalid, Message: "That confirmation code wasn't recognized."}, nil
		default: // ErrAlreadyConsumed, ErrExpired
			return Outcome{Status: StatusExpired, Message: "That confirmation has expired. Please start again."}, nil
		}
	}
	if entry.SessionID != sessionID {
		return Outcome{Status: StatusInvalid, Message: "That confirmation code wasn't recognized."}, nil
	}

	state := entry.PendingState
	state.ConfirmationConfirmed = true
	state.ConversationPhase = domain.PhaseFulfillmentExecuting

	o.trace.Emit(ctx, sessionID, "Fulfillment Agent", "Processing your confirmed order...",
		domain.TraceToolUse, domain.StepStarted, nil, "")

	out, err := o.fulfillment.Run(ctx, state)
	if err != nil {
		// The only error Fulfillment returns is ConfirmationRequiredError,
		// which cannot happen here since we just set the flag ourselves.
		return Outcome{}, err
	}
	out.ConversationPhase = domain.PhaseCompleted

	o.trace.Emit(ctx, sessionID, "Fulfillment Agent", "Processing your confirmed order...",
		domain.TraceToolUse, domain.StepCompleted,
		map[string]any{"order_status": string(out.OrderStatus)}, "")

	requiresOverride := entry.Replacement != nil && entry.Replacement.RequiresOverride
	return Outcome{
		Status:                     StatusConfirmed,
		State:                      out,
		RequiresPharmacistOverride: requiresOverride,
		Message:                    confirmedMessage(out),
	}, nil
}

// Decline cancels sessionID's pending confirmation on a NO reply.
func (o *Orchestrator) Decline(ctx context.Context, sessionID string) Outcome {
	o.confirmations.Cancel(sessionID)
	o.trace.Emit(ctx, sessionID, agentOrchestrator, "confirmation declined",
		domain.TraceDecision, domain.StepCompleted, nil, "")
	return Outcome{
		Status:  StatusCancelled,
		Message: "No problem — let me know if you'd like to order something else.",
		State:   domain.PipelineState{SessionID: sessionID, ConversationPhase: domain.PhaseCollectingItems},
	}
}

// RepromptMessage returns the YES/NO re-prompt text for sessionID if a
// confirmation is still pending, for a transport layer that received a
// reply matching neither YES nor NO.
func (o *Orchestrator) RepromptMessage(sessionID string) (string, bool) {
	if !o.confirmations.IsPending(sessionID) {
		return "", false
	}
	return "Please reply YES to confirm or NO to cancel.", true
}

func availabilityScore(state domain.PipelineState) float64 {
	record, ok := state.TraceMetadata["inventory_agent"]
	if !ok || record.Inventory == nil {
		return 0
	}
	return record.Inventory.AvailabilityScore
}

func (o *Orchestrator) rejected(ctx context.Context, state domain.PipelineState) Outcome {
	state.OrderStatus = domain.OrderRejected
	state.ConversationPhase = domain.PhaseCollectingItems
	o.events.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindOrderRejected,
		SessionID: state.SessionID,
		Timestamp: o.clock.Now(),
		OrderRejected: &eventbus.OrderRejectedPayload{
			UserID:       state.UserID,
			SafetyIssues: state.SafetyIssues,
		},
	})
	o.trace.Emit(ctx, state.SessionID, agentOrchestrator, "order rejected",
		domain.TraceDecision, domain.StepCompleted,
		map[string]any{"safety_issues": state.SafetyIssues}, "")
	return Outcome{
		Status:  StatusRejected,
		State:   state,
		Message: "Your order could not be approved: " + strings.Join(state.SafetyIssues, "; "),
	}
}

func (o *Orchestrator) failed(ctx context.Context, state domain.PipelineState) Outcome {
	state.OrderStatus = domain.OrderFailed
	state.ConversationPhase = domain.PhaseCollectingItems
	o.events.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindOrderFailed,
		SessionID: state.SessionID,
		Timestamp: o.clock.Now(),
		OrderFailed: &eventbus.OrderFailedPayload{
			UserID: state.UserID,
			Reason: "no_items_available",
		},
	})
	o.trace.Emit(ctx, state.SessionID, agentOrchestrator, "no items available",
		domain.TraceDecision, domain.StepCompleted, nil, "")
	return Outcome{
		Status:  StatusFailed,
		State:   state,
		Message: "None of the requested items are currently available.",
	}
}

// openGate parks state behind a confirmation token. The prospective total
// is computed from the items inventory marked in-stock — fulfillment_agent
// recomputes its own authoritative total once the gate is consumed, but
// the user needs a number to confirm against before that ever runs.
func (o *Orchestrator) openGate(ctx context.Context, state domain.PipelineState) Outcome {
	prospectiveTotal := decimal.Zero
	for _, item := range state.ExtractedItems {
		if item.InStock {
			prospectiveTotal = prospectiveTotal.Add(item.Total())
		}
	}
	state.TotalAmount = prospectiveTotal

	token := o.confirmations.Create(state.SessionID, state, state.ReplacementPending)
	state.ConfirmationToken = token
	state.ConversationPhase = domain.PhaseAwaitingConfirmation

	o.trace.Emit(ctx, state.SessionID, agentOrchestrator, "awaiting confirmation",
		domain.TraceDecision, domain.StepCompleted,
		map[string]any{"total_amount": prospectiveTotal.String()}, "")

	return Outcome{
		Status:  StatusAwaitingConfirmation,
		State:   state,
		Token:   token,
		Message: fmt.Sprintf("Total: %s. Reply YES to confirm or NO to cancel.", prospectiveTotal.StringFixed(2)),
	}
}

func confirmedMessage(state domain.PipelineState) string {
	switch state.OrderStatus {
	case domain.OrderFulfilled:
		return fmt.Sprintf("Order %s confirmed and fulfilled.", state.OrderID)
	case domain.OrderPendingReview:
		return fmt.Sprintf("Order %s confirmed, pending pharmacist review.", state.OrderID)
	default:
		return "Your order could not be completed: " + state.TraceMetadata["fulfillment_agent"].Fulfillment.Reason
	}
}
