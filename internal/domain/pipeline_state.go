package domain

import "github.com/shopspring/decimal"

// ConversationPhase tracks where a session sits in the multi-turn handshake.
type ConversationPhase string

const (
	PhaseCollectingItems      ConversationPhase = "collecting_items"
	PhaseAwaitingConfirmation ConversationPhase = "awaiting_confirmation"
	PhaseFulfillmentExecuting ConversationPhase = "fulfillment_executing"
	PhaseCompleted            ConversationPhase = "completed"
)

// Intent is the classified purpose of a user turn.
type Intent string

const (
	IntentPurchase Intent = "purchase"
	IntentRefill   Intent = "refill"
	IntentInquiry  Intent = "inquiry"
	IntentUnknown  Intent = "unknown"

	// IntentSymptom is what the intent classifier falls back to when no
	// category exemplar clears the similarity threshold — a free-text
	// symptom description headed for clinical severity assessment rather
	// than a clear purchase/refill/inquiry.
	IntentSymptom Intent = "symptom"
)

// ReplacementInfo describes a proposed equivalent substitute carried
// alongside a pending confirmation.
type ReplacementInfo struct {
	OriginalName   string
	ReplacementName string
	ConfidenceTier  string // high | medium | low
	RequiresOverride bool
}

// PipelineState is the value threaded agent-to-agent by the Orchestrator.
// Only the Orchestrator mutates it; every agent receives it, returns a new
// (or same) value, and must not retain a reference to it past its own call.
type PipelineState struct {
	UserID    string
	SessionID string
	Phone     string

	Intent          Intent
	ExtractedItems  []OrderLine

	PharmacistDecision PharmacistDecision
	SafetyIssues       []string

	OrderID     string
	OrderStatus OrderStatus
	TotalAmount decimal.Decimal

	PrescriptionUploaded bool
	PrescriptionVerified bool
	PrescriptionInput    *PrescriptionInput

	// Symptoms carries any free-text symptom description the user gave,
	// consulted by the OTC-mode clinical severity assessment.
	Symptoms []string

	RiskScore           int
	RiskLevel           RiskLevel
	RiskFactorsTriggered []string
	RiskEscalated       bool

	// The hard confirmation gate. Must default to false and may only be
	// flipped to true by the Orchestrator after a successful
	// ConfirmationStore.Consume — never by an agent, never by
	// deserializing an HTTP request body.
	ConfirmationToken     string
	ConfirmationConfirmed bool

	ConversationPhase ConversationPhase
	ReplacementPending *ReplacementInfo

	// IdempotencyKey, when set, lets Fulfillment recognize a retried
	// confirmation (e.g. a client that resubmitted after a timeout) and
	// return the already-created order instead of creating a second one.
	// Part of the payment-idempotency pattern, reused here.
	IdempotencyKey string

	// TraceMetadata is a closed per-agent result union, not a free-form
	// dict — see internal/domain/trace_metadata.go.
	TraceMetadata map[string]AgentResult
}

// Clone returns a deep copy sufficient for safe concurrent/parallel use
// (pipeline.Concurrent's Cloner contract) and for the Confirmation Store,
// which must never let the caller mutate a stored pending_state after
// check-in.
func (s PipelineState) Clone() PipelineState {
	out := s
	out.ExtractedItems = append([]OrderLine(nil), s.ExtractedItems...)
	out.SafetyIssues = append([]string(nil), s.SafetyIssues...)
	out.RiskFactorsTriggered = append([]string(nil), s.RiskFactorsTriggered...)
	if s.ReplacementPending != nil {
		r := *s.ReplacementPending
		out.ReplacementPending = &r
	}
	if s.PrescriptionInput != nil {
		p := *s.PrescriptionInput
		p.Medicines = append([]PrescriptionMedicineLine(nil), s.PrescriptionInput.Medicines...)
		out.PrescriptionInput = &p
	}
	out.Symptoms = append([]string(nil), s.Symptoms...)
	out.TraceMetadata = make(map[string]AgentResult, len(s.TraceMetadata))
	for k, v := range s.TraceMetadata {
		out.TraceMetadata[k] = v
	}
	return out
}
