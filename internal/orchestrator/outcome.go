package orchestrator

import "github.com/arogya-path/kernel/internal/domain"

// Status summarizes what an orchestrator call resolved to, for a transport
// layer to translate into a user-facing response without reaching into
// PipelineState itself.
type Status string

const (
	// StatusAwaitingConfirmation means a confirmation was just opened;
	// the caller must relay Message and Token and await a YES/NO reply.
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	// StatusRejected means the medical validator (or risk scorer) rejected
	// the request outright; OrderRejected was published, no gate opened.
	StatusRejected Status = "rejected"
	// StatusFailed means inventory could not resolve a single available
	// item; OrderFailed was published, no gate opened.
	StatusFailed Status = "failed"
	// StatusConfirmed means a YES reply was consumed and fulfillment ran
	// to completion (fulfilled, pending_review, or failed inside the
	// transaction — Outcome.State.OrderStatus carries which).
	StatusConfirmed Status = "confirmed"
	// StatusCancelled means a NO reply cancelled the pending confirmation.
	StatusCancelled Status = "cancelled"
	// StatusExpired means a YES reply arrived for a token already
	// consumed or past its TTL.
	StatusExpired Status = "expired"
	// StatusInvalid means a YES/NO reply's token did not match any
	// pending confirmation for the session.
	StatusInvalid Status = "invalid"
)

// Outcome is the result of one orchestrator call: either a fresh turn
// through the assessment graph (Start) or a confirmation reply (Confirm/
// Decline). Transport code maps this onto an HTTP or chat response.
type Outcome struct {
	Status  Status
	Message string
	State   domain.PipelineState

	// Token is set only on StatusAwaitingConfirmation — the value the
	// client must echo back as the YES/NO reply's token.
	Token string

	// RequiresPharmacistOverride mirrors the confirmed replacement's
	// override requirement, set only on StatusConfirmed.
	RequiresPharmacistOverride bool
}
