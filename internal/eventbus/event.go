// Package eventbus is the kernel's in-process pub/sub: agents publish
// domain events without knowing who, if anyone, is listening; subscribers
// register per event kind and a failure in one handler never blocks or
// affects another. It is the Go counterpart of the original Python
// EventBus, rebuilt on top of zoobzio/hookz's typed hook registry instead
// of a handler list keyed by class name.
package eventbus

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/hookz"
)

// Kind identifies which domain event an Event carries.
type Kind string

const (
	KindOrderCreated          Kind = "order_created"
	KindOrderFailed           Kind = "order_failed"
	KindOrderRejected         Kind = "order_rejected"
	KindPrescriptionValidated Kind = "prescription_validated"
	KindPatientIdentified     Kind = "patient_identified"
)

// hookKey maps a Kind to the hookz.Key used to register/emit it. hookz
// keys are plain strings; this indirection keeps Kind as the public,
// typed vocabulary callers subscribe with.
func hookKey(k Kind) hookz.Key {
	return hookz.Key(k)
}

// Event is the envelope delivered to every subscriber. Only the field
// matching Kind is populated — this mirrors the closed trace_metadata
// union in internal/domain rather than a free-form payload map.
type Event struct {
	Kind      Kind
	SessionID string
	Timestamp time.Time

	OrderCreated          *OrderCreatedPayload
	OrderFailed           *OrderFailedPayload
	OrderRejected         *OrderRejectedPayload
	PrescriptionValidated *PrescriptionValidatedPayload
	PatientIdentified     *PatientIdentifiedPayload
}

// OrderCreatedPayload fires once an order transaction commits.
type OrderCreatedPayload struct {
	OrderID     string
	UserID      string
	TotalAmount decimal.Decimal
	ItemCount   int
}

// OrderFailedPayload fires when fulfillment could not complete the order
// (out of stock, transaction error, or an unexpected failure).
type OrderFailedPayload struct {
	UserID string
	Reason string
}

// OrderRejectedPayload fires when the medical validator rejects a request
// outright, before fulfillment is ever attempted.
type OrderRejectedPayload struct {
	UserID       string
	SafetyIssues []string
}

// PrescriptionValidatedPayload fires once OCR + validator agree on a
// prescription's contents and pharmacological safety.
type PrescriptionValidatedPayload struct {
	UserID         string
	SafeToDispense bool
}

// PatientIdentifiedPayload fires when a phone number resolves to a known
// patient record, before risk scoring consults its history.
type PatientIdentifiedPayload struct {
	Phone string
	PID   string
}

// Clone satisfies pipeline.Cloner so PublishAsync can hand each concurrent
// handler its own copy of the event. The payload fields are pointers, but
// handlers only ever read them, so the shallow copy is safe.
func (e Event) Clone() Event {
	return e
}
