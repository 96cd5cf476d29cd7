package domain

import (
	"fmt"
	"time"
)

// DomainErrorKind classifies an error raised by an agent's own business
// rules, as opposed to a failure of some infrastructure dependency.
type DomainErrorKind string

const (
	ValidationFailure DomainErrorKind = "validation_failure"
	PolicyViolation   DomainErrorKind = "policy_violation"
	InventoryProblem  DomainErrorKind = "inventory_problem"
	FulfillmentProblem DomainErrorKind = "fulfillment_problem"
)

// DomainError wraps a business-rule rejection. Agents return these for
// conditions the caller is expected to show to a user or pharmacist, not
// conditions that indicate the kernel itself is broken.
type DomainError struct {
	Kind    DomainErrorKind
	Agent   string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Agent, e.Message)
}

// InfrastructureErrorKind classifies a failure of a dependency the kernel
// does not control (database, OCR provider, LLM provider, ...).
type InfrastructureErrorKind string

const (
	DatabaseFailure     InfrastructureErrorKind = "database_failure"
	TransactionFailure  InfrastructureErrorKind = "transaction_failure"
	OCRFailure          InfrastructureErrorKind = "ocr_failure"
	LLMFailure          InfrastructureErrorKind = "llm_failure"
	NotificationFailure InfrastructureErrorKind = "notification_failure"
)

// InfrastructureError wraps a failure of an external dependency. Unlike
// DomainError, the underlying cause is always preserved via Unwrap so
// callers can still inspect driver-level errors (e.g. a pgx constraint
// violation) if they need to.
type InfrastructureError struct {
	Kind  InfrastructureErrorKind
	Cause error

	// Recoverable marks a failure a caller may retry (at most once per
	// turn) rather than surface straight to the user —
	// a timeout talking to an external adapter, not a malformed request.
	Recoverable bool
	RetryAfter  time.Duration
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Cause
}

// ConfirmationRequiredError is the hard gate Fulfillment raises when asked
// to run against a PipelineState that has not passed through a consumed
// ConfirmationEntry. It is a sentinel type, not a sentinel value, because
// every occurrence carries the session it blocked.
type ConfirmationRequiredError struct {
	SessionID string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("confirmation required for session %s", e.SessionID)
}

// OutOfStockError reports a stock decrement that could not be satisfied.
// Requested/Available are captured at the moment of failure, under lock,
// so the caller sees the authoritative numbers rather than a stale hint.
type OutOfStockError struct {
	MedicineID   string
	MedicineName string
	Requested    int
	Available    int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %s requested=%d available=%d", e.MedicineName, e.Requested, e.Available)
}

// TransactionError wraps a failure that occurred inside an atomic
// order-creation transaction, after at least one statement succeeded,
// meaning the transaction was rolled back and the caller must not assume
// any partial effect took hold.
type TransactionError struct {
	Cause error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed: %v", e.Cause)
}

func (e *TransactionError) Unwrap() error {
	return e.Cause
}
