package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PharmacistDecision is the validator's (possibly risk-downgraded) verdict.
type PharmacistDecision string

const (
	DecisionApproved     PharmacistDecision = "approved"
	DecisionNeedsReview  PharmacistDecision = "needs_review"
	DecisionRejected     PharmacistDecision = "rejected"
)

// OrderStatus is the lifecycle state of an Order row.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderFulfilled      OrderStatus = "fulfilled"
	OrderPendingReview  OrderStatus = "pending_review"
	OrderRejected       OrderStatus = "rejected"
	OrderFailed         OrderStatus = "failed"
	OrderCancelled      OrderStatus = "cancelled"
)

// OrderLine is a single requested (or fulfilled) item.
type OrderLine struct {
	MedicineID   string
	MedicineName string // denormalized snapshot
	Dosage       string
	Quantity     int
	UnitPrice    decimal.Decimal // snapshot at order time

	// Hints carried through the pipeline; never authoritative for
	// fulfillment, which re-verifies under lock.
	InStock              bool
	DosageInferred       bool
	RequiresPrescription bool
}

// Total returns UnitPrice * Quantity for this line.
func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the persisted purchase record. It exclusively owns its Lines
// and audit entries (cascade-delete semantics live in internal/store).
type Order struct {
	OrderID            string
	UserID             string
	Status             OrderStatus
	PharmacistDecision PharmacistDecision
	SafetyIssues       []string
	TotalAmount        decimal.Decimal
	CreatedAt          time.Time
	Lines              []OrderLine
}

// AuditLogEntry is an append-only record of an agent decision.
type AuditLogEntry struct {
	ID         string
	OrderID    string
	AgentName  string
	Decision   string
	Reasoning  string
	Confidence float64
	ExtraData  map[string]any
	CreatedAt  time.Time
}

// RefillPrediction tracks a forecast refill date for a user/medicine pair.
type RefillPrediction struct {
	ID                     string
	UserID                 string
	MedicineName           string
	PredictedDepletionDate time.Time
	Confidence             float64
	ReminderSent           bool
	RefillConfirmed        bool
}
