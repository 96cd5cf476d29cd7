package domain

import "time"

// AgentResult is the closed union of per-agent result shapes stored in
// PipelineState.TraceMetadata, keyed by agent name. This replaces the
// free-form dict the original Python implementation used — every agent
// writes into exactly one of these fields; the rest stay zero. Only the
// external-facing transport layer may still serialize this as JSON.
type AgentResult struct {
	Agent          string
	Status         string
	ReasoningTrace []string
	Timestamp      time.Time

	RiskScoring  *RiskScoringResult
	Validator    *ValidatorResult
	Inventory    *InventoryResult
	Fulfillment  *FulfillmentResult
}

// RiskScoringResult is C6's trace_metadata["risk_scoring_agent"] record.
type RiskScoringResult struct {
	RiskScore        int
	RiskLevel        RiskLevel
	ScoreDelta       int
	FactorsTriggered []string
	Escalated        bool
	PipelineAction   string // blocked | review | monitor | normal
}

// OTCSummary is the "AI-Assisted OTC Recommendation Summary" from §4.7.
type OTCSummary struct {
	Title             string
	Disclaimer        string
	PatientContext    string
	Recommendations   []OTCRecommendation
	ValidationStatus  PharmacistDecision
	GeneratedAt       time.Time
}

// OTCRecommendation is one line of the OTC summary, one per extracted item.
type OTCRecommendation struct {
	MedicineName string
	Dosage       string
	Quantity     int
	Notes        []string
}

// ReconstructedPrescription is the "Digitally Reconstructed Prescription"
// from §4.7. Unknown fields render as "[Not clearly visible]"; never
// fabricate data that wasn't actually extracted.
type ReconstructedPrescription struct {
	PatientName string
	DoctorName  string
	Date        string
	Medicines   []ReconstructedMedicineLine
	SignaturePresent bool
}

// ReconstructedMedicineLine is one row of a reconstructed prescription.
type ReconstructedMedicineLine struct {
	Name      string
	Dosage    string
	Frequency string
	Duration  string
}

// ValidatorResult is C7's trace_metadata["medical_validator"] record.
type ValidatorResult struct {
	Mode                string // otc | prescription
	SafeToDispense      bool
	SeverityScore       int
	InteractionSeverity string // none | minor | moderate | severe
	OTCSummaryResult    *OTCSummary
	Prescription        *ReconstructedPrescription
}

// InventoryAlternative is a proposed substitute for an unavailable item.
type InventoryAlternative struct {
	MedicineName string
	Stock        int
	Price        string // decimal.Decimal.String(), kept as string to avoid importing decimal here twice
}

// InventoryItemResult captures the per-item availability classification.
type InventoryItemResult struct {
	MedicineName string
	Status       string // available | partial | out_of_stock | not_found
	Alternatives []InventoryAlternative
}

// InventoryResult is C8's trace_metadata["inventory_agent"] record.
type InventoryResult struct {
	Items             []InventoryItemResult
	AvailabilityScore float64
	Replacement       *ReplacementInfo
}

// FulfillmentStockUpdate records one decrement applied during fulfillment.
type FulfillmentStockUpdate struct {
	MedicineName string
	Quantity     int
	Status       string // decremented | skipped
}

// FulfillmentResult is C9's trace_metadata["fulfillment_agent"] record.
type FulfillmentResult struct {
	Status         string // created | pending_review | fulfilled | rejected | failed
	Reason         string
	OrderID        string
	TotalAmount    string
	ItemsFulfilled int
	ItemsSkipped   int
	StockUpdates   []FulfillmentStockUpdate
	Error          *ErrorPayload
}

// ErrorPayload is the typed error surfaced in a failure trace_metadata
// record, mirroring the error taxonomy at the boundary.
type ErrorPayload struct {
	Kind    string
	Message string
}
