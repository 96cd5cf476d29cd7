package domain

// AlertLevel is the fusion calculator's headline classification of a
// session's current safety/fulfillment posture.
type AlertLevel string

const (
	AlertNominal  AlertLevel = "nominal"
	AlertWarn     AlertLevel = "warn"
	AlertCritical AlertLevel = "critical"
)

// DominantMode names which concern is currently driving the session —
// safety concerns (risk, interactions) or fulfillment concerns (stock,
// confirmation, transaction state).
type DominantMode string

const (
	ModeSafety      DominantMode = "safety"
	ModeFulfillment DominantMode = "fulfillment"
)

// FusionState is the derived, continuously-recomputed summary a session's
// FusionCalculator holds. It is read-mostly: every TraceEvent folds into
// it, and the orchestrator/transport layer reads it back out, but nothing
// outside the fusion package ever constructs one directly.
type FusionState struct {
	SessionID             string
	SafetyConfidence      float64
	FulfillmentConfidence float64
	DominantMode          DominantMode
	PipelinePhase         string
	ContributingScores    map[string]*float64 // nil entry means "not yet scored"
	AlertLevel            AlertLevel
	HaltReason            string
	LastEventAgent        string
	LastEventType         string
}
