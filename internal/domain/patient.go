package domain

import "time"

// RiskLevel is the tiered classification of a patient's accumulated risk score.
type RiskLevel string

const (
	RiskNormal   RiskLevel = "normal"
	RiskElevated RiskLevel = "elevated"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFor maps a 0-100 risk score to its tier.
// Bounds mirror a rule-based risk scoring agent's own clamping.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score <= 30:
		return RiskNormal
	case score <= 60:
		return RiskElevated
	case score <= 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Patient is the stable per-person record keyed by phone.
type Patient struct {
	PID              string
	Phone            string
	Name             string
	RiskScore        int
	RiskLevel        RiskLevel
	RiskFlags        map[string]struct{}
	RiskUpdatedAt    time.Time
	FlaggedForReview bool

	// Context consulted by the Medical Validator.
	AgeYears   int
	Allergies  []string
	Conditions []string
}

// AddRiskFlags unions the given flags into the patient's flag set.
func (p *Patient) AddRiskFlags(flags ...string) {
	if p.RiskFlags == nil {
		p.RiskFlags = make(map[string]struct{}, len(flags))
	}
	for _, f := range flags {
		p.RiskFlags[f] = struct{}{}
	}
}

// RiskFlagList returns the flag set as a sorted-free slice (order not
// guaranteed; callers that need determinism should sort).
func (p *Patient) RiskFlagList() []string {
	out := make([]string, 0, len(p.RiskFlags))
	for f := range p.RiskFlags {
		out = append(out, f)
	}
	return out
}
