package validator

import (
	"context"
	"strings"
)

// RecommendedAction is where AssessSeverity's deterministic routing sends
// the patient, per the severity threshold table.
type RecommendedAction string

const (
	ActionOTC        RecommendedAction = "otc"
	ActionPharmacist RecommendedAction = "pharmacist"
	ActionDoctor     RecommendedAction = "doctor"
	ActionEmergency  RecommendedAction = "emergency"
)

// SeverityAssessment is the normalized `AssessSeverity` result shape.
type SeverityAssessment struct {
	Score             int // 1-10
	RiskLevel         string
	RedFlagsDetected  []string
	RecommendedAction RecommendedAction
	Confidence        float64
	Reasoning         string
}

// SeverityAssessor is the external clinical-severity adapter seam (LLM
// severity). internal/adapters provides the LLM-backed
// implementation; a nil SeverityAssessor on Service falls back to
// assessSeverityFallback.
type SeverityAssessor interface {
	AssessSeverity(ctx context.Context, symptoms []string, patientContext string, history []string) (SeverityAssessment, error)
}

// InteractionChecker is the external drug-interaction adapter seam (LLM
// safety). A nil InteractionChecker on Service falls back to
// checkInteractionsFallback.
type InteractionChecker interface {
	CheckInteractions(ctx context.Context, medicineNames []string) (InteractionResult, error)
}

// routeForScore applies the deterministic 1-3/4-6/7-8/9-10 thresholds.
func routeForScore(score int) RecommendedAction {
	switch {
	case score >= severityEmergencyScore:
		return ActionEmergency
	case score >= severityReviewScore:
		return ActionDoctor
	case score >= 4:
		return ActionPharmacist
	default:
		return ActionOTC
	}
}

// detectRedFlags returns every emergencyRedFlags keyword present (as a
// substring, case-insensitive) across the given symptom strings.
func detectRedFlags(symptoms []string) []string {
	var found []string
	for _, s := range symptoms {
		lower := strings.ToLower(s)
		for _, flag := range emergencyRedFlags {
			if strings.Contains(lower, flag) {
				found = append(found, flag)
			}
		}
	}
	return found
}

// assessSeverityFallback is the always-available, non-LLM severity
// assessment used when no SeverityAssessor is configured or the
// configured one errors: red-flag keywords force an emergency score, a
// symptom-free request is scored as OTC-safe, and anything else lands in
// the conservative "pharmacist" band rather than guessing it is mild.
func assessSeverityFallback(symptoms []string) SeverityAssessment {
	redFlags := detectRedFlags(symptoms)
	if len(redFlags) > 0 {
		return SeverityAssessment{
			Score:             10,
			RiskLevel:         "critical",
			RedFlagsDetected:  redFlags,
			RecommendedAction: ActionEmergency,
			Confidence:        1.0,
			Reasoning:         "red-flag keyword matched by fixed-table fallback",
		}
	}
	if len(symptoms) == 0 {
		return SeverityAssessment{
			Score:             1,
			RiskLevel:         "normal",
			RecommendedAction: ActionOTC,
			Confidence:        0.5,
			Reasoning:         "no symptoms supplied; fallback assumes a routine OTC request",
		}
	}
	return SeverityAssessment{
		Score:             5,
		RiskLevel:         "elevated",
		RecommendedAction: ActionPharmacist,
		Confidence:        0.3,
		Reasoning:         "clinical severity adapter unavailable; fallback defers to pharmacist rather than guess",
	}
}
