package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/arogya-path/kernel/internal/domain"
)

const (
	pediatricAgeLimit = 12
	elderlyAgeLimit   = 65
)

// runOTC implements the OTC-mode assessment steps: per-item catalog
// resolution and dosage inference, an early needs-review exit for any item
// requiring a prescription, patient-context warnings, a drug-interaction
// pass, clinical severity routing, and a recommendation summary.
func (s *Service) runOTC(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	var issues []string
	needsReview := false

	for i := range state.ExtractedItems {
		item := &state.ExtractedItems[i]

		match, err := s.medicines.GetMedicine(ctx, item.MedicineName)
		if err != nil {
			issues = append(issues, fmt.Sprintf("[PRESCRIPTION REQUIRED] %s not found in catalog - pharmacist verification needed", item.MedicineName))
			needsReview = true
			continue
		}

		if item.Dosage == "" {
			if match.Medicine.Strength != "" {
				item.Dosage = match.Medicine.Strength
				item.DosageInferred = true
			} else {
				needsReview = true
				issues = append(issues, fmt.Sprintf("Dosage unspecified for %s and no catalog strength on file", item.MedicineName))
			}
		}

		if match.Medicine.RequiresPrescription {
			item.RequiresPrescription = true
		}
	}

	for _, item := range state.ExtractedItems {
		if item.RequiresPrescription {
			state.PharmacistDecision = domain.DecisionNeedsReview
			state.PrescriptionVerified = false
			state.SafetyIssues = append(state.SafetyIssues, issues...)
			state.SafetyIssues = append(state.SafetyIssues,
				fmt.Sprintf("%s requires a prescription", item.MedicineName))
			state = s.recordValidatorResult(state, "otc", false, 0, InteractionNone, nil)
			return state, nil
		}
	}

	decision := domain.DecisionApproved
	if needsReview {
		decision = domain.DecisionNeedsReview
	}

	var patientContext string
	if state.UserID != "" && s.patients != nil {
		if patient, err := s.patients.GetPatient(ctx, state.UserID); err == nil {
			if patient.AgeYears > 0 && patient.AgeYears < pediatricAgeLimit {
				issues = append(issues, "Pediatric patient (<12): exercise dosing caution")
			}
			if patient.AgeYears > elderlyAgeLimit {
				issues = append(issues, "Elderly patient (>65): monitor for adverse effects")
			}
			for _, allergy := range patient.Allergies {
				issues = append(issues, fmt.Sprintf("[ALLERGY ALERT] patient has a documented allergy to %s - verify before dispensing", allergy))
			}
			patientContext = fmt.Sprintf("age=%d allergies=%v conditions=%v", patient.AgeYears, patient.Allergies, patient.Conditions)
		}
	}

	names := make([]string, len(state.ExtractedItems))
	for i, item := range state.ExtractedItems {
		names[i] = item.MedicineName
	}
	interactionResult := s.checkInteractions(ctx, names)
	issues = append(issues, interactionResult.Warnings...)
	if interactionResult.Severity == InteractionSevere {
		decision = domain.DecisionNeedsReview
	}

	assessment := s.assessSeverity(ctx, state.Symptoms, patientContext, nil)
	if flags := detectRedFlags(state.Symptoms); len(flags) > 0 && assessment.Score < severityEmergencyScore {
		assessment.Score = severityEmergencyScore
		assessment.RedFlagsDetected = append(assessment.RedFlagsDetected, flags...)
	}
	switch {
	case assessment.Score >= severityEmergencyScore || len(assessment.RedFlagsDetected) > 0:
		decision = domain.DecisionRejected
		issues = append(issues, "[CRITICAL] EMERGENCY: symptoms indicate a red-flag condition requiring immediate care")
	case assessment.Score >= severityReviewScore:
		if decision == domain.DecisionApproved {
			decision = domain.DecisionNeedsReview
		}
	}

	state.PharmacistDecision = decision
	state.SafetyIssues = append(state.SafetyIssues, issues...)

	summary := buildOTCSummary(state, patientContext, decision, s.clock.Now())
	state = s.recordValidatorResult(state, "otc", decision != domain.DecisionRejected, assessment.Score, interactionResult.Severity, &summary)

	return state, nil
}

// buildOTCSummary produces the "AI-Assisted OTC Recommendation Summary"
// record, never fabricating a field it did not actually derive.
func buildOTCSummary(state domain.PipelineState, patientContext string, decision domain.PharmacistDecision, now time.Time) domain.OTCSummary {
	recs := make([]domain.OTCRecommendation, 0, len(state.ExtractedItems))
	for _, item := range state.ExtractedItems {
		var notes []string
		if item.DosageInferred {
			notes = append(notes, "dosage inferred from catalog strength")
		}
		recs = append(recs, domain.OTCRecommendation{
			MedicineName: item.MedicineName,
			Dosage:       item.Dosage,
			Quantity:     item.Quantity,
			Notes:        notes,
		})
	}
	return domain.OTCSummary{
		Title:            "AI-Assisted OTC Recommendation Summary",
		Disclaimer:       "This summary assists pharmacist review and does not replace clinical judgment.",
		PatientContext:   patientContext,
		Recommendations:  recs,
		ValidationStatus: decision,
		GeneratedAt:      now,
	}
}
