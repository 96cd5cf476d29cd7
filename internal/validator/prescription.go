package validator

import (
	"context"

	"github.com/arogya-path/kernel/internal/domain"
)

const notClearlyVisible = "[Not clearly visible]"

// interactionBonus is added to the rule-engine risk score, per the
// §4.7 step 5, keyed by the interaction checker's reported severity.
var interactionBonus = map[InteractionSeverity]float64{
	InteractionSevere:   0.4,
	InteractionModerate: 0.2,
	InteractionMinor:    0.1,
}

// runPrescription implements the Prescription-mode assessment steps:
// reconcile vision metadata against the catalog, run the fixed rule
// engine, fold in the drug-interaction check, and reconstruct a
// never-fabricated prescription record.
func (s *Service) runPrescription(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	if state.PrescriptionInput == nil {
		state.PharmacistDecision = domain.DecisionRejected
		state.PrescriptionVerified = false
		state.SafetyIssues = append(state.SafetyIssues, "No prescription data available to validate")
		state = s.recordPrescriptionResult(state, false, 10, InteractionNone, nil)
		return state, nil
	}

	input := state.PrescriptionInput
	medicines := make([]domain.PrescriptionMedicineLine, len(input.Medicines))
	for i, m := range input.Medicines {
		filled, inferred, _ := inferDosage(ctx, s.medicines, m.Name, m.Dosage)
		if inferred {
			m.Dosage = filled
		}
		medicines[i] = m
	}

	var issues []Issue
	issues = append(issues, ruleValidatePrescriptionDate(input.Date, s.clock.Now())...)
	issues = append(issues, ruleValidateSignature(input.SignaturePresent, input.DoctorName)...)
	for _, m := range medicines {
		issues = append(issues, ruleValidateMedicineDetails(m)...)
	}
	issues = append(issues, ruleValidateControlledSubstances(medicines)...)
	issues = append(issues, ruleValidateDosageLimits(medicines)...)
	issues = append(issues, ruleValidateDuplicateMedicines(medicines)...)

	ruleRiskScore := calculateRiskScore(issues)

	names := make([]string, len(medicines))
	for i, m := range medicines {
		names[i] = m.Name
	}
	interactionResult := s.checkInteractions(ctx, names)

	combinedRiskScore := ruleRiskScore + interactionBonus[interactionResult.Severity]
	if combinedRiskScore > 1.0 {
		combinedRiskScore = 1.0
	}

	status, _ := determineValidationStatus(issues, combinedRiskScore)
	if interactionResult.Severity == InteractionSevere {
		status = StatusRejected
	}

	var safetyIssues []string
	for _, iss := range issues {
		safetyIssues = append(safetyIssues, iss.Message)
	}
	safetyIssues = append(safetyIssues, interactionResult.Warnings...)

	decision := mapValidationStatus(status)
	state.PharmacistDecision = decision
	state.PrescriptionVerified = decision != domain.DecisionRejected
	state.SafetyIssues = append(state.SafetyIssues, safetyIssues...)

	reconstructed := reconstructPrescription(*input, medicines)
	severityScore := int(combinedRiskScore * 10)

	state = s.recordPrescriptionResult(state, decision != domain.DecisionRejected, severityScore, interactionResult.Severity, &reconstructed)

	return state, nil
}

// mapValidationStatus carries the rule engine's ValidationStatus into the
// pipeline-wide PharmacistDecision vocabulary.
func mapValidationStatus(status ValidationStatus) domain.PharmacistDecision {
	switch status {
	case StatusRejected:
		return domain.DecisionRejected
	case StatusNeedsReview:
		return domain.DecisionNeedsReview
	default:
		return domain.DecisionApproved
	}
}

// reconstructPrescription builds the "Digitally Reconstructed
// Prescription" record, rendering anything not actually extracted as
// notClearlyVisible rather than ever inventing a value.
func reconstructPrescription(input domain.PrescriptionInput, medicines []domain.PrescriptionMedicineLine) domain.ReconstructedPrescription {
	patientName := input.PatientName
	if patientName == "" {
		patientName = notClearlyVisible
	}
	doctorName := input.DoctorName
	if doctorName == "" {
		doctorName = notClearlyVisible
	}
	date := input.Date
	if date == "" {
		date = notClearlyVisible
	}

	lines := make([]domain.ReconstructedMedicineLine, len(medicines))
	for i, m := range medicines {
		lines[i] = domain.ReconstructedMedicineLine{
			Name:      m.Name,
			Dosage:    orNotClearlyVisible(m.Dosage),
			Frequency: orNotClearlyVisible(m.Frequency),
			Duration:  orNotClearlyVisible(m.Duration),
		}
	}

	return domain.ReconstructedPrescription{
		PatientName:      patientName,
		DoctorName:       doctorName,
		Date:             date,
		Medicines:        lines,
		SignaturePresent: input.SignaturePresent,
	}
}

func orNotClearlyVisible(v string) string {
	if v == "" {
		return notClearlyVisible
	}
	return v
}
