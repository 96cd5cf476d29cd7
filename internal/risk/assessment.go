package risk

import (
	"fmt"
	"strings"

	"github.com/arogya-path/kernel/internal/domain"
)

// Assessment is the pure, side-effect-free result of scoring one request
// against the current PipelineState. Nothing here touches a database.
type Assessment struct {
	FactorsTriggered []string
	ScoreDelta       int
}

// Assess scores state.ExtractedItems against the fixed weight table,
// mirroring a rule-based risk scoring agent's
// assess_request_risk exactly, including its iteration order (items in
// request order, then the multi-controlled-substance and prior-rejection
// bonuses last).
func Assess(state domain.PipelineState) Assessment {
	var factors []string
	delta := 0
	controlledCount := 0

	for _, item := range state.ExtractedItems {
		nameLower := strings.ToLower(item.MedicineName)

		if _, ok := matchSubstance(nameLower, controlledSubstances); ok {
			factors = append(factors, fmt.Sprintf("controlled_substance:%s", item.MedicineName))
			delta += weightControlledSubstanceRequest
			controlledCount++
		} else if _, ok := matchSubstance(nameLower, abusePotentialMedicines); ok {
			factors = append(factors, fmt.Sprintf("abuse_potential:%s", item.MedicineName))
			delta += weightAbusePotentialMedicine
		}

		if item.Quantity > 10 {
			factors = append(factors, fmt.Sprintf("large_quantity:%s:%d", item.MedicineName, item.Quantity))
			delta += weightUnusuallyLargeQuantity
		}

		if item.RequiresPrescription && !state.PrescriptionUploaded {
			factors = append(factors, fmt.Sprintf("prescription_missing:%s", item.MedicineName))
			delta += weightPrescriptionWithoutUpload
		}
	}

	if controlledCount >= 2 {
		factors = append(factors, "multiple_controlled_substances")
		delta += weightMultipleControlledSubstances
	}

	if state.PharmacistDecision == domain.DecisionRejected {
		factors = append(factors, "validation_failure")
		delta += weightMultipleValidationFailures
	}

	return Assessment{FactorsTriggered: factors, ScoreDelta: delta}
}
