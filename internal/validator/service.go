package validator

import (
	"context"

	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/pipeline"
)

// Service runs the Medical Validator: OTC mode when no prescription has
// been uploaded, Prescription mode otherwise, dispatched by
// state.PrescriptionUploaded to auto-detect mode.
type Service struct {
	medicines   MedicineStore
	patients    PatientStore
	interactions InteractionChecker
	severity    SeverityAssessor
	clock       clockz.Clock
}

// New creates a Service. interactions and severity may be nil — Run falls
// back to the fixed-table interaction check and the conservative severity
// fallback, respectively, whenever they are nil or return an error.
func New(medicines MedicineStore, patients PatientStore, interactions InteractionChecker, severity SeverityAssessor) *Service {
	return &Service{
		medicines:    medicines,
		patients:     patients,
		interactions: interactions,
		severity:     severity,
		clock:        clockz.RealClock,
	}
}

// WithClock overrides the clock used for summary/reconstruction timestamps.
func (s *Service) WithClock(clock clockz.Clock) *Service {
	s.clock = clock
	return s
}

// Run dispatches to OTC or Prescription mode and returns state with
// PharmacistDecision (further) narrowed, SafetyIssues appended, and
// TraceMetadata["medical_validator"] populated.
func (s *Service) Run(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	if state.PrescriptionUploaded {
		return s.runPrescription(ctx, state)
	}
	return s.runOTC(ctx, state)
}

// checkInteractions calls the configured adapter, falling back to the
// fixed table if none is configured or the call fails. The two are chained
// as a pipeline.Fallback so the adapter call carries the same structured
// Error[T]/metricz/capitan instrumentation every other fallible connector
// in the kernel gets, rather than a bespoke nil/err check.
func (s *Service) checkInteractions(ctx context.Context, medicineNames []string) InteractionResult {
	links := make([]pipeline.Chainable[InteractionResult], 0, 2)
	if s.interactions != nil {
		links = append(links, pipeline.Apply("medical_validator.interaction_adapter", func(ctx context.Context, _ InteractionResult) (InteractionResult, error) {
			return s.interactions.CheckInteractions(ctx, medicineNames)
		}))
	}
	links = append(links, pipeline.Transform("medical_validator.interaction_fixed_table", func(_ context.Context, _ InteractionResult) InteractionResult {
		return checkInteractionsFallback(medicineNames)
	}))

	chain := pipeline.NewFallback[InteractionResult]("medical_validator.interactions", links...)
	result, _ := chain.Process(ctx, InteractionResult{})
	return result
}

// assessSeverity calls the configured adapter, falling back to the
// deterministic red-flag-only assessment if none is configured or the
// call fails, chained the same way checkInteractions is.
func (s *Service) assessSeverity(ctx context.Context, symptoms []string, patientContext string, history []string) SeverityAssessment {
	links := make([]pipeline.Chainable[SeverityAssessment], 0, 2)
	if s.severity != nil {
		links = append(links, pipeline.Apply("medical_validator.severity_adapter", func(ctx context.Context, _ SeverityAssessment) (SeverityAssessment, error) {
			return s.severity.AssessSeverity(ctx, symptoms, patientContext, history)
		}))
	}
	links = append(links, pipeline.Transform("medical_validator.severity_fixed_table", func(_ context.Context, _ SeverityAssessment) SeverityAssessment {
		return assessSeverityFallback(symptoms)
	}))

	chain := pipeline.NewFallback[SeverityAssessment]("medical_validator.severity", links...)
	result, _ := chain.Process(ctx, SeverityAssessment{})
	return result
}

// recordValidatorResult writes trace_metadata["medical_validator"],
// matching exactly one of otcSummary/prescription (whichever mode ran).
func (s *Service) recordValidatorResult(
	state domain.PipelineState,
	mode string,
	safeToDispense bool,
	severityScore int,
	interactionSeverity InteractionSeverity,
	otcSummary *domain.OTCSummary,
) domain.PipelineState {
	state.TraceMetadata["medical_validator"] = domain.AgentResult{
		Agent:     "medical_validator",
		Status:    string(state.PharmacistDecision),
		Timestamp: s.clock.Now(),
		Validator: &domain.ValidatorResult{
			Mode:                mode,
			SafeToDispense:      safeToDispense,
			SeverityScore:       severityScore,
			InteractionSeverity: string(interactionSeverity),
			OTCSummaryResult:    otcSummary,
		},
	}
	return state
}

// recordPrescriptionResult is recordValidatorResult's Prescription-mode
// counterpart, carrying a ReconstructedPrescription instead of an
// OTCSummary.
func (s *Service) recordPrescriptionResult(
	state domain.PipelineState,
	safeToDispense bool,
	severityScore int,
	interactionSeverity InteractionSeverity,
	prescription *domain.ReconstructedPrescription,
) domain.PipelineState {
	state.TraceMetadata["medical_validator"] = domain.AgentResult{
		Agent:     "medical_validator",
		Status:    string(state.PharmacistDecision),
		Timestamp: s.clock.Now(),
		Validator: &domain.ValidatorResult{
			Mode:                "prescription",
			SafeToDispense:      safeToDispense,
			SeverityScore:       severityScore,
			InteractionSeverity: string(interactionSeverity),
			Prescription:        prescription,
		},
	}
	return state
}
