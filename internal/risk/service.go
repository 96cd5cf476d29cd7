package risk

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/domain"
)

var (
	signalEscalated = capitan.Signal("risk.escalated")
	fieldUserID     = capitan.NewStringKey("user_id")
	fieldOldScore   = capitan.NewIntKey("old_score")
	fieldNewScore   = capitan.NewIntKey("new_score")
	fieldLevel      = capitan.NewStringKey("level")
)

// PatientStore is the narrow persistence seam the risk scorer needs — a
// single patient row, loaded and saved by user ID. internal/store provides
// the pgx-backed implementation; tests can supply an in-memory fake.
type PatientStore interface {
	GetPatient(ctx context.Context, userID string) (domain.Patient, error)
	UpdatePatient(ctx context.Context, patient domain.Patient) error
}

// Service runs the risk scoring step: assess, persist, then mutate the
// pipeline decision according to the resulting tier.
type Service struct {
	store PatientStore
	clock clockz.Clock
}

// New creates a Service backed by store.
func New(store PatientStore) *Service {
	return &Service{store: store, clock: clockz.RealClock}
}

// WithClock overrides the clock used for the assessment timestamp.
func (s *Service) WithClock(clock clockz.Clock) *Service {
	s.clock = clock
	return s
}

// Run scores state, accumulates the result into the patient's risk profile,
// and returns state with RiskScore/RiskLevel/RiskFactorsTriggered/
// RiskEscalated set, PharmacistDecision adjusted per tier, and
// TraceMetadata["risk_scoring_agent"] populated. If state.UserID is empty,
// scoring is skipped entirely (matches the original agent's early return).
func (s *Service) Run(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	if state.UserID == "" {
		return state, nil
	}

	assessment := Assess(state)

	patient, err := s.store.GetPatient(ctx, state.UserID)
	if err != nil {
		return state, fmt.Errorf("risk: load patient: %w", err)
	}

	oldScore := patient.RiskScore
	oldLevel := domain.RiskLevelFor(oldScore)
	newScore := oldScore + assessment.ScoreDelta
	if newScore > 100 {
		newScore = 100
	}
	newLevel := domain.RiskLevelFor(newScore)
	escalated := isEscalated(newLevel) && !isEscalated(oldLevel)

	patient.RiskScore = newScore
	patient.RiskLevel = newLevel
	patient.AddRiskFlags(assessment.FactorsTriggered...)
	patient.RiskUpdatedAt = s.clock.Now()
	patient.FlaggedForReview = isEscalated(newLevel)

	if err := s.store.UpdatePatient(ctx, patient); err != nil {
		return state, fmt.Errorf("risk: update patient: %w", err)
	}

	if escalated {
		capitan.Warn(ctx, signalEscalated,
			fieldUserID.Field(state.UserID),
			fieldOldScore.Field(oldScore),
			fieldNewScore.Field(newScore),
			fieldLevel.Field(string(newLevel)),
		)
	}

	state.RiskScore = newScore
	state.RiskLevel = newLevel
	state.RiskFactorsTriggered = assessment.FactorsTriggered
	state.RiskEscalated = escalated

	action := applyPipelineAction(&state, newScore, newLevel, assessment.FactorsTriggered)

	state.TraceMetadata["risk_scoring_agent"] = domain.AgentResult{
		Agent:     "risk_scoring_agent",
		Status:    string(newLevel),
		Timestamp: s.clock.Now(),
		RiskScoring: &domain.RiskScoringResult{
			RiskScore:        newScore,
			RiskLevel:        newLevel,
			ScoreDelta:       assessment.ScoreDelta,
			FactorsTriggered: assessment.FactorsTriggered,
			Escalated:        escalated,
			PipelineAction:   action,
		},
	}

	return state, nil
}

func isEscalated(level domain.RiskLevel) bool {
	return level == domain.RiskHigh || level == domain.RiskCritical
}

// applyPipelineAction mutates state.PharmacistDecision/SafetyIssues per
// tier, matching run_risk_scoring_agent's step 4, and returns the action
// label recorded in trace_metadata.
func applyPipelineAction(state *domain.PipelineState, score int, level domain.RiskLevel, factors []string) string {
	switch level {
	case domain.RiskCritical:
		state.PharmacistDecision = domain.DecisionRejected
		state.SafetyIssues = append(state.SafetyIssues, fmt.Sprintf(
			"CRITICAL RISK: Order blocked. Score: %d/100. Factors: %s", score, strings.Join(factors, ", ")))
		return "blocked"
	case domain.RiskHigh:
		if state.PharmacistDecision == domain.DecisionApproved {
			state.PharmacistDecision = domain.DecisionNeedsReview
		}
		state.SafetyIssues = append(state.SafetyIssues, fmt.Sprintf(
			"HIGH RISK: Pharmacist review required. Score: %d/100", score))
		return "review"
	case domain.RiskElevated:
		state.SafetyIssues = append(state.SafetyIssues, fmt.Sprintf(
			"ELEVATED RISK: Monitoring. Score: %d/100", score))
		return "monitor"
	default:
		return "normal"
	}
}
