package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arogya-path/kernel/internal/domain"
)

// pidFromSeq formats a database sequence value as a PID-###### identifier,
// base-offset 1000 to match the original's PID-1001 starting point.
func pidFromSeq(seq int64) string {
	return fmt.Sprintf("PID-%06d", seq+1000)
}

// GetPatient loads a patient row by PID (the stable user ID threaded
// through PipelineState). A userID with no row yet is not an error — it
// returns a fresh, empty Patient{PID: userID} — matching risk.Service's
// and inventoryagent.Service's expectation that scoring a never-seen
// patient is the normal first-contact case, not a failure.
func (s *Store) GetPatient(ctx context.Context, userID string) (domain.Patient, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT pid, phone, name, risk_score, risk_level, risk_flags, risk_updated_at,
		        flagged_for_review, age_years, allergies, conditions
		 FROM patients WHERE pid = $1`, userID)

	var p domain.Patient
	var flags []string
	err := row.Scan(&p.PID, &p.Phone, &p.Name, &p.RiskScore, &p.RiskLevel, &flags, &p.RiskUpdatedAt,
		&p.FlaggedForReview, &p.AgeYears, &p.Allergies, &p.Conditions)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Patient{PID: userID}, nil
	}
	if err != nil {
		return domain.Patient{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	p.AddRiskFlags(flags...)
	return p, nil
}

// UpdatePatient upserts patient by PID — risk.Service calls this after
// every scored turn, whether or not the patient already existed.
func (s *Store) UpdatePatient(ctx context.Context, patient domain.Patient) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO patients
		   (pid, phone, name, risk_score, risk_level, risk_flags, risk_updated_at,
		    flagged_for_review, age_years, allergies, conditions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (pid) DO UPDATE SET
		   phone              = EXCLUDED.phone,
		   name               = EXCLUDED.name,
		   risk_score         = EXCLUDED.risk_score,
		   risk_level         = EXCLUDED.risk_level,
		   risk_flags         = EXCLUDED.risk_flags,
		   risk_updated_at    = EXCLUDED.risk_updated_at,
		   flagged_for_review = EXCLUDED.flagged_for_review,
		   age_years          = EXCLUDED.age_years,
		   allergies          = EXCLUDED.allergies,
		   conditions         = EXCLUDED.conditions`,
		patient.PID, patient.Phone, patient.Name, patient.RiskScore, patient.RiskLevel,
		patient.RiskFlagList(), patient.RiskUpdatedAt, patient.FlaggedForReview,
		patient.AgeYears, nonNilStrings(patient.Allergies), nonNilStrings(patient.Conditions))
	if err != nil {
		return &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	return nil
}

// ResolvePatient gets or creates a patient row by phone, generating a
// PID of the form PID-###### the first time a phone number is seen —
// grounded on a phone-lookup resolve_patient helper,
// whose PID-%06d counter is replaced here with a sequence-backed
// allocation so concurrent first-contacts never collide on the same PID.
func (s *Store) ResolvePatient(ctx context.Context, phone, name string) (domain.Patient, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT pid, phone, name, risk_score, risk_level, risk_flags, risk_updated_at,
		        flagged_for_review, age_years, allergies, conditions
		 FROM patients WHERE phone = $1`, phone)

	var p domain.Patient
	var flags []string
	err := row.Scan(&p.PID, &p.Phone, &p.Name, &p.RiskScore, &p.RiskLevel, &flags, &p.RiskUpdatedAt,
		&p.FlaggedForReview, &p.AgeYears, &p.Allergies, &p.Conditions)
	if err == nil {
		p.AddRiskFlags(flags...)
		return p, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Patient{}, false, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}

	var seq int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('patient_pid_seq')`).Scan(&seq); err != nil {
		return domain.Patient{}, false, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	pid := pidFromSeq(seq)
	if name == "" {
		name = "Patient " + pid[len(pid)-4:]
	}

	if err := s.UpdatePatient(ctx, domain.Patient{PID: pid, Phone: phone, Name: name}); err != nil {
		return domain.Patient{}, false, err
	}
	return domain.Patient{PID: pid, Phone: phone, Name: name}, true, nil
}
