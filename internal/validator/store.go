package validator

import (
	"context"
	"errors"

	"github.com/arogya-path/kernel/internal/domain"
)

// ErrMedicineNotFound is returned by MedicineStore.GetMedicine when no
// catalog entry matches, at any lookup tier.
var ErrMedicineNotFound = errors.New("validator: medicine not found")

// MedicineStore is the narrow catalog lookup seam the validator needs to
// infer a missing dosage from a medicine's known strength. internal/store
// provides the pgx-backed three-tier implementation (exact/substring/fuzzy).
type MedicineStore interface {
	GetMedicine(ctx context.Context, name string) (domain.MedicineMatch, error)
}

// PatientStore is the narrow, read-only patient lookup the validator needs
// for age/allergy/condition context. Unlike internal/risk's PatientStore,
// the validator never writes a patient back.
type PatientStore interface {
	GetPatient(ctx context.Context, userID string) (domain.Patient, error)
}

// inferDosage fills line.Dosage from the catalog's known strength when the
// line arrived without one, mirroring both OTC step 2 and Prescription
// step 2 (the original reuses the same fill logic in both modes). Returns
// whether a value was filled and, if not, whether that absence should be
// treated as a validation gap (dosage still missing and nothing to infer
// it from).
func inferDosage(ctx context.Context, store MedicineStore, name, dosage string) (filled string, inferred bool, stillMissing bool) {
	if dosage != "" {
		return dosage, false, false
	}
	if store == nil {
		return "", false, true
	}
	match, err := store.GetMedicine(ctx, name)
	if err != nil || match.Medicine.Strength == "" {
		return "", false, true
	}
	return match.Medicine.Strength, true, false
}
