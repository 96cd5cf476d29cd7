// Package inventoryagent implements the Inventory Agent: per-item
// availability classification, alternative suggestions, an optional
// equivalent-replacement proposal, and an availability score. It never
// mutates stock — every status it reports is advisory, re-verified under
// lock by internal/fulfillment before anything is decremented.
package inventoryagent

import (
	"context"
	"errors"

	"github.com/arogya-path/kernel/internal/domain"
)

// ErrMedicineNotFound is returned by MedicineStore.GetMedicine when no
// catalog entry matches at any lookup tier.
var ErrMedicineNotFound = errors.New("inventoryagent: medicine not found")

// MedicineStore is the narrow catalog seam the agent needs: an exact/fuzzy
// lookup plus the two alternative-discovery queries inventory replacement needs.
// internal/store provides the pgx-backed implementation.
type MedicineStore interface {
	GetMedicine(ctx context.Context, name string) (domain.MedicineMatch, error)

	// FindByCategory returns up to limit medicines in category, excluding
	// excludeName, with Stock > 0.
	FindByCategory(ctx context.Context, category, excludeName string, limit int) ([]domain.Medicine, error)

	// FindBySimilarName returns up to limit medicines whose name contains
	// baseName (case-insensitive), with Stock > 0.
	FindBySimilarName(ctx context.Context, baseName string, limit int) ([]domain.Medicine, error)
}

// PatientStore is the narrow, read-only patient lookup the agent needs for
// the contraindication gate on a proposed replacement.
type PatientStore interface {
	GetPatient(ctx context.Context, userID string) (domain.Patient, error)
}
