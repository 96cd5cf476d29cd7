package inventoryagent

import (
	"context"
	"fmt"

	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/domain"
)

const (
	statusAvailable   = "available"
	statusPartial     = "partial"
	statusOutOfStock  = "out_of_stock"
	statusNotFound    = "not_found"
)

// Service runs the Inventory Agent: per-item availability classification,
// alternative discovery for anything unavailable, an optional equivalent
// replacement proposal for the request as a whole, and an availability
// score. It never mutates stock.
type Service struct {
	medicines MedicineStore
	patients  PatientStore
	clock     clockz.Clock
}

// New creates a Service. patients may be nil — the contraindication gate
// is then simply never triggered.
func New(medicines MedicineStore, patients PatientStore) *Service {
	return &Service{medicines: medicines, patients: patients, clock: clockz.RealClock}
}

// WithClock overrides the clock used for the trace record's timestamp.
func (s *Service) WithClock(clock clockz.Clock) *Service {
	s.clock = clock
	return s
}

// Run classifies every extracted item's availability, proposes
// alternatives and an optional equivalent replacement, and records
// trace_metadata["inventory_agent"]. It never changes PharmacistDecision.
func (s *Service) Run(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	items := make([]domain.InventoryItemResult, 0, len(state.ExtractedItems))

	var allergies []string
	if state.UserID != "" && s.patients != nil {
		if patient, err := s.patients.GetPatient(ctx, state.UserID); err == nil {
			allergies = patient.Allergies
		}
	}

	var bestReplacement *domain.ReplacementInfo

	for i := range state.ExtractedItems {
		item := &state.ExtractedItems[i]

		match, err := s.medicines.GetMedicine(ctx, item.MedicineName)
		if err != nil {
			item.InStock = false
			items = append(items, s.unavailableResult(ctx, statusNotFound, domain.Medicine{}, item.MedicineName, allergies, &bestReplacement))
			continue
		}

		medicine := match.Medicine
		switch {
		case medicine.Stock >= item.Quantity:
			item.InStock = true
			items = append(items, domain.InventoryItemResult{MedicineName: item.MedicineName, Status: statusAvailable})
			continue
		case medicine.Stock > 0:
			item.InStock = false
			items = append(items, s.unavailableResult(ctx, statusPartial, medicine, item.MedicineName, allergies, &bestReplacement))
		default:
			item.InStock = false
			items = append(items, s.unavailableResult(ctx, statusOutOfStock, medicine, item.MedicineName, allergies, &bestReplacement))
		}
	}

	total := len(state.ExtractedItems)
	available := 0
	for _, item := range state.ExtractedItems {
		if item.InStock {
			available++
		}
	}
	var score float64
	if total > 0 {
		score = float64(available) / float64(total)
	}

	state.ReplacementPending = bestReplacement

	state.TraceMetadata["inventory_agent"] = domain.AgentResult{
		Agent:     "inventory_agent",
		Status:    fmt.Sprintf("%d/%d available", available, total),
		Timestamp: s.clock.Now(),
		Inventory: &domain.InventoryResult{
			Items:             items,
			AvailabilityScore: score,
			Replacement:       bestReplacement,
		},
	}

	return state, nil
}

// unavailableResult finds alternatives for a partial/out-of-stock item and
// folds the best qualifying candidate into the running single replacement
// proposal for the request.
func (s *Service) unavailableResult(
	ctx context.Context,
	status string,
	medicine domain.Medicine,
	originalName string,
	allergies []string,
	bestReplacement **domain.ReplacementInfo,
) domain.InventoryItemResult {
	alternatives := findAlternatives(ctx, s.medicines, medicine, originalName)

	if *bestReplacement == nil {
		if replacement := proposeReplacement(medicine, alternatives, allergies); replacement != nil {
			*bestReplacement = replacement
		}
	}

	return domain.InventoryItemResult{
		MedicineName: originalName,
		Status:       status,
		Alternatives: toAlternativeList(alternatives),
	}
}
