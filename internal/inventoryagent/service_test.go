package inventoryagent

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
)

func inventoryState(items ...domain.OrderLine) domain.PipelineState {
	return domain.PipelineState{
		ExtractedItems: items,
		TraceMetadata:  make(map[string]domain.AgentResult),
	}
}

func TestService_Run(t *testing.T) {
	t.Run("all items available scores 1.0", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 10}
		svc := New(store, nil)
		state := inventoryState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 2, UnitPrice: decimal.NewFromInt(5)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.True(t, out.ExtractedItems[0].InStock)

		record := out.TraceMetadata["inventory_agent"]
		require.NotNil(t, record.Inventory)
		assert.Equal(t, 1.0, record.Inventory.AvailabilityScore)
		assert.Equal(t, statusAvailable, record.Inventory.Items[0].Status)
	})

	t.Run("unknown medicine is not_found with no score contribution", func(t *testing.T) {
		store := newFakeMedicineStore()
		svc := New(store, nil)
		state := inventoryState(domain.OrderLine{MedicineName: "Mysterium", Quantity: 1, UnitPrice: decimal.NewFromInt(5)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.False(t, out.ExtractedItems[0].InStock)

		record := out.TraceMetadata["inventory_agent"]
		assert.Equal(t, 0.0, record.Inventory.AvailabilityScore)
		assert.Equal(t, statusNotFound, record.Inventory.Items[0].Status)
	})

	t.Run("partial stock surfaces alternatives", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["Paracetamol 500mg"] = domain.Medicine{Name: "Paracetamol 500mg", Category: "analgesic", Stock: 1}
		store.byCategory["analgesic"] = []domain.Medicine{
			{Name: "Ibuprofen", Category: "analgesic", Stock: 10, Price: decimal.NewFromInt(8)},
		}
		svc := New(store, nil)
		state := inventoryState(domain.OrderLine{MedicineName: "Paracetamol 500mg", Quantity: 5, UnitPrice: decimal.NewFromInt(5)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.False(t, out.ExtractedItems[0].InStock)

		record := out.TraceMetadata["inventory_agent"]
		assert.Equal(t, statusPartial, record.Inventory.Items[0].Status)
		require.Len(t, record.Inventory.Items[0].Alternatives, 1)
		assert.Equal(t, "Ibuprofen", record.Inventory.Items[0].Alternatives[0].MedicineName)
	})

	t.Run("never mutates PharmacistDecision", func(t *testing.T) {
		store := newFakeMedicineStore()
		svc := New(store, nil)
		state := inventoryState(domain.OrderLine{MedicineName: "Mysterium", Quantity: 1, UnitPrice: decimal.NewFromInt(5)})
		state.PharmacistDecision = domain.DecisionApproved

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionApproved, out.PharmacistDecision)
	})

	t.Run("proposes a replacement refused by allergy", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["BrandPara"] = domain.Medicine{
			Name: "BrandPara", Category: "analgesic", Stock: 0,
			ActiveIngredients: []string{"Paracetamol"},
		}
		store.byCategory["analgesic"] = []domain.Medicine{
			{Name: "OtherPara", Category: "analgesic", Stock: 5, ActiveIngredients: []string{"Paracetamol"}},
		}
		patients := &fakeInventoryPatientStore{byID: map[string]domain.Patient{
			"user-1": {PID: "user-1", Allergies: []string{"paracetamol"}},
		}}
		svc := New(store, patients)
		state := inventoryState(domain.OrderLine{MedicineName: "BrandPara", Quantity: 1, UnitPrice: decimal.NewFromInt(5)})
		state.UserID = "user-1"

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Nil(t, out.ReplacementPending)
	})
}
