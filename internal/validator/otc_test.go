package validator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
)

type fakeMedicineStore struct {
	byName map[string]domain.Medicine
}

func newFakeMedicineStore() *fakeMedicineStore {
	return &fakeMedicineStore{byName: make(map[string]domain.Medicine)}
}

func (f *fakeMedicineStore) GetMedicine(_ context.Context, name string) (domain.MedicineMatch, error) {
	m, ok := f.byName[name]
	if !ok {
		return domain.MedicineMatch{}, ErrMedicineNotFound
	}
	return domain.MedicineMatch{Medicine: m, MatchKind: domain.MatchExact}, nil
}

type fakeValidatorPatientStore struct {
	byID map[string]domain.Patient
}

func (f *fakeValidatorPatientStore) GetPatient(_ context.Context, userID string) (domain.Patient, error) {
	p, ok := f.byID[userID]
	if !ok {
		return domain.Patient{}, ErrMedicineNotFound
	}
	return p, nil
}

func otcState(items ...domain.OrderLine) domain.PipelineState {
	return domain.PipelineState{
		ExtractedItems: items,
		TraceMetadata:  make(map[string]domain.AgentResult),
	}
}

func TestService_RunOTC(t *testing.T) {
	t.Run("unknown medicine forces needs review", func(t *testing.T) {
		svc := New(newFakeMedicineStore(), nil, nil, nil)
		state := otcState(domain.OrderLine{MedicineName: "Mysterium", Quantity: 1, UnitPrice: decimal.NewFromInt(10)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionNeedsReview, out.PharmacistDecision)
	})

	t.Run("missing dosage inferred from catalog strength", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Strength: "500mg"}
		svc := New(store, nil, nil, nil)
		state := otcState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, "500mg", out.ExtractedItems[0].Dosage)
		assert.True(t, out.ExtractedItems[0].DosageInferred)
		assert.Equal(t, domain.DecisionApproved, out.PharmacistDecision)
	})

	t.Run("item requiring prescription short-circuits to needs review", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["Amoxicillin"] = domain.Medicine{Name: "Amoxicillin", Strength: "500mg", RequiresPrescription: true}
		svc := New(store, nil, nil, nil)
		state := otcState(domain.OrderLine{MedicineName: "Amoxicillin", Quantity: 1, UnitPrice: decimal.NewFromInt(10)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionNeedsReview, out.PharmacistDecision)
		assert.False(t, out.PrescriptionVerified)

		record := out.TraceMetadata["medical_validator"]
		require.NotNil(t, record.Validator)
		assert.Nil(t, record.Validator.OTCSummaryResult)
	})

	t.Run("patient allergy recorded as safety issue", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Strength: "500mg"}
		patients := &fakeValidatorPatientStore{byID: map[string]domain.Patient{
			"user-1": {PID: "user-1", AgeYears: 30, Allergies: []string{"penicillin"}},
		}}
		svc := New(store, patients, nil, nil)
		state := otcState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)})
		state.UserID = "user-1"

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		found := false
		for _, issue := range out.SafetyIssues {
			if issue == "[ALLERGY ALERT] patient has a documented allergy to penicillin - verify before dispensing" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("severe interaction forces needs review", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["Diazepam"] = domain.Medicine{Name: "Diazepam", Strength: "5mg"}
		store.byName["Morphine"] = domain.Medicine{Name: "Morphine", Strength: "10mg"}
		svc := New(store, nil, nil, nil)
		state := otcState(
			domain.OrderLine{MedicineName: "Diazepam", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
			domain.OrderLine{MedicineName: "Morphine", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		)

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionNeedsReview, out.PharmacistDecision)

		record := out.TraceMetadata["medical_validator"]
		assert.Equal(t, string(InteractionSevere), record.Validator.InteractionSeverity)
	})

	t.Run("red flag symptom rejects the request", func(t *testing.T) {
		store := newFakeMedicineStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Strength: "500mg"}
		svc := New(store, nil, nil, nil)
		state := otcState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)})
		state.Symptoms = []string{"severe chest pain since this morning"}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionRejected, out.PharmacistDecision)
	})
}
