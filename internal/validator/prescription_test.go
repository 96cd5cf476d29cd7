package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/domain"
)

func TestService_RunPrescription(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	clock := clockz.NewFakeClock()
	clock.Set(now)

	validInput := &domain.PrescriptionInput{
		PatientName:      "John Doe",
		DoctorName:       "Dr. Jane Smith",
		Date:             now.AddDate(0, 0, -10).Format("02/01/2006"),
		SignaturePresent: true,
		Medicines: []domain.PrescriptionMedicineLine{
			{Name: "Paracetamol", Dosage: "500mg", Frequency: "3 times daily", Duration: "5 days"},
		},
	}

	t.Run("missing prescription data is rejected", func(t *testing.T) {
		svc := New(nil, nil, nil, nil).WithClock(clock)
		state := domain.PipelineState{PrescriptionUploaded: true, TraceMetadata: make(map[string]domain.AgentResult)}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionRejected, out.PharmacistDecision)
		assert.False(t, out.PrescriptionVerified)
	})

	t.Run("valid prescription is approved", func(t *testing.T) {
		svc := New(newFakeMedicineStore(), nil, nil, nil).WithClock(clock)
		state := domain.PipelineState{
			PrescriptionUploaded: true,
			PrescriptionInput:    validInput,
			TraceMetadata:        make(map[string]domain.AgentResult),
		}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionApproved, out.PharmacistDecision)
		assert.True(t, out.PrescriptionVerified)

		record := out.TraceMetadata["medical_validator"]
		require.NotNil(t, record.Validator.Prescription)
		assert.Equal(t, "John Doe", record.Validator.Prescription.PatientName)
	})

	t.Run("controlled substance requires pharmacist review", func(t *testing.T) {
		input := &domain.PrescriptionInput{
			PatientName:      "John Doe",
			DoctorName:       "Dr. Jane Smith",
			Date:             now.AddDate(0, 0, -10).Format("02/01/2006"),
			SignaturePresent: true,
			Medicines: []domain.PrescriptionMedicineLine{
				{Name: "Alprazolam", Dosage: "0.5mg", Frequency: "2 times daily"},
			},
		}
		svc := New(newFakeMedicineStore(), nil, nil, nil).WithClock(clock)
		state := domain.PipelineState{
			PrescriptionUploaded: true,
			PrescriptionInput:    input,
			TraceMetadata:        make(map[string]domain.AgentResult),
		}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.NotEqual(t, domain.DecisionApproved, out.PharmacistDecision)
	})

	t.Run("expired prescription is rejected", func(t *testing.T) {
		input := &domain.PrescriptionInput{
			PatientName:      "John Doe",
			DoctorName:       "Dr. Jane Smith",
			Date:             now.AddDate(0, 0, -200).Format("02/01/2006"),
			SignaturePresent: true,
			Medicines: []domain.PrescriptionMedicineLine{
				{Name: "Paracetamol", Dosage: "500mg"},
			},
		}
		svc := New(newFakeMedicineStore(), nil, nil, nil).WithClock(clock)
		state := domain.PipelineState{
			PrescriptionUploaded: true,
			PrescriptionInput:    input,
			TraceMetadata:        make(map[string]domain.AgentResult),
		}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionRejected, out.PharmacistDecision)
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		input := &domain.PrescriptionInput{
			PatientName:      "John Doe",
			DoctorName:       "Dr. Jane Smith",
			Date:             now.AddDate(0, 0, -10).Format("02/01/2006"),
			SignaturePresent: false,
			Medicines: []domain.PrescriptionMedicineLine{
				{Name: "Paracetamol", Dosage: "500mg"},
			},
		}
		svc := New(newFakeMedicineStore(), nil, nil, nil).WithClock(clock)
		state := domain.PipelineState{
			PrescriptionUploaded: true,
			PrescriptionInput:    input,
			TraceMetadata:        make(map[string]domain.AgentResult),
		}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionRejected, out.PharmacistDecision)
	})

	t.Run("excessive dosage is rejected", func(t *testing.T) {
		input := &domain.PrescriptionInput{
			PatientName:      "John Doe",
			DoctorName:       "Dr. Jane Smith",
			Date:             now.AddDate(0, 0, -10).Format("02/01/2006"),
			SignaturePresent: true,
			Medicines: []domain.PrescriptionMedicineLine{
				{Name: "Paracetamol", Dosage: "1000mg", Frequency: "5 times daily"},
			},
		}
		svc := New(newFakeMedicineStore(), nil, nil, nil).WithClock(clock)
		state := domain.PipelineState{
			PrescriptionUploaded: true,
			PrescriptionInput:    input,
			TraceMetadata:        make(map[string]domain.AgentResult),
		}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionRejected, out.PharmacistDecision)
	})

	t.Run("unknown fields render as not clearly visible", func(t *testing.T) {
		input := &domain.PrescriptionInput{
			Date:             now.AddDate(0, 0, -10).Format("02/01/2006"),
			SignaturePresent: true,
			Medicines: []domain.PrescriptionMedicineLine{
				{Name: "Paracetamol", Dosage: "500mg"},
			},
		}
		svc := New(newFakeMedicineStore(), nil, nil, nil).WithClock(clock)
		state := domain.PipelineState{
			PrescriptionUploaded: true,
			PrescriptionInput:    input,
			TraceMetadata:        make(map[string]domain.AgentResult),
		}

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		record := out.TraceMetadata["medical_validator"]
		assert.Equal(t, notClearlyVisible, record.Validator.Prescription.PatientName)
	})
}
