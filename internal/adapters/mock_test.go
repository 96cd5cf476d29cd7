package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/validator"
)

func TestMockLLM_Extract(t *testing.T) {
	m := NewMockLLM()
	ctx := context.Background()

	t.Run("purchase keyword", func(t *testing.T) {
		out, err := m.Extract(ctx, "I need to buy paracetamol")
		require.NoError(t, err)
		assert.Equal(t, domain.IntentPurchase, out.Intent)
		require.Len(t, out.Items, 1)
	})

	t.Run("refill keyword", func(t *testing.T) {
		out, err := m.Extract(ctx, "running out of my metformin")
		require.NoError(t, err)
		assert.Equal(t, domain.IntentRefill, out.Intent)
	})

	t.Run("inquiry keyword", func(t *testing.T) {
		out, err := m.Extract(ctx, "what is ibuprofen?")
		require.NoError(t, err)
		assert.Equal(t, domain.IntentInquiry, out.Intent)
		assert.Empty(t, out.Items)
	})

	t.Run("no keyword is unknown", func(t *testing.T) {
		out, err := m.Extract(ctx, "hello there")
		require.NoError(t, err)
		assert.Equal(t, domain.IntentUnknown, out.Intent)
	})
}

func TestMockLLM_AssessSeverity(t *testing.T) {
	m := NewMockLLM()
	ctx := context.Background()

	t.Run("red flag forces emergency", func(t *testing.T) {
		out, err := m.AssessSeverity(ctx, []string{"severe chest pain"}, "", nil)
		require.NoError(t, err)
		assert.Equal(t, validator.ActionEmergency, out.RecommendedAction)
		assert.GreaterOrEqual(t, out.Score, 9)
	})

	t.Run("no symptoms is OTC", func(t *testing.T) {
		out, err := m.AssessSeverity(ctx, nil, "", nil)
		require.NoError(t, err)
		assert.Equal(t, validator.ActionOTC, out.RecommendedAction)
	})

	t.Run("mild symptoms default to pharmacist", func(t *testing.T) {
		out, err := m.AssessSeverity(ctx, []string{"mild headache"}, "", nil)
		require.NoError(t, err)
		assert.Equal(t, validator.ActionPharmacist, out.RecommendedAction)
	})
}

func TestMockIntentClassifier_AlwaysBelowThreshold(t *testing.T) {
	c := NewMockIntentClassifier()
	out, err := c.Classify(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSymptom, out.Intent)
	assert.True(t, out.NeedsClarification)
	assert.Less(t, out.Confidence, intentConfidenceThreshold)
}

func TestMockOCR_LowConfidenceNoFabrication(t *testing.T) {
	ocr := NewMockOCR()
	out, err := ocr.Extract(context.Background(), []byte("not a real image"))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.Data.SignaturePresent)
	assert.Less(t, out.Data.Confidence, 0.5)
}

func TestMockTranscriber_EmptyTranscription(t *testing.T) {
	tr := NewMockTranscriber()
	out, err := tr.Transcribe(context.Background(), []byte{1, 2, 3}, "wav")
	require.NoError(t, err)
	assert.Empty(t, out.Transcription)
}
