package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInteractionsFallback(t *testing.T) {
	t.Run("no interactions for an unrelated set", func(t *testing.T) {
		result := checkInteractionsFallback([]string{"Paracetamol", "Amoxicillin"})
		assert.False(t, result.HasInteractions)
		assert.Equal(t, InteractionNone, result.Severity)
		assert.True(t, result.SafeToDispense)
	})

	t.Run("multiple NSAIDs flagged moderate", func(t *testing.T) {
		result := checkInteractionsFallback([]string{"Ibuprofen", "Aspirin"})
		require.True(t, result.HasInteractions)
		assert.Equal(t, InteractionModerate, result.Severity)
	})

	t.Run("benzodiazepine plus opioid is severe and unsafe", func(t *testing.T) {
		result := checkInteractionsFallback([]string{"Diazepam", "Morphine"})
		require.True(t, result.HasInteractions)
		assert.Equal(t, InteractionSevere, result.Severity)
		assert.False(t, result.SafeToDispense)
	})

	t.Run("anticoagulant plus NSAID is severe", func(t *testing.T) {
		result := checkInteractionsFallback([]string{"Warfarin", "Ibuprofen"})
		assert.Equal(t, InteractionSevere, result.Severity)
	})

	t.Run("duplicate medicine is minor", func(t *testing.T) {
		result := checkInteractionsFallback([]string{"Paracetamol", "Paracetamol"})
		require.True(t, result.HasInteractions)
		assert.Equal(t, InteractionMinor, result.Severity)
	})

	t.Run("ace inhibitor plus potassium is moderate", func(t *testing.T) {
		result := checkInteractionsFallback([]string{"Lisinopril", "Spironolactone"})
		assert.Equal(t, InteractionModerate, result.Severity)
	})

	t.Run("worst severity wins when multiple combinations match", func(t *testing.T) {
		result := checkInteractionsFallback([]string{"Diazepam", "Morphine", "Ibuprofen", "Aspirin"})
		assert.Equal(t, InteractionSevere, result.Severity)
		assert.GreaterOrEqual(t, len(result.Interactions), 2)
	})
}

func TestDetectRedFlags(t *testing.T) {
	assert.Empty(t, detectRedFlags([]string{"mild headache"}))
	found := detectRedFlags([]string{"severe Chest Pain and difficulty breathing"})
	assert.Contains(t, found, "chest pain")
	assert.Contains(t, found, "difficulty breathing")
}
