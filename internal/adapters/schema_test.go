package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAgainstSchema_ValidLLMText(t *testing.T) {
	raw := []byte(`{"intent":"purchase","language":"en","items":[{"medicine_name":"Paracetamol","quantity":2}]}`)
	err := validateAgainstSchema("llm_text.json", raw)
	assert.NoError(t, err)
}

func TestValidateAgainstSchema_MissingRequiredField(t *testing.T) {
	raw := []byte(`{"language":"en"}`)
	err := validateAgainstSchema("llm_text.json", raw)
	require.Error(t, err)
}

func TestValidateAgainstSchema_WrongEnumValue(t *testing.T) {
	raw := []byte(`{"has_interactions":true,"severity":"catastrophic","safe_to_dispense":false}`)
	err := validateAgainstSchema("llm_safety.json", raw)
	require.Error(t, err)
}

func TestValidateAgainstSchema_SeverityOutOfRange(t *testing.T) {
	raw := []byte(`{"severity_score":15,"recommended_action":"otc"}`)
	err := validateAgainstSchema("llm_severity.json", raw)
	require.Error(t, err)
}

func TestValidateAgainstSchema_MalformedJSON(t *testing.T) {
	err := validateAgainstSchema("ocr.json", []byte(`{not json`))
	require.Error(t, err)
}

func TestValidateAgainstSchema_UnknownSchema(t *testing.T) {
	err := validateAgainstSchema("does-not-exist.json", []byte(`{}`))
	require.Error(t, err)
}
