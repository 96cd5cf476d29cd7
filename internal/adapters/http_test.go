package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
)

func TestHTTPTextExtractor_DecodesValidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"intent":   "purchase",
			"language": "en",
			"items":    []map[string]any{{"medicine_name": "Paracetamol", "dosage": "500mg", "quantity": 2}},
		})
	}))
	defer srv.Close()

	extractor := NewHTTPTextExtractor(NewHTTPClient(srv.URL, 0))
	out, err := extractor.Extract(context.Background(), "buy paracetamol")
	require.NoError(t, err)
	assert.Equal(t, "purchase", string(out.Intent))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Paracetamol", out.Items[0].MedicineName)
	assert.Equal(t, 2, out.Items[0].Quantity)
}

func TestHTTPTextExtractor_SchemaViolationIsInfrastructureError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"language": "en"}) // missing required intent/items
	}))
	defer srv.Close()

	extractor := NewHTTPTextExtractor(NewHTTPClient(srv.URL, 0))
	_, err := extractor.Extract(context.Background(), "buy paracetamol")
	require.Error(t, err)
}

func TestHTTPIntentClassifier_BelowThresholdBecomesSymptom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"intent": "purchase", "confidence": 0.1})
	}))
	defer srv.Close()

	classifier := NewHTTPIntentClassifier(NewHTTPClient(srv.URL, 0))
	out, err := classifier.Classify(context.Background(), "mumble mumble")
	require.NoError(t, err)
	assert.True(t, out.NeedsClarification)
}

func TestHTTPClient_ServerErrorIsRecoverable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	extractor := NewHTTPTextExtractor(NewHTTPClient(srv.URL, 0))
	_, err := extractor.Extract(context.Background(), "anything")
	require.Error(t, err)
	var infraErr *domain.InfrastructureError
	require.ErrorAs(t, err, &infraErr)
	assert.True(t, infraErr.Recoverable)
}
