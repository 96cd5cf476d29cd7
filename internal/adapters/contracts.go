// Package adapters defines the Go interfaces for every external dependency
// the kernel consumes (LLM text/safety/severity, OCR, intent classifier,
// speech-to-text), plus a deterministic mock implementation for tests and
// a resty-backed HTTP implementation for wiring to a real provider.
//
// Nothing in internal/orchestrator or the agent packages imports this
// package directly except through the narrow interfaces they already
// declare (validator.InteractionChecker, validator.SeverityAssessor); the
// remaining four contracts (TextExtractor, OCRExtractor, IntentClassifier,
// Transcriber) are consumed by internal/transport and internal/ingest,
// which turn raw user input into a PipelineState before handing it to the
// orchestrator.
package adapters

import (
	"context"

	"github.com/arogya-path/kernel/internal/domain"
)

// ExtractedLine is one medicine request line as the LLM text extractor
// reads it out of a free-text message, before any catalog resolution.
type ExtractedLine struct {
	MedicineName string
	Dosage       string
	Quantity     int
}

// TextExtraction is the normalized `Extract(message)` result shape from
// the "LLM text" extraction contract.
type TextExtraction struct {
	Intent   domain.Intent
	Language string
	Items    []ExtractedLine
}

// ToOrderLines converts the extracted lines into the OrderLine shape
// ExtractedItems carries through the pipeline. UnitPrice is left zero;
// the validator/fulfillment path fills it from the catalog.
func (t TextExtraction) ToOrderLines() []domain.OrderLine {
	lines := make([]domain.OrderLine, len(t.Items))
	for i, item := range t.Items {
		lines[i] = domain.OrderLine{
			MedicineName: item.MedicineName,
			Dosage:       item.Dosage,
			Quantity:     item.Quantity,
		}
	}
	return lines
}

// TextExtractor is the "LLM text" contract: parse a free-text user message
// into an intent and a set of requested medicine lines.
type TextExtractor interface {
	Extract(ctx context.Context, message string) (TextExtraction, error)
}

// OCRResult is the normalized `Extract(image_bytes)` result shape from
// the OCR extraction contract. Data reuses domain.PrescriptionInput directly
// since the two shapes are identical field-for-field.
type OCRResult struct {
	Success bool
	Data    domain.PrescriptionInput
}

// OCRExtractor is the OCR contract: turn a prescription image into
// structured vision metadata for the Medical Validator's Prescription mode.
type OCRExtractor interface {
	Extract(ctx context.Context, imageBytes []byte) (OCRResult, error)
}

// IntentClassification is the normalized `Classify(message)` result shape
// from the "Intent classifier" contract.
type IntentClassification struct {
	Intent             domain.Intent
	Confidence         float64
	Reasoning          string
	NeedsClarification bool
}

// intentConfidenceThreshold is the cosine-similarity cutoff below which a
// classification is demoted to IntentSymptom + NeedsClarification, per
// the intent classifier contract.
const intentConfidenceThreshold = 0.35

// IntentClassifier is the cheap, non-generative alternative to the LLM
// text extractor's intent field — cosine similarity over prebuilt category
// exemplars, falling back to IntentSymptom below threshold.
type IntentClassifier interface {
	Classify(ctx context.Context, message string) (IntentClassification, error)
}

// Transcription is the normalized `Transcribe(bytes, format)` result shape
// from the "Speech-to-text" contract.
type Transcription struct {
	Transcription       string
	Language            string
	LanguageProbability float64
}

// Transcriber is the speech-to-text contract: turn a voice message into
// text before intent classification/extraction runs on it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (Transcription, error)
}
