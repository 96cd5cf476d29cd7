package adapters

import (
	"context"
	"errors"
	"strings"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/validator"
)

// MockLLM is the always-available, non-generative stand-in for every LLM
// contract (text extraction, safety, severity) — what a deployment with no
// provider API key configured falls back to, not a test-only convenience —
// so it is deliberately simple keyword matching rather than a hand-rolled
// re-implementation of a language model.
//
// It satisfies TextExtractor directly, and validator.InteractionChecker /
// validator.SeverityAssessor structurally (same method sets, no explicit
// interface assertion needed since validator never imports adapters).
type MockLLM struct{}

// NewMockLLM returns a MockLLM. It carries no state.
func NewMockLLM() *MockLLM { return &MockLLM{} }

var purchaseKeywords = []string{"buy", "need", "want", "order", "get me"}
var refillKeywords = []string{"refill", "running out", "renew"}
var inquiryKeywords = []string{"?", "what is", "how much", "tell me"}

// Extract does keyword-based intent detection and a single-line item guess
// (the whole message, quantity 1) — good enough to keep a no-provider
// deployment functional, never good enough to replace a real extractor.
func (m *MockLLM) Extract(_ context.Context, message string) (TextExtraction, error) {
	lower := strings.ToLower(message)
	intent := domain.IntentUnknown
	switch {
	case containsAny(lower, refillKeywords):
		intent = domain.IntentRefill
	case containsAny(lower, purchaseKeywords):
		intent = domain.IntentPurchase
	case containsAny(lower, inquiryKeywords):
		intent = domain.IntentInquiry
	}

	var items []ExtractedLine
	if intent == domain.IntentPurchase || intent == domain.IntentRefill {
		items = []ExtractedLine{{MedicineName: strings.TrimSpace(message), Quantity: 1}}
	}

	return TextExtraction{Intent: intent, Language: "en", Items: items}, nil
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// errNoInteractionModel is what the mock's CheckInteractions always returns.
var errNoInteractionModel = errors.New("mock LLM: no interaction model wired")

// CheckInteractions defers entirely to the fixed-table check the validator
// already carries — the mock's job is to exist, not to duplicate that
// logic. It always returns an error, so validator.Service's fallback chain
// moves on to the fixed table in
// internal/validator/interactions_fallback.go, which covers the five
// combinations.
func (m *MockLLM) CheckInteractions(_ context.Context, _ []string) (validator.InteractionResult, error) {
	return validator.InteractionResult{}, errNoInteractionModel
}

// AssessSeverity mirrors the deterministic routing table so a
// no-provider deployment still routes red-flag symptoms to emergency
// rather than silently defaulting to OTC.
func (m *MockLLM) AssessSeverity(_ context.Context, symptoms []string, _ string, _ []string) (validator.SeverityAssessment, error) {
	for _, s := range symptoms {
		lower := strings.ToLower(s)
		for _, flag := range emergencyKeywords {
			if strings.Contains(lower, flag) {
				return validator.SeverityAssessment{
					Score:             9,
					RiskLevel:         "critical",
					RedFlagsDetected:  []string{flag},
					RecommendedAction: validator.ActionEmergency,
					Confidence:        0.9,
					Reasoning:         "mock LLM: red-flag keyword matched",
				}, nil
			}
		}
	}
	if len(symptoms) == 0 {
		return validator.SeverityAssessment{
			Score: 1, RiskLevel: "normal", RecommendedAction: validator.ActionOTC,
			Confidence: 0.5, Reasoning: "mock LLM: no symptoms supplied",
		}, nil
	}
	return validator.SeverityAssessment{
		Score: 4, RiskLevel: "elevated", RecommendedAction: validator.ActionPharmacist,
		Confidence: 0.4, Reasoning: "mock LLM: symptoms present, no red flag",
	}, nil
}

// emergencyKeywords covers the red-flag vocabulary of internal/validator's
// emergencyRedFlags as shorter stems ("unconscious", "anaphyla", "stroke"),
// so every phrase that list flags is flagged here too; "suicidal" is
// flagged here only.
var emergencyKeywords = []string{
	"chest pain", "difficulty breathing", "unconscious", "severe bleeding",
	"stroke", "seizure", "suicidal", "anaphyla",
}

// MockOCR always reports a low-confidence, signature-absent extraction —
// the honest answer when no real vision model is wired, rather than
// fabricating plausible-looking prescription data.
type MockOCR struct{}

func NewMockOCR() *MockOCR { return &MockOCR{} }

func (m *MockOCR) Extract(_ context.Context, _ []byte) (OCRResult, error) {
	return OCRResult{
		Success: true,
		Data: domain.PrescriptionInput{
			SignaturePresent: false,
			Confidence:       0.1,
		},
	}, nil
}

// MockIntentClassifier always returns the below-threshold fallback
// (IntentSymptom + NeedsClarification), the safe default absent a real
// exemplar-similarity model.
type MockIntentClassifier struct{}

func NewMockIntentClassifier() *MockIntentClassifier { return &MockIntentClassifier{} }

func (m *MockIntentClassifier) Classify(_ context.Context, _ string) (IntentClassification, error) {
	return IntentClassification{
		Intent:             domain.IntentSymptom,
		Confidence:         intentConfidenceThreshold - 0.01,
		Reasoning:          "mock classifier: no exemplar comparison available",
		NeedsClarification: true,
	}, nil
}

// MockTranscriber echoes back an empty transcription — callers must treat
// this as "could not transcribe" rather than a genuine silent message.
type MockTranscriber struct{}

func NewMockTranscriber() *MockTranscriber { return &MockTranscriber{} }

func (m *MockTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (Transcription, error) {
	return Transcription{Language: "en", LanguageProbability: 0}, nil
}
