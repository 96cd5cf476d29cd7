package adapters

import (
	"encoding/base64"
	"encoding/json"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/validator"
)

// The wire* types below are the only place this package deals in
// snake_case JSON field names, matching the external providers' own wire contracts. Everything
// else in the package — and every caller — works with the Go-idiomatic
// exported types (TextExtraction, validator.InteractionResult, ...); the
// wire types exist solely to decode an HTTP response body and are
// converted immediately after.

func encodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

type wireTextExtraction struct {
	Intent   string `json:"intent"`
	Language string `json:"language"`
	Items    []struct {
		MedicineName string `json:"medicine_name"`
		Dosage       string `json:"dosage"`
		Quantity     int    `json:"quantity"`
	} `json:"items"`
}

func (w wireTextExtraction) toDomain() TextExtraction {
	items := make([]ExtractedLine, len(w.Items))
	for i, it := range w.Items {
		items[i] = ExtractedLine{MedicineName: it.MedicineName, Dosage: it.Dosage, Quantity: it.Quantity}
	}
	return TextExtraction{Intent: domain.Intent(w.Intent), Language: w.Language, Items: items}
}

type wireInteraction struct {
	Medicines      []string `json:"medicines"`
	Severity       string   `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

type wireInteractionResult struct {
	HasInteractions bool              `json:"has_interactions"`
	Severity        string            `json:"severity"`
	Interactions    []wireInteraction `json:"interactions"`
	Warnings        []string          `json:"warnings"`
	SafeToDispense  bool              `json:"safe_to_dispense"`
}

func (w wireInteractionResult) toDomain() validator.InteractionResult {
	interactions := make([]validator.Interaction, len(w.Interactions))
	for i, iv := range w.Interactions {
		interactions[i] = validator.Interaction{
			Medicines:      iv.Medicines,
			Severity:       validator.InteractionSeverity(iv.Severity),
			Description:    iv.Description,
			Recommendation: iv.Recommendation,
		}
	}
	return validator.InteractionResult{
		HasInteractions: w.HasInteractions,
		Severity:        validator.InteractionSeverity(w.Severity),
		Interactions:    interactions,
		Warnings:        w.Warnings,
		SafeToDispense:  w.SafeToDispense,
	}
}

type wireSeverityAssessment struct {
	Score             int      `json:"severity_score"`
	RiskLevel         string   `json:"risk_level"`
	RedFlagsDetected  []string `json:"red_flags_detected"`
	RecommendedAction string   `json:"recommended_action"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
}

func (w wireSeverityAssessment) toDomain() validator.SeverityAssessment {
	return validator.SeverityAssessment{
		Score:             w.Score,
		RiskLevel:         w.RiskLevel,
		RedFlagsDetected:  w.RedFlagsDetected,
		RecommendedAction: validator.RecommendedAction(w.RecommendedAction),
		Confidence:        w.Confidence,
		Reasoning:         w.Reasoning,
	}
}

type wireOCRResult struct {
	Success bool `json:"success"`
	Data    struct {
		PatientName string `json:"patient_name"`
		DoctorName  string `json:"doctor_name"`
		Date        string `json:"date"`
		Medicines   []struct {
			Name         string `json:"name"`
			Dosage       string `json:"dosage"`
			Frequency    string `json:"frequency"`
			Duration     string `json:"duration"`
			Instructions string `json:"instructions"`
		} `json:"medicines"`
		SignaturePresent bool    `json:"signature_present"`
		Confidence       float64 `json:"confidence"`
	} `json:"data"`
}

func (w wireOCRResult) toDomain() OCRResult {
	medicines := make([]domain.PrescriptionMedicineLine, len(w.Data.Medicines))
	for i, m := range w.Data.Medicines {
		medicines[i] = domain.PrescriptionMedicineLine{
			Name:         m.Name,
			Dosage:       m.Dosage,
			Frequency:    m.Frequency,
			Duration:     m.Duration,
			Instructions: m.Instructions,
		}
	}
	return OCRResult{
		Success: w.Success,
		Data: domain.PrescriptionInput{
			PatientName:      w.Data.PatientName,
			DoctorName:       w.Data.DoctorName,
			Date:             w.Data.Date,
			Medicines:        medicines,
			SignaturePresent: w.Data.SignaturePresent,
			Confidence:       w.Data.Confidence,
		},
	}
}

type wireIntentClassification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (w wireIntentClassification) toDomain() IntentClassification {
	return IntentClassification{
		Intent:     domain.Intent(w.Intent),
		Confidence: w.Confidence,
		Reasoning:  w.Reasoning,
	}
}

type wireTranscription struct {
	Transcription       string  `json:"transcription"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
}

func (w wireTranscription) toDomain() Transcription {
	return Transcription{
		Transcription:       w.Transcription,
		Language:            w.Language,
		LanguageProbability: w.LanguageProbability,
	}
}

// decodeInto unmarshals raw into a wire* value and returns it; kept as a
// generic so every HTTP* adapter method above is a one-liner.
func decodeInto[T any](raw []byte) (T, error) {
	var w T
	err := json.Unmarshal(raw, &w)
	return w, err
}
