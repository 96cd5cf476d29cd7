package adapters

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/validator"
)

// defaultAdapterTimeout bounds every external call this package makes.
// Every external call needs a per-call timeout that becomes a recoverable
// InfrastructureError rather than hanging the turn.
const defaultAdapterTimeout = 10 * time.Second

// HTTPClient is a thin resty wrapper shared by every HTTP-backed adapter
// below, grounded on the pack's own resty client
// (0xtitan6-polymarket-mm/internal/exchange/client.go): base URL, fixed
// timeout, bounded retry on 5xx/network errors, JSON content type.
type HTTPClient struct {
	http *resty.Client
}

// NewHTTPClient builds a resty client against baseURL with a timeout and
// retry policy suitable for an LLM/OCR/STT provider sitting behind an
// HTTP gateway.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	return &HTTPClient{http: client}
}

// post issues a JSON POST and validates the raw response body against the
// named embedded schema, returning the validated bytes for the caller to
// decode into its own wire shape. Any failure — timeout, non-200 status,
// schema violation — becomes an InfrastructureError of the given kind so
// the caller (validator, ingest) can fall back rather than work from a
// zero-valued struct.
func (c *HTTPClient) post(ctx context.Context, kind domain.InfrastructureErrorKind, path, schemaName string, body any) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, &domain.InfrastructureError{Kind: kind, Cause: err, Recoverable: true, RetryAfter: time.Second}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &domain.InfrastructureError{
			Kind:        kind,
			Cause:       fmt.Errorf("%s: status %d: %s", path, resp.StatusCode(), resp.String()),
			Recoverable: resp.StatusCode() >= 500,
			RetryAfter:  time.Second,
		}
	}
	raw := resp.Body()
	if err := validateAgainstSchema(schemaName, raw); err != nil {
		if infraErr, ok := err.(*domain.InfrastructureError); ok {
			infraErr.Kind = kind
		}
		return nil, err
	}
	return raw, nil
}

// HTTPTextExtractor calls a remote LLM-backed text extraction endpoint.
type HTTPTextExtractor struct{ client *HTTPClient }

func NewHTTPTextExtractor(client *HTTPClient) *HTTPTextExtractor {
	return &HTTPTextExtractor{client: client}
}

func (a *HTTPTextExtractor) Extract(ctx context.Context, message string) (TextExtraction, error) {
	raw, err := a.client.post(ctx, domain.LLMFailure, "/extract", "llm_text.json", map[string]string{"message": message})
	if err != nil {
		return TextExtraction{}, err
	}
	w, err := decodeInto[wireTextExtraction](raw)
	if err != nil {
		return TextExtraction{}, &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: err}
	}
	return w.toDomain(), nil
}

// HTTPInteractionChecker calls a remote LLM-backed drug-interaction
// endpoint. It satisfies validator.InteractionChecker.
type HTTPInteractionChecker struct{ client *HTTPClient }

func NewHTTPInteractionChecker(client *HTTPClient) *HTTPInteractionChecker {
	return &HTTPInteractionChecker{client: client}
}

func (a *HTTPInteractionChecker) CheckInteractions(ctx context.Context, medicineNames []string) (validator.InteractionResult, error) {
	raw, err := a.client.post(ctx, domain.LLMFailure, "/safety/check-interactions", "llm_safety.json", map[string][]string{"medicines": medicineNames})
	if err != nil {
		return validator.InteractionResult{}, err
	}
	w, err := decodeInto[wireInteractionResult](raw)
	if err != nil {
		return validator.InteractionResult{}, &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: err}
	}
	return w.toDomain(), nil
}

// HTTPSeverityAssessor calls a remote LLM-backed clinical-severity
// endpoint. It satisfies validator.SeverityAssessor.
type HTTPSeverityAssessor struct{ client *HTTPClient }

func NewHTTPSeverityAssessor(client *HTTPClient) *HTTPSeverityAssessor {
	return &HTTPSeverityAssessor{client: client}
}

func (a *HTTPSeverityAssessor) AssessSeverity(ctx context.Context, symptoms []string, patientContext string, history []string) (validator.SeverityAssessment, error) {
	req := map[string]any{
		"symptoms":        symptoms,
		"patient_context": patientContext,
		"history":         history,
	}
	raw, err := a.client.post(ctx, domain.LLMFailure, "/severity/assess", "llm_severity.json", req)
	if err != nil {
		return validator.SeverityAssessment{}, err
	}
	w, err := decodeInto[wireSeverityAssessment](raw)
	if err != nil {
		return validator.SeverityAssessment{}, &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: err}
	}
	return w.toDomain(), nil
}

// HTTPOCRExtractor calls a remote OCR endpoint for prescription images.
type HTTPOCRExtractor struct{ client *HTTPClient }

func NewHTTPOCRExtractor(client *HTTPClient) *HTTPOCRExtractor {
	return &HTTPOCRExtractor{client: client}
}

func (a *HTTPOCRExtractor) Extract(ctx context.Context, imageBytes []byte) (OCRResult, error) {
	raw, err := a.client.post(ctx, domain.OCRFailure, "/ocr/extract", "ocr.json", map[string]string{"image_base64": encodeBase64(imageBytes)})
	if err != nil {
		return OCRResult{}, err
	}
	w, err := decodeInto[wireOCRResult](raw)
	if err != nil {
		return OCRResult{}, &domain.InfrastructureError{Kind: domain.OCRFailure, Cause: err}
	}
	return w.toDomain(), nil
}

// HTTPIntentClassifier calls a remote cosine-similarity intent classifier.
type HTTPIntentClassifier struct{ client *HTTPClient }

func NewHTTPIntentClassifier(client *HTTPClient) *HTTPIntentClassifier {
	return &HTTPIntentClassifier{client: client}
}

func (a *HTTPIntentClassifier) Classify(ctx context.Context, message string) (IntentClassification, error) {
	raw, err := a.client.post(ctx, domain.LLMFailure, "/intent/classify", "intent.json", map[string]string{"message": message})
	if err != nil {
		return IntentClassification{}, err
	}
	w, err := decodeInto[wireIntentClassification](raw)
	if err != nil {
		return IntentClassification{}, &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: err}
	}
	out := w.toDomain()
	if out.Confidence < intentConfidenceThreshold {
		out.Intent = domain.IntentSymptom
		out.NeedsClarification = true
	}
	return out, nil
}

// HTTPTranscriber calls a remote speech-to-text endpoint.
type HTTPTranscriber struct{ client *HTTPClient }

func NewHTTPTranscriber(client *HTTPClient) *HTTPTranscriber { return &HTTPTranscriber{client: client} }

func (a *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, format string) (Transcription, error) {
	req := map[string]string{"audio_base64": encodeBase64(audio), "format": format}
	raw, err := a.client.post(ctx, domain.LLMFailure, "/stt/transcribe", "stt.json", req)
	if err != nil {
		return Transcription{}, err
	}
	w, err := decodeInto[wireTranscription](raw)
	if err != nil {
		return Transcription{}, &domain.InfrastructureError{Kind: domain.LLMFailure, Cause: err}
	}
	return w.toDomain(), nil
}
