package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arogya-path/kernel/internal/domain"
)

// CreateTurn handles POST /api/turns — a free-text message turn.
func (s *Server) CreateTurn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.handleTextTurn(c, req)
}

// CreateVoiceTurn handles POST /api/turns/voice — audio is transcribed
// first, then the result flows through the same text-turn path.
func (s *Server) CreateVoiceTurn(c *gin.Context) {
	if s.transcriber == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "voice turns are not configured"})
		return
	}

	var req VoiceTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	audio, err := decodeBase64(req.AudioB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audio_base64: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	transcription, err := s.transcriber.Transcribe(ctx, audio, req.Format)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.handleTextTurn(c, TurnRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Phone:     req.Phone,
		Message:   transcription.Transcription,
	})
}

// handleTextTurn classifies req.Message and routes it onto the graph: a
// purchase/refill intent runs through text extraction to build
// ExtractedItems, a symptom description is carried as-is for the
// validator's OTC severity assessment, and an inquiry/unknown intent runs
// the graph with no items at all (the validator and inventory agent both
// tolerate an empty item list). A session with an already-pending
// confirmation short-circuits straight to the YES/NO re-prompt.
func (s *Server) handleTextTurn(c *gin.Context, req TurnRequest) {
	if reprompt, pending := s.orchestrator.RepromptMessage(req.SessionID); pending {
		c.JSON(http.StatusOK, TurnResponse{Status: "awaiting_confirmation", Message: reprompt})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	state := domain.PipelineState{
		UserID:            req.UserID,
		SessionID:         req.SessionID,
		Phone:             req.Phone,
		ConversationPhase: domain.PhaseCollectingItems,
	}

	classification, err := s.intent.Classify(ctx, req.Message)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	state.Intent = classification.Intent

	switch classification.Intent {
	case domain.IntentPurchase, domain.IntentRefill:
		extraction, err := s.textExtractor.Extract(ctx, req.Message)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		state.ExtractedItems = extraction.ToOrderLines()
	case domain.IntentSymptom:
		state.Symptoms = []string{req.Message}
	default: // inquiry, unknown
	}

	s.respondToTurn(c, ctx, state)
}

// UploadPrescription handles POST /api/prescriptions — an OCR-backed turn
// that runs the validator in prescription mode.
func (s *Server) UploadPrescription(c *gin.Context) {
	if s.ocrExtractor == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "prescription upload is not configured"})
		return
	}

	var req PrescriptionUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, err := decodeBase64(req.ImageB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image_base64: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	ocr, err := s.ocrExtractor.Extract(ctx, image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !ocr.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not read prescription image"})
		return
	}

	state := domain.PipelineState{
		UserID:               req.UserID,
		SessionID:            req.SessionID,
		Phone:                req.Phone,
		ConversationPhase:    domain.PhaseCollectingItems,
		PrescriptionUploaded: true,
		PrescriptionInput:    &ocr.Data,
	}

	s.respondToTurn(c, ctx, state)
}

func (s *Server) respondToTurn(c *gin.Context, ctx context.Context, state domain.PipelineState) {
	out, err := s.orchestrator.Start(ctx, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toTurnResponse(out))
}
