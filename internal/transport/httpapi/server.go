// Package httpapi exposes the turn endpoint and the three-step
// confirmation protocol as JSON endpoints over gin, the way
// codeready-toolchain-tarsy/pkg/api/handlers.go hosts its session API:
// a thin Server wrapping the long-lived services, one handler method per
// route, ShouldBindJSON + gin.H{"error": ...} for bad requests.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arogya-path/kernel/internal/adapters"
	"github.com/arogya-path/kernel/internal/orchestrator"
	"github.com/arogya-path/kernel/internal/transport/tracews"
)

// Server hosts the turn and confirmation endpoints. None of its fields
// participate in any invariant — it is a thin host translating JSON to
// and from the orchestrator's own Start/Confirm/Decline calls.
type Server struct {
	orchestrator  *orchestrator.Orchestrator
	textExtractor adapters.TextExtractor
	ocrExtractor  adapters.OCRExtractor
	intent        adapters.IntentClassifier
	transcriber   adapters.Transcriber
	trace         *tracews.Handler
}

// New creates a Server. ocrExtractor and transcriber may be nil — the
// prescription-upload and voice-turn endpoints respond 501 when absent
// rather than panicking.
func New(
	orch *orchestrator.Orchestrator,
	textExtractor adapters.TextExtractor,
	intent adapters.IntentClassifier,
	ocrExtractor adapters.OCRExtractor,
	transcriber adapters.Transcriber,
) *Server {
	return &Server{
		orchestrator:  orch,
		textExtractor: textExtractor,
		intent:        intent,
		ocrExtractor:  ocrExtractor,
		transcriber:   transcriber,
	}
}

// WithTrace attaches the live trace websocket handler, registering
// GET /ws/trace/:session_id once RegisterRoutes runs. Omitted in tests
// that don't exercise the trace stream.
func (s *Server) WithTrace(handler *tracews.Handler) *Server {
	s.trace = handler
	return s
}

// RegisterRoutes wires every handler onto engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", s.Health)
	api := engine.Group("/api")
	api.POST("/turns", s.CreateTurn)
	api.POST("/turns/voice", s.CreateVoiceTurn)
	api.POST("/prescriptions", s.UploadPrescription)
	api.POST("/confirmations", s.Confirm)

	if s.trace != nil {
		engine.GET("/ws/trace/:session_id", s.StreamTrace)
	}
}

// StreamTrace handles GET /ws/trace/:session_id, upgrading the connection
// and blocking for the life of the client's subscription.
func (s *Server) StreamTrace(c *gin.Context) {
	_ = s.trace.ServeSession(c.Writer, c.Request, c.Param("session_id"))
}

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

const requestTimeout = 20 * time.Second
