package trace

import (
	"github.com/zoobzio/capitan"

	"github.com/arogya-path/kernel/internal/domain"
)

// Structured logging signal and field keys for the trace manager, in the
// same style the pipeline connectors use for their own signals.go.
const (
	SignalTraceEmitted     capitan.Signal = "trace.emitted"
	SignalSubscriberDropped capitan.Signal = "trace.subscriber-dropped"
)

var (
	FieldSessionID = capitan.NewStringKey("session_id")
	FieldAgent     = capitan.NewStringKey("agent")
	FieldStep      = capitan.NewStringKey("step")
	FieldEventType = capitan.NewStringKey("type")
	FieldStatus    = capitan.NewStringKey("status")
	FieldIcon      = capitan.NewStringKey("icon")
)

// icon derives the one-glyph indicator the process logger prints alongside
// every emitted trace line, from the event's type and status together.
func icon(t domain.TraceEventType, s domain.TraceStatus) string {
	if s == domain.StepFailed {
		return "✗"
	}
	switch t {
	case domain.TraceThinking:
		return "\U0001F4AD" // 💭
	case domain.TraceToolUse:
		return "\U0001F527" // 🔧
	case domain.TraceDecision:
		return "⚖"
	case domain.TraceResponse:
		return "\U0001F4AC" // 💬
	case domain.TraceError:
		return "✗"
	default:
		if s == domain.StepCompleted {
			return "✓"
		}
		return "•"
	}
}
