package domain

import "time"

// TraceEventType classifies what a TraceEvent records.
type TraceEventType string

const (
	TraceThinking TraceEventType = "thinking"
	TraceToolUse  TraceEventType = "tool_use"
	TraceDecision TraceEventType = "decision"
	TraceResponse TraceEventType = "response"
	TraceError    TraceEventType = "error"
	TraceGeneric  TraceEventType = "event"
)

// TraceStatus is the lifecycle state of the step a TraceEvent describes.
type TraceStatus string

const (
	StepStarted   TraceStatus = "started"
	StepRunning   TraceStatus = "running"
	StepCompleted TraceStatus = "completed"
	StepFailed    TraceStatus = "failed"
)

// TraceEvent is one entry in a session's append-only trace stream, fed to
// both the live websocket fan-out and the fusion calculator.
type TraceEvent struct {
	EventID   string
	SessionID string
	Timestamp time.Time
	Agent     string
	Step      string
	Type      TraceEventType
	Status    TraceStatus
	Details   map[string]any
	ParentID  string
}
