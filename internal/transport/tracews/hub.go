// Package tracews streams a session's live trace — TraceEvents plus any
// FusionState changes — over a websocket, grounded on
// codeready-toolchain-tarsy/pkg/api/websocket.go's upgrade-then-read/write-
// loop shape, but scoped per session_id rather than broadcast to every
// client: a persistent bidirectional channel scoped to one session.
package tracews

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/fusion"
	"github.com/arogya-path/kernel/internal/trace"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// frameKind tags which payload a Frame carries, so a single JSON message
// shape can multiplex both trace events and fusion updates onto the same
// channel.
type frameKind string

const (
	frameTraceEvent  frameKind = "trace_event"
	frameFusionState frameKind = "fusion_state"
)

// Frame is the JSON envelope written to the socket for every event.
type Frame struct {
	Kind    frameKind        `json:"kind"`
	Trace   *traceEventWire  `json:"trace,omitempty"`
	Fusion  *fusionStateWire `json:"fusion,omitempty"`
}

type traceEventWire struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Agent     string         `json:"agent"`
	Step      string         `json:"step"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
	ParentID  string         `json:"parent_id,omitempty"`
}

func toTraceEventWire(ev domain.TraceEvent) traceEventWire {
	return traceEventWire{
		ID:        ev.EventID,
		SessionID: ev.SessionID,
		Timestamp: ev.Timestamp,
		Agent:     ev.Agent,
		Step:      ev.Step,
		Type:      string(ev.Type),
		Status:    string(ev.Status),
		Details:   ev.Details,
		ParentID:  ev.ParentID,
	}
}

type fusionStateWire struct {
	SessionID             string             `json:"session_id"`
	SafetyConfidence      float64            `json:"safety_confidence"`
	FulfillmentConfidence float64            `json:"fulfillment_confidence"`
	DominantMode          string             `json:"dominant_mode"`
	PipelinePhase         string             `json:"pipeline_phase"`
	ContributingScores    map[string]*float64 `json:"contributing_scores,omitempty"`
	AlertLevel            string             `json:"alert_level"`
	HaltReason            string             `json:"halt_reason,omitempty"`
}

func toFusionStateWire(state domain.FusionState) fusionStateWire {
	return fusionStateWire{
		SessionID:             state.SessionID,
		SafetyConfidence:      state.SafetyConfidence,
		FulfillmentConfidence: state.FulfillmentConfidence,
		DominantMode:          string(state.DominantMode),
		PipelinePhase:         state.PipelinePhase,
		ContributingScores:    state.ContributingScores,
		AlertLevel:            string(state.AlertLevel),
		HaltReason:            state.HaltReason,
	}
}

// Handler upgrades a request to a websocket and streams sessionID's live
// trace: accumulated history first (via tracer.Connect, which replays
// synchronously before any live event can interleave), then every new
// TraceEvent and FusionState change until the client disconnects.
type Handler struct {
	tracer *trace.Manager
	fusion *fusion.Hub
}

// New creates a Handler backed by tracer and fusionHub.
func New(tracer *trace.Manager, fusionHub *fusion.Hub) *Handler {
	return &Handler{tracer: tracer, fusion: fusionHub}
}

// bufferSize matches tarsy's own broadcast channel sizing rationale: large
// enough that a brief write stall doesn't drop an event, never meant to
// replace an attentive client.
const bufferSize = 256

// ServeSession upgrades the request and streams sessionID's live trace.
// It blocks until the client disconnects or the request context is done.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	traceCh := make(chan domain.TraceEvent, bufferSize)
	fusionCh := make(chan domain.FusionState, bufferSize)

	h.tracer.Connect(sessionID, traceCh)
	defer h.tracer.Disconnect(sessionID, traceCh)

	if h.fusion != nil {
		h.fusion.Subscribe(sessionID, fusionCh)
		defer h.fusion.Unsubscribe(sessionID, fusionCh)
	}

	closed := make(chan struct{})
	go readPump(conn, closed)

	for {
		select {
		case ev, ok := <-traceCh:
			if !ok {
				return nil
			}
			if err := writeFrame(conn, Frame{Kind: frameTraceEvent, Trace: traceEventPtr(toTraceEventWire(ev))}); err != nil {
				return err
			}
		case state, ok := <-fusionCh:
			if !ok {
				return nil
			}
			if err := writeFrame(conn, Frame{Kind: frameFusionState, Fusion: fusionStatePtr(toFusionStateWire(state))}); err != nil {
				return err
			}
		case <-closed:
			return nil
		case <-r.Context().Done():
			return r.Context().Err()
		}
	}
}

func traceEventPtr(w traceEventWire) *traceEventWire   { return &w }
func fusionStatePtr(w fusionStateWire) *fusionStateWire { return &w }

func writeFrame(conn *websocket.Conn, frame Frame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// readPump drains (and discards) client frames — keepalive pings and
// close handshakes only, the trace stream is server→client — closing
// closed once the connection goes away, the same read-loop-for-keepalive
// pattern tarsy's own WSHub.HandleWS uses.
func readPump(conn *websocket.Conn, closed chan struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
