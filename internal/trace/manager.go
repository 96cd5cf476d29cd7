// Package trace is the per-session append-only event log and live fan-out
// hub every agent step reports through. A session's history replays to a
// subscriber on Connect; after that, every Emit reaches it live. A subscriber
// that cannot keep up is dropped rather than allowed to stall the agents
// producing events — delivery is best-effort, never a backpressure source.
package trace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/tracez"

	"github.com/arogya-path/kernel/internal/domain"
)

const (
	emitSpan = tracez.Key("trace.emit")
	tagAgent = tracez.Tag("trace.agent")
	tagPhase = tracez.Tag("trace.step")
)

// Pacing holds the UX pacing pause applied before fan-out, keyed by step
// status. Tests should use Zero to avoid slowing down assertions.
type Pacing struct {
	Started   time.Duration
	Running   time.Duration
	Completed time.Duration
}

// DefaultPacing matches the pauses the original pharmacy UI relied on to
// keep its live trace feed readable rather than an instant wall of text.
var DefaultPacing = Pacing{
	Started:   300 * time.Millisecond,
	Running:   100 * time.Millisecond,
	Completed: 500 * time.Millisecond,
}

// Zero disables pacing entirely — every event fans out immediately.
var Zero = Pacing{}

// Sink receives every TraceEvent emitted across all sessions. The fusion
// calculator is the only production Sink; it is wired in at Manager
// construction so every session accumulates fusion state from its first
// event onward, whether or not it ever gets a live subscriber.
type Sink interface {
	Observe(ctx context.Context, event domain.TraceEvent)
}

type sessionLog struct {
	mu          sync.Mutex
	history     []domain.TraceEvent
	subscribers map[chan domain.TraceEvent]struct{}
}

// Manager is the trace hub: one per process, shared by every session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sessionLog
	tracer   *tracez.Tracer
	clock    clockz.Clock
	pacing   Pacing

	sink Sink
}

// New creates a Manager. sink, if non-nil, observes every event on every
// session from the Manager's first Emit call onward (Observe is called
// synchronously, inline with Emit, same as every other subscriber).
func New(sink Sink) *Manager {
	return &Manager{
		sessions: make(map[string]*sessionLog),
		tracer:   tracez.New(),
		clock:    clockz.RealClock,
		pacing:   DefaultPacing,
		sink:     sink,
	}
}

// WithClock overrides the clock used for pacing pauses. Tests should pass
// clockz.NewFakeClock() or use WithPacing(Zero) to skip pacing altogether.
func (m *Manager) WithClock(clock clockz.Clock) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
	return m
}

// WithPacing overrides the pacing pauses applied before fan-out.
func (m *Manager) WithPacing(p Pacing) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pacing = p
	return m
}

// Tracer exposes the manager's span tracer for test assertions.
func (m *Manager) Tracer() *tracez.Tracer {
	return m.tracer
}

func (m *Manager) logFor(sessionID string) *sessionLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[sessionID]
	if !ok {
		log = &sessionLog{subscribers: make(map[chan domain.TraceEvent]struct{})}
		m.sessions[sessionID] = log
	}
	return log
}

// Connect registers subscriber for sessionID, replaying accumulated history
// to it (synchronously, before any live event can interleave) and then
// including it in future fan-out.
func (m *Manager) Connect(sessionID string, subscriber chan domain.TraceEvent) {
	log := m.logFor(sessionID)
	log.mu.Lock()
	defer log.mu.Unlock()
	for _, ev := range log.history {
		deliver(subscriber, ev)
	}
	log.subscribers[subscriber] = struct{}{}
}

// Disconnect removes subscriber from sessionID's fan-out set.
func (m *Manager) Disconnect(sessionID string, subscriber chan domain.TraceEvent) {
	log := m.logFor(sessionID)
	log.mu.Lock()
	defer log.mu.Unlock()
	delete(log.subscribers, subscriber)
}

// Emit builds a TraceEvent, appends it to sessionID's history, logs it, and
// fans it out to every connected subscriber plus the fusion sink.
func (m *Manager) Emit(
	ctx context.Context,
	sessionID, agent, step string,
	typ domain.TraceEventType,
	status domain.TraceStatus,
	details map[string]any,
	parentID string,
) domain.TraceEvent {
	spanCtx, span := m.tracer.StartSpan(ctx, emitSpan)
	span.SetTag(tagAgent, agent)
	span.SetTag(tagPhase, step)
	defer span.Finish()

	event := domain.TraceEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		Timestamp: m.clock.Now(),
		Agent:     agent,
		Step:      step,
		Type:      typ,
		Status:    status,
		Details:   details,
		ParentID:  parentID,
	}

	m.pace(status)

	capitan.Info(spanCtx, SignalTraceEmitted,
		FieldSessionID.Field(sessionID),
		FieldAgent.Field(agent),
		FieldStep.Field(step),
		FieldEventType.Field(string(typ)),
		FieldStatus.Field(string(status)),
		FieldIcon.Field(icon(typ, status)),
	)

	log := m.logFor(sessionID)
	log.mu.Lock()
	log.history = append(log.history, event)
	subs := make([]chan domain.TraceEvent, 0, len(log.subscribers))
	for sub := range log.subscribers {
		subs = append(subs, sub)
	}
	log.mu.Unlock()

	for _, sub := range subs {
		if !deliver(sub, event) {
			m.Disconnect(sessionID, sub)
			capitan.Warn(spanCtx, SignalSubscriberDropped, FieldSessionID.Field(sessionID))
		}
	}

	if m.sink != nil {
		m.sink.Observe(spanCtx, event)
	}

	return event
}

func (m *Manager) pace(status domain.TraceStatus) {
	m.mu.Lock()
	p := m.pacing
	clock := m.clock
	m.mu.Unlock()

	var delay time.Duration
	switch status {
	case domain.StepStarted:
		delay = p.Started
	case domain.StepRunning:
		delay = p.Running
	case domain.StepCompleted:
		delay = p.Completed
	}
	if delay > 0 {
		<-clock.After(delay)
	}
}

// deliver sends event to sub without blocking; returns false if sub's
// buffer was full, signaling the caller should drop this subscriber.
func deliver(sub chan domain.TraceEvent, event domain.TraceEvent) bool {
	select {
	case sub <- event:
		return true
	default:
		return false
	}
}
