package fusion

import (
	"context"
	"sync"

	"github.com/zoobzio/metricz"

	"github.com/arogya-path/kernel/internal/domain"
)

// Metric keys, one per-connector metricz.Key style registry shared across
// every session's calculator, since a gauge already tracks "current value
// for the most recently touched session".
const (
	GaugeSafetyConfidence      = metricz.Key("fusion.safety_confidence")
	GaugeFulfillmentConfidence = metricz.Key("fusion.fulfillment_confidence")
	CounterStateChanges        = metricz.Key("fusion.state_changes.total")
	CounterEventsObserved      = metricz.Key("fusion.events_observed.total")
)

// Hub owns one calculator per session and fans out FusionState updates to
// live subscribers whenever a TraceEvent actually changes a scalar. It
// implements internal/trace.Sink, so an *internal/trace.Manager can be
// constructed with a Hub as its sink directly.
type Hub struct {
	mu      sync.Mutex
	calcs   map[string]*calculator
	subs    map[string]map[chan domain.FusionState]struct{}
	metrics *metricz.Registry
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		calcs:   make(map[string]*calculator),
		subs:    make(map[string]map[chan domain.FusionState]struct{}),
		metrics: metricz.New(),
	}
}

// Metrics exposes the gauge/counter registry for introspection and tests.
func (h *Hub) Metrics() *metricz.Registry {
	return h.metrics
}

func (h *Hub) calculatorFor(sessionID string) *calculator {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.calcs[sessionID]
	if !ok {
		c = newCalculator(sessionID)
		h.calcs[sessionID] = c
	}
	return c
}

// Observe implements internal/trace.Sink. It is safe to call from the trace
// manager's Emit path without the caller waiting on fan-out.
func (h *Hub) Observe(_ context.Context, event domain.TraceEvent) {
	c := h.calculatorFor(event.SessionID)
	h.metrics.Counter(CounterEventsObserved).Inc()

	if !c.process(event) {
		return
	}

	state := c.state()
	h.metrics.Counter(CounterStateChanges).Inc()
	h.metrics.Gauge(GaugeSafetyConfidence).Set(state.SafetyConfidence)
	h.metrics.Gauge(GaugeFulfillmentConfidence).Set(state.FulfillmentConfidence)

	h.fanOut(event.SessionID, state)
}

// State returns a snapshot of sessionID's current fusion state, creating a
// fresh (default) calculator if the session has not yet produced an event.
func (h *Hub) State(sessionID string) domain.FusionState {
	return h.calculatorFor(sessionID).state()
}

// Subscribe registers ch to receive every future FusionState change for
// sessionID. Delivery is non-blocking: a full channel simply misses an
// update rather than stalling the reducer.
func (h *Hub) Subscribe(sessionID string, ch chan domain.FusionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan domain.FusionState]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
}

// Unsubscribe removes ch from sessionID's fan-out set.
func (h *Hub) Unsubscribe(sessionID string, ch chan domain.FusionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], ch)
}

func (h *Hub) fanOut(sessionID string, state domain.FusionState) {
	h.mu.Lock()
	subs := make([]chan domain.FusionState, 0, len(h.subs[sessionID]))
	for ch := range h.subs[sessionID] {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- state:
		default:
		}
	}
}
