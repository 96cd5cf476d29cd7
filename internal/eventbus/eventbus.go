package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"

	"github.com/arogya-path/kernel/pipeline"
)

// Signal and field keys for the bus's own structured logging.
const (
	signalPublished     capitan.Signal = "eventbus.published"
	signalHandlerFailed capitan.Signal = "eventbus.handler-failed"
)

var (
	fieldKind      = capitan.NewStringKey("kind")
	fieldSessionID = capitan.NewStringKey("session_id")
	fieldError     = capitan.NewStringKey("error")
)

// Handler processes one Event. A Handler's error is logged and counted but
// never propagated to the publisher or to other handlers — this is the
// error-isolation guarantee the original event bus provided per-handler.
type Handler func(context.Context, Event) error

// Stats mirrors the counters the original EventBus exposed for debugging.
type Stats struct {
	EventsPublished int
	EventsProcessed int
	HandlerErrors   int
}

// Subscription identifies a registered handler so it can later be removed.
type Subscription struct {
	kind Kind
	id   hookz.HookID
}

// registeredHandler is the copy of a subscribed Handler kept alongside the
// hookz registration so PublishAsync can address each one individually as
// a pipeline.Chainable branch rather than only through hookz's aggregate
// Emit.
type registeredHandler struct {
	id      hookz.HookID
	name    pipeline.Name
	handler Handler
}

// Bus is the in-process pub/sub hub every agent publishes domain events
// through. It never blocks a publisher on a slow or failing subscriber.
type Bus struct {
	hooks      *hookz.Hooks[Event]
	mu         sync.Mutex
	handlers   map[Kind][]registeredHandler
	history    []Event
	maxHistory int
	stats      Stats
}

// New creates a Bus retaining at most maxHistory events for History().
func New(maxHistory int) *Bus {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Bus{
		hooks:      hookz.New[Event](),
		handlers:   make(map[Kind][]registeredHandler),
		maxHistory: maxHistory,
	}
}

// Subscribe registers handler for kind. Returns a Subscription that can be
// passed to Unsubscribe later.
func (b *Bus) Subscribe(kind Kind, handler Handler) (Subscription, error) {
	id, err := b.hooks.Hook(hookKey(kind), func(ctx context.Context, ev Event) error {
		if err := handler(ctx, ev); err != nil {
			b.mu.Lock()
			b.stats.HandlerErrors++
			b.mu.Unlock()
			capitan.Warn(ctx, signalHandlerFailed,
				fieldKind.Field(string(kind)),
				fieldSessionID.Field(ev.SessionID),
				fieldError.Field(err.Error()),
			)
			return err
		}
		return nil
	})
	if err != nil {
		return Subscription{}, err
	}

	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], registeredHandler{
		id:      id,
		name:    pipeline.Name(fmt.Sprintf("%s#%d", kind, id)),
		handler: handler,
	})
	b.mu.Unlock()

	return Subscription{kind: kind, id: id}, nil
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	handlers := b.handlers[sub.kind]
	for i, h := range handlers {
		if h.id == sub.id {
			b.handlers[sub.kind] = append(handlers[:i:i], handlers[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	return b.hooks.Unhook(hookKey(sub.kind), sub.id)
}

// Publish delivers event to every subscriber of its Kind synchronously, in
// registration order, isolating each handler's error from the others and
// from the caller.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.recordPublish(ctx, event)
	_ = b.hooks.Emit(ctx, hookKey(event.Kind), event)
}

// PublishAsync delivers event to every subscriber concurrently and returns
// once all handlers have run (or ctx is canceled). Use when handlers may be
// slow (notifications, external calls) and the publisher should not wait on
// each one serially. Each handler runs as its own pipeline.Effect branch
// under a pipeline.Concurrent fan-out, so one handler's panic or deadline
// overrun never affects another's.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.recordPublish(ctx, event)

	b.mu.Lock()
	handlers := make([]registeredHandler, len(b.handlers[event.Kind]))
	copy(handlers, b.handlers[event.Kind])
	b.mu.Unlock()

	if len(handlers) == 0 {
		return
	}

	branches := make([]pipeline.Chainable[Event], len(handlers))
	for i, h := range handlers {
		branches[i] = pipeline.Effect(h.name, b.runHandler(event.Kind, h.handler))
	}

	fanout := pipeline.NewConcurrent[Event](pipeline.Name(fmt.Sprintf("eventbus.publish_async.%s", event.Kind)), nil, branches...)
	_, _ = fanout.Process(ctx, event)
}

// runHandler wraps handler with the same error-isolation logging Subscribe
// gives the synchronous Publish path, so async delivery observes failures
// identically.
func (b *Bus) runHandler(kind Kind, handler Handler) func(context.Context, Event) error {
	return func(ctx context.Context, ev Event) error {
		if err := handler(ctx, ev); err != nil {
			b.mu.Lock()
			b.stats.HandlerErrors++
			b.mu.Unlock()
			capitan.Warn(ctx, signalHandlerFailed,
				fieldKind.Field(string(kind)),
				fieldSessionID.Field(ev.SessionID),
				fieldError.Field(err.Error()),
			)
			return err
		}
		return nil
	}
}

func (b *Bus) recordPublish(ctx context.Context, event Event) {
	b.mu.Lock()
	b.stats.EventsPublished++
	b.stats.EventsProcessed++
	b.history = append(b.history, event)
	if len(b.history) > b.maxHistory {
		b.history = b.history[len(b.history)-b.maxHistory:]
	}
	b.mu.Unlock()

	capitan.Info(ctx, signalPublished,
		fieldKind.Field(string(event.Kind)),
		fieldSessionID.Field(event.SessionID),
	)
}

// History returns a copy of the retained event history, oldest first.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory discards all retained events.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}

// Stats returns a snapshot of the bus's publish/error counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// ResetStats zeroes the publish/error counters without touching history.
func (b *Bus) ResetStats() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = Stats{}
}

// Close releases the underlying hook registry.
func (b *Bus) Close() error {
	b.hooks.Close()
	return nil
}
