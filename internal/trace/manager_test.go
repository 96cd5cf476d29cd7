package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
)

type recordingSink struct {
	events []domain.TraceEvent
}

func (r *recordingSink) Observe(_ context.Context, event domain.TraceEvent) {
	r.events = append(r.events, event)
}

func TestManager_ConnectReplaysHistoryThenLiveEvents(t *testing.T) {
	m := New(nil).WithPacing(Zero)

	m.Emit(context.Background(), "sess-1", "Identity", "resolve", domain.TraceDecision, domain.StepCompleted, nil, "")

	sub := make(chan domain.TraceEvent, 4)
	m.Connect("sess-1", sub)

	require.Len(t, sub, 1)
	first := <-sub
	assert.Equal(t, "Identity", first.Agent)

	m.Emit(context.Background(), "sess-1", "Inventory", "check", domain.TraceToolUse, domain.StepStarted, nil, "")
	require.Len(t, sub, 1)
	second := <-sub
	assert.Equal(t, "Inventory", second.Agent)
}

func TestManager_DisconnectStopsFanOut(t *testing.T) {
	m := New(nil).WithPacing(Zero)
	sub := make(chan domain.TraceEvent, 4)
	m.Connect("sess-2", sub)
	m.Disconnect("sess-2", sub)

	m.Emit(context.Background(), "sess-2", "Fulfillment", "execute", domain.TraceDecision, domain.StepCompleted, nil, "")
	assert.Len(t, sub, 0)
}

func TestManager_FullSubscriberIsDroppedNotBlocked(t *testing.T) {
	m := New(nil).WithPacing(Zero)
	sub := make(chan domain.TraceEvent, 1)
	m.Connect("sess-3", sub)

	m.Emit(context.Background(), "sess-3", "A", "s1", domain.TraceDecision, domain.StepCompleted, nil, "")
	m.Emit(context.Background(), "sess-3", "B", "s2", domain.TraceDecision, domain.StepCompleted, nil, "")

	assert.Len(t, sub, 1)
}

func TestManager_EmitsToSinkFromFirstEvent(t *testing.T) {
	sink := &recordingSink{}
	m := New(sink).WithPacing(Zero)

	m.Emit(context.Background(), "sess-4", "Identity", "resolve", domain.TraceDecision, domain.StepCompleted, nil, "")
	m.Emit(context.Background(), "sess-4", "Inventory", "check", domain.TraceToolUse, domain.StepStarted, nil, "")

	require.Len(t, sink.events, 2)
	assert.Equal(t, "Identity", sink.events[0].Agent)
}
