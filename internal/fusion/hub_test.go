package fusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
)

func TestHub_ObserveUpdatesStateAndMetrics(t *testing.T) {
	h := New()
	h.Observe(context.Background(), domain.TraceEvent{
		SessionID: "sess-1",
		Agent:     "Risk Scoring Agent",
		Status:    domain.StepCompleted,
		Details:   map[string]any{"confidence": 0.8},
	})

	state := h.State("sess-1")
	assert.InDelta(t, 0.8, *state.ContributingScores["identity_resolution"], 0.001)
	assert.Equal(t, float64(1), h.Metrics().Counter(CounterEventsObserved).Value())
	assert.Equal(t, float64(1), h.Metrics().Counter(CounterStateChanges).Value())
}

func TestHub_SubscribeReceivesOnlyOnChange(t *testing.T) {
	h := New()
	ch := make(chan domain.FusionState, 4)
	h.Subscribe("sess-2", ch)

	h.Observe(context.Background(), domain.TraceEvent{
		SessionID: "sess-2",
		Agent:     "IdentityAgent",
		Status:    domain.StepCompleted,
		Details:   map[string]any{"confidence": 0.5},
	})

	require.Len(t, ch, 1)
	state := <-ch
	assert.Equal(t, "sess-2", state.SessionID)
}

func TestHub_UnsubscribeStopsFanOut(t *testing.T) {
	h := New()
	ch := make(chan domain.FusionState, 4)
	h.Subscribe("sess-3", ch)
	h.Unsubscribe("sess-3", ch)

	h.Observe(context.Background(), domain.TraceEvent{
		SessionID: "sess-3",
		Agent:     "IdentityAgent",
		Status:    domain.StepCompleted,
		Details:   map[string]any{"confidence": 0.5},
	})

	assert.Len(t, ch, 0)
}
