package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/confirmation"
	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/eventbus"
	"github.com/arogya-path/kernel/internal/fulfillment"
	"github.com/arogya-path/kernel/internal/fusion"
	"github.com/arogya-path/kernel/internal/inventoryagent"
	"github.com/arogya-path/kernel/internal/risk"
	"github.com/arogya-path/kernel/internal/trace"
	"github.com/arogya-path/kernel/internal/validator"
)

type harness struct {
	orch     *Orchestrator
	catalog  *fakeCatalog
	patients *fakePatients
	confirms *confirmation.Store
	bus      *eventbus.Bus
	clock    *clockz.FakeClock
}

func newHarness() *harness {
	clock := clockz.NewFakeClock()
	catalog := newFakeCatalog()
	patients := newFakePatients()
	bus := eventbus.New(10)
	confirms := confirmation.New(clock, 5*time.Minute)
	tracer := trace.New(nil).WithClock(clock).WithPacing(trace.Zero)

	riskSvc := risk.New(patients).WithClock(clock)
	validatorSvc := validator.New(catalog, patients, nil, nil).WithClock(clock)
	inventorySvc := inventoryagent.New(catalog, patients).WithClock(clock)
	fulfillmentSvc := fulfillment.New(catalog, bus).WithClock(clock)

	orch := New(riskSvc, validatorSvc, inventorySvc, fulfillmentSvc, confirms, tracer, bus).WithClock(clock)

	return &harness{orch: orch, catalog: catalog, patients: patients, confirms: confirms, bus: bus, clock: clock}
}

func TestOrchestrator_HappyPath(t *testing.T) {
	h := newHarness()
	h.catalog.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 100, Price: decimal.NewFromInt(10)}

	state := domain.PipelineState{
		SessionID:      "sess-1",
		UserID:         "user-1",
		ExtractedItems: []domain.OrderLine{{MedicineName: "Paracetamol", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
	}

	out, err := h.orch.Start(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingConfirmation, out.Status)
	require.NotEmpty(t, out.Token)

	confirmed, err := h.orch.Confirm(context.Background(), "sess-1", out.Token)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, domain.OrderFulfilled, confirmed.State.OrderStatus)
	assert.True(t, confirmed.State.TotalAmount.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, 98, h.catalog.byName["Paracetamol"].Stock)
}

// TestOrchestrator_FusionStateAdvancesPastIntake wires a real fusion.Hub as
// the trace.Manager's sink and confirms a successful run actually walks
// FusionState through intake -> validation -> inventory -> complete,
// guarding against the agent-label mismatch a calculator-only test (fed
// hand-picked names) would never catch.
func TestOrchestrator_FusionStateAdvancesPastIntake(t *testing.T) {
	clock := clockz.NewFakeClock()
	catalog := newFakeCatalog()
	patients := newFakePatients()
	bus := eventbus.New(10)
	confirms := confirmation.New(clock, 5*time.Minute)
	hub := fusion.New()
	tracer := trace.New(hub).WithClock(clock).WithPacing(trace.Zero)

	riskSvc := risk.New(patients).WithClock(clock)
	validatorSvc := validator.New(catalog, patients, nil, nil).WithClock(clock)
	inventorySvc := inventoryagent.New(catalog, patients).WithClock(clock)
	fulfillmentSvc := fulfillment.New(catalog, bus).WithClock(clock)
	orch := New(riskSvc, validatorSvc, inventorySvc, fulfillmentSvc, confirms, tracer, bus).WithClock(clock)

	catalog.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 100, Price: decimal.NewFromInt(10)}
	state := domain.PipelineState{
		SessionID:      "sess-fusion",
		UserID:         "user-fusion",
		ExtractedItems: []domain.OrderLine{{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	}

	out, err := orch.Start(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingConfirmation, out.Status)

	fused := hub.State("sess-fusion")
	assert.NotEqual(t, "intake", fused.PipelinePhase, "a successful assessment run must leave intake behind")
	assert.Equal(t, "inventory", fused.PipelinePhase)
	assert.Greater(t, fused.SafetyConfidence, 0.0)
	assert.Greater(t, fused.FulfillmentConfidence, 0.0)

	_, err = orch.Confirm(context.Background(), "sess-fusion", out.Token)
	require.NoError(t, err)

	fused = hub.State("sess-fusion")
	assert.Equal(t, "complete", fused.PipelinePhase)
	assert.Equal(t, domain.ModeFulfillment, fused.DominantMode)
}

func TestOrchestrator_RejectedBySeverity(t *testing.T) {
	h := newHarness()
	h.catalog.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 100, Price: decimal.NewFromInt(10)}

	state := domain.PipelineState{
		SessionID:      "sess-2",
		ExtractedItems: []domain.OrderLine{{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
		Symptoms:       []string{"chest pain"},
	}

	out, err := h.orch.Start(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.False(t, h.confirms.IsPending("sess-2"))

	events := h.bus.History()
	require.Len(t, events, 1)
	assert.Equal(t, eventbus.KindOrderRejected, events[0].Kind)
}

func TestOrchestrator_NoAvailableItemsFails(t *testing.T) {
	h := newHarness()

	state := domain.PipelineState{
		SessionID:      "sess-3",
		ExtractedItems: []domain.OrderLine{{MedicineName: "Mysterium", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	}

	out, err := h.orch.Start(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)

	events := h.bus.History()
	require.Len(t, events, 1)
	assert.Equal(t, eventbus.KindOrderFailed, events[0].Kind)
}

func TestOrchestrator_DeclineCancelsConfirmation(t *testing.T) {
	h := newHarness()
	h.catalog.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 100, Price: decimal.NewFromInt(10)}

	state := domain.PipelineState{
		SessionID:      "sess-4",
		ExtractedItems: []domain.OrderLine{{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	}
	out, err := h.orch.Start(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingConfirmation, out.Status)

	decline := h.orch.Decline(context.Background(), "sess-4")
	assert.Equal(t, StatusCancelled, decline.Status)
	assert.False(t, h.confirms.IsPending("sess-4"))

	_, pending := h.orch.RepromptMessage("sess-4")
	assert.False(t, pending)
}

func TestOrchestrator_ConfirmExpired(t *testing.T) {
	h := newHarness()
	h.catalog.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 100, Price: decimal.NewFromInt(10)}

	state := domain.PipelineState{
		SessionID:      "sess-5",
		ExtractedItems: []domain.OrderLine{{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	}
	out, err := h.orch.Start(context.Background(), state)
	require.NoError(t, err)

	h.clock.Advance(6 * time.Minute)

	confirmed, err := h.orch.Confirm(context.Background(), "sess-5", out.Token)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, confirmed.Status)
}

func TestOrchestrator_ConfirmInvalidToken(t *testing.T) {
	h := newHarness()
	out, err := h.orch.Confirm(context.Background(), "sess-6", "not-a-real-token")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, out.Status)
}

func TestOrchestrator_RepromptWhilePending(t *testing.T) {
	h := newHarness()
	h.catalog.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 100, Price: decimal.NewFromInt(10)}
	state := domain.PipelineState{
		SessionID:      "sess-7",
		ExtractedItems: []domain.OrderLine{{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	}
	_, err := h.orch.Start(context.Background(), state)
	require.NoError(t, err)

	msg, pending := h.orch.RepromptMessage("sess-7")
	assert.True(t, pending)
	assert.Contains(t, msg, "YES")
}
