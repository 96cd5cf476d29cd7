package fulfillment

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/eventbus"
)

type fakeTx struct {
	stock       map[string]int
	decremented []string
	failOn      string
}

func (tx *fakeTx) DecrementStock(_ context.Context, name string, qty int) error {
	if name == tx.failOn {
		return &domain.OutOfStockError{MedicineName: name, Requested: qty, Available: 0}
	}
	tx.stock[name] -= qty
	tx.decremented = append(tx.decremented, name)
	return nil
}

func (tx *fakeTx) CreateOrder(_ context.Context, _ domain.Order) (string, error) {
	return "order-123", nil
}

func (tx *fakeTx) AddAuditLog(_ context.Context, _ domain.AuditLogEntry) error {
	return nil
}

type fakeStore struct {
	mu     sync.Mutex
	byName map[string]domain.Medicine
	failOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{byName: make(map[string]domain.Medicine)}
}

func (f *fakeStore) GetMedicine(_ context.Context, name string) (domain.MedicineMatch, error) {
	m, ok := f.byName[name]
	if !ok {
		return domain.MedicineMatch{}, ErrMedicineNotFound
	}
	return domain.MedicineMatch{Medicine: m}, nil
}

func (f *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &fakeTx{stock: make(map[string]int), failOn: f.failOn}
	return fn(ctx, tx)
}

func confirmedState(items ...domain.OrderLine) domain.PipelineState {
	return domain.PipelineState{
		ConfirmationConfirmed: true,
		ExtractedItems:        items,
		TraceMetadata:         make(map[string]domain.AgentResult),
	}
}

func TestService_Run(t *testing.T) {
	t.Run("hard gate rejects an unconfirmed state", func(t *testing.T) {
		svc := New(newFakeStore(), nil)
		state := domain.PipelineState{TraceMetadata: make(map[string]domain.AgentResult)}

		_, err := svc.Run(context.Background(), state)
		require.Error(t, err)
		var gateErr *domain.ConfirmationRequiredError
		assert.ErrorAs(t, err, &gateErr)
	})

	t.Run("no items fails", func(t *testing.T) {
		svc := New(newFakeStore(), nil)
		state := confirmedState()

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderFailed, out.OrderStatus)
		assert.Equal(t, "no_items", out.TraceMetadata["fulfillment_agent"].Fulfillment.Reason)
	})

	t.Run("rejected decision short-circuits without touching stock", func(t *testing.T) {
		store := newFakeStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 10, Price: decimal.NewFromInt(5)}
		svc := New(store, nil)
		state := confirmedState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1})
		state.PharmacistDecision = domain.DecisionRejected

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderRejected, out.OrderStatus)
		assert.Equal(t, "rejected", out.TraceMetadata["fulfillment_agent"].Status)
	})

	t.Run("nil pharmacist decision is treated as approved", func(t *testing.T) {
		store := newFakeStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 10, Price: decimal.NewFromInt(5)}
		svc := New(store, nil)
		state := confirmedState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 2, UnitPrice: decimal.NewFromInt(5)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderFulfilled, out.OrderStatus)
		assert.Equal(t, "order-123", out.OrderID)
		assert.True(t, out.TotalAmount.Equal(decimal.NewFromInt(10)))
	})

	t.Run("needs_review is preserved through to order status", func(t *testing.T) {
		store := newFakeStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 10, Price: decimal.NewFromInt(5)}
		svc := New(store, nil)
		state := confirmedState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(5)})
		state.PharmacistDecision = domain.DecisionNeedsReview

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderPendingReview, out.OrderStatus)
	})

	t.Run("re-verifies availability directly against the store, ignoring the in_stock hint", func(t *testing.T) {
		store := newFakeStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 0, Price: decimal.NewFromInt(5)}
		svc := New(store, nil)
		item := domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(5), InStock: true}
		state := confirmedState(item)

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderFailed, out.OrderStatus)
		assert.Equal(t, "no_available_items", out.TraceMetadata["fulfillment_agent"].Fulfillment.Reason)
	})

	t.Run("skips unavailable items but fulfills the rest", func(t *testing.T) {
		store := newFakeStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 10, Price: decimal.NewFromInt(5)}
		store.byName["OutOfStock"] = domain.Medicine{Name: "OutOfStock", Stock: 0, Price: decimal.NewFromInt(5)}
		svc := New(store, nil)
		state := confirmedState(
			domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
			domain.OrderLine{MedicineName: "OutOfStock", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
		)

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		record := out.TraceMetadata["fulfillment_agent"].Fulfillment
		assert.Equal(t, 1, record.ItemsFulfilled)
		assert.Equal(t, 1, record.ItemsSkipped)
	})

	t.Run("transaction failure rolls back and reports failed", func(t *testing.T) {
		store := newFakeStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 10, Price: decimal.NewFromInt(5)}
		store.failOn = "Paracetamol"
		svc := New(store, nil)
		state := confirmedState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(5)})

		out, err := svc.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderFailed, out.OrderStatus)
		assert.Equal(t, "transaction_error", out.TraceMetadata["fulfillment_agent"].Fulfillment.Reason)
		require.NotNil(t, out.TraceMetadata["fulfillment_agent"].Fulfillment.Error)
	})

	t.Run("publishes OrderCreated on success", func(t *testing.T) {
		store := newFakeStore()
		store.byName["Paracetamol"] = domain.Medicine{Name: "Paracetamol", Stock: 10, Price: decimal.NewFromInt(5)}
		bus := eventbus.New(10)
		svc := New(store, bus)
		state := confirmedState(domain.OrderLine{MedicineName: "Paracetamol", Quantity: 1, UnitPrice: decimal.NewFromInt(5)})

		received := make(chan eventbus.Event, 1)
		_, err := bus.Subscribe(eventbus.KindOrderCreated, func(_ context.Context, ev eventbus.Event) error {
			received <- ev
			return nil
		})
		require.NoError(t, err)

		_, err = svc.Run(context.Background(), state)
		require.NoError(t, err)

		select {
		case ev := <-received:
			assert.Equal(t, "order-123", ev.OrderCreated.OrderID)
		default:
			t.Fatal("expected OrderCreated to be published")
		}
	})
}
