package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/eventbus"
)

var (
	signalOrderFulfillmentFailed = capitan.Signal("fulfillment.failed")
	fieldOrderID                 = capitan.NewStringKey("order_id")
	fieldReason                  = capitan.NewStringKey("reason")
)

// IdempotencyCache is the narrow seam Fulfillment uses to recognize a
// retried confirmation within a short TTL window and return the order
// already created instead of creating a second one. internal/store's
// IdempotencyCache satisfies this; nil is valid and simply disables the
// check (every confirmation is treated as new).
type IdempotencyCache interface {
	Get(key string) (orderID string, ok bool)
	Put(key, orderID string)
}

// Service runs the Fulfillment Agent: hard confirmation gate, a
// pre-transaction visibility check, and the single atomic transaction
// that decrements stock and creates the order.
type Service struct {
	store       Store
	events      *eventbus.Bus
	clock       clockz.Clock
	idempotency IdempotencyCache
}

// New creates a Service. events may be nil — publication is then skipped
// entirely (useful for unit tests that don't care about the bus).
func New(store Store, events *eventbus.Bus) *Service {
	return &Service{store: store, events: events, clock: clockz.RealClock}
}

// WithClock overrides the clock used for trace and event timestamps.
func (s *Service) WithClock(clock clockz.Clock) *Service {
	s.clock = clock
	return s
}

// WithIdempotencyCache enables retried-confirmation detection: a Run call
// whose state.IdempotencyKey was already recorded within the cache's TTL
// window short-circuits to the cached order instead of opening a new
// transaction.
func (s *Service) WithIdempotencyCache(cache IdempotencyCache) *Service {
	s.idempotency = cache
	return s
}

// Run enforces the hard confirmation gate, re-verifies availability
// directly against the store (never trusting the Inventory Agent's
// advisory in_stock hint), and — inside a single transaction — decrements
// stock and creates the order. It always returns a nil error for
// business-rule outcomes (no_items, rejected, no_available_items,
// transaction failure); the returned state's trace_metadata and
// OrderStatus carry the outcome. Only *domain.ConfirmationRequiredError
// is returned as an actual error, since it signals a caller bug (invoking
// Fulfillment without having gone through confirmation).
func (s *Service) Run(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	if !state.ConfirmationConfirmed {
		return state, &domain.ConfirmationRequiredError{SessionID: state.SessionID}
	}

	if state.IdempotencyKey != "" && s.idempotency != nil {
		if orderID, ok := s.idempotency.Get(state.IdempotencyKey); ok {
			state.OrderID = orderID
			state.OrderStatus = domain.OrderFulfilled
			return state, nil
		}
	}

	var reasoning []string

	if len(state.ExtractedItems) == 0 {
		return s.fail(state, "no_items", "no items to fulfill", reasoning, nil), nil
	}
	reasoning = append(reasoning, fmt.Sprintf("processing %d item(s)", len(state.ExtractedItems)))

	if state.PharmacistDecision == domain.DecisionRejected {
		state.OrderStatus = domain.OrderRejected
		state.TraceMetadata["fulfillment_agent"] = domain.AgentResult{
			Agent:          "fulfillment_agent",
			Status:         "rejected",
			ReasoningTrace: append(reasoning, "order rejected by pharmacist"),
			Timestamp:      s.clock.Now(),
			Fulfillment: &domain.FulfillmentResult{
				Status: "rejected",
				Reason: "pharmacist_rejection",
			},
		}
		s.publishRejected(ctx, state)
		return state, nil
	}

	effectiveDecision := state.PharmacistDecision
	if effectiveDecision == "" {
		effectiveDecision = domain.DecisionApproved
	}
	reasoning = append(reasoning, fmt.Sprintf("pharmacist decision: %s", effectiveDecision))

	var available []domain.OrderLine
	var skipped []domain.OrderLine
	for _, item := range state.ExtractedItems {
		match, err := s.store.GetMedicine(ctx, item.MedicineName)
		if err != nil || match.Medicine.Stock < item.Quantity {
			item.InStock = false
			skipped = append(skipped, item)
			reasoning = append(reasoning, fmt.Sprintf("%s: insufficient stock", item.MedicineName))
			continue
		}
		item.InStock = true
		if item.UnitPrice.IsZero() {
			item.UnitPrice = match.Medicine.Price
		}
		available = append(available, item)
	}

	if len(available) == 0 {
		return s.fail(state, "no_available_items", "no available items to fulfill", reasoning, nil), nil
	}
	reasoning = append(reasoning, fmt.Sprintf("fulfilling %d available item(s), skipping %d", len(available), len(skipped)))

	total := decimal.Zero
	for _, item := range available {
		total = total.Add(item.Total())
	}

	order := domain.Order{
		UserID:             state.UserID,
		PharmacistDecision: effectiveDecision,
		SafetyIssues:       state.SafetyIssues,
		TotalAmount:        total,
		CreatedAt:          s.clock.Now(),
		Lines:              available,
	}

	var orderID string
	var stockUpdates []domain.FulfillmentStockUpdate

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, item := range available {
			if err := tx.DecrementStock(ctx, item.MedicineName, item.Quantity); err != nil {
				return err
			}
			stockUpdates = append(stockUpdates, domain.FulfillmentStockUpdate{
				MedicineName: item.MedicineName,
				Quantity:     item.Quantity,
				Status:       "decremented",
			})
		}
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		orderID = id

		return tx.AddAuditLog(ctx, domain.AuditLogEntry{
			OrderID:   id,
			AgentName: "fulfillment_agent",
			Decision:  string(effectiveDecision),
			Reasoning: strings.Join(reasoning, "; "),
			CreatedAt: s.clock.Now(),
		})
	})
	if err != nil {
		return s.fail(state, "transaction_error", "transaction rolled back, no partial state", reasoning, err), nil
	}
	reasoning = append(reasoning, fmt.Sprintf("order created: %s", orderID))
	if state.IdempotencyKey != "" && s.idempotency != nil {
		s.idempotency.Put(state.IdempotencyKey, orderID)
	}

	for _, item := range skipped {
		stockUpdates = append(stockUpdates, domain.FulfillmentStockUpdate{
			MedicineName: item.MedicineName,
			Quantity:     item.Quantity,
			Status:       "skipped",
		})
	}

	state.OrderID = orderID
	state.TotalAmount = total
	var traceStatus string
	switch effectiveDecision {
	case domain.DecisionNeedsReview:
		state.OrderStatus = domain.OrderPendingReview
		traceStatus = "pending_review"
		reasoning = append(reasoning, "order pending review")
	default:
		state.OrderStatus = domain.OrderFulfilled
		traceStatus = "fulfilled"
		reasoning = append(reasoning, "order fulfilled")
	}

	state.TraceMetadata["fulfillment_agent"] = domain.AgentResult{
		Agent:          "fulfillment_agent",
		Status:         traceStatus,
		ReasoningTrace: reasoning,
		Timestamp:      s.clock.Now(),
		Fulfillment: &domain.FulfillmentResult{
			Status:         traceStatus,
			OrderID:        orderID,
			TotalAmount:    total.String(),
			ItemsFulfilled: len(available),
			ItemsSkipped:   len(skipped),
			StockUpdates:   stockUpdates,
		},
	}

	s.publishCreated(ctx, state, total, len(available), effectiveDecision)

	return state, nil
}

// fail records a failure trace_metadata record and OrderStatus, publishing
// OrderFailed. cause, if non-nil, becomes the typed error payload.
func (s *Service) fail(state domain.PipelineState, reason, message string, reasoning []string, cause error) domain.PipelineState {
	reasoning = append(reasoning, message)
	state.OrderStatus = domain.OrderFailed

	var payload *domain.ErrorPayload
	if cause != nil {
		payload = &domain.ErrorPayload{Kind: "transaction_failure", Message: cause.Error()}
	}

	state.TraceMetadata["fulfillment_agent"] = domain.AgentResult{
		Agent:          "fulfillment_agent",
		Status:         "failed",
		ReasoningTrace: reasoning,
		Timestamp:      s.clock.Now(),
		Fulfillment: &domain.FulfillmentResult{
			Status: "failed",
			Reason: reason,
			Error:  payload,
		},
	}

	capitan.Warn(context.Background(), signalOrderFulfillmentFailed, fieldReason.Field(reason))
	s.publishFailed(context.Background(), state, reason)
	return state
}

// publishCreated publishes OrderCreated. Publication failure (panic
// recovery aside, the Bus itself never errors) must never roll back the
// already-committed transaction — there is nothing to undo here, the
// call is best-effort by construction.
func (s *Service) publishCreated(ctx context.Context, state domain.PipelineState, total decimal.Decimal, itemCount int, decision domain.PharmacistDecision) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindOrderCreated,
		SessionID: state.SessionID,
		Timestamp: s.clock.Now(),
		OrderCreated: &eventbus.OrderCreatedPayload{
			OrderID:     state.OrderID,
			UserID:      state.UserID,
			TotalAmount: total,
			ItemCount:   itemCount,
		},
	})
}

func (s *Service) publishFailed(ctx context.Context, state domain.PipelineState, reason string) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindOrderFailed,
		SessionID: state.SessionID,
		Timestamp: s.clock.Now(),
		OrderFailed: &eventbus.OrderFailedPayload{
			UserID: state.UserID,
			Reason: reason,
		},
	})
}

func (s *Service) publishRejected(ctx context.Context, state domain.PipelineState) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindOrderRejected,
		SessionID: state.SessionID,
		Timestamp: s.clock.Now(),
		OrderRejected: &eventbus.OrderRejectedPayload{
			UserID:       state.UserID,
			SafetyIssues: state.SafetyIssues,
		},
	})
}
