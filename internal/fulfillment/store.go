// Package fulfillment implements the Fulfillment Agent: the hard
// confirmation gate, a pre-transaction stock visibility check, and the
// single atomic transaction that decrements stock and creates the order.
package fulfillment

import (
	"context"
	"errors"

	"github.com/arogya-path/kernel/internal/domain"
)

// ErrMedicineNotFound is returned by Store.GetMedicine when no catalog
// entry matches.
var ErrMedicineNotFound = errors.New("fulfillment: medicine not found")

// Store is the narrow persistence seam Fulfillment needs: an
// outside-the-transaction visibility read, plus a single atomic
// transaction in which stock is decremented and the order is created
// under the medicine row's lock. internal/store provides the pgx-backed
// implementation (RunInTx wraps a real SQL transaction; Tx.DecrementStock
// issues the row-locked decrement).
type Store interface {
	GetMedicine(ctx context.Context, name string) (domain.MedicineMatch, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations available inside a single Store
// transaction. A Tx must never be used outside the RunInTx call that
// produced it.
type Tx interface {
	// DecrementStock decrements name's stock by qty under its row lock.
	// Returns *domain.OutOfStockError if the row no longer has enough
	// stock by the time the lock is acquired.
	DecrementStock(ctx context.Context, name string, qty int) error

	// CreateOrder persists order and its lines, returning the generated
	// order ID.
	CreateOrder(ctx context.Context, order domain.Order) (string, error)

	// AddAuditLog appends an audit entry in the same transaction as the
	// order it documents, atomically within one transactional region.
	AddAuditLog(ctx context.Context, entry domain.AuditLogEntry) error
}
