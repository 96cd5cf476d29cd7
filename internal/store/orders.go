package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/arogya-path/kernel/internal/domain"
)

// nonNilStrings turns a nil slice into an empty one so text[] columns
// declared NOT NULL never receive an explicit NULL.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// sqlTx wraps one open pgx.Tx and implements fulfillment.Tx (DecrementStock,
// CreateOrder, AddAuditLog) plus GetMedicineForUpdate, the raw row-locking
// primitive the other three build on. It must never be used outside the
// RunInTx call that produced it.
type sqlTx struct {
	tx pgx.Tx
}

// GetMedicineForUpdate locks name's row for the remaining duration of the
// transaction via SELECT ... FOR UPDATE — the pessimistic lock
// §4.1 mandates before any stock decrement.
func (t *sqlTx) GetMedicineForUpdate(ctx context.Context, name string) (domain.Medicine, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE lower(name) = lower($1) FOR UPDATE`, name)
	m, err := scanMedicine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Medicine{}, ErrMedicineNotFound
	}
	if err != nil {
		return domain.Medicine{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	return m, nil
}

// DecrementStock locks name's row, checks it has at least qty in stock,
// and decrements it — all under the single row lock acquired here, so a
// concurrent caller racing for the same medicine blocks until this
// transaction commits or rolls back rather than reading a stale count.
func (t *sqlTx) DecrementStock(ctx context.Context, name string, qty int) error {
	m, err := t.GetMedicineForUpdate(ctx, name)
	if err != nil {
		if errors.Is(err, ErrMedicineNotFound) {
			return &domain.OutOfStockError{MedicineName: name, Requested: qty, Available: 0}
		}
		return err
	}
	if m.Stock < qty {
		return &domain.OutOfStockError{MedicineID: m.ID, MedicineName: name, Requested: qty, Available: m.Stock}
	}
	if _, err := t.tx.Exec(ctx, `UPDATE medicines SET stock = stock - $1 WHERE id = $2`, qty, m.ID); err != nil {
		return &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	return nil
}

// CreateOrder inserts order and its lines, generating a collision-free
// order ID via generateOrderID.
func (t *sqlTx) CreateOrder(ctx context.Context, order domain.Order) (string, error) {
	if order.CreatedAt.IsZero() {
		return "", errors.New("store: order.CreatedAt must be set by the caller")
	}
	orderID, err := generateOrderID(order.CreatedAt)
	if err != nil {
		return "", &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO orders (order_id, user_id, status, pharmacist_decision, safety_issues, total_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		orderID, order.UserID, string(domain.OrderPending), string(order.PharmacistDecision),
		nonNilStrings(order.SafetyIssues), order.TotalAmount, order.CreatedAt)
	if err != nil {
		return "", &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}

	for _, line := range order.Lines {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO order_items (order_id, medicine_id, medicine_name, dosage, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, line.MedicineID, line.MedicineName, line.Dosage, line.Quantity, line.UnitPrice)
		if err != nil {
			return "", &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
		}
	}
	return orderID, nil
}

// AddAuditLog appends an audit entry tied to orderID, inside the same
// transaction as the order it documents.
func (t *sqlTx) AddAuditLog(ctx context.Context, entry domain.AuditLogEntry) error {
	extra := entry.ExtraData
	if extra == nil {
		extra = map[string]any{}
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO audit_log (order_id, agent_name, decision, reasoning, confidence, extra_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.OrderID, entry.AgentName, entry.Decision, entry.Reasoning, entry.Confidence,
		extra, entry.CreatedAt)
	if err != nil {
		return &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	return nil
}

// GetOrder loads a persisted order with its lines, by order ID.
func (s *Store) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT order_id, user_id, status, pharmacist_decision, safety_issues, total_amount, created_at
		 FROM orders WHERE order_id = $1`, orderID)

	var o domain.Order
	var status, decision string
	err := row.Scan(&o.OrderID, &o.UserID, &status, &decision, &o.SafetyIssues, &o.TotalAmount, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, errors.New("store: order not found")
	}
	if err != nil {
		return domain.Order{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	o.Status = domain.OrderStatus(status)
	o.PharmacistDecision = domain.PharmacistDecision(decision)

	rows, err := s.pool.Query(ctx,
		`SELECT medicine_id, medicine_name, dosage, quantity, unit_price
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return domain.Order{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	defer rows.Close()
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.MedicineID, &line.MedicineName, &line.Dosage, &line.Quantity, &line.UnitPrice); err != nil {
			return domain.Order{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	return o, nil
}
