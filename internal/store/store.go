// Package store implements the pgx-backed persistence layer every agent
// service depends on through a narrow interface: medicine catalog lookup
// (exact/substring/fuzzy), patient records, and the single atomic
// transaction fulfillment needs to decrement stock and create an order
// under a row lock.
package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/fulfillment"
)

// Store wraps a pgx connection pool and implements every narrow store
// interface the agent packages declare (risk.PatientStore,
// validator.MedicineStore/PatientStore, inventoryagent.MedicineStore/
// PatientStore, fulfillment.Store/Tx).
type Store struct {
	pool *pgxpool.Pool

	// fuzzyScanLimit bounds the Levenshtein fallback scan per the
	// bounded-cost note — we never walk the whole catalog unconditionally.
	fuzzyScanLimit int
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithFuzzyScanLimit overrides the number of catalog rows scanned during
// the Levenshtein fallback tier of GetMedicine. Default 4000.
func WithFuzzyScanLimit(n int) Option {
	return func(s *Store) { s.fuzzyScanLimit = n }
}

// New opens a pgx pool against dsn, applies pending migrations, and
// returns a ready Store.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	if err := Migrate(ctx, dsn); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{pool: pool, fuzzyScanLimit: 4000}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RunInTx opens a single pgx transaction, hands the caller a Tx bound to
// it, and commits on success or rolls back on any error the callback
// returns. Transient failures (connection churn, serialization conflicts)
// are attempted up to 3 times in all (two retries) via exponential
// backoff; a business-rule
// error like *domain.OutOfStockError is never retried — it propagates
// immediately so the caller sees it as a real rejection, not a
// transaction error.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx fulfillment.Tx) error) error {
	var lastErr error

	op := func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return &domain.TransactionError{Cause: err}
		}

		callbackErr := fn(ctx, &sqlTx{tx: tx})
		if callbackErr != nil {
			_ = tx.Rollback(ctx)
			if !isTransient(callbackErr) {
				lastErr = callbackErr
				return backoff.Permanent(callbackErr)
			}
			lastErr = &domain.TransactionError{Cause: callbackErr}
			return lastErr
		}

		if err := tx.Commit(ctx); err != nil {
			lastErr = &domain.TransactionError{Cause: err}
			return lastErr
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return perm.Err
		}
		if lastErr != nil {
			return lastErr
		}
		return &domain.TransactionError{Cause: err}
	}
	return nil
}

// isTransient reports whether err is a business-rule rejection (never
// retried) vs. an infrastructure hiccup worth a bounded retry.
func isTransient(err error) bool {
	switch err.(type) {
	case *domain.OutOfStockError:
		return false
	default:
		return true
	}
}

// generateOrderID produces a collision-resistant order identifier:
// time.Now().UnixNano() base36-encoded, concatenated with an 8-byte
// crypto/rand suffix also base36-encoded. Two IDs generated within the
// same nanosecond still differ with overwhelming probability, giving the
// <1-in-10^9-per-millisecond collision bound without a
// shared counter (the original's COUNT(*)+1 scheme cannot survive
// concurrent writers, so it is not reused here).
func generateOrderID(now time.Time) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	var suffix uint64
	for _, b := range buf {
		suffix = suffix<<8 | uint64(b)
	}
	ts := strconv.FormatInt(now.UnixNano(), 36)
	rnd := strconv.FormatUint(suffix, 36)
	return fmt.Sprintf("ORD-%s-%s", strings.ToUpper(ts), strings.ToUpper(rnd)), nil
}
