//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/fulfillment"
)

// newTestStore boots a disposable PostgreSQL container, points a Store at
// it, and applies migrations — a testcontainers-based integration posture
// (see codeready-toolchain-tarsy/test/util/database.go), scaled down to one
// container per test rather than a shared package-level container since
// this suite's cases are few and each wants a clean catalog.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("pharmacy_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func TestStore_GetMedicine_ThreeTiers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMedicine(ctx, domain.Medicine{
		ID: "med-1", Name: "Paracetamol 500mg", Category: "analgesic",
		Price: decimal.NewFromInt(10), Stock: 50,
	}))

	exact, err := s.GetMedicine(ctx, "paracetamol 500mg")
	require.NoError(t, err)
	require.Equal(t, domain.MatchExact, exact.MatchKind)

	substr, err := s.GetMedicine(ctx, "500mg")
	require.NoError(t, err)
	require.Equal(t, domain.MatchSubstr, substr.MatchKind)

	fuzzy, err := s.GetMedicine(ctx, "Paracetemol 500mg")
	require.NoError(t, err)
	require.Equal(t, domain.MatchFuzzy, fuzzy.MatchKind)
	require.GreaterOrEqual(t, fuzzy.Similarity, 0.70)

	_, err = s.GetMedicine(ctx, "Completely Unrelated Drug Name")
	require.Error(t, err)
}

func TestStore_RunInTx_DecrementsUnderLock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMedicine(ctx, domain.Medicine{
		ID: "med-2", Name: "Ibuprofen", Category: "nsaid",
		Price: decimal.NewFromInt(5), Stock: 10,
	}))

	err := s.RunInTx(ctx, func(ctx context.Context, tx fulfillment.Tx) error {
		if err := tx.DecrementStock(ctx, "Ibuprofen", 4); err != nil {
			return err
		}
		_, err := tx.CreateOrder(ctx, domain.Order{
			UserID:      "user-1",
			TotalAmount: decimal.NewFromInt(20),
			CreatedAt:   time.Now(),
			Lines: []domain.OrderLine{
				{MedicineName: "Ibuprofen", Quantity: 4, UnitPrice: decimal.NewFromInt(5)},
			},
		})
		return err
	})
	require.NoError(t, err)

	m, err := s.GetMedicine(ctx, "Ibuprofen")
	require.NoError(t, err)
	require.Equal(t, 6, m.Medicine.Stock)
}

func TestStore_RunInTx_RollsBackOnOutOfStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMedicine(ctx, domain.Medicine{
		ID: "med-3", Name: "Cetirizine", Category: "antihistamine",
		Price: decimal.NewFromInt(3), Stock: 2,
	}))

	err := s.RunInTx(ctx, func(ctx context.Context, tx fulfillment.Tx) error {
		if err := tx.DecrementStock(ctx, "Cetirizine", 5); err != nil {
			return err
		}
		_, err := tx.CreateOrder(ctx, domain.Order{UserID: "user-2", CreatedAt: time.Now()})
		return err
	})
	require.Error(t, err)

	m, err := s.GetMedicine(ctx, "Cetirizine")
	require.NoError(t, err)
	require.Equal(t, 2, m.Medicine.Stock, "stock must be unchanged after a rolled-back transaction")
}

func TestStore_PatientRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	patient, isNew, err := s.ResolvePatient(ctx, "+15550001234", "Jane Doe")
	require.NoError(t, err)
	require.True(t, isNew)
	require.NotEmpty(t, patient.PID)

	again, isNew2, err := s.ResolvePatient(ctx, "+15550001234", "")
	require.NoError(t, err)
	require.False(t, isNew2)
	require.Equal(t, patient.PID, again.PID)

	patient.RiskScore = 42
	patient.AddRiskFlags("elevated_dosage")
	require.NoError(t, s.UpdatePatient(ctx, patient))

	loaded, err := s.GetPatient(ctx, patient.PID)
	require.NoError(t, err)
	require.Equal(t, 42, loaded.RiskScore)
	require.Contains(t, loaded.RiskFlagList(), "elevated_dosage")
}

func TestStore_GetPatient_UnknownIsFreshNotError(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetPatient(context.Background(), "never-seen")
	require.NoError(t, err)
	require.Equal(t, "never-seen", p.PID)
	require.Equal(t, 0, p.RiskScore)
}
