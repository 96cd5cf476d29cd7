package orchestrator

import (
	"context"
	"errors"

	"github.com/arogya-path/kernel/internal/domain"
	"github.com/arogya-path/kernel/internal/fulfillment"
)

var errNotFound = errors.New("orchestrator fake: not found")

// fakePatients backs both risk.PatientStore (read+write) and
// validator/inventoryagent's read-only PatientStore.
type fakePatients struct {
	byID map[string]domain.Patient
}

func newFakePatients() *fakePatients {
	return &fakePatients{byID: make(map[string]domain.Patient)}
}

func (f *fakePatients) GetPatient(_ context.Context, userID string) (domain.Patient, error) {
	p, ok := f.byID[userID]
	if !ok {
		return domain.Patient{PID: userID}, nil
	}
	return p, nil
}

func (f *fakePatients) UpdatePatient(_ context.Context, patient domain.Patient) error {
	f.byID[patient.PID] = patient
	return nil
}

// fakeCatalog backs validator.MedicineStore, inventoryagent.MedicineStore,
// and fulfillment.Store/Tx — one fake catalog shared across the whole
// graph, matching the single underlying table every service really reads.
type fakeCatalog struct {
	byName map[string]domain.Medicine
	failOn string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{byName: make(map[string]domain.Medicine)}
}

func (f *fakeCatalog) GetMedicine(_ context.Context, name string) (domain.MedicineMatch, error) {
	m, ok := f.byName[name]
	if !ok {
		return domain.MedicineMatch{}, errNotFound
	}
	return domain.MedicineMatch{Medicine: m}, nil
}

func (f *fakeCatalog) FindByCategory(_ context.Context, category, excludeName string, limit int) ([]domain.Medicine, error) {
	var out []domain.Medicine
	for _, m := range f.byName {
		if m.Category == category && m.Name != excludeName && m.Stock > 0 {
			out = append(out, m)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) FindBySimilarName(_ context.Context, _ string, _ int) ([]domain.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) RunInTx(ctx context.Context, fn func(ctx context.Context, tx fulfillment.Tx) error) error {
	return fn(ctx, fakeTxAlias{f})
}

// fakeTxAlias adapts fakeCatalog to fulfillment.Tx without exporting a
// second concrete type.
type fakeTxAlias struct {
	store *fakeCatalog
}

func (tx fakeTxAlias) DecrementStock(_ context.Context, name string, qty int) error {
	m, ok := tx.store.byName[name]
	if !ok || m.Stock < qty || name == tx.store.failOn {
		return &domain.OutOfStockError{MedicineName: name, Requested: qty, Available: m.Stock}
	}
	m.Stock -= qty
	tx.store.byName[name] = m
	return nil
}

func (tx fakeTxAlias) CreateOrder(_ context.Context, _ domain.Order) (string, error) {
	return "order-orch-1", nil
}

func (tx fakeTxAlias) AddAuditLog(_ context.Context, _ domain.AuditLogEntry) error {
	return nil
}
