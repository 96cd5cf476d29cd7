package store

import (
	"context"
	"errors"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/arogya-path/kernel/internal/domain"
)

// ErrMedicineNotFound mirrors each agent package's own sentinel — store
// callers compare against their own package's variable, not this one;
// this is only returned from store-internal helpers that don't know
// which caller's sentinel applies.
var ErrMedicineNotFound = errors.New("store: medicine not found")

const medicineColumns = `id, name, category, price, stock, requires_prescription,
	active_ingredients, generic_equivalent, contraindications, strength, dosage_form`

func scanMedicine(row pgx.Row) (domain.Medicine, error) {
	var m domain.Medicine
	var price decimal.Decimal
	err := row.Scan(&m.ID, &m.Name, &m.Category, &price, &m.Stock, &m.RequiresPrescription,
		&m.ActiveIngredients, &m.GenericEquivalent, &m.Contraindications, &m.Strength, &m.DosageForm)
	m.Price = price
	return m, err
}

// GetMedicine resolves name through three tiers: exact case-insensitive
// match, substring match, and — only if both miss — a Levenshtein
// similarity scan over at most s.fuzzyScanLimit rows, returning the
// highest-similarity row at or above 0.70.
func (s *Store) GetMedicine(ctx context.Context, name string) (domain.MedicineMatch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE lower(name) = lower($1) LIMIT 1`, name)
	if m, err := scanMedicine(row); err == nil {
		return domain.MedicineMatch{Medicine: m, MatchKind: domain.MatchExact}, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.MedicineMatch{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}

	row = s.pool.QueryRow(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE name ILIKE $1 LIMIT 1`, "%"+name+"%")
	if m, err := scanMedicine(row); err == nil {
		return domain.MedicineMatch{Medicine: m, MatchKind: domain.MatchSubstr}, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.MedicineMatch{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}

	return s.fuzzyMatch(ctx, name)
}

// fuzzyMatch scans up to s.fuzzyScanLimit catalog rows and returns the one
// with the highest Levenshtein similarity to name, provided it clears the
// 0.70 threshold. Bounding the scan (rather than walking the whole table)
// matches the allowance for a capped fallback.
func (s *Store) fuzzyMatch(ctx context.Context, name string) (domain.MedicineMatch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+medicineColumns+` FROM medicines ORDER BY name LIMIT $1`, s.fuzzyScanLimit)
	if err != nil {
		return domain.MedicineMatch{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	defer rows.Close()

	needle := strings.ToLower(name)
	var best domain.Medicine
	var bestSim float64
	found := false

	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return domain.MedicineMatch{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
		}
		sim := levenshtein.Similarity(needle, strings.ToLower(m.Name), nil)
		if sim > bestSim && sim >= 0.70 {
			bestSim = sim
			best = m
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return domain.MedicineMatch{}, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	if !found {
		return domain.MedicineMatch{}, ErrMedicineNotFound
	}
	return domain.MedicineMatch{Medicine: best, MatchKind: domain.MatchFuzzy, Similarity: bestSim}, nil
}

// UpsertMedicine inserts or replaces a catalog row by ID — used to seed
// the catalog at startup and by the integration test suite; ordinary
// runtime traffic only ever reads the catalog or decrements stock under
// RunInTx.
func (s *Store) UpsertMedicine(ctx context.Context, m domain.Medicine) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO medicines
		   (id, name, category, price, stock, requires_prescription,
		    active_ingredients, generic_equivalent, contraindications, strength, dosage_form)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   name                  = EXCLUDED.name,
		   category              = EXCLUDED.category,
		   price                 = EXCLUDED.price,
		   stock                 = EXCLUDED.stock,
		   requires_prescription = EXCLUDED.requires_prescription,
		   active_ingredients    = EXCLUDED.active_ingredients,
		   generic_equivalent    = EXCLUDED.generic_equivalent,
		   contraindications     = EXCLUDED.contraindications,
		   strength              = EXCLUDED.strength,
		   dosage_form           = EXCLUDED.dosage_form`,
		m.ID, m.Name, m.Category, m.Price, m.Stock, m.RequiresPrescription,
		nonNilStrings(m.ActiveIngredients), m.GenericEquivalent, nonNilStrings(m.Contraindications),
		m.Strength, m.DosageForm)
	if err != nil {
		return &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	return nil
}

// FindByCategory returns up to limit in-stock medicines sharing category,
// excluding excludeName — the Inventory Agent's same-category alternative
// discovery query.
func (s *Store) FindByCategory(ctx context.Context, category, excludeName string, limit int) ([]domain.Medicine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+medicineColumns+` FROM medicines
		 WHERE category = $1 AND name <> $2 AND stock > 0
		 ORDER BY name LIMIT $3`, category, excludeName, limit)
	if err != nil {
		return nil, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	defer rows.Close()
	return collectMedicines(rows)
}

// FindBySimilarName returns up to limit in-stock medicines whose name
// contains baseName, case-insensitively — the Inventory Agent's
// same-family alternative discovery query (e.g. "Paracetamol 500mg" when
// asked for "Paracetamol 250mg").
func (s *Store) FindBySimilarName(ctx context.Context, baseName string, limit int) ([]domain.Medicine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+medicineColumns+` FROM medicines
		 WHERE name ILIKE $1 AND stock > 0
		 ORDER BY name LIMIT $2`, "%"+baseName+"%", limit)
	if err != nil {
		return nil, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	defer rows.Close()
	return collectMedicines(rows)
}

func collectMedicines(rows pgx.Rows) ([]domain.Medicine, error) {
	var out []domain.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.InfrastructureError{Kind: domain.DatabaseFailure, Cause: err}
	}
	return out, nil
}
