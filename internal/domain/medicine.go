// Package domain holds the entities and enums shared by every agent in the
// pharmacy fulfillment kernel. Nothing in this package talks to a database,
// an event bus, or the network — it is pure data plus the invariants that
// apply to it.
package domain

import "github.com/shopspring/decimal"

// Medicine is a catalog row. Stock must never go negative.
type Medicine struct {
	ID                  string
	Name                string
	Category            string
	Price               decimal.Decimal
	Stock               int
	RequiresPrescription bool
	ActiveIngredients   []string
	GenericEquivalent   string
	Contraindications   []string
	Strength            string
	DosageForm          string
}

// MatchKind describes how GetMedicine found a result.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchSubstr   MatchKind = "substring"
	MatchFuzzy    MatchKind = "fuzzy"
)

// MedicineMatch wraps a Medicine with the lookup tier that produced it.
type MedicineMatch struct {
	Medicine   Medicine
	MatchKind  MatchKind
	Similarity float64 // only meaningful for MatchFuzzy
}
