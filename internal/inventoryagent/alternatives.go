package inventoryagent

import (
	"context"
	"sort"

	"github.com/arogya-path/kernel/internal/domain"
)

const (
	categorySearchLimit = 10
	similarSearchLimit  = 10
	maxAlternatives     = 5
)

// findAlternatives draws candidates from the same category and from a
// substring match on the stripped base name, deduplicates by name keeping
// only in-stock candidates, and sorts by (-stock, price).
func findAlternatives(ctx context.Context, store MedicineStore, original domain.Medicine, originalName string) []domain.Medicine {
	var candidates []domain.Medicine

	if original.Category != "" {
		if byCategory, err := store.FindByCategory(ctx, original.Category, originalName, categorySearchLimit); err == nil {
			candidates = append(candidates, byCategory...)
		}
	}

	baseName := extractBaseName(originalName)
	if baseName != "" && baseName != originalName {
		if bySimilarName, err := store.FindBySimilarName(ctx, baseName, similarSearchLimit); err == nil {
			candidates = append(candidates, bySimilarName...)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := make([]domain.Medicine, 0, len(candidates))
	for _, c := range candidates {
		if c.Stock <= 0 {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].Stock != unique[j].Stock {
			return unique[i].Stock > unique[j].Stock
		}
		return unique[i].Price.LessThan(unique[j].Price)
	})

	if len(unique) > maxAlternatives {
		unique = unique[:maxAlternatives]
	}
	return unique
}

func toAlternativeList(medicines []domain.Medicine) []domain.InventoryAlternative {
	out := make([]domain.InventoryAlternative, len(medicines))
	for i, m := range medicines {
		out[i] = domain.InventoryAlternative{
			MedicineName: m.Name,
			Stock:        m.Stock,
			Price:        m.Price.String(),
		}
	}
	return out
}
