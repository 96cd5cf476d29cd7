package inventoryagent

import (
	"strings"

	"github.com/arogya-path/kernel/internal/domain"
)

// confidenceTier classifies how strongly a candidate substitute matches
// the original medicine (see the glossary entry for "Replacement
// (confidence tier)".
const (
	tierHigh   = "high"
	tierMedium = "medium"
	tierLow    = "low"
)

// proposeReplacement picks the single best equivalent substitute for
// original out of candidates, tiered high (same active ingredient, no
// override needed) > medium (original's generic_equivalent) > low (same
// category only, override needed either way). Returns nil if no candidate
// qualifies or the best candidate is refused by the contraindication gate.
func proposeReplacement(original domain.Medicine, candidates []domain.Medicine, allergies []string) *domain.ReplacementInfo {
	var best *domain.Medicine
	var bestTier string

	for i := range candidates {
		c := candidates[i]
		tier, ok := classifyTier(original, c)
		if !ok {
			continue
		}
		if best == nil || tierRank(tier) > tierRank(bestTier) {
			cc := c
			best = &cc
			bestTier = tier
		}
	}

	if best == nil {
		return nil
	}
	if contraindicated(*best, allergies) {
		return nil
	}

	return &domain.ReplacementInfo{
		OriginalName:     original.Name,
		ReplacementName:  best.Name,
		ConfidenceTier:   bestTier,
		RequiresOverride: bestTier != tierHigh,
	}
}

func classifyTier(original, candidate domain.Medicine) (string, bool) {
	if sharesActiveIngredient(original, candidate) {
		return tierHigh, true
	}
	if original.GenericEquivalent != "" && strings.EqualFold(original.GenericEquivalent, candidate.Name) {
		return tierMedium, true
	}
	if original.Category != "" && strings.EqualFold(original.Category, candidate.Category) {
		return tierLow, true
	}
	return "", false
}

func sharesActiveIngredient(a, b domain.Medicine) bool {
	if len(a.ActiveIngredients) == 0 || len(b.ActiveIngredients) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a.ActiveIngredients))
	for _, ing := range a.ActiveIngredients {
		set[strings.ToLower(ing)] = struct{}{}
	}
	for _, ing := range b.ActiveIngredients {
		if _, ok := set[strings.ToLower(ing)]; ok {
			return true
		}
	}
	return false
}

func tierRank(tier string) int {
	switch tier {
	case tierHigh:
		return 3
	case tierMedium:
		return 2
	case tierLow:
		return 1
	default:
		return 0
	}
}

// contraindicated refuses a replacement if any of the patient's allergy
// tokens appears in the candidate's active ingredients or contraindications.
func contraindicated(candidate domain.Medicine, allergies []string) bool {
	if len(allergies) == 0 {
		return false
	}
	tokens := make([]string, 0, len(candidate.ActiveIngredients)+len(candidate.Contraindications))
	for _, t := range candidate.ActiveIngredients {
		tokens = append(tokens, strings.ToLower(t))
	}
	for _, t := range candidate.Contraindications {
		tokens = append(tokens, strings.ToLower(t))
	}
	for _, allergy := range allergies {
		a := strings.ToLower(allergy)
		for _, tok := range tokens {
			if strings.Contains(tok, a) || strings.Contains(a, tok) {
				return true
			}
		}
	}
	return false
}
