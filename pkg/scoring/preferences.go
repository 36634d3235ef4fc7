package scoring

import (
	"sort"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/shopscope/shopscope/pkg/domain"
)

// factor weights for declared-preference scoring
const (
	weightSize     = 3.0
	weightColor    = 2.0
	weightPrice    = 2.0
	weightCategory = 2.0
	weightBrand    = 1.0
	bonusLowPrice  = 0.5
)

// ByPreferences drops items failing the hard preference predicates, scores
// the survivors against the declared preferences and returns them sorted by
// preference score descending, stable on ties. Scores are in [0,1]; an item
// with no applicable preference dimension gets the neutral 0.5.
func ByPreferences(items []domain.Item, prefs *domain.UserPreferences, ranges domain.PriceRanges) []domain.Item {
	if prefs.Empty() {
		return items
	}
	if ranges == nil {
		ranges = domain.DefaultPriceRanges()
	}

	kept := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if !matchesPreferences(&it, prefs, ranges) {
			continue
		}
		score := preferenceScore(&it, prefs, ranges)
		it.PreferenceScore = &score
		kept = append(kept, it)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].PreferenceScore > *kept[j].PreferenceScore
	})

	lgr.Printf("[DEBUG] preference scoring kept %d of %d items", len(kept), len(items))
	return kept
}

// matchesPreferences is the hard-filter subset: size, color, brand, category
// and price-range membership, each permissive when the item attribute is missing
func matchesPreferences(it *domain.Item, prefs *domain.UserPreferences, ranges domain.PriceRanges) bool {
	if !prefs.MatchesSize(it.Size) {
		return false
	}
	if !prefs.MatchesColor(it.Color) {
		return false
	}
	if !prefs.MatchesBrand(it.Brand) {
		return false
	}
	if !prefs.MatchesCategory(it.Category) {
		return false
	}
	return prefs.MatchesPrice(it.Price, ranges)
}

// preferenceScore computes the weighted factor sum normalized by the total
// weight of applicable factors. A factor applies only when the preference is
// declared and the item carries the attribute.
func preferenceScore(it *domain.Item, prefs *domain.UserPreferences, ranges domain.PriceRanges) float64 {
	var score, total float64

	if prefs.PreferredSize != "" && it.Size != "" {
		total += weightSize
		if strings.EqualFold(it.Size, prefs.PreferredSize) {
			score += weightSize
		}
	}

	if len(prefs.PreferredColors) > 0 && it.Color != "" {
		total += weightColor
		color := strings.ToLower(it.Color)
		for _, pref := range prefs.PreferredColors {
			if strings.Contains(color, pref) {
				score += weightColor
				break
			}
		}
	}

	if minP, maxP := prefs.PriceBounds(ranges); (minP != nil || maxP != nil) && it.Price != nil {
		total += weightPrice
		price := *it.Price
		inRange := (minP == nil || price >= *minP) && (maxP == nil || price <= *maxP)
		if inRange {
			score += weightPrice
			if minP != nil && maxP != nil && price <= (*minP+*maxP)/2 {
				score += bonusLowPrice
			}
		}
	}

	if len(prefs.PreferredCategories) > 0 && it.Category != "" {
		total += weightCategory
		category := strings.ToLower(it.Category)
		for _, pref := range prefs.PreferredCategories {
			if strings.Contains(category, pref) {
				score += weightCategory
				break
			}
		}
	}

	if len(prefs.PreferredBrands) > 0 && it.Brand != "" {
		total += weightBrand
		brand := strings.ToLower(it.Brand)
		for _, pref := range prefs.PreferredBrands {
			if strings.Contains(brand, pref) {
				score += weightBrand
				break
			}
		}
	}

	if total == 0 {
		return 0.5 // nothing applicable, neutral
	}
	return clamp01(score / total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
