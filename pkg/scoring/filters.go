package scoring

import (
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/shopscope/shopscope/pkg/domain"
)

// Apply keeps only the items passing every set filter dimension. Predicates
// are independent and combined with AND. An item missing the attribute a
// filter targets is not excluded by that filter (permissive-null policy).
func Apply(items []domain.Item, filters domain.Filters) []domain.Item {
	if filters.Empty() {
		return items
	}

	kept := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if matchesFilters(&it, filters) {
			kept = append(kept, it)
		}
	}
	lgr.Printf("[DEBUG] filters kept %d of %d items", len(kept), len(items))
	return kept
}

func matchesFilters(it *domain.Item, f domain.Filters) bool {
	if f.Size != "" && it.Size != "" && !strings.EqualFold(it.Size, f.Size) {
		return false
	}
	if f.Color != "" && it.Color != "" &&
		!strings.Contains(strings.ToLower(it.Color), strings.ToLower(f.Color)) {
		return false
	}
	if f.Brand != "" && it.Brand != "" &&
		!strings.Contains(strings.ToLower(it.Brand), strings.ToLower(f.Brand)) {
		return false
	}
	if f.Category != "" && it.Category != "" &&
		!strings.Contains(strings.ToLower(it.Category), strings.ToLower(f.Category)) {
		return false
	}
	if f.PriceMin != nil && it.Price != nil && *it.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && it.Price != nil && *it.Price > *f.PriceMax {
		return false
	}

	if len(f.Keywords) > 0 || len(f.ExcludeKeywords) > 0 {
		text := strings.ToLower(it.Title + " " + it.Description)
		if len(f.Keywords) > 0 && !containsAny(text, f.Keywords) {
			return false
		}
		if containsAny(text, f.ExcludeKeywords) {
			return false
		}
	}
	return true
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
