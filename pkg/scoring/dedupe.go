package scoring

import (
	"strconv"
	"strings"

	"github.com/shopscope/shopscope/pkg/domain"
)

// DedupeByURL collapses items sharing an identical non-empty URL to the
// first occurrence, preserving order. Items without a URL pass through.
func DedupeByURL(items []domain.Item) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	unique := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if it.URL == "" {
			unique = append(unique, it)
			continue
		}
		if _, ok := seen[it.URL]; ok {
			continue
		}
		seen[it.URL] = struct{}{}
		unique = append(unique, it)
	}
	return unique
}

// DedupeBySignature collapses near-identical items to the first occurrence
// using a normalized title+brand+price signature. Used when canonical URLs
// are unreliable. Exact match only, no fuzzy similarity.
func DedupeBySignature(items []domain.Item) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	unique := make([]domain.Item, 0, len(items))
	for _, it := range items {
		sig := Signature(&it)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		unique = append(unique, it)
	}
	return unique
}

// Signature builds the dedup key: normalized title with punctuation stripped
// and whitespace collapsed, lower-cased brand or "unknown", and the price
// string or "0", joined with "|"
func Signature(it *domain.Item) string {
	var title strings.Builder
	for _, r := range strings.ToLower(it.Title) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' || r == '\t' || r == '\n' {
			title.WriteRune(r)
		}
	}
	normTitle := strings.Join(strings.Fields(title.String()), " ")

	brand := "unknown"
	if it.Brand != "" {
		brand = strings.ToLower(it.Brand)
	}

	price := "0"
	if it.Price != nil {
		price = strconv.FormatFloat(*it.Price, 'f', -1, 64)
	}

	return normTitle + "|" + brand + "|" + price
}
