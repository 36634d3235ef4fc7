package scoring

import (
	"strings"

	"github.com/shopscope/shopscope/pkg/domain"
)

// token overlap weights for relevance scoring
const (
	relTitle       = 3.0
	relDescription = 1.5
	relBrand       = 2.0
	relCategory    = 1.0
)

// Relevance computes a query-match score per item, independent of user
// preferences: word-set intersections of the query against title,
// description, brand and category, normalized by query length and clamped
// to [0,1]. Items are returned in the original order with scores set.
func Relevance(items []domain.Item, query string) []domain.Item {
	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return items
	}
	maxScore := float64(len(queryWords)) * relTitle

	for i := range items {
		it := &items[i]
		score := overlap(queryWords, it.Title)*relTitle +
			overlap(queryWords, it.Description)*relDescription +
			overlap(queryWords, it.Brand)*relBrand +
			overlap(queryWords, it.Category)*relCategory
		score = clamp01(score / maxScore)
		it.RelevanceScore = &score
	}
	return items
}

// tokenize lower-cases and splits on whitespace, dropping duplicates
func tokenize(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// overlap counts query words present in the field's word set
func overlap(queryWords map[string]struct{}, field string) float64 {
	if field == "" {
		return 0
	}
	var n int
	for w := range tokenize(field) {
		if _, ok := queryWords[w]; ok {
			n++
		}
	}
	return float64(n)
}
