package domain

import (
	"crypto/md5" //nolint:gosec // stable item ids, not a security use
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Item represents a product or content listing discovered by a source adapter.
// Two items with the same URL are the same entity.
type Item struct {
	Title         string
	URL           string
	Site          string
	Price         *float64
	OriginalPrice *float64
	Currency      string

	Brand       string
	Size        string
	Color       string
	Category    string
	Description string

	ImageURL  string
	ImageURLs []string

	InStock     bool
	Rating      *float64
	ReviewCount int
	Tags        []string

	// scores are nil until the corresponding engine computes them
	RelevanceScore  *float64
	PreferenceScore *float64

	FoundAt time.Time

	// Raw carries the source payload untouched
	Raw map[string]any
}

// ID returns a deterministic identifier derived from site and URL,
// stable across discoveries of the same listing.
func (it *Item) ID() string {
	sum := md5.Sum([]byte(it.URL)) //nolint:gosec // stable id, not a credential
	return it.Site + "_" + hex.EncodeToString(sum[:])[:8]
}

// DiscountPercent returns the discount percentage when the item is on sale, nil otherwise
func (it *Item) DiscountPercent() *float64 {
	if it.OriginalPrice == nil || it.Price == nil || *it.OriginalPrice <= *it.Price {
		return nil
	}
	pct := (*it.OriginalPrice - *it.Price) / *it.OriginalPrice * 100
	return &pct
}

// Savings returns the absolute amount saved against the original price, nil when not on sale
func (it *Item) Savings() *float64 {
	if it.OriginalPrice == nil || it.Price == nil || *it.OriginalPrice <= *it.Price {
		return nil
	}
	diff := *it.OriginalPrice - *it.Price
	return &diff
}

// OnSale reports whether the item has a real discount
func (it *Item) OnSale() bool { return it.DiscountPercent() != nil }

// FormattedPrice renders the price with its currency symbol
func (it *Item) FormattedPrice() string {
	if it.Price == nil {
		return "price unavailable"
	}
	symbol := it.Currency
	if symbol == "" || symbol == "USD" {
		symbol = "$"
	}
	return fmt.Sprintf("%s%.2f", symbol, *it.Price)
}

// Relevance returns the relevance score or the neutral 0.5 when not yet computed
func (it *Item) Relevance() float64 {
	if it.RelevanceScore == nil {
		return 0.5
	}
	return *it.RelevanceScore
}

// Normalize trims the title and makes sure ImageURLs contains ImageURL
func (it *Item) Normalize() {
	it.Title = strings.TrimSpace(it.Title)
	if it.ImageURL == "" {
		return
	}
	for _, u := range it.ImageURLs {
		if u == it.ImageURL {
			return
		}
	}
	it.ImageURLs = append([]string{it.ImageURL}, it.ImageURLs...)
}
