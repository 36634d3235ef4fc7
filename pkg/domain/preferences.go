package domain

import (
	"slices"
	"strings"
	"time"
)

// PriceRanges maps a named price bracket to its [min, max] bounds
type PriceRanges map[string][2]float64

// DefaultPriceRanges are used when the configuration does not override them
func DefaultPriceRanges() PriceRanges {
	return PriceRanges{
		"budget":   {0, 50},
		"moderate": {50, 150},
		"premium":  {150, 500},
		"luxury":   {500, 999999},
	}
}

// UserPreferences is a session- or profile-scoped bundle of declared
// constraints. Colors, brands and categories are kept lower-cased, sizes
// upper-cased. A value can be preferred or disliked, never both.
type UserPreferences struct {
	PreferredSize   string   `yaml:"preferred_size" json:"preferred_size"`
	AcceptableSizes []string `yaml:"acceptable_sizes" json:"acceptable_sizes"`

	PreferredColors []string `yaml:"preferred_colors" json:"preferred_colors"`
	DislikedColors  []string `yaml:"disliked_colors" json:"disliked_colors"`

	PreferredBrands []string `yaml:"preferred_brands" json:"preferred_brands"`
	DislikedBrands  []string `yaml:"disliked_brands" json:"disliked_brands"`

	PreferredCategories []string `yaml:"preferred_categories" json:"preferred_categories"`
	DislikedCategories  []string `yaml:"disliked_categories" json:"disliked_categories"`

	PriceRange string   `yaml:"price_range" json:"price_range"` // named bracket: budget, moderate, premium, luxury
	MinPrice   *float64 `yaml:"min_price" json:"min_price"`
	MaxPrice   *float64 `yaml:"max_price" json:"max_price"`

	MustKeywords    []string `yaml:"must_keywords" json:"must_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords" json:"exclude_keywords"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// NewUserPreferences returns an empty, normalized preferences bundle
func NewUserPreferences() *UserPreferences {
	now := time.Now()
	p := &UserPreferences{CreatedAt: now, UpdatedAt: now}
	return p
}

// Normalize folds values to canonical case and makes sure the preferred size
// is listed among acceptable sizes. Call after loading from configuration.
func (p *UserPreferences) Normalize() {
	lower := func(vals []string) []string {
		res := make([]string, 0, len(vals))
		for _, v := range vals {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				res = append(res, v)
			}
		}
		return res
	}
	p.PreferredColors = lower(p.PreferredColors)
	p.DislikedColors = lower(p.DislikedColors)
	p.PreferredBrands = lower(p.PreferredBrands)
	p.DislikedBrands = lower(p.DislikedBrands)
	p.PreferredCategories = lower(p.PreferredCategories)
	p.DislikedCategories = lower(p.DislikedCategories)

	p.PreferredSize = strings.ToUpper(strings.TrimSpace(p.PreferredSize))
	for i, s := range p.AcceptableSizes {
		p.AcceptableSizes[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if p.PreferredSize != "" && !slices.Contains(p.AcceptableSizes, p.PreferredSize) {
		p.AcceptableSizes = append([]string{p.PreferredSize}, p.AcceptableSizes...)
	}
}

// Empty reports whether no preference dimension is declared
func (p *UserPreferences) Empty() bool {
	return p == nil || (p.PreferredSize == "" && len(p.PreferredColors) == 0 && len(p.PreferredBrands) == 0 &&
		len(p.PreferredCategories) == 0 && p.PriceRange == "" && p.MinPrice == nil && p.MaxPrice == nil &&
		len(p.DislikedColors) == 0 && len(p.DislikedBrands) == 0 && len(p.DislikedCategories) == 0)
}

func (p *UserPreferences) touch() { p.UpdatedAt = time.Now() }

// addTo inserts val into dst (if missing) and removes it from opposite
func addTo(dst, opposite []string, val string) (updated, cleaned []string) {
	if !slices.Contains(dst, val) {
		dst = append(dst, val)
	}
	if i := slices.Index(opposite, val); i >= 0 {
		opposite = slices.Delete(opposite, i, i+1)
	}
	return dst, opposite
}

// AddPreferredColor adds a color to the preferred list, dropping it from disliked
func (p *UserPreferences) AddPreferredColor(color string) {
	color = strings.ToLower(strings.TrimSpace(color))
	p.PreferredColors, p.DislikedColors = addTo(p.PreferredColors, p.DislikedColors, color)
	p.touch()
}

// AddDislikedColor adds a color to the disliked list, dropping it from preferred
func (p *UserPreferences) AddDislikedColor(color string) {
	color = strings.ToLower(strings.TrimSpace(color))
	p.DislikedColors, p.PreferredColors = addTo(p.DislikedColors, p.PreferredColors, color)
	p.touch()
}

// AddPreferredBrand adds a brand to the preferred list, dropping it from disliked
func (p *UserPreferences) AddPreferredBrand(brand string) {
	brand = strings.ToLower(strings.TrimSpace(brand))
	p.PreferredBrands, p.DislikedBrands = addTo(p.PreferredBrands, p.DislikedBrands, brand)
	p.touch()
}

// AddDislikedBrand adds a brand to the disliked list, dropping it from preferred
func (p *UserPreferences) AddDislikedBrand(brand string) {
	brand = strings.ToLower(strings.TrimSpace(brand))
	p.DislikedBrands, p.PreferredBrands = addTo(p.DislikedBrands, p.PreferredBrands, brand)
	p.touch()
}

// AddPreferredCategory adds a category to the preferred list, dropping it from disliked
func (p *UserPreferences) AddPreferredCategory(category string) {
	category = strings.ToLower(strings.TrimSpace(category))
	p.PreferredCategories, p.DislikedCategories = addTo(p.PreferredCategories, p.DislikedCategories, category)
	p.touch()
}

// AddDislikedCategory adds a category to the disliked list, dropping it from preferred
func (p *UserPreferences) AddDislikedCategory(category string) {
	category = strings.ToLower(strings.TrimSpace(category))
	p.DislikedCategories, p.PreferredCategories = addTo(p.DislikedCategories, p.PreferredCategories, category)
	p.touch()
}

// SetPriceRange sets an explicit min/max range, overriding the named bracket
func (p *UserPreferences) SetPriceRange(minPrice, maxPrice *float64) {
	if minPrice != nil {
		p.MinPrice = minPrice
	}
	if maxPrice != nil {
		p.MaxPrice = maxPrice
	}
	p.touch()
}

// PriceBounds resolves the effective price range. An explicit min/max wins
// over the named bracket; nil bounds mean unconstrained.
func (p *UserPreferences) PriceBounds(ranges PriceRanges) (minPrice, maxPrice *float64) {
	if p.MinPrice != nil || p.MaxPrice != nil {
		return p.MinPrice, p.MaxPrice
	}
	if p.PriceRange != "" {
		if bounds, ok := ranges[p.PriceRange]; ok {
			lo, hi := bounds[0], bounds[1]
			return &lo, &hi
		}
	}
	return nil, nil
}

// MatchesSize checks a size against the preference, permissive on empty input
func (p *UserPreferences) MatchesSize(size string) bool {
	if size == "" {
		return true
	}
	size = strings.ToUpper(size)
	if p.PreferredSize != "" && size == p.PreferredSize {
		return true
	}
	if len(p.AcceptableSizes) > 0 {
		return slices.Contains(p.AcceptableSizes, size)
	}
	return p.PreferredSize == ""
}

// matchesList implements disliked-first substring matching shared by
// color, brand and category checks
func matchesList(value string, preferred, disliked []string) bool {
	if value == "" {
		return true
	}
	value = strings.ToLower(value)
	for _, d := range disliked {
		if strings.Contains(value, d) {
			return false
		}
	}
	if len(preferred) > 0 {
		for _, pr := range preferred {
			if strings.Contains(value, pr) {
				return true
			}
		}
		return false
	}
	return true
}

// MatchesColor checks a color against preferred/disliked lists
func (p *UserPreferences) MatchesColor(color string) bool {
	return matchesList(color, p.PreferredColors, p.DislikedColors)
}

// MatchesBrand checks a brand against preferred/disliked lists
func (p *UserPreferences) MatchesBrand(brand string) bool {
	return matchesList(brand, p.PreferredBrands, p.DislikedBrands)
}

// MatchesCategory checks a category against preferred/disliked lists
func (p *UserPreferences) MatchesCategory(category string) bool {
	return matchesList(category, p.PreferredCategories, p.DislikedCategories)
}

// MatchesPrice checks a price against the resolved bounds, permissive on nil price
func (p *UserPreferences) MatchesPrice(price *float64, ranges PriceRanges) bool {
	if price == nil {
		return true
	}
	minPrice, maxPrice := p.PriceBounds(ranges)
	if minPrice != nil && *price < *minPrice {
		return false
	}
	if maxPrice != nil && *price > *maxPrice {
		return false
	}
	return true
}

func unionLists(a, b []string) []string {
	res := slices.Clone(a)
	for _, v := range b {
		if !slices.Contains(res, v) {
			res = append(res, v)
		}
	}
	return res
}

// Merge combines the receiver with another preferences bundle: list fields are
// unioned, scalar fields from other win when set. The receiver is unchanged.
func (p *UserPreferences) Merge(other *UserPreferences) *UserPreferences {
	merged := *p
	merged.AcceptableSizes = unionLists(p.AcceptableSizes, other.AcceptableSizes)
	merged.PreferredColors = unionLists(p.PreferredColors, other.PreferredColors)
	merged.DislikedColors = unionLists(p.DislikedColors, other.DislikedColors)
	merged.PreferredBrands = unionLists(p.PreferredBrands, other.PreferredBrands)
	merged.DislikedBrands = unionLists(p.DislikedBrands, other.DislikedBrands)
	merged.PreferredCategories = unionLists(p.PreferredCategories, other.PreferredCategories)
	merged.DislikedCategories = unionLists(p.DislikedCategories, other.DislikedCategories)
	merged.MustKeywords = unionLists(p.MustKeywords, other.MustKeywords)
	merged.ExcludeKeywords = unionLists(p.ExcludeKeywords, other.ExcludeKeywords)

	if other.PreferredSize != "" {
		merged.PreferredSize = other.PreferredSize
	}
	if other.PriceRange != "" {
		merged.PriceRange = other.PriceRange
	}
	if other.MinPrice != nil {
		merged.MinPrice = other.MinPrice
	}
	if other.MaxPrice != nil {
		merged.MaxPrice = other.MaxPrice
	}

	merged.UpdatedAt = time.Now()
	merged.Normalize()
	return &merged
}
