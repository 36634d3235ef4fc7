package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pkgz/lgr"
)

// Filters enumerates every recognized explicit filter key. A zero value
// means "no constraint" for that dimension.
type Filters struct {
	Size            string   `json:"size,omitempty"`
	Color           string   `json:"color,omitempty"`
	Brand           string   `json:"brand,omitempty"`
	Category        string   `json:"category,omitempty"`
	PriceMin        *float64 `json:"price_min,omitempty"`
	PriceMax        *float64 `json:"price_max,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	ExcludeKeywords []string `json:"exclude_keywords,omitempty"`
}

// Empty reports whether no filter dimension is set
func (f Filters) Empty() bool {
	return f.Size == "" && f.Color == "" && f.Brand == "" && f.Category == "" &&
		f.PriceMin == nil && f.PriceMax == nil && len(f.Keywords) == 0 && len(f.ExcludeKeywords) == 0
}

// Merge overlays the receiver on top of base: any dimension set in the
// receiver wins, unset dimensions fall back to base. Used to combine
// explicit filters with auto-extracted guesses.
func (f Filters) Merge(base Filters) Filters {
	res := f
	if res.Size == "" {
		res.Size = base.Size
	}
	if res.Color == "" {
		res.Color = base.Color
	}
	if res.Brand == "" {
		res.Brand = base.Brand
	}
	if res.Category == "" {
		res.Category = base.Category
	}
	if res.PriceMin == nil {
		res.PriceMin = base.PriceMin
	}
	if res.PriceMax == nil {
		res.PriceMax = base.PriceMax
	}
	if len(res.Keywords) == 0 {
		res.Keywords = base.Keywords
	}
	if len(res.ExcludeKeywords) == 0 {
		res.ExcludeKeywords = base.ExcludeKeywords
	}
	return res
}

// ParseFilters converts a loose key-value map into a typed Filters struct.
// Unknown keys are rejected with an error; known keys with malformed values
// are logged and skipped, leaving that dimension unconstrained.
func ParseFilters(raw map[string]any) (Filters, error) {
	var f Filters
	for key, val := range raw {
		switch key {
		case "size":
			f.Size = asString(val)
		case "color":
			f.Color = asString(val)
		case "brand":
			f.Brand = asString(val)
		case "category":
			f.Category = asString(val)
		case "price_min":
			if n, ok := asFloat(val); ok {
				f.PriceMin = &n
			} else {
				lgr.Printf("[WARN] ignoring malformed price_min filter: %v", val)
			}
		case "price_max":
			if n, ok := asFloat(val); ok {
				f.PriceMax = &n
			} else {
				lgr.Printf("[WARN] ignoring malformed price_max filter: %v", val)
			}
		case "keywords":
			f.Keywords = asStringList(val)
		case "exclude_keywords":
			f.ExcludeKeywords = asStringList(val)
		default:
			return Filters{}, fmt.Errorf("unknown filter key %q", key)
		}
	}
	return f, nil
}

func asString(val any) string {
	if s, ok := val.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}

func asStringList(val any) []string {
	switch v := val.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []string:
		return v
	case []any:
		res := make([]string, 0, len(v))
		for _, e := range v {
			if s := asString(e); s != "" {
				res = append(res, s)
			}
		}
		return res
	}
	return nil
}
