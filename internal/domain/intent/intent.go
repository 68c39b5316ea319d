// Package intent models the structured interpretation of a free-text catalog query.
package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
)

// Type is the kind of question being asked.
type Type string

// Query intent types.
const (
	Search  Type = "search"
	Compare Type = "compare"
	Analyze Type = "analyze"
	General Type = "general"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	return t == Search || t == Compare || t == Analyze || t == General
}

// PriceRange bounds the price filter. A nil side is unbounded.
type PriceRange struct {
	Min *float64
	Max *float64
}

// MarshalJSON encodes the range as a [min, max] pair.
func (r PriceRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]*float64{r.Min, r.Max})
}

// UnmarshalJSON accepts either [min, max] or {"min": .., "max": ..}.
func (r *PriceRange) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []*float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("price_range must have exactly 2 elements, got %d", len(pair))
		}
		r.Min, r.Max = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.Min, r.Max = obj.Min, obj.Max
	return nil
}

// IsEmpty reports whether neither side is bounded.
func (r *PriceRange) IsEmpty() bool { return r == nil || (r.Min == nil && r.Max == nil) }

// Filters are the optional metadata constraints extracted from a query.
type Filters struct {
	Category   *string     `json:"category,omitempty"`
	PriceRange *PriceRange `json:"price_range,omitempty"`
	Brand      *string     `json:"brand,omitempty"`
}

// Intent is the structured form of a query.
type Intent struct {
	Type    Type    `json:"type"`
	Filters Filters `json:"filters"`
	Sort    *string `json:"sort"`
}

// Fallback returns the deterministic intent used when extraction fails.
func Fallback() Intent {
	return Intent{Type: General}
}

// Parse strictly decodes model output into an Intent. The output may wrap a
// single JSON object in prose or code fences; anything else is ErrIntentParse.
func Parse(output string) (Intent, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end < start {
		return Intent{}, fmt.Errorf("%w: no JSON object in output", domain.ErrIntentParse)
	}

	var raw struct {
		Type    *Type    `json:"type"`
		Filters *Filters `json:"filters"`
		Sort    *string  `json:"sort"`
	}
	dec := json.NewDecoder(strings.NewReader(output[start : end+1]))
	if err := dec.Decode(&raw); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", domain.ErrIntentParse, err)
	}
	if dec.More() {
		return Intent{}, fmt.Errorf("%w: trailing data after intent object", domain.ErrIntentParse)
	}
	if raw.Type == nil {
		return Intent{}, fmt.Errorf("%w: missing type", domain.ErrIntentParse)
	}
	if !raw.Type.IsValid() {
		return Intent{}, fmt.Errorf("%w: unknown type %q", domain.ErrIntentParse, *raw.Type)
	}

	in := Intent{Type: *raw.Type, Sort: nonEmpty(raw.Sort)}
	if raw.Filters != nil {
		in.Filters = Filters{
			Category:   nonEmpty(raw.Filters.Category),
			Brand:      nonEmpty(raw.Filters.Brand),
			PriceRange: raw.Filters.PriceRange,
		}
		if in.Filters.PriceRange.IsEmpty() {
			in.Filters.PriceRange = nil
		}
	}
	if err := in.Filters.validate(); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", domain.ErrIntentParse, err)
	}
	return in, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (f Filters) validate() error {
	r := f.PriceRange
	if r.IsEmpty() {
		return nil
	}
	if r.Min != nil && *r.Min < 0 {
		return fmt.Errorf("negative price_range min %v", *r.Min)
	}
	if r.Max != nil && *r.Max < 0 {
		return fmt.Errorf("negative price_range max %v", *r.Max)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("price_range min %v exceeds max %v", *r.Min, *r.Max)
	}
	return nil
}

func (r *PriceRange) bounds() (filter.Range, error) {
	if r.Min != nil && r.Max != nil {
		return filter.Between(*r.Min, *r.Max)
	}
	return filter.NewRangeFilter(nil, r.Min, nil, r.Max)
}

// Predicate translates the filters into a conjunctive metadata predicate:
// category and brand become exact matches, price_range becomes
// price >= min AND price <= max. Absent filters impose no constraint.
func (f Filters) Predicate() (filter.Predicate, error) {
	var conds []filter.Condition

	if f.Category != nil {
		c, err := filter.NewMatch(catalog.FieldCategory, *f.Category)
		if err != nil {
			return filter.Predicate{}, err
		}
		conds = append(conds, c)
	}
	if !f.PriceRange.IsEmpty() {
		r, err := f.PriceRange.bounds()
		if err != nil {
			return filter.Predicate{}, err
		}
		c, err := filter.NewRange(catalog.FieldPrice, r)
		if err != nil {
			return filter.Predicate{}, err
		}
		conds = append(conds, c)
	}
	if f.Brand != nil {
		c, err := filter.NewMatch(catalog.FieldBrand, *f.Brand)
		if err != nil {
			return filter.Predicate{}, err
		}
		conds = append(conds, c)
	}

	return filter.NewPredicate(conds...)
}
