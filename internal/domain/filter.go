package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Criterion is one predicate of a product filter. The set of criteria is
// closed: adapters translate each concrete type to their own query form.
type Criterion interface {
	Matches(p *Product) bool
	criterion()
}

// NameContains matches a case-insensitive substring of the name
type NameContains struct{ Text string }

// TextSearch matches when every token occurs in the name, description,
// summary, sku or one of the tags
type TextSearch struct{ Tokens []string }

// InCategories matches products classified under any of the ids
type InCategories struct{ IDs []uuid.UUID }

type BrandIs struct{ ID uuid.UUID }

// PriceAtLeast and PriceAtMost are inclusive bounds
type PriceAtLeast struct{ Amount decimal.Decimal }
type PriceAtMost struct{ Amount decimal.Decimal }

type AvailabilityIs struct{ Available bool }

type ConditionIs struct{ Condition Condition }

// HasAllTags matches products carrying every listed tag
type HasAllTags struct{ Tags []string }

// InStock true matches stock > 0, false matches stock == 0
type InStock struct{ InStock bool }

func (NameContains) criterion()   {}
func (TextSearch) criterion()     {}
func (InCategories) criterion()   {}
func (BrandIs) criterion()        {}
func (PriceAtLeast) criterion()   {}
func (PriceAtMost) criterion()    {}
func (AvailabilityIs) criterion() {}
func (ConditionIs) criterion()    {}
func (HasAllTags) criterion()     {}
func (InStock) criterion()        {}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (c NameContains) Matches(p *Product) bool {
	return containsFold(p.state.Name, c.Text)
}

func (c TextSearch) Matches(p *Product) bool {
	for _, token := range c.Tokens {
		if !tokenMatches(p, token) {
			return false
		}
	}
	return true
}

func tokenMatches(p *Product, token string) bool {
	s := &p.state
	if containsFold(s.Name, token) || containsFold(s.Description, token) ||
		containsFold(s.Summary, token) || containsFold(string(s.SKU), token) {
		return true
	}
	for _, tag := range s.Tags {
		if containsFold(tag, token) {
			return true
		}
	}
	return false
}

func (c InCategories) Matches(p *Product) bool {
	for _, id := range c.IDs {
		if p.HasCategory(id) {
			return true
		}
	}
	return false
}

func (c BrandIs) Matches(p *Product) bool {
	return p.state.BrandID != nil && *p.state.BrandID == c.ID
}

func (c PriceAtLeast) Matches(p *Product) bool {
	return p.state.Price.GreaterThanOrEqual(c.Amount)
}

func (c PriceAtMost) Matches(p *Product) bool {
	return p.state.Price.LessThanOrEqual(c.Amount)
}

func (c AvailabilityIs) Matches(p *Product) bool {
	return p.state.IsAvailable == c.Available
}

func (c ConditionIs) Matches(p *Product) bool {
	return p.state.Condition == c.Condition
}

func (c HasAllTags) Matches(p *Product) bool {
	for _, want := range c.Tags {
		found := false
		for _, tag := range p.state.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c InStock) Matches(p *Product) bool {
	if c.InStock {
		return p.state.Stock > 0
	}
	return p.state.Stock == 0
}

// ProductFilter is a conjunction of criteria. The zero value matches every product.
type ProductFilter struct {
	criteria []Criterion
}

// NewProductFilter builds a filter from criteria
func NewProductFilter(criteria ...Criterion) ProductFilter {
	return ProductFilter{criteria: append([]Criterion(nil), criteria...)}
}

// Criteria returns the filter's criteria in insertion order
func (f ProductFilter) Criteria() []Criterion {
	return append([]Criterion(nil), f.criteria...)
}

// And returns a filter matching products matched by both f and other
func (f ProductFilter) And(other ProductFilter) ProductFilter {
	combined := make([]Criterion, 0, len(f.criteria)+len(other.criteria))
	combined = append(combined, f.criteria...)
	combined = append(combined, other.criteria...)
	return ProductFilter{criteria: combined}
}

func (f ProductFilter) IsEmpty() bool { return len(f.criteria) == 0 }

// Matches evaluates every criterion against p
func (f ProductFilter) Matches(p *Product) bool {
	for _, c := range f.criteria {
		if !c.Matches(p) {
			return false
		}
	}
	return true
}

// FilterParams are the raw, optional search parameters accepted from callers
type FilterParams struct {
	Name        *string
	Search      *string
	CategoryID  *uuid.UUID
	BrandID     *uuid.UUID
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	IsAvailable *bool
	Condition   *string
	Tags        []string
	InStock     *bool

	// IncludeSubcategories asks the caller to expand CategoryID
	IncludeSubcategories bool
	// SubcategoryIDs holds the expansion of CategoryID, filled by the category service
	SubcategoryIDs []uuid.UUID
}

// Build validates the parameters and compiles them into a filter
func (fp FilterParams) Build() (ProductFilter, error) {
	var criteria []Criterion

	if fp.Name != nil {
		if text := strings.TrimSpace(*fp.Name); text != "" {
			criteria = append(criteria, NameContains{Text: text})
		}
	}
	if fp.Search != nil {
		if tokens := strings.Fields(strings.ToLower(*fp.Search)); len(tokens) > 0 {
			criteria = append(criteria, TextSearch{Tokens: tokens})
		}
	}
	if fp.CategoryID != nil {
		ids := dedupeIDs(append([]uuid.UUID{*fp.CategoryID}, fp.SubcategoryIDs...))
		criteria = append(criteria, InCategories{IDs: ids})
	}
	if fp.BrandID != nil {
		criteria = append(criteria, BrandIs{ID: *fp.BrandID})
	}
	if fp.MinPrice != nil {
		if fp.MinPrice.IsNegative() {
			return ProductFilter{}, NewValidationError("min_price", "must not be negative", fp.MinPrice.String())
		}
		criteria = append(criteria, PriceAtLeast{Amount: *fp.MinPrice})
	}
	if fp.MaxPrice != nil {
		if fp.MaxPrice.IsNegative() {
			return ProductFilter{}, NewValidationError("max_price", "must not be negative", fp.MaxPrice.String())
		}
		criteria = append(criteria, PriceAtMost{Amount: *fp.MaxPrice})
	}
	if fp.MinPrice != nil && fp.MaxPrice != nil && fp.MinPrice.GreaterThan(*fp.MaxPrice) {
		return ProductFilter{}, NewFieldsValidationError([]string{"min_price", "max_price"},
			fmt.Sprintf("min_price %s is greater than max_price %s", fp.MinPrice, fp.MaxPrice))
	}
	if fp.IsAvailable != nil {
		criteria = append(criteria, AvailabilityIs{Available: *fp.IsAvailable})
	}
	if fp.Condition != nil && strings.TrimSpace(*fp.Condition) != "" {
		c, err := ParseCondition(*fp.Condition)
		if err != nil {
			return ProductFilter{}, err
		}
		criteria = append(criteria, ConditionIs{Condition: c})
	}
	if len(fp.Tags) > 0 {
		tags, err := normalizeTags(fp.Tags)
		if err != nil {
			return ProductFilter{}, err
		}
		criteria = append(criteria, HasAllTags{Tags: tags})
	}
	if fp.InStock != nil {
		criteria = append(criteria, InStock{InStock: *fp.InStock})
	}

	return ProductFilter{criteria: criteria}, nil
}
