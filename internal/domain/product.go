package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength = 255
	// stock is an INTEGER column
	maxStock = math.MaxInt32
)

// ProductDraft carries the caller-supplied fields of a product to be created.
// Zero values mean "not supplied" except for Price and Stock.
type ProductDraft struct {
	Name                string
	Slug                string
	SKU                 string
	Description         string
	Summary             string
	Model               string
	Price               decimal.Decimal
	CompareAtPrice      *decimal.Decimal
	Currency            string
	Stock               int
	IsAvailable         *bool
	Condition           string
	Dimensions          *Dimensions
	BrandID             *uuid.UUID
	CategoryIDs         []uuid.UUID
	Images              []Image
	Attributes          []Attribute
	Variants            []Variant
	HighlightedFeatures []string
	Tags                []string
}

// ProductState is a full snapshot of a product. Adapters use it to persist
// and rehydrate the aggregate; it carries no behaviour of its own.
type ProductState struct {
	ID                  uuid.UUID
	Slug                Slug
	SKU                 SKU
	Name                string
	Description         string
	Summary             string
	Model               string
	Price               decimal.Decimal
	CompareAtPrice      *decimal.Decimal
	Currency            string
	Stock               int
	IsAvailable         bool
	Condition           Condition
	Dimensions          *Dimensions
	BrandID             *uuid.UUID
	CategoryIDs         []uuid.UUID
	Images              []Image
	Attributes          []Attribute
	Variants            []Variant
	HighlightedFeatures []string
	Tags                []string
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Product is the catalog aggregate root. Its state is only reachable through
// accessors and the named group mutators, so a Product is always valid.
type Product struct {
	state ProductState
}

// NewProduct validates a draft and builds a new product. Either every field
// is valid and a product is returned, or nothing is built.
func NewProduct(d ProductDraft, now time.Time) (*Product, error) {
	// name problems are reported by normalize
	slug := Slug(d.Slug)
	name := strings.TrimSpace(d.Name)
	if strings.TrimSpace(d.Slug) == "" && name != "" && len(name) <= maxNameLength {
		derived, err := slugFromName(name)
		if err != nil {
			return nil, err
		}
		slug = derived
	}
	available := true
	if d.IsAvailable != nil {
		available = *d.IsAvailable
	}
	currency := d.Currency
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}

	s := ProductState{
		ID:                  uuid.New(),
		Slug:                slug,
		SKU:                 SKU(d.SKU),
		Name:                d.Name,
		Description:         d.Description,
		Summary:             d.Summary,
		Model:               d.Model,
		Price:               d.Price,
		CompareAtPrice:      cloneDecimal(d.CompareAtPrice),
		Currency:            currency,
		Stock:               d.Stock,
		IsAvailable:         available,
		Condition:           Condition(d.Condition),
		Dimensions:          cloneDimensions(d.Dimensions),
		BrandID:             cloneID(d.BrandID),
		CategoryIDs:         append([]uuid.UUID(nil), d.CategoryIDs...),
		Images:              append([]Image(nil), d.Images...),
		Attributes:          append([]Attribute(nil), d.Attributes...),
		Variants:            append([]Variant(nil), d.Variants...),
		HighlightedFeatures: append([]string(nil), d.HighlightedFeatures...),
		Tags:                append([]string(nil), d.Tags...),
		Version:             1,
		CreatedAt:           now.UTC(),
		UpdatedAt:           now.UTC(),
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &Product{state: s}, nil
}

// RehydrateProduct rebuilds a product from persisted state, re-checking invariants
func RehydrateProduct(s ProductState) (*Product, error) {
	if s.ID == uuid.Nil {
		return nil, NewValidationError("id", "must not be empty", nil)
	}
	s = s.clone()
	if err := s.normalize(); err != nil {
		return nil, fmt.Errorf("failed to rehydrate product %s: %w", s.ID, err)
	}
	return &Product{state: s}, nil
}

// State returns a deep copy of the product's state
func (p *Product) State() ProductState { return p.state.clone() }

// Clone returns an independent copy of the product
func (p *Product) Clone() *Product { return &Product{state: p.state.clone()} }

func (p *Product) ID() uuid.UUID          { return p.state.ID }
func (p *Product) Slug() Slug             { return p.state.Slug }
func (p *Product) SKU() SKU               { return p.state.SKU }
func (p *Product) Name() string           { return p.state.Name }
func (p *Product) Description() string    { return p.state.Description }
func (p *Product) Summary() string        { return p.state.Summary }
func (p *Product) Model() string          { return p.state.Model }
func (p *Product) Currency() string       { return p.state.Currency }
func (p *Product) Stock() int             { return p.state.Stock }
func (p *Product) IsAvailable() bool      { return p.state.IsAvailable }
func (p *Product) Condition() Condition   { return p.state.Condition }
func (p *Product) Version() int64         { return p.state.Version }
func (p *Product) CreatedAt() time.Time   { return p.state.CreatedAt }
func (p *Product) UpdatedAt() time.Time   { return p.state.UpdatedAt }
func (p *Product) Tags() []string         { return append([]string(nil), p.state.Tags...) }
func (p *Product) BrandID() *uuid.UUID    { return cloneID(p.state.BrandID) }
func (p *Product) CategoryIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), p.state.CategoryIDs...)
}

// Price returns the selling price as Money
func (p *Product) Price() Money {
	return Money{amount: p.state.Price, currency: p.state.Currency}
}

// CompareAtPrice returns the reference price, if any
func (p *Product) CompareAtPrice() (Money, bool) {
	if p.state.CompareAtPrice == nil {
		return Money{}, false
	}
	return Money{amount: *p.state.CompareAtPrice, currency: p.state.Currency}, true
}

// MainImage returns the image flagged as main, falling back to the first by order
func (p *Product) MainImage() (Image, bool) {
	if len(p.state.Images) == 0 {
		return Image{}, false
	}
	for _, img := range p.state.Images {
		if img.IsMain {
			return img, true
		}
	}
	return p.state.Images[0], true
}

// HasCategory reports whether the product is classified under id
func (p *Product) HasCategory(id uuid.UUID) bool {
	for _, c := range p.state.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Touch records a mutation time. created_at is never changed.
func (p *Product) Touch(now time.Time) {
	p.state.UpdatedAt = now.UTC()
}

func (s *ProductState) normalize() error {
	if err := s.normalizeIdentity(); err != nil {
		return err
	}
	if err := s.normalizePricing(); err != nil {
		return err
	}
	if err := s.normalizeInventory(); err != nil {
		return err
	}
	if err := s.normalizeClassification(); err != nil {
		return err
	}
	return s.normalizeContent()
}

func (s *ProductState) normalizeIdentity() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return NewValidationError("name", "must not be empty", nil)
	}
	if len(s.Name) > maxNameLength {
		return NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength), len(s.Name))
	}
	slug, err := ParseSlug(string(s.Slug))
	if err != nil {
		return err
	}
	s.Slug = slug
	sku, err := ParseSKU(string(s.SKU))
	if err != nil {
		return err
	}
	s.SKU = sku
	s.Description = strings.TrimSpace(s.Description)
	s.Summary = strings.TrimSpace(s.Summary)
	s.Model = strings.TrimSpace(s.Model)
	return nil
}

func (s *ProductState) normalizePricing() error {
	code, err := ParseCurrency(s.Currency)
	if err != nil {
		return err
	}
	s.Currency = code
	if err := checkAmount("price", s.Price); err != nil {
		return err
	}
	return checkCompareAtPrice("compare_at_price", s.Price, s.CompareAtPrice)
}

func (s *ProductState) normalizeInventory() error {
	if err := checkStock("stock", s.Stock); err != nil {
		return err
	}
	condition, err := ParseCondition(string(s.Condition))
	if err != nil {
		return err
	}
	s.Condition = condition
	if s.Dimensions != nil {
		d, err := s.Dimensions.validate()
		if err != nil {
			return err
		}
		s.Dimensions = &d
	}
	return nil
}

func checkStock(field string, stock int) error {
	if stock < 0 {
		return NewValidationError(field, "must not be negative", stock)
	}
	if stock > maxStock {
		return NewValidationError(field, fmt.Sprintf("must be at most %d", maxStock), stock)
	}
	return nil
}

func (s *ProductState) normalizeClassification() error {
	if s.BrandID != nil && *s.BrandID == uuid.Nil {
		return NewValidationError("brand_id", "must not be the nil uuid", nil)
	}
	for i, id := range s.CategoryIDs {
		if id == uuid.Nil {
			return NewValidationError(fmt.Sprintf("category_ids[%d]", i), "must not be the nil uuid", nil)
		}
	}
	s.CategoryIDs = dedupeIDs(s.CategoryIDs)
	return nil
}

func (s *ProductState) normalizeContent() error {
	images, err := normalizeImages(s.Images)
	if err != nil {
		return err
	}
	attributes, err := normalizeAttributes(s.Attributes)
	if err != nil {
		return err
	}
	variants, err := normalizeVariants(s.Variants)
	if err != nil {
		return err
	}
	features, err := normalizeFeatures(s.HighlightedFeatures)
	if err != nil {
		return err
	}
	tags, err := normalizeTags(s.Tags)
	if err != nil {
		return err
	}
	s.Images, s.Attributes, s.Variants = images, attributes, variants
	s.HighlightedFeatures, s.Tags = features, tags
	return nil
}

func (s ProductState) clone() ProductState {
	c := s
	c.CompareAtPrice = cloneDecimal(s.CompareAtPrice)
	c.Dimensions = cloneDimensions(s.Dimensions)
	c.BrandID = cloneID(s.BrandID)
	c.CategoryIDs = append([]uuid.UUID(nil), s.CategoryIDs...)
	c.Images = append([]Image(nil), s.Images...)
	c.Attributes = append([]Attribute(nil), s.Attributes...)
	c.HighlightedFeatures = append([]string(nil), s.HighlightedFeatures...)
	c.Tags = append([]string(nil), s.Tags...)
	if s.Variants != nil {
		c.Variants = make([]Variant, len(s.Variants))
		for i, v := range s.Variants {
			c.Variants[i] = v.clone()
		}
	}
	return c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneDimensions(d *Dimensions) *Dimensions {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
