package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdentityUpdate changes the naming fields of a product
type IdentityUpdate struct {
	Name        *string
	Slug        *string
	SKU         *string
	ClearSKU    bool
	Description *string
	Summary     *string
	Model       *string
}

func (u *IdentityUpdate) isEmpty() bool {
	return u == nil || (u.Name == nil && u.Slug == nil && u.SKU == nil && !u.ClearSKU &&
		u.Description == nil && u.Summary == nil && u.Model == nil)
}

// PricingUpdate changes price, reference price or currency
type PricingUpdate struct {
	Price               *decimal.Decimal
	CompareAtPrice      *decimal.Decimal
	ClearCompareAtPrice bool
	Currency            *string
}

func (u *PricingUpdate) isEmpty() bool {
	return u == nil || (u.Price == nil && u.CompareAtPrice == nil && !u.ClearCompareAtPrice && u.Currency == nil)
}

// InventoryUpdate changes stock, availability, condition or dimensions
type InventoryUpdate struct {
	Stock           *int
	IsAvailable     *bool
	Condition       *string
	Dimensions      *Dimensions
	ClearDimensions bool
}

func (u *InventoryUpdate) isEmpty() bool {
	return u == nil || (u.Stock == nil && u.IsAvailable == nil && u.Condition == nil &&
		u.Dimensions == nil && !u.ClearDimensions)
}

// ClassificationUpdate changes the brand and the category set.
// A non-nil CategoryIDs replaces the whole set, an empty slice clears it.
type ClassificationUpdate struct {
	BrandID     *uuid.UUID
	ClearBrand  bool
	CategoryIDs *[]uuid.UUID
}

func (u *ClassificationUpdate) isEmpty() bool {
	return u == nil || (u.BrandID == nil && !u.ClearBrand && u.CategoryIDs == nil)
}

// ContentUpdate replaces media and descriptive collections. Each non-nil
// slice replaces the stored collection.
type ContentUpdate struct {
	Images              *[]Image
	Attributes          *[]Attribute
	Variants            *[]Variant
	HighlightedFeatures *[]string
	Tags                *[]string
}

func (u *ContentUpdate) isEmpty() bool {
	return u == nil || (u.Images == nil && u.Attributes == nil && u.Variants == nil &&
		u.HighlightedFeatures == nil && u.Tags == nil)
}

// PartialUpdate groups optional changes. Groups are applied in declaration
// order and all of them succeed or none is applied.
type PartialUpdate struct {
	Identity       *IdentityUpdate
	Pricing        *PricingUpdate
	Inventory      *InventoryUpdate
	Classification *ClassificationUpdate
	Content        *ContentUpdate

	// ExpectedVersion, when set, must match the stored version
	ExpectedVersion *int64
}

// IsEmpty reports whether the update carries no field change at all
func (u PartialUpdate) IsEmpty() bool {
	return u.Identity.isEmpty() && u.Pricing.isEmpty() && u.Inventory.isEmpty() &&
		u.Classification.isEmpty() && u.Content.isEmpty()
}

// UpdateIdentity applies an identity change. On error the product is unchanged.
func (p *Product) UpdateIdentity(u IdentityUpdate) error {
	next := p.state.clone()
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.Slug != nil {
		next.Slug = Slug(*u.Slug)
	}
	if u.ClearSKU {
		next.SKU = ""
	} else if u.SKU != nil {
		next.SKU = SKU(*u.SKU)
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.Summary != nil {
		next.Summary = *u.Summary
	}
	if u.Model != nil {
		next.Model = *u.Model
	}
	if err := next.normalizeIdentity(); err != nil {
		return err
	}
	p.state = next
	return nil
}

// UpdatePricing applies a pricing change. The compare-at invariant is
// checked against the resulting price, not the stored one.
func (p *Product) UpdatePricing(u PricingUpdate) error {
	next := p.state.clone()
	if u.Price != nil {
		next.Price = *u.Price
	}
	if u.ClearCompareAtPrice {
		next.CompareAtPrice = nil
	} else if u.CompareAtPrice != nil {
		next.CompareAtPrice = cloneDecimal(u.CompareAtPrice)
	}
	if u.Currency != nil {
		next.Currency = *u.Currency
	}
	if err := next.normalizePricing(); err != nil {
		return err
	}
	p.state = next
	return nil
}

// UpdateInventory applies a stock/availability change
func (p *Product) UpdateInventory(u InventoryUpdate) error {
	next := p.state.clone()
	if u.Stock != nil {
		next.Stock = *u.Stock
	}
	if u.IsAvailable != nil {
		next.IsAvailable = *u.IsAvailable
	}
	if u.Condition != nil {
		next.Condition = Condition(*u.Condition)
	}
	if u.ClearDimensions {
		next.Dimensions = nil
	} else if u.Dimensions != nil {
		next.Dimensions = cloneDimensions(u.Dimensions)
	}
	if err := next.normalizeInventory(); err != nil {
		return err
	}
	p.state = next
	return nil
}

// UpdateClassification applies a brand/category change. Existence of the
// referenced brand and categories is checked by the caller.
func (p *Product) UpdateClassification(u ClassificationUpdate) error {
	next := p.state.clone()
	if u.ClearBrand {
		next.BrandID = nil
	} else if u.BrandID != nil {
		next.BrandID = cloneID(u.BrandID)
	}
	if u.CategoryIDs != nil {
		next.CategoryIDs = append([]uuid.UUID{}, (*u.CategoryIDs)...)
	}
	if err := next.normalizeClassification(); err != nil {
		return err
	}
	p.state = next
	return nil
}

// UpdateContent replaces media, attributes, variants, features or tags
func (p *Product) UpdateContent(u ContentUpdate) error {
	next := p.state.clone()
	if u.Images != nil {
		next.Images = append([]Image{}, (*u.Images)...)
	}
	if u.Attributes != nil {
		next.Attributes = append([]Attribute{}, (*u.Attributes)...)
	}
	if u.Variants != nil {
		next.Variants = append([]Variant{}, (*u.Variants)...)
	}
	if u.HighlightedFeatures != nil {
		next.HighlightedFeatures = append([]string{}, (*u.HighlightedFeatures)...)
	}
	if u.Tags != nil {
		next.Tags = append([]string{}, (*u.Tags)...)
	}
	if err := next.normalizeContent(); err != nil {
		return err
	}
	p.state = next
	return nil
}

// NextVersion returns a copy of the product carrying the following version number.
// Only repositories call it, once per successful write.
func (p *Product) NextVersion() *Product {
	c := p.Clone()
	c.state.Version++
	return c
}
