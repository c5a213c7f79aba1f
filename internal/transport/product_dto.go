package transport

import (
	"time"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name                string             `json:"name" validate:"required,max=255"`
	Slug                string             `json:"slug" validate:"omitempty,max=255"`
	SKU                 string             `json:"sku" validate:"omitempty,max=64"`
	Description         string             `json:"description"`
	Summary             string             `json:"summary" validate:"max=500"`
	Model               string             `json:"model" validate:"max=255"`
	Price               decimal.Decimal    `json:"price"`
	CompareAtPrice      *decimal.Decimal   `json:"compare_at_price"`
	Currency            string             `json:"currency" validate:"omitempty,len=3"`
	Stock               int                `json:"stock" validate:"gte=0"`
	IsAvailable         *bool              `json:"is_available"`
	Condition           string             `json:"condition" validate:"omitempty,oneof=new used refurbished"`
	Dimensions          *domain.Dimensions `json:"dimensions"`
	BrandID             *uuid.UUID         `json:"brand_id"`
	CategoryIDs         []uuid.UUID        `json:"category_ids"`
	Images              []domain.Image     `json:"images"`
	Attributes          []domain.Attribute `json:"attributes"`
	Variants            []domain.Variant   `json:"variants"`
	HighlightedFeatures []string           `json:"highlighted_features"`
	Tags                []string           `json:"tags"`
}

func (req CreateProductRequest) draft() domain.ProductDraft {
	return domain.ProductDraft{
		Name:                req.Name,
		Slug:                req.Slug,
		SKU:                 req.SKU,
		Description:         req.Description,
		Summary:             req.Summary,
		Model:               req.Model,
		Price:               req.Price,
		CompareAtPrice:      req.CompareAtPrice,
		Currency:            req.Currency,
		Stock:               req.Stock,
		IsAvailable:         req.IsAvailable,
		Condition:           req.Condition,
		Dimensions:          req.Dimensions,
		BrandID:             req.BrandID,
		CategoryIDs:         req.CategoryIDs,
		Images:              req.Images,
		Attributes:          req.Attributes,
		Variants:            req.Variants,
		HighlightedFeatures: req.HighlightedFeatures,
		Tags:                req.Tags,
	}
}

// UpdateProductRequest represents a partial update. Absent fields are left
// untouched; the clear_* flags remove optional values.
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,min=1,max=255"`
	SKU         *string `json:"sku" validate:"omitempty,max=64"`
	ClearSKU    bool    `json:"clear_sku"`
	Description *string `json:"description"`
	Summary     *string `json:"summary" validate:"omitempty,max=500"`
	Model       *string `json:"model" validate:"omitempty,max=255"`

	Price               *decimal.Decimal `json:"price"`
	CompareAtPrice      *decimal.Decimal `json:"compare_at_price"`
	ClearCompareAtPrice bool             `json:"clear_compare_at_price"`
	Currency            *string          `json:"currency" validate:"omitempty,len=3"`

	Stock           *int               `json:"stock"`
	IsAvailable     *bool              `json:"is_available"`
	Condition       *string            `json:"condition" validate:"omitempty,oneof=new used refurbished"`
	Dimensions      *domain.Dimensions `json:"dimensions"`
	ClearDimensions bool               `json:"clear_dimensions"`

	BrandID     *uuid.UUID   `json:"brand_id"`
	ClearBrand  bool         `json:"clear_brand"`
	CategoryIDs *[]uuid.UUID `json:"category_ids"`

	Images              *[]domain.Image     `json:"images"`
	Attributes          *[]domain.Attribute `json:"attributes"`
	Variants            *[]domain.Variant   `json:"variants"`
	HighlightedFeatures *[]string           `json:"highlighted_features"`
	Tags                *[]string           `json:"tags"`
}

// partialUpdate groups the request fields; a group is only set when one of
// its fields is present
func (req UpdateProductRequest) partialUpdate(expectedVersion *int64) domain.PartialUpdate {
	u := domain.PartialUpdate{ExpectedVersion: expectedVersion}

	identity := domain.IdentityUpdate{
		Name:        req.Name,
		Slug:        req.Slug,
		SKU:         req.SKU,
		ClearSKU:    req.ClearSKU,
		Description: req.Description,
		Summary:     req.Summary,
		Model:       req.Model,
	}
	if identity != (domain.IdentityUpdate{}) {
		u.Identity = &identity
	}

	pricing := domain.PricingUpdate{
		Price:               req.Price,
		CompareAtPrice:      req.CompareAtPrice,
		ClearCompareAtPrice: req.ClearCompareAtPrice,
		Currency:            req.Currency,
	}
	if pricing != (domain.PricingUpdate{}) {
		u.Pricing = &pricing
	}

	inventory := domain.InventoryUpdate{
		Stock:           req.Stock,
		IsAvailable:     req.IsAvailable,
		Condition:       req.Condition,
		Dimensions:      req.Dimensions,
		ClearDimensions: req.ClearDimensions,
	}
	if inventory != (domain.InventoryUpdate{}) {
		u.Inventory = &inventory
	}

	if req.BrandID != nil || req.ClearBrand || req.CategoryIDs != nil {
		u.Classification = &domain.ClassificationUpdate{
			BrandID:     req.BrandID,
			ClearBrand:  req.ClearBrand,
			CategoryIDs: req.CategoryIDs,
		}
	}

	if req.Images != nil || req.Attributes != nil || req.Variants != nil ||
		req.HighlightedFeatures != nil || req.Tags != nil {
		u.Content = &domain.ContentUpdate{
			Images:              req.Images,
			Attributes:          req.Attributes,
			Variants:            req.Variants,
			HighlightedFeatures: req.HighlightedFeatures,
			Tags:                req.Tags,
		}
	}

	return u
}

// ProductResponse represents product data returned to clients
type ProductResponse struct {
	ID                  uuid.UUID          `json:"id"`
	Slug                string             `json:"slug"`
	SKU                 string             `json:"sku,omitempty"`
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	Summary             string             `json:"summary,omitempty"`
	Model               string             `json:"model,omitempty"`
	Price               decimal.Decimal    `json:"price"`
	CompareAtPrice      *decimal.Decimal   `json:"compare_at_price,omitempty"`
	Currency            string             `json:"currency"`
	Stock               int                `json:"stock"`
	IsAvailable         bool               `json:"is_available"`
	Condition           string             `json:"condition"`
	Dimensions          *domain.Dimensions `json:"dimensions,omitempty"`
	BrandID             *uuid.UUID         `json:"brand_id,omitempty"`
	CategoryIDs         []uuid.UUID        `json:"category_ids"`
	MainImage           *domain.Image      `json:"main_image,omitempty"`
	Images              []domain.Image     `json:"images"`
	Attributes          []domain.Attribute `json:"attributes"`
	Variants            []domain.Variant   `json:"variants"`
	HighlightedFeatures []string           `json:"highlighted_features"`
	Tags                []string           `json:"tags"`
	Version             int64              `json:"version"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// ProductListResponse is one page of search results
type ProductListResponse struct {
	Items  []ProductResponse `json:"items"`
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	s := p.State()
	resp := ProductResponse{
		ID:                  s.ID,
		Slug:                s.Slug.String(),
		SKU:                 s.SKU.String(),
		Name:                s.Name,
		Description:         s.Description,
		Summary:             s.Summary,
		Model:               s.Model,
		Price:               s.Price,
		CompareAtPrice:      s.CompareAtPrice,
		Currency:            s.Currency,
		Stock:               s.Stock,
		IsAvailable:         s.IsAvailable,
		Condition:           string(s.Condition),
		Dimensions:          s.Dimensions,
		BrandID:             s.BrandID,
		CategoryIDs:         nonNil(s.CategoryIDs),
		Images:              nonNil(s.Images),
		Attributes:          nonNil(s.Attributes),
		Variants:            nonNil(s.Variants),
		HighlightedFeatures: nonNil(s.HighlightedFeatures),
		Tags:                nonNil(s.Tags),
		Version:             s.Version,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	if img, ok := p.MainImage(); ok {
		resp.MainImage = &img
	}
	return resp
}

// nonNil keeps empty collections encoded as [] instead of null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
