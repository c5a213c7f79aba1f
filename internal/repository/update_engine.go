package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
)

// Guard answers the store lookups that update groups depend on
type Guard interface {
	SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error)
	SKUTaken(ctx context.Context, sku domain.SKU, excludeID uuid.UUID) (bool, error)
	ExistsBrand(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsCategory(ctx context.Context, id uuid.UUID) (bool, error)
}

// groupHandler applies one field group to a working copy of the product
type groupHandler func(ctx context.Context, g Guard, p *domain.Product, u domain.PartialUpdate) error

// updateGroups run in this order; the first failure aborts the update
var updateGroups = []struct {
	name  string
	apply groupHandler
}{
	{"identity", applyIdentity},
	{"pricing", applyPricing},
	{"inventory", applyInventory},
	{"classification", applyClassification},
	{"content", applyContent},
}

// ApplyUpdateGroups applies u to a copy of current. current is never
// modified. The boolean result is false when u carries no change, in which
// case current itself is returned.
func ApplyUpdateGroups(ctx context.Context, g Guard, current *domain.Product, u domain.PartialUpdate, now time.Time) (*domain.Product, bool, error) {
	if u.ExpectedVersion != nil && *u.ExpectedVersion != current.Version() {
		return nil, false, domain.NewConflictError("product", current.ID().String(),
			fmt.Sprintf("expected version %d, stored version is %d", *u.ExpectedVersion, current.Version()))
	}
	if u.IsEmpty() {
		return current, false, nil
	}

	next := current.Clone()
	for _, group := range updateGroups {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if err := group.apply(ctx, g, next, u); err != nil {
			return nil, false, err
		}
	}
	next.Touch(now)
	return next, true, nil
}

func applyIdentity(ctx context.Context, g Guard, p *domain.Product, u domain.PartialUpdate) error {
	if u.Identity == nil {
		return nil
	}
	oldSlug, oldSKU := p.Slug(), p.SKU()
	if err := p.UpdateIdentity(*u.Identity); err != nil {
		return err
	}

	if p.Slug() != oldSlug {
		taken, err := g.SlugTaken(ctx, p.Slug(), p.ID())
		if err != nil {
			return fmt.Errorf("failed to check slug: %w", err)
		}
		if taken {
			return domain.NewValidationError("slug", "already in use", p.Slug().String())
		}
	}
	if p.SKU() != "" && p.SKU() != oldSKU {
		taken, err := g.SKUTaken(ctx, p.SKU(), p.ID())
		if err != nil {
			return fmt.Errorf("failed to check sku: %w", err)
		}
		if taken {
			return domain.NewValidationError("sku", "already in use", p.SKU().String())
		}
	}
	return nil
}

func applyPricing(_ context.Context, _ Guard, p *domain.Product, u domain.PartialUpdate) error {
	if u.Pricing == nil {
		return nil
	}
	return p.UpdatePricing(*u.Pricing)
}

func applyInventory(_ context.Context, _ Guard, p *domain.Product, u domain.PartialUpdate) error {
	if u.Inventory == nil {
		return nil
	}
	return p.UpdateInventory(*u.Inventory)
}

func applyClassification(ctx context.Context, g Guard, p *domain.Product, u domain.PartialUpdate) error {
	c := u.Classification
	if c == nil {
		return nil
	}

	if c.BrandID != nil && !c.ClearBrand {
		ok, err := g.ExistsBrand(ctx, *c.BrandID)
		if err != nil {
			return fmt.Errorf("failed to check brand: %w", err)
		}
		if !ok {
			return domain.NewReferentialIntegrityError("brand_id", "brand", c.BrandID.String())
		}
	}
	if c.CategoryIDs != nil {
		for i, id := range *c.CategoryIDs {
			ok, err := g.ExistsCategory(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to check category: %w", err)
			}
			if !ok {
				return domain.NewReferentialIntegrityError("category_ids["+strconv.Itoa(i)+"]", "category", id.String())
			}
		}
	}
	return p.UpdateClassification(*c)
}

func applyContent(_ context.Context, _ Guard, p *domain.Product, u domain.PartialUpdate) error {
	if u.Content == nil {
		return nil
	}
	return p.UpdateContent(*u.Content)
}

// CheckReferences verifies that every brand and category a product points to exists
func CheckReferences(ctx context.Context, g Guard, p *domain.Product) error {
	if id := p.BrandID(); id != nil {
		ok, err := g.ExistsBrand(ctx, *id)
		if err != nil {
			return fmt.Errorf("failed to check brand: %w", err)
		}
		if !ok {
			return domain.NewReferentialIntegrityError("brand_id", "brand", id.String())
		}
	}
	for i, id := range p.CategoryIDs() {
		ok, err := g.ExistsCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check category: %w", err)
		}
		if !ok {
			return domain.NewReferentialIntegrityError("category_ids["+strconv.Itoa(i)+"]", "category", id.String())
		}
	}
	return nil
}
