package memory

import (
	"context"
	"sort"
	"strings"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
)

type categoryRepository struct {
	session *session
}

func checkCategory(c *catalog, category *domain.Category) error {
	for id, other := range c.categories {
		if id != category.ID && other.Slug == category.Slug {
			return domain.NewValidationError("slug", "already in use", category.Slug.String())
		}
	}
	if category.ParentID != nil {
		if _, ok := c.categories[*category.ParentID]; !ok {
			return domain.NewReferentialIntegrityError("parent_id", "category", category.ParentID.String())
		}
	}
	return nil
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return r.session.write(ctx, func(c *catalog) error {
		if err := checkCategory(c, category); err != nil {
			return err
		}
		c.categories[category.ID] = *category
		return nil
	})
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	return r.session.write(ctx, func(c *catalog) error {
		if _, ok := c.categories[category.ID]; !ok {
			return domain.NewNotFoundError("category", category.ID.String())
		}
		if err := checkCategory(c, category); err != nil {
			return err
		}
		c.categories[category.ID] = *category
		return nil
	})
}

// Delete removes a category; children become roots and product links are dropped
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.session.write(ctx, func(c *catalog) error {
		if _, ok := c.categories[id]; !ok {
			return nil
		}
		delete(c.categories, id)
		deleted = true

		for childID, child := range c.categories {
			if child.ParentID != nil && *child.ParentID == id {
				child.ParentID = nil
				c.categories[childID] = child
			}
		}
		for productID, p := range c.products {
			if !p.HasCategory(id) {
				continue
			}
			remaining := make([]uuid.UUID, 0, len(p.CategoryIDs()))
			for _, cid := range p.CategoryIDs() {
				if cid != id {
					remaining = append(remaining, cid)
				}
			}
			next := p.Clone()
			if err := next.UpdateClassification(domain.ClassificationUpdate{CategoryIDs: &remaining}); err != nil {
				return err
			}
			c.products[productID] = next
		}
		return nil
	})
	return deleted, err
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	var out *domain.Category
	err := r.session.read(ctx, func(c *catalog) error {
		category, ok := c.categories[id]
		if !ok {
			return domain.NewNotFoundError("category", id.String())
		}
		out = &category
		return nil
	})
	return out, err
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	return r.list(ctx, func(domain.Category) bool { return true })
}

func (r *categoryRepository) ListByParent(ctx context.Context, parentID *uuid.UUID) ([]*domain.Category, error) {
	return r.list(ctx, func(category domain.Category) bool {
		if parentID == nil {
			return category.ParentID == nil
		}
		return category.ParentID != nil && *category.ParentID == *parentID
	})
}

func (r *categoryRepository) list(ctx context.Context, keep func(domain.Category) bool) ([]*domain.Category, error) {
	out := []*domain.Category{}
	err := r.session.read(ctx, func(c *catalog) error {
		for _, category := range c.categories {
			if keep(category) {
				category := category
				out = append(out, &category)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r *categoryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.session.read(ctx, func(c *catalog) error {
		_, ok = c.categories[id]
		return nil
	})
	return ok, err
}

func (r *categoryRepository) SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error) {
	var taken bool
	err := r.session.read(ctx, func(c *catalog) error {
		for id, category := range c.categories {
			if id != excludeID && category.Slug == slug {
				taken = true
				break
			}
		}
		return nil
	})
	return taken, err
}

type brandRepository struct {
	session *session
}

func checkBrand(c *catalog, brand *domain.Brand) error {
	for id, other := range c.brands {
		if id == brand.ID {
			continue
		}
		if strings.EqualFold(other.Name, brand.Name) {
			return domain.NewValidationError("name", "already in use", brand.Name)
		}
		if other.Slug == brand.Slug {
			return domain.NewValidationError("slug", "already in use", brand.Slug.String())
		}
	}
	return nil
}

func (r *brandRepository) Create(ctx context.Context, brand *domain.Brand) error {
	return r.session.write(ctx, func(c *catalog) error {
		if err := checkBrand(c, brand); err != nil {
			return err
		}
		c.brands[brand.ID] = *brand
		return nil
	})
}

func (r *brandRepository) Update(ctx context.Context, brand *domain.Brand) error {
	return r.session.write(ctx, func(c *catalog) error {
		if _, ok := c.brands[brand.ID]; !ok {
			return domain.NewNotFoundError("brand", brand.ID.String())
		}
		if err := checkBrand(c, brand); err != nil {
			return err
		}
		c.brands[brand.ID] = *brand
		return nil
	})
}

// Delete removes a brand; products keep existing without a brand
func (r *brandRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.session.write(ctx, func(c *catalog) error {
		if _, ok := c.brands[id]; !ok {
			return nil
		}
		delete(c.brands, id)
		deleted = true

		for productID, p := range c.products {
			if b := p.BrandID(); b == nil || *b != id {
				continue
			}
			next := p.Clone()
			if err := next.UpdateClassification(domain.ClassificationUpdate{ClearBrand: true}); err != nil {
				return err
			}
			c.products[productID] = next
		}
		return nil
	})
	return deleted, err
}

func (r *brandRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	var out *domain.Brand
	err := r.session.read(ctx, func(c *catalog) error {
		brand, ok := c.brands[id]
		if !ok {
			return domain.NewNotFoundError("brand", id.String())
		}
		out = &brand
		return nil
	})
	return out, err
}

func (r *brandRepository) List(ctx context.Context) ([]*domain.Brand, error) {
	out := []*domain.Brand{}
	err := r.session.read(ctx, func(c *catalog) error {
		for _, brand := range c.brands {
			brand := brand
			out = append(out, &brand)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r *brandRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.session.read(ctx, func(c *catalog) error {
		_, ok = c.brands[id]
		return nil
	})
	return ok, err
}

func (r *brandRepository) NameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	var taken bool
	err := r.session.read(ctx, func(c *catalog) error {
		for id, brand := range c.brands {
			if id != excludeID && strings.EqualFold(brand.Name, name) {
				taken = true
				break
			}
		}
		return nil
	})
	return taken, err
}

func (r *brandRepository) SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error) {
	var taken bool
	err := r.session.read(ctx, func(c *catalog) error {
		for id, brand := range c.brands {
			if id != excludeID && brand.Slug == slug {
				taken = true
				break
			}
		}
		return nil
	})
	return taken, err
}
