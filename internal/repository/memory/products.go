package memory

import (
	"context"
	"fmt"
	"sort"

	"product-catalog/internal/domain"
	"product-catalog/internal/repository"

	"github.com/google/uuid"
)

type productRepository struct {
	session *session
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var out *domain.Product
	err := r.session.read(ctx, func(c *catalog) error {
		p, ok := c.products[id]
		if !ok {
			return domain.NewNotFoundError("product", id.String())
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *productRepository) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Product, error) {
	var out *domain.Product
	err := r.session.read(ctx, func(c *catalog) error {
		for _, p := range c.products {
			if p.Slug() == slug {
				out = p.Clone()
				return nil
			}
		}
		return domain.NewNotFoundError("product", string(slug))
	})
	return out, err
}

func (r *productRepository) Search(ctx context.Context, filter domain.ProductFilter, page domain.Pagination, key domain.SortKey) ([]*domain.Product, int, error) {
	var (
		out   []*domain.Product
		total int
	)
	err := r.session.read(ctx, func(c *catalog) error {
		matched := make([]*domain.Product, 0, len(c.products))
		for _, p := range c.products {
			if filter.Matches(p) {
				matched = append(matched, p)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return key.Less(matched[i], matched[j]) })

		total = len(matched)
		start, end := page.Window(total)
		out = make([]*domain.Product, 0, end-start)
		for _, p := range matched[start:end] {
			out = append(out, p.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// checkUnique mirrors the unique indexes on slug and sku
func checkUnique(ctx context.Context, g guard, p *domain.Product) error {
	if taken, _ := g.SlugTaken(ctx, p.Slug(), p.ID()); taken {
		return domain.NewValidationError("slug", "already in use", p.Slug().String())
	}
	if taken, _ := g.SKUTaken(ctx, p.SKU(), p.ID()); taken {
		return domain.NewValidationError("sku", "already in use", p.SKU().String())
	}
	return nil
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	var out *domain.Product
	err := r.session.write(ctx, func(c *catalog) error {
		g := guard{c: c}
		if err := checkUnique(ctx, g, product); err != nil {
			return err
		}
		if err := repository.CheckReferences(ctx, g, product); err != nil {
			return err
		}

		stored, exists := c.products[product.ID()]
		if !exists {
			out = product.Clone()
			c.products[product.ID()] = out.Clone()
			return nil
		}
		if stored.Version() != product.Version() {
			return domain.NewConflictError("product", product.ID().String(),
				fmt.Sprintf("expected version %d, stored version is %d", product.Version(), stored.Version()))
		}
		out = product.NextVersion()
		c.products[product.ID()] = out.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepository) ApplyPartialUpdate(ctx context.Context, id uuid.UUID, u domain.PartialUpdate) (*domain.Product, error) {
	var out *domain.Product
	err := r.session.write(ctx, func(c *catalog) error {
		current, ok := c.products[id]
		if !ok {
			return domain.NewNotFoundError("product", id.String())
		}

		next, changed, err := repository.ApplyUpdateGroups(ctx, guard{c: c}, current, u, r.session.store.now())
		if err != nil {
			return err
		}
		if !changed {
			out = current.Clone()
			return nil
		}

		next = next.NextVersion()
		c.products[id] = next
		out = next.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.session.write(ctx, func(c *catalog) error {
		if _, ok := c.products[id]; ok {
			delete(c.products, id)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

func (r *productRepository) ExistsCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.session.read(ctx, func(c *catalog) error {
		ok, _ = guard{c: c}.ExistsCategory(ctx, id)
		return nil
	})
	return ok, err
}

func (r *productRepository) ExistsBrand(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.session.read(ctx, func(c *catalog) error {
		ok, _ = guard{c: c}.ExistsBrand(ctx, id)
		return nil
	})
	return ok, err
}

func (r *productRepository) SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error) {
	var taken bool
	err := r.session.read(ctx, func(c *catalog) error {
		taken, _ = guard{c: c}.SlugTaken(ctx, slug, excludeID)
		return nil
	})
	return taken, err
}

func (r *productRepository) SKUTaken(ctx context.Context, sku domain.SKU, excludeID uuid.UUID) (bool, error) {
	var taken bool
	err := r.session.read(ctx, func(c *catalog) error {
		taken, _ = guard{c: c}.SKUTaken(ctx, sku, excludeID)
		return nil
	})
	return taken, err
}
