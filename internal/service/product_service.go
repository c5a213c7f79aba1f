package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/events"
	"product-catalog/internal/logger"
	"product-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxSlugSuffix bounds the "-2", "-3", ... search for a free derived slug
const maxSlugSuffix = 100

// ProductService defines the interface for product use cases
type ProductService interface {
	Create(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error)
	UpdatePartial(ctx context.Context, id uuid.UUID, update domain.PartialUpdate) (*domain.Product, error)
	Search(ctx context.Context, params domain.FilterParams, page domain.Pagination, sort domain.SortKey) ([]*domain.Product, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
}

type productService struct {
	uow             repository.UnitOfWork
	publisher       events.Publisher
	logger          *zap.Logger
	defaultCurrency string
	now             func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	uow repository.UnitOfWork,
	publisher events.Publisher,
	logger *zap.Logger,
	defaultCurrency string,
) ProductService {
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &productService{
		uow:             uow,
		publisher:       publisher,
		logger:          logger,
		defaultCurrency: defaultCurrency,
		now:             repository.SystemClock,
	}
}

// Create validates the draft and stores a new product. A slug derived from
// the name is made unique with a numeric suffix; an explicit slug must be free.
func (s *productService) Create(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error) {
	if strings.TrimSpace(draft.Currency) == "" {
		draft.Currency = s.defaultCurrency
	}
	derived := strings.TrimSpace(draft.Slug) == ""

	product, err := domain.NewProduct(draft, s.now())
	if err != nil {
		return nil, err
	}

	var saved *domain.Product
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := s.claimSlug(ctx, repos.Products, product, derived); err != nil {
			return err
		}
		if sku := product.SKU(); sku != "" {
			taken, err := repos.Products.SKUTaken(ctx, sku, product.ID())
			if err != nil {
				return fmt.Errorf("failed to check sku: %w", err)
			}
			if taken {
				return domain.NewValidationError("sku", "already in use", sku.String())
			}
		}
		if err := repository.CheckReferences(ctx, repos.Products, product); err != nil {
			return err
		}

		saved, err = repos.Products.Save(ctx, product)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewEvent(domain.ProductCreated, saved.ID(), map[string]interface{}{
		"slug":    saved.Slug().String(),
		"version": saved.Version(),
	}, s.now()))
	return saved, nil
}

func (s *productService) claimSlug(ctx context.Context, repo repository.ProductRepository, p *domain.Product, derived bool) error {
	base := p.Slug()
	for n := 1; n <= maxSlugSuffix; n++ {
		candidate := base.WithSuffix(n)
		taken, err := repo.SlugTaken(ctx, candidate, p.ID())
		if err != nil {
			return fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			if candidate == base {
				return nil
			}
			slug := candidate.String()
			return p.UpdateIdentity(domain.IdentityUpdate{Slug: &slug})
		}
		if !derived {
			return domain.NewValidationError("slug", "already in use", base.String())
		}
	}
	return domain.NewValidationError("slug", "no free variant of the derived slug", base.String())
}

// UpdatePartial applies the supplied field groups atomically
func (s *productService) UpdatePartial(ctx context.Context, id uuid.UUID, update domain.PartialUpdate) (*domain.Product, error) {
	var updated *domain.Product
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		updated, err = repos.Products.ApplyPartialUpdate(ctx, id, update)
		return err
	})
	if err != nil {
		logger.FromContext(ctx, s.logger).Debug("Product update rejected",
			zap.String("product_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if !update.IsEmpty() {
		s.publish(ctx, domain.NewEvent(domain.ProductUpdated, id, map[string]interface{}{
			"version": updated.Version(),
		}, s.now()))
	}
	return updated, nil
}

// Search filters, orders and pages the catalog. With IncludeSubcategories the
// category criterion also matches every descendant of the requested category.
func (s *productService) Search(ctx context.Context, params domain.FilterParams, page domain.Pagination, sort domain.SortKey) ([]*domain.Product, int, error) {
	repos := s.uow.Repositories()

	if params.CategoryID != nil && params.IncludeSubcategories {
		categories, err := repos.Categories.List(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to expand category: %w", err)
		}
		params.SubcategoryIDs = domain.Descendants(categories, *params.CategoryID)
	}

	filter, err := params.Build()
	if err != nil {
		return nil, 0, err
	}
	return repos.Products.Search(ctx, filter, page, sort)
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		deleted, err = repos.Products.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NewNotFoundError("product", id.String())
	}

	s.publish(ctx, domain.NewEvent(domain.ProductDeleted, id, nil, s.now()))
	return nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.uow.Repositories().Products.FindByID(ctx, id)
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	parsed, err := domain.ParseSlug(slug)
	if err != nil {
		return nil, domain.NewNotFoundError("product", slug)
	}
	return s.uow.Repositories().Products.FindBySlug(ctx, parsed)
}

// publish runs after commit; a delivery failure is logged, never returned
func (s *productService) publish(ctx context.Context, e domain.Event) {
	publish(ctx, s.publisher, logger.FromContext(ctx, s.logger), e)
}

func publish(ctx context.Context, publisher events.Publisher, log *zap.Logger, e domain.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, e); err != nil {
		log.Warn("Failed to publish catalog event",
			zap.Error(err),
			zap.String("type", string(e.Type)),
			zap.String("aggregate_id", e.AggregateID.String()),
		)
	}
}
