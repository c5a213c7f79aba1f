package service

import (
	"context"
	"fmt"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/events"
	"product-catalog/internal/logger"
	"product-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryService defines the interface for category use cases
type CategoryService interface {
	Create(ctx context.Context, draft domain.CategoryDraft) (*domain.Category, error)
	Update(ctx context.Context, id uuid.UUID, draft domain.CategoryDraft) (*domain.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	// List returns every category, or only the children of parentID when rootsOnly
	// or a parent is given
	List(ctx context.Context, parentID *uuid.UUID, rootsOnly bool) ([]*domain.Category, error)
	Tree(ctx context.Context) ([]domain.CategoryNode, error)
	Descendants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type categoryService struct {
	uow       repository.UnitOfWork
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(uow repository.UnitOfWork, publisher events.Publisher, logger *zap.Logger) CategoryService {
	return &categoryService{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
		now:       repository.SystemClock,
	}
}

func (s *categoryService) Create(ctx context.Context, draft domain.CategoryDraft) (*domain.Category, error) {
	category, err := domain.NewCategory(draft, s.now())
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := checkCategoryRefs(ctx, repos.Categories, category); err != nil {
			return err
		}
		return repos.Categories.Create(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewEvent(domain.CategoryCreated, category.ID, map[string]interface{}{
		"slug": category.Slug.String(),
	}, s.now()))
	return category, nil
}

// Update replaces the category's fields. Moving a category below one of its
// own descendants is rejected.
func (s *categoryService) Update(ctx context.Context, id uuid.UUID, draft domain.CategoryDraft) (*domain.Category, error) {
	var category *domain.Category
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		category, err = repos.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := category.Apply(draft, s.now()); err != nil {
			return err
		}

		if category.ParentID != nil {
			all, err := repos.Categories.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			for _, d := range domain.Descendants(all, id) {
				if d == *category.ParentID {
					return domain.NewValidationError("parent_id", "must not be a descendant of the category", d.String())
				}
			}
		}
		if err := checkCategoryRefs(ctx, repos.Categories, category); err != nil {
			return err
		}
		return repos.Categories.Update(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewEvent(domain.CategoryUpdated, id, nil, s.now()))
	return category, nil
}

func checkCategoryRefs(ctx context.Context, repo repository.CategoryRepository, c *domain.Category) error {
	if c.ParentID != nil {
		ok, err := repo.Exists(ctx, *c.ParentID)
		if err != nil {
			return fmt.Errorf("failed to check parent category: %w", err)
		}
		if !ok {
			return domain.NewReferentialIntegrityError("parent_id", "category", c.ParentID.String())
		}
	}
	taken, err := repo.SlugTaken(ctx, c.Slug, c.ID)
	if err != nil {
		return fmt.Errorf("failed to check category slug: %w", err)
	}
	if taken {
		return domain.NewValidationError("slug", "already in use", c.Slug.String())
	}
	return nil
}

// Delete removes the category; its children become roots and products lose the link
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		deleted, err = repos.Categories.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NewNotFoundError("category", id.String())
	}

	s.publish(ctx, domain.NewEvent(domain.CategoryDeleted, id, nil, s.now()))
	return nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.uow.Repositories().Categories.FindByID(ctx, id)
}

func (s *categoryService) List(ctx context.Context, parentID *uuid.UUID, rootsOnly bool) ([]*domain.Category, error) {
	repo := s.uow.Repositories().Categories
	if parentID != nil || rootsOnly {
		return repo.ListByParent(ctx, parentID)
	}
	return repo.List(ctx)
}

func (s *categoryService) Tree(ctx context.Context) ([]domain.CategoryNode, error) {
	all, err := s.uow.Repositories().Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.BuildCategoryTree(all), nil
}

func (s *categoryService) Descendants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	repo := s.uow.Repositories().Categories
	if _, err := repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	all, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Descendants(all, id), nil
}

func (s *categoryService) publish(ctx context.Context, e domain.Event) {
	publish(ctx, s.publisher, logger.FromContext(ctx, s.logger), e)
}
