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

// BrandService defines the interface for brand use cases
type BrandService interface {
	Create(ctx context.Context, draft domain.BrandDraft) (*domain.Brand, error)
	Update(ctx context.Context, id uuid.UUID, draft domain.BrandDraft) (*domain.Brand, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	List(ctx context.Context) ([]*domain.Brand, error)
}

type brandService struct {
	uow       repository.UnitOfWork
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewBrandService creates a new instance of BrandService
func NewBrandService(uow repository.UnitOfWork, publisher events.Publisher, logger *zap.Logger) BrandService {
	return &brandService{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
		now:       repository.SystemClock,
	}
}

func (s *brandService) Create(ctx context.Context, draft domain.BrandDraft) (*domain.Brand, error) {
	brand, err := domain.NewBrand(draft, s.now())
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := checkBrandUnique(ctx, repos.Brands, brand); err != nil {
			return err
		}
		return repos.Brands.Create(ctx, brand)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewEvent(domain.BrandCreated, brand.ID, map[string]interface{}{
		"name": brand.Name,
	}, s.now()))
	return brand, nil
}

func (s *brandService) Update(ctx context.Context, id uuid.UUID, draft domain.BrandDraft) (*domain.Brand, error) {
	var brand *domain.Brand
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		brand, err = repos.Brands.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := brand.Apply(draft, s.now()); err != nil {
			return err
		}
		if err := checkBrandUnique(ctx, repos.Brands, brand); err != nil {
			return err
		}
		return repos.Brands.Update(ctx, brand)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewEvent(domain.BrandUpdated, id, nil, s.now()))
	return brand, nil
}

func checkBrandUnique(ctx context.Context, repo repository.BrandRepository, b *domain.Brand) error {
	taken, err := repo.NameTaken(ctx, b.Name, b.ID)
	if err != nil {
		return fmt.Errorf("failed to check brand name: %w", err)
	}
	if taken {
		return domain.NewValidationError("name", "already in use", b.Name)
	}
	taken, err = repo.SlugTaken(ctx, b.Slug, b.ID)
	if err != nil {
		return fmt.Errorf("failed to check brand slug: %w", err)
	}
	if taken {
		return domain.NewValidationError("slug", "already in use", b.Slug.String())
	}
	return nil
}

// Delete removes the brand; its products remain without a brand
func (s *brandService) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		deleted, err = repos.Brands.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NewNotFoundError("brand", id.String())
	}

	s.publish(ctx, domain.NewEvent(domain.BrandDeleted, id, nil, s.now()))
	return nil
}

func (s *brandService) Get(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	return s.uow.Repositories().Brands.FindByID(ctx, id)
}

func (s *brandService) List(ctx context.Context) ([]*domain.Brand, error) {
	return s.uow.Repositories().Brands.List(ctx)
}

func (s *brandService) publish(ctx context.Context, e domain.Event) {
	publish(ctx, s.publisher, logger.FromContext(ctx, s.logger), e)
}
