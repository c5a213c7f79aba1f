package repository

import (
	"context"
	"database/sql"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ProductRepository defines the interface for product data access.
// Lookups return a domain.NotFoundError when nothing matches.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Product, error)
	Search(ctx context.Context, filter domain.ProductFilter, page domain.Pagination, sort domain.SortKey) ([]*domain.Product, int, error)
	// Save inserts a new product or fully replaces a stored one. A replace
	// must carry the stored version and returns the product with the next one.
	Save(ctx context.Context, product *domain.Product) (*domain.Product, error)
	ApplyPartialUpdate(ctx context.Context, id uuid.UUID, update domain.PartialUpdate) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsCategory(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsBrand(ctx context.Context, id uuid.UUID) (bool, error)
	SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error)
	SKUTaken(ctx context.Context, sku domain.SKU, excludeID uuid.UUID) (bool, error)
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	ListByParent(ctx context.Context, parentID *uuid.UUID) ([]*domain.Category, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error)
}

// BrandRepository defines the interface for brand data access
type BrandRepository interface {
	Create(ctx context.Context, brand *domain.Brand) error
	Update(ctx context.Context, brand *domain.Brand) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	List(ctx context.Context) ([]*domain.Brand, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	NameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error)
}

// Repositories bundles the repositories bound to one connection or transaction
type Repositories struct {
	Products   ProductRepository
	Categories CategoryRepository
	Brands     BrandRepository
}

// UnitOfWork runs use cases atomically. Repositories passed to fn are bound
// to the transaction; they must not be used after fn returns.
type UnitOfWork interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
