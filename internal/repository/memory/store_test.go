package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newProduct(t *testing.T, d domain.ProductDraft) *domain.Product {
	t.Helper()
	if d.Price.IsZero() {
		d.Price = decimal.NewFromInt(100)
	}
	p, err := domain.NewProduct(d, epoch)
	require.NoError(t, err)
	return p
}

func seed(t *testing.T, s *Store, d domain.ProductDraft) *domain.Product {
	t.Helper()
	saved, err := s.Repositories().Products.Save(context.Background(), newProduct(t, d))
	require.NoError(t, err)
	return saved
}

func TestSaveAndFind(t *testing.T) {
	s := NewStore()
	p := seed(t, s, domain.ProductDraft{Name: "Laptop HP Pavilion 15", SKU: "HP-15"})
	repos := s.Repositories()

	byID, err := repos.Products.FindByID(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.State(), byID.State())

	bySlug, err := repos.Products.FindBySlug(context.Background(), "laptop-hp-pavilion-15")
	require.NoError(t, err)
	assert.Equal(t, p.ID(), bySlug.ID())

	_, err = repos.Products.FindByID(context.Background(), uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestSave_UniqueSlugAndSKU(t *testing.T) {
	s := NewStore()
	seed(t, s, domain.ProductDraft{Name: "Mouse", SKU: "M-1"})

	_, err := s.Repositories().Products.Save(context.Background(), newProduct(t, domain.ProductDraft{Name: "Mouse"}))
	assert.Equal(t, []string{"slug"}, domain.ValidationFields(err))

	_, err = s.Repositories().Products.Save(context.Background(), newProduct(t, domain.ProductDraft{Name: "Other", SKU: "M-1"}))
	assert.Equal(t, []string{"sku"}, domain.ValidationFields(err))
}

func TestSave_StaleVersionConflicts(t *testing.T) {
	s := NewStore()
	repo := s.Repositories().Products
	original := seed(t, s, domain.ProductDraft{Name: "Versioned"})

	next, err := repo.Save(context.Background(), original)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Version())

	_, err = repo.Save(context.Background(), original)
	assert.True(t, domain.IsConflict(err))
}

func TestSave_MissingReferences(t *testing.T) {
	s := NewStore()
	brand := uuid.New()
	_, err := s.Repositories().Products.Save(context.Background(), newProduct(t, domain.ProductDraft{
		Name:    "Orphan",
		BrandID: &brand,
	}))
	assert.ErrorIs(t, err, domain.ErrReferentialIntegrity)
}

func TestApplyPartialUpdate_IsAtomic(t *testing.T) {
	s := NewStore().WithClock(func() time.Time { return epoch.Add(time.Hour) })
	repo := s.Repositories().Products
	p := seed(t, s, domain.ProductDraft{Name: "Atomic", Stock: 50})

	price := decimal.NewFromInt(80)
	missing := []uuid.UUID{uuid.New()}
	_, err := repo.ApplyPartialUpdate(context.Background(), p.ID(), domain.PartialUpdate{
		Pricing:        &domain.PricingUpdate{Price: &price},
		Classification: &domain.ClassificationUpdate{CategoryIDs: &missing},
	})
	require.Error(t, err)

	stored, err := repo.FindByID(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.State(), stored.State())
}

func TestApplyPartialUpdate_BumpsVersionAndTouches(t *testing.T) {
	later := epoch.Add(time.Hour)
	s := NewStore().WithClock(func() time.Time { return later })
	repo := s.Repositories().Products
	p := seed(t, s, domain.ProductDraft{Name: "Touched"})

	stock := 7
	updated, err := repo.ApplyPartialUpdate(context.Background(), p.ID(), domain.PartialUpdate{
		Inventory: &domain.InventoryUpdate{Stock: &stock},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock())
	assert.Equal(t, int64(2), updated.Version())
	assert.Equal(t, later, updated.UpdatedAt())
	assert.Equal(t, epoch, updated.CreatedAt())

	unchanged, err := repo.ApplyPartialUpdate(context.Background(), p.ID(), domain.PartialUpdate{})
	require.NoError(t, err)
	assert.Equal(t, updated.State(), unchanged.State())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	var created uuid.UUID
	err := s.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		p, err := repos.Products.Save(ctx, newProduct(t, domain.ProductDraft{Name: "Ghost"}))
		if err != nil {
			return err
		}
		created = p.ID()
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Repositories().Products.FindByID(context.Background(), created)
	assert.True(t, domain.IsNotFound(err))
}

func TestWithinTx_CancelledContextDiscardsWork(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	var created uuid.UUID
	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		p, err := repos.Products.Save(ctx, newProduct(t, domain.ProductDraft{Name: "Late"}))
		if err != nil {
			return err
		}
		created = p.ID()
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Repositories().Products.FindByID(context.Background(), created)
	assert.True(t, domain.IsNotFound(err))
}

func TestCategoryDelete_CascadesToChildrenAndProducts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repos := s.Repositories()

	parent, err := domain.NewCategory(domain.CategoryDraft{Name: "Computers"}, epoch)
	require.NoError(t, err)
	require.NoError(t, repos.Categories.Create(ctx, parent))
	child, err := domain.NewCategory(domain.CategoryDraft{Name: "Laptops", ParentID: &parent.ID}, epoch)
	require.NoError(t, err)
	require.NoError(t, repos.Categories.Create(ctx, child))

	p := seed(t, s, domain.ProductDraft{Name: "Linked", CategoryIDs: []uuid.UUID{parent.ID, child.ID}})

	deleted, err := repos.Categories.Delete(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	stored, err := repos.Products.FindByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{child.ID}, stored.CategoryIDs())

	roots, err := repos.Categories.ListByParent(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Nil(t, roots[0].ParentID)

	deleted, err = repos.Categories.Delete(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestBrandDelete_ClearsProducts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repos := s.Repositories()

	brand, err := domain.NewBrand(domain.BrandDraft{Name: "Lenovo"}, epoch)
	require.NoError(t, err)
	require.NoError(t, repos.Brands.Create(ctx, brand))

	dup, err := domain.NewBrand(domain.BrandDraft{Name: "LENOVO", Slug: "lenovo-2"}, epoch)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, domain.ValidationFields(repos.Brands.Create(ctx, dup)))

	p := seed(t, s, domain.ProductDraft{Name: "ThinkPad", BrandID: &brand.ID})

	deleted, err := repos.Brands.Delete(ctx, brand.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	stored, err := repos.Products.FindByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Nil(t, stored.BrandID())
}

// Feature: product-catalog, Property 5: Pagination is stable
// Validates: pages [0,N) and [N,2N) concatenate to page [0,2N)
func TestProperty_PaginationIsStable(t *testing.T) {
	s := NewStore()
	for i := 0; i < 30; i++ {
		// equal prices and timestamps force the id tie-break
		seed(t, s, domain.ProductDraft{
			Name:  fmt.Sprintf("Item %02d", i%7),
			Slug:  fmt.Sprintf("item-%02d", i),
			Price: decimal.NewFromInt(int64(10 * (i%4 + 1))),
			Stock: i % 3,
		})
	}
	repo := s.Repositories().Products

	keys := []domain.SortKey{
		domain.DefaultSort(),
		{Field: domain.SortByPrice},
		{Field: domain.SortByPrice, Descending: true},
		{Field: domain.SortByName},
		{Field: domain.SortByStock, Descending: true},
	}

	properties := gopter.NewProperties(nil)

	properties.Property("consecutive pages concatenate to the double page", prop.ForAll(
		func(n int, keyIdx int) bool {
			ctx := context.Background()
			key := keys[keyIdx]
			filter := domain.NewProductFilter()

			first, total, err := repo.Search(ctx, filter, domain.Pagination{Offset: 0, Limit: n}, key)
			if err != nil || total != 30 {
				return false
			}
			second, _, err := repo.Search(ctx, filter, domain.Pagination{Offset: n, Limit: n}, key)
			if err != nil {
				return false
			}
			both, _, err := repo.Search(ctx, filter, domain.Pagination{Offset: 0, Limit: 2 * n}, key)
			if err != nil {
				return false
			}

			joined := append(first, second...)
			if len(joined) != len(both) {
				return false
			}
			for i := range joined {
				if joined[i].ID() != both[i].ID() {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, len(keys)-1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSearch_OffsetBeyondTotal(t *testing.T) {
	s := NewStore()
	seed(t, s, domain.ProductDraft{Name: "Only"})

	items, total, err := s.Repositories().Products.Search(context.Background(),
		domain.NewProductFilter(), domain.Pagination{Offset: 10, Limit: 5}, domain.DefaultSort())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, items)
}
