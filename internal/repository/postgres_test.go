//go:build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"product-catalog/internal/database"
	"product-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "catalog"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(testDB, zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func resetTables(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(`TRUNCATE product_categories, products, categories, brands`)
	require.NoError(t, err)
}

func saveProduct(t *testing.T, repo ProductRepository, d domain.ProductDraft) *domain.Product {
	t.Helper()
	p, err := domain.NewProduct(d, SystemClock())
	require.NoError(t, err)
	saved, err := repo.Save(context.Background(), p)
	require.NoError(t, err)
	return saved
}

// Feature: product-catalog, Property 10: Saving a product preserves its attributes
// Validates: save then findById round trip
func TestProperty_ProductSavePreservesAttributes(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repos := NewRepositories(testDB)

	category, err := domain.NewCategory(domain.CategoryDraft{Name: "Laptops"}, SystemClock())
	require.NoError(t, err)
	require.NoError(t, repos.Categories.Create(ctx, category))
	brand, err := domain.NewBrand(domain.BrandDraft{Name: "HP"}, SystemClock())
	require.NoError(t, err)
	require.NoError(t, repos.Brands.Create(ctx, brand))

	properties := gopter.NewProperties(nil)

	properties.Property("save then find returns the same product", prop.ForAll(
		func(name string, cents int64, stock int, sku string) bool {
			compareAt := decimal.New(cents+500, -2)
			product, err := domain.NewProduct(domain.ProductDraft{
				Name:           name,
				Slug:           name + "-" + uuid.NewString(),
				SKU:            sku + "-" + uuid.NewString()[:8],
				Price:          decimal.New(cents, -2),
				CompareAtPrice: &compareAt,
				Stock:          stock,
				BrandID:        &brand.ID,
				CategoryIDs:    []uuid.UUID{category.ID},
				Tags:           []string{"Laptop", "hp"},
				Images:         []domain.Image{{URL: "https://cdn.example.com/a.jpg", IsMain: true}},
				Attributes:     []domain.Attribute{{Name: "RAM", Value: "16GB", GroupName: "Memory"}},
				Variants:       []domain.Variant{{SKU: "V-" + domain.SKU(sku), Name: "Silver", Price: decimal.NewFromInt(10)}},
			}, SystemClock())
			if err != nil {
				t.Logf("FAIL: Failed to build product: %v", err)
				return false
			}

			if _, err := repos.Products.Save(ctx, product); err != nil {
				t.Logf("FAIL: Failed to save product: %v", err)
				return false
			}

			retrieved, err := repos.Products.FindByID(ctx, product.ID())
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			want, got := product.State(), retrieved.State()
			if !want.Price.Equal(got.Price) || !want.CompareAtPrice.Equal(*got.CompareAtPrice) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", want.Price, got.Price)
				return false
			}
			want.Price, got.Price = decimal.Zero, decimal.Zero
			want.CompareAtPrice, got.CompareAtPrice = nil, nil
			want.Variants[0].Price, got.Variants[0].Price = decimal.Zero, decimal.Zero

			if !assert.ObjectsAreEqual(want, got) {
				t.Logf("FAIL: state mismatch.\nExpected %+v\ngot      %+v", want, got)
				return false
			}
			return true
		},
		gen.RegexMatch(`[A-Za-z][A-Za-z0-9 ]{2,40}`),
		gen.Int64Range(1, 99_999_999),
		gen.IntRange(0, 1000),
		gen.RegexMatch(`[A-Z]{2,5}[0-9]{1,5}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: product-catalog, Property 5: Pagination is stable
// Validates: pages [0,N) and [N,2N) partition the first 2N results
func TestProperty_SearchPaginationIsStable(t *testing.T) {
	resetTables(t)
	repo := NewProductRepository(testDB)

	for i := 0; i < 25; i++ {
		saveProduct(t, repo, domain.ProductDraft{
			Name:  fmt.Sprintf("Paged %02d", i),
			Price: decimal.NewFromInt(int64(10 * (i%5 + 1))),
			Stock: i % 3,
			Tags:  []string{"paged"},
		})
	}

	filter, err := domain.FilterParams{Tags: []string{"paged"}}.Build()
	require.NoError(t, err)
	sorts := []domain.SortKey{
		domain.DefaultSort(),
		{Field: domain.SortByPrice},
		{Field: domain.SortByStock, Descending: true},
		{Field: domain.SortByName},
	}

	properties := gopter.NewProperties(nil)

	properties.Property("consecutive pages concatenate to the double page", prop.ForAll(
		func(n int, sortIdx int) bool {
			ctx := context.Background()
			key := sorts[sortIdx]

			first, total, err := repo.Search(ctx, filter, domain.Pagination{Offset: 0, Limit: n}, key)
			if err != nil || total != 25 {
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
		gen.IntRange(1, 15),
		gen.IntRange(0, len(sorts)-1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPostgres_SearchFilters(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repos := NewRepositories(testDB)

	category, err := domain.NewCategory(domain.CategoryDraft{Name: "Phones"}, SystemClock())
	require.NoError(t, err)
	require.NoError(t, repos.Categories.Create(ctx, category))

	saveProduct(t, repos.Products, domain.ProductDraft{
		Name: "Gaming Laptop", Price: decimal.NewFromInt(1500), Stock: 3, Tags: []string{"laptop", "gaming"},
	})
	saveProduct(t, repos.Products, domain.ProductDraft{
		Name: "Office Laptop", Price: decimal.NewFromInt(700), Stock: 0, Tags: []string{"laptop"}, Summary: "100% quiet",
	})
	saveProduct(t, repos.Products, domain.ProductDraft{
		Name: "Phone X", SKU: "PHX-1", Price: decimal.NewFromInt(900), Stock: 8, Condition: "used",
		CategoryIDs: []uuid.UUID{category.ID},
	})

	yes, no := true, false
	search := "LAPTOP gaming"
	percent := "100%"
	skuSearch := "phx"
	minPrice, maxPrice := decimal.NewFromInt(700), decimal.NewFromInt(900)
	used := "used"

	tests := []struct {
		name   string
		params domain.FilterParams
		want   []string
	}{
		{"in stock", domain.FilterParams{InStock: &yes}, []string{"Gaming Laptop", "Phone X"}},
		{"out of stock", domain.FilterParams{InStock: &no}, []string{"Office Laptop"}},
		{"tokens", domain.FilterParams{Search: &search}, []string{"Gaming Laptop"}},
		{"literal percent", domain.FilterParams{Search: &percent}, []string{"Office Laptop"}},
		{"sku token", domain.FilterParams{Search: &skuSearch}, []string{"Phone X"}},
		{"price range", domain.FilterParams{MinPrice: &minPrice, MaxPrice: &maxPrice}, []string{"Office Laptop", "Phone X"}},
		{"condition", domain.FilterParams{Condition: &used}, []string{"Phone X"}},
		{"category", domain.FilterParams{CategoryID: &category.ID}, []string{"Phone X"}},
		{"all tags", domain.FilterParams{Tags: []string{"laptop", "gaming"}}, []string{"Gaming Laptop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.params.Build()
			require.NoError(t, err)
			items, total, err := repos.Products.Search(ctx, f, domain.Pagination{Limit: 10}, domain.SortKey{Field: domain.SortByName})
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), total)
			names := make([]string, 0, len(items))
			for _, p := range items {
				names = append(names, p.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestPostgres_PartialUpdateIsAtomic(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	uow := NewUnitOfWork(testDB, zap.NewNop())
	saved := saveProduct(t, uow.Repositories().Products, domain.ProductDraft{
		Name: "Atomic", Price: decimal.NewFromInt(100), Stock: 50,
	})

	price := decimal.NewFromInt(80)
	missing := []uuid.UUID{uuid.New()}
	err := uow.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		_, err := repos.Products.ApplyPartialUpdate(ctx, saved.ID(), domain.PartialUpdate{
			Pricing:        &domain.PricingUpdate{Price: &price},
			Classification: &domain.ClassificationUpdate{CategoryIDs: &missing},
		})
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReferentialIntegrity)

	stored, err := uow.Repositories().Products.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.True(t, stored.Price().Amount().Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(1), stored.Version())
}

func TestPostgres_NegativeStockRejected(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	saved := saveProduct(t, repo, domain.ProductDraft{Name: "Stocked", Price: decimal.NewFromInt(10), Stock: 50})

	stock := -1
	_, err := repo.ApplyPartialUpdate(ctx, saved.ID(), domain.PartialUpdate{
		Inventory: &domain.InventoryUpdate{Stock: &stock},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"stock"}, domain.ValidationFields(err))

	stored, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, 50, stored.Stock())
}

func TestPostgres_VersionConflicts(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	saved := saveProduct(t, repo, domain.ProductDraft{Name: "Versioned", Price: decimal.NewFromInt(10)})

	stock := 5
	updated, err := repo.ApplyPartialUpdate(ctx, saved.ID(), domain.PartialUpdate{
		Inventory: &domain.InventoryUpdate{Stock: &stock},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version())

	// saving the stale copy must not overwrite the newer row
	_, err = repo.Save(ctx, saved)
	assert.True(t, domain.IsConflict(err))

	stale := int64(1)
	_, err = repo.ApplyPartialUpdate(ctx, saved.ID(), domain.PartialUpdate{
		Inventory:       &domain.InventoryUpdate{Stock: &stock},
		ExpectedVersion: &stale,
	})
	assert.True(t, domain.IsConflict(err))
}

func TestPostgres_ConcurrentUpdatesAreSerialized(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	uow := NewUnitOfWork(testDB, zap.NewNop())
	saved := saveProduct(t, uow.Repositories().Products, domain.ProductDraft{Name: "Contended", Price: decimal.NewFromInt(10)})

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(stock int) {
			defer wg.Done()
			errs <- uow.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
				_, err := repos.Products.ApplyPartialUpdate(ctx, saved.ID(), domain.PartialUpdate{
					Inventory: &domain.InventoryUpdate{Stock: &stock},
				})
				return err
			})
		}(i + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := uow.Repositories().Products.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1+writers), stored.Version())
}

func TestPostgres_UniqueViolationsAreValidationErrors(t *testing.T) {
	resetTables(t)
	repo := NewProductRepository(testDB)
	saveProduct(t, repo, domain.ProductDraft{Name: "Laptop HP Pavilion 15", SKU: "HP-15", Price: decimal.NewFromInt(10)})

	dup, err := domain.NewProduct(domain.ProductDraft{Name: "Laptop HP Pavilion 15", Price: decimal.NewFromInt(10)}, SystemClock())
	require.NoError(t, err)
	_, err = repo.Save(context.Background(), dup)
	require.Error(t, err)
	assert.Equal(t, []string{"slug"}, domain.ValidationFields(err))

	dup, err = domain.NewProduct(domain.ProductDraft{Name: "Other", SKU: "HP-15", Price: decimal.NewFromInt(10)}, SystemClock())
	require.NoError(t, err)
	_, err = repo.Save(context.Background(), dup)
	require.Error(t, err)
	assert.Equal(t, []string{"sku"}, domain.ValidationFields(err))
}

func TestPostgres_CategoryDeleteUnlinksProducts(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repos := NewRepositories(testDB)

	parent, err := domain.NewCategory(domain.CategoryDraft{Name: "Computers"}, SystemClock())
	require.NoError(t, err)
	require.NoError(t, repos.Categories.Create(ctx, parent))
	child, err := domain.NewCategory(domain.CategoryDraft{Name: "Laptops", ParentID: &parent.ID}, SystemClock())
	require.NoError(t, err)
	require.NoError(t, repos.Categories.Create(ctx, child))

	p := saveProduct(t, repos.Products, domain.ProductDraft{
		Name: "Linked", Price: decimal.NewFromInt(10), CategoryIDs: []uuid.UUID{parent.ID, child.ID},
	})

	deleted, err := repos.Categories.Delete(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	stored, err := repos.Products.FindByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{child.ID}, stored.CategoryIDs())

	roots, err := repos.Categories.ListByParent(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, child.ID, roots[0].ID)

	_, err = repos.Categories.FindByID(ctx, parent.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestSearch_TotalMatchesPageUnderConcurrentWrites(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repos := NewRepositories(testDB)
	for i := 0; i < 10; i++ {
		saveProduct(t, repos.Products, domain.ProductDraft{Name: fmt.Sprintf("Seed %d", i), Price: decimal.NewFromInt(10)})
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			p, err := domain.NewProduct(domain.ProductDraft{Name: fmt.Sprintf("Writer %d", i), Price: decimal.NewFromInt(10)}, SystemClock())
			if err != nil {
				return
			}
			if _, err := NewRepositories(testDB).Products.Save(ctx, p); err != nil {
				return
			}
		}
	}()

	filter, err := domain.FilterParams{}.Build()
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		items, total, err := repos.Products.Search(ctx, filter, domain.Pagination{Limit: 10_000}, domain.SortKey{Field: domain.SortByCreatedAt})
		require.NoError(t, err)
		require.Equal(t, total, len(items))
	}
	close(stop)
	wg.Wait()
}

func TestSave_StoresBoundaryAmountsExactly(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repos := NewRepositories(testDB)

	compareAt := decimal.RequireFromString("999999999999.99")
	saved := saveProduct(t, repos.Products, domain.ProductDraft{
		Name:           "Boundary",
		Price:          decimal.RequireFromString("19.99"),
		CompareAtPrice: &compareAt,
		Stock:          2147483647,
	})

	stored, err := repos.Products.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.True(t, stored.Price().Amount().Equal(decimal.RequireFromString("19.99")))
	c, ok := stored.CompareAtPrice()
	require.True(t, ok)
	assert.True(t, c.Amount().Equal(compareAt))
	assert.Equal(t, 2147483647, stored.Stock())
}
