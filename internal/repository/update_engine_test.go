package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGuard is a hand-written Guard backed by sets
type mockGuard struct {
	slugs      map[domain.Slug]bool
	skus       map[domain.SKU]bool
	brands     map[uuid.UUID]bool
	categories map[uuid.UUID]bool
	err        error
	calls      []string
}

func newMockGuard() *mockGuard {
	return &mockGuard{
		slugs:      map[domain.Slug]bool{},
		skus:       map[domain.SKU]bool{},
		brands:     map[uuid.UUID]bool{},
		categories: map[uuid.UUID]bool{},
	}
}

func (m *mockGuard) SlugTaken(_ context.Context, slug domain.Slug, _ uuid.UUID) (bool, error) {
	m.calls = append(m.calls, "slug")
	return m.slugs[slug], m.err
}

func (m *mockGuard) SKUTaken(_ context.Context, sku domain.SKU, _ uuid.UUID) (bool, error) {
	m.calls = append(m.calls, "sku")
	return m.skus[sku], m.err
}

func (m *mockGuard) ExistsBrand(_ context.Context, id uuid.UUID) (bool, error) {
	m.calls = append(m.calls, "brand")
	return m.brands[id], m.err
}

func (m *mockGuard) ExistsCategory(_ context.Context, id uuid.UUID) (bool, error) {
	m.calls = append(m.calls, "category")
	return m.categories[id], m.err
}

var (
	created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later   = created.Add(time.Hour)
)

func newTestProduct(t *testing.T) *domain.Product {
	t.Helper()
	p, err := domain.NewProduct(domain.ProductDraft{
		Name:  "Laptop HP Pavilion 15",
		Price: decimal.NewFromInt(100),
		Stock: 50,
	}, created)
	require.NoError(t, err)
	return p
}

func TestApplyUpdateGroups_EmptyUpdateReturnsCurrent(t *testing.T) {
	g := newMockGuard()
	current := newTestProduct(t)

	next, changed, err := ApplyUpdateGroups(context.Background(), g, current, domain.PartialUpdate{
		Identity: &domain.IdentityUpdate{},
		Content:  &domain.ContentUpdate{},
	}, later)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, current, next)
	assert.Empty(t, g.calls)
}

func TestApplyUpdateGroups_TouchesUpdatedAt(t *testing.T) {
	current := newTestProduct(t)
	stock := 10

	next, changed, err := ApplyUpdateGroups(context.Background(), newMockGuard(), current, domain.PartialUpdate{
		Inventory: &domain.InventoryUpdate{Stock: &stock},
	}, later)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 10, next.Stock())
	assert.Equal(t, later, next.UpdatedAt())
	assert.Equal(t, created, next.CreatedAt())
	assert.Equal(t, 50, current.Stock())
}

func TestApplyUpdateGroups_MissingCategoryAbortsEverything(t *testing.T) {
	g := newMockGuard()
	current := newTestProduct(t)
	before := current.State()

	price := decimal.NewFromInt(80)
	missing := []uuid.UUID{uuid.New()}
	_, _, err := ApplyUpdateGroups(context.Background(), g, current, domain.PartialUpdate{
		Pricing:        &domain.PricingUpdate{Price: &price},
		Classification: &domain.ClassificationUpdate{CategoryIDs: &missing},
	}, later)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, []string{"category_ids[0]"}, domain.ValidationFields(err))
	assert.Equal(t, before, current.State())
}

func TestApplyUpdateGroups_MissingBrand(t *testing.T) {
	brand := uuid.New()
	_, _, err := ApplyUpdateGroups(context.Background(), newMockGuard(), newTestProduct(t), domain.PartialUpdate{
		Classification: &domain.ClassificationUpdate{BrandID: &brand},
	}, later)

	var refErr *domain.ReferentialIntegrityError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "brand_id", refErr.Field)
	assert.Equal(t, brand.String(), refErr.Key)
}

func TestApplyUpdateGroups_SlugCollision(t *testing.T) {
	g := newMockGuard()
	g.slugs["taken"] = true
	slug := "Taken"

	_, _, err := ApplyUpdateGroups(context.Background(), g, newTestProduct(t), domain.PartialUpdate{
		Identity: &domain.IdentityUpdate{Slug: &slug},
	}, later)
	require.Error(t, err)
	assert.Equal(t, []string{"slug"}, domain.ValidationFields(err))
}

func TestApplyUpdateGroups_NameChangeSkipsSlugCheck(t *testing.T) {
	g := newMockGuard()
	name := "Laptop HP Pavilion 15 Pro"

	next, _, err := ApplyUpdateGroups(context.Background(), g, newTestProduct(t), domain.PartialUpdate{
		Identity: &domain.IdentityUpdate{Name: &name},
	}, later)
	require.NoError(t, err)
	assert.Equal(t, domain.Slug("laptop-hp-pavilion-15"), next.Slug())
	assert.NotContains(t, g.calls, "slug")
}

func TestApplyUpdateGroups_ExpectedVersionMismatch(t *testing.T) {
	stale := int64(7)
	stock := 1
	_, _, err := ApplyUpdateGroups(context.Background(), newMockGuard(), newTestProduct(t), domain.PartialUpdate{
		Inventory:       &domain.InventoryUpdate{Stock: &stock},
		ExpectedVersion: &stale,
	}, later)
	assert.True(t, domain.IsConflict(err))
}

func TestApplyUpdateGroups_GroupOrder(t *testing.T) {
	g := newMockGuard()
	brand := uuid.New()
	g.brands[brand] = true
	slug := "new-slug"
	stock := -1

	// identity runs before inventory, classification never runs
	_, _, err := ApplyUpdateGroups(context.Background(), g, newTestProduct(t), domain.PartialUpdate{
		Identity:       &domain.IdentityUpdate{Slug: &slug},
		Inventory:      &domain.InventoryUpdate{Stock: &stock},
		Classification: &domain.ClassificationUpdate{BrandID: &brand},
	}, later)
	require.Error(t, err)
	assert.Equal(t, []string{"stock"}, domain.ValidationFields(err))
	assert.Equal(t, []string{"slug"}, g.calls)
}

func TestApplyUpdateGroups_GuardFailureIsWrapped(t *testing.T) {
	g := newMockGuard()
	g.err = errors.New("connection reset")
	slug := "another"

	_, _, err := ApplyUpdateGroups(context.Background(), g, newTestProduct(t), domain.PartialUpdate{
		Identity: &domain.IdentityUpdate{Slug: &slug},
	}, later)
	require.Error(t, err)
	assert.ErrorIs(t, err, g.err)
	assert.False(t, domain.IsValidation(err))
}

func TestApplyUpdateGroups_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stock := 3

	_, _, err := ApplyUpdateGroups(ctx, newMockGuard(), newTestProduct(t), domain.PartialUpdate{
		Inventory: &domain.InventoryUpdate{Stock: &stock},
	}, later)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompileFilter(t *testing.T) {
	minPrice := decimal.NewFromInt(10)
	search := "100%_cotton shirt"
	yes := true
	cat := uuid.New()

	f, err := domain.FilterParams{
		MinPrice:   &minPrice,
		Search:     &search,
		InStock:    &yes,
		Tags:       []string{"Summer"},
		CategoryID: &cat,
	}.Build()
	require.NoError(t, err)

	where, err := compileFilter(f)
	require.NoError(t, err)

	clause := where.clause()
	assert.Contains(t, clause, "pc.category_id IN ($3)")
	assert.Contains(t, clause, "p.price >= $4")
	assert.Contains(t, clause, "p.stock > 0")
	assert.Contains(t, clause, "p.tags @> $5::jsonb")
	require.Len(t, where.args, 5)
	assert.Equal(t, `%100\%\_cotton%`, where.args[0])
	assert.Equal(t, `%shirt%`, where.args[1])
	assert.Equal(t, `["summer"]`, where.args[4])
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "ORDER BY p.created_at DESC, p.id ASC", orderClause(domain.DefaultSort()))
	assert.Equal(t, "ORDER BY p.price ASC, p.id ASC", orderClause(domain.SortKey{Field: domain.SortByPrice}))
	assert.Equal(t, "ORDER BY p.created_at ASC, p.id ASC", orderClause(domain.SortKey{Field: "password"}))
}
