package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const productColumns = `
	p.id, p.slug, p.sku, p.name, p.description, p.summary, p.model,
	p.price, p.compare_at_price, p.currency, p.stock, p.is_available, p.condition,
	p.dimensions, p.brand_id, p.images, p.attributes, p.variants,
	p.highlighted_features, p.tags, p.version, p.created_at, p.updated_at,
	COALESCE((
		SELECT json_agg(pc.category_id ORDER BY pc.position)
		FROM product_categories pc
		WHERE pc.product_id = p.id
	), '[]'::json)`

// SystemClock is the default time source, truncated to the store's precision
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

type productRepository struct {
	db  DBTX
	now func() time.Time
}

// NewProductRepository creates a PostgreSQL ProductRepository on a connection or transaction
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db, now: SystemClock}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s rowScanner) (*domain.Product, error) {
	var (
		st         domain.ProductState
		slug       string
		sku        sql.NullString
		compareAt  decimal.NullDecimal
		condition  string
		brandID    uuid.NullUUID
		dimensions []byte
		images     []byte
		attributes []byte
		variants   []byte
		features   []byte
		tags       []byte
		categories []byte
	)

	err := s.Scan(
		&st.ID, &slug, &sku, &st.Name, &st.Description, &st.Summary, &st.Model,
		&st.Price, &compareAt, &st.Currency, &st.Stock, &st.IsAvailable, &condition,
		&dimensions, &brandID, &images, &attributes, &variants,
		&features, &tags, &st.Version, &st.CreatedAt, &st.UpdatedAt,
		&categories,
	)
	if err != nil {
		return nil, err
	}

	st.Slug = domain.Slug(slug)
	st.SKU = domain.SKU(sku.String)
	st.Condition = domain.Condition(condition)
	st.CreatedAt = st.CreatedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	if compareAt.Valid {
		st.CompareAtPrice = &compareAt.Decimal
	}
	if brandID.Valid {
		st.BrandID = &brandID.UUID
	}
	if len(dimensions) > 0 {
		st.Dimensions = &domain.Dimensions{}
	}

	decoders := []struct {
		column string
		data   []byte
		into   interface{}
	}{
		{"dimensions", dimensions, st.Dimensions},
		{"images", images, &st.Images},
		{"attributes", attributes, &st.Attributes},
		{"variants", variants, &st.Variants},
		{"highlighted_features", features, &st.HighlightedFeatures},
		{"tags", tags, &st.Tags},
		{"category_ids", categories, &st.CategoryIDs},
	}
	for _, d := range decoders {
		if len(d.data) == 0 {
			continue
		}
		if err := json.Unmarshal(d.data, d.into); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", d.column, err)
		}
	}

	return domain.RehydrateProduct(st)
}

func (r *productRepository) findOne(ctx context.Context, where string, args ...interface{}) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p ` + where
	return scanProduct(r.db.QueryRowContext(ctx, query, args...))
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := r.findOne(ctx, `WHERE p.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("product", id.String())
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindBySlug retrieves a product by slug
func (r *productRepository) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Product, error) {
	product, err := r.findOne(ctx, `WHERE p.slug = $1`, string(slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("product", string(slug))
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}
	return product, nil
}

// Save inserts a product, or replaces the stored row when the id already exists
func (r *productRepository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	stored, err := r.lockVersion(ctx, product.ID())
	if errors.Is(err, sql.ErrNoRows) {
		if err := r.insert(ctx, product.State()); err != nil {
			return nil, err
		}
		return product, nil
	}
	if err != nil {
		return nil, err
	}

	if stored != product.Version() {
		return nil, domain.NewConflictError("product", product.ID().String(),
			fmt.Sprintf("expected version %d, stored version is %d", product.Version(), stored))
	}
	next := product.NextVersion()
	if err := r.update(ctx, next.State(), stored); err != nil {
		return nil, err
	}
	return next, nil
}

// ApplyPartialUpdate locks the row, runs the update groups and writes the
// result guarded by the version it read
func (r *productRepository) ApplyPartialUpdate(ctx context.Context, id uuid.UUID, u domain.PartialUpdate) (*domain.Product, error) {
	if _, err := r.lockVersion(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("product", id.String())
		}
		return nil, err
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, changed, err := ApplyUpdateGroups(ctx, r, current, u, r.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}

	next = next.NextVersion()
	if err := r.update(ctx, next.State(), current.Version()); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete removes a product. It reports false when no row matched.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *productRepository) ExistsCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id)
}

func (r *productRepository) ExistsBrand(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM brands WHERE id = $1)`, id)
}

func (r *productRepository) SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`, string(slug), excludeID)
}

func (r *productRepository) SKUTaken(ctx context.Context, sku domain.SKU, excludeID uuid.UUID) (bool, error) {
	if sku == "" {
		return false, nil
	}
	return exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM products WHERE sku = $1 AND id <> $2)`, string(sku), excludeID)
}

func exists(ctx context.Context, db DBTX, query string, args ...interface{}) (bool, error) {
	var ok bool
	if err := db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return ok, nil
}

// lockVersion takes a row lock for the rest of the transaction and returns the stored version
func (r *productRepository) lockVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to lock product: %w", err)
	}
	return version, nil
}

type productRow struct {
	sku                 sql.NullString
	compareAt           decimal.NullDecimal
	brandID             uuid.NullUUID
	dimensions          []byte
	images              []byte
	attributes          []byte
	variants            []byte
	highlightedFeatures []byte
	tags                []byte
}

func encodeProduct(st domain.ProductState) (productRow, error) {
	var row productRow
	if st.SKU != "" {
		row.sku = sql.NullString{String: string(st.SKU), Valid: true}
	}
	if st.CompareAtPrice != nil {
		row.compareAt = decimal.NullDecimal{Decimal: *st.CompareAtPrice, Valid: true}
	}
	if st.BrandID != nil {
		row.brandID = uuid.NullUUID{UUID: *st.BrandID, Valid: true}
	}

	var err error
	if st.Dimensions != nil {
		if row.dimensions, err = json.Marshal(st.Dimensions); err != nil {
			return row, fmt.Errorf("failed to encode dimensions: %w", err)
		}
	}
	encoders := []struct {
		column string
		value  interface{}
		into   *[]byte
	}{
		{"images", nonNil(st.Images), &row.images},
		{"attributes", nonNil(st.Attributes), &row.attributes},
		{"variants", nonNil(st.Variants), &row.variants},
		{"highlighted_features", nonNil(st.HighlightedFeatures), &row.highlightedFeatures},
		{"tags", nonNil(st.Tags), &row.tags},
	}
	for _, e := range encoders {
		if *e.into, err = json.Marshal(e.value); err != nil {
			return row, fmt.Errorf("failed to encode %s: %w", e.column, err)
		}
	}
	return row, nil
}

// nonNil makes nil slices encode as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *productRepository) insert(ctx context.Context, st domain.ProductState) error {
	row, err := encodeProduct(st)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (
			id, slug, sku, name, description, summary, model,
			price, compare_at_price, currency, stock, is_available, condition,
			dimensions, brand_id, images, attributes, variants,
			highlighted_features, tags, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		st.ID, string(st.Slug), row.sku, st.Name, st.Description, st.Summary, st.Model,
		st.Price, row.compareAt, st.Currency, st.Stock, st.IsAvailable, string(st.Condition),
		nullableJSON(row.dimensions), row.brandID, string(row.images), string(row.attributes), string(row.variants),
		string(row.highlightedFeatures), string(row.tags), st.Version, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", translatePgError(err))
	}

	return r.replaceCategories(ctx, st.ID, st.CategoryIDs)
}

func (r *productRepository) update(ctx context.Context, st domain.ProductState, expectedVersion int64) error {
	row, err := encodeProduct(st)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET slug = $2, sku = $3, name = $4, description = $5, summary = $6, model = $7,
		    price = $8, compare_at_price = $9, currency = $10, stock = $11, is_available = $12,
		    condition = $13, dimensions = $14, brand_id = $15, images = $16, attributes = $17,
		    variants = $18, highlighted_features = $19, tags = $20, version = $21, updated_at = $22
		WHERE id = $1 AND version = $23
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		st.ID, string(st.Slug), row.sku, st.Name, st.Description, st.Summary, st.Model,
		st.Price, row.compareAt, st.Currency, st.Stock, st.IsAvailable,
		string(st.Condition), nullableJSON(row.dimensions), row.brandID, string(row.images), string(row.attributes),
		string(row.variants), string(row.highlightedFeatures), string(row.tags), st.Version, st.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", translatePgError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewConflictError("product", st.ID.String(), "modified concurrently")
	}

	return r.replaceCategories(ctx, st.ID, st.CategoryIDs)
}

func (r *productRepository) replaceCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to clear product categories: %w", err)
	}
	for i, id := range categoryIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO product_categories (product_id, category_id, position) VALUES ($1, $2, $3)`,
			productID, id, i,
		)
		if err != nil {
			return fmt.Errorf("failed to link product category: %w", translatePgError(err))
		}
	}
	return nil
}

func nullableJSON(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
