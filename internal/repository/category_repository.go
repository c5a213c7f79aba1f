package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
)

const categoryColumns = `id, name, slug, description, parent_id, created_at, updated_at`

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func scanCategory(s rowScanner) (*domain.Category, error) {
	var (
		c        domain.Category
		slug     string
		parentID uuid.NullUUID
	)
	if err := s.Scan(&c.ID, &c.Name, &slug, &c.Description, &parentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Slug = domain.Slug(slug)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if parentID.Valid {
		c.ParentID = &parentID.UUID
	}
	return &c, nil
}

func parentValue(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create inserts a new category
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		string(category.Slug),
		category.Description,
		parentValue(category.ParentID),
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", translatePgError(err))
	}

	return nil
}

// Update replaces the mutable fields of a category
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4, parent_id = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		string(category.Slug),
		category.Description,
		parentValue(category.ParentID),
		category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", translatePgError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewNotFoundError("category", category.ID.String())
	}

	return nil
}

// Delete removes a category. Children become roots and product links are dropped.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// FindByID retrieves a category by ID
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("category", id.String())
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// List retrieves all categories ordered by name
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	return r.list(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC, id ASC`)
}

// ListByParent retrieves the direct children of parentID, or the roots when parentID is nil
func (r *categoryRepository) ListByParent(ctx context.Context, parentID *uuid.UUID) ([]*domain.Category, error) {
	if parentID == nil {
		return r.list(ctx, `SELECT `+categoryColumns+` FROM categories WHERE parent_id IS NULL ORDER BY name ASC, id ASC`)
	}
	return r.list(ctx, `SELECT `+categoryColumns+` FROM categories WHERE parent_id = $1 ORDER BY name ASC, id ASC`, *parentID)
}

func (r *categoryRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *categoryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id)
}

func (r *categoryRepository) SlugTaken(ctx context.Context, slug domain.Slug, excludeID uuid.UUID) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`, string(slug), excludeID)
}
