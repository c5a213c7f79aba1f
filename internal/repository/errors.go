package repository

import (
	"errors"

	"product-catalog/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// constraintFields maps schema constraint names to the input field they guard
var constraintFields = map[string]string{
	"products_slug_key":                   "slug",
	"products_sku_key":                    "sku",
	"products_brand_id_fkey":              "brand_id",
	"products_price_positive":             "price",
	"products_compare_at_price_check":     "compare_at_price",
	"products_stock_non_negative":         "stock",
	"products_condition_check":            "condition",
	"product_categories_category_id_fkey": "category_ids",
	"categories_slug_key":                 "slug",
	"categories_parent_id_fkey":           "parent_id",
	"categories_not_own_parent":           "parent_id",
	"brands_name_key":                     "name",
	"brands_slug_key":                     "slug",
}

var constraintResources = map[string]string{
	"products_brand_id_fkey":              "brand",
	"product_categories_category_id_fkey": "category",
	"categories_parent_id_fkey":           "category",
}

// translatePgError turns constraint violations into domain errors. Any other
// error is returned unchanged.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	field, known := constraintFields[pgErr.ConstraintName]
	if !known {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return domain.NewValidationError(field, "already in use", nil)
	case pgForeignKeyViolation:
		return domain.NewReferentialIntegrityError(field, constraintResources[pgErr.ConstraintName], "referenced id")
	case pgCheckViolation:
		return domain.NewValidationError(field, "violates constraint "+pgErr.ConstraintName, nil)
	}
	return err
}
