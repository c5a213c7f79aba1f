package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"product-catalog/internal/domain"
)

// sortColumns whitelists ORDER BY expressions; names compare bytewise so
// results match the in-memory ordering
var sortColumns = map[domain.SortField]string{
	domain.SortByCreatedAt: "p.created_at",
	domain.SortByUpdatedAt: "p.updated_at",
	domain.SortByPrice:     "p.price",
	domain.SortByName:      `lower(p.name) COLLATE "C"`,
	domain.SortByStock:     "p.stock",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// whereBuilder accumulates SQL conditions and their positional arguments
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(condition string) {
	b.conditions = append(b.conditions, condition)
}

func (b *whereBuilder) clause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conditions, " AND ")
}

// compileFilter translates each criterion into a SQL condition. All
// conditions are joined with AND.
func compileFilter(f domain.ProductFilter) (*whereBuilder, error) {
	b := &whereBuilder{}
	for _, criterion := range f.Criteria() {
		switch c := criterion.(type) {
		case domain.NameContains:
			b.add("p.name ILIKE " + b.arg(containsPattern(c.Text)))
		case domain.TextSearch:
			for _, token := range c.Tokens {
				p := b.arg(containsPattern(token))
				b.add(fmt.Sprintf(`(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR p.summary ILIKE %[1]s
					OR COALESCE(p.sku, '') ILIKE %[1]s
					OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(p.tags) AS t(tag) WHERE t.tag ILIKE %[1]s))`, p))
			}
		case domain.InCategories:
			if len(c.IDs) == 0 {
				b.add("FALSE")
				continue
			}
			placeholders := make([]string, len(c.IDs))
			for i, id := range c.IDs {
				placeholders[i] = b.arg(id)
			}
			b.add(fmt.Sprintf(`EXISTS (SELECT 1 FROM product_categories pc
				WHERE pc.product_id = p.id AND pc.category_id IN (%s))`, strings.Join(placeholders, ", ")))
		case domain.BrandIs:
			b.add("p.brand_id = " + b.arg(c.ID))
		case domain.PriceAtLeast:
			b.add("p.price >= " + b.arg(c.Amount))
		case domain.PriceAtMost:
			b.add("p.price <= " + b.arg(c.Amount))
		case domain.AvailabilityIs:
			b.add("p.is_available = " + b.arg(c.Available))
		case domain.ConditionIs:
			b.add("p.condition = " + b.arg(string(c.Condition)))
		case domain.HasAllTags:
			tags, err := json.Marshal(c.Tags)
			if err != nil {
				return nil, fmt.Errorf("failed to encode tags filter: %w", err)
			}
			b.add("p.tags @> " + b.arg(string(tags)) + "::jsonb")
		case domain.InStock:
			if c.InStock {
				b.add("p.stock > 0")
			} else {
				b.add("p.stock = 0")
			}
		default:
			return nil, fmt.Errorf("unsupported filter criterion %T", criterion)
		}
	}
	return b, nil
}

func orderClause(k domain.SortKey) string {
	column, ok := sortColumns[k.Field]
	if !ok {
		column = sortColumns[domain.SortByCreatedAt]
	}
	direction := "ASC"
	if k.Descending {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, p.id ASC", column, direction)
}

// txBeginner is satisfied by *sql.DB but not *sql.Tx
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Search returns one page of matching products in a deterministic order plus
// the total match count. Both are read from one snapshot.
func (r *productRepository) Search(ctx context.Context, filter domain.ProductFilter, page domain.Pagination, sort domain.SortKey) ([]*domain.Product, int, error) {
	where, err := compileFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	db, ok := r.db.(txBeginner)
	if !ok {
		return searchPage(ctx, r.db, where, page, sort)
	}
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin search transaction: %w", err)
	}
	defer tx.Rollback()

	return searchPage(ctx, tx, where, page, sort)
}

func searchPage(ctx context.Context, db DBTX, where *whereBuilder, page domain.Pagination, sort domain.SortKey) ([]*domain.Product, int, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", where.clause())
	var total int
	if err := db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	args := append([]interface{}{}, where.args...)
	limitArg := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		%s
		LIMIT $%d OFFSET $%d
	`, productColumns, where.clause(), orderClause(sort), limitArg, limitArg+1)
	args = append(args, page.Limit, page.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}
