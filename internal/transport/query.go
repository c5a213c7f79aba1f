package transport

import (
	"net/url"
	"strconv"
	"strings"

	"product-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SearchQuery is the parsed form of GET /api/products query parameters
type SearchQuery struct {
	Params domain.FilterParams
	Page   domain.Pagination
	Sort   domain.SortKey
}

// PageLimits bounds the limit parameter
type PageLimits struct {
	Default int
	Max     int
}

// parseSearchQuery reads filter, pagination and sort parameters. Every
// malformed value is reported as a validation error naming the parameter.
func parseSearchQuery(q url.Values, limits PageLimits) (SearchQuery, error) {
	var (
		out SearchQuery
		err error
	)
	p := &out.Params

	p.Name = optionalString(q, "name")
	p.Search = optionalString(q, "search")
	p.Condition = optionalString(q, "condition")
	if p.CategoryID, err = optionalUUID(q, "category_id"); err != nil {
		return out, err
	}
	if p.BrandID, err = optionalUUID(q, "brand_id"); err != nil {
		return out, err
	}
	if p.MinPrice, err = optionalDecimal(q, "min_price"); err != nil {
		return out, err
	}
	if p.MaxPrice, err = optionalDecimal(q, "max_price"); err != nil {
		return out, err
	}
	if p.IsAvailable, err = optionalBool(q, "is_available"); err != nil {
		return out, err
	}
	if p.InStock, err = optionalBool(q, "in_stock"); err != nil {
		return out, err
	}
	include, err := optionalBool(q, "include_subcategories")
	if err != nil {
		return out, err
	}
	p.IncludeSubcategories = include != nil && *include
	p.Tags = splitCSV(q.Get("tags"))

	offset, err := intParam(q, "offset", 0)
	if err != nil {
		return out, err
	}
	limit, err := intParam(q, "limit", limits.Default)
	if err != nil {
		return out, err
	}
	if out.Page, err = domain.NewPagination(offset, limit, limits.Max); err != nil {
		return out, err
	}

	out.Sort, err = domain.ParseSortKey(q.Get("sort_by"), q.Get("sort_order"))
	return out, err
}

func optionalString(q url.Values, key string) *string {
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key)
	return &v
}

func optionalUUID(q url.Values, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError(key, "must be a valid UUID", raw)
	}
	return &id, nil
}

func optionalDecimal(q url.Values, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.NewValidationError(key, "must be a decimal number", raw)
	}
	return &d, nil
}

func optionalBool(q url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.NewValidationError(key, "must be true or false", raw)
	}
	return &b, nil
}

func intParam(q url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer", raw)
	}
	return n, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseIfMatch reads the expected product version from an If-Match header.
// Both `"3"` and `W/"3"` forms are accepted; "*" means any version.
func parseIfMatch(header string) (*int64, error) {
	raw := strings.TrimSpace(header)
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, domain.NewValidationError("If-Match", "must be a product version", header)
	}
	return &v, nil
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}
