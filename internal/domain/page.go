package domain

import (
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination is an offset/limit window over an ordered result
type Pagination struct {
	Offset int
	Limit  int
}

// NewPagination validates offset >= 0 and 1 <= limit <= maxLimit.
// A maxLimit <= 0 or above MaxPageSize falls back to MaxPageSize.
func NewPagination(offset, limit, maxLimit int) (Pagination, error) {
	if maxLimit <= 0 || maxLimit > MaxPageSize {
		maxLimit = MaxPageSize
	}
	if offset < 0 {
		return Pagination{}, NewValidationError("offset", "must not be negative", offset)
	}
	if limit < 1 || limit > maxLimit {
		return Pagination{}, NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", maxLimit), limit)
	}
	return Pagination{Offset: offset, Limit: limit}, nil
}

// DefaultPagination is the first page with the default size
func DefaultPagination() Pagination {
	return Pagination{Offset: 0, Limit: DefaultPageSize}
}

// Window returns the [start, end) bounds of the page over n items
func (p Pagination) Window(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

// SortField is a product attribute results can be ordered by
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByPrice     SortField = "price"
	SortByName      SortField = "name"
	SortByStock     SortField = "stock"
)

var sortFields = map[SortField]bool{
	SortByCreatedAt: true,
	SortByUpdatedAt: true,
	SortByPrice:     true,
	SortByName:      true,
	SortByStock:     true,
}

// SortKey orders a search result. Ties are always broken by id ascending.
type SortKey struct {
	Field      SortField
	Descending bool
}

// DefaultSort is newest first
func DefaultSort() SortKey {
	return SortKey{Field: SortByCreatedAt, Descending: true}
}

// ParseSortKey reads a sort field and an asc/desc order. An empty field
// yields DefaultSort; an empty order is ascending.
func ParseSortKey(field, order string) (SortKey, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	order = strings.ToLower(strings.TrimSpace(order))
	if field == "" {
		if order == "" {
			return DefaultSort(), nil
		}
		field = string(SortByCreatedAt)
	}
	if !sortFields[SortField(field)] {
		return SortKey{}, NewValidationError("sort_by", "must be one of created_at, updated_at, price, name, stock", field)
	}
	switch order {
	case "", "asc":
		return SortKey{Field: SortField(field)}, nil
	case "desc":
		return SortKey{Field: SortField(field), Descending: true}, nil
	default:
		return SortKey{}, NewValidationError("sort_order", "must be asc or desc", order)
	}
}

// Less orders a before b under k, falling back to id ascending
func (k SortKey) Less(a, b *Product) bool {
	if c := k.compare(a, b); c != 0 {
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return a.state.ID.String() < b.state.ID.String()
}

func (k SortKey) compare(a, b *Product) int {
	switch k.Field {
	case SortByUpdatedAt:
		return a.state.UpdatedAt.Compare(b.state.UpdatedAt)
	case SortByPrice:
		return a.state.Price.Cmp(b.state.Price)
	case SortByName:
		return strings.Compare(strings.ToLower(a.state.Name), strings.ToLower(b.state.Name))
	case SortByStock:
		switch {
		case a.state.Stock < b.state.Stock:
			return -1
		case a.state.Stock > b.state.Stock:
			return 1
		}
		return 0
	default:
		return a.state.CreatedAt.Compare(b.state.CreatedAt)
	}
}

// Page is one window of a search result plus the total number of matches
type Page struct {
	Items  []*Product
	Total  int
	Offset int
	Limit  int
}
