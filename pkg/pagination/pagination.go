// Package pagination decides whether a list request is paged, which page and
// size it asks for, and how the result is ordered.
package pagination

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
)

const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"

	msgInvalidPage = "Invalid page."
)

// CompositeKey is a logical sort field backed by a year column and a
// sequence column, ordered in that order.
type CompositeKey struct {
	Year     string
	Sequence string
}

// Config is declared per resource at route registration and read-only afterwards.
type Config struct {
	PageParam       string
	PageSizeParam   string
	SortParam       string
	OrderParam      string
	NullMarker      string
	DefaultPageSize int
	MaxPageSize     int

	// Sortable maps logical sort names onto physical columns.
	Sortable  map[string]string
	Composite map[string]CompositeKey
	// DefaultOrder applies when no recognized sort is requested.
	DefaultOrder []OrderTerm
}

func DefaultConfig() Config {
	return Config{
		PageParam:       "page",
		PageSizeParam:   "page_size",
		SortParam:       "sort",
		OrderParam:      "order",
		NullMarker:      "null",
		DefaultPageSize: 10,
		MaxPageSize:     100,
	}
}

// OrderTerm orders by a physical column.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Request is the request-scoped pagination state.
type Request struct {
	Enabled  bool
	Page     int
	PageSize int
	Order    []OrderTerm
}

// Offset is the number of rows skipped before the page.
func (r Request) Offset() int {
	if !r.Enabled {
		return 0
	}
	return (r.Page - 1) * r.PageSize
}

// Limit is the page size, or 0 (no limit) when pagination is disabled.
func (r Request) Limit() int {
	if !r.Enabled {
		return 0
	}
	return r.PageSize
}

// Parse reads the pagination state from the full query string. Pagination is
// disabled when the query is empty or the page parameter equals the null
// marker. A page that is not a positive integer is reported as not found.
func (c Config) Parse(q url.Values) (Request, error) {
	req := Request{Order: c.DefaultOrder}

	if len(q) == 0 {
		return req, nil
	}
	page := q.Get(c.PageParam)
	if page == c.NullMarker && q.Has(c.PageParam) {
		return req, nil
	}

	req.Enabled = true
	req.Page = 1
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Request{}, apperrors.NotFoundMessage(msgInvalidPage)
		}
		req.Page = n
	}
	req.PageSize = c.pageSize(q.Get(c.PageSizeParam))

	if order := c.order(q.Get(c.SortParam), q.Get(c.OrderParam)); order != nil {
		req.Order = order
	}
	return req, nil
}

// Check rejects a page past the end of a result of count rows. The first
// page is always valid, even when empty.
func (r Request) Check(count int) error {
	if !r.Enabled || r.Page == 1 {
		return nil
	}
	if r.Offset() >= count {
		return apperrors.NotFoundMessage(msgInvalidPage)
	}
	return nil
}

func (c Config) pageSize(raw string) int {
	size := c.DefaultPageSize
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	if c.MaxPageSize > 0 && size > c.MaxPageSize {
		size = c.MaxPageSize
	}
	return size
}

func (c Config) order(sort, direction string) []OrderTerm {
	if sort == "" {
		return nil
	}
	desc := strings.EqualFold(direction, DirectionDesc)

	if key, ok := c.Composite[sort]; ok {
		return []OrderTerm{
			{Column: key.Year, Desc: desc},
			{Column: key.Sequence, Desc: desc},
		}
	}
	if col, ok := c.Sortable[sort]; ok {
		return []OrderTerm{{Column: col, Desc: desc}}
	}
	return nil
}
