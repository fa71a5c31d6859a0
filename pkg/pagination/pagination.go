package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Params holds page-based pagination parameters extracted from a request.
// Set reports whether the request carried them at all.
type Params struct {
	Page        int
	PageSize    int
	PageSet     bool
	PageSizeSet bool
}

// FromContext extracts pagination parameters from the echo context.
// page_size and rows_per_page are accepted as synonyms.
func FromContext(c echo.Context, defaultSize, maxSize int) Params {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}

	p := Params{PageSize: defaultSize}

	if raw := c.QueryParam("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			if page < 0 {
				page = 0
			}
			p.Page = page
			p.PageSet = true
		}
	}

	raw := c.QueryParam("page_size")
	if raw == "" {
		raw = c.QueryParam("rows_per_page")
	}
	if raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			if size > maxSize {
				size = maxSize
			}
			p.PageSize = size
			p.PageSizeSet = true
		}
	}

	return p
}

// Page returns the half-open window [page*size, page*size+size) of items,
// clamped to its bounds. A window starting at or past the end is empty.
// The result shares the backing array of items.
func Page[T any](items []T, page, size int) []T {
	if page < 0 || size <= 0 || page >= PageCount(len(items), size) {
		return items[:0:0]
	}
	// page*size < len(items) here, so neither bound can overflow.
	start := page * size
	end := len(items)
	if size < end-start {
		end = start + size
	}
	return items[start:end:end]
}

// PageCount returns ceil(total/size).
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	n := total / size
	if total%size != 0 {
		n++
	}
	return n
}

// Response wraps a paginated API response.
type Response struct {
	Data        interface{} `json:"data"`
	Total       int         `json:"total"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	PageCount   int         `json:"page_count"`
	HasMore     bool        `json:"has_more"`
	HasPrevious bool        `json:"has_previous"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:        data,
		Total:       total,
		Page:        p.Page,
		PageSize:    p.PageSize,
		PageCount:   PageCount(total, p.PageSize),
		HasMore:     p.HasNext(total),
		HasPrevious: p.HasPrevious(),
	}
}

// HasNext returns true if there are items after the current page.
func (p Params) HasNext(total int) bool {
	return p.Page >= 0 && p.Page < PageCount(total, p.PageSize)-1
}

// HasPrevious returns true if there is a page before the current one.
func (p Params) HasPrevious() bool {
	return p.Page > 0
}
