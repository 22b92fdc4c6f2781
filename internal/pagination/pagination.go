// Package pagination is the list contract shared by every read operation: a requested
// page and size in, a page of results with totals out.
package pagination

import "math"

const (
	MaxPageSize = 100

	DefaultFeedPageSize       = 20
	DefaultSalesPageSize      = 20
	DefaultAllocationPageSize = 10
)

// Params is a requested page. Zero values mean "use the default".
type Params struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Normalize clamps p: page below 1 becomes 1, a zero page size becomes defaultSize, and the
// page size is then clamped to [1, MaxPageSize].
func (p Params) Normalize(defaultSize int) Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the index of the first item of the page. Params must be normalized. Pages too
// far out to address saturate at math.MaxInt, which lies past the end of any list.
func (p Params) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > (math.MaxInt-p.PageSize)/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a list.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage wraps a page the store already cut. p must be normalized.
func NewPage[T any](data []T, total int64, p Params) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: TotalPages(total, p.PageSize),
	}
}

// Paginate cuts a page out of a fully filtered in-memory list; Total is len(items).
func Paginate[T any](items []T, p Params) Page[T] {
	total := len(items)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := total
	if p.PageSize < total-start {
		end = start + p.PageSize
	}
	return NewPage(items[start:end:end], int64(total), p)
}

// TotalPages is ceil(total/size), zero for an empty list.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
