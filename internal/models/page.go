package models

// DefaultPerPage is the page size of feeds and listings.
const DefaultPerPage = 20

// Page numbers and sizes are capped so Offset cannot overflow. A capped page
// number is still past the end of any real listing.
const (
	MaxPage    = 1_000_000
	MaxPerPage = 1000
)

// Page is one slice of an ordered listing.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// NewPage builds a Page from one fetched slice and the total row count.
func NewPage[T any](items []T, page, perPage int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Page[T]{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// PageRequest is a validated page number and size.
type PageRequest struct {
	Page    int
	PerPage int
}

// NewPageRequest clamps page into [1, MaxPage] and perPage to at most
// MaxPerPage, falling back to DefaultPerPage.
func NewPageRequest(page, perPage int) PageRequest {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// Offset is the number of rows to skip.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PerPage
}

// OutOfRange reports a page past the last non-empty one. Page 1 is always valid.
func (r PageRequest) OutOfRange(itemCount int) bool {
	return r.Page > 1 && itemCount == 0
}
