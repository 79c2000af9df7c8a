// Package pagination provides deterministic client-side filtering and paging
// over collections that have already been fetched. It is intentionally
// independent of the server-side pagination used by list endpoints: the
// server paginates its storage, this package paginates an in-memory slice.
package pagination

import (
	"strings"
)

// Filter returns the items whose searchable fields contain the query as a
// case-insensitive substring. Relative order is preserved. An empty query
// matches everything. fields extracts the searchable text of one item.
func Filter[T any](items []T, query string, fields func(T) []string) []T {
	if query == "" {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}

	needle := strings.ToLower(query)
	var out []T
	for _, item := range items {
		for _, field := range fields(item) {
			if strings.Contains(strings.ToLower(field), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// TotalPages returns ceil(count/pageSize). Zero items means zero pages.
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// Paginate returns the 1-based page slice of items and the total page count.
// A page beyond the last returns an empty slice; clamping the page number is
// the caller's job.
func Paginate[T any](items []T, page, pageSize int) ([]T, int) {
	total := TotalPages(len(items), pageSize)
	if page < 1 || pageSize <= 0 || page > total {
		return nil, total
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total
}

// Pager tracks the active page for a filtered view. Changing the query
// always resets the page to 1, so a narrowed result set never leaves the
// view stranded past the last page.
type Pager struct {
	pageSize int
	page     int
	query    string
}

// NewPager creates a Pager starting at page 1.
func NewPager(pageSize int) *Pager {
	return &Pager{pageSize: pageSize, page: 1}
}

// Page returns the current 1-based page number.
func (p *Pager) Page() int { return p.page }

// Query returns the current filter query.
func (p *Pager) Query() string { return p.query }

// SetPage moves to the given page, clamping into [1, totalPages] against the
// given item count.
func (p *Pager) SetPage(page, count int) {
	total := TotalPages(count, p.pageSize)
	if total == 0 {
		p.page = 1
		return
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	p.page = page
}

// SetQuery updates the filter query. Any change resets the page to 1.
func (p *Pager) SetQuery(query string) {
	if query != p.query {
		p.page = 1
	}
	p.query = query
}

// Slice filters items by the current query and returns the current page
// plus the total page count.
func Slice[T any](p *Pager, items []T, fields func(T) []string) ([]T, int) {
	filtered := Filter(items, p.query, fields)
	return Paginate(filtered, p.page, p.pageSize)
}
