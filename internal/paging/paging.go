// Package paging slices ordered sequences into pages.
//
// All functions are pure. Page numbers are 1-based and always clamped into
// [1, TotalPages]; an empty sequence is one empty page, not an error.
package paging

// DefaultPerPage is used when a caller passes a non-positive page size.
const DefaultPerPage = 10

// Page is one page of a sequence plus the counts derived from it.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	PerPage     int
	TotalPages  int
	TotalCount  int
	HasNext     bool
	HasPrev     bool
}

// Meta is pagination metadata reported by a backend that owns pagination.
// Zero fields mean the backend did not report them.
type Meta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
}

// TotalPages returns ceil(count/perPage), minimum 1.
func TotalPages(count, perPage int) int {
	perPage = normalizePerPage(perPage)
	if count <= 0 {
		return 1
	}
	n := count / perPage
	if count%perPage != 0 {
		n++
	}
	return n
}

// Clamp forces page into [1, max(1, totalPages)].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the requested page of items. The returned CurrentPage is
// the clamped page actually served, so callers can detect out-of-range requests.
// Items aliases the input slice; callers must not append to it.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	perPage = normalizePerPage(perPage)
	total := len(items)
	totalPages := TotalPages(total, perPage)
	current := Clamp(page, totalPages)

	start := (current - 1) * perPage
	if start > total {
		start = total
	}
	end := total
	if total-start > perPage {
		end = start + perPage
	}

	return Page[T]{
		Items:       items[start:end:end],
		CurrentPage: current,
		PerPage:     perPage,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNext:     current < totalPages,
		HasPrev:     current > 1,
	}
}

// FromMeta builds a page from items the backend already sliced.
// Missing metadata is filled in from what is known: the requested page and
// size, and the item count.
func FromMeta[T any](items []T, meta Meta, requestedPage, requestedPerPage int) Page[T] {
	perPage := meta.PerPage
	if perPage <= 0 {
		perPage = normalizePerPage(requestedPerPage)
	}

	totalCount := meta.TotalCount
	if totalCount <= 0 && meta.TotalPages <= 0 {
		totalCount = len(items)
	}

	totalPages := meta.TotalPages
	if totalPages <= 0 {
		totalPages = TotalPages(totalCount, perPage)
	}

	current := meta.CurrentPage
	if current <= 0 {
		current = requestedPage
	}
	current = Clamp(current, totalPages)

	if items == nil {
		items = []T{}
	}

	return Page[T]{
		Items:       items,
		CurrentPage: current,
		PerPage:     perPage,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		HasNext:     current < totalPages,
		HasPrev:     current > 1,
	}
}

func normalizePerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	return perPage
}
