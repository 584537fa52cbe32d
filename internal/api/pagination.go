package api

import (
	"net/http"
	"strconv"
)

// Pagination bounds for list endpoints. The audit log is the main consumer;
// per_page is capped so one request cannot dump the whole table.
const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// PaginationParams holds parsed pagination query parameters.
type PaginationParams struct {
	Page    int
	PerPage int
}

// ParsePagination reads page and per_page from the query string. Absent,
// malformed, or non-positive values fall back to page 1 and the default
// page size.
func ParsePagination(r *http.Request) PaginationParams {
	p := PaginationParams{
		Page:    positiveQueryInt(r, "page", 1),
		PerPage: positiveQueryInt(r, "per_page", DefaultPerPage),
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func positiveQueryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Offset returns the row offset of the current page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// TotalPages returns how many pages a result set of the given size spans.
func (p PaginationParams) TotalPages(total int64) int {
	if p.PerPage < 1 || total < 1 {
		return 0
	}
	return int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
}
