package pagination

import (
	"cmp"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// PageRequest represents a client request for a page of data with optional search.
type PageRequest struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Search   *string `json:"search,omitempty"`
}

// Normalize adjusts the request to ensure valid pagination values based on the config.
func (r *PageRequest) Normalize(cfg Config) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
}

// Offset calculates the number of records to skip based on page and page size.
func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageRequestFromQuery parses pagination parameters from URL query values.
// Supported parameters: page, page_size, search.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	page, _ := strconv.Atoi(values.Get("page"))
	pageSize, _ := strconv.Atoi(values.Get("page_size"))

	var search *string
	if s := strings.TrimSpace(values.Get("search")); s != "" {
		search = &s
	}

	req := PageRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   search,
	}

	req.Normalize(cfg)
	return req
}

// PageResult holds a page of data along with pagination metadata.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult creates a PageResult with calculated total pages.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}

	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Paginate filters items in memory and returns the requested page. When the
// request carries a search term, an item is kept if any of the strings
// returned by fields contains the term, case-insensitively. Items are ordered
// by the first field before slicing.
func Paginate[T any](items []T, page PageRequest, fields func(T) []string) PageResult[T] {
	filtered := items
	if page.Search != nil && *page.Search != "" {
		term := strings.ToLower(*page.Search)
		filtered = make([]T, 0, len(items))
		for _, item := range items {
			if matches(fields(item), term) {
				filtered = append(filtered, item)
			}
		}
	} else {
		filtered = slices.Clone(items)
	}

	slices.SortStableFunc(filtered, func(a, b T) int {
		return cmp.Compare(sortKey(fields(a)), sortKey(fields(b)))
	})

	total := len(filtered)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	return NewPageResult(filtered[start:end], total, page.Page, page.PageSize)
}

func matches(values []string, term string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func sortKey(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.ToLower(values[0])
}
