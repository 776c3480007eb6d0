package main

import (
	"net/http"
	"strconv"
)

const (
	maxPageSize         = 100
	defaultChannelsPage = 25
	defaultMessagesPage = 50
)

type pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// pageRequest is a 1-based page number and a clamped page size.
type pageRequest struct {
	page, size int
}

func newPageRequest(page, size, defaultSize int) pageRequest {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return pageRequest{page: page, size: size}
}

// pageFromQuery reads ?page&pageSize. Unparseable values fall back to defaults.
func pageFromQuery(r *http.Request, defaultSize int) pageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	return newPageRequest(page, size, defaultSize)
}

// paginate returns the items of the requested page. Pages past the end are
// empty, never an error.
func paginate[T any](items []T, p pageRequest) ([]T, pagination) {
	total := len(items)
	info := pagination{
		Page:       p.page,
		PageSize:   p.size,
		Total:      total,
		TotalPages: (total + p.size - 1) / p.size,
	}
	if p.page > info.TotalPages {
		return []T{}, info
	}
	start := (p.page - 1) * p.size
	end := start + p.size
	if end > total {
		end = total
	}
	return items[start:end], info
}
