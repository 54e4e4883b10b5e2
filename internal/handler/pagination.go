package handler

import (
	"net/http"

	"CrudAPI/internal/adapter"
	"CrudAPI/internal/query"
)

const defaultPerPage = 20

// PagedResult is the body of a ReadAll request carrying ?page.
type PagedResult struct {
	Data       []adapter.Record       `json:"data"`
	Pagination adapter.PaginationData `json:"pagination"`
}

// paginate rewrites skip/limit for the requested page on a copy of parsed.
// A non-positive limit falls back to the configured page size.
func paginate(parsed *query.ParsedQuery, fallback int) (*query.ParsedQuery, adapter.PaginationOptions, error) {
	page := *parsed.Page
	if page <= 0 {
		return nil, adapter.PaginationOptions{}, NewHTTPError(http.StatusBadRequest, "page query must be a strictly positive number")
	}
	perPage := fallback
	if parsed.Limit != nil && *parsed.Limit > 0 {
		perPage = *parsed.Limit
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	opts := adapter.PaginationOptions{Page: page, PerPage: perPage}
	return parsed.WithPagination((page-1)*perPage, perPage), opts, nil
}
