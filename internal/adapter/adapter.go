// Package adapter defines the storage capability the CRUD handler drives.
// A backend translates a ParsedQuery into its own query type Q once, then
// executes it for every route.
package adapter

import (
	"context"
	"errors"

	"CrudAPI/internal/query"
)

// ErrInvalidQuery is wrapped by backends when a translated query names
// fields, relations or operators the resource does not support.
var ErrInvalidQuery = errors.New("invalid query")

// Record is one row as returned to the client.
type Record map[string]any

// PaginationOptions carries the page being served and its size.
type PaginationOptions struct {
	Page    int
	PerPage int
}

// PaginationData is the pagination block of a paged ReadAll response.
type PaginationData struct {
	Total     int64 `json:"total"`
	PageCount int64 `json:"pageCount"`
	Page      int   `json:"page"`
}

// NewPaginationData computes the page count for total rows.
func NewPaginationData(total int64, opts PaginationOptions) PaginationData {
	var pages int64
	if opts.PerPage > 0 {
		pages = (total + int64(opts.PerPage) - 1) / int64(opts.PerPage)
	}
	return PaginationData{Total: total, PageCount: pages, Page: opts.Page}
}

// Adapter is implemented by storage backends. GetOne returns a nil Record
// without error when the row does not exist.
type Adapter[Q any] interface {
	// Resources lists the resource names the backend serves.
	Resources() []string
	ParseQuery(resource string, parsed *query.ParsedQuery) (Q, error)

	GetAll(ctx context.Context, resource string, q Q) ([]Record, error)
	GetOne(ctx context.Context, resource string, id any, q Q) (Record, error)
	Create(ctx context.Context, resource string, body Record, q Q) (Record, error)
	Update(ctx context.Context, resource string, id any, body Record, q Q) (Record, error)
	Delete(ctx context.Context, resource string, id any, q Q) (Record, error)

	GetPaginationData(ctx context.Context, resource string, q Q, opts PaginationOptions) (PaginationData, error)
}
