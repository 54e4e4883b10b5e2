// Package prisma translates a ParsedQuery into the relational filter/include
// document understood by Prisma-style ORMs: select/include trees, a where
// tree with AND/OR/NOT and `some` relation filters, orderBy, take/skip,
// cursor and distinct.
package prisma

import "fmt"

// Keyword is the nesting keyword used by a projection.
type Keyword string

const (
	SelectKeyword  Keyword = "select"
	IncludeKeyword Keyword = "include"
)

// Projection maps a field to true or to {keyword: Projection}.
type Projection map[string]any

// Where is a filter document. Values are search values, operator objects
// ({"contains": "x"}), relation filters ({"some": Where}), nested Where
// documents, or []Where bodies under AND/OR/NOT.
type Where map[string]any

// OrderBy maps a field to "asc" or "desc".
type OrderBy map[string]string

// Cursor holds exactly one unique field and its value.
type Cursor map[string]any

// Query is the translated backend query. Absent parts are omitted.
type Query struct {
	Select   Projection `json:"select,omitempty"`
	Include  Projection `json:"include,omitempty"`
	Where    Where      `json:"where,omitempty"`
	OrderBy  OrderBy    `json:"orderBy,omitempty"`
	Take     *int       `json:"take,omitempty"`
	Skip     *int       `json:"skip,omitempty"`
	Cursor   Cursor     `json:"cursor,omitempty"`
	Distinct string     `json:"distinct,omitempty"`
}

// ValidationError reports a query part that cannot be translated.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }
