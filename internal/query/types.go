// Package query turns the raw query string of a CRUD request into a
// backend-agnostic ParsedQuery.
package query

import (
	"fmt"
	"net/url"
	"time"
)

// RecursiveField is a select/include projection tree. A nil child is a leaf
// ("include this field as is"), a non-nil child is a nested projection.
type RecursiveField map[string]RecursiveField

// IsLeaf reports whether key is present as a leaf.
func (f RecursiveField) IsLeaf(key string) bool {
	child, ok := f[key]
	return ok && child == nil
}

// WhereOperator is one of the closed set of filter operator tokens.
type WhereOperator string

const (
	OpEq     WhereOperator = "$eq"
	OpNeq    WhereOperator = "$neq"
	OpIn     WhereOperator = "$in"
	OpNotIn  WhereOperator = "$notin"
	OpLt     WhereOperator = "$lt"
	OpLte    WhereOperator = "$lte"
	OpGt     WhereOperator = "$gt"
	OpGte    WhereOperator = "$gte"
	OpCont   WhereOperator = "$cont"
	OpStarts WhereOperator = "$starts"
	OpEnds   WhereOperator = "$ends"
	OpIsNull WhereOperator = "$isnull"
)

// IsNull is the literal search value standing for SQL NULL.
const IsNull = string(OpIsNull)

// Combinator keys of a WhereField.
const (
	And = "$and"
	Or  = "$or"
	Not = "$not"
)

// IsCombinator reports whether key is $and, $or or $not.
func IsCombinator(key string) bool {
	return key == And || key == Or || key == Not
}

// Condition maps a field name to a primitive search value, a single-operator
// WhereCondition (a Condition whose only key is an operator token) or a
// nested Condition for relation paths.
type Condition map[string]any

// WhereField is a top-level Condition that may also carry $and/$or/$not,
// each holding a Condition or a []any of Conditions.
type WhereField map[string]any

// AsCondition returns v as a Condition when it is any kind of string-keyed map.
func AsCondition(v any) (Condition, bool) {
	switch m := v.(type) {
	case Condition:
		return m, true
	case WhereField:
		return Condition(m), true
	case map[string]any:
		return Condition(m), true
	}
	return nil, false
}

// IsPrimitive reports whether v is a search value rather than a structure.
// time.Time counts as primitive.
func IsPrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, time.Time, *time.Time:
		return true
	}
	return false
}

// OrderDirection is $asc or $desc.
type OrderDirection string

const (
	Asc  OrderDirection = "$asc"
	Desc OrderDirection = "$desc"
)

// OrderByField maps a field to its direction. The parser only ever produces one key.
type OrderByField map[string]OrderDirection

// ParsedQuery is the structured result of parsing a query string.
// Absent parameters stay nil/empty.
type ParsedQuery struct {
	Select   RecursiveField
	Include  RecursiveField
	Where    WhereField
	OrderBy  OrderByField
	Limit    *int
	Skip     *int
	Distinct string
	Page     *int
	Cursor   string

	// OriginalQuery is the flat decoded query string, kept for translators
	// that re-read raw parameters.
	OriginalQuery url.Values
}

// WithPagination returns a copy of q with skip/limit replaced.
func (q *ParsedQuery) WithPagination(skip, limit int) *ParsedQuery {
	cp := *q
	cp.Skip = &skip
	cp.Limit = &limit
	return &cp
}

// ParseError reports a malformed query parameter.
type ParseError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s query param: %s: %v", e.Param, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s query param: %s", e.Param, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
