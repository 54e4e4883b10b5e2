package query

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"CrudAPI/internal/logger"
)

// Parse parses the raw query string (with or without the leading "?").
// An empty string yields an empty ParsedQuery.
func Parse(raw string) (*ParsedQuery, error) {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return &ParsedQuery{}, nil
	}

	original, params := decodeFlat(raw)
	q := &ParsedQuery{OriginalQuery: original}

	if p, ok := params["select"]; ok && p.present() {
		tree, err := parseRecursiveParam("select", p)
		if err != nil {
			return nil, err
		}
		q.Select = tree
	}
	if p, ok := params["include"]; ok && p.present() {
		tree, err := parseRecursiveParam("include", p)
		if err != nil {
			return nil, err
		}
		q.Include = tree
	}
	if p, ok := params["where"]; ok && p.present() {
		v, ok := p.single()
		if !ok {
			return nil, &ParseError{Param: "where", Reason: "must be a single JSON string"}
		}
		where, err := ParseWhere(v)
		if err != nil {
			return nil, err
		}
		q.Where = where
	}
	if p, ok := params["orderBy"]; ok && p.present() {
		v, ok := p.single()
		if !ok {
			return nil, &ParseError{Param: "orderBy", Reason: "must be a single JSON string"}
		}
		orderBy, err := ParseOrderBy(v)
		if err != nil {
			return nil, err
		}
		q.OrderBy = orderBy
	}
	if p, ok := params["limit"]; ok && p.present() {
		q.Limit = parseNumber("limit", p)
	}
	if p, ok := params["skip"]; ok && p.present() {
		q.Skip = parseNumber("skip", p)
	}
	if p, ok := params["page"]; ok && p.present() {
		q.Page = parseNumber("page", p)
	}
	if p, ok := params["distinct"]; ok && p.present() {
		v, ok := p.single()
		if !ok {
			return nil, &ParseError{Param: "distinct", Reason: "must be a string"}
		}
		q.Distinct = v
	}
	if p, ok := params["cursor"]; ok && p.present() {
		v, ok := p.single()
		if !ok {
			return nil, &ParseError{Param: "cursor", Reason: "must be a single JSON string"}
		}
		q.Cursor = v
	}

	return q, nil
}

func parseRecursiveParam(name string, p param) (RecursiveField, error) {
	v, ok := p.single()
	if !ok {
		return nil, &ParseError{Param: name, Reason: name + " query param must be a string"}
	}
	return ParseRecursive(v), nil
}

// parseNumber returns nil for anything that is not a finite integer.
// Malformed pagination values mean "no constraint".
func parseNumber(name string, p param) *int {
	v, ok := p.single()
	if ok {
		v = strings.TrimSpace(v)
		if n, err := strconv.Atoi(v); err == nil {
			return &n
		}
		// -math.MinInt is the first value past math.MaxInt, exact as a float
		if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) && f >= math.MinInt && f < -math.MinInt {
			n := int(f)
			return &n
		}
	}
	logger.Debug("query_number_ignored", map[string]any{
		"param":  name,
		"values": p.values,
	})
	return nil
}

// ParseWhere decodes the JSON where parameter. Dotted top-level keys are
// re-homed into nested Conditions; combinator keys are kept as is.
func ParseWhere(raw string) (WhereField, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, &ParseError{Param: "where", Reason: "must be a JSON object", Err: err}
	}
	if obj == nil {
		return nil, &ParseError{Param: "where", Reason: "must be a JSON object"}
	}

	// Plain keys first, then dotted keys in lexical order so that a dotted
	// path consistently wins over a scalar stored at one of its prefixes.
	var plain, dotted []string
	for key := range obj {
		if !IsCombinator(key) && strings.Contains(key, ".") {
			dotted = append(dotted, key)
		} else {
			plain = append(plain, key)
		}
	}
	sort.Strings(dotted)

	where := WhereField{}
	for _, key := range plain {
		where[key] = normalizeValue(obj[key])
	}
	for _, key := range dotted {
		path := splitPath(key)
		if len(path) == 0 {
			continue
		}
		setPath(Condition(where), path, normalizeValue(obj[key]))
	}
	return where, nil
}

// setPath stores value at root.path[0].path[1]..., replacing any
// non-Condition found on the way.
func setPath(root Condition, path []string, value any) {
	node := root
	for _, seg := range path[:len(path)-1] {
		next, ok := AsCondition(node[seg])
		if !ok {
			next = Condition{}
		}
		node[seg] = next
		node = next
	}
	last := path[len(path)-1]
	if existing, ok := AsCondition(node[last]); ok {
		if incoming, ok := AsCondition(value); ok {
			for k, v := range incoming {
				existing[k] = v
			}
			return
		}
	}
	node[last] = value
}

// normalizeValue converts decoded JSON objects into Conditions, recursively.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		c := make(Condition, len(t))
		for k, val := range t {
			c[k] = normalizeValue(val)
		}
		return c
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	}
	return v
}

// ParseOrderBy decodes {"field":"$asc"}. The object must hold exactly one
// key; values other than $asc/$desc are dropped before the final count.
func ParseOrderBy(raw string) (OrderByField, error) {
	const reason = "orderBy needs to be an object with exactly 1 property with either $asc or $desc value"

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, &ParseError{Param: "orderBy", Reason: reason, Err: err}
	}
	if len(obj) == 0 {
		return nil, &ParseError{Param: "orderBy", Reason: reason}
	}

	parsed := OrderByField{}
	for key, val := range obj {
		dir, _ := val.(string)
		switch OrderDirection(dir) {
		case Asc, Desc:
			parsed[key] = OrderDirection(dir)
		default:
			logger.Debug("order_by_value_dropped", map[string]any{
				"field": key,
				"value": val,
			})
		}
	}

	if len(parsed) != 1 {
		return nil, &ParseError{Param: "orderBy", Reason: reason}
	}
	return parsed, nil
}
