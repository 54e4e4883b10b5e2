package prisma

import (
	"strings"

	"CrudAPI/internal/logger"
	"CrudAPI/internal/query"
)

var operators = map[query.WhereOperator]string{
	query.OpEq:     "equals",
	query.OpNeq:    "not",
	query.OpCont:   "contains",
	query.OpEnds:   "endsWith",
	query.OpStarts: "startsWith",
	query.OpGt:     "gt",
	query.OpGte:    "gte",
	query.OpLt:     "lt",
	query.OpLte:    "lte",
	query.OpIn:     "in",
	query.OpNotIn:  "notIn",
}

var combinators = map[string]string{
	query.And: "AND",
	query.Or:  "OR",
	query.Not: "NOT",
}

const someKey = "some"

// Translator converts where trees for one resource. manyRelations lists the
// dotted paths of to-many relations; a key is quantified with `some` when
// the path without its last segment is listed.
type Translator struct {
	many map[string]struct{}
}

// NewTranslator builds a translator for the given to-many relation paths.
func NewTranslator(manyRelations []string) *Translator {
	t := &Translator{many: make(map[string]struct{}, len(manyRelations))}
	for _, p := range manyRelations {
		t.many[p] = struct{}{}
	}
	return t
}

// TranslateWhere translates where with a one-off translator.
func TranslateWhere(where query.WhereField, manyRelations []string) Where {
	return NewTranslator(manyRelations).Where(where)
}

// Where translates a top-level where tree.
func (t *Translator) Where(where query.WhereField) Where {
	out := Where{}
	for key, val := range where {
		if name, ok := combinators[key]; ok {
			if body, ok := t.combination(val); ok {
				out[name] = body
			}
			continue
		}
		t.field(out, key, val, true)
	}
	return out
}

// combination translates the body of $and/$or/$not: one Condition or a list.
func (t *Translator) combination(val any) (any, bool) {
	if cond, ok := query.AsCondition(val); ok {
		return t.combinationObject(cond), true
	}
	if list, ok := val.([]any); ok {
		bodies := make([]Where, 0, len(list))
		for _, item := range list {
			if cond, ok := query.AsCondition(item); ok {
				bodies = append(bodies, t.combinationObject(cond))
			}
		}
		return bodies, true
	}
	logger.Debug("where_combinator_ignored", map[string]any{"value": val})
	return nil, false
}

// combinationObject translates one combinator body. Nested combinator keys
// are not recognised here and go through as ordinary fields.
func (t *Translator) combinationObject(cond query.Condition) Where {
	out := Where{}
	for key, val := range cond {
		t.field(out, key, val, false)
	}
	return out
}

// field translates key/val into out. Nested Conditions are walked down to
// their leaves so that dotted keys and re-homed paths behave the same.
func (t *Translator) field(out Where, key string, val any, topLevel bool) {
	if cond, ok := query.AsCondition(val); ok && !isOperatorObject(cond) {
		for child, v := range cond {
			t.field(out, key+"."+child, v, topLevel)
		}
		return
	}

	if t.isRelation(key) {
		t.relation(out, key, val)
		return
	}

	// Inside combinators primitives are copied verbatim.
	leaf, ok := val, true
	if topLevel || !query.IsPrimitive(val) {
		leaf, ok = leafValue(val)
	}
	if !ok {
		return
	}

	path := strings.Split(key, ".")
	merge(out, nest(path, leaf, false))
}

// isRelation reports whether the path of key without its field segment is
// a registered to-many relation.
func (t *Translator) isRelation(key string) bool {
	idx := strings.LastIndex(key, ".")
	if idx <= 0 {
		return false
	}
	_, ok := t.many[key[:idx]]
	return ok
}

// relation flattens "a.b.c" into {a: {some: {b: {some: {c: leaf}}}}} and
// merges it with filters already collected on the same relation.
func (t *Translator) relation(out Where, key string, val any) {
	leaf, ok := leafValue(val)
	if !ok {
		return
	}
	merge(out, nest(strings.Split(key, "."), leaf, true))
}

// nest builds the document for path, innermost segment first. With
// quantified set every relation segment is wrapped in {some: ...}.
func nest(path []string, leaf any, quantified bool) Where {
	segments := make([]string, len(path))
	for i, s := range path {
		segments[len(path)-1-i] = s
	}

	doc := Where{segments[0]: leaf}
	for _, seg := range segments[1:] {
		if quantified {
			doc = Where{seg: Where{someKey: doc}}
		} else {
			doc = Where{seg: doc}
		}
	}
	return doc
}

// merge folds src into dst, uniting nested documents key by key.
func merge(dst, src Where) {
	for k, v := range src {
		if existing, ok := dst[k].(Where); ok {
			if incoming, ok := v.(Where); ok {
				merge(existing, incoming)
				continue
			}
		}
		dst[k] = v
	}
}

// leafValue translates a search value or an operator object.
func leafValue(val any) (any, bool) {
	if query.IsPrimitive(val) {
		return searchValue(val), true
	}
	cond, ok := query.AsCondition(val)
	if !ok {
		logger.Debug("where_value_ignored", map[string]any{"value": val})
		return nil, false
	}
	filter := Where{}
	for op, v := range cond {
		name, known := operators[query.WhereOperator(op)]
		if !known {
			logger.Warn("unknown_where_operator", map[string]any{"operator": op})
			continue
		}
		filter[name] = v
	}
	if len(filter) == 0 {
		return nil, false
	}
	return filter, true
}

// searchValue maps the "$isnull" literal to nil.
func searchValue(val any) any {
	if s, ok := val.(string); ok && s == query.IsNull {
		return nil
	}
	return val
}

// isOperatorObject reports whether cond is a WhereCondition rather than a
// nested Condition: at least one key is an operator token.
func isOperatorObject(cond query.Condition) bool {
	for k := range cond {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}
