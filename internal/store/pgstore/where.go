package pgstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"CrudAPI/internal/adapter"
	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/model"
)

const mainAlias = "t0"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", adapter.ErrInvalidQuery, fmt.Sprintf(format, args...))
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func column(alias, col string) string {
	return pgx.Identifier{alias, col}.Sanitize()
}

func tableName(res *model.Resource) string {
	return pgx.Identifier(strings.Split(res.Table, ".")).Sanitize()
}

func tableAs(res *model.Resource, alias string) string {
	return tableName(res) + " AS " + quote(alias)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asWhere(v any) (prisma.Where, bool) {
	switch w := v.(type) {
	case prisma.Where:
		return w, true
	case map[string]any:
		return prisma.Where(w), true
	}
	return nil, false
}

// compiler turns a translated where document into SQL conditions. Relation
// filters become correlated EXISTS sub-selects with their own table alias.
type compiler struct {
	aliases int
}

func (c *compiler) nextAlias() string {
	c.aliases++
	return fmt.Sprintf("t%d", c.aliases)
}

// where compiles every key of w, joined with AND.
func (c *compiler) where(res *model.Resource, alias string, w prisma.Where) (squirrel.And, error) {
	conds := squirrel.And{}
	for _, key := range sortedKeys(w) {
		cond, err := c.entry(res, alias, key, w[key])
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func (c *compiler) entry(res *model.Resource, alias, key string, val any) (squirrel.Sqlizer, error) {
	switch key {
	case "AND":
		return c.and(res, alias, val)
	case "OR":
		return c.or(res, alias, val)
	case "NOT":
		return c.not(res, alias, val)
	}
	if rel := res.GetRelation(key); rel != nil {
		return c.relation(res, alias, key, rel, val)
	}
	if !res.HasColumn(key) {
		return nil, invalid("unknown field %q on %s", key, res.Name)
	}
	return filter(res, column(alias, key), key, val)
}

// bodies normalises a combinator body to its list of documents.
func bodies(name string, val any) ([]prisma.Where, bool, error) {
	if w, ok := asWhere(val); ok {
		return []prisma.Where{w}, false, nil
	}
	switch list := val.(type) {
	case []prisma.Where:
		return list, true, nil
	case []any:
		out := make([]prisma.Where, 0, len(list))
		for _, item := range list {
			w, ok := asWhere(item)
			if !ok {
				return nil, false, invalid("%s items must be objects", name)
			}
			out = append(out, w)
		}
		return out, true, nil
	}
	return nil, false, invalid("%s needs an object or a list of objects", name)
}

func (c *compiler) and(res *model.Resource, alias string, val any) (squirrel.Sqlizer, error) {
	docs, _, err := bodies("AND", val)
	if err != nil {
		return nil, err
	}
	out := squirrel.And{}
	for _, doc := range docs {
		cond, err := c.where(res, alias, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

// or matches when any listed document matches. An object body offers each
// of its keys as one alternative.
func (c *compiler) or(res *model.Resource, alias string, val any) (squirrel.Sqlizer, error) {
	docs, isList, err := bodies("OR", val)
	if err != nil {
		return nil, err
	}
	out := squirrel.Or{}
	if !isList {
		for _, key := range sortedKeys(docs[0]) {
			cond, err := c.entry(res, alias, key, docs[0][key])
			if err != nil {
				return nil, err
			}
			out = append(out, cond)
		}
		return out, nil
	}
	for _, doc := range docs {
		cond, err := c.where(res, alias, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

// not negates every listed document.
func (c *compiler) not(res *model.Resource, alias string, val any) (squirrel.Sqlizer, error) {
	docs, _, err := bodies("NOT", val)
	if err != nil {
		return nil, err
	}
	out := squirrel.And{}
	for _, doc := range docs {
		cond, err := c.where(res, alias, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, squirrel.Expr("NOT (?)", cond))
	}
	return out, nil
}

// relation compiles {some: doc} or a direct nested doc into
// EXISTS (SELECT 1 FROM target WHERE join AND doc).
func (c *compiler) relation(res *model.Resource, alias, name string, rel *model.Relation, val any) (squirrel.Sqlizer, error) {
	body, ok := asWhere(val)
	if !ok {
		return nil, invalid("relation %q on %s needs a filter object", name, res.Name)
	}
	if inner, ok := body["some"]; ok && len(body) == 1 {
		if body, ok = asWhere(inner); !ok {
			return nil, invalid("relation %q on %s: some needs a filter object", name, res.Name)
		}
	}

	target := rel.Target()
	if target == nil {
		return nil, fmt.Errorf("relation %s.%s is not linked", res.Name, name)
	}
	sub := c.nextAlias()
	local, remote := rel.Keys()

	sb := squirrel.Select("1").
		From(tableAs(target, sub)).
		Where(column(sub, remote) + " = " + column(alias, local))
	if len(body) > 0 {
		cond, err := c.where(target, sub, body)
		if err != nil {
			return nil, err
		}
		sb = sb.Where(cond)
	}
	return squirrel.Expr("EXISTS (?)", sb), nil
}

// filter compiles a search value or an operator object on one column.
func filter(res *model.Resource, col, field string, val any) (squirrel.Sqlizer, error) {
	ops, ok := asWhere(val)
	if !ok {
		return squirrel.Eq{col: val}, nil
	}
	if len(ops) == 0 {
		return nil, invalid("empty filter on %s.%s", res.Name, field)
	}

	out := squirrel.And{}
	for _, op := range sortedKeys(ops) {
		v := ops[op]
		var cond squirrel.Sqlizer
		switch op {
		case "equals":
			cond = squirrel.Eq{col: v}
		case "not":
			cond = squirrel.NotEq{col: v}
		case "gt":
			cond = squirrel.Gt{col: v}
		case "gte":
			cond = squirrel.GtOrEq{col: v}
		case "lt":
			cond = squirrel.Lt{col: v}
		case "lte":
			cond = squirrel.LtOrEq{col: v}
		case "contains", "startsWith", "endsWith":
			s, ok := v.(string)
			if !ok {
				return nil, invalid("%s on %s.%s needs a string", op, res.Name, field)
			}
			cond = squirrel.Like{col: likePattern(op, s)}
		case "in", "notIn":
			list, ok := v.([]any)
			if !ok {
				return nil, invalid("%s on %s.%s needs a list", op, res.Name, field)
			}
			if op == "in" {
				cond = squirrel.Eq{col: list}
			} else {
				cond = squirrel.NotEq{col: list}
			}
		default:
			return nil, invalid("unsupported operator %q on %s.%s", op, res.Name, field)
		}
		out = append(out, cond)
	}
	return out, nil
}

func likePattern(op, s string) string {
	s = likeEscaper.Replace(s)
	switch op {
	case "startsWith":
		return s + "%"
	case "endsWith":
		return "%" + s
	}
	return "%" + s + "%"
}
