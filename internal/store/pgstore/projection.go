package pgstore

import (
	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/model"
)

// projection is the resolved select/include tree of one resource level.
// A nil scalars list means every column.
type projection struct {
	scalars   []string
	relations map[string]*relationLoad
}

type relationLoad struct {
	rel  *model.Relation
	proj *projection
}

// selects reports whether col is part of the result rows of res.
func (p *projection) selects(res *model.Resource, col string) bool {
	if p.scalars == nil || col == res.GetPrimaryKey() {
		return true
	}
	for _, c := range p.scalars {
		if c == col {
			return true
		}
	}
	return false
}

// columns returns the column list for res. keep names columns the caller
// needs (join keys); helpers are the relation keys fetched only to load
// relations and removed afterwards.
func (p *projection) columns(res *model.Resource, alias string, keep []string) (cols, helpers []string) {
	if p.scalars == nil {
		return []string{quote(alias) + ".*"}, nil
	}

	seen := map[string]bool{}
	add := func(col string) bool {
		if seen[col] {
			return false
		}
		seen[col] = true
		cols = append(cols, column(alias, col))
		return true
	}

	add(res.GetPrimaryKey())
	for _, col := range p.scalars {
		add(col)
	}
	for _, col := range keep {
		add(col)
	}
	for _, name := range sortedKeys(p.relations) {
		local, _ := p.relations[name].rel.Keys()
		if add(local) {
			helpers = append(helpers, local)
		}
	}
	return cols, helpers
}

// newProjection resolves the select or include document of q for res.
func newProjection(res *model.Resource, q *prisma.Query) (*projection, error) {
	if q == nil {
		return &projection{}, nil
	}
	switch {
	case q.Select != nil && q.Include != nil:
		return nil, invalid("select and include cannot be combined")
	case q.Select != nil:
		return parseProjection(res, q.Select, true)
	case q.Include != nil:
		return parseProjection(res, q.Include, false)
	}
	return &projection{}, nil
}

func parseProjection(res *model.Resource, doc prisma.Projection, selectMode bool) (*projection, error) {
	p := &projection{}
	if selectMode {
		p.scalars = []string{}
	}
	for _, key := range sortedKeys(doc) {
		val := doc[key]
		if rel := res.GetRelation(key); rel != nil {
			child, ok, err := childProjection(rel.Target(), key, val)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if p.relations == nil {
				p.relations = map[string]*relationLoad{}
			}
			p.relations[key] = &relationLoad{rel: rel, proj: child}
			continue
		}

		if !selectMode {
			return nil, invalid("include: %q is not a relation of %s", key, res.Name)
		}
		if !res.HasColumn(key) {
			return nil, invalid("unknown field %q on %s", key, res.Name)
		}
		switch v := val.(type) {
		case bool:
			if v {
				p.scalars = append(p.scalars, key)
			}
		default:
			return nil, invalid("field %q on %s has no nested fields", key, res.Name)
		}
	}
	return p, nil
}

// childProjection reads true / false / {select: ...} / {include: ...}.
func childProjection(target *model.Resource, name string, val any) (*projection, bool, error) {
	switch v := val.(type) {
	case bool:
		if !v {
			return nil, false, nil
		}
		return &projection{}, true, nil
	case prisma.Projection:
		return nestedProjection(target, name, v)
	case map[string]any:
		return nestedProjection(target, name, prisma.Projection(v))
	}
	return nil, false, invalid("relation %q needs true or a nested projection", name)
}

func nestedProjection(target *model.Resource, name string, doc prisma.Projection) (*projection, bool, error) {
	if len(doc) != 1 {
		return nil, false, invalid("relation %q needs exactly one of select or include", name)
	}
	for kw, sub := range doc {
		var tree prisma.Projection
		switch v := sub.(type) {
		case prisma.Projection:
			tree = v
		case map[string]any:
			tree = prisma.Projection(v)
		default:
			return nil, false, invalid("relation %q: %s needs an object", name, kw)
		}
		switch prisma.Keyword(kw) {
		case prisma.SelectKeyword:
			p, err := parseProjection(target, tree, true)
			return p, err == nil, err
		case prisma.IncludeKeyword:
			p, err := parseProjection(target, tree, false)
			return p, err == nil, err
		}
		return nil, false, invalid("relation %q: unknown keyword %q", name, kw)
	}
	return nil, false, nil
}
