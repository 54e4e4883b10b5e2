package pgstore

import (
	"strings"

	"github.com/Masterminds/squirrel"

	"CrudAPI/internal/adapter"
	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/logger"
	"CrudAPI/internal/model"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// statement is a compiled read: the SELECT plus what is needed to finish
// the rows once they are fetched.
type statement struct {
	sb      squirrel.SelectBuilder
	proj    *projection
	helpers []string
}

// buildWhere compiles q.Where for the main table alias.
func buildWhere(res *model.Resource, q *prisma.Query) (squirrel.Sqlizer, error) {
	if q == nil || len(q.Where) == 0 {
		return nil, nil
	}
	c := &compiler{}
	return c.where(res, mainAlias, q.Where)
}

// buildSelect compiles the list query: columns, where, cursor, distinct,
// order and paging.
func buildSelect(res *model.Resource, q *prisma.Query) (*statement, error) {
	proj, err := newProjection(res, q)
	if err != nil {
		return nil, err
	}
	cols, helpers := proj.columns(res, mainAlias, nil)
	sb := psql.Select(cols...).From(tableAs(res, mainAlias))

	where, err := buildWhere(res, q)
	if err != nil {
		return nil, err
	}
	if where != nil {
		sb = sb.Where(where)
	}
	if q == nil {
		return &statement{sb: sb, proj: proj, helpers: helpers}, nil
	}

	orders, err := orderTerms(res, q.OrderBy)
	if err != nil {
		return nil, err
	}

	if q.Cursor != nil {
		cond, err := cursorCondition(res, q.Cursor, q.OrderBy)
		if err != nil {
			return nil, err
		}
		sb = sb.Where(cond)
	}

	if q.Distinct != "" {
		if !res.HasColumn(q.Distinct) || res.GetRelation(q.Distinct) != nil {
			return nil, invalid("cannot use distinct on %q of %s", q.Distinct, res.Name)
		}
		col := column(mainAlias, q.Distinct)
		sb = sb.Options("DISTINCT ON (" + col + ")")
		// DISTINCT ON needs its expression first in ORDER BY.
		dir := "ASC"
		if d, ok := q.OrderBy[q.Distinct]; ok {
			dir = strings.ToUpper(d)
		}
		lead := col + " " + dir
		var rest []string
		for _, o := range orders {
			if o != lead {
				rest = append(rest, o)
			}
		}
		orders = append([]string{lead}, rest...)
	}

	if len(orders) > 0 {
		sb = sb.OrderBy(orders...)
	}
	if q.Take != nil {
		if *q.Take >= 0 {
			sb = sb.Limit(uint64(*q.Take))
		} else {
			logger.Debug("negative_take_ignored", map[string]any{"take": *q.Take})
		}
	}
	if q.Skip != nil && *q.Skip > 0 {
		sb = sb.Offset(uint64(*q.Skip))
	}

	return &statement{sb: sb, proj: proj, helpers: helpers}, nil
}

func orderTerms(res *model.Resource, orderBy prisma.OrderBy) ([]string, error) {
	var out []string
	for _, field := range sortedKeys(orderBy) {
		if !res.HasColumn(field) || res.GetRelation(field) != nil {
			return nil, invalid("cannot order %s by %q", res.Name, field)
		}
		var dir string
		switch orderBy[field] {
		case "asc":
			dir = "ASC"
		case "desc":
			dir = "DESC"
		default:
			return nil, invalid("unknown order direction %q", orderBy[field])
		}
		out = append(out, column(mainAlias, field)+" "+dir)
	}
	return out, nil
}

// cursorCondition starts the page at the cursor row: col >= v, or col <= v
// when the list is ordered descending on the same column.
func cursorCondition(res *model.Resource, cursor prisma.Cursor, orderBy prisma.OrderBy) (squirrel.Sqlizer, error) {
	if len(cursor) != 1 {
		return nil, invalid("cursor needs exactly one field")
	}
	for field, val := range cursor {
		if !res.HasColumn(field) || res.GetRelation(field) != nil {
			return nil, invalid("cannot use cursor on %q of %s", field, res.Name)
		}
		col := column(mainAlias, field)
		if orderBy[field] == "desc" {
			return squirrel.LtOrEq{col: val}, nil
		}
		return squirrel.GtOrEq{col: val}, nil
	}
	return nil, nil
}

// buildOne selects a single row by primary key with the projection of q.
func buildOne(res *model.Resource, id any, q *prisma.Query) (*statement, error) {
	proj, err := newProjection(res, q)
	if err != nil {
		return nil, err
	}
	cols, helpers := proj.columns(res, mainAlias, nil)
	sb := psql.Select(cols...).
		From(tableAs(res, mainAlias)).
		Where(squirrel.Eq{column(mainAlias, res.GetPrimaryKey()): id}).
		Limit(1)
	return &statement{sb: sb, proj: proj, helpers: helpers}, nil
}

// buildRelated selects the rows of rel whose remote key is one of ids.
// The remote key is always fetched; the caller groups by it.
func buildRelated(rel *model.Relation, proj *projection, ids []any) *statement {
	target := rel.Target()
	_, remote := rel.Keys()
	cols, helpers := proj.columns(target, mainAlias, []string{remote})
	sb := psql.Select(cols...).
		From(tableAs(target, mainAlias)).
		Where(squirrel.Eq{column(mainAlias, remote): ids}).
		OrderBy(column(mainAlias, target.GetPrimaryKey()))
	return &statement{sb: sb, proj: proj, helpers: helpers}
}

// buildCount counts the rows matching q.Where, distinct values when
// q.Distinct is set.
func buildCount(res *model.Resource, q *prisma.Query) (squirrel.SelectBuilder, error) {
	expr := "COUNT(*)"
	if q != nil && q.Distinct != "" {
		if !res.HasColumn(q.Distinct) {
			return squirrel.SelectBuilder{}, invalid("cannot use distinct on %q of %s", q.Distinct, res.Name)
		}
		expr = "COUNT(DISTINCT " + column(mainAlias, q.Distinct) + ")"
	}
	sb := psql.Select(expr).From(tableAs(res, mainAlias))
	where, err := buildWhere(res, q)
	if err != nil {
		return sb, err
	}
	if where != nil {
		sb = sb.Where(where)
	}
	return sb, nil
}

// writable checks the body keys against the resource columns.
func writable(res *model.Resource, body adapter.Record) ([]string, error) {
	cols := sortedKeys(body)
	for _, col := range cols {
		if res.GetRelation(col) != nil {
			return nil, invalid("nested writes to relation %q are not supported", col)
		}
		if !res.HasColumn(col) {
			return nil, invalid("unknown field %q on %s", col, res.Name)
		}
	}
	return cols, nil
}

func buildInsert(res *model.Resource, body adapter.Record) (squirrel.Sqlizer, error) {
	cols, err := writable(res, body)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return squirrel.Expr("INSERT INTO " + tableName(res) + " DEFAULT VALUES RETURNING *"), nil
	}
	quoted := make([]string, len(cols))
	values := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = quote(col)
		values[i] = body[col]
	}
	return psql.Insert(tableName(res)).
		Columns(quoted...).
		Values(values...).
		Suffix("RETURNING *"), nil
}

func buildUpdate(res *model.Resource, id any, body adapter.Record) (squirrel.Sqlizer, error) {
	cols, err := writable(res, body)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}
	ub := psql.Update(tableName(res))
	for _, col := range cols {
		ub = ub.Set(quote(col), body[col])
	}
	return ub.Where(squirrel.Eq{quote(res.GetPrimaryKey()): id}).Suffix("RETURNING *"), nil
}

func buildDelete(res *model.Resource, id any) squirrel.Sqlizer {
	return psql.Delete(tableName(res)).
		Where(squirrel.Eq{quote(res.GetPrimaryKey()): id}).
		Suffix("RETURNING *")
}
