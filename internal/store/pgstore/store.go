// Package pgstore serves CRUD resources from Postgres. Translated queries
// are compiled to SQL with squirrel and executed through pgx.
package pgstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"CrudAPI/internal/adapter"
	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/logger"
	"CrudAPI/internal/model"
	"CrudAPI/internal/query"
)

// Querier is the part of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements adapter.Adapter for the resources of a registry.
type Store struct {
	db     Querier
	reg    model.Registry
	parser *prisma.QueryParser
}

var _ adapter.Adapter[*prisma.Query] = (*Store)(nil)

// New builds a store. maxDepth bounds the derived to-many relation paths.
func New(db Querier, reg model.Registry, maxDepth int) *Store {
	return &Store{
		db:     db,
		reg:    reg,
		parser: prisma.NewQueryParser(reg.ManyRelationsIndex(maxDepth)),
	}
}

func (s *Store) Resources() []string {
	return s.reg.Names()
}

func (s *Store) resource(name string) (*model.Resource, error) {
	res := s.reg.Get(name)
	if res == nil {
		return nil, fmt.Errorf("%w: unknown resource %q", adapter.ErrInvalidQuery, name)
	}
	return res, nil
}

// ParseQuery translates parsed and compiles it once so that unknown fields
// are rejected before anything runs.
func (s *Store) ParseQuery(resource string, parsed *query.ParsedQuery) (*prisma.Query, error) {
	res, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	q, err := s.parser.ParseQuery(resource, parsed)
	if err != nil {
		return nil, err
	}
	st, err := buildSelect(res, q)
	if err != nil {
		return nil, err
	}
	if _, _, err := st.sb.ToSql(); err != nil {
		return nil, fmt.Errorf("compile %s query: %w", resource, err)
	}
	return q, nil
}

// SelectSQL renders the list query of q without running it.
func (s *Store) SelectSQL(resource string, q *prisma.Query) (string, []any, error) {
	res, err := s.resource(resource)
	if err != nil {
		return "", nil, err
	}
	st, err := buildSelect(res, q)
	if err != nil {
		return "", nil, err
	}
	return st.sb.ToSql()
}

func (s *Store) GetAll(ctx context.Context, resource string, q *prisma.Query) ([]adapter.Record, error) {
	res, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	st, err := buildSelect(res, q)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, res, st)
}

func (s *Store) GetOne(ctx context.Context, resource string, id any, q *prisma.Query) (adapter.Record, error) {
	res, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	return s.getOne(ctx, res, id, q)
}

func (s *Store) getOne(ctx context.Context, res *model.Resource, id any, q *prisma.Query) (adapter.Record, error) {
	st, err := buildOne(res, id, q)
	if err != nil {
		return nil, err
	}
	records, err := s.fetch(ctx, res, st)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

func (s *Store) Create(ctx context.Context, resource string, body adapter.Record, q *prisma.Query) (adapter.Record, error) {
	res, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	stmt, err := buildInsert(res, body)
	if err != nil {
		return nil, err
	}
	created, err := s.exec(ctx, stmt)
	if err != nil || created == nil {
		return created, err
	}
	if !hasProjection(q) {
		return created, nil
	}
	return s.getOne(ctx, res, created[res.GetPrimaryKey()], q)
}

func (s *Store) Update(ctx context.Context, resource string, id any, body adapter.Record, q *prisma.Query) (adapter.Record, error) {
	res, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	stmt, err := buildUpdate(res, id, body)
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return s.getOne(ctx, res, id, q)
	}
	updated, err := s.exec(ctx, stmt)
	if err != nil || updated == nil {
		return updated, err
	}
	if !hasProjection(q) {
		return updated, nil
	}
	return s.getOne(ctx, res, updated[res.GetPrimaryKey()], q)
}

// Delete removes the row and returns it as it was, projected by q.
func (s *Store) Delete(ctx context.Context, resource string, id any, q *prisma.Query) (adapter.Record, error) {
	res, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	var before adapter.Record
	if hasProjection(q) {
		if before, err = s.getOne(ctx, res, id, q); err != nil || before == nil {
			return nil, err
		}
	}
	deleted, err := s.exec(ctx, buildDelete(res, id))
	if err != nil || before != nil {
		return before, err
	}
	return deleted, nil
}

func (s *Store) GetPaginationData(ctx context.Context, resource string, q *prisma.Query, opts adapter.PaginationOptions) (adapter.PaginationData, error) {
	res, err := s.resource(resource)
	if err != nil {
		return adapter.PaginationData{}, err
	}
	sb, err := buildCount(res, q)
	if err != nil {
		return adapter.PaginationData{}, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return adapter.PaginationData{}, err
	}
	logger.Debug("sql", map[string]any{"resource": resource, "sql": sqlStr, "args": args})

	var total int64
	if err := s.db.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return adapter.PaginationData{}, fmt.Errorf("count %s: %w", resource, err)
	}
	return adapter.NewPaginationData(total, opts), nil
}

func hasProjection(q *prisma.Query) bool {
	return q != nil && (q.Select != nil || q.Include != nil)
}

func (s *Store) query(ctx context.Context, stmt squirrel.Sqlizer) ([]adapter.Record, error) {
	sqlStr, args, err := stmt.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql", map[string]any{"sql": sqlStr, "args": args})

	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	records := make([]adapter.Record, len(maps))
	for i, m := range maps {
		records[i] = adapter.Record(m)
	}
	return records, nil
}

// exec runs a RETURNING statement and returns the first row, nil when no
// row was affected.
func (s *Store) exec(ctx context.Context, stmt squirrel.Sqlizer) (adapter.Record, error) {
	records, err := s.query(ctx, stmt)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// fetch runs st, loads its relations and drops the helper columns.
func (s *Store) fetch(ctx context.Context, res *model.Resource, st *statement) ([]adapter.Record, error) {
	records, err := s.query(ctx, st.sb)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, res, records, st.proj); err != nil {
		return nil, err
	}
	strip(records, st.helpers)
	return records, nil
}

type loaded struct {
	name   string
	many   bool
	local  string
	groups map[string][]adapter.Record
}

// loadRelations runs one query per relation of proj, in parallel, and
// attaches the children to their parents.
func (s *Store) loadRelations(ctx context.Context, res *model.Resource, records []adapter.Record, proj *projection) error {
	if len(proj.relations) == 0 {
		return nil
	}

	names := sortedKeys(proj.relations)
	results := make([]loaded, len(names))
	g, gctx := errgroup.WithContext(ctx)

	for i, name := range names {
		load := proj.relations[name]
		local, remote := load.rel.Keys()
		results[i] = loaded{name: name, many: load.rel.IsMany(), local: local}

		ids := distinctValues(records, local)
		if len(ids) == 0 {
			continue
		}
		i, name := i, name
		g.Go(func() error {
			target := load.rel.Target()
			children, err := s.fetch(gctx, target, buildRelated(load.rel, load.proj, ids))
			if err != nil {
				return fmt.Errorf("load %s.%s: %w", res.Name, name, err)
			}
			groups := make(map[string][]adapter.Record)
			for _, child := range children {
				k := key(child[remote])
				groups[k] = append(groups[k], child)
			}
			if !load.proj.selects(target, remote) {
				strip(children, []string{remote})
			}
			results[i].groups = groups
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("load_relations_failed", map[string]any{
			"resource": res.Name,
			"error":    err.Error(),
		})
		return err
	}

	for _, r := range results {
		for _, rec := range records {
			children := r.groups[key(rec[r.local])]
			if rec[r.local] == nil {
				children = nil
			}
			if r.many {
				if children == nil {
					children = []adapter.Record{}
				}
				rec[r.name] = children
				continue
			}
			if len(children) > 0 {
				rec[r.name] = children[0]
			} else {
				rec[r.name] = nil
			}
		}
	}
	return nil
}

func distinctValues(records []adapter.Record, col string) []any {
	seen := map[string]struct{}{}
	var out []any
	for _, rec := range records {
		v := rec[col]
		if v == nil {
			continue
		}
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// key groups values of int4/int8 or text/uuid columns alike.
func key(v any) string {
	return fmt.Sprint(v)
}

func strip(records []adapter.Record, cols []string) {
	if len(cols) == 0 {
		return
	}
	for _, rec := range records {
		for _, col := range cols {
			delete(rec, col)
		}
	}
}
