package prisma

import (
	"encoding/json"

	"CrudAPI/internal/query"
)

// TranslateProjection converts a select/include tree: leaves become true,
// nested trees become {keyword: ...}.
func TranslateProjection(tree query.RecursiveField, keyword Keyword) Projection {
	out := make(Projection, len(tree))
	for field, child := range tree {
		if child == nil {
			out[field] = true
			continue
		}
		out[field] = Projection{string(keyword): TranslateProjection(child, keyword)}
	}
	return out
}

var orderDirections = map[query.OrderDirection]string{
	query.Asc:  "asc",
	query.Desc: "desc",
}

// TranslateOrderBy maps $asc/$desc to asc/desc.
func TranslateOrderBy(orderBy query.OrderByField) OrderBy {
	out := make(OrderBy, len(orderBy))
	for field, dir := range orderBy {
		if v, ok := orderDirections[dir]; ok {
			out[field] = v
		}
	}
	return out
}

// TranslateCursor keeps the primitive-valued keys of cursor and requires
// exactly one of them.
func TranslateCursor(cursor map[string]any) (Cursor, error) {
	out := Cursor{}
	for k, v := range cursor {
		if query.IsPrimitive(v) {
			out[k] = v
		}
	}
	if len(out) != 1 {
		return nil, &ValidationError{
			Field:  "cursor",
			Reason: "cursor needs to be an object with exactly 1 property with a primitive value",
		}
	}
	return out, nil
}

// ParseCursor decodes the raw JSON cursor parameter and translates it.
func ParseCursor(raw string) (Cursor, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, &ValidationError{Field: "cursor", Reason: "must be a JSON object", Err: err}
	}
	return TranslateCursor(obj)
}

// Translate assembles the backend query. Nothing is returned when any part
// fails, so a partial query can never reach the store.
func (t *Translator) Translate(parsed *query.ParsedQuery) (*Query, error) {
	out := &Query{}
	if parsed == nil {
		return out, nil
	}

	if parsed.Cursor != "" {
		cursor, err := ParseCursor(parsed.Cursor)
		if err != nil {
			return nil, err
		}
		out.Cursor = cursor
	}
	if parsed.Select != nil {
		out.Select = TranslateProjection(parsed.Select, SelectKeyword)
	}
	if parsed.Include != nil {
		out.Include = TranslateProjection(parsed.Include, IncludeKeyword)
	}
	if parsed.Where != nil {
		out.Where = t.Where(parsed.Where)
	}
	if parsed.OrderBy != nil {
		out.OrderBy = TranslateOrderBy(parsed.OrderBy)
	}
	if parsed.Limit != nil {
		take := *parsed.Limit
		out.Take = &take
	}
	if parsed.Skip != nil {
		skip := *parsed.Skip
		out.Skip = &skip
	}
	out.Distinct = parsed.Distinct

	return out, nil
}

// TranslateQuery translates parsed with a one-off translator.
func TranslateQuery(parsed *query.ParsedQuery, manyRelations []string) (*Query, error) {
	return NewTranslator(manyRelations).Translate(parsed)
}

// QueryParser holds one Translator per resource.
type QueryParser struct {
	translators map[string]*Translator
}

// NewQueryParser builds translators from resource -> to-many relation paths.
func NewQueryParser(manyRelations map[string][]string) *QueryParser {
	p := &QueryParser{translators: make(map[string]*Translator, len(manyRelations))}
	for resource, paths := range manyRelations {
		p.translators[resource] = NewTranslator(paths)
	}
	return p
}

// ParseQuery translates parsed for resource. Unknown resources translate
// with no relation paths.
func (p *QueryParser) ParseQuery(resource string, parsed *query.ParsedQuery) (*Query, error) {
	t, ok := p.translators[resource]
	if !ok {
		t = NewTranslator(nil)
	}
	return t.Translate(parsed)
}
