package model

import "CrudAPI/internal/route"

// Relation kinds.
const (
	HasMany   = "has_many"
	HasOne    = "has_one"
	BelongsTo = "belongs_to"
)

// Resource describes one CRUD resource in the configuration.
type Resource struct {
	Name       string               `yaml:"-"` // file name without extension
	Table      string               `yaml:"table"`
	PrimaryKey string               `yaml:"primary_key"`
	Columns    []string             `yaml:"columns"` // optional whitelist for filters and writes
	Relations  map[string]*Relation `yaml:"relations"`
	// ManyRelations overrides the to-many paths derived from Relations.
	ManyRelations []string `yaml:"many_relations"`

	Only    []route.RouteType `yaml:"only"`
	Exclude []route.RouteType `yaml:"exclude"`
	// IDType is "auto" (numeric ids become integers) or "string".
	IDType string `yaml:"id_type"`
}

// Relation links a resource to another one.
type Relation struct {
	Type     string `yaml:"type"`      // has_many, has_one, belongs_to
	Model    string `yaml:"model"`     // target resource name
	FK       string `yaml:"fk"`        // has_*: column on target, belongs_to: column on owner
	PK       string `yaml:"pk"`        // has_*: column on owner, belongs_to: column on target
	MaxDepth int    `yaml:"max_depth"` // limits self-referencing walks

	ref *Resource
}

// Target returns the linked target resource.
func (r *Relation) Target() *Resource {
	return r.ref
}

// Keys returns the join columns: local on the owner table, remote on the
// target table.
func (r *Relation) Keys() (local, remote string) {
	if r.Type == BelongsTo {
		return r.FK, r.PK
	}
	return r.PK, r.FK
}

// IsMany reports whether the relation yields a list of rows.
func (r *Relation) IsMany() bool {
	return r.Type == HasMany
}

// GetPrimaryKey returns the primary key column, "id" when not configured.
func (r *Resource) GetPrimaryKey() string {
	if r.PrimaryKey != "" {
		return r.PrimaryKey
	}
	return "id"
}

// GetRelation returns the relation by name or nil.
func (r *Resource) GetRelation(name string) *Relation {
	if r == nil || r.Relations == nil {
		return nil
	}
	return r.Relations[name]
}

// HasColumn reports whether col may be used. Without a whitelist every
// column is allowed.
func (r *Resource) HasColumn(col string) bool {
	if len(r.Columns) == 0 {
		return true
	}
	if col == r.GetPrimaryKey() {
		return true
	}
	for _, c := range r.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// FormatID converts a raw path id according to IDType.
func (r *Resource) FormatID(id string) any {
	if r.IDType == "string" {
		return id
	}
	return route.FormatResourceID(id)
}
