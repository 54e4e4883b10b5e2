// Package model loads the YAML resource definitions: tables, keys,
// relations and route exposure.
package model

import (
	"fmt"
	"sort"
)

// Registry maps resource names to their definitions.
type Registry map[string]*Resource

// InitRegistry loads and links the resources of dir.
func InitRegistry(dir string) (Registry, error) {
	reg, err := LoadResourcesFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	if err := reg.Link(); err != nil {
		return nil, fmt.Errorf("link error: %w", err)
	}
	return reg, nil
}

// Get returns the resource or nil.
func (reg Registry) Get(name string) *Resource {
	return reg[name]
}

// Names returns the resource names in lexical order.
func (reg Registry) Names() []string {
	names := make([]string, 0, len(reg))
	for name := range reg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ManyRelationPaths lists the dotted relation paths of name that end in a
// has_many relation, e.g. "posts" or "posts.comments". Paths are walked
// through every relation kind up to maxDepth segments. An explicit
// many_relations list is returned as is.
func (reg Registry) ManyRelationPaths(name string, maxDepth int) []string {
	res := reg[name]
	if res == nil {
		return nil
	}
	if res.ManyRelations != nil {
		return append([]string(nil), res.ManyRelations...)
	}

	var paths []string
	var walk func(r *Resource, prefix string, depth int)
	walk = func(r *Resource, prefix string, depth int) {
		for relName, rel := range r.Relations {
			limit, _ := resolveMaxDepth(rel.MaxDepth, maxDepth)
			if depth > limit {
				continue
			}
			path := relName
			if prefix != "" {
				path = prefix + "." + relName
			}
			if rel.IsMany() {
				paths = append(paths, path)
			}
			if target := rel.Target(); target != nil {
				walk(target, path, depth+1)
			}
		}
	}
	walk(res, "", 1)

	sort.Strings(paths)
	return paths
}

// ManyRelationsIndex returns ManyRelationPaths for every resource.
func (reg Registry) ManyRelationsIndex(maxDepth int) map[string][]string {
	idx := make(map[string][]string, len(reg))
	for name := range reg {
		idx[name] = reg.ManyRelationPaths(name, maxDepth)
	}
	return idx
}

// Dependents lists the other resources whose rows can embed or filter on
// name through a chain of relations, in lexical order.
func (reg Registry) Dependents(name string) []string {
	// reverse edges: target -> owners
	owners := make(map[string][]string)
	for owner, res := range reg {
		for _, rel := range res.Relations {
			owners[rel.Model] = append(owners[rel.Model], owner)
		}
	}

	seen := map[string]bool{name: true}
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, owner := range owners[cur] {
			if seen[owner] {
				continue
			}
			seen[owner] = true
			out = append(out, owner)
			queue = append(queue, owner)
		}
	}
	sort.Strings(out)
	return out
}
