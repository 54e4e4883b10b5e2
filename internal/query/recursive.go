package query

import "strings"

// Insert marks path as selected, creating intermediate nodes as needed.
// Paths combine as a set union: a node that already has children keeps them
// when a shorter path ends on it, and a leaf becomes a node when a longer
// path passes through it.
func (f RecursiveField) Insert(path ...string) {
	node := f
	for i, seg := range path {
		child, exists := node[seg]
		if i == len(path)-1 {
			if !exists {
				node[seg] = nil
			}
			return
		}
		if child == nil {
			child = RecursiveField{}
			node[seg] = child
		}
		node = child
	}
}

// Clone returns a deep copy of f.
func (f RecursiveField) Clone() RecursiveField {
	if f == nil {
		return nil
	}
	cp := make(RecursiveField, len(f))
	for k, v := range f {
		cp[k] = v.Clone()
	}
	return cp
}

// ParseRecursive builds a projection tree from "a,b.c,b.c.d".
func ParseRecursive(list string) RecursiveField {
	tree := RecursiveField{}
	for _, token := range strings.Split(list, ",") {
		path := splitPath(token)
		if len(path) == 0 {
			continue
		}
		tree.Insert(path...)
	}
	return tree
}

// splitPath splits a dotted path, dropping blank segments.
func splitPath(token string) []string {
	parts := strings.Split(strings.TrimSpace(token), ".")
	path := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			path = append(path, p)
		}
	}
	return path
}
