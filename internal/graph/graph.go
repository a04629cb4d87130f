package graph

import (
	"pyuml/internal/model"
)

// Edge is one inheritance relation: Child lists Parent among its
// declared bases. Parent may not exist in the registry.
type Edge struct {
	Parent string
	Child  string
}

// Hierarchy is the parent→child view derived from a finished registry.
// It never mutates the registry and goes stale if the registry is
// re-extracted; rebuild it per pass.
type Hierarchy struct {
	order    []string
	parents  map[string][]string
	children map[string][]string
	known    map[string]bool
}

// Build derives the hierarchy from a registry. Iteration helpers
// follow registry order so downstream output stays deterministic.
func Build(reg *model.Registry) *Hierarchy {
	h := &Hierarchy{
		parents:  make(map[string][]string),
		children: make(map[string][]string),
		known:    make(map[string]bool),
	}
	if reg == nil {
		return h
	}
	h.order = reg.Names()
	for _, name := range h.order {
		h.known[name] = true
	}
	for _, name := range h.order {
		c, ok := reg.Get(name)
		if !ok || c == nil {
			continue
		}
		h.parents[name] = append([]string(nil), c.ParentNames...)
		for _, parent := range c.ParentNames {
			h.children[parent] = append(h.children[parent], name)
		}
	}
	return h
}

// Edges lists every (parent, child) pair, outer loop over classes in
// registry order, inner loop over each class's parent list. This is
// the same order the diagram emits its arrows in.
func (h *Hierarchy) Edges() []Edge {
	var edges []Edge
	for _, name := range h.order {
		for _, parent := range h.parents[name] {
			edges = append(edges, Edge{Parent: parent, Child: name})
		}
	}
	return edges
}

// Parents returns the declared base names of a class, as written.
func (h *Hierarchy) Parents(name string) []string {
	return append([]string(nil), h.parents[name]...)
}

// Subclasses returns the classes that list name as a direct base.
func (h *Hierarchy) Subclasses(name string) []string {
	return append([]string(nil), h.children[name]...)
}

// Descendants returns every class reachable from name through the
// subclass relation, breadth first. Inheritance cycles cannot happen
// in valid Python, but the walk guards against them anyway since
// parent names are unresolved text.
func (h *Hierarchy) Descendants(name string) []string {
	var out []string
	seen := map[string]bool{name: true}
	queue := append([]string(nil), h.children[name]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, h.children[cur]...)
	}
	return out
}

// Roots returns the classes none of whose declared parents are in the
// registry. A class inheriting only from external names counts as a
// root of the scanned set.
func (h *Hierarchy) Roots() []string {
	var roots []string
	for _, name := range h.order {
		local := false
		for _, parent := range h.parents[name] {
			if h.known[parent] {
				local = true
				break
			}
		}
		if !local {
			roots = append(roots, name)
		}
	}
	return roots
}
