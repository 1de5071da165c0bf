package graph

import (
	"fmt"
	"reflect"
	"slices"
)

// InvariantError describes a structural violation found by Validate.
type InvariantError struct {
	NodeID  string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Message)
}

// FromNodes builds a forest from loose nodes and an ordered root list, as
// produced by a store. The result is validated before it is returned.
func FromNodes(roots []string, nodes []*Node) (*Forest, error) {
	f := NewForest()
	for _, n := range nodes {
		if _, dup := f.nodes[n.ID]; dup {
			return nil, &InvariantError{NodeID: n.ID, Message: "duplicate id"}
		}
		f.nodes[n.ID] = n.Clone()
		f.index.intern(n.ID)
	}
	f.roots = slices.Clone(roots)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the forest invariants: every ID is unique and reachable
// from exactly one place, parent references match containment, and there
// are no cycles or orphans.
func (f *Forest) Validate() error {
	seen := make(map[string]struct{}, len(f.nodes))
	var visit func(id, parent string) error
	visit = func(id, parent string) error {
		n, ok := f.nodes[id]
		if !ok {
			return &InvariantError{NodeID: id, Message: "referenced but missing"}
		}
		if _, dup := seen[id]; dup {
			return &InvariantError{NodeID: id, Message: "reachable from more than one place"}
		}
		seen[id] = struct{}{}
		if n.ID != id {
			return &InvariantError{NodeID: id, Message: fmt.Sprintf("arena key does not match node id %q", n.ID)}
		}
		if n.ParentID != parent {
			return &InvariantError{NodeID: id, Message: fmt.Sprintf("parent is %q, contained by %q", n.ParentID, parent)}
		}
		for _, c := range n.Children {
			if err := visit(c, id); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range f.roots {
		if err := visit(r, ""); err != nil {
			return err
		}
	}
	if len(seen) != len(f.nodes) {
		for id := range f.nodes {
			if _, ok := seen[id]; !ok {
				return &InvariantError{NodeID: id, Message: "orphaned"}
			}
		}
	}
	return nil
}

// Equal reports whether two forests hold the same nodes in the same shape.
func (f *Forest) Equal(o *Forest) bool {
	if f == o {
		return true
	}
	if f == nil || o == nil {
		return false
	}
	if !slices.Equal(f.roots, o.roots) || len(f.nodes) != len(o.nodes) {
		return false
	}
	for id, n := range f.nodes {
		m, ok := o.nodes[id]
		if !ok || !reflect.DeepEqual(n, m) {
			return false
		}
	}
	return true
}
