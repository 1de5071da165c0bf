package graph

import (
	"errors"
	"log"
	"reflect"
	"slices"

	"github.com/agentic-research/easel/api"
)

var ErrNotFound = errors.New("node not found")

// Props is a property-name to value mapping.
type Props = map[string]any

// Node is a placed component instance.
// Nodes held by a Forest are never modified in place; every mutation
// produces a copy, so a *Node obtained from one snapshot stays valid.
type Node struct {
	ID         string
	Metadata   string   // catalog name of the component
	Kind       api.Kind // cached from the catalog entry at creation
	LibraryTag string
	Base       Props
	Overrides  map[string]Props // breakpoint id -> sparse property layer
	Children   []string         // ordered child IDs
	ParentID   string           // empty for roots
}

// IsContainer reports whether the node's children participate in layout.
func (n *Node) IsContainer() bool {
	return n.Kind == api.KindContainer
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Base = cloneProps(n.Base)
	if n.Overrides != nil {
		c.Overrides = make(map[string]Props, len(n.Overrides))
		for bp, layer := range n.Overrides {
			c.Overrides[bp] = cloneProps(layer)
		}
	}
	c.Children = slices.Clone(n.Children)
	return &c
}

// Forest is the canvas document: an arena of nodes keyed by ID plus the
// ordered list of top-level nodes. Every node in the arena is reachable
// from exactly one root.
type Forest struct {
	nodes map[string]*Node
	roots []string
	index *idIndex
}

// NewForest returns an empty forest.
func NewForest() *Forest {
	return &Forest{
		nodes: make(map[string]*Node),
		roots: []string{},
		index: newIDIndex(),
	}
}

// Len returns the number of nodes in the forest.
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Roots returns the IDs of the top-level nodes in order.
func (f *Forest) Roots() []string {
	return slices.Clone(f.roots)
}

// Find returns a copy of the node with the given id.
// IDs are unique across the forest, so the first match of a
// root-to-leaf depth-first search is the arena entry itself.
func (f *Forest) Find(id string) (*Node, bool) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Has reports whether id is present in the forest.
func (f *Forest) Has(id string) bool {
	_, ok := f.nodes[id]
	return ok
}

// Children returns the ordered child IDs of id.
func (f *Forest) Children(id string) ([]string, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(n.Children), nil
}

// ParentOf returns the ID of the container whose children include id.
func (f *Forest) ParentOf(id string) (string, bool) {
	n, ok := f.nodes[id]
	if !ok || n.ParentID == "" {
		return "", false
	}
	return n.ParentID, true
}

// Walk visits every node depth-first, roots in order, parents before
// children. Returning false from fn stops the walk.
func (f *Forest) Walk(fn func(n *Node, depth int) bool) {
	var visit func(id string, depth int) bool
	visit = func(id string, depth int) bool {
		n, ok := f.nodes[id]
		if !ok {
			return true
		}
		if !fn(n, depth) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	for _, r := range f.roots {
		if !visit(r, 0) {
			return
		}
	}
}

// IDs returns every node ID in depth-first order.
func (f *Forest) IDs() []string {
	ids := make([]string, 0, len(f.nodes))
	f.Walk(func(n *Node, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Subtree is a detached node together with all of its descendants.
// It is the unit moved by remove/insert and held by the clipboard.
type Subtree struct {
	Root  string
	Nodes map[string]*Node
}

// RootNode returns the subtree's top node.
func (s *Subtree) RootNode() *Node {
	return s.Nodes[s.Root]
}

// Clone returns a deep copy of the subtree with the same IDs.
func (s *Subtree) Clone() *Subtree {
	c := &Subtree{Root: s.Root, Nodes: make(map[string]*Node, len(s.Nodes))}
	for id, n := range s.Nodes {
		c.Nodes[id] = n.Clone()
	}
	return c
}

// Reidentify returns a deep copy in which the root and every descendant
// carry a fresh ID from gen. Parent and child references are rewritten.
func (s *Subtree) Reidentify(gen func() string) *Subtree {
	mapping := make(map[string]string, len(s.Nodes))
	for id := range s.Nodes {
		mapping[id] = gen()
	}
	c := &Subtree{Root: mapping[s.Root], Nodes: make(map[string]*Node, len(s.Nodes))}
	for id, n := range s.Nodes {
		nn := n.Clone()
		nn.ID = mapping[id]
		if p, ok := mapping[n.ParentID]; ok {
			nn.ParentID = p
		} else {
			nn.ParentID = ""
		}
		for i, child := range nn.Children {
			nn.Children[i] = mapping[child]
		}
		c.Nodes[nn.ID] = nn
	}
	return c
}

// IDs returns the subtree's IDs, root first, in depth-first order.
func (s *Subtree) IDs() []string {
	var ids []string
	var visit func(id string)
	visit = func(id string) {
		n, ok := s.Nodes[id]
		if !ok {
			return
		}
		ids = append(ids, id)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(s.Root)
	return ids
}

// NewLeafSubtree wraps a single childless node as a subtree.
func NewLeafSubtree(n *Node) *Subtree {
	c := n.Clone()
	c.Children = nil
	c.ParentID = ""
	return &Subtree{Root: c.ID, Nodes: map[string]*Node{c.ID: c}}
}

// Extract copies the subtree rooted at id without detaching it.
func (f *Forest) Extract(id string) (*Subtree, bool) {
	if _, ok := f.nodes[id]; !ok {
		return nil, false
	}
	sub := &Subtree{Root: id, Nodes: make(map[string]*Node)}
	for _, d := range f.subtreeIDs(id) {
		sub.Nodes[d] = f.nodes[d].Clone()
	}
	sub.Nodes[id].ParentID = ""
	return sub, true
}

// subtreeIDs lists id and all its descendants, depth-first.
func (f *Forest) subtreeIDs(id string) []string {
	var ids []string
	var visit func(id string)
	visit = func(id string) {
		n, ok := f.nodes[id]
		if !ok {
			return
		}
		ids = append(ids, id)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(id)
	return ids
}

// CloneValue deep-copies JSON-like values (maps and slices); other values
// are returned as-is. A map or slice that contains itself is cut at the
// back-reference: the entry pointing back up the path is dropped, so the
// copy is always acyclic.
func CloneValue(v any) any {
	c := cloner{path: make(map[uintptr]bool)}
	out, _ := c.value(v)
	return out
}

func cloneProps(p Props) Props {
	if p == nil {
		return nil
	}
	c := cloner{path: make(map[uintptr]bool)}
	out, _ := c.value(p)
	return out.(Props)
}

// cloner tracks the maps and slices on the current path.
type cloner struct {
	path map[uintptr]bool
}

func (c *cloner) enter(v any) (uintptr, bool) {
	p := reflect.ValueOf(v).Pointer()
	if p == 0 {
		return 0, true
	}
	if c.path[p] {
		return p, false
	}
	c.path[p] = true
	return p, true
}

// value copies v. It reports false when v is a back-reference.
func (c *cloner) value(v any) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t, true
		}
		p, ok := c.enter(t)
		if !ok {
			return nil, false
		}
		defer delete(c.path, p)
		return c.props(t), true
	case []any:
		if t == nil {
			return t, true
		}
		out := make([]any, 0, len(t))
		if len(t) > 0 {
			p, ok := c.enter(t)
			if !ok {
				return nil, false
			}
			defer delete(c.path, p)
		}
		for _, e := range t {
			if ce, ok := c.value(e); ok {
				out = append(out, ce)
			}
		}
		return out, true
	default:
		return v, true
	}
}

func (c *cloner) props(p Props) Props {
	out := make(Props, len(p))
	for k, v := range p {
		cv, ok := c.value(v)
		if !ok {
			log.Printf("graph: dropped circular value under %q", k)
			continue
		}
		out[k] = cv
	}
	return out
}
