package graph

import (
	"log"
	"maps"
	"slices"
)

// Every operation in this file is pure: it returns a new *Forest and leaves
// the receiver untouched. An operation addressing an unknown ID returns the
// receiver itself, so callers can detect a no-op with pointer equality.

// shallow returns a copy of the forest sharing every node. The copy gets
// a compacted ID index when removed IDs have come to dominate the shared one;
// sets built on the old index still compare correctly, only slower.
func (f *Forest) shallow() *Forest {
	out := &Forest{
		nodes: maps.Clone(f.nodes),
		roots: slices.Clone(f.roots),
		index: f.index,
	}
	if f.index.stale(len(f.nodes)) {
		out.index = compacted(out.nodes)
	}
	return out
}

// own replaces the arena entry for id with a private copy and returns it.
// Must only be called on a forest produced by shallow.
func (f *Forest) own(id string) *Node {
	c := f.nodes[id].Clone()
	f.nodes[id] = c
	return c
}

// Remove detaches id and its whole subtree. The remaining siblings keep
// their relative order. The detached subtree is returned for reuse.
func (f *Forest) Remove(id string) (*Subtree, *Forest) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, f
	}

	sub := &Subtree{Root: id, Nodes: make(map[string]*Node)}
	out := f.shallow()
	for _, d := range f.subtreeIDs(id) {
		sub.Nodes[d] = f.nodes[d]
		delete(out.nodes, d)
	}
	root := sub.Nodes[id].Clone()
	root.ParentID = ""
	sub.Nodes[id] = root

	if n.ParentID == "" {
		out.roots = slices.DeleteFunc(out.roots, func(r string) bool { return r == id })
	} else if _, ok := out.nodes[n.ParentID]; ok {
		p := out.own(n.ParentID)
		p.Children = slices.DeleteFunc(p.Children, func(c string) bool { return c == id })
	}
	return sub, out
}

// admit copies the subtree's nodes into f, re-parenting its root.
// It refuses (returns false) when any subtree ID already exists in f.
func (f *Forest) admit(sub *Subtree, parentID string) bool {
	if sub == nil || sub.RootNode() == nil {
		return false
	}
	for id := range sub.Nodes {
		if _, clash := f.nodes[id]; clash {
			log.Printf("graph: refusing insert of %s: id %s already present", sub.Root, id)
			return false
		}
	}
	for id, n := range sub.Nodes {
		c := n.Clone()
		if id == sub.Root {
			c.ParentID = parentID
		}
		f.nodes[id] = c
		f.index.intern(id)
	}
	return true
}

// InsertIntoContainer appends sub as the last child of containerID.
// Unknown containers leave the forest unchanged; the container's kind is
// the caller's responsibility.
func (f *Forest) InsertIntoContainer(containerID string, sub *Subtree) *Forest {
	if _, ok := f.nodes[containerID]; !ok {
		return f
	}
	out := f.shallow()
	if !out.admit(sub, containerID) {
		return f
	}
	c := out.own(containerID)
	c.Children = append(c.Children, sub.Root)
	return out
}

// InsertAtRootEnd appends sub to the top-level sequence.
func (f *Forest) InsertAtRootEnd(sub *Subtree) *Forest {
	out := f.shallow()
	if !out.admit(sub, "") {
		return f
	}
	out.roots = append(out.roots, sub.Root)
	return out
}

// InsertRelative splices sub into targetID's sibling list immediately
// before or after targetID. sub inherits targetID's parent.
func (f *Forest) InsertRelative(targetID string, sub *Subtree, after bool) *Forest {
	target, ok := f.nodes[targetID]
	if !ok {
		return f
	}
	out := f.shallow()
	if !out.admit(sub, target.ParentID) {
		return f
	}
	splice := func(list []string) []string {
		i := slices.Index(list, targetID)
		if after {
			i++
		}
		return slices.Insert(list, i, sub.Root)
	}
	if target.ParentID == "" {
		out.roots = splice(out.roots)
	} else {
		p := out.own(target.ParentID)
		p.Children = splice(p.Children)
	}
	return out
}

// ReorderRoots moves the root at index from to index to, shifting the
// others. Out-of-range indices leave the forest unchanged.
func (f *Forest) ReorderRoots(from, to int) *Forest {
	if from < 0 || from >= len(f.roots) || to < 0 || to >= len(f.roots) || from == to {
		return f
	}
	out := f.shallow()
	id := out.roots[from]
	out.roots = slices.Delete(out.roots, from, from+1)
	out.roots = slices.Insert(out.roots, to, id)
	return out
}

// ReplaceProperties swaps a node's base properties wholesale. Overrides and
// children are untouched.
func (f *Forest) ReplaceProperties(id string, props Props) *Forest {
	if _, ok := f.nodes[id]; !ok {
		return f
	}
	out := f.shallow()
	n := out.own(id)
	n.Base = cloneProps(props)
	if n.Base == nil {
		n.Base = Props{}
	}
	return out
}

// MergeBreakpointOverride shallow-merges partial into the override layer
// for breakpointID, keeping unrelated breakpoints and properties.
func (f *Forest) MergeBreakpointOverride(id, breakpointID string, partial Props) *Forest {
	if _, ok := f.nodes[id]; !ok {
		return f
	}
	out := f.shallow()
	n := out.own(id)
	if n.Overrides == nil {
		n.Overrides = make(map[string]Props)
	}
	layer := n.Overrides[breakpointID]
	if layer == nil {
		layer = Props{}
	}
	for k, v := range partial {
		layer[k] = CloneValue(v)
	}
	n.Overrides[breakpointID] = layer
	return out
}

// ClearBreakpointOverride removes keys from one breakpoint layer, or the
// whole layer when no keys are given.
func (f *Forest) ClearBreakpointOverride(id, breakpointID string, keys ...string) *Forest {
	n, ok := f.nodes[id]
	if !ok {
		return f
	}
	if _, has := n.Overrides[breakpointID]; !has {
		return f
	}
	out := f.shallow()
	c := out.own(id)
	if len(keys) == 0 {
		delete(c.Overrides, breakpointID)
		return out
	}
	for _, k := range keys {
		delete(c.Overrides[breakpointID], k)
	}
	if len(c.Overrides[breakpointID]) == 0 {
		delete(c.Overrides, breakpointID)
	}
	return out
}
