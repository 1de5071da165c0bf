// Package render produces the fully resolved view of a canvas at one
// breakpoint: override layers applied, bindings substituted, and leaf
// children ignored.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/binding"
	"github.com/agentic-research/easel/internal/breakpoint"
	"github.com/agentic-research/easel/internal/catalog"
	"github.com/agentic-research/easel/internal/graph"
)

// Resolved is a node as it would be displayed.
type Resolved struct {
	ID        string         `json:"id"`
	Component string         `json:"component"`
	Kind      api.Kind       `json:"kind"`
	Props     map[string]any `json:"props"`
	Children  []*Resolved    `json:"children,omitempty"`
}

// Visible reports whether the node should be drawn. Only an explicit
// false hides it.
func (r *Resolved) Visible() bool {
	v, ok := r.Props["visible"].(bool)
	return !ok || v
}

// Renderer resolves forests against a catalog and a set of data sources.
type Renderer struct {
	cat *catalog.Catalog
	in  *binding.Interpreter
}

// New returns a renderer. src may be nil, in which case every binding is
// unresolved.
func New(cat *catalog.Catalog, src binding.Source) *Renderer {
	return &Renderer{cat: cat, in: binding.New(src)}
}

// Resolve returns the resolved roots of f at breakpointID.
func (r *Renderer) Resolve(f *graph.Forest, breakpointID string) []*Resolved {
	var out []*Resolved
	for _, id := range f.Roots() {
		if n, ok := r.ResolveNode(f, id, breakpointID); ok {
			out = append(out, n)
		}
	}
	return out
}

// ResolveNode resolves a single node and, for containers, its subtree.
func (r *Renderer) ResolveNode(f *graph.Forest, id, breakpointID string) (*Resolved, bool) {
	n, ok := f.Find(id)
	if !ok {
		return nil, false
	}
	res := &Resolved{
		ID:        n.ID,
		Component: n.Metadata,
		Kind:      n.Kind,
		Props:     r.in.ResolveProps(breakpoint.Effective(n, breakpointID), r.cat.Schema(n.Metadata)),
	}
	if n.IsContainer() {
		for _, c := range n.Children {
			if child, ok := r.ResolveNode(f, c, breakpointID); ok {
				res.Children = append(res.Children, child)
			}
		}
	}
	return res, true
}

// HTML renders f at breakpointID. Hidden nodes and their subtrees are
// omitted; components without a registered renderer become a labelled div.
func (r *Renderer) HTML(f *graph.Forest, breakpointID string) string {
	var b strings.Builder
	for _, n := range r.Resolve(f, breakpointID) {
		b.WriteString(r.html(n))
	}
	return b.String()
}

func (r *Renderer) html(n *Resolved) string {
	if !n.Visible() {
		return ""
	}
	var children strings.Builder
	for _, c := range n.Children {
		children.WriteString(r.html(c))
	}
	if fn, ok := r.cat.Renderer(n.Component); ok {
		return fn(n.Props, children.String())
	}
	return fmt.Sprintf(`<div data-component="%s">%s</div>`, html.EscapeString(n.Component), children.String())
}

// Page wraps the rendered canvas in a minimal HTML document sized to the
// breakpoint's width.
func (r *Renderer) Page(f *graph.Forest, bp api.Breakpoint) string {
	return fmt.Sprintf("<!doctype html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n"+
		"<body style=\"margin:0\"><main style=\"width:%dpx;margin:0 auto\">%s</main></body>\n</html>\n",
		html.EscapeString(bp.Name), bp.Width, r.HTML(f, bp.ID))
}
