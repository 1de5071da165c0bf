// Package breakpoint layers per-viewport property overrides over a
// component's base properties.
package breakpoint

import (
	"maps"
	"slices"
	"sync"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/graph"
)

// Catalog is an ordered set of breakpoints, ascending by width.
type Catalog struct {
	list []api.Breakpoint
}

// NewCatalog sorts bps by width. Equal widths keep their given order.
func NewCatalog(bps ...api.Breakpoint) *Catalog {
	list := slices.Clone(bps)
	slices.SortStableFunc(list, func(a, b api.Breakpoint) int {
		return a.Width - b.Width
	})
	return &Catalog{list: list}
}

// Default is the builtin breakpoint set.
func Default() *Catalog {
	return NewCatalog(
		api.Breakpoint{ID: "mobile-s", Name: "Small phone", Width: 320, Height: 568, Category: "mobile"},
		api.Breakpoint{ID: "mobile", Name: "Phone", Width: 375, Height: 812, Category: "mobile"},
		api.Breakpoint{ID: "tablet", Name: "Tablet", Width: 768, Height: 1024, Category: "tablet"},
		api.Breakpoint{ID: "laptop", Name: "Laptop", Width: 1280, Height: 800, Category: "desktop"},
		api.Breakpoint{ID: "desktop", Name: "Desktop", Width: 1440, Height: 900, Category: "desktop"},
		api.Breakpoint{ID: "wide", Name: "Wide screen", Width: 1920, Height: 1080, Category: "desktop"},
	)
}

// List returns the breakpoints in ascending width order.
func (c *Catalog) List() []api.Breakpoint {
	return slices.Clone(c.list)
}

// Lookup finds a breakpoint by id.
func (c *Catalog) Lookup(id string) (api.Breakpoint, bool) {
	for _, bp := range c.list {
		if bp.ID == id {
			return bp, true
		}
	}
	return api.Breakpoint{}, false
}

// Detect returns the largest breakpoint whose width fits within the
// viewport, or the smallest breakpoint when none fits.
func (c *Catalog) Detect(width int) string {
	if len(c.list) == 0 {
		return ""
	}
	for i := len(c.list) - 1; i >= 0; i-- {
		if c.list[i].Width <= width {
			return c.list[i].ID
		}
	}
	return c.list[0].ID
}

// Effective returns the node's properties as seen at breakpointID: the
// base properties with that breakpoint's override layer merged on top.
// Other breakpoints' layers never contribute.
func Effective(n *graph.Node, breakpointID string) graph.Props {
	out := make(graph.Props, len(n.Base))
	for k, v := range n.Base {
		out[k] = graph.CloneValue(v)
	}
	for k, v := range n.Overrides[breakpointID] {
		out[k] = graph.CloneValue(v)
	}
	return out
}

// Overridden lists the keys explicitly set for breakpointID, sorted.
func Overridden(n *graph.Node, breakpointID string) []string {
	return slices.Sorted(maps.Keys(n.Overrides[breakpointID]))
}

// Viewport tracks the active breakpoint. In automatic mode the active id
// follows the detected width; a manual selection sticks until Auto is
// called.
type Viewport struct {
	mu       sync.RWMutex
	catalog  *Catalog
	detected string
	manual   string
}

// NewViewport starts in automatic mode at the catalog's smallest breakpoint.
func NewViewport(c *Catalog) *Viewport {
	return &Viewport{catalog: c, detected: c.Detect(0)}
}

// Resize feeds a new viewport width and returns the active breakpoint.
func (v *Viewport) Resize(width int) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.detected = v.catalog.Detect(width)
	return v.activeLocked()
}

// Select pins the active breakpoint. Unknown ids are ignored.
func (v *Viewport) Select(id string) bool {
	if _, ok := v.catalog.Lookup(id); !ok {
		return false
	}
	v.mu.Lock()
	v.manual = id
	v.mu.Unlock()
	return true
}

// Auto returns to following the detected width.
func (v *Viewport) Auto() {
	v.mu.Lock()
	v.manual = ""
	v.mu.Unlock()
}

// Manual reports whether a pinned selection is in effect.
func (v *Viewport) Manual() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.manual != ""
}

// Active returns the active breakpoint id.
func (v *Viewport) Active() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.activeLocked()
}

func (v *Viewport) activeLocked() string {
	if v.manual != "" {
		return v.manual
	}
	return v.detected
}
