// Package catalog holds the component metadata the canvas instantiates
// nodes from, plus the renderer capabilities looked up by component name.
//
// Metadata is plain data and is safe to persist; renderers are Go
// functions and are only ever resolved at runtime.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/graph"
)

// Renderer turns a component's resolved properties and already-rendered
// children into markup.
type Renderer func(props map[string]any, children string) string

// Catalog is an ordered, name-indexed set of component metadata.
type Catalog struct {
	mu        sync.RWMutex
	list      []api.ComponentMetadata
	byName    map[string]int
	renderers map[string]Renderer
}

// New builds a catalog from metas. A later entry with a duplicate name
// replaces the earlier one in place.
func New(metas ...api.ComponentMetadata) *Catalog {
	c := &Catalog{
		byName:    make(map[string]int),
		renderers: make(map[string]Renderer),
	}
	for _, m := range metas {
		c.Add(m)
	}
	return c
}

// Load reads a JSON array of component metadata.
func Load(r io.Reader) (*Catalog, error) {
	var metas []api.ComponentMetadata
	if err := json.NewDecoder(r).Decode(&metas); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, m := range metas {
		if m.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		if m.Kind != api.KindLeaf && m.Kind != api.KindContainer {
			return nil, fmt.Errorf("catalog entry %s: unknown kind %q", m.Name, m.Kind)
		}
	}
	return New(metas...), nil
}

// Add registers or replaces a component.
func (c *Catalog) Add(m api.ComponentMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.byName[m.Name]; ok {
		c.list[i] = m
		return
	}
	c.byName[m.Name] = len(c.list)
	c.list = append(c.list, m)
}

// Lookup returns the metadata registered under name.
func (c *Catalog) Lookup(name string) (api.ComponentMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byName[name]
	if !ok {
		return api.ComponentMetadata{}, false
	}
	return c.list[i], true
}

// List returns all metadata in registration order.
func (c *Catalog) List() []api.ComponentMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.list)
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, m := range c.list {
		if m.Category != "" && !slices.Contains(out, m.Category) {
			out = append(out, m.Category)
		}
	}
	return out
}

// RegisterRenderer attaches a renderer to a component name.
func (c *Catalog) RegisterRenderer(name string, fn Renderer) {
	c.mu.Lock()
	c.renderers[name] = fn
	c.mu.Unlock()
}

// Renderer returns the renderer for a component name.
func (c *Catalog) Renderer(name string) (Renderer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.renderers[name]
	return fn, ok
}

// Schema returns the property schema for a component name, or nil.
func (c *Catalog) Schema(name string) map[string]api.PropertyType {
	m, ok := c.Lookup(name)
	if !ok {
		return nil
	}
	return m.PropertySchema
}

// MergeComponentMetadata computes a loaded node's base properties:
// the current catalog's initial values form the base and the stored author
// values override them, recursing into nested objects. New schema fields
// appear with their defaults; stored values for known fields survive.
func MergeComponentMetadata(current api.ComponentMetadata, stored map[string]any) map[string]any {
	return mergeValues(current.InitialValues, stored)
}

func mergeValues(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = graph.CloneValue(v)
	}
	for k, v := range over {
		bm, baseIsMap := out[k].(map[string]any)
		om, overIsMap := v.(map[string]any)
		if baseIsMap && overIsMap {
			out[k] = mergeValues(bm, om)
			continue
		}
		out[k] = graph.CloneValue(v)
	}
	return out
}
