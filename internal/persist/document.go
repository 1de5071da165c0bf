// Package persist converts canvas forests to and from their saved form
// and stores them on a filesystem or in SQLite.
//
// Only the forest is saved. Selection, hover and clipboard are editor
// state, and data source payloads are always fetched fresh.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/catalog"
	"github.com/agentic-research/easel/internal/graph"
)

var (
	// ErrSummaryOnly reports that a save fell back to the summary record,
	// or that a loaded document holds nothing but one.
	ErrSummaryOnly = errors.New("document saved as summary only")
	ErrNoDocument  = errors.New("no saved document")
)

// MetadataLookup resolves a component name against the live catalog.
type MetadataLookup interface {
	Lookup(name string) (api.ComponentMetadata, bool)
}

// Serialize converts the forest to its persisted form. Property values
// that are not plain data are dropped.
func Serialize(f *graph.Forest) *api.Document {
	doc := &api.Document{Version: api.DocumentVersion, Components: []api.Component{}}
	for _, id := range f.Roots() {
		doc.Components = append(doc.Components, component(f, id))
	}
	return doc
}

func component(f *graph.Forest, id string) api.Component {
	n, _ := f.Find(id)
	c := api.Component{
		ID:         n.ID,
		Metadata:   api.MetadataRef{Name: n.Metadata, Kind: n.Kind},
		LibraryTag: n.LibraryTag,
		Properties: SanitizeProps(n.Base),
		ParentID:   n.ParentID,
	}
	if c.Properties == nil {
		c.Properties = map[string]any{}
	}
	if len(n.Overrides) > 0 {
		c.BreakpointOverrides = make(map[string]map[string]any, len(n.Overrides))
		for bp, layer := range n.Overrides {
			c.BreakpointOverrides[bp] = SanitizeProps(layer)
		}
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, component(f, child))
	}
	return c
}

// Summarize builds the fallback record for f.
func Summarize(f *graph.Forest, now time.Time) *api.Document {
	return &api.Document{
		Version: api.DocumentVersion,
		Summary: &api.Summary{NodeCount: f.Len(), RootCount: len(f.Roots()), SavedAt: now.UTC()},
	}
}

// Marshal encodes the forest as JSON. When the full document cannot be
// encoded the summary is encoded instead and ErrSummaryOnly is returned
// alongside the bytes, which are still meant to be written.
func Marshal(f *graph.Forest, now time.Time) ([]byte, error) {
	data, err := json.Marshal(Serialize(f))
	if err == nil {
		return data, nil
	}
	log.Printf("persist: full save failed, writing summary: %v", err)
	data, serr := json.Marshal(Summarize(f, now))
	if serr != nil {
		return nil, fmt.Errorf("encode summary: %w", serr)
	}
	return data, ErrSummaryOnly
}

// Deserialize rebuilds a forest from its persisted form. Components found
// in the catalog take their kind from it, and their stored properties are
// merged over the catalog's current initial values. Unknown components
// keep what was stored.
func Deserialize(doc *api.Document, cat MetadataLookup) (*graph.Forest, error) {
	if doc.Summary != nil && len(doc.Components) == 0 {
		return graph.NewForest(), ErrSummaryOnly
	}
	if doc.Version != "" && doc.Version != api.DocumentVersion {
		return nil, fmt.Errorf("unsupported document version %q", doc.Version)
	}
	var (
		roots []string
		nodes []*graph.Node
	)
	var flatten func(c api.Component, parent string)
	flatten = func(c api.Component, parent string) {
		n := Restore(c, parent, cat)
		for _, child := range c.Children {
			n.Children = append(n.Children, child.ID)
			flatten(child, c.ID)
		}
		nodes = append(nodes, n)
	}
	for _, c := range doc.Components {
		roots = append(roots, c.ID)
		flatten(c, "")
	}
	return graph.FromNodes(roots, nodes)
}

// Restore converts one stored component, without its children, into a
// node placed under parent.
func Restore(c api.Component, parent string, cat MetadataLookup) *graph.Node {
	n := &graph.Node{
		ID:         c.ID,
		Metadata:   c.Metadata.Name,
		Kind:       c.Metadata.Kind,
		LibraryTag: c.LibraryTag,
		Base:       c.Properties,
		ParentID:   parent,
	}
	if cat != nil {
		if current, ok := cat.Lookup(c.Metadata.Name); ok {
			n.Kind = current.Kind
			n.Base = catalog.MergeComponentMetadata(current, c.Properties)
		} else {
			log.Printf("persist: component %s uses unknown %q, keeping stored metadata", c.ID, c.Metadata.Name)
		}
	}
	if n.Base == nil {
		n.Base = graph.Props{}
	}
	if n.Kind == "" {
		n.Kind = api.KindLeaf
	}
	if len(c.BreakpointOverrides) > 0 {
		n.Overrides = make(map[string]graph.Props, len(c.BreakpointOverrides))
		for bp, layer := range c.BreakpointOverrides {
			n.Overrides[bp] = layer
		}
	}
	return n
}

// Unmarshal decodes JSON produced by Marshal.
func Unmarshal(data []byte, cat MetadataLookup) (*graph.Forest, error) {
	var doc api.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return Deserialize(&doc, cat)
}

// ParseValue reads user input as a JSON value, decoded the same way as a
// stored document. Text that is not valid JSON is kept as a string.
func ParseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
