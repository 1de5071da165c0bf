package api

import "time"

// DocumentVersion is the version written into every saved document.
const DocumentVersion = "v1"

// Kind declares whether a component nests other components.
type Kind string

const (
	KindLeaf      Kind = "leaf"
	KindContainer Kind = "container"
)

// PropertyKind is the declared type of a component property.
type PropertyKind string

const (
	PropString  PropertyKind = "string"
	PropNumber  PropertyKind = "number"
	PropBoolean PropertyKind = "boolean"
	PropEnum    PropertyKind = "enum"
	PropArray   PropertyKind = "array"
)

// PropertyType describes one entry of a component's property schema.
type PropertyType struct {
	Kind PropertyKind `json:"kind"`
	// Options lists the allowed values for enum properties.
	Options []string `json:"options,omitempty"`
}

// ComponentMetadata is the catalog-provided descriptor of a component.
// It is plain data; renderer callbacks are looked up separately by Name.
type ComponentMetadata struct {
	Name           string                  `json:"name"`
	Description    string                  `json:"description,omitempty"`
	Category       string                  `json:"category,omitempty"`
	Kind           Kind                    `json:"kind"`
	PropertySchema map[string]PropertyType `json:"propertySchema,omitempty"`
	InitialValues  map[string]any          `json:"initialValues,omitempty"`
}

// IsContainer reports whether instances of this component accept children.
func (m ComponentMetadata) IsContainer() bool {
	return m.Kind == KindContainer
}

// Breakpoint is a named viewport profile.
type Breakpoint struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Category string `json:"category"` // mobile, tablet or desktop
}

// Document is the persisted form of a canvas.
type Document struct {
	Version    string      `json:"version"`
	Components []Component `json:"components"`
	// Summary is set instead of Components when the full canvas could not be
	// serialized.
	Summary *Summary `json:"summary,omitempty"`
}

// MetadataRef names the catalog entry a component was created from.
// Kind is kept so documents stay structurally valid without a catalog.
type MetadataRef struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Component is one persisted node with its subtree inlined.
type Component struct {
	ID                  string                    `json:"id"`
	Metadata            MetadataRef               `json:"metadata"`
	LibraryTag          string                    `json:"library,omitempty"`
	Properties          map[string]any            `json:"properties"`
	BreakpointOverrides map[string]map[string]any `json:"breakpointOverrides,omitempty"`
	Children            []Component               `json:"children,omitempty"`
	ParentID            string                    `json:"parentId,omitempty"`
}

// Summary is the minimal record written when a full save fails.
type Summary struct {
	NodeCount int       `json:"nodeCount"`
	RootCount int       `json:"rootCount"`
	SavedAt   time.Time `json:"savedAt"`
}
