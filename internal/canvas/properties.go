package canvas

import (
	"github.com/agentic-research/easel/internal/dnd"
	"github.com/agentic-research/easel/internal/graph"
)

// UpdateProperties replaces id's base properties wholesale. It and
// SetBaseProperties are the only paths that write the base layer after
// creation.
func (e *Editor) UpdateProperties(id string, props graph.Props) bool {
	e.mu.Lock()
	next := e.forest.ReplaceProperties(id, props)
	changed := e.commit(next)
	e.mu.Unlock()
	if changed {
		e.notify(next)
	}
	return changed
}

// SetBaseProperties merges partial into id's base properties. The read
// and the replace happen under one lock, so concurrent edits of different
// keys on the same node all survive.
func (e *Editor) SetBaseProperties(id string, partial graph.Props) bool {
	if len(partial) == 0 {
		return false
	}
	e.mu.Lock()
	n, ok := e.forest.Find(id)
	if !ok {
		e.mu.Unlock()
		return false
	}
	for k, v := range partial {
		n.Base[k] = v
	}
	next := e.forest.ReplaceProperties(id, n.Base)
	changed := e.commit(next)
	e.mu.Unlock()
	if changed {
		e.notify(next)
	}
	return changed
}

// SetProperty records a single-field edit made while breakpointID is
// active. Edits land in that breakpoint's override layer, never in the
// base properties.
func (e *Editor) SetProperty(id, breakpointID, key string, value any) bool {
	return e.SetProperties(id, breakpointID, graph.Props{key: value})
}

// SetProperties is SetProperty for several fields at once.
func (e *Editor) SetProperties(id, breakpointID string, partial graph.Props) bool {
	if breakpointID == "" || len(partial) == 0 {
		return false
	}
	e.mu.Lock()
	next := e.forest.MergeBreakpointOverride(id, breakpointID, partial)
	changed := e.commit(next)
	e.mu.Unlock()
	if changed {
		e.notify(next)
	}
	return changed
}

// ResetProperty drops keys from breakpointID's override layer so they
// inherit the base value again. With no keys the whole layer is dropped.
func (e *Editor) ResetProperty(id, breakpointID string, keys ...string) bool {
	e.mu.Lock()
	next := e.forest.ClearBreakpointOverride(id, breakpointID, keys...)
	changed := e.commit(next)
	e.mu.Unlock()
	if changed {
		e.notify(next)
	}
	return changed
}

// SetHoveredContainer records the nested container under the pointer.
// Only container nodes can be hovered this way; "" clears the hover.
func (e *Editor) SetHoveredContainer(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" {
		n, ok := e.forest.Find(id)
		if !ok || !dnd.CanAcceptDrop(n.Kind) {
			return false
		}
	}
	e.hovered = id
	return true
}

// HoveredContainer returns the hovered container ID, or "".
func (e *Editor) HoveredContainer() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hovered
}

// RootDropEnabled reports whether the canvas-level drop zone should accept
// a drop. It is off while a nested container is hovered, so one drop is
// never handled twice.
func (e *Editor) RootDropEnabled() bool {
	return e.HoveredContainer() == ""
}
