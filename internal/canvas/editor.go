// Package canvas is the single writer of the canvas document.
//
// An Editor owns the current forest together with the selection, the
// hovered container and the clipboard. Callers issue commands and read
// immutable forest snapshots; nothing outside the Editor replaces the forest.
package canvas

import (
	"log"
	"sync"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/dnd"
	"github.com/agentic-research/easel/internal/graph"
	"github.com/agentic-research/easel/internal/idgen"
)

const maxIDAttempts = 8

// Listener is notified after every command that changed the forest.
type Listener func(f *graph.Forest)

// Editor applies tree mutations.
type Editor struct {
	mu        sync.RWMutex
	forest    *graph.Forest
	selected  string
	hovered   string
	clipboard *graph.Subtree
	newID     idgen.Generator
	listeners []Listener
}

// Option configures an Editor.
type Option func(*Editor)

// WithIDGenerator overrides the ID strategy.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Editor) { e.newID = gen }
}

// WithForest starts the editor on an existing document.
func WithForest(f *graph.Forest) Option {
	return func(e *Editor) { e.forest = f }
}

// NewEditor returns an editor over an empty canvas.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{forest: graph.NewForest(), newID: idgen.Default}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Forest returns the current snapshot.
func (e *Editor) Forest() *graph.Forest {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.forest
}

// Selected returns the selected node ID, or "".
func (e *Editor) Selected() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selected
}

// Clipboard returns a copy of the clipboard subtree, or nil.
func (e *Editor) Clipboard() *graph.Subtree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.clipboard == nil {
		return nil
	}
	return e.clipboard.Clone()
}

// Subscribe registers fn for change notifications.
func (e *Editor) Subscribe(fn Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Load replaces the document, clearing selection, hover and clipboard.
func (e *Editor) Load(f *graph.Forest) {
	e.mu.Lock()
	e.forest = f
	e.selected, e.hovered, e.clipboard = "", "", nil
	e.mu.Unlock()
	e.notify(f)
}

// commit installs next as the current forest and reports whether it
// differs from the previous snapshot. Must be called with e.mu held;
// callers notify listeners after unlocking.
func (e *Editor) commit(next *graph.Forest) bool {
	if next == e.forest {
		return false
	}
	e.forest = next
	return true
}

func (e *Editor) notify(f *graph.Forest) {
	e.mu.RLock()
	ls := append([]Listener(nil), e.listeners...)
	e.mu.RUnlock()
	for _, fn := range ls {
		fn(f)
	}
}

// Select sets the selection. Unknown IDs are ignored.
func (e *Editor) Select(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" && !e.forest.Has(id) {
		return false
	}
	e.selected = id
	return true
}

// AddComponent instantiates meta and inserts it at the root end, or as
// the last child of parentID when given. The new node becomes selected.
// It returns the new ID, or "" when parentID is not a container.
func (e *Editor) AddComponent(meta api.ComponentMetadata, libraryTag, parentID string) string {
	e.mu.Lock()
	n := &graph.Node{
		ID:         e.newID(),
		Metadata:   meta.Name,
		Kind:       meta.Kind,
		LibraryTag: libraryTag,
		Base:       graph.Props{},
	}
	for k, v := range meta.InitialValues {
		n.Base[k] = graph.CloneValue(v)
	}
	sub := graph.NewLeafSubtree(n)

	var next *graph.Forest
	if parentID == "" {
		next = e.forest.InsertAtRootEnd(sub)
	} else {
		parent, ok := e.forest.Find(parentID)
		if !ok || !parent.IsContainer() {
			e.mu.Unlock()
			log.Printf("canvas: add %s rejected: %q is not a container", meta.Name, parentID)
			return ""
		}
		next = e.forest.InsertIntoContainer(parentID, sub)
	}
	changed := e.commit(next)
	if changed {
		e.selected = n.ID
	}
	e.mu.Unlock()
	if !changed {
		return ""
	}
	e.notify(next)
	return n.ID
}

// MoveWithinSiblingList reorders the top-level sequence, moving the root
// at dragIndex to hoverIndex, and selects the moved node.
func (e *Editor) MoveWithinSiblingList(dragIndex, hoverIndex int) bool {
	e.mu.Lock()
	roots := e.forest.Roots()
	next := e.forest.ReorderRoots(dragIndex, hoverIndex)
	changed := e.commit(next)
	if changed {
		e.selected = roots[dragIndex]
	}
	e.mu.Unlock()
	if changed {
		e.notify(next)
	}
	return changed
}

// Reparent moves dragID's subtree relative to targetID. The move is
// validated before anything is detached: a node cannot be dropped on
// itself or into its own subtree, and Inside requires a container target.
// A rejected move leaves the forest exactly as it was.
func (e *Editor) Reparent(dragID, targetID string, pos dnd.Position) bool {
	e.mu.Lock()
	next, err := planReparent(e.forest, dragID, targetID, pos)
	if err != nil {
		e.mu.Unlock()
		log.Printf("canvas: move %s %s %s rejected: %v", dragID, pos, targetID, err)
		return false
	}
	changed := e.commit(next)
	if changed {
		e.selected = dragID
	}
	e.mu.Unlock()
	if changed {
		e.notify(next)
	}
	return changed
}

// DropAt resolves the drop position from the pointer against the target's
// bounds and performs the move.
func (e *Editor) DropAt(dragID, targetID string, bounds dnd.Rect, pointerY float64) (dnd.Position, bool) {
	target, ok := e.Forest().Find(targetID)
	if !ok {
		return "", false
	}
	pos := dnd.Resolve(bounds, pointerY, target.IsContainer())
	return pos, e.Reparent(dragID, targetID, pos)
}

// DeleteComponent removes id and its subtree and clears the selection.
func (e *Editor) DeleteComponent(id string) bool {
	e.mu.Lock()
	removed, next := e.forest.Remove(id)
	if removed == nil {
		e.mu.Unlock()
		return false
	}
	e.commit(next)
	e.selected = ""
	if e.hovered != "" && !next.Has(e.hovered) {
		e.hovered = ""
	}
	e.mu.Unlock()
	e.notify(next)
	return true
}

// CopyComponent places a deep copy of id's subtree on the clipboard.
func (e *Editor) CopyComponent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub, ok := e.forest.Extract(id)
	if !ok {
		return false
	}
	e.clipboard = sub
	return true
}

// PasteComponent inserts a copy of the clipboard with a fresh ID on every
// node. With a container targetID the copy becomes its last child and the
// target is selected; otherwise it goes to the root end and is selected
// itself. It returns the pasted root ID, or "" with an empty clipboard.
func (e *Editor) PasteComponent(targetID string) string {
	e.mu.Lock()
	if e.clipboard == nil {
		e.mu.Unlock()
		return ""
	}
	existing := e.forest.All()
	sub := e.clipboard.Reidentify(e.newID)
	for attempt := 1; existing.ContainsAny(sub.IDs()); attempt++ {
		if attempt == maxIDAttempts {
			e.mu.Unlock()
			log.Printf("canvas: paste abandoned: id generator keeps colliding")
			return ""
		}
		sub = e.clipboard.Reidentify(e.newID)
	}

	var next *graph.Forest
	selected := sub.Root
	if target, ok := e.forest.Find(targetID); ok && target.IsContainer() {
		next = e.forest.InsertIntoContainer(targetID, sub)
		selected = targetID
	} else {
		next = e.forest.InsertAtRootEnd(sub)
	}
	changed := e.commit(next)
	if changed {
		e.selected = selected
	}
	e.mu.Unlock()
	if !changed {
		return ""
	}
	e.notify(next)
	return sub.Root
}

// SelectParent selects the container holding id, if any.
func (e *Editor) SelectParent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	parent, ok := e.forest.ParentOf(id)
	if !ok {
		return false
	}
	e.selected = parent
	return true
}
