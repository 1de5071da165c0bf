package graph

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// idIndex interns node IDs as uint32 so subtree membership can be held in
// roaring bitmaps. It is append-only and shared by the forests derived
// from one another; IDs are never reused, so entries never go stale. Once
// removed IDs dominate it, the next derived forest starts a compacted
// index (see Forest.shallow).
type idIndex struct {
	mu    sync.Mutex
	ids   map[string]uint32
	names []string
}

func newIDIndex() *idIndex {
	return &idIndex{ids: make(map[string]uint32)}
}

// intern returns the internal ID for id, assigning one if needed.
func (x *idIndex) intern(id string) uint32 {
	x.mu.Lock()
	defer x.mu.Unlock()
	if v, ok := x.ids[id]; ok {
		return v
	}
	v := uint32(len(x.names))
	x.ids[id] = v
	x.names = append(x.names, id)
	return v
}

// minCompactSize keeps small documents from re-indexing on every edit.
const minCompactSize = 256

// stale reports whether the index holds more than twice live entries.
func (x *idIndex) stale(live int) bool {
	x.mu.Lock()
	n := len(x.names)
	x.mu.Unlock()
	return n > minCompactSize && n > 2*live
}

// compacted returns a fresh index holding only ids.
func compacted(ids map[string]*Node) *idIndex {
	x := &idIndex{ids: make(map[string]uint32, len(ids)), names: make([]string, 0, len(ids))}
	for id := range ids {
		x.ids[id] = uint32(len(x.names))
		x.names = append(x.names, id)
	}
	return x
}

func (x *idIndex) len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.names)
}

// name reverses intern.
func (x *idIndex) name(v uint32) string {
	x.mu.Lock()
	defer x.mu.Unlock()
	if int(v) < len(x.names) {
		return x.names[v]
	}
	return ""
}

// Descendants returns the set of nodes strictly below id.
// The bitmap holds internal IDs; use Contains / ContainsAny to query it.
func (f *Forest) Descendants(id string) *IDSet {
	bm := roaring.New()
	ids := f.subtreeIDs(id)
	if len(ids) > 1 {
		for _, d := range ids[1:] {
			bm.Add(f.index.intern(d))
		}
	}
	return &IDSet{bm: bm, index: f.index}
}

// All returns the set of every ID in the forest.
func (f *Forest) All() *IDSet {
	bm := roaring.New()
	for id := range f.nodes {
		bm.Add(f.index.intern(id))
	}
	return &IDSet{bm: bm, index: f.index}
}

// IsDescendant reports whether candidate lies strictly below ancestor.
func (f *Forest) IsDescendant(ancestor, candidate string) bool {
	return f.Descendants(ancestor).Contains(candidate)
}

// IDSet is a set of node IDs backed by a roaring bitmap.
type IDSet struct {
	bm    *roaring.Bitmap
	index *idIndex
}

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id string) bool {
	s.index.mu.Lock()
	v, ok := s.index.ids[id]
	s.index.mu.Unlock()
	if !ok {
		return false
	}
	return s.bm.Contains(v)
}

// ContainsAny reports whether any of ids is in the set.
func (s *IDSet) ContainsAny(ids []string) bool {
	for _, id := range ids {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

// Len returns the set's cardinality.
func (s *IDSet) Len() int {
	return int(s.bm.GetCardinality())
}

// Intersects reports whether the two sets share any ID.
// Both sets must come from forests sharing an index.
func (s *IDSet) Intersects(o *IDSet) bool {
	if s.index != o.index {
		for _, id := range o.Slice() {
			if s.Contains(id) {
				return true
			}
		}
		return false
	}
	return s.bm.Intersects(o.bm)
}

// Slice returns the IDs in internal-ID order.
func (s *IDSet) Slice() []string {
	out := make([]string, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, s.index.name(it.Next()))
	}
	return out
}

// SetOf builds an IDSet over the given IDs using f's index.
func (f *Forest) SetOf(ids []string) *IDSet {
	bm := roaring.New()
	for _, id := range ids {
		bm.Add(f.index.intern(id))
	}
	return &IDSet{bm: bm, index: f.index}
}
