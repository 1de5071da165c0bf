package canvas

import (
	"errors"
	"fmt"

	"github.com/agentic-research/easel/internal/dnd"
	"github.com/agentic-research/easel/internal/graph"
)

var (
	ErrSelfDrop      = errors.New("cannot drop a component onto itself")
	ErrIntoOwnTree   = errors.New("cannot move a component into its own subtree")
	ErrNotContainer  = errors.New("target is not a container")
	ErrBadPosition   = errors.New("unknown drop position")
	ErrUnknownTarget = errors.New("unknown component")
)

// planReparent computes the forest after moving dragID relative to
// targetID. Every precondition is checked against f before the subtree is
// detached, so a rejected move never produces a partial result.
func planReparent(f *graph.Forest, dragID, targetID string, pos dnd.Position) (*graph.Forest, error) {
	if !pos.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrBadPosition, pos)
	}
	if dragID == targetID {
		return nil, ErrSelfDrop
	}
	if !f.Has(dragID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, dragID)
	}
	target, ok := f.Find(targetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	if f.IsDescendant(dragID, targetID) {
		return nil, ErrIntoOwnTree
	}
	if pos == dnd.Inside && !target.IsContainer() {
		return nil, ErrNotContainer
	}

	sub, detached := f.Remove(dragID)
	var next *graph.Forest
	switch pos {
	case dnd.Inside:
		next = detached.InsertIntoContainer(targetID, sub)
	case dnd.Before:
		next = detached.InsertRelative(targetID, sub, false)
	case dnd.After:
		next = detached.InsertRelative(targetID, sub, true)
	}
	if next == detached {
		return nil, fmt.Errorf("insert %s %s %s failed", dragID, pos, targetID)
	}
	return next, nil
}
