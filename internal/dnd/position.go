// Package dnd decides where a dragged component lands relative to a target.
package dnd

import "github.com/agentic-research/easel/api"

// Position is where a drop lands relative to its target.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
	Inside Position = "inside"
)

// Valid reports whether p is one of the three drop positions.
func (p Position) Valid() bool {
	return p == Before || p == After || p == Inside
}

// ParsePosition converts user input to a Position.
func ParsePosition(s string) (Position, bool) {
	p := Position(s)
	return p, p.Valid()
}

// Band edges, as fractions of the target's height.
const (
	beforeEdge = 0.25
	afterEdge  = 0.75
)

// Rect is a target's on-screen bounds.
type Rect struct {
	Left, Top, Width, Height float64
}

// Fraction returns how far pointerY lies down the rectangle, clamped to
// [0, 1]. A zero-height rectangle yields 0.
func (r Rect) Fraction(pointerY float64) float64 {
	if r.Height <= 0 {
		return 0
	}
	f := (pointerY - r.Top) / r.Height
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Resolve maps a pointer inside the target to a drop position: the top
// quarter is Before, the bottom quarter After, and the middle half Inside.
// Targets that cannot hold children never resolve to Inside; their middle
// band splits at the midpoint into Before and After.
func Resolve(target Rect, pointerY float64, container bool) Position {
	return ResolveFraction(target.Fraction(pointerY), container)
}

// ResolveFraction is Resolve for a precomputed vertical fraction.
func ResolveFraction(f float64, container bool) Position {
	switch {
	case f < beforeEdge:
		return Before
	case f > afterEdge:
		return After
	case container:
		return Inside
	case f < 0.5:
		return Before
	default:
		return After
	}
}

// CanAcceptDrop reports whether a component of the given kind shows a
// container drop affordance.
func CanAcceptDrop(kind api.Kind) bool {
	return kind == api.KindContainer
}
