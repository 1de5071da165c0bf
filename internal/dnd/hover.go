package dnd

// HoverKind distinguishes entering a target from leaving it.
type HoverKind int

const (
	HoverEnter HoverKind = iota
	HoverLeave
)

// HoverEvent is a hover transition reported to the view layer.
type HoverEvent struct {
	Kind     HoverKind
	TargetID string
	Position Position
}

// HoverTracker turns a stream of pointer-move samples into transitions.
// Repeating the current (target, position) pair produces nothing, so the
// view layer is notified once per change instead of once per tick.
// The zero value is ready to use. Hover state is transient and never
// persisted.
type HoverTracker struct {
	targetID string
	position Position
	active   bool
}

// Update records a hover sample and returns the transitions to report,
// or nil when the sample repeats the current state. Moving to a different
// target reports the leave of the previous target before the enter of the
// new one. A new position over the same target is reported as an enter.
func (h *HoverTracker) Update(targetID string, pos Position) []HoverEvent {
	if h.active && h.targetID == targetID && h.position == pos {
		return nil
	}
	var events []HoverEvent
	if h.active && h.targetID != targetID {
		events = append(events, HoverEvent{Kind: HoverLeave, TargetID: h.targetID, Position: h.position})
	}
	h.targetID, h.position, h.active = targetID, pos, true
	return append(events, HoverEvent{Kind: HoverEnter, TargetID: targetID, Position: pos})
}

// Leave reports that the pointer left targetID. Leaving a target that is
// not the current one, or leaving twice, reports nothing.
func (h *HoverTracker) Leave(targetID string) (HoverEvent, bool) {
	if !h.active || h.targetID != targetID {
		return HoverEvent{}, false
	}
	ev := HoverEvent{Kind: HoverLeave, TargetID: targetID, Position: h.position}
	h.Reset()
	return ev, true
}

// Current returns the hovered target and position, if any.
func (h *HoverTracker) Current() (string, Position, bool) {
	return h.targetID, h.position, h.active
}

// Reset clears the tracker, e.g. when a drag ends.
func (h *HoverTracker) Reset() {
	*h = HoverTracker{}
}
