package interaction

import "fmt"

// Mode identifies which gesture currently owns the pointer. At most one
// gesture is active at a time; every transition passes through the
// machine's internal table, never by external assignment.
type Mode int

const (
	// ModeIdle is the resting state: no gesture in progress.
	ModeIdle Mode = iota

	// ModePreparingDrag is entered on node mousedown, before the pointer
	// has travelled far enough to tell a drag from a click.
	ModePreparingDrag

	// ModeDraggingNode is an active node drag.
	ModeDraggingNode

	// ModeCreatingConnection is an active connection drag from a handle.
	ModeCreatingConnection

	// ModePanningCanvas is an active background pan.
	ModePanningCanvas

	// ModeHoveringHandle is the passive highlight state while the
	// pointer rests on a connection handle.
	ModeHoveringHandle
)

// String returns the mode's wire name.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePreparingDrag:
		return "preparing-drag"
	case ModeDraggingNode:
		return "dragging-node"
	case ModeCreatingConnection:
		return "creating-connection"
	case ModePanningCanvas:
		return "panning-canvas"
	case ModeHoveringHandle:
		return "hovering-handle"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
