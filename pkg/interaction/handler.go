package interaction

import "github.com/fbecker/strategraph/pkg/geometry"

// PointerEvent carries one pointer position in both coordinate spaces, so
// handlers never have to re-derive the transform themselves. Screen is the
// raw event position; Canvas is the same point with pan and zoom undone.
type PointerEvent struct {
	Screen geometry.Point
	Canvas geometry.Point
}

// =============================================================================
// Hit-Test Targets
// =============================================================================

// TargetKind classifies what sits under a pointer position.
type TargetKind int

const (
	// TargetNone means the point is outside the canvas element.
	TargetNone TargetKind = iota

	// TargetCanvas is the empty canvas background.
	TargetCanvas

	// TargetNode is a node body.
	TargetNode

	// TargetHandle is a connection handle on a node's edge.
	TargetHandle
)

// Target identifies the element under a screen position. NodeID is set for
// TargetNode and TargetHandle; Handle only for TargetHandle.
type Target struct {
	Kind   TargetKind
	NodeID string
	Handle geometry.HandleKind
}

// ViewportProvider abstracts the host's hit-testing and canvas measurement
// so the state machine can run without a rendering surface attached.
type ViewportProvider interface {
	// BoundingRect returns the canvas element's screen-space rectangle.
	BoundingRect() geometry.Rect

	// ElementAt reports what sits under a screen-space point.
	ElementAt(p geometry.Point) Target
}

// =============================================================================
// Handler
// =============================================================================

// Handler receives gesture callbacks from the machine. The host forwards
// them into its graph and node stores; the machine itself never touches
// either. Callbacks run synchronously inside event dispatch and must not
// re-enter the machine.
type Handler interface {
	// OnNodeDragStart fires once, when a pending drag crosses the drag
	// threshold. A press-and-release below the threshold is a click and
	// fires nothing.
	OnNodeDragStart(nodeID string, ev PointerEvent)
	OnNodeDragMove(nodeID string, ev PointerEvent)
	OnNodeDragEnd(nodeID string, ev PointerEvent)

	OnConnectionStart(nodeID string, handle geometry.HandleKind, ev PointerEvent)
	OnConnectionMove(ev PointerEvent)
	// OnConnectionEnd fires when a connection gesture finishes. The
	// target is empty when the pointer was released over nothing or the
	// gesture was cancelled.
	OnConnectionEnd(targetNodeID string, targetHandle geometry.HandleKind, ev PointerEvent)

	OnCanvasPanStart(ev PointerEvent)
	OnCanvasPanMove(ev PointerEvent)
	OnCanvasPanEnd(ev PointerEvent)

	// Hover callbacks fire in idle states only; they are suppressed for
	// the whole lifetime of any gesture.
	OnNodeHover(nodeID string, hovering bool)
	OnHandleHover(nodeID string, handle geometry.HandleKind, hovering bool)

	// OnModeChange fires on every transition, after the machine's state
	// is updated and before the gesture callback for the transition.
	OnModeChange(from, to Mode)

	// OnInteractionConflict fires when a press is rejected because an
	// incompatible gesture is active. The active gesture is cancelled
	// immediately afterwards.
	OnInteractionConflict(mode Mode, event string)
}

// NoopHandler implements Handler with no behavior. Embed it to implement
// only the callbacks a host cares about.
type NoopHandler struct{}

func (NoopHandler) OnNodeDragStart(string, PointerEvent) {}
func (NoopHandler) OnNodeDragMove(string, PointerEvent)  {}
func (NoopHandler) OnNodeDragEnd(string, PointerEvent)   {}

func (NoopHandler) OnConnectionStart(string, geometry.HandleKind, PointerEvent) {}
func (NoopHandler) OnConnectionMove(PointerEvent)                               {}
func (NoopHandler) OnConnectionEnd(string, geometry.HandleKind, PointerEvent)   {}

func (NoopHandler) OnCanvasPanStart(PointerEvent) {}
func (NoopHandler) OnCanvasPanMove(PointerEvent)  {}
func (NoopHandler) OnCanvasPanEnd(PointerEvent)   {}

func (NoopHandler) OnNodeHover(string, bool)                        {}
func (NoopHandler) OnHandleHover(string, geometry.HandleKind, bool) {}

func (NoopHandler) OnModeChange(Mode, Mode)            {}
func (NoopHandler) OnInteractionConflict(Mode, string) {}
