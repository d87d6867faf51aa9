package interaction

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/observability"
)

// defaultDragThreshold is the pointer travel, in screen pixels, that
// promotes a node press into a drag.
const defaultDragThreshold = 5.0

// State is the read-only snapshot of the machine handed to hosts. The
// boolean fields are conveniences derived from Mode.
type State struct {
	Mode         Mode                 `json:"mode" bson:"mode"`
	ActiveNodeID string               `json:"active_node_id,omitempty" bson:"active_node_id,omitempty"`
	IsDragging   bool                 `json:"is_dragging" bson:"is_dragging"`
	IsConnecting bool                 `json:"is_connecting" bson:"is_connecting"`
	IsPanning    bool                 `json:"is_panning" bson:"is_panning"`
	Canvas       geometry.CanvasState `json:"canvas" bson:"canvas"`
}

// Machine is the interaction state machine. It owns the current mode,
// arbitrates between dragging, connecting, panning, and hovering, and
// guarantees at most one active gesture at a time.
//
// The machine is handler-driven: it decides legality and timing, then
// calls out to the host's [Handler]; it never mutates graph state itself.
// All methods must be called from the host's single event loop.
type Machine struct {
	provider ViewportProvider
	handler  Handler
	logger   *log.Logger

	mode        Mode
	activeNode  string
	dragOrigin  geometry.Point // screen, set while ModePreparingDrag
	lastPointer geometry.Point // screen, last accepted event position
	canvas      geometry.CanvasState
	threshold   float64

	gestureStart time.Time

	hoverNode       string
	hoverHandleNode string
	hoverHandleKind geometry.HandleKind

	closed bool
}

// Option configures a Machine at construction time.
type Option func(*Machine)

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDragThreshold overrides the pixel distance that separates a click
// from a drag. Non-positive values are ignored.
func WithDragThreshold(px float64) Option {
	return func(m *Machine) {
		if px > 0 {
			m.threshold = px
		}
	}
}

// New creates an interaction machine wired to the host's viewport and
// handler. A nil handler gets the no-op implementation.
func New(provider ViewportProvider, handler Handler, opts ...Option) (*Machine, error) {
	if provider == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "viewport provider must not be nil")
	}
	if handler == nil {
		handler = NoopHandler{}
	}
	m := &Machine{
		provider:  provider,
		handler:   handler,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
		canvas:    geometry.DefaultCanvasState(),
		threshold: defaultDragThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Mode returns the current interaction mode.
func (m *Machine) Mode() Mode { return m.mode }

// State returns a snapshot of the machine's state.
func (m *Machine) State() State {
	return State{
		Mode:         m.mode,
		ActiveNodeID: m.activeNode,
		IsDragging:   m.mode == ModeDraggingNode,
		IsConnecting: m.mode == ModeCreatingConnection,
		IsPanning:    m.mode == ModePanningCanvas,
		Canvas:       m.canvas,
	}
}

// SetCanvasState updates the zoom/offset used to derive canvas-space
// pointer positions, clamping zoom into its valid range.
func (m *Machine) SetCanvasState(cs geometry.CanvasState) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	cs.Zoom = geometry.ClampZoom(cs.Zoom)
	m.canvas = cs
	return nil
}

// =============================================================================
// Legality Guards
// =============================================================================

// NodeDraggingAllowed reports whether a node press may open a drag in the
// current mode.
func (m *Machine) NodeDraggingAllowed() bool {
	return !m.closed && (m.mode == ModeIdle || m.mode == ModeHoveringHandle)
}

// ConnectionAllowed reports whether a handle press may open a connection.
// Unlike dragging and panning, this is also legal while a drag is still
// pending: a handle press outranks it.
func (m *Machine) ConnectionAllowed() bool {
	return !m.closed &&
		(m.mode == ModeIdle || m.mode == ModePreparingDrag || m.mode == ModeHoveringHandle)
}

// CanvasPanningAllowed reports whether a background press may open a pan.
func (m *Machine) CanvasPanningAllowed() bool {
	return !m.closed && (m.mode == ModeIdle || m.mode == ModeHoveringHandle)
}

// =============================================================================
// Pointer Events
// =============================================================================

// MouseDown feeds a press at a screen position. What begins depends on the
// element under the pointer: a handle opens a connection, a node body arms
// a drag, the background opens a pan. A press that conflicts with an
// active gesture fires [Handler.OnInteractionConflict] and cancels the
// gesture rather than leaving it dangling.
func (m *Machine) MouseDown(pos geometry.Point) {
	if m.closed {
		return
	}
	ev, ok := m.pointerEvent(pos)
	if !ok {
		return
	}

	// Any press dismisses passive hover highlights first.
	switch m.mode {
	case ModeHoveringHandle:
		m.clearHover()
		m.setMode(ModeIdle)
	case ModeIdle:
		m.clearHover()
	}

	target := m.provider.ElementAt(pos)
	switch target.Kind {
	case TargetHandle:
		if !m.ConnectionAllowed() {
			m.conflict("mousedown")
			return
		}
		// A handle press outranks a pending drag: the drag never
		// started, so no drag callbacks fire.
		m.activeNode = target.NodeID
		m.gestureStart = time.Now()
		m.setMode(ModeCreatingConnection)
		m.handler.OnConnectionStart(target.NodeID, target.Handle, ev)

	case TargetNode:
		if !m.NodeDraggingAllowed() {
			m.conflict("mousedown")
			return
		}
		m.activeNode = target.NodeID
		m.dragOrigin = pos
		m.setMode(ModePreparingDrag)

	case TargetCanvas:
		if !m.CanvasPanningAllowed() {
			m.conflict("mousedown")
			return
		}
		m.gestureStart = time.Now()
		m.setMode(ModePanningCanvas)
		m.handler.OnCanvasPanStart(ev)
	}
}

// MouseMove feeds a pointer move. While idle it drives hover tracking;
// while a gesture is active it drives that gesture's move callback. The
// move that carries a pending drag past the threshold fires
// [Handler.OnNodeDragStart].
func (m *Machine) MouseMove(pos geometry.Point) {
	if m.closed {
		return
	}
	ev, ok := m.pointerEvent(pos)
	if !ok {
		return
	}

	switch m.mode {
	case ModeIdle, ModeHoveringHandle:
		m.updateHover(pos)
	case ModePreparingDrag:
		if geometry.Distance(pos, m.dragOrigin) < m.threshold {
			return
		}
		m.gestureStart = time.Now()
		m.setMode(ModeDraggingNode)
		m.handler.OnNodeDragStart(m.activeNode, ev)
	case ModeDraggingNode:
		m.handler.OnNodeDragMove(m.activeNode, ev)
	case ModeCreatingConnection:
		m.handler.OnConnectionMove(ev)
	case ModePanningCanvas:
		m.handler.OnCanvasPanMove(ev)
	}
}

// MouseUp feeds a release. A pending drag below the threshold ends as a
// click, firing nothing. A connection gesture resolves its target by
// hit-testing the release position: releasing on a handle passes it to
// [Handler.OnConnectionEnd], anywhere else passes an empty target.
func (m *Machine) MouseUp(pos geometry.Point) {
	if m.closed {
		return
	}
	ev, ok := m.pointerEvent(pos)
	if !ok {
		return
	}

	switch m.mode {
	case ModePreparingDrag:
		m.activeNode = ""
		m.setMode(ModeIdle)

	case ModeDraggingNode:
		node := m.activeNode
		m.activeNode = ""
		m.setMode(ModeIdle)
		m.handler.OnNodeDragEnd(node, ev)
		m.finishGesture("node-drag")

	case ModeCreatingConnection:
		target := m.provider.ElementAt(pos)
		m.activeNode = ""
		m.setMode(ModeIdle)
		if target.Kind == TargetHandle {
			m.handler.OnConnectionEnd(target.NodeID, target.Handle, ev)
		} else {
			m.handler.OnConnectionEnd("", "", ev)
		}
		m.finishGesture("connection")

	case ModePanningCanvas:
		m.setMode(ModeIdle)
		m.handler.OnCanvasPanEnd(ev)
		m.finishGesture("pan")
	}
}

// =============================================================================
// Keyboard and Lifecycle
// =============================================================================

// KeyDown feeds a keyboard event. Only Escape is meaningful; everything
// else is ignored.
func (m *Machine) KeyDown(key string) {
	if m.closed || key != "Escape" {
		return
	}
	m.cancelActive()
}

// Cancel aborts any active gesture with its mode-appropriate end callback
// and returns to idle. Equivalent to the user pressing Escape.
func (m *Machine) Cancel() {
	if m.closed {
		return
	}
	m.cancelActive()
}

// Close cancels any active gesture and permanently detaches the machine:
// all subsequent events are ignored. Safe to call more than once.
func (m *Machine) Close() {
	if m.closed {
		return
	}
	m.cancelActive()
	m.closed = true
}

// =============================================================================
// Internals
// =============================================================================

// pointerEvent validates a screen position and derives its canvas-space
// twin. Non-finite positions are dropped with a warning.
func (m *Machine) pointerEvent(pos geometry.Point) (PointerEvent, bool) {
	canvas, err := geometry.ScreenToCanvas(pos, m.canvas)
	if err != nil {
		m.logger.Warn("ignoring pointer event", "err", err)
		return PointerEvent{}, false
	}
	m.lastPointer = pos
	return PointerEvent{Screen: pos, Canvas: canvas}, true
}

// lastEvent rebuilds a pointer event from the last accepted position, for
// cancellations that arrive without one. lastPointer only ever holds
// validated positions, so the transform cannot fail.
func (m *Machine) lastEvent() PointerEvent {
	canvas, _ := geometry.ScreenToCanvas(m.lastPointer, m.canvas)
	return PointerEvent{Screen: m.lastPointer, Canvas: canvas}
}

func (m *Machine) setMode(to Mode) {
	if m.mode == to {
		return
	}
	from := m.mode
	m.mode = to
	m.logger.Debug("mode change", "from", from, "to", to)
	m.handler.OnModeChange(from, to)
	observability.Interaction().OnModeChange(context.Background(), from.String(), to.String())
}

// conflict reports a rejected press, then cancels the active gesture so a
// desynchronized pointer can never wedge the machine mid-gesture.
func (m *Machine) conflict(event string) {
	m.logger.Debug("interaction conflict", "mode", m.mode, "event", event)
	m.handler.OnInteractionConflict(m.mode, event)
	observability.Interaction().OnConflict(context.Background(), m.mode.String(), event)
	m.cancelActive()
}

// cancelActive is the Escape path: mode-appropriate cleanup, then idle.
func (m *Machine) cancelActive() {
	ev := m.lastEvent()
	switch m.mode {
	case ModePreparingDrag:
		// No drag ever started, so nothing to clean up.
		m.activeNode = ""
		m.setMode(ModeIdle)

	case ModeDraggingNode:
		node := m.activeNode
		m.activeNode = ""
		m.setMode(ModeIdle)
		m.handler.OnNodeDragEnd(node, ev)
		m.finishGesture("node-drag")

	case ModeCreatingConnection:
		m.activeNode = ""
		m.setMode(ModeIdle)
		m.handler.OnConnectionEnd("", "", ev)
		m.finishGesture("connection")

	case ModePanningCanvas:
		m.setMode(ModeIdle)
		m.handler.OnCanvasPanEnd(ev)
		m.finishGesture("pan")

	case ModeHoveringHandle:
		m.clearHover()
		m.setMode(ModeIdle)
	}
}

func (m *Machine) finishGesture(kind string) {
	observability.Interaction().OnGesture(context.Background(), kind, time.Since(m.gestureStart))
}

// updateHover re-resolves what sits under an idle pointer and fires the
// enter/leave pairs for handle and node-body highlights. Handle hover is a
// mode of its own; body hover is not.
func (m *Machine) updateHover(pos geometry.Point) {
	target := m.provider.ElementAt(pos)

	if target.Kind == TargetHandle {
		if m.hoverNode != "" {
			m.handler.OnNodeHover(m.hoverNode, false)
			m.hoverNode = ""
		}
		if m.hoverHandleNode == target.NodeID && m.hoverHandleKind == target.Handle {
			return
		}
		if m.hoverHandleNode != "" {
			m.handler.OnHandleHover(m.hoverHandleNode, m.hoverHandleKind, false)
		}
		m.hoverHandleNode = target.NodeID
		m.hoverHandleKind = target.Handle
		m.setMode(ModeHoveringHandle)
		m.handler.OnHandleHover(target.NodeID, target.Handle, true)
		return
	}

	if m.hoverHandleNode != "" {
		m.handler.OnHandleHover(m.hoverHandleNode, m.hoverHandleKind, false)
		m.hoverHandleNode = ""
		m.hoverHandleKind = ""
	}
	if m.mode == ModeHoveringHandle {
		m.setMode(ModeIdle)
	}

	hoverNode := ""
	if target.Kind == TargetNode {
		hoverNode = target.NodeID
	}
	if hoverNode == m.hoverNode {
		return
	}
	if m.hoverNode != "" {
		m.handler.OnNodeHover(m.hoverNode, false)
	}
	m.hoverNode = hoverNode
	if hoverNode != "" {
		m.handler.OnNodeHover(hoverNode, true)
	}
}

// clearHover fires pending leave callbacks and resets hover bookkeeping,
// without touching the mode.
func (m *Machine) clearHover() {
	if m.hoverHandleNode != "" {
		m.handler.OnHandleHover(m.hoverHandleNode, m.hoverHandleKind, false)
		m.hoverHandleNode = ""
		m.hoverHandleKind = ""
	}
	if m.hoverNode != "" {
		m.handler.OnNodeHover(m.hoverNode, false)
		m.hoverNode = ""
	}
}
