package editor

import (
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/interaction"
	"github.com/fbecker/strategraph/pkg/placement"
	"github.com/fbecker/strategraph/pkg/strategy"
)

// handleHitRadius is the screen-space radius, in pixels, within which a
// pointer press counts as hitting a connection handle.
const handleHitRadius = 10.0

// Editor composes the graph manager, placement search, and interaction
// machine into the complete editing surface a host embeds. The host feeds
// pointer and keyboard events in, pushes its viewport size, and renders
// from [Editor.Snapshot].
//
// All methods must be called from a single goroutine, the host's event
// loop.
type Editor struct {
	manager   *graph.Manager
	machine   *interaction.Machine
	logger    *log.Logger
	viewport  geometry.Rect
	place     placement.Options
	dragStart float64

	dragDelta geometry.Point // canvas offset from pointer to dragged node anchor
	panLast   geometry.Point // screen position of the previous pan event

	hoverNode       string
	hoverHandleNode string
	hoverHandle     geometry.HandleKind
}

// Option configures an Editor at construction time.
type Option func(*Editor)

// WithLogger sets the logger shared with the manager and machine.
func WithLogger(l *log.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithManager substitutes a pre-configured graph manager.
func WithManager(m *graph.Manager) Option {
	return func(e *Editor) {
		if m != nil {
			e.manager = m
		}
	}
}

// WithViewport sets the initial screen-space viewport rectangle.
func WithViewport(r geometry.Rect) Option {
	return func(e *Editor) { e.viewport = r }
}

// WithPlacement overrides the node placement options.
func WithPlacement(opts placement.Options) Option {
	return func(e *Editor) { e.place = opts }
}

// WithDragThreshold overrides the pixel distance separating a click from
// a drag. Non-positive values keep the default.
func WithDragThreshold(px float64) Option {
	return func(e *Editor) { e.dragStart = px }
}

// New creates an editor with an empty graph, wired to the trading block
// catalog for compatibility checking and hit-test dimensions.
func New(opts ...Option) (*Editor, error) {
	e := &Editor{
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		viewport: geometry.Rect{Width: 1280, Height: 800},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.manager == nil {
		e.manager = graph.New(
			graph.WithCompatibilityChecker(strategy.Checker{}),
			graph.WithDimensions(strategy.Dimensions),
			graph.WithLogger(e.logger),
		)
	}

	machineOpts := []interaction.Option{interaction.WithLogger(e.logger)}
	if e.dragStart > 0 {
		machineOpts = append(machineOpts, interaction.WithDragThreshold(e.dragStart))
	}
	machine, err := interaction.New(e, &editorHandler{e}, machineOpts...)
	if err != nil {
		return nil, err
	}
	e.machine = machine
	if err := e.machine.SetCanvasState(e.manager.CanvasState()); err != nil {
		return nil, err
	}
	return e, nil
}

// Manager exposes the underlying graph manager for document import/export
// and subscriptions.
func (e *Editor) Manager() *graph.Manager { return e.manager }

// Mode returns the current interaction mode.
func (e *Editor) Mode() interaction.Mode { return e.machine.Mode() }

// Snapshot returns an immutable copy of the full editor state.
func (e *Editor) Snapshot() graph.Snapshot { return e.manager.Snapshot() }

// Subscribe registers fn to run synchronously after every graph change.
func (e *Editor) Subscribe(fn func(graph.Snapshot)) (unsubscribe func()) {
	return e.manager.Subscribe(fn)
}

// Close cancels any active gesture and detaches the interaction machine.
func (e *Editor) Close() { e.machine.Close() }

// =============================================================================
// Input Events
// =============================================================================

// MouseDown feeds a press at a screen position.
func (e *Editor) MouseDown(pos geometry.Point) { e.machine.MouseDown(pos) }

// MouseMove feeds a pointer move at a screen position.
func (e *Editor) MouseMove(pos geometry.Point) { e.machine.MouseMove(pos) }

// MouseUp feeds a release at a screen position.
func (e *Editor) MouseUp(pos geometry.Point) { e.machine.MouseUp(pos) }

// KeyDown feeds a keyboard event. Escape cancels the active gesture.
func (e *Editor) KeyDown(key string) { e.machine.KeyDown(key) }

// =============================================================================
// Node Operations
// =============================================================================

// AddBlock places a new block of the given type at an automatically chosen
// free position in the visible canvas region and adds it to the graph.
// Off-catalog types are accepted with default dimensions.
func (e *Editor) AddBlock(t strategy.BlockType) (graph.Node, error) {
	label := string(t)
	if spec, ok := strategy.Lookup(t); ok {
		label = spec.Label
	}

	viewport, err := e.canvasViewport()
	if err != nil {
		return graph.Node{}, err
	}
	opts := e.place
	opts.NodeSize = strategy.Dimensions(string(t))
	pos := placement.OptimalPosition(viewport, e.nodeBoxes(), &opts)

	n := graph.Node{
		ID:       uuid.NewString(),
		Type:     string(t),
		Position: pos,
		Label:    label,
	}
	if err := e.manager.AddNode(n); err != nil {
		return graph.Node{}, err
	}
	return n, nil
}

// AddBlocks places several blocks sequentially, each placement avoiding
// the ones before it.
func (e *Editor) AddBlocks(types []strategy.BlockType) ([]graph.Node, error) {
	nodes := make([]graph.Node, 0, len(types))
	for _, t := range types {
		n, err := e.AddBlock(t)
		if err != nil {
			return nodes, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// MoveNode moves a node to a canvas position.
func (e *Editor) MoveNode(id string, pos geometry.Point) error {
	return e.manager.MoveNode(id, pos)
}

// RemoveNode removes a node and every connection touching it.
func (e *Editor) RemoveNode(id string) bool {
	return e.manager.RemoveNode(id)
}

// nodeBoxes returns the canvas-space footprint of every current node.
func (e *Editor) nodeBoxes() []geometry.Rect {
	nodes := e.manager.Nodes()
	boxes := make([]geometry.Rect, 0, len(nodes))
	for _, n := range nodes {
		boxes = append(boxes, geometry.BoundingBox(n.Position, strategy.Dimensions(n.Type)))
	}
	return boxes
}

// canvasViewport converts the current screen viewport into canvas space.
func (e *Editor) canvasViewport() (geometry.Rect, error) {
	return placement.CanvasViewport(e.viewport, e.manager.CanvasState())
}

// =============================================================================
// Pan and Zoom
// =============================================================================

// CanvasState returns the authoritative zoom and pan offset.
func (e *Editor) CanvasState() geometry.CanvasState { return e.manager.CanvasState() }

// SetCanvasState replaces the canvas transform wholesale, clamping zoom.
func (e *Editor) SetCanvasState(cs geometry.CanvasState) error { return e.setCanvas(cs) }

// Pan shifts the canvas offset by a screen-space delta.
func (e *Editor) Pan(delta geometry.Point) error {
	if err := delta.Validate(); err != nil {
		return err
	}
	cs := e.manager.CanvasState()
	cs.Offset = cs.Offset.Add(delta)
	return e.setCanvas(cs)
}

// ZoomAt changes the zoom level while keeping the canvas point under the
// screen anchor stationary, then re-spreads node positions for the new
// zoom via the placement rescaler.
func (e *Editor) ZoomAt(screenAnchor geometry.Point, newZoom float64) error {
	if err := screenAnchor.Validate(); err != nil {
		return err
	}
	cs := e.manager.CanvasState()
	old := cs.Zoom
	z := geometry.ClampZoom(newZoom)
	if z == old {
		return nil
	}

	canvasAnchor, err := geometry.ScreenToCanvas(screenAnchor, cs)
	if err != nil {
		return err
	}
	cs.Zoom = z
	cs.Offset = screenAnchor.Sub(canvasAnchor.Scale(z))

	if nodes := e.manager.Nodes(); len(nodes) > 0 {
		viewport, err := placement.CanvasViewport(e.viewport, cs)
		if err != nil {
			return err
		}
		positions := make(map[string]geometry.Point, len(nodes))
		for _, n := range nodes {
			positions[n.ID] = n.Position
		}
		rescaled := placement.RescaleForZoom(positions, viewport, old, z, &e.place)
		for i := range nodes {
			nodes[i].Position = rescaled[nodes[i].ID]
		}
		if err := e.manager.UpdateNodes(nodes); err != nil {
			return err
		}
	}
	return e.setCanvas(cs)
}

// SetViewport records the host's screen-space viewport rectangle, used for
// hit-testing bounds and placement.
func (e *Editor) SetViewport(r geometry.Rect) error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidInput, "viewport must be finite, got %+v", r)
		}
	}
	if r.Width < 0 || r.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "viewport size must not be negative, got %+v", r)
	}
	e.viewport = r
	return nil
}

// setCanvas pushes a canvas transform to the manager and mirrors the
// accepted (clamped) state into the interaction machine.
func (e *Editor) setCanvas(cs geometry.CanvasState) error {
	if err := e.manager.SetCanvasState(cs); err != nil {
		return err
	}
	return e.machine.SetCanvasState(e.manager.CanvasState())
}

// =============================================================================
// Hover State
// =============================================================================

// HoveredNode returns the ID of the node under an idle pointer, if any.
func (e *Editor) HoveredNode() (string, bool) {
	return e.hoverNode, e.hoverNode != ""
}

// HoveredHandle returns the handle under an idle pointer, if any.
func (e *Editor) HoveredHandle() (nodeID string, handle geometry.HandleKind, ok bool) {
	return e.hoverHandleNode, e.hoverHandle, e.hoverHandleNode != ""
}

// =============================================================================
// Viewport Provider
// =============================================================================

// BoundingRect returns the host viewport in screen space. Part of the
// interaction.ViewportProvider contract.
func (e *Editor) BoundingRect() geometry.Rect { return e.viewport }

// ElementAt hit-tests a screen position against handles first, then node
// bodies in z-order, then the canvas background. Part of the
// interaction.ViewportProvider contract.
func (e *Editor) ElementAt(p geometry.Point) interaction.Target {
	cs := e.manager.CanvasState()
	nodes := e.manager.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		dims := strategy.Dimensions(n.Type)
		for _, h := range []geometry.HandleKind{geometry.HandleOutput, geometry.HandleInput} {
			hp, err := geometry.HandleScreenPosition(n.Position, h, dims, cs)
			if err != nil {
				continue
			}
			if geometry.PointInCircle(p, hp, handleHitRadius) {
				return interaction.Target{Kind: interaction.TargetHandle, NodeID: n.ID, Handle: h}
			}
		}
	}
	if n, ok := e.manager.NodeAt(p); ok {
		return interaction.Target{Kind: interaction.TargetNode, NodeID: n.ID}
	}
	if geometry.PointInRect(p, e.viewport) {
		return interaction.Target{Kind: interaction.TargetCanvas}
	}
	return interaction.Target{Kind: interaction.TargetNone}
}

var _ interaction.ViewportProvider = (*Editor)(nil)
