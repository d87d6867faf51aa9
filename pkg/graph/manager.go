package graph

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/observability"
)

// DimensionsFunc maps a node type to its rendered footprint. Used for
// screen-space hit-testing during connection drags.
type DimensionsFunc func(nodeType string) geometry.Dimensions

// Manager is the mutable, observable strategy graph store.
//
// The zero value is not usable - use [New] to create a valid instance.
// Manager is not safe for concurrent use without external synchronization;
// all mutation is expected to happen on the host's event loop.
type Manager struct {
	nodes       map[string]Node
	order       []string // insertion order, also the render z-order
	connections []Connection
	outgoing    map[string][]string // nodeID -> target IDs
	incoming    map[string][]string // nodeID -> source IDs

	draft  *ActiveConnection
	canvas geometry.CanvasState

	checker CompatibilityChecker
	dims    DimensionsFunc
	logger  *log.Logger

	listeners []listener
	nextSub   int
}

type listener struct {
	id int
	fn func(Snapshot)
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger sets the logger used for validation diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithCompatibilityChecker sets the node-type compatibility checker used to
// produce connection warnings.
func WithCompatibilityChecker(c CompatibilityChecker) Option {
	return func(m *Manager) {
		if c != nil {
			m.checker = c
		}
	}
}

// WithDimensions sets the node-type dimension lookup used for hit-testing.
func WithDimensions(f DimensionsFunc) Option {
	return func(m *Manager) {
		if f != nil {
			m.dims = f
		}
	}
}

// New creates an empty Manager. By default it allows all type pairings,
// uses [geometry.DefaultNodeDimensions] for every node type, and logs
// nowhere.
func New(opts ...Option) *Manager {
	m := &Manager{
		nodes:    make(map[string]Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		canvas:   geometry.DefaultCanvasState(),
		checker:  AllowAll{},
		dims:     func(string) geometry.Dimensions { return geometry.DefaultNodeDimensions() },
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// =============================================================================
// Node Operations
// =============================================================================

// AddNode adds a node to the graph.
// Returns an error if the ID is empty, already in use, or the position is
// non-finite.
func (m *Manager) AddNode(n Node) error {
	if n.ID == "" {
		return errors.New(errors.ErrCodeInvalidNode, "node ID must not be empty")
	}
	if _, exists := m.nodes[n.ID]; exists {
		return errors.New(errors.ErrCodeInvalidNode, "duplicate node ID %q", n.ID)
	}
	if err := n.Position.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidNode, err, "node %q position", n.ID)
	}
	m.nodes[n.ID] = cloneNode(n)
	m.order = append(m.order, n.ID)
	observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), len(m.connections))
	m.notify()
	return nil
}

// Node returns a copy of the node with the given ID.
func (m *Manager) Node(id string) (Node, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	return cloneNode(n), true
}

// Nodes returns copies of all nodes in insertion order.
func (m *Manager) Nodes() []Node {
	out := make([]Node, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneNode(m.nodes[id]))
	}
	return out
}

// NodeCount returns the number of nodes in the graph.
func (m *Manager) NodeCount() int { return len(m.nodes) }

// MoveNode updates a node's canvas position.
// Returns an error if the node does not exist or the position is non-finite.
func (m *Manager) MoveNode(id string, pos geometry.Point) error {
	n, ok := m.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q not found", id)
	}
	if err := pos.Validate(); err != nil {
		return err
	}
	n.Position = pos
	m.nodes[id] = n
	m.notify()
	return nil
}

// RemoveNode deletes a node and cascade-deletes every connection touching
// it. Reports whether the node existed.
func (m *Manager) RemoveNode(id string) bool {
	if _, ok := m.nodes[id]; !ok {
		return false
	}
	delete(m.nodes, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	m.removeConnectionsFor(id)
	observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), len(m.connections))
	m.notify()
	return true
}

// UpdateNodes replaces the node set wholesale, keeping the manager in sync
// with the host's node store. Connections whose endpoints no longer exist
// are cascade-dropped. On error, nothing is mutated.
func (m *Manager) UpdateNodes(nodes []Node) error {
	fresh := make(map[string]Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidNode, "node ID must not be empty")
		}
		if _, dup := fresh[n.ID]; dup {
			return errors.New(errors.ErrCodeInvalidNode, "duplicate node ID %q", n.ID)
		}
		if err := n.Position.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidNode, err, "node %q position", n.ID)
		}
		fresh[n.ID] = cloneNode(n)
		order = append(order, n.ID)
	}

	m.nodes = fresh
	m.order = order
	m.connections = slices.DeleteFunc(m.connections, func(c Connection) bool {
		_, srcOK := fresh[c.Source]
		_, tgtOK := fresh[c.Target]
		return !srcOK || !tgtOK
	})
	m.rebuildAdjacency()
	observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), len(m.connections))
	m.notify()
	return nil
}

// NodeAt hit-tests a screen-space point against the rendered node
// rectangles, scanning from topmost (most recently added) down.
func (m *Manager) NodeAt(screenPos geometry.Point) (Node, bool) {
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.nodes[m.order[i]]
		rect, err := geometry.ScreenBoundingBox(n.Position, m.dims(n.Type), m.canvas)
		if err != nil {
			continue
		}
		if rect.Contains(screenPos) {
			return cloneNode(n), true
		}
	}
	return Node{}, false
}

// =============================================================================
// Connection Operations
// =============================================================================

// Connections returns copies of all connections in creation order.
func (m *Manager) Connections() []Connection {
	out := make([]Connection, 0, len(m.connections))
	for _, c := range m.connections {
		out = append(out, cloneConnection(c))
	}
	return out
}

// ConnectionCount returns the number of connections in the graph.
func (m *Manager) ConnectionCount() int { return len(m.connections) }

// DeleteConnection removes the connection with the given ID.
// Reports whether a connection was removed.
func (m *Manager) DeleteConnection(id string) bool {
	idx := slices.IndexFunc(m.connections, func(c Connection) bool { return c.ID == id })
	if idx < 0 {
		return false
	}
	c := m.connections[idx]
	m.connections = slices.Delete(m.connections, idx, idx+1)
	m.outgoing[c.Source] = slices.DeleteFunc(m.outgoing[c.Source], func(s string) bool { return s == c.Target })
	m.incoming[c.Target] = slices.DeleteFunc(m.incoming[c.Target], func(s string) bool { return s == c.Source })
	observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), len(m.connections))
	m.notify()
	return true
}

// DeleteConnectionsForNode cascade-deletes every connection that starts or
// ends at the node. Returns the number of connections removed.
func (m *Manager) DeleteConnectionsForNode(nodeID string) int {
	removed := m.removeConnectionsFor(nodeID)
	if removed > 0 {
		observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), len(m.connections))
		m.notify()
	}
	return removed
}

// ClearAllConnections removes every connection.
func (m *Manager) ClearAllConnections() {
	m.connections = nil
	m.outgoing = make(map[string][]string)
	m.incoming = make(map[string][]string)
	observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), 0)
	m.notify()
}

func (m *Manager) removeConnectionsFor(nodeID string) int {
	before := len(m.connections)
	m.connections = slices.DeleteFunc(m.connections, func(c Connection) bool {
		return c.Source == nodeID || c.Target == nodeID
	})
	removed := before - len(m.connections)
	if removed > 0 {
		m.rebuildAdjacency()
	}
	return removed
}

func (m *Manager) addConnection(c Connection) {
	m.connections = append(m.connections, c)
	m.outgoing[c.Source] = append(m.outgoing[c.Source], c.Target)
	m.incoming[c.Target] = append(m.incoming[c.Target], c.Source)
}

func (m *Manager) rebuildAdjacency() {
	m.outgoing = make(map[string][]string, len(m.nodes))
	m.incoming = make(map[string][]string, len(m.nodes))
	for _, c := range m.connections {
		m.outgoing[c.Source] = append(m.outgoing[c.Source], c.Target)
		m.incoming[c.Target] = append(m.incoming[c.Target], c.Source)
	}
}

// =============================================================================
// Draft Lifecycle
// =============================================================================

// StartConnection opens a new draft from a node handle, cancelling any
// draft already in progress. startPos is the handle's screen position.
func (m *Manager) StartConnection(sourceNodeID string, handle geometry.HandleKind, startPos geometry.Point) error {
	if !handle.Valid() {
		return errors.New(errors.ErrCodeInvalidHandle, "unknown handle kind %q", handle)
	}
	if _, ok := m.nodes[sourceNodeID]; !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q not found", sourceNodeID)
	}
	if err := startPos.Validate(); err != nil {
		return err
	}
	m.draft = &ActiveConnection{
		SourceNode:      sourceNodeID,
		SourceHandle:    handle,
		StartPosition:   startPos,
		CurrentPosition: startPos,
	}
	m.notify()
	return nil
}

// UpdateConnectionPosition moves the draft's endpoint to a new screen
// position and recomputes hover validity by hit-testing the nodes under it.
// A no-op when no draft is active; non-finite positions are ignored with a
// warning.
func (m *Manager) UpdateConnectionPosition(pos geometry.Point) {
	if m.draft == nil {
		return
	}
	if err := pos.Validate(); err != nil {
		m.logger.Warn("ignoring draft position update", "err", err)
		return
	}

	m.draft.CurrentPosition = pos
	m.draft.IsValid = false
	if hit, ok := m.NodeAt(pos); ok {
		targetHandle := geometry.HandleInput
		if m.draft.SourceHandle == geometry.HandleInput {
			targetHandle = geometry.HandleOutput
		}
		result := m.ValidateConnection(m.draft.SourceNode, m.draft.SourceHandle, hit.ID, targetHandle)
		m.draft.IsValid = result.IsValid
	}
	m.notify()
}

// CompleteConnection runs full validation and, on success, commits the
// draft as a new connection in normalized direction (Source is always the
// output side). On failure the validation errors are logged and the attempt
// is dropped. Either way the draft is destroyed: a connection attempt can
// never leave the system stuck mid-gesture.
func (m *Manager) CompleteConnection(targetNodeID string, targetHandle geometry.HandleKind) bool {
	draft := m.draft
	if draft == nil {
		return false
	}
	m.draft = nil

	result := m.ValidateConnection(draft.SourceNode, draft.SourceHandle, targetNodeID, targetHandle)
	if !result.IsValid {
		m.logger.Warn("connection rejected",
			"source", draft.SourceNode,
			"target", targetNodeID,
			"errors", strings.Join(result.Errors, "; "))
		observability.Graph().OnConnectionRejected(context.Background(), draft.SourceNode, targetNodeID, result.Errors)
		m.notify()
		return false
	}

	source, target := normalizeDirection(draft.SourceNode, draft.SourceHandle, targetNodeID)
	conn := Connection{
		ID:           uuid.NewString(),
		Source:       source,
		Target:       target,
		SourceHandle: geometry.HandleOutput,
		TargetHandle: geometry.HandleInput,
		Created:      time.Now(),
		IsValid:      true,
	}
	if len(result.Warnings) > 0 {
		m.logger.Debug("connection created with warnings",
			"source", source,
			"target", target,
			"warnings", strings.Join(result.Warnings, "; "))
		conn.Meta = map[string]any{"warnings": result.Warnings}
	}

	m.addConnection(conn)
	observability.Graph().OnConnectionCreated(context.Background(), source, target)
	observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), len(m.connections))
	m.notify()
	return true
}

// CancelConnection destroys the draft without committing anything.
func (m *Manager) CancelConnection() {
	if m.draft == nil {
		return
	}
	m.draft = nil
	m.notify()
}

// ActiveDraft returns a copy of the in-progress draft, if any.
func (m *Manager) ActiveDraft() (ActiveConnection, bool) {
	if m.draft == nil {
		return ActiveConnection{}, false
	}
	return *m.draft, true
}

// normalizeDirection orders an edge so the output-side node comes first.
func normalizeDirection(sourceNode string, sourceHandle geometry.HandleKind, targetNode string) (from, to string) {
	if sourceHandle == geometry.HandleOutput {
		return sourceNode, targetNode
	}
	return targetNode, sourceNode
}

// =============================================================================
// Canvas State
// =============================================================================

// SetCanvasState updates the zoom/offset shared with the renderer, clamping
// zoom into its valid range. Returns an error on non-finite offset or
// non-positive zoom.
func (m *Manager) SetCanvasState(cs geometry.CanvasState) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	cs.Zoom = geometry.ClampZoom(cs.Zoom)
	m.canvas = cs
	m.notify()
	return nil
}

// CanvasState returns the current zoom/offset.
func (m *Manager) CanvasState() geometry.CanvasState { return m.canvas }

// =============================================================================
// Observation
// =============================================================================

// Subscribe registers a listener invoked synchronously after every
// mutation with an immutable state snapshot. The returned function removes
// the listener; registration and removal must be paired.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.nextSub++
	id := m.nextSub
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return func() {
		m.listeners = slices.DeleteFunc(m.listeners, func(l listener) bool { return l.id == id })
	}
}

// Snapshot returns an immutable copy of the full manager state.
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{
		Nodes:       m.Nodes(),
		Connections: m.Connections(),
		Canvas:      m.canvas,
	}
	if m.draft != nil {
		d := *m.draft
		snap.Draft = &d
	}
	return snap
}

func (m *Manager) notify() {
	if len(m.listeners) == 0 {
		return
	}
	snap := m.Snapshot()
	for _, l := range slices.Clone(m.listeners) {
		l.fn(snap)
	}
}
