package graph

import (
	"context"
	"math"
	"testing"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/observability"
)

// newTestManager returns a manager pre-loaded with nodes laid out in a row,
// spaced far enough apart that their boxes never overlap at zoom 1.
func newTestManager(t *testing.T, ids ...string) *Manager {
	t.Helper()
	m := New()
	for i, id := range ids {
		n := Node{ID: id, Type: "indicator", Position: geometry.Point{X: float64(i) * 400}}
		if err := m.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	return m
}

// connect wires a committed edge through the full draft lifecycle.
func connect(t *testing.T, m *Manager, from, to string) {
	t.Helper()
	if err := m.StartConnection(from, geometry.HandleOutput, geometry.Point{}); err != nil {
		t.Fatalf("StartConnection(%s): %v", from, err)
	}
	if !m.CompleteConnection(to, geometry.HandleInput) {
		t.Fatalf("CompleteConnection(%s -> %s) = false, want true", from, to)
	}
}

// checkerFunc adapts a function to the CompatibilityChecker interface.
type checkerFunc func(sourceType, targetType string) (bool, string)

func (f checkerFunc) Compatible(sourceType, targetType string) (bool, string) {
	return f(sourceType, targetType)
}

func TestAddNode(t *testing.T) {
	tests := []struct {
		name     string
		existing []Node
		node     Node
		wantCode errors.Code
	}{
		{
			name: "Valid",
			node: Node{ID: "sma", Type: "indicator", Position: geometry.Point{X: 100, Y: 50}},
		},
		{
			name:     "EmptyID",
			node:     Node{Type: "indicator"},
			wantCode: errors.ErrCodeInvalidNode,
		},
		{
			name:     "DuplicateID",
			existing: []Node{{ID: "sma", Type: "indicator"}},
			node:     Node{ID: "sma", Type: "condition"},
			wantCode: errors.ErrCodeInvalidNode,
		},
		{
			name:     "NonFinitePosition",
			node:     Node{ID: "sma", Position: geometry.Point{X: math.NaN()}},
			wantCode: errors.ErrCodeInvalidNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			for _, n := range tt.existing {
				if err := m.AddNode(n); err != nil {
					t.Fatalf("AddNode(existing): %v", err)
				}
			}

			err := m.AddNode(tt.node)
			if tt.wantCode != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if got := errors.GetCode(err); got != tt.wantCode {
					t.Errorf("code = %s, want %s", got, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddNode: %v", err)
			}

			got, ok := m.Node(tt.node.ID)
			if !ok {
				t.Fatalf("Node(%s) not found after add", tt.node.ID)
			}
			if got.Position != tt.node.Position {
				t.Errorf("position = %v, want %v", got.Position, tt.node.Position)
			}
		})
	}
}

func TestNodesPreserveInsertionOrder(t *testing.T) {
	m := newTestManager(t, "price", "sma", "cross", "order")

	nodes := m.Nodes()
	want := []string{"price", "sma", "cross", "order"}
	if len(nodes) != len(want) {
		t.Fatalf("nodes = %d, want %d", len(nodes), len(want))
	}
	for i, id := range want {
		if nodes[i].ID != id {
			t.Errorf("nodes[%d] = %s, want %s", i, nodes[i].ID, id)
		}
	}
}

func TestMoveNode(t *testing.T) {
	m := newTestManager(t, "a")

	if err := m.MoveNode("a", geometry.Point{X: 300, Y: 250}); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	n, _ := m.Node("a")
	if n.Position != (geometry.Point{X: 300, Y: 250}) {
		t.Errorf("position = %v, want (300, 250)", n.Position)
	}

	err := m.MoveNode("ghost", geometry.Point{})
	if errors.GetCode(err) != errors.ErrCodeNodeNotFound {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeNodeNotFound)
	}

	if err := m.MoveNode("a", geometry.Point{X: math.Inf(1)}); err == nil {
		t.Error("expected error for non-finite position")
	}
	n, _ = m.Node("a")
	if n.Position != (geometry.Point{X: 300, Y: 250}) {
		t.Errorf("failed move mutated position to %v", n.Position)
	}
}

func TestRemoveNodeCascadesConnections(t *testing.T) {
	m := newTestManager(t, "a", "b", "c")
	connect(t, m, "a", "b")
	connect(t, m, "b", "c")

	if !m.RemoveNode("b") {
		t.Fatal("RemoveNode(b) = false, want true")
	}

	if got := m.NodeCount(); got != 2 {
		t.Errorf("nodes = %d, want 2", got)
	}
	if got := m.ConnectionCount(); got != 0 {
		t.Errorf("connections = %d, want 0", got)
	}
	if m.RemoveNode("b") {
		t.Error("RemoveNode(b) second call = true, want false")
	}
}

func TestUpdateNodes(t *testing.T) {
	m := newTestManager(t, "a", "b", "c")
	connect(t, m, "a", "b")
	connect(t, m, "b", "c")

	// Replace the set without b: both edges touch b and must go.
	err := m.UpdateNodes([]Node{
		{ID: "a", Type: "indicator"},
		{ID: "c", Type: "indicator"},
		{ID: "d", Type: "signal"},
	})
	if err != nil {
		t.Fatalf("UpdateNodes: %v", err)
	}
	if got := m.NodeCount(); got != 3 {
		t.Errorf("nodes = %d, want 3", got)
	}
	if got := m.ConnectionCount(); got != 0 {
		t.Errorf("connections = %d, want 0", got)
	}

	// A rejected update leaves everything untouched.
	err = m.UpdateNodes([]Node{{ID: "x"}, {ID: "x"}})
	if errors.GetCode(err) != errors.ErrCodeInvalidNode {
		t.Fatalf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidNode)
	}
	if _, ok := m.Node("d"); !ok {
		t.Error("failed update mutated the node set")
	}
}

func TestNodeAt(t *testing.T) {
	m := newTestManager(t, "a", "b")

	tests := []struct {
		name   string
		pos    geometry.Point
		wantID string
		wantOK bool
	}{
		{name: "InsideFirst", pos: geometry.Point{X: 100, Y: 60}, wantID: "a", wantOK: true},
		{name: "InsideSecond", pos: geometry.Point{X: 450, Y: 10}, wantID: "b", wantOK: true},
		{name: "OnEdge", pos: geometry.Point{X: 240, Y: 120}, wantID: "a", wantOK: true},
		{name: "Miss", pos: geometry.Point{X: 300, Y: 300}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := m.NodeAt(tt.pos)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && n.ID != tt.wantID {
				t.Errorf("node = %s, want %s", n.ID, tt.wantID)
			}
		})
	}
}

func TestNodeAtTopmostWins(t *testing.T) {
	m := New()
	if err := m.AddNode(Node{ID: "under", Position: geometry.Point{X: 0, Y: 0}}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddNode(Node{ID: "over", Position: geometry.Point{X: 50, Y: 30}}); err != nil {
		t.Fatal(err)
	}

	// (100, 60) sits inside both boxes; the later node renders on top.
	n, ok := m.NodeAt(geometry.Point{X: 100, Y: 60})
	if !ok || n.ID != "over" {
		t.Errorf("NodeAt = %v (%v), want over", n.ID, ok)
	}
}

func TestNodeAtRespectsCanvasTransform(t *testing.T) {
	m := newTestManager(t, "a")
	if err := m.SetCanvasState(geometry.CanvasState{Zoom: 2, Offset: geometry.Point{X: 100, Y: 50}}); err != nil {
		t.Fatalf("SetCanvasState: %v", err)
	}

	// Node a sits at canvas (0,0): its screen box is {100, 50, 480, 240}.
	if _, ok := m.NodeAt(geometry.Point{X: 150, Y: 100}); !ok {
		t.Error("point inside the zoomed box missed")
	}
	if _, ok := m.NodeAt(geometry.Point{X: 99, Y: 49}); ok {
		t.Error("point left of the zoomed box hit")
	}
}

func TestConnectionGesture(t *testing.T) {
	m := New()
	if err := m.AddNode(Node{ID: "n1", Type: "data-source", Position: geometry.Point{X: 100, Y: 150}}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddNode(Node{ID: "n2", Type: "indicator", Position: geometry.Point{X: 520, Y: 150}}); err != nil {
		t.Fatal(err)
	}

	// Press on n1's output handle.
	start := geometry.Point{X: 352, Y: 210}
	if err := m.StartConnection("n1", geometry.HandleOutput, start); err != nil {
		t.Fatalf("StartConnection: %v", err)
	}
	draft, ok := m.ActiveDraft()
	if !ok {
		t.Fatal("no active draft after start")
	}
	if draft.SourceNode != "n1" || draft.StartPosition != start || draft.CurrentPosition != start {
		t.Errorf("draft = %+v, want source n1 anchored at %v", draft, start)
	}
	if draft.IsValid {
		t.Error("fresh draft marked valid before hovering a target")
	}

	// Drag over n2's body.
	m.UpdateConnectionPosition(geometry.Point{X: 560, Y: 200})
	draft, _ = m.ActiveDraft()
	if !draft.IsValid {
		t.Error("draft over a compatible target not marked valid")
	}

	// Release on n2's input handle.
	if !m.CompleteConnection("n2", geometry.HandleInput) {
		t.Fatal("CompleteConnection = false, want true")
	}
	if _, ok := m.ActiveDraft(); ok {
		t.Error("draft survived completion")
	}

	conns := m.Connections()
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1", len(conns))
	}
	c := conns[0]
	if c.Source != "n1" || c.Target != "n2" {
		t.Errorf("edge = %s -> %s, want n1 -> n2", c.Source, c.Target)
	}
	if c.SourceHandle != geometry.HandleOutput || c.TargetHandle != geometry.HandleInput {
		t.Errorf("handles = %s/%s, want output/input", c.SourceHandle, c.TargetHandle)
	}
	if c.ID == "" {
		t.Error("committed connection has no ID")
	}
	if c.Created.IsZero() {
		t.Error("committed connection has no timestamp")
	}
	if !c.IsValid {
		t.Error("committed connection not marked valid")
	}
}

func TestCompleteConnectionNormalizesDirection(t *testing.T) {
	m := newTestManager(t, "n1", "n2")

	// Drag backwards: from n2's input handle onto n1's output handle.
	if err := m.StartConnection("n2", geometry.HandleInput, geometry.Point{X: 388, Y: 60}); err != nil {
		t.Fatalf("StartConnection: %v", err)
	}
	if !m.CompleteConnection("n1", geometry.HandleOutput) {
		t.Fatal("CompleteConnection = false, want true")
	}

	c := m.Connections()[0]
	if c.Source != "n1" || c.Target != "n2" {
		t.Errorf("edge = %s -> %s, want normalized n1 -> n2", c.Source, c.Target)
	}
}

func TestCompleteConnectionRejected(t *testing.T) {
	m := newTestManager(t, "a", "b")

	// Releasing on the source node is a self-loop: rejected, draft gone.
	if err := m.StartConnection("a", geometry.HandleOutput, geometry.Point{}); err != nil {
		t.Fatal(err)
	}
	if m.CompleteConnection("a", geometry.HandleInput) {
		t.Error("self-loop completion = true, want false")
	}
	if _, ok := m.ActiveDraft(); ok {
		t.Error("draft survived a rejected completion")
	}
	if got := m.ConnectionCount(); got != 0 {
		t.Errorf("connections = %d, want 0", got)
	}

	// Completing with no draft at all is a quiet no-op.
	if m.CompleteConnection("b", geometry.HandleInput) {
		t.Error("completion without a draft = true, want false")
	}
}

func TestStartConnectionReplacesDraft(t *testing.T) {
	m := newTestManager(t, "a", "b")

	if err := m.StartConnection("a", geometry.HandleOutput, geometry.Point{}); err != nil {
		t.Fatal(err)
	}
	if err := m.StartConnection("b", geometry.HandleOutput, geometry.Point{X: 400}); err != nil {
		t.Fatal(err)
	}

	draft, ok := m.ActiveDraft()
	if !ok || draft.SourceNode != "b" {
		t.Errorf("draft source = %v (%v), want b", draft.SourceNode, ok)
	}
}

func TestStartConnectionErrors(t *testing.T) {
	m := newTestManager(t, "a")

	tests := []struct {
		name     string
		node     string
		handle   geometry.HandleKind
		pos      geometry.Point
		wantCode errors.Code
	}{
		{name: "UnknownHandle", node: "a", handle: "middle", wantCode: errors.ErrCodeInvalidHandle},
		{name: "MissingNode", node: "ghost", handle: geometry.HandleOutput, wantCode: errors.ErrCodeNodeNotFound},
		{name: "NonFinitePosition", node: "a", handle: geometry.HandleOutput, pos: geometry.Point{X: math.NaN()}, wantCode: errors.ErrCodeInvalidPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.StartConnection(tt.node, tt.handle, tt.pos)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := errors.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
			if _, ok := m.ActiveDraft(); ok {
				t.Error("failed start left a draft behind")
			}
		})
	}
}

func TestUpdateConnectionPosition(t *testing.T) {
	m := newTestManager(t, "a", "b")
	if err := m.StartConnection("a", geometry.HandleOutput, geometry.Point{X: 252, Y: 60}); err != nil {
		t.Fatal(err)
	}

	// Over b's body: target reachable, draft valid.
	m.UpdateConnectionPosition(geometry.Point{X: 450, Y: 60})
	if draft, _ := m.ActiveDraft(); !draft.IsValid {
		t.Error("draft over node b not marked valid")
	}

	// Over empty canvas: nothing to land on.
	m.UpdateConnectionPosition(geometry.Point{X: 1000, Y: 500})
	if draft, _ := m.ActiveDraft(); draft.IsValid {
		t.Error("draft over empty canvas marked valid")
	}

	// Back over the source node: would be a self-loop.
	m.UpdateConnectionPosition(geometry.Point{X: 100, Y: 60})
	if draft, _ := m.ActiveDraft(); draft.IsValid {
		t.Error("draft over its own source marked valid")
	}

	// Garbage coordinates are dropped, keeping the last good position.
	m.UpdateConnectionPosition(geometry.Point{X: math.NaN(), Y: math.NaN()})
	draft, _ := m.ActiveDraft()
	if draft.CurrentPosition != (geometry.Point{X: 100, Y: 60}) {
		t.Errorf("position after NaN update = %v, want (100, 60)", draft.CurrentPosition)
	}
}

func TestUpdateConnectionPositionWithoutDraft(t *testing.T) {
	m := newTestManager(t, "a")
	m.UpdateConnectionPosition(geometry.Point{X: 10, Y: 10}) // must not panic
	if _, ok := m.ActiveDraft(); ok {
		t.Error("update without a draft created one")
	}
}

func TestCancelConnection(t *testing.T) {
	m := newTestManager(t, "a")
	if err := m.StartConnection("a", geometry.HandleOutput, geometry.Point{}); err != nil {
		t.Fatal(err)
	}

	m.CancelConnection()
	if _, ok := m.ActiveDraft(); ok {
		t.Error("draft survived cancellation")
	}
	if got := m.ConnectionCount(); got != 0 {
		t.Errorf("connections = %d, want 0", got)
	}
	m.CancelConnection() // idempotent
}

func TestDeleteConnection(t *testing.T) {
	m := newTestManager(t, "a", "b")
	connect(t, m, "a", "b")
	id := m.Connections()[0].ID

	if !m.DeleteConnection(id) {
		t.Fatal("DeleteConnection = false, want true")
	}
	if m.DeleteConnection(id) {
		t.Error("second DeleteConnection = true, want false")
	}

	// Adjacency must be updated too: the same pair is creatable again.
	connect(t, m, "a", "b")
	if got := m.ConnectionCount(); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
}

func TestDeleteConnectionsForNode(t *testing.T) {
	m := newTestManager(t, "a", "b", "c")
	connect(t, m, "a", "b")
	connect(t, m, "b", "c")
	connect(t, m, "a", "c")

	if got := m.DeleteConnectionsForNode("b"); got != 2 {
		t.Errorf("removed = %d, want 2", got)
	}
	if got := m.ConnectionCount(); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
	if got := m.DeleteConnectionsForNode("ghost"); got != 0 {
		t.Errorf("removed for unknown node = %d, want 0", got)
	}
}

func TestClearAllConnections(t *testing.T) {
	m := newTestManager(t, "a", "b", "c")
	connect(t, m, "a", "b")
	connect(t, m, "b", "c")

	m.ClearAllConnections()
	if got := m.ConnectionCount(); got != 0 {
		t.Errorf("connections = %d, want 0", got)
	}

	// Adjacency is rebuilt: previously existing pairs are free again.
	connect(t, m, "a", "b")
}

func TestSetCanvasState(t *testing.T) {
	tests := []struct {
		name     string
		state    geometry.CanvasState
		wantZoom float64
		wantErr  bool
	}{
		{name: "Identity", state: geometry.CanvasState{Zoom: 1}, wantZoom: 1},
		{name: "ClampsHigh", state: geometry.CanvasState{Zoom: 5}, wantZoom: 3},
		{name: "ClampsLow", state: geometry.CanvasState{Zoom: 0.05}, wantZoom: 0.1},
		{name: "RejectsZero", state: geometry.CanvasState{Zoom: 0}, wantErr: true},
		{name: "RejectsNaNOffset", state: geometry.CanvasState{Zoom: 1, Offset: geometry.Point{X: math.NaN()}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			err := m.SetCanvasState(tt.state)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if got := m.CanvasState(); got != geometry.DefaultCanvasState() {
					t.Errorf("failed update mutated canvas to %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetCanvasState: %v", err)
			}
			if got := m.CanvasState().Zoom; got != tt.wantZoom {
				t.Errorf("zoom = %v, want %v", got, tt.wantZoom)
			}
		})
	}
}

func TestSubscribe(t *testing.T) {
	m := New()

	var events []Snapshot
	unsubscribe := m.Subscribe(func(s Snapshot) { events = append(events, s) })

	if err := m.AddNode(Node{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events after AddNode = %d, want 1", len(events))
	}
	if got := len(events[0].Nodes); got != 1 {
		t.Errorf("snapshot nodes = %d, want 1", got)
	}

	if err := m.AddNode(Node{ID: "b", Position: geometry.Point{X: 400}}); err != nil {
		t.Fatal(err)
	}
	connect(t, m, "a", "b") // start + complete: two notifications
	if len(events) != 4 {
		t.Fatalf("events after connect = %d, want 4", len(events))
	}
	last := events[len(events)-1]
	if got := len(last.Connections); got != 1 {
		t.Errorf("snapshot connections = %d, want 1", got)
	}

	unsubscribe()
	if err := m.AddNode(Node{ID: "c", Position: geometry.Point{X: 800}}); err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Errorf("events after unsubscribe = %d, want 4", len(events))
	}
}

func TestSubscribeSeesDraft(t *testing.T) {
	m := newTestManager(t, "a")

	var last Snapshot
	m.Subscribe(func(s Snapshot) { last = s })

	if err := m.StartConnection("a", geometry.HandleOutput, geometry.Point{X: 252, Y: 60}); err != nil {
		t.Fatal(err)
	}
	if last.Draft == nil {
		t.Fatal("snapshot missing the active draft")
	}
	if last.Draft.SourceNode != "a" {
		t.Errorf("draft source = %s, want a", last.Draft.SourceNode)
	}

	m.CancelConnection()
	if last.Draft != nil {
		t.Error("snapshot kept the draft after cancellation")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := New()
	if err := m.AddNode(Node{ID: "a", Data: map[string]any{"period": 20}}); err != nil {
		t.Fatal(err)
	}

	snap := m.Snapshot()
	snap.Nodes[0].Data["period"] = 999
	snap.Nodes[0].ID = "tampered"

	n, ok := m.Node("a")
	if !ok {
		t.Fatal("node a lost")
	}
	if n.Data["period"] != 20 {
		t.Errorf("period = %v, want 20 (snapshot mutation leaked)", n.Data["period"])
	}
}

func TestCompleteConnectionRecordsWarnings(t *testing.T) {
	checker := checkerFunc(func(sourceType, targetType string) (bool, string) {
		if sourceType == "order" && targetType == "data-source" {
			return false, "order blocks cannot feed data sources"
		}
		return true, ""
	})
	m := New(WithCompatibilityChecker(checker))
	if err := m.AddNode(Node{ID: "buy", Type: "order"}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddNode(Node{ID: "prices", Type: "data-source", Position: geometry.Point{X: 400}}); err != nil {
		t.Fatal(err)
	}

	connect(t, m, "buy", "prices")

	c := m.Connections()[0]
	warnings, ok := c.Meta["warnings"].([]string)
	if !ok || len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", c.Meta["warnings"])
	}
	if warnings[0] != "order blocks cannot feed data sources" {
		t.Errorf("warning = %q", warnings[0])
	}
	if !c.IsValid {
		t.Error("flagged connection must still be valid")
	}
}

func TestConnectionHooks(t *testing.T) {
	hooks := &captureGraphHooks{}
	observability.SetGraphHooks(hooks)
	defer observability.Reset()

	m := newTestManager(t, "a", "b")
	connect(t, m, "a", "b")

	if err := m.StartConnection("a", geometry.HandleOutput, geometry.Point{}); err != nil {
		t.Fatal(err)
	}
	m.CompleteConnection("b", geometry.HandleInput) // duplicate: rejected

	if len(hooks.created) != 1 {
		t.Fatalf("created hook calls = %d, want 1", len(hooks.created))
	}
	if hooks.created[0] != [2]string{"a", "b"} {
		t.Errorf("created hook saw %v, want [a b]", hooks.created[0])
	}
	if hooks.rejected != 1 {
		t.Errorf("rejected hook calls = %d, want 1", hooks.rejected)
	}
}

type captureGraphHooks struct {
	observability.NoopGraphHooks
	created  [][2]string
	rejected int
}

func (h *captureGraphHooks) OnConnectionCreated(_ context.Context, source, target string) {
	h.created = append(h.created, [2]string{source, target})
}

func (h *captureGraphHooks) OnConnectionRejected(_ context.Context, _, _ string, _ []string) {
	h.rejected++
}
