package editor

import (
	"math"
	"strings"
	"testing"

	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/interaction"
	"github.com/fbecker/strategraph/pkg/strategy"
)

func newTestEditor(t *testing.T, opts ...Option) *Editor {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

// addNodeAt plants a node at an exact canvas position, bypassing placement.
func addNodeAt(t *testing.T, e *Editor, id, typ string, pos geometry.Point) {
	t.Helper()
	if err := e.Manager().AddNode(graph.Node{ID: id, Type: typ, Position: pos}); err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
}

func TestAddBlockPlacesAtViewportCenter(t *testing.T) {
	e := newTestEditor(t)

	n, err := e.AddBlock(strategy.BlockIndicator)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if n.Type != "indicator" || n.Label != "Indicator" {
		t.Errorf("node = %+v", n)
	}
	// Safe area of the 1280x800 default viewport is {20,20,1000,640};
	// its center lands on the grid untouched.
	if n.Position != (geometry.Point{X: 520, Y: 340}) {
		t.Errorf("position = %v, want (520, 340)", n.Position)
	}
	if e.Manager().NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", e.Manager().NodeCount())
	}
}

func TestAddBlocksAvoidOverlap(t *testing.T) {
	e := newTestEditor(t)

	nodes, err := e.AddBlocks([]strategy.BlockType{
		strategy.BlockDataSource, strategy.BlockIndicator, strategy.BlockSignal,
	})
	if err != nil {
		t.Fatalf("AddBlocks: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("placed %d nodes, want 3", len(nodes))
	}

	boxes := make([]geometry.Rect, len(nodes))
	for i, n := range nodes {
		boxes[i] = geometry.BoundingBox(n.Position, strategy.Dimensions(n.Type))
	}
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if d := geometry.RectDistance(boxes[i], boxes[j]); d < 40 {
				t.Errorf("blocks %d and %d are %vpx apart, want >= 40", i, j, d)
			}
		}
	}
}

func TestAddBlockOffCatalogType(t *testing.T) {
	e := newTestEditor(t)

	n, err := e.AddBlock(strategy.BlockType("custom-ml"))
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if n.Label != "custom-ml" {
		t.Errorf("label = %q, want the raw type", n.Label)
	}
}

func TestDragMovesNode(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 100})

	e.MouseDown(geometry.Point{X: 150, Y: 150})
	e.MouseMove(geometry.Point{X: 160, Y: 160})
	e.MouseMove(geometry.Point{X: 200, Y: 200})
	e.MouseUp(geometry.Point{X: 220, Y: 210})

	// The pointer grabbed the node 60px inside it; that grip offset holds
	// through the whole drag.
	n, _ := e.Manager().Node("n1")
	if n.Position != (geometry.Point{X: 160, Y: 150}) {
		t.Errorf("position = %v, want (160, 150)", n.Position)
	}
	if e.Mode() != interaction.ModeIdle {
		t.Errorf("mode = %s, want idle", e.Mode())
	}
}

func TestClickDoesNotMoveNode(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 100})

	e.MouseDown(geometry.Point{X: 150, Y: 150})
	e.MouseMove(geometry.Point{X: 152, Y: 152})
	e.MouseUp(geometry.Point{X: 152, Y: 152})

	n, _ := e.Manager().Node("n1")
	if n.Position != (geometry.Point{X: 100, Y: 100}) {
		t.Errorf("position = %v, want unchanged (100, 100)", n.Position)
	}
}

func TestWithDragThreshold(t *testing.T) {
	e := newTestEditor(t, WithDragThreshold(30))
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 100})

	// 28px of travel stays below the widened threshold.
	e.MouseDown(geometry.Point{X: 150, Y: 150})
	e.MouseMove(geometry.Point{X: 170, Y: 170})
	e.MouseUp(geometry.Point{X: 170, Y: 170})

	n, _ := e.Manager().Node("n1")
	if n.Position != (geometry.Point{X: 100, Y: 100}) {
		t.Fatalf("position = %v after sub-threshold move", n.Position)
	}

	// 30px of travel crosses it and the drag tracks from there.
	e.MouseDown(geometry.Point{X: 150, Y: 150})
	e.MouseMove(geometry.Point{X: 180, Y: 150})
	e.MouseMove(geometry.Point{X: 200, Y: 150})
	e.MouseUp(geometry.Point{X: 200, Y: 150})

	n, _ = e.Manager().Node("n1")
	if n.Position != (geometry.Point{X: 120, Y: 100}) {
		t.Errorf("position = %v, want (120, 100)", n.Position)
	}
}

func TestConnectionEndToEnd(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 150})
	addNodeAt(t, e, "n2", "indicator", geometry.Point{X: 520, Y: 150})

	e.MouseDown(geometry.Point{X: 352, Y: 210}) // n1's output handle
	if e.Mode() != interaction.ModeCreatingConnection {
		t.Fatalf("mode = %s, want creating-connection", e.Mode())
	}
	if _, ok := e.Manager().ActiveDraft(); !ok {
		t.Fatal("no draft after handle press")
	}

	e.MouseMove(geometry.Point{X: 450, Y: 180})
	e.MouseUp(geometry.Point{X: 508, Y: 210}) // n2's input handle

	conns := e.Manager().Connections()
	if len(conns) != 1 {
		t.Fatalf("connection count = %d, want 1", len(conns))
	}
	c := conns[0]
	if c.Source != "n1" || c.Target != "n2" {
		t.Errorf("edge = %s -> %s, want n1 -> n2", c.Source, c.Target)
	}
	if c.SourceHandle != geometry.HandleOutput || c.TargetHandle != geometry.HandleInput {
		t.Errorf("handles = %s/%s, want output/input", c.SourceHandle, c.TargetHandle)
	}
	if _, ok := e.Manager().ActiveDraft(); ok {
		t.Error("draft survived completion")
	}
	if e.Mode() != interaction.ModeIdle {
		t.Errorf("mode = %s, want idle", e.Mode())
	}
}

func TestConnectionReleasedOnBackground(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 150})

	e.MouseDown(geometry.Point{X: 352, Y: 210})
	e.MouseUp(geometry.Point{X: 700, Y: 600})

	if got := e.Manager().ConnectionCount(); got != 0 {
		t.Errorf("connection count = %d, want 0", got)
	}
	if _, ok := e.Manager().ActiveDraft(); ok {
		t.Error("draft survived a background release")
	}
}

func TestConnectionToDiscouragedBlockWarns(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 150})
	addNodeAt(t, e, "n2", "order", geometry.Point{X: 520, Y: 150})

	e.MouseDown(geometry.Point{X: 352, Y: 210})
	e.MouseUp(geometry.Point{X: 508, Y: 210})

	conns := e.Manager().Connections()
	if len(conns) != 1 {
		t.Fatalf("connection count = %d, want 1 (warnings must not block)", len(conns))
	}
	ws, ok := conns[0].Meta["warnings"].([]string)
	if !ok || len(ws) == 0 {
		t.Fatalf("Meta[warnings] = %v, want the compatibility warning", conns[0].Meta)
	}
	if !strings.Contains(ws[0], "indicator output does not feed order blocks") {
		t.Errorf("warning = %q", ws[0])
	}
}

func TestPanGesture(t *testing.T) {
	e := newTestEditor(t)

	e.MouseDown(geometry.Point{X: 100, Y: 400})
	if e.Mode() != interaction.ModePanningCanvas {
		t.Fatalf("mode = %s, want panning-canvas", e.Mode())
	}
	e.MouseMove(geometry.Point{X: 110, Y: 420})
	e.MouseMove(geometry.Point{X: 130, Y: 450})
	e.MouseUp(geometry.Point{X: 130, Y: 450})

	cs := e.CanvasState()
	if cs.Offset != (geometry.Point{X: 30, Y: 50}) {
		t.Errorf("offset = %v, want (30, 50)", cs.Offset)
	}
	if cs.Zoom != 1 {
		t.Errorf("zoom = %v, want 1", cs.Zoom)
	}
}

func TestPanRejectsNonFiniteDelta(t *testing.T) {
	e := newTestEditor(t)
	if err := e.Pan(geometry.Point{X: math.NaN()}); err == nil {
		t.Error("NaN delta should be rejected")
	}
	if e.CanvasState().Offset != (geometry.Point{}) {
		t.Errorf("offset mutated to %v", e.CanvasState().Offset)
	}
}

func TestZoomAtKeepsAnchorStationary(t *testing.T) {
	e := newTestEditor(t)
	anchor := geometry.Point{X: 640, Y: 400}

	before, err := geometry.ScreenToCanvas(anchor, e.CanvasState())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ZoomAt(anchor, 2.0); err != nil {
		t.Fatalf("ZoomAt: %v", err)
	}

	cs := e.CanvasState()
	if cs.Zoom != 2 {
		t.Fatalf("zoom = %v, want 2", cs.Zoom)
	}
	if cs.Offset != (geometry.Point{X: -640, Y: -400}) {
		t.Errorf("offset = %v, want (-640, -400)", cs.Offset)
	}
	after, err := geometry.ScreenToCanvas(anchor, cs)
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Errorf("anchor moved: canvas point %v -> %v", before, after)
	}
}

func TestZoomAtClampsZoom(t *testing.T) {
	e := newTestEditor(t)
	anchor := geometry.Point{}

	if err := e.ZoomAt(anchor, 99); err != nil {
		t.Fatal(err)
	}
	if got := e.CanvasState().Zoom; got != 3.0 {
		t.Errorf("zoom = %v, want clamped 3.0", got)
	}

	if err := e.ZoomAt(anchor, 0.001); err != nil {
		t.Fatal(err)
	}
	if got := e.CanvasState().Zoom; got != 0.1 {
		t.Errorf("zoom = %v, want clamped 0.1", got)
	}
}

func TestZoomAtRescalesNodePositions(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 100})

	if err := e.ZoomAt(geometry.Point{}, 2.0); err != nil {
		t.Fatalf("ZoomAt: %v", err)
	}

	n, _ := e.Manager().Node("n1")
	if n.Position == (geometry.Point{X: 100, Y: 100}) {
		t.Error("node position not rescaled")
	}
	// The rescaled position stays inside the visible canvas region
	// {0,0,640,400} minus the 20px margin.
	if n.Position.X < 20 || n.Position.X > 380 || n.Position.Y < 20 || n.Position.Y > 260 {
		t.Errorf("rescaled position %v left the safe area", n.Position)
	}
}

func TestSetViewport(t *testing.T) {
	e := newTestEditor(t)

	if err := e.SetViewport(geometry.Rect{Width: 640, Height: 480}); err != nil {
		t.Fatalf("SetViewport: %v", err)
	}
	if e.BoundingRect() != (geometry.Rect{Width: 640, Height: 480}) {
		t.Errorf("viewport = %+v", e.BoundingRect())
	}

	if err := e.SetViewport(geometry.Rect{Width: -5, Height: 100}); err == nil {
		t.Error("negative size should be rejected")
	}
	if err := e.SetViewport(geometry.Rect{Width: math.NaN()}); err == nil {
		t.Error("non-finite viewport should be rejected")
	}
}

func TestElementAt(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 100})
	if err := e.SetCanvasState(geometry.CanvasState{Zoom: 2, Offset: geometry.Point{X: 50, Y: 50}}); err != nil {
		t.Fatal(err)
	}

	// Output handle: canvas (352, 160) projects to screen (754, 370).
	tests := []struct {
		name string
		pos  geometry.Point
		want interaction.Target
	}{
		{
			name: "OutputHandleCenter",
			pos:  geometry.Point{X: 754, Y: 370},
			want: interaction.Target{Kind: interaction.TargetHandle, NodeID: "n1", Handle: geometry.HandleOutput},
		},
		{
			name: "HandleRadiusEdge",
			pos:  geometry.Point{X: 754, Y: 380},
			want: interaction.Target{Kind: interaction.TargetHandle, NodeID: "n1", Handle: geometry.HandleOutput},
		},
		{
			name: "JustBeyondHandle",
			pos:  geometry.Point{X: 754, Y: 381},
			want: interaction.Target{Kind: interaction.TargetCanvas},
		},
		{
			name: "InputHandle",
			pos:  geometry.Point{X: 226, Y: 370},
			want: interaction.Target{Kind: interaction.TargetHandle, NodeID: "n1", Handle: geometry.HandleInput},
		},
		{
			name: "NodeBody",
			pos:  geometry.Point{X: 350, Y: 350},
			want: interaction.Target{Kind: interaction.TargetNode, NodeID: "n1"},
		},
		{
			name: "EmptyCanvas",
			pos:  geometry.Point{X: 1000, Y: 700},
			want: interaction.Target{Kind: interaction.TargetCanvas},
		},
		{
			name: "OutsideViewport",
			pos:  geometry.Point{X: 1300, Y: 400},
			want: interaction.Target{Kind: interaction.TargetNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ElementAt(tt.pos); got != tt.want {
				t.Errorf("ElementAt(%v) = %+v, want %+v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestElementAtPrefersTopmostNode(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "below", "indicator", geometry.Point{X: 100, Y: 100})
	addNodeAt(t, e, "above", "indicator", geometry.Point{X: 150, Y: 120})

	got := e.ElementAt(geometry.Point{X: 200, Y: 150}) // inside both bodies
	if got.NodeID != "above" {
		t.Errorf("hit %q, want the later-added node", got.NodeID)
	}
}

func TestHoverTracking(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 100})

	e.MouseMove(geometry.Point{X: 352, Y: 160}) // output handle
	id, handle, ok := e.HoveredHandle()
	if !ok || id != "n1" || handle != geometry.HandleOutput {
		t.Errorf("HoveredHandle = %s/%s/%v, want n1/output/true", id, handle, ok)
	}

	e.MouseMove(geometry.Point{X: 150, Y: 150}) // node body
	if _, _, ok := e.HoveredHandle(); ok {
		t.Error("handle hover survived leaving the handle")
	}
	if id, ok := e.HoveredNode(); !ok || id != "n1" {
		t.Errorf("HoveredNode = %s/%v, want n1/true", id, ok)
	}

	e.MouseMove(geometry.Point{X: 700, Y: 600}) // empty canvas
	if _, ok := e.HoveredNode(); ok {
		t.Error("node hover survived leaving the node")
	}
}

func TestEscapeCancelsConnectionDraft(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 150})

	e.MouseDown(geometry.Point{X: 352, Y: 210})
	e.KeyDown("Escape")

	if _, ok := e.Manager().ActiveDraft(); ok {
		t.Error("draft survived Escape")
	}
	if e.Mode() != interaction.ModeIdle {
		t.Errorf("mode = %s, want idle", e.Mode())
	}
}

func TestCloseStopsEvents(t *testing.T) {
	e := newTestEditor(t)
	addNodeAt(t, e, "n1", "indicator", geometry.Point{X: 100, Y: 150})

	e.Close()
	e.MouseDown(geometry.Point{X: 352, Y: 210})

	if _, ok := e.Manager().ActiveDraft(); ok {
		t.Error("closed editor still opened a draft")
	}
}

func TestSubscribeForwardsGraphChanges(t *testing.T) {
	e := newTestEditor(t)

	var calls int
	unsubscribe := e.Subscribe(func(graph.Snapshot) { calls++ })
	defer unsubscribe()

	if _, err := e.AddBlock(strategy.BlockSignal); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("subscriber ran %d times, want 1", calls)
	}
}
