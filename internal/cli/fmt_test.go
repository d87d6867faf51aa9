package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
)

func testImportDocument() graph.Document {
	return graph.Document{
		Nodes: []graph.Node{
			{ID: "src", Type: "data-source", Position: geometry.Point{X: 40, Y: 40}},
			{ID: "ind", Type: "indicator", Position: geometry.Point{X: 400, Y: 40}},
		},
		Connections: []graph.Connection{
			{ID: "c1", Source: "src", Target: "ind", SourceHandle: geometry.HandleInput},
		},
		Canvas: geometry.DefaultCanvasState(),
	}
}

func TestNormalizeDocument(t *testing.T) {
	doc := testImportDocument()
	doc.Connections = append(doc.Connections,
		graph.Connection{ID: "ghost", Source: "src", Target: "nope"},
		graph.Connection{ID: "back", Source: "ind", Target: "src"},
	)

	normalized, dropped, err := normalizeDocument(doc)
	if err != nil {
		t.Fatalf("normalizeDocument: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(normalized.Connections) != 1 {
		t.Fatalf("got %d connections, want 1", len(normalized.Connections))
	}
	c := normalized.Connections[0]
	if c.SourceHandle != geometry.HandleOutput || c.TargetHandle != geometry.HandleInput {
		t.Errorf("handles = %s→%s, want output→input", c.SourceHandle, c.TargetHandle)
	}
	if c.Created.IsZero() {
		t.Error("created timestamp not stamped")
	}
}

func TestNormalizeDocumentRejectsBadNodes(t *testing.T) {
	doc := testImportDocument()
	doc.Nodes = append(doc.Nodes, graph.Node{ID: "src", Type: "indicator"})

	if _, _, err := normalizeDocument(doc); err == nil {
		t.Fatal("duplicate node ID accepted")
	}
}

func TestRunFmtWriteIsIdempotent(t *testing.T) {
	// Start from a compact, unordered serialization.
	raw, err := json.Marshal(testImportDocument())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "strategy.json")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := runFmt(path, &fmtOpts{write: true}); err != nil {
		t.Fatalf("first fmt: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(first) == string(raw) {
		t.Fatal("file unchanged by first fmt")
	}

	if err := runFmt(path, &fmtOpts{write: true}); err != nil {
		t.Fatalf("second fmt: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(first) != string(second) {
		t.Error("second fmt changed an already-canonical file")
	}
}

func TestRunFmtRejectsMalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := runFmt(path, &fmtOpts{write: true}); err == nil {
		t.Fatal("malformed input accepted")
	}
}
