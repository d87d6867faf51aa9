package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/observability"
	"github.com/fbecker/strategraph/pkg/store"
	"github.com/fbecker/strategraph/pkg/strategy"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	srv, err := New(Config{
		Address: ":0",
		Store:   st,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(observability.Reset)
	return srv, st
}

func testDocument() graph.Document {
	return graph.Document{
		Nodes: []graph.Node{
			{ID: "src", Type: string(strategy.BlockDataSource), Position: geometry.Point{X: 40, Y: 40}},
			{ID: "ind", Type: string(strategy.BlockIndicator), Position: geometry.Point{X: 400, Y: 40}},
		},
		Connections: []graph.Connection{
			{ID: "c1", Source: "src", Target: "ind"},
		},
		Canvas: geometry.DefaultCanvasState(),
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestGraphRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/graph", testDocument())
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result importResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode import result: %v", err)
	}
	if result.Nodes != 2 || result.Connections != 1 || result.Dropped != 0 {
		t.Errorf("import result = %+v, want 2 nodes, 1 connection, 0 dropped", result)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/graph", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var doc graph.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if len(doc.Nodes) != 2 {
		t.Errorf("got %d nodes, want 2", len(doc.Nodes))
	}
	if len(doc.Connections) != 1 {
		t.Errorf("got %d connections, want 1", len(doc.Connections))
	}
	if doc.Connections[0].SourceHandle != geometry.HandleOutput {
		t.Errorf("connection not normalized: source handle %q", doc.Connections[0].SourceHandle)
	}
}

func TestPostGraphDropsInvalidConnections(t *testing.T) {
	srv, _ := newTestServer(t)

	doc := testDocument()
	doc.Connections = append(doc.Connections,
		graph.Connection{ID: "ghost-edge", Source: "src", Target: "ghost"},
		graph.Connection{ID: "back-edge", Source: "ind", Target: "src"},
	)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/graph", doc)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result importResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Connections != 1 || result.Dropped != 2 {
		t.Errorf("result = %+v, want 1 kept and 2 dropped", result)
	}
}

func TestPostGraphRejectsBadDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name string
		doc  graph.Document
		want int
	}{
		{
			name: "EmptyNodeID",
			doc: graph.Document{Nodes: []graph.Node{
				{ID: "", Type: string(strategy.BlockSignal)},
			}},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "DuplicateNodeID",
			doc: graph.Document{Nodes: []graph.Node{
				{ID: "dup", Type: string(strategy.BlockSignal)},
				{ID: "dup", Type: string(strategy.BlockOrder)},
			}},
			want: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/graph", tt.doc)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestPostGraphRejectsMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/graph", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestValidateIsDryRun(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	if rec := doJSON(t, h, http.MethodPost, "/api/graph", testDocument()); rec.Code != http.StatusOK {
		t.Fatalf("seed POST status = %d", rec.Code)
	}

	tests := []struct {
		name      string
		req       validateRequest
		wantValid bool
	}{
		{
			name:      "WouldCloseCycle",
			req:       validateRequest{Source: "ind", Target: "src"},
			wantValid: false,
		},
		{
			name:      "DuplicateEdge",
			req:       validateRequest{Source: "src", Target: "ind"},
			wantValid: false,
		},
		{
			name:      "MissingNode",
			req:       validateRequest{Source: "src", Target: "ghost"},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/graph/validate", tt.req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var result graph.ValidationResult
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if result.IsValid != tt.wantValid {
				t.Errorf("is_valid = %v, want %v (errors %v)", result.IsValid, tt.wantValid, result.Errors)
			}
		})
	}

	// The dry-run must not have committed anything.
	rec := doJSON(t, h, http.MethodGet, "/api/graph", nil)
	var doc graph.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Connections) != 1 {
		t.Errorf("connection count changed to %d after validation calls", len(doc.Connections))
	}
}

func TestRenderSVG(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	if rec := doJSON(t, h, http.MethodPost, "/api/graph", testDocument()); rec.Code != http.StatusOK {
		t.Fatalf("seed POST status = %d", rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/render/svg", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("body does not look like SVG")
	}
}

func TestRenderSVGRejectsUnknownView(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/render/svg?view=blueprint", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	if rec := doJSON(t, h, http.MethodPost, "/api/graph", testDocument()); rec.Code != http.StatusOK {
		t.Fatalf("seed POST status = %d", rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{
		"strategraph_graph_nodes 2",
		"strategraph_graph_connections 1",
		"strategraph_import_edges_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %q", metric)
		}
	}
}

func TestImportPersistsToStore(t *testing.T) {
	srv, st := newTestServer(t)

	if rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/graph", testDocument()); rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d", rec.Code)
	}

	summaries, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d stored documents, want 1", len(summaries))
	}
	if summaries[0].Nodes != 2 {
		t.Errorf("stored document has %d nodes, want 2", summaries[0].Nodes)
	}
}

func TestNewLoadsExistingDocument(t *testing.T) {
	st := store.NewMemoryStore()
	stored := store.New("momentum", testDocument())
	if err := st.Put(context.Background(), stored); err != nil {
		t.Fatalf("Put: %v", err)
	}

	srv, err := New(Config{Address: ":0", Store: st, DocID: stored.ID})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(observability.Reset)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/graph", nil)
	var doc graph.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Nodes) != 2 {
		t.Errorf("got %d nodes, want 2", len(doc.Nodes))
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Config{Address: ":0"}); err == nil {
		t.Fatal("expected an error without a store")
	}
}
