package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/observability"
)

// =============================================================================
// Connection Export / Import
// =============================================================================

// ExportConnections returns the current edge list as a serializable payload.
func (m *Manager) ExportConnections() ConnectionSet {
	return ConnectionSet{Connections: m.Connections()}
}

// ImportConnections replaces the connection set with the payload's edges,
// re-validating every one against the current nodes. Invalid edges are
// silently dropped (logged, never an error): an edge fails when its
// endpoints are missing, it duplicates an already-imported pair, or it
// would close a cycle with the edges imported before it.
//
// Edges with an empty ID get a fresh one; a later edge reusing an earlier
// ID is dropped as a duplicate. Returns how many edges were kept and how
// many dropped.
func (m *Manager) ImportConnections(set ConnectionSet) (kept, dropped int) {
	m.connections = nil
	m.rebuildAdjacency()

	seenIDs := make(map[string]bool, len(set.Connections))
	for _, c := range set.Connections {
		result := m.ValidateConnection(c.Source, geometry.HandleOutput, c.Target, geometry.HandleInput)
		if !result.IsValid {
			m.logger.Debug("dropping imported connection",
				"source", c.Source,
				"target", c.Target,
				"errors", result.Errors)
			dropped++
			continue
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if seenIDs[c.ID] {
			m.logger.Debug("dropping imported connection with duplicate ID", "id", c.ID)
			dropped++
			continue
		}
		seenIDs[c.ID] = true

		c.SourceHandle = geometry.HandleOutput
		c.TargetHandle = geometry.HandleInput
		if c.Created.IsZero() {
			c.Created = time.Now()
		}
		c.IsValid = true
		m.addConnection(cloneConnection(c))
		kept++
	}

	observability.Graph().OnImport(context.Background(), kept, dropped)
	observability.Graph().OnGraphChanged(context.Background(), len(m.nodes), len(m.connections))
	m.notify()
	return kept, dropped
}

// =============================================================================
// Document Export / Load
// =============================================================================

// ExportDocument serializes the full graph state: nodes, connections, and
// the canvas view.
func (m *Manager) ExportDocument() Document {
	return Document{
		Nodes:       m.Nodes(),
		Connections: m.Connections(),
		Canvas:      m.canvas,
	}
}

// LoadDocument replaces the entire manager state with a document's
// contents. Node problems (empty or duplicate IDs, non-finite positions)
// fail the load without mutating anything; connection problems follow
// import semantics and drop silently. The document's zoom is clamped into
// the valid range.
func (m *Manager) LoadDocument(doc Document) error {
	fresh := make(map[string]Node, len(doc.Nodes))
	order := make([]string, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidDocument, "node ID must not be empty")
		}
		if _, dup := fresh[n.ID]; dup {
			return errors.New(errors.ErrCodeInvalidDocument, "duplicate node ID %q", n.ID)
		}
		if err := n.Position.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDocument, err, "node %q position", n.ID)
		}
		fresh[n.ID] = cloneNode(n)
		order = append(order, n.ID)
	}

	m.nodes = fresh
	m.order = order
	m.draft = nil

	cs := doc.Canvas
	if cs.Zoom == 0 {
		cs = geometry.DefaultCanvasState()
	}
	cs.Zoom = geometry.ClampZoom(cs.Zoom)
	if cs.Offset.Validate() != nil {
		cs.Offset = geometry.Point{}
	}
	m.canvas = cs

	// ImportConnections notifies after rebuilding the edge set.
	m.ImportConnections(ConnectionSet{Connections: doc.Connections})
	return nil
}

// =============================================================================
// Document Serialization API
// =============================================================================

// MarshalDocument serializes a Document to pretty-printed JSON bytes.
func MarshalDocument(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalDocument deserializes JSON bytes into a Document.
func UnmarshalDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// WriteDocumentFile writes a Document to a JSON file. The file ends with
// a newline; writers and formatters agree on this as the canonical form.
func WriteDocumentFile(doc Document, path string) error {
	data, err := MarshalDocument(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// ReadDocumentFile reads a Document from a JSON file.
func ReadDocumentFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalDocument(data)
}
