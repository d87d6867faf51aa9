package graph

import (
	"time"

	"github.com/fbecker/strategraph/pkg/geometry"
)

// =============================================================================
// Node - Strategy Block on the Canvas
// =============================================================================

// Node is a strategy block placed on the canvas. Position is canvas-space;
// the block's rendered footprint comes from its type's dimensions.
type Node struct {
	ID       string         `json:"id" bson:"id"`
	Type     string         `json:"type" bson:"type"`
	Position geometry.Point `json:"position" bson:"position"`
	Label    string         `json:"label,omitempty" bson:"label,omitempty"`
	Data     map[string]any `json:"data,omitempty" bson:"data,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// =============================================================================
// Connection - Committed Directed Edge
// =============================================================================

// Connection is a committed edge between two nodes. Connections are always
// stored in normalized direction: Source is the output-side node regardless
// of which handle the user dragged from.
type Connection struct {
	ID           string              `json:"id" bson:"id"`
	Source       string              `json:"source" bson:"source"`
	Target       string              `json:"target" bson:"target"`
	SourceHandle geometry.HandleKind `json:"source_handle" bson:"source_handle"`
	TargetHandle geometry.HandleKind `json:"target_handle" bson:"target_handle"`
	Created      time.Time           `json:"created" bson:"created"`
	IsValid      bool                `json:"is_valid" bson:"is_valid"`
	Meta         map[string]any      `json:"meta,omitempty" bson:"meta,omitempty"`
}

// =============================================================================
// ActiveConnection - In-Progress Draft
// =============================================================================

// ActiveConnection is the transient draft that exists while the user drags a
// new connection. Start and current positions are screen-space so the host
// can draw the preview path directly. At most one draft exists at a time; it
// is destroyed on completion or cancellation.
type ActiveConnection struct {
	SourceNode      string              `json:"source_node" bson:"source_node"`
	SourceHandle    geometry.HandleKind `json:"source_handle" bson:"source_handle"`
	StartPosition   geometry.Point      `json:"start_position" bson:"start_position"`
	CurrentPosition geometry.Point      `json:"current_position" bson:"current_position"`
	IsValid         bool                `json:"is_valid" bson:"is_valid"`
}

// =============================================================================
// Snapshot - Immutable State View
// =============================================================================

// Snapshot is a read-only copy of the manager's state handed to subscribers
// and returned by [Manager.Snapshot]. Mutating a snapshot never affects the
// manager.
type Snapshot struct {
	Nodes       []Node               `json:"nodes" bson:"nodes"`
	Connections []Connection         `json:"connections" bson:"connections"`
	Draft       *ActiveConnection    `json:"draft,omitempty" bson:"draft,omitempty"`
	Canvas      geometry.CanvasState `json:"canvas" bson:"canvas"`
}

// =============================================================================
// Serialization Payloads
// =============================================================================

// ConnectionSet is the edge-only export/import payload.
type ConnectionSet struct {
	Connections []Connection `json:"connections" bson:"connections"`
}

// Document is the full serialized strategy graph: nodes, connections, and
// the canvas view. The document store wraps this with identity and
// timestamps; this type is the canonical wire format for files, API
// responses, and caching.
type Document struct {
	Nodes       []Node               `json:"nodes" bson:"nodes"`
	Connections []Connection         `json:"connections" bson:"connections"`
	Canvas      geometry.CanvasState `json:"canvas" bson:"canvas"`
}

// copyMeta creates a shallow copy of metadata to avoid mutation.
func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// cloneNode returns a copy of n with its own Data map.
func cloneNode(n Node) Node {
	n.Data = copyMeta(n.Data)
	return n
}

// cloneConnection returns a copy of c with its own Meta map.
func cloneConnection(c Connection) Connection {
	c.Meta = copyMeta(c.Meta)
	return c
}
