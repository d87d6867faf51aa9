// Package graph owns the strategy graph: nodes, committed connections, and
// the in-progress connection draft.
//
// # Architecture
//
// [Manager] is a mutable, observable store. It is constructed explicitly by
// the host and passed by reference to every consumer; there is no package
// singleton. The host's interaction layer drives it through draft
// operations, and the rendering layer re-reads state through [Snapshot].
//
//   - [Node], [Connection]: graph structure (canvas-space positions)
//   - [ActiveConnection]: the transient draft while a connection is dragged
//   - [ValidationResult]: errors block a mutation, warnings do not
//   - [Document], [ConnectionSet]: serialization payloads
//
// # Validation
//
// Every proposed edge passes through [Manager.ValidateConnection], which
// checks in order: endpoint IDs present, no self-loop, both nodes exist,
// handle roles not identical, direction pairing, no duplicate normalized
// pair, no cycle. Node-type compatibility mismatches are reported as
// warnings, never errors. Cycle detection is a depth-first search over the
// existing edges plus the hypothetical new edge, O(V+E) per attempt.
//
// # Invariants
//
//   - Edges are stored in normalized direction: Source is the output side.
//   - No two edges connect the same ordered (Source, Target) pair.
//   - No edge creates a cycle; no node connects to itself.
//   - A connection attempt always ends with no active draft.
//
// # Concurrency
//
// Manager is single-writer: all mutation happens synchronously on
// the host's event loop, and subscribers are notified synchronously after
// each mutation. It is not safe for concurrent use without external
// synchronization.
package graph
