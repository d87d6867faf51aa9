package graph

import (
	"fmt"
	"slices"

	"github.com/fbecker/strategraph/pkg/geometry"
)

// ValidationResult reports the outcome of a connection validation.
// Errors block the mutation; warnings flag it without blocking.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid" bson:"is_valid"`
	Errors   []string `json:"errors,omitempty" bson:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// CompatibilityChecker decides whether a source node type may feed a target
// node type. Incompatible pairings surface as validation warnings, never
// errors: the connection stays legal but flagged.
type CompatibilityChecker interface {
	// Compatible returns false and a human-readable reason when the
	// pairing is discouraged.
	Compatible(sourceType, targetType string) (ok bool, reason string)
}

// AllowAll is a CompatibilityChecker that accepts every type pairing.
type AllowAll struct{}

// Compatible always reports true.
func (AllowAll) Compatible(string, string) (bool, string) { return true, "" }

// ValidateConnection checks a proposed edge without mutating the graph.
//
// Checks run in order: endpoint IDs present, no self-loop, both nodes
// exist, handle kinds known, handle roles not identical, no duplicate
// normalized pair, no cycle. Independent failures accumulate in Errors;
// graph-level checks (duplicate, cycle) only run once the endpoints are
// structurally sound. Type compatibility is consulted last and contributes
// Warnings only.
func (m *Manager) ValidateConnection(sourceNodeID string, sourceHandle geometry.HandleKind, targetNodeID string, targetHandle geometry.HandleKind) ValidationResult {
	var result ValidationResult

	if sourceNodeID == "" || targetNodeID == "" {
		result.Errors = append(result.Errors, "both connection endpoints must reference a node")
		return result
	}
	if sourceNodeID == targetNodeID {
		result.Errors = append(result.Errors, fmt.Sprintf("node %q cannot connect to itself", sourceNodeID))
		return result
	}

	source, sourceOK := m.nodes[sourceNodeID]
	if !sourceOK {
		result.Errors = append(result.Errors, fmt.Sprintf("source node %q does not exist", sourceNodeID))
	}
	target, targetOK := m.nodes[targetNodeID]
	if !targetOK {
		result.Errors = append(result.Errors, fmt.Sprintf("target node %q does not exist", targetNodeID))
	}

	if !sourceHandle.Valid() {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown source handle %q", sourceHandle))
	}
	if !targetHandle.Valid() {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown target handle %q", targetHandle))
	}
	if sourceHandle.Valid() && targetHandle.Valid() && sourceHandle == targetHandle {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot connect two %s handles", sourceHandle))
	}

	if len(result.Errors) > 0 {
		return result
	}

	// Structurally sound: run graph-level checks on the normalized edge.
	from, to := normalizeDirection(sourceNodeID, sourceHandle, targetNodeID)
	if m.hasConnection(from, to) {
		result.Errors = append(result.Errors, fmt.Sprintf("connection %s -> %s already exists", from, to))
	}
	if len(result.Errors) == 0 && m.wouldCreateCycle(from, to) {
		result.Errors = append(result.Errors, fmt.Sprintf("connection %s -> %s would create a cycle", from, to))
	}

	if len(result.Errors) == 0 {
		srcType, tgtType := source.Type, target.Type
		if from != sourceNodeID {
			srcType, tgtType = tgtType, srcType
		}
		if ok, reason := m.checker.Compatible(srcType, tgtType); !ok {
			result.Warnings = append(result.Warnings, reason)
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// hasConnection reports whether a normalized (from, to) edge already exists.
func (m *Manager) hasConnection(from, to string) bool {
	return slices.Contains(m.outgoing[from], to)
}

// wouldCreateCycle runs a depth-first search over the existing edges plus
// the hypothetical from→to edge, using white/gray/black coloring with the
// gray set acting as the recursion stack for back-edge detection.
//
// The search re-runs from scratch on every validation call, O(V+E) per
// attempted edge. Fine at editor scale; an incremental structure would only
// pay off for graphs far larger than a strategy canvas holds.
func (m *Manager) wouldCreateCycle(from, to string) bool {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(m.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		children := m.outgoing[id]
		if id == from {
			children = append(slices.Clone(children), to)
		}
		for _, child := range children {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	dfs(from)
	return hasCycle
}
