package geometry

import (
	"fmt"
	"math"

	"github.com/fbecker/strategraph/pkg/errors"
)

// =============================================================================
// Handle Positions
// =============================================================================

// HandleKind identifies which side of a node a connection handle sits on.
// The values double as the serialized handle names on stored connections.
type HandleKind string

const (
	// HandleInput is the attachment point on the node's left edge.
	HandleInput HandleKind = "input"

	// HandleOutput is the attachment point on the node's right edge.
	HandleOutput HandleKind = "output"
)

// Valid reports whether h is a known handle kind.
func (h HandleKind) Valid() bool {
	return h == HandleInput || h == HandleOutput
}

// ParseHandleKind converts a serialized handle name into a [HandleKind].
func ParseHandleKind(s string) (HandleKind, error) {
	h := HandleKind(s)
	if !h.Valid() {
		return "", errors.New(errors.ErrCodeInvalidHandle, "unknown handle kind %q", s)
	}
	return h, nil
}

// HandleCanvasPosition returns the canvas-space center of a node's handle.
// Input handles sit [HandleOffset] left of the node's left edge at vertical
// center; output handles sit [HandleOffset] right of the right edge.
func HandleCanvasPosition(nodePos Point, handle HandleKind, dims Dimensions) (Point, error) {
	if err := nodePos.Validate(); err != nil {
		return Point{}, err
	}
	switch handle {
	case HandleInput:
		return Point{X: nodePos.X - HandleOffset, Y: nodePos.Y + dims.Height/2}, nil
	case HandleOutput:
		return Point{X: nodePos.X + dims.Width + HandleOffset, Y: nodePos.Y + dims.Height/2}, nil
	default:
		return Point{}, errors.New(errors.ErrCodeInvalidHandle, "unknown handle kind %q", handle)
	}
}

// HandleScreenPosition composes [HandleCanvasPosition] with [CanvasToScreen].
func HandleScreenPosition(nodePos Point, handle HandleKind, dims Dimensions, cs CanvasState) (Point, error) {
	cp, err := HandleCanvasPosition(nodePos, handle, dims)
	if err != nil {
		return Point{}, err
	}
	return CanvasToScreen(cp, cs)
}

// =============================================================================
// Bezier Connector Paths
// =============================================================================

const (
	// draftControlOffset is the minimum horizontal control-point offset for
	// in-progress connection paths.
	draftControlOffset = 50.0

	// edgeControlOffset is the minimum offset for committed edges, wider so
	// rendered connectors keep a visible curve between nearby nodes.
	edgeControlOffset = 100.0
)

// ConnectionPath synthesizes the SVG cubic bezier path for a draft
// connection between two screen-space endpoints. Control points extend
// horizontally from each endpoint by max(|dx|*0.5, 50) with y unchanged,
// which yields a stable S-curve regardless of drag direction.
func ConnectionPath(start, end Point) string {
	return bezierPath(start, end, draftControlOffset)
}

// EdgePath synthesizes the SVG path for a committed edge. Same construction
// as [ConnectionPath] with a wider minimum control offset.
func EdgePath(start, end Point) string {
	return bezierPath(start, end, edgeControlOffset)
}

func bezierPath(start, end Point, minOffset float64) string {
	offset := math.Max(math.Abs(end.X-start.X)*0.5, minOffset)
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		fmtCoord(start.X), fmtCoord(start.Y),
		fmtCoord(start.X+offset), fmtCoord(start.Y),
		fmtCoord(end.X-offset), fmtCoord(end.Y),
		fmtCoord(end.X), fmtCoord(end.Y))
}

// fmtCoord renders a coordinate without a trailing ".0" for whole numbers,
// matching the compact form SVG consumers expect.
func fmtCoord(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
