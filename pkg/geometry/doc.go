// Package geometry provides the coordinate math for the strategy canvas.
//
// The editor works in two coordinate spaces:
//
//   - Canvas space: the logical, zoom/pan-independent system in which node
//     positions are stored.
//   - Screen space: pixel coordinates relative to the viewport, after the
//     canvas zoom and offset are applied.
//
// The two spaces are never implicitly mixed. Every function in this package
// fixes which space it expects, and [ScreenToCanvas]/[CanvasToScreen] are
// exact inverses of each other within floating-point tolerance.
//
// # Core Types
//
//   - [Point]: a position in either space
//   - [CanvasState]: the zoom factor and pan offset shared with the renderer
//   - [Dimensions]: node width/height
//   - [Rect]: axis-aligned bounding box for hit tests and placement
//
// # Transforms
//
//	canvas, err := geometry.ScreenToCanvas(p, cs)   // (p - offset) / zoom
//	screen, err := geometry.CanvasToScreen(p, cs)   // p*zoom + offset
//
// Both fail fast on non-finite coordinates or non-positive zoom instead of
// silently propagating NaN. A transform error indicates a caller bug.
//
// # Handles and Paths
//
// Connection handles sit [HandleOffset] pixels outside the node's left
// (input) or right (output) edge at vertical center. [ConnectionPath] and
// [EdgePath] synthesize cubic bezier SVG path strings between two handle
// positions.
//
// # Concurrency
//
// All functions are pure and safe for concurrent use.
package geometry
