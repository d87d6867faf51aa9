package geometry

import (
	"math"

	"github.com/fbecker/strategraph/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MinZoom and MaxZoom bound the canvas zoom factor. Every zoom value
	// entering the system is clamped to this range.
	MinZoom = 0.1
	MaxZoom = 3.0

	// HandleOffset is the horizontal distance in canvas pixels between a
	// node's edge and the center of its connection handle.
	HandleOffset = 12.0

	// DefaultNodeWidth and DefaultNodeHeight are the standard block size
	// used when a node type does not declare its own dimensions.
	DefaultNodeWidth  = 240.0
	DefaultNodeHeight = 120.0
)

// =============================================================================
// Types
// =============================================================================

// Point is a position in canvas or screen space. Which space is meant is
// fixed by each function signature, never inferred.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p translated by -q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p with both coordinates multiplied by f.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Validate reports whether both coordinates are finite.
func (p Point) Validate() error {
	if !isFinite(p.X) || !isFinite(p.Y) {
		return errors.New(errors.ErrCodeInvalidPoint, "non-finite coordinates (%v, %v)", p.X, p.Y)
	}
	return nil
}

// CanvasState is the shared coordinate-system parameter between the renderer
// and the editor core. Zoom is always kept within [MinZoom, MaxZoom]; the
// offset is an arbitrary finite point.
type CanvasState struct {
	Zoom   float64 `json:"zoom" bson:"zoom"`
	Offset Point   `json:"offset" bson:"offset"`
}

// Validate checks that the offset is finite and the zoom is a finite,
// positive value. Transform functions refuse to operate on invalid state.
func (cs CanvasState) Validate() error {
	if err := cs.Offset.Validate(); err != nil {
		return errors.New(errors.ErrCodeInvalidZoom, "canvas offset: non-finite coordinates (%v, %v)", cs.Offset.X, cs.Offset.Y)
	}
	if !isFinite(cs.Zoom) || cs.Zoom <= 0 {
		return errors.New(errors.ErrCodeInvalidZoom, "zoom must be finite and positive, got %v", cs.Zoom)
	}
	return nil
}

// DefaultCanvasState returns the identity view: zoom 1, no offset.
func DefaultCanvasState() CanvasState {
	return CanvasState{Zoom: 1.0}
}

// Dimensions is a node's width and height in canvas pixels.
type Dimensions struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// DefaultNodeDimensions returns the standard block size.
func DefaultNodeDimensions() Dimensions {
	return Dimensions{Width: DefaultNodeWidth, Height: DefaultNodeHeight}
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// MaxX returns the right edge coordinate.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge coordinate.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Center returns the rectangle's midpoint.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.MaxX() && o.X < r.MaxX() && r.Y < o.MaxY() && o.Y < r.MaxY()
}

// =============================================================================
// Transforms
// =============================================================================

// ScreenToCanvas converts a screen-space point into canvas space by undoing
// the pan offset and zoom: (p - offset) / zoom.
//
// Returns an error on non-finite input or invalid canvas state rather than
// propagating NaN into stored positions.
func ScreenToCanvas(p Point, cs CanvasState) (Point, error) {
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	if err := cs.Validate(); err != nil {
		return Point{}, err
	}
	return Point{
		X: (p.X - cs.Offset.X) / cs.Zoom,
		Y: (p.Y - cs.Offset.Y) / cs.Zoom,
	}, nil
}

// CanvasToScreen converts a canvas-space point into screen space by applying
// zoom then pan offset: p*zoom + offset. It is the exact inverse of
// [ScreenToCanvas]; round-tripping holds within 1e-3 for any valid input.
func CanvasToScreen(p Point, cs CanvasState) (Point, error) {
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	if err := cs.Validate(); err != nil {
		return Point{}, err
	}
	return Point{
		X: p.X*cs.Zoom + cs.Offset.X,
		Y: p.Y*cs.Zoom + cs.Offset.Y,
	}, nil
}

// ClampZoom forces a zoom factor into [MinZoom, MaxZoom]. Non-finite input
// clamps to MinZoom.
func ClampZoom(zoom float64) float64 {
	if !isFinite(zoom) {
		return MinZoom
	}
	return math.Max(MinZoom, math.Min(MaxZoom, zoom))
}

// ZoomedDimensions returns node dimensions scaled into screen space.
func ZoomedDimensions(d Dimensions, zoom float64) Dimensions {
	return Dimensions{Width: d.Width * zoom, Height: d.Height * zoom}
}

// BoundingBox returns the canvas-space rectangle covered by a node at pos.
func BoundingBox(pos Point, dims Dimensions) Rect {
	return Rect{X: pos.X, Y: pos.Y, Width: dims.Width, Height: dims.Height}
}

// ScreenBoundingBox returns the screen-space rectangle covered by a node,
// used for hit-testing pointer positions against rendered nodes.
func ScreenBoundingBox(pos Point, dims Dimensions, cs CanvasState) (Rect, error) {
	topLeft, err := CanvasToScreen(pos, cs)
	if err != nil {
		return Rect{}, err
	}
	scaled := ZoomedDimensions(dims, cs.Zoom)
	return Rect{X: topLeft.X, Y: topLeft.Y, Width: scaled.Width, Height: scaled.Height}, nil
}

// =============================================================================
// Distance and Containment
// =============================================================================

// Distance returns the Euclidean distance between two points in the same
// space.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// PointInCircle reports whether p lies within radius of center.
func PointInCircle(p, center Point, radius float64) bool {
	return Distance(p, center) <= radius
}

// PointInRect reports whether p lies inside r (edges inclusive).
func PointInRect(p Point, r Rect) bool {
	return r.Contains(p)
}

// RectDistance returns the shortest edge-to-edge distance between two
// axis-aligned rectangles. Intersecting rectangles have distance zero.
func RectDistance(a, b Rect) float64 {
	dx := math.Max(0, math.Max(b.X-a.MaxX(), a.X-b.MaxX()))
	dy := math.Max(0, math.Max(b.Y-a.MaxY(), a.Y-b.MaxY()))
	return math.Hypot(dx, dy)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
