package placement

import (
	"math"
	"math/rand/v2"

	"github.com/fbecker/strategraph/pkg/geometry"
)

// gridScanAttempts bounds the systematic scan stage before the search
// falls through to random candidates.
const gridScanAttempts = 10

// zoomEpsilon is the minimum zoom delta that triggers position rescaling.
const zoomEpsilon = 0.01

// Options configures the placement search.
type Options struct {
	// NodeSize is the footprint reserved for each placed node.
	NodeSize geometry.Dimensions

	// Margin keeps placements away from the viewport edges.
	Margin float64

	// NodeSpacing is the minimum edge-to-edge distance between nodes.
	NodeSpacing float64

	// GridSize snaps candidate positions to a regular grid.
	GridSize float64

	// MaxAttempts bounds the random-candidate stage.
	MaxAttempts int

	// Seed feeds the random-candidate generator. Equal seeds yield
	// identical placements for equal inputs.
	Seed uint64
}

var defaultOpts = Options{
	NodeSize:    geometry.Dimensions{Width: geometry.DefaultNodeWidth, Height: geometry.DefaultNodeHeight},
	Margin:      20,
	NodeSpacing: 40,
	GridSize:    20,
	MaxAttempts: 50,
}

func withDefaults(opts *Options) Options {
	if opts == nil {
		return defaultOpts
	}
	o := *opts
	if o.NodeSize.Width <= 0 || o.NodeSize.Height <= 0 {
		o.NodeSize = defaultOpts.NodeSize
	}
	if o.Margin < 0 {
		o.Margin = defaultOpts.Margin
	}
	if o.NodeSpacing <= 0 {
		o.NodeSpacing = defaultOpts.NodeSpacing
	}
	if o.GridSize <= 0 {
		o.GridSize = defaultOpts.GridSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultOpts.MaxAttempts
	}
	return o
}

// CanvasViewport converts a screen-space bounding rectangle into the canvas
// region it shows, by running both corners through [geometry.ScreenToCanvas].
func CanvasViewport(bound geometry.Rect, cs geometry.CanvasState) (geometry.Rect, error) {
	tl, err := geometry.ScreenToCanvas(geometry.Point{X: bound.X, Y: bound.Y}, cs)
	if err != nil {
		return geometry.Rect{}, err
	}
	br, err := geometry.ScreenToCanvas(geometry.Point{X: bound.MaxX(), Y: bound.MaxY()}, cs)
	if err != nil {
		return geometry.Rect{}, err
	}
	return geometry.Rect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}, nil
}

// OptimalPosition finds a canvas position for one new node inside viewport,
// avoiding the existing node rectangles. The returned anchor is the node's
// top-left corner.
//
// The search is bounded: if no overlap-free spot exists within the attempt
// budget, a deterministic fallback position is returned that may overlap.
func OptimalPosition(viewport geometry.Rect, existing []geometry.Rect, opts *Options) geometry.Point {
	o := withDefaults(opts)
	safe := safeArea(viewport, o)

	// Stage 1: center of the safe area.
	if cand := snapAndClamp(safe.Center(), safe, o); isFree(cand, existing, o) {
		return cand
	}

	// Stage 2: systematic grid scan, cells sized to fit a node plus spacing.
	if cand, ok := gridScan(safe, existing, o); ok {
		return cand
	}

	// Stage 3: random candidates, nudged away from the nearest blocker.
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed^0xdeadbeef))
	for range o.MaxAttempts {
		cand := snapAndClamp(randomPoint(safe, rng), safe, o)
		if isFree(cand, existing, o) {
			return cand
		}
		if blocker, ok := nearestBlocker(cand, existing, o); ok {
			nudged := snapAndClamp(nudgeAway(cand, blocker, o), safe, o)
			if isFree(nudged, existing, o) {
				return nudged
			}
		}
	}

	// Stage 4: deterministic fallback. May overlap, always terminates.
	return fallbackPosition(safe, len(existing), o)
}

// OptimalPositions places n nodes sequentially, adding each placement to the
// exclusion set for the next.
func OptimalPositions(n int, viewport geometry.Rect, existing []geometry.Rect, opts *Options) []geometry.Point {
	if n <= 0 {
		return nil
	}
	o := withDefaults(opts)
	blockers := make([]geometry.Rect, len(existing), len(existing)+n)
	copy(blockers, existing)

	out := make([]geometry.Point, 0, n)
	for range n {
		pos := OptimalPosition(viewport, blockers, &o)
		out = append(out, pos)
		blockers = append(blockers, geometry.BoundingBox(pos, o.NodeSize))
	}
	return out
}

// ClampToViewport forces a node anchor back inside the viewport minus the
// edge margin, accounting for the node's own footprint.
func ClampToViewport(pos geometry.Point, viewport geometry.Rect, opts *Options) geometry.Point {
	o := withDefaults(opts)
	return clampAnchor(pos, safeArea(viewport, o))
}

// RescaleForZoom re-projects node positions radially around the viewport
// center by sqrt(newZoom/oldZoom), then re-clamps each into the viewport.
// Zoom deltas at or below 0.01 leave positions untouched. The input map is
// never mutated.
func RescaleForZoom(positions map[string]geometry.Point, viewport geometry.Rect, oldZoom, newZoom float64, opts *Options) map[string]geometry.Point {
	out := make(map[string]geometry.Point, len(positions))
	if oldZoom <= 0 || newZoom <= 0 || math.Abs(newZoom-oldZoom) <= zoomEpsilon {
		for id, p := range positions {
			out[id] = p
		}
		return out
	}

	o := withDefaults(opts)
	safe := safeArea(viewport, o)
	factor := math.Sqrt(newZoom / oldZoom)
	center := viewport.Center()
	for id, p := range positions {
		scaled := geometry.Point{
			X: center.X + (p.X-center.X)*factor,
			Y: center.Y + (p.Y-center.Y)*factor,
		}
		out[id] = clampAnchor(scaled, safe)
	}
	return out
}

// =============================================================================
// Search internals
// =============================================================================

// safeArea returns the rectangle of valid node anchors: the viewport shrunk
// by the margin on all sides and by the node footprint on the far edges.
// Degenerate viewports collapse to a zero-size rect at the margin corner.
func safeArea(viewport geometry.Rect, o Options) geometry.Rect {
	return geometry.Rect{
		X:      viewport.X + o.Margin,
		Y:      viewport.Y + o.Margin,
		Width:  math.Max(0, viewport.Width-2*o.Margin-o.NodeSize.Width),
		Height: math.Max(0, viewport.Height-2*o.Margin-o.NodeSize.Height),
	}
}

func gridScan(safe geometry.Rect, existing []geometry.Rect, o Options) (geometry.Point, bool) {
	cellW := o.NodeSize.Width + o.NodeSpacing
	cellH := o.NodeSize.Height + o.NodeSpacing

	attempts := 0
	for y := safe.Y; y <= safe.MaxY() && attempts < gridScanAttempts; y += cellH {
		for x := safe.X; x <= safe.MaxX() && attempts < gridScanAttempts; x += cellW {
			attempts++
			cand := snapAndClamp(geometry.Point{X: x, Y: y}, safe, o)
			if isFree(cand, existing, o) {
				return cand, true
			}
		}
	}
	return geometry.Point{}, false
}

func randomPoint(safe geometry.Rect, rng *rand.Rand) geometry.Point {
	return geometry.Point{
		X: safe.X + rng.Float64()*safe.Width,
		Y: safe.Y + rng.Float64()*safe.Height,
	}
}

// nudgeAway pushes a candidate directly away from a blocking rectangle by
// one spacing-plus-grid step.
func nudgeAway(pos geometry.Point, blocker geometry.Rect, o Options) geometry.Point {
	center := geometry.BoundingBox(pos, o.NodeSize).Center()
	bc := blocker.Center()
	dx, dy := center.X-bc.X, center.Y-bc.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dx, dy, dist = 1, 0, 1
	}
	step := o.NodeSpacing + o.GridSize
	return geometry.Point{X: pos.X + dx/dist*step, Y: pos.Y + dy/dist*step}
}

func nearestBlocker(pos geometry.Point, existing []geometry.Rect, o Options) (geometry.Rect, bool) {
	box := geometry.BoundingBox(pos, o.NodeSize)
	var (
		best     geometry.Rect
		bestDist float64
		found    bool
	)
	for _, r := range existing {
		d := geometry.RectDistance(box, r)
		if !found || d < bestDist {
			best, bestDist, found = r, d, true
		}
	}
	return best, found
}

// fallbackPosition derives a bounded, deterministic anchor from the existing
// node count. It does not check overlap.
func fallbackPosition(safe geometry.Rect, existingCount int, o Options) geometry.Point {
	step := o.GridSize * 2
	off := float64(existingCount) * step
	pos := geometry.Point{
		X: safe.X + math.Mod(off, math.Max(safe.Width, step)),
		Y: safe.Y + math.Mod(off, math.Max(safe.Height, step)),
	}
	return snapAndClamp(pos, safe, o)
}

// isFree reports whether a node anchored at pos keeps at least NodeSpacing
// edge-to-edge distance from every blocker. Intersecting rectangles have
// distance zero and always fail.
func isFree(pos geometry.Point, blockers []geometry.Rect, o Options) bool {
	box := geometry.BoundingBox(pos, o.NodeSize)
	for _, r := range blockers {
		if geometry.RectDistance(box, r) < o.NodeSpacing {
			return false
		}
	}
	return true
}

func snapAndClamp(pos geometry.Point, safe geometry.Rect, o Options) geometry.Point {
	return clampAnchor(snapToGrid(pos, o.GridSize), safe)
}

func snapToGrid(p geometry.Point, grid float64) geometry.Point {
	if grid <= 0 {
		return p
	}
	return geometry.Point{
		X: math.Round(p.X/grid) * grid,
		Y: math.Round(p.Y/grid) * grid,
	}
}

func clampAnchor(p geometry.Point, safe geometry.Rect) geometry.Point {
	return geometry.Point{
		X: math.Min(math.Max(p.X, safe.X), safe.MaxX()),
		Y: math.Min(math.Max(p.Y, safe.Y), safe.MaxY()),
	}
}
