// Package placement computes viewport-visible, overlap-free canvas positions
// for strategy nodes.
//
// Placement works entirely in canvas space. The host derives the visible
// canvas region from its screen viewport via [CanvasViewport], then asks for
// positions inside that region minus a configurable edge margin.
//
// # Algorithm
//
// [OptimalPosition] tries candidates in a fixed order:
//
//  1. The center of the safe area.
//  2. A systematic grid scan sized to fit nodes with spacing.
//  3. Random candidates, nudged away from the nearest blocker when too
//     close.
//  4. A deterministic offset pattern derived from the existing node count.
//
// Every candidate is grid-snapped and overlap-checked by axis-aligned
// rectangle distance. Stage 4 guarantees termination: when the attempt
// budget is exhausted the returned position may overlap, but the search
// never hangs and never fails.
//
// # Zoom Rescaling
//
// [RescaleForZoom] re-projects existing positions radially around the
// viewport center by sqrt(newZoom/oldZoom), keeping relative layout stable
// under zoom without re-solving placement from scratch.
//
// # Determinism
//
// Random candidates come from a PCG generator seeded by [Options.Seed].
// Equal inputs with equal seeds always produce identical placements.
package placement
