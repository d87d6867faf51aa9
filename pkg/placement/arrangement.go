package placement

import (
	"math"

	"github.com/fbecker/strategraph/pkg/geometry"
)

// Arrangement lays out n nodes in a near-square grid centered on the target
// area, used for bulk insertion such as applying a strategy template. Columns
// are chosen as ceil(sqrt(n)) so the grid stays as square as the count
// allows. Positions are grid-snapped but not overlap-checked against outside
// nodes; callers wanting collision avoidance should use [OptimalPositions].
func Arrangement(n int, area geometry.Rect, opts *Options) []geometry.Point {
	if n <= 0 {
		return nil
	}
	o := withDefaults(opts)

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))

	cellW := o.NodeSize.Width + o.NodeSpacing
	cellH := o.NodeSize.Height + o.NodeSpacing
	gridW := float64(cols)*cellW - o.NodeSpacing
	gridH := float64(rows)*cellH - o.NodeSpacing

	origin := geometry.Point{
		X: area.X + (area.Width-gridW)/2,
		Y: area.Y + (area.Height-gridH)/2,
	}

	out := make([]geometry.Point, 0, n)
	for i := range n {
		col := i % cols
		row := i / cols
		out = append(out, snapToGrid(geometry.Point{
			X: origin.X + float64(col)*cellW,
			Y: origin.Y + float64(row)*cellH,
		}, o.GridSize))
	}
	return out
}
