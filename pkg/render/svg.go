package render

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/strategy"
)

const (
	// contentPadding is the whitespace around the fitted content box.
	contentPadding = 40.0

	// handleRadius is the drawn radius of connection handles.
	handleRadius = 6.0
)

// Fill colors per block type. Off-catalog types fall back to white.
var defaultPalette = map[string]string{
	string(strategy.BlockDataSource): "#dbeafe",
	string(strategy.BlockIndicator):  "#ede9fe",
	string(strategy.BlockCondition):  "#fef3c7",
	string(strategy.BlockLogic):      "#e0e7ff",
	string(strategy.BlockSignal):     "#dcfce7",
	string(strategy.BlockOrder):      "#fee2e2",
	string(strategy.BlockRisk):       "#fce7f3",
}

// SVGOption configures canvas SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	dims        graph.DimensionsFunc
	palette     map[string]string
	hideHandles bool
	hideDraft   bool
}

// WithDimensions overrides the node-type dimension lookup.
func WithDimensions(f graph.DimensionsFunc) SVGOption {
	return func(r *svgRenderer) {
		if f != nil {
			r.dims = f
		}
	}
}

// WithPalette overrides the block-type fill colors.
func WithPalette(p map[string]string) SVGOption {
	return func(r *svgRenderer) { r.palette = p }
}

// WithoutHandles omits the connection handle circles.
func WithoutHandles() SVGOption { return func(r *svgRenderer) { r.hideHandles = true } }

// WithoutDraft omits the in-progress connection preview.
func WithoutDraft() SVGOption { return func(r *svgRenderer) { r.hideDraft = true } }

// RenderSVG paints a snapshot of the strategy canvas as a standalone SVG.
// Output is in canvas coordinates with a viewBox fitted to the content, so
// the export is independent of the editor's current pan and zoom. The draft
// connection, if one is in flight, is drawn dashed.
func RenderSVG(s graph.Snapshot, opts ...SVGOption) []byte {
	r := svgRenderer{dims: strategy.Dimensions, palette: defaultPalette}
	for _, opt := range opts {
		opt(&r)
	}

	frame := contentBounds(s.Nodes, r.dims)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		frame.X, frame.Y, frame.Width, frame.Height, frame.Width, frame.Height)

	byID := make(map[string]graph.Node, len(s.Nodes))
	for _, n := range s.Nodes {
		byID[n.ID] = n
	}

	for _, c := range s.Connections {
		renderEdge(&buf, c, byID, r.dims)
	}
	for _, n := range s.Nodes {
		renderNode(&buf, n, r.dims(n.Type), r.palette)
	}
	if !r.hideHandles {
		for _, n := range s.Nodes {
			renderHandles(&buf, n, r.dims(n.Type))
		}
	}
	if !r.hideDraft && s.Draft != nil {
		renderDraft(&buf, *s.Draft, s.Canvas)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// contentBounds fits a frame around every node box including its handles,
// plus padding. An empty snapshot gets a fixed small frame.
func contentBounds(nodes []graph.Node, dims graph.DimensionsFunc) geometry.Rect {
	if len(nodes) == 0 {
		return geometry.Rect{Width: 400, Height: 300}
	}

	reach := geometry.HandleOffset + handleRadius
	first := true
	var minX, minY, maxX, maxY float64
	for _, n := range nodes {
		box := geometry.BoundingBox(n.Position, dims(n.Type))
		lo := geometry.Point{X: box.X - reach, Y: box.Y}
		hi := geometry.Point{X: box.MaxX() + reach, Y: box.MaxY()}
		if first {
			minX, minY, maxX, maxY = lo.X, lo.Y, hi.X, hi.Y
			first = false
			continue
		}
		minX = min(minX, lo.X)
		minY = min(minY, lo.Y)
		maxX = max(maxX, hi.X)
		maxY = max(maxY, hi.Y)
	}
	return geometry.Rect{
		X:      minX - contentPadding,
		Y:      minY - contentPadding,
		Width:  maxX - minX + 2*contentPadding,
		Height: maxY - minY + 2*contentPadding,
	}
}

func renderEdge(buf *bytes.Buffer, c graph.Connection, byID map[string]graph.Node, dims graph.DimensionsFunc) {
	src, okS := byID[c.Source]
	dst, okD := byID[c.Target]
	if !okS || !okD {
		return
	}
	start, err := geometry.HandleCanvasPosition(src.Position, geometry.HandleOutput, dims(src.Type))
	if err != nil {
		return
	}
	end, err := geometry.HandleCanvasPosition(dst.Position, geometry.HandleInput, dims(dst.Type))
	if err != nil {
		return
	}

	stroke := "#64748b"
	if _, warned := c.Meta["warnings"]; warned {
		stroke = "#d97706"
	}
	fmt.Fprintf(buf, `  <path id="edge-%s" d="%s" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
		escapeXML(c.ID), geometry.EdgePath(start, end), stroke)
}

func renderNode(buf *bytes.Buffer, n graph.Node, dims geometry.Dimensions, palette map[string]string) {
	fill, ok := palette[n.Type]
	if !ok {
		fill = "white"
	}
	fmt.Fprintf(buf, `  <rect id="node-%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" fill="%s" stroke="#334155" stroke-width="1.5"/>`+"\n",
		escapeXML(n.ID), n.Position.X, n.Position.Y, dims.Width, dims.Height, fill)

	cx := n.Position.X + dims.Width/2
	cy := n.Position.Y + dims.Height/2
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="14">%s</text>`+"\n",
		cx, cy-4, escapeXML(n.DisplayLabel()))
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="10" fill="#64748b">%s</text>`+"\n",
		cx, cy+14, escapeXML(n.Type))
}

func renderHandles(buf *bytes.Buffer, n graph.Node, dims geometry.Dimensions) {
	for _, h := range []geometry.HandleKind{geometry.HandleInput, geometry.HandleOutput} {
		p, err := geometry.HandleCanvasPosition(n.Position, h, dims)
		if err != nil {
			continue
		}
		fmt.Fprintf(buf, `  <circle cx="%.1f" cy="%.1f" r="%.0f" fill="white" stroke="#334155" stroke-width="1.5"/>`+"\n",
			p.X, p.Y, handleRadius)
	}
}

// renderDraft converts the draft's screen-space endpoints back into canvas
// space so the preview lines up with the exported nodes.
func renderDraft(buf *bytes.Buffer, d graph.ActiveConnection, cs geometry.CanvasState) {
	start, err := geometry.ScreenToCanvas(d.StartPosition, cs)
	if err != nil {
		return
	}
	end, err := geometry.ScreenToCanvas(d.CurrentPosition, cs)
	if err != nil {
		return
	}
	fmt.Fprintf(buf, `  <path d="%s" fill="none" stroke="#94a3b8" stroke-width="2" stroke-dasharray="6 4"/>`+"\n",
		geometry.ConnectionPath(start, end))
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
