// Package render turns strategy graph snapshots into visual output.
//
// # Overview
//
// Two renderers cover the two situations a graph arrives in:
//
//   - [RenderSVG] paints a snapshot exactly as laid out on the canvas:
//     block rectangles at their stored positions, handle circles, and
//     bezier connectors. Use it when positions exist and matter.
//   - [ToDOT] plus [RenderDOTSVG] delegate layout to Graphviz. Use them
//     for graphs imported without positions, where an auto-arranged
//     preview beats a pile of blocks at the origin.
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG to other formats using the external
// rsvg-convert tool (from librsvg). Both renderers' output goes through
// the same conversion path.
//
//	svg := render.RenderSVG(editor.Snapshot())
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Canvas SVG
//
// [RenderSVG] emits canvas-space coordinates with a viewBox fitted to the
// content, so exports are independent of the editor's pan and zoom. The
// in-progress draft connection, when present, is drawn dashed.
//
// # Dependencies
//
// DOT rasterization uses [github.com/goccy/go-graphviz] in process. PDF
// and PNG conversion shell out to rsvg-convert.
package render
