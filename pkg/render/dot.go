package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/graph"
)

// DOTOptions configures DOT export.
type DOTOptions struct {
	// Detailed includes the block type and parameter payload in node
	// labels. When false, only the display label is shown.
	Detailed bool
}

// ToDOT converts a strategy document to Graphviz DOT, laid out left to
// right along the data flow. Positions stored on nodes are ignored; this
// export exists for auto-layout previews of graphs that carry none. The
// resulting DOT string can be rendered with [RenderDOTSVG].
//
// Edges that carry compatibility warnings are drawn dashed and amber.
func ToDOT(doc graph.Document, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph strategy {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		attrs := nodeAttrs(n, fmtNodeLabel(n, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range doc.Connections {
		if _, warned := c.Meta["warnings"]; warned {
			fmt.Fprintf(&buf, "  %q -> %q [color=\"#d97706\", style=dashed];\n", c.Source, c.Target)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", c.Source, c.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtNodeLabel(n *graph.Node, detailed bool) string {
	if !detailed {
		return n.DisplayLabel()
	}

	parts := []string{fmt.Sprintf("type: %s", n.Type)}
	for _, k := range slices.Sorted(maps.Keys(n.Data)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Data[k]))
	}
	return n.DisplayLabel() + "\n" + strings.Join(parts, "\n")
}

func nodeAttrs(n *graph.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if fill, ok := defaultPalette[n.Type]; ok {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fill))
	}
	return attrs
}

// RenderDOTSVG rasterizes a DOT graph to SVG using Graphviz.
func RenderDOTSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render DOT")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites Graphviz's svg element to a zero-origin viewBox
// with explicit pixel dimensions, which embeds predictably in hosts.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
