package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/cache"
	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/observability"
	"github.com/fbecker/strategraph/pkg/render"
	"github.com/fbecker/strategraph/pkg/strategy"
)

const (
	viewCanvas      = "canvas"  // stored block positions, editor-faithful
	viewDiagram     = "diagram" // graphviz auto-layout along the data flow
	defaultPNGScale = 2.0       // raster scale for PNG output
)

// renderOpts holds the command-line flags for the render command.
// These options control the rendered view, output formats, and caching.
type renderOpts struct {
	configPath string   // config file path
	docID      string   // render a stored document instead of a file
	output     string   // output file (single view/format) or base path (multiple)
	views      []string // rendered views: "canvas", "diagram"
	formats    []string // output formats: "svg", "png", "pdf", "dot"
	detailed   bool     // include block parameters in diagram labels
	scale      float64  // raster scale factor for PNG output
	noCache    bool     // bypass the artifact cache
	noHandles  bool     // hide connection handles in canvas output
}

// newRenderCmd creates the render command for generating visual output.
// It supports two views (canvas, diagram) and four formats (SVG, PNG, PDF, DOT).
//
// Default settings:
//   - view: canvas (stored block positions)
//   - format: svg
//   - scale: 2.0 (PNG only)
//   - caching: on, keyed by document content
func newRenderCmd() *cobra.Command {
	var viewsStr, formatsStr string
	opts := renderOpts{scale: defaultPNGScale}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a strategy document to SVG, PNG, PDF, or DOT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			opts.views = parseViews(viewsStr)
			opts.formats = parseFormats(formatsStr)
			if err := validateViews(opts.views); err != nil {
				return err
			}
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return runRender(cmd.Context(), file, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVarP(&opts.docID, "doc", "d", "", "render a stored document by ID")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single view/format) or base path (multiple)")
	cmd.Flags().StringVarP(&viewsStr, "view", "t", "", "view(s): canvas (default), diagram (comma-separated)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show block parameters (diagram)")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "raster scale factor (png)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the artifact cache")
	cmd.Flags().BoolVar(&opts.noHandles, "no-handles", false, "hide connection handles (canvas)")

	return cmd
}

// parseViews parses the --view flag into a slice of views.
// If empty, defaults to ["canvas"].
func parseViews(s string) []string {
	if s == "" {
		return []string{viewCanvas}
	}
	return strings.Split(s, ",")
}

// parseFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	return strings.Split(s, ",")
}

// validFormats is the set of supported output formats.
var validFormats = map[string]bool{"svg": true, "png": true, "pdf": true, "dot": true}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'svg', 'png', 'pdf', or 'dot')", f)
		}
	}
	return nil
}

// validateViews checks that all requested views are valid.
func validateViews(views []string) error {
	for _, v := range views {
		if v != viewCanvas && v != viewDiagram {
			return fmt.Errorf("invalid view: %s (must be 'canvas' or 'diagram')", v)
		}
	}
	return nil
}

// basePath derives the base output path from the output and input paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .png, etc.), it strips that extension.
// This is used when generating multiple files (e.g., strategy_canvas.svg).
func basePath(output, input string) string {
	if output == "" {
		if input == "" {
			return "strategy"
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// runRender loads the document and renders it to the requested views and
// formats, consulting the artifact cache first.
func runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	doc, name, err := loadDocument(ctx, cfg, input, opts.docID)
	if err != nil {
		return err
	}
	logger.Infof("Rendering %s: %d blocks, %d connections", name, len(doc.Nodes), len(doc.Connections))

	artifacts := newArtifactCache(cfg, opts.noCache)
	defer artifacts.Close()

	r := &renderer{
		doc:     doc,
		docHash: cache.DocumentHash(doc),
		cache:   artifacts,
		keyer:   cache.NewDefaultKeyer(),
		ttl:     cfg.Cache.TTL.Duration,
		opts:    opts,
	}

	if len(opts.views) == 1 && len(opts.formats) == 1 {
		return r.renderSingle(ctx, opts.views[0], opts.formats[0], input)
	}
	return r.renderMultiple(ctx, input)
}

// renderer carries the loaded document and cache handles through one
// render invocation.
type renderer struct {
	doc     graph.Document
	docHash string
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	opts    *renderOpts
}

// renderSingle renders one view/format combination to a single output file.
// If opts.output is empty, the output path is derived from the input file name.
func (r *renderer) renderSingle(ctx context.Context, view, format, input string) error {
	logger := loggerFromContext(ctx)

	data, hit, err := r.render(ctx, view, format)
	if err != nil {
		return err
	}
	logger.Debugf("Generated %s: %d bytes", format, len(data))

	outputPath := r.opts.output
	if outputPath == "" {
		outputPath = basePath("", input) + "." + format
	}

	out, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = out.Write(data); err != nil {
		return err
	}

	printFile(outputPath)
	printStats(len(r.doc.Nodes), len(r.doc.Connections), hit)
	return nil
}

// renderMultiple renders all requested view/format combinations to
// separate files. File names include the view when multiple are requested.
func (r *renderer) renderMultiple(ctx context.Context, input string) error {
	logger := loggerFromContext(ctx)
	base := basePath(r.opts.output, input)

	for _, view := range r.opts.views {
		for _, format := range r.opts.formats {
			data, hit, err := r.render(ctx, view, format)
			if err == errSkipFormat {
				logger.Debugf("Skipping %s/%s (unsupported combination)", view, format)
				continue
			}
			if err != nil {
				return fmt.Errorf("%s/%s: %w", view, format, err)
			}

			var path string
			if len(r.opts.views) == 1 {
				path = fmt.Sprintf("%s.%s", base, format)
			} else {
				path = fmt.Sprintf("%s_%s.%s", base, view, format)
			}

			out, err := openOutput(path)
			if err != nil {
				return err
			}
			if _, err := out.Write(data); err != nil {
				out.Close()
				return err
			}
			out.Close()

			hitMark := ""
			if hit {
				hitMark = " (cached)"
			}
			logger.Infof("Generated %s%s", path, hitMark)
			printFile(path)
		}
	}
	return nil
}

// errSkipFormat is a sentinel error indicating an unsupported view/format combination.
var errSkipFormat = fmt.Errorf("skip unsupported format")

// render produces one artifact, consulting the cache first. The bool
// reports whether the bytes came from the cache.
func (r *renderer) render(ctx context.Context, view, format string) ([]byte, bool, error) {
	key := r.keyer.ArtifactKey(r.docHash, cache.ArtifactKeyOpts{
		View:     view,
		Format:   format,
		Scale:    r.scaleFor(format),
		Detailed: r.opts.detailed,
	})

	if data, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	data, err := r.produce(view, format)
	if err != nil {
		return nil, false, err
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return data, false, nil
}

// scaleFor returns the raster scale for formats it affects, zero otherwise
// so vector outputs share cache entries regardless of --scale.
func (r *renderer) scaleFor(format string) float64 {
	if format == "png" {
		return r.opts.scale
	}
	return 0
}

// produce dispatches to the appropriate renderer for a view/format pair.
func (r *renderer) produce(view, format string) ([]byte, error) {
	switch view {
	case viewCanvas:
		return r.produceCanvas(format)
	case viewDiagram:
		return r.produceDiagram(format)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown view: %s", view)
	}
}

// produceCanvas renders the document exactly as the editor shows it,
// using the stored block positions and canvas transform.
func (r *renderer) produceCanvas(format string) ([]byte, error) {
	if format == "dot" {
		return nil, errSkipFormat // DOT export only makes sense for the diagram view
	}

	svgOpts := []render.SVGOption{render.WithDimensions(strategy.Dimensions)}
	if r.opts.noHandles {
		svgOpts = append(svgOpts, render.WithoutHandles())
	}
	svg := render.RenderSVG(graph.Snapshot{
		Nodes:       r.doc.Nodes,
		Connections: r.doc.Connections,
		Canvas:      r.doc.Canvas,
	}, svgOpts...)

	switch format {
	case "svg":
		return svg, nil
	case "png":
		return render.ToPNG(svg, r.opts.scale)
	case "pdf":
		return render.ToPDF(svg)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format: %s", format)
	}
}

// produceDiagram renders an auto-laid-out flow diagram via Graphviz.
func (r *renderer) produceDiagram(format string) ([]byte, error) {
	dot := render.ToDOT(r.doc, render.DOTOptions{Detailed: r.opts.detailed})
	if format == "dot" {
		return []byte(dot), nil
	}

	svg, err := render.RenderDOTSVG(dot)
	if err != nil {
		return nil, err
	}
	switch format {
	case "svg":
		return svg, nil
	case "png":
		return render.ToPNG(svg, r.opts.scale)
	case "pdf":
		return render.ToPDF(svg)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format: %s", format)
	}
}
