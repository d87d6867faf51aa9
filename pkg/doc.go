// Package pkg provides the core libraries for Strategraph, a visual editor
// for trading strategies built as node graphs.
//
// # Overview
//
// Strategraph models a trading strategy as blocks on a canvas: data sources
// feed indicators, indicators feed conditions, conditions fire signals, and
// signals place orders. The pkg directory is organized into four main areas:
//
//  1. [geometry], [graph], [interaction], [placement], [strategy] - Domain
//     logic (coordinate math, graph structure, gesture handling, the block
//     catalog)
//  2. [editor] - The composed editing facade used by the TUI and the server
//  3. [render] - Visualization (SVG canvas, Graphviz diagrams, PNG/PDF)
//  4. [store], [cache], [errors], [observability] - Infrastructure
//
// # Architecture
//
// The typical event flow through an editing session:
//
//	Mouse/Key Events
//	         ↓
//	    [interaction] package (gesture state machine)
//	         ↓
//	    [graph] package (nodes, connections, validation)
//	         ↓
//	    [render] package (canvas + diagram output)
//	         ↓
//	    SVG/PNG/PDF/DOT output
//
// Coordinate math lives in [geometry]: every screen event is projected into
// canvas space before it touches the graph, and every node is projected back
// into screen space before it is drawn or hit-tested.
//
// # Quick Start
//
// Build a strategy and render it:
//
//	import (
//	    "os"
//
//	    "github.com/fbecker/strategraph/pkg/editor"
//	    "github.com/fbecker/strategraph/pkg/geometry"
//	    "github.com/fbecker/strategraph/pkg/render"
//	    "github.com/fbecker/strategraph/pkg/strategy"
//	)
//
//	// 1. Create an editor with a visible canvas region
//	ed, _ := editor.New(editor.WithViewport(geometry.Rect{Width: 1280, Height: 800}))
//	defer ed.Close()
//
//	// 2. Apply a built-in strategy skeleton
//	tpl, _ := editor.TemplateByName("sma-crossover")
//	ed.ApplyTemplate(tpl)
//
//	// 3. Render the canvas to SVG
//	svg := render.RenderSVG(ed.Snapshot(), render.WithDimensions(strategy.Dimensions))
//	os.WriteFile("strategy.svg", svg, 0o644)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [geometry] - Canvas coordinate system: screen/canvas transforms, zoom
// clamping, node bounding boxes, and handle positions. Everything else builds
// on these primitives.
//
// [graph] - The strategy graph itself. [graph.Manager] owns nodes and
// connections, validates every new edge (missing endpoints, duplicates,
// self-loops, cycles), and serializes documents to JSON.
//
// [interaction] - Mouse gesture state machine. Distinguishes clicks from
// drags, routes drags to node movement, connection drawing, or canvas
// panning, and reports hover targets.
//
// [placement] - Automatic block placement: finds free space near the
// viewport center and arranges template blocks into a grid.
//
// [strategy] - The block catalog (data source, indicator, condition, logic,
// signal, order, risk) and the compatibility rules saying which block may
// feed which.
//
// ## Editing
//
// [editor] - Composes a manager, a state machine, and placement into one
// facade: AddBlock, ApplyTemplate, Pan, ZoomAt, and the mouse/key entry
// points the TUI forwards into. Also home to the built-in templates.
//
// ## Visualization
//
// [render] - Two views of the same document: the canvas view (positioned
// blocks, elbow connections, handles) rendered directly to SVG, and the
// diagram view rendered through Graphviz DOT. SVG converts to PNG and PDF.
//
// ## Infrastructure
//
// [store] - Document persistence behind one interface with memory, file,
// Redis, MongoDB, and SQLite backends, plus an instrumented wrapper that
// reports timings through [observability].
//
// [cache] - Content-addressed render artifact cache. Keys derive from the
// document hash and render options, so any edit invalidates naturally.
//
// [errors] - Coded errors shared by every package. Codes classify failures
// (invalid input, invalid document, not found, store) so callers can map
// them to exit codes or HTTP statuses without string matching.
//
// [observability] - Process-wide hook registry. Graph, interaction, store,
// and cache events fire through here; the server wires them to Prometheus.
//
// [buildinfo] - Build-time version information injected via ldflags.
//
// # Common Workflows
//
// Validate a connection before committing it:
//
//	res := mgr.ValidateConnection(src.ID, geometry.HandleOutput, dst.ID, geometry.HandleInput)
//	if !res.IsValid {
//	    fmt.Println(res.Errors)
//	}
//
// Persist a document:
//
//	st, _ := store.NewFileStore(dir)
//	doc := store.New("momentum", mgr.ExportDocument())
//	st.Put(ctx, doc)
//
// Cache a rendered artifact:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ArtifactKey(cache.DocumentHash(doc), cache.ArtifactKeyOpts{View: "canvas", Format: "svg"})
//	c.Set(ctx, key, svg, ttl)
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/graph/...      # Specific package
//	go test -run Example ./...   # Examples only
//
// [geometry]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/geometry
// [graph]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/graph
// [graph.Manager]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/graph#Manager
// [interaction]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/interaction
// [placement]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/placement
// [strategy]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/strategy
// [editor]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/editor
// [render]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/render
// [store]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/store
// [cache]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/cache
// [errors]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/fbecker/strategraph/pkg/buildinfo
package pkg
