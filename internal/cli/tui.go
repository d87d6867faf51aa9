package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fbecker/strategraph/pkg/cache"
	"github.com/fbecker/strategraph/pkg/editor"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/strategy"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// Terminal cells are roughly twice as tall as wide. These factors map one
// cell onto canvas pixels so hit-testing shares the same math as the
// editor core.
const (
	cellWidth  = 10.0
	cellHeight = 20.0
)

// Pan step per arrow key press, in screen pixels.
const panStep = 40.0

// Zoom factor per wheel tick or +/- press.
const zoomStep = 1.2

// overlay selects which full-screen view is active instead of the canvas.
type overlay int

const (
	overlayNone overlay = iota
	overlayPalette
	overlayTemplates
	overlayHelp
)

// SaveFunc persists the current document. The edit command decides where
// it goes (store or file).
type SaveFunc func(graph.Document) error

// =============================================================================
// EditorModel - Interactive canvas editing
// =============================================================================

// EditorModel is the bubbletea model wrapping the canvas editor. Mouse
// events feed the interaction machine; the view draws the node graph onto
// a cell grid with a status bar underneath.
type EditorModel struct {
	Editor *editor.Editor

	DocName string
	Save    SaveFunc

	width  int
	height int

	overlay   overlay
	cursor    int // palette/template selection
	status    string
	savedHash string
	quitting  bool

	blocks    []strategy.BlockSpec
	templates []editor.Template
}

// NewEditorModel wraps an editor for interactive use. The saved hash is
// seeded from the editor's current document so an untouched session does
// not count as dirty.
func NewEditorModel(ed *editor.Editor, docName string, save SaveFunc) EditorModel {
	return EditorModel{
		Editor:    ed,
		DocName:   docName,
		Save:      save,
		savedHash: cache.DocumentHash(ed.Manager().ExportDocument()),
		blocks:    strategy.Blocks(),
		templates: editor.BuiltinTemplates(),
	}
}

// Document returns the editor's current serialized state.
func (m EditorModel) Document() graph.Document {
	return m.Editor.Manager().ExportDocument()
}

// Dirty reports whether the document changed since the last save.
func (m EditorModel) Dirty() bool {
	return cache.DocumentHash(m.Document()) != m.savedHash
}

func (m EditorModel) Init() tea.Cmd {
	return nil
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		rows := m.canvasRows()
		_ = m.Editor.SetViewport(geometry.Rect{
			Width:  float64(m.width) * cellWidth,
			Height: float64(rows) * cellHeight,
		})
		return m, nil

	case tea.MouseMsg:
		if m.overlay != overlayNone {
			return m, nil
		}
		return m.updateMouse(msg), nil

	case tea.KeyMsg:
		if m.overlay != overlayNone {
			return m.updateOverlay(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

// canvasRows is the grid height with the status bar subtracted.
func (m EditorModel) canvasRows() int {
	rows := m.height - 1
	if rows < 1 {
		rows = 1
	}
	return rows
}

// cellPoint maps a terminal cell to the screen-space point at its center.
func cellPoint(x, y int) geometry.Point {
	return geometry.Point{
		X: (float64(x) + 0.5) * cellWidth,
		Y: (float64(y) + 0.5) * cellHeight,
	}
}

func (m EditorModel) updateMouse(msg tea.MouseMsg) EditorModel {
	if msg.Y >= m.canvasRows() {
		return m
	}
	pos := cellPoint(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.status = ""
			m.Editor.MouseDown(pos)
		case tea.MouseButtonWheelUp:
			_ = m.Editor.ZoomAt(pos, m.Editor.CanvasState().Zoom*zoomStep)
		case tea.MouseButtonWheelDown:
			_ = m.Editor.ZoomAt(pos, m.Editor.CanvasState().Zoom/zoomStep)
		}
	case tea.MouseActionMotion:
		m.Editor.MouseMove(pos)
	case tea.MouseActionRelease:
		m.Editor.MouseUp(pos)
	}
	return m
}

func (m EditorModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.Editor.KeyDown("Escape")
		m.status = ""

	case "a":
		m.overlay = overlayPalette
		m.cursor = 0

	case "t":
		m.overlay = overlayTemplates
		m.cursor = 0

	case "?":
		m.overlay = overlayHelp

	case "d", "backspace", "delete":
		if id, ok := m.Editor.HoveredNode(); ok {
			m.Editor.RemoveNode(id)
			m.status = "block deleted"
		} else {
			m.status = "hover a block to delete it"
		}

	case "ctrl+s":
		m = m.save()

	case "left", "h":
		_ = m.Editor.Pan(geometry.Point{X: panStep})
	case "right", "l":
		_ = m.Editor.Pan(geometry.Point{X: -panStep})
	case "up", "k":
		_ = m.Editor.Pan(geometry.Point{Y: panStep})
	case "down", "j":
		_ = m.Editor.Pan(geometry.Point{Y: -panStep})

	case "+", "=":
		_ = m.Editor.ZoomAt(m.viewportCenter(), m.Editor.CanvasState().Zoom*zoomStep)
	case "-":
		_ = m.Editor.ZoomAt(m.viewportCenter(), m.Editor.CanvasState().Zoom/zoomStep)
	case "0":
		_ = m.Editor.SetCanvasState(geometry.DefaultCanvasState())
	}
	return m, nil
}

func (m EditorModel) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.overlayLen()-1 {
			m.cursor++
		}
	case "enter":
		switch m.overlay {
		case overlayPalette:
			spec := m.blocks[m.cursor]
			if _, err := m.Editor.AddBlock(spec.Type); err != nil {
				m.status = err.Error()
			} else {
				m.status = fmt.Sprintf("added %s", spec.Label)
			}
		case overlayTemplates:
			tpl := m.templates[m.cursor]
			if nodes, err := m.Editor.ApplyTemplate(tpl); err != nil {
				m.status = err.Error()
			} else {
				m.status = fmt.Sprintf("applied %s (%d blocks)", tpl.Name, len(nodes))
			}
		}
		m.overlay = overlayNone
	}
	return m, nil
}

func (m EditorModel) overlayLen() int {
	switch m.overlay {
	case overlayPalette:
		return len(m.blocks)
	case overlayTemplates:
		return len(m.templates)
	}
	return 0
}

func (m EditorModel) save() EditorModel {
	if m.Save == nil {
		m.status = "no save target"
		return m
	}
	doc := m.Document()
	if err := m.Save(doc); err != nil {
		m.status = "save failed: " + err.Error()
		return m
	}
	m.savedHash = cache.DocumentHash(doc)
	m.status = "saved"
	return m
}

func (m EditorModel) viewportCenter() geometry.Point {
	return geometry.Point{
		X: float64(m.width) * cellWidth / 2,
		Y: float64(m.canvasRows()) * cellHeight / 2,
	}
}

// =============================================================================
// View
// =============================================================================

func (m EditorModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "starting..."
	}

	switch m.overlay {
	case overlayPalette:
		return m.paletteView()
	case overlayTemplates:
		return m.templateView()
	case overlayHelp:
		return helpView()
	}

	var b strings.Builder
	b.WriteString(m.canvasView())
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m EditorModel) canvasView() string {
	g := newCellGrid(m.width, m.canvasRows())
	snap := m.Editor.Snapshot()

	rects := make(map[string]cellRect, len(snap.Nodes))
	for _, n := range snap.Nodes {
		rects[n.ID] = m.nodeCellRect(n, snap.Canvas)
	}

	// Edges underneath, nodes on top, active draft last.
	for _, c := range snap.Connections {
		src, okS := rects[c.Source]
		dst, okT := rects[c.Target]
		if !okS || !okT {
			continue
		}
		style := gridStyleDim
		if !c.IsValid {
			style = gridStyleBad
		}
		drawElbow(g, src.right(), src.midY(), dst.left(), dst.midY(), style)
	}

	hoveredNode, _ := m.Editor.HoveredNode()
	handleNode, hoveredHandle, handleOK := m.Editor.HoveredHandle()

	for _, n := range snap.Nodes {
		r := rects[n.ID]
		style := gridStyleNode
		if n.ID == hoveredNode {
			style = gridStyleHot
		}
		drawBox(g, r, style)
		label := n.DisplayLabel()
		drawText(g, r.x+1, r.midY(), r.w-2, label, style)
		if r.h >= 4 {
			drawText(g, r.x+1, r.y+1, r.w-2, n.Type, gridStyleDim)
		}

		spec, hasSpec := strategy.Lookup(strategy.BlockType(n.Type))
		drawIn := !hasSpec || spec.HasHandle(geometry.HandleInput)
		drawOut := !hasSpec || spec.HasHandle(geometry.HandleOutput)
		if drawIn {
			hs := gridStyleHandle
			if handleOK && n.ID == handleNode && hoveredHandle == geometry.HandleInput {
				hs = gridStyleHot
			}
			g.set(r.x, r.midY(), '○', hs)
		}
		if drawOut {
			hs := gridStyleHandle
			if handleOK && n.ID == handleNode && hoveredHandle == geometry.HandleOutput {
				hs = gridStyleHot
			}
			g.set(r.right(), r.midY(), '○', hs)
		}
	}

	if snap.Draft != nil {
		style := gridStyleActive
		if !snap.Draft.IsValid {
			style = gridStyleBad
		}
		drawDotted(g,
			int(snap.Draft.StartPosition.X/cellWidth), int(snap.Draft.StartPosition.Y/cellHeight),
			int(snap.Draft.CurrentPosition.X/cellWidth), int(snap.Draft.CurrentPosition.Y/cellHeight),
			style)
	}

	return g.String()
}

// nodeCellRect projects a node's screen bounding box onto the cell grid.
func (m EditorModel) nodeCellRect(n graph.Node, cs geometry.CanvasState) cellRect {
	dims := strategy.Dimensions(n.Type)
	box, err := geometry.ScreenBoundingBox(n.Position, dims, cs)
	if err != nil {
		return cellRect{}
	}
	r := cellRect{
		x: int(box.X / cellWidth),
		y: int(box.Y / cellHeight),
		w: int(box.Width / cellWidth),
		h: int(box.Height / cellHeight),
	}
	if r.w < 6 {
		r.w = 6
	}
	if r.h < 3 {
		r.h = 3
	}
	return r
}

func (m EditorModel) statusBar() string {
	cs := m.Editor.CanvasState()
	snap := m.Editor.Snapshot()

	name := m.DocName
	if name == "" {
		name = "draft"
	}
	if m.Dirty() {
		name += "*"
	}

	left := fmt.Sprintf(" %s │ %s │ %d%% │ %d blocks · %d connections",
		name, m.Editor.Mode(), int(cs.Zoom*100+0.5), len(snap.Nodes), len(snap.Connections))
	if m.status != "" {
		left += " │ " + m.status
	}
	right := "a:add t:template d:delete ctrl+s:save ?:help q:quit "

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	bar := left + strings.Repeat(" ", pad) + right
	return statusBarStyle.Width(m.width).Render(bar)
}

func (m EditorModel) paletteView() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Add Block"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ insert  esc cancel"))
	b.WriteString("\n\n")

	for i, spec := range m.blocks {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		feeds := "terminal"
		if len(spec.FeedsInto) > 0 {
			names := make([]string, len(spec.FeedsInto))
			for j, t := range spec.FeedsInto {
				names[j] = string(t)
			}
			feeds = "feeds " + strings.Join(names, ", ")
		}
		line := fmt.Sprintf("%s%-14s %s", cursor, spec.Label, listDimStyle.Render(feeds))
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m EditorModel) templateView() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Apply Template"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ apply  esc cancel"))
	b.WriteString("\n\n")

	for i, tpl := range m.templates {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%-16s %s", cursor, tpl.Name, listDimStyle.Render(tpl.Description))
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func helpView() string {
	lines := []string{
		StyleTitle.Render("Strategraph Editor"),
		"",
		"Mouse:",
		"  drag block       move it (a short click leaves it in place)",
		"  drag from ○      draw a connection to another block",
		"  drag background  pan the canvas",
		"  wheel            zoom at the pointer",
		"",
		"Keys:",
		"  a                add a block",
		"  t                apply a strategy template",
		"  d                delete the hovered block",
		"  arrows / hjkl    pan",
		"  + / - / 0        zoom in / out / reset view",
		"  esc              cancel the active drag or connection",
		"  ctrl+s           save",
		"  q                quit",
		"",
		listDimStyle.Render("press esc to close"),
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// Cell Grid
// =============================================================================

// Grid style identifiers, indexed into gridStyles.
const (
	gridStyleNone byte = iota
	gridStyleDim
	gridStyleNode
	gridStyleHot
	gridStyleActive
	gridStyleBad
	gridStyleHandle
)

var gridStyles = [...]lipgloss.Style{
	gridStyleNone:   lipgloss.NewStyle(),
	gridStyleDim:    lipgloss.NewStyle().Foreground(colorDim),
	gridStyleNode:   lipgloss.NewStyle().Foreground(colorWhite),
	gridStyleHot:    lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
	gridStyleActive: lipgloss.NewStyle().Foreground(colorGreen),
	gridStyleBad:    lipgloss.NewStyle().Foreground(colorRed),
	gridStyleHandle: lipgloss.NewStyle().Foreground(colorYellow),
}

var statusBarStyle = lipgloss.NewStyle().Foreground(colorGray).Background(lipgloss.Color("236"))

// cellGrid is a fixed-size rune buffer with one style byte per cell.
// Out-of-bounds writes are clipped.
type cellGrid struct {
	w, h   int
	runes  []rune
	styles []byte
}

func newCellGrid(w, h int) *cellGrid {
	g := &cellGrid{w: w, h: h, runes: make([]rune, w*h), styles: make([]byte, w*h)}
	for i := range g.runes {
		g.runes[i] = ' '
	}
	return g
}

func (g *cellGrid) set(x, y int, r rune, style byte) {
	if x < 0 || x >= g.w || y < 0 || y >= g.h {
		return
	}
	i := y*g.w + x
	g.runes[i] = r
	g.styles[i] = style
}

// String renders the grid row by row, grouping runs of equal style so each
// lipgloss escape covers as many cells as possible.
func (g *cellGrid) String() string {
	var b strings.Builder
	for y := 0; y < g.h; y++ {
		if y > 0 {
			b.WriteString("\n")
		}
		row := g.runes[y*g.w : (y+1)*g.w]
		styles := g.styles[y*g.w : (y+1)*g.w]
		start := 0
		for x := 1; x <= g.w; x++ {
			if x < g.w && styles[x] == styles[start] {
				continue
			}
			run := string(row[start:x])
			if styles[start] == gridStyleNone {
				b.WriteString(run)
			} else {
				b.WriteString(gridStyles[styles[start]].Render(run))
			}
			start = x
		}
	}
	return b.String()
}

// cellRect is a rectangle in grid coordinates.
type cellRect struct {
	x, y, w, h int
}

func (r cellRect) right() int { return r.x + r.w - 1 }
func (r cellRect) midY() int  { return r.y + r.h/2 }
func (r cellRect) left() int  { return r.x }

// drawBox draws a single-line border.
func drawBox(g *cellGrid, r cellRect, style byte) {
	x2, y2 := r.x+r.w-1, r.y+r.h-1
	for x := r.x + 1; x < x2; x++ {
		g.set(x, r.y, '─', style)
		g.set(x, y2, '─', style)
	}
	for y := r.y + 1; y < y2; y++ {
		g.set(r.x, y, '│', style)
		g.set(x2, y, '│', style)
	}
	g.set(r.x, r.y, '┌', style)
	g.set(x2, r.y, '┐', style)
	g.set(r.x, y2, '└', style)
	g.set(x2, y2, '┘', style)
	for y := r.y + 1; y < y2; y++ {
		for x := r.x + 1; x < x2; x++ {
			g.set(x, y, ' ', style)
		}
	}
}

// drawText writes s at (x, y), truncated to maxW cells.
func drawText(g *cellGrid, x, y, maxW int, s string, style byte) {
	if maxW <= 0 {
		return
	}
	runes := []rune(s)
	if len(runes) > maxW {
		if maxW > 1 {
			runes = append(runes[:maxW-1], '…')
		} else {
			runes = runes[:maxW]
		}
	}
	for i, r := range runes {
		g.set(x+i, y, r, style)
	}
}

// drawElbow draws a three-segment connector: horizontal to the midpoint,
// vertical, horizontal to the target, with an arrowhead.
func drawElbow(g *cellGrid, x1, y1, x2, y2 int, style byte) {
	midX := (x1 + x2) / 2
	for x := min(x1+1, midX); x <= max(x1+1, midX); x++ {
		g.set(x, y1, '─', style)
	}
	for y := min(y1, y2) + 1; y < max(y1, y2); y++ {
		g.set(midX, y, '│', style)
	}
	for x := min(midX, x2-1); x <= max(midX, x2-1); x++ {
		g.set(x, y2, '─', style)
	}
	if y1 != y2 {
		if y2 > y1 {
			g.set(midX, y1, '┐', style)
			g.set(midX, y2, '└', style)
		} else {
			g.set(midX, y1, '┘', style)
			g.set(midX, y2, '┌', style)
		}
	}
	g.set(x2-1, y2, '▶', style)
}

// drawDotted draws a straight interpolated line of dots, used for the
// in-progress connection preview.
func drawDotted(g *cellGrid, x1, y1, x2, y2 int, style byte) {
	dx, dy := x2-x1, y2-y1
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		g.set(x1, y1, '·', style)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x1 + dx*i/steps
		y := y1 + dy*i/steps
		g.set(x, y, '·', style)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
