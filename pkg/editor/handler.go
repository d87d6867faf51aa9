package editor

import (
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/interaction"
)

// editorHandler receives gesture callbacks from the interaction machine
// and applies them to the editor's graph state.
type editorHandler struct {
	e *Editor
}

func (h *editorHandler) OnNodeDragStart(nodeID string, ev interaction.PointerEvent) {
	if n, ok := h.e.manager.Node(nodeID); ok {
		h.e.dragDelta = n.Position.Sub(ev.Canvas)
	} else {
		h.e.dragDelta = geometry.Point{}
	}
}

func (h *editorHandler) OnNodeDragMove(nodeID string, ev interaction.PointerEvent) {
	if err := h.e.manager.MoveNode(nodeID, ev.Canvas.Add(h.e.dragDelta)); err != nil {
		h.e.logger.Warn("drag move rejected", "node", nodeID, "err", err)
	}
}

func (h *editorHandler) OnNodeDragEnd(nodeID string, ev interaction.PointerEvent) {
	if err := h.e.manager.MoveNode(nodeID, ev.Canvas.Add(h.e.dragDelta)); err != nil {
		h.e.logger.Warn("drag end rejected", "node", nodeID, "err", err)
	}
	h.e.dragDelta = geometry.Point{}
}

func (h *editorHandler) OnConnectionStart(nodeID string, handle geometry.HandleKind, ev interaction.PointerEvent) {
	if err := h.e.manager.StartConnection(nodeID, handle, ev.Screen); err != nil {
		h.e.logger.Warn("connection start rejected", "node", nodeID, "err", err)
	}
}

func (h *editorHandler) OnConnectionMove(ev interaction.PointerEvent) {
	h.e.manager.UpdateConnectionPosition(ev.Screen)
}

func (h *editorHandler) OnConnectionEnd(targetNodeID string, targetHandle geometry.HandleKind, ev interaction.PointerEvent) {
	if targetNodeID == "" {
		h.e.manager.CancelConnection()
		return
	}
	h.e.manager.CompleteConnection(targetNodeID, targetHandle)
}

func (h *editorHandler) OnCanvasPanStart(ev interaction.PointerEvent) {
	h.e.panLast = ev.Screen
}

func (h *editorHandler) OnCanvasPanMove(ev interaction.PointerEvent) {
	delta := ev.Screen.Sub(h.e.panLast)
	h.e.panLast = ev.Screen
	if err := h.e.Pan(delta); err != nil {
		h.e.logger.Warn("pan rejected", "err", err)
	}
}

func (h *editorHandler) OnCanvasPanEnd(ev interaction.PointerEvent) {
	h.e.panLast = geometry.Point{}
}

func (h *editorHandler) OnNodeHover(nodeID string, hovering bool) {
	if hovering {
		h.e.hoverNode = nodeID
	} else if h.e.hoverNode == nodeID {
		h.e.hoverNode = ""
	}
}

func (h *editorHandler) OnHandleHover(nodeID string, handle geometry.HandleKind, hovering bool) {
	if hovering {
		h.e.hoverHandleNode = nodeID
		h.e.hoverHandle = handle
	} else if h.e.hoverHandleNode == nodeID && h.e.hoverHandle == handle {
		h.e.hoverHandleNode = ""
		h.e.hoverHandle = ""
	}
}

func (h *editorHandler) OnModeChange(from, to interaction.Mode) {
	h.e.logger.Debug("interaction mode", "from", from, "to", to)
}

func (h *editorHandler) OnInteractionConflict(mode interaction.Mode, event string) {
	h.e.logger.Warn("interaction conflict", "mode", mode, "event", event)
}

var _ interaction.Handler = (*editorHandler)(nil)
